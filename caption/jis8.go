// Package caption implements the ARIB JIS-8 closed-caption state
// machine: data-group/data-unit framing, the G0-G3 character-set
// interpreter, DRCS glyph loading, and the foreground/background
// glyph renderer it drives.
package caption

// C0 control set bytes the interpreter dispatches on directly (outside
// any G-buffer lookup).
const (
	bNUL  = 0x00
	bBEL  = 0x07
	bAPB  = 0x08
	bAPF  = 0x09
	bAPD  = 0x0A
	bAPU  = 0x0B
	bCS   = 0x0C
	bAPR  = 0x0D
	bLS1  = 0x0E
	bLS0  = 0x0F
	bPAPF = 0x16
	bCAN  = 0x18
	bSS2  = 0x19
	bESC  = 0x1B
	bAPS  = 0x1C
	bSS3  = 0x1D
	bRS   = 0x1E
	bUS   = 0x1F
	bSP   = 0x20
	bDEL  = 0x7F
)

// C1 control set bytes (colour, size and CSI/TIME controls), all in
// the 0x80..0x9F range.
const (
	bBKF  = 0x80
	bRDF  = 0x81
	bGRF  = 0x82
	bYLF  = 0x83
	bBLF  = 0x84
	bMGF  = 0x85
	bCNF  = 0x86
	bWHF  = 0x87
	bSSZ  = 0x88
	bMSZ  = 0x89
	bNSZ  = 0x8A
	bSZX  = 0x8B
	bCOL  = 0x90
	bFLC  = 0x91
	bCDC  = 0x92
	bPOL  = 0x93
	bWMM  = 0x94
	bMACR = 0x95
	bHLC  = 0x96
	bRPC  = 0x97
	bSPL  = 0x98
	bSTL  = 0x99
	bCSI  = 0x9B
	bTIME = 0x9D
)

// ESC second-byte codes.
const (
	escLS2  = 0x6E
	escLS3  = 0x6F
	escLS1R = 0x7E
	escLS2R = 0x7D
	escLS3R = 0x7C
	escG0   = 0x28
	escG1   = 0x29
	escG2   = 0x2A
	escG3   = 0x2B
	escG2b  = 0x24 // introduces a 2-byte-set designation
)

// CSI final bytes this interpreter recognizes. Values not in this
// list still parse (the generic parameter/intermediate-byte grammar
// lets the interpreter skip them) but are flagged unsupported.
const (
	csiSWF  = 0x53
	csiSDF  = 0x56
	csiSSM  = 0x57
	csiSHS  = 0x58
	csiSVS  = 0x59
	csiSDP  = 0x5F
	csiACPS = 0x61
	csiORN  = 0x63
	csiRCS  = 0x6E
)
