package psi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestComputeCRC32CheckValue pins ComputeCRC32 against the standard
// CRC-32/MPEG-2 catalogue check value for the ASCII string "123456789".
func TestComputeCRC32CheckValue(t *testing.T) {
	got := ComputeCRC32([]byte("123456789"))
	assert.Equal(t, uint32(0x0376e6e7), got)
}

func TestComputeCRC32Empty(t *testing.T) {
	assert.Equal(t, uint32(0xffffffff), ComputeCRC32(nil))
}
