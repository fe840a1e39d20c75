package signaling

import (
	"time"

	"github.com/jstream/aribts/tsio"
)

// Anchor pairs the first PCR base ever observed on the service's PCR
// PID with the first TOT decoded, following the "first PCR ever"
// strategy: the anchor's PCR sample is whichever arrived first in the
// stream, independent of when the first TOT happened to land. This
// resolves the ambiguity between anchoring to the PCR immediately
// after the first TOT versus the PCR that literally co-occurred with
// it — the reference renderer this decoder is modeled on anchors to
// the first PCR it ever sees, so later PCR/PTS samples are always
// expressed relative to stream start rather than to the first TOT.
//
// Once set, an Anchor is never mutated; the Reconstructor enforces
// this by only setting each field the first time it's observed.
type Anchor struct {
	FirstPCRBase uint64
	FirstTOT     time.Time
	set          bool
	totSet       bool
}

// Reconstructor maps PCR/PTS samples to wall-clock time once an Anchor
// is established.
type Reconstructor struct {
	anchor Anchor
}

// NewReconstructor returns a Reconstructor with no anchor yet set.
func NewReconstructor() *Reconstructor {
	return &Reconstructor{}
}

// ObservePCR records the first PCR base this Reconstructor ever sees.
// Subsequent calls are no-ops, preserving the "first PCR ever" anchor.
func (c *Reconstructor) ObservePCR(base uint64) {
	if !c.anchor.set {
		c.anchor.FirstPCRBase = base
		c.anchor.set = true
	}
}

// ObserveTOT records the first TOT/TDT UTC time this Reconstructor
// ever sees.
func (c *Reconstructor) ObserveTOT(utc time.Time) {
	if !c.anchor.totSet {
		c.anchor.FirstTOT = utc
		c.anchor.totSet = true
	}
}

// Ready reports whether both halves of the anchor have been observed.
func (c *Reconstructor) Ready() bool {
	return c.anchor.set && c.anchor.totSet
}

// Anchor returns the current anchor pair.
func (c *Reconstructor) Anchor() Anchor { return c.anchor }

// WallClock maps a 90kHz PCR or PTS base to a presentation wall-clock
// time, given the established anchor. It is only meaningful once Ready
// reports true.
func (c *Reconstructor) WallClock(base uint64) time.Time {
	elapsed := tsio.ElapsedSince90k(c.anchor.FirstPCRBase, base)
	return c.anchor.FirstTOT.Add(tsio.ElapsedSeconds(elapsed))
}

// HeadTime computes the wall-clock of stream start, given the PCR base
// that was in effect at the instant the first TOT was decoded. It
// implements the relation first_tot - elapsed(first_pcr, first_tot_pcr).
func (c *Reconstructor) HeadTime(firstTOTPCR uint64) time.Time {
	elapsed := tsio.ElapsedSince90k(c.anchor.FirstPCRBase, firstTOTPCR)
	return c.anchor.FirstTOT.Add(-tsio.ElapsedSeconds(elapsed))
}
