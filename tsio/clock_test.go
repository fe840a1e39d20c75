package tsio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockReferenceDuration(t *testing.T) {
	cr := NewClockReference(90000, 0) // exactly 1 second at 90kHz
	assert.Equal(t, time.Second, cr.Duration())
}

func TestClockReferenceMasksFields(t *testing.T) {
	cr := NewClockReference(pcr90kHzWrap+5, 0x3ff)
	assert.Equal(t, uint64(5), cr.Base)
	assert.Equal(t, uint16(0x1ff), cr.Ext)
}

func TestElapsedSince90kNoWrap(t *testing.T) {
	assert.Equal(t, uint64(1000), ElapsedSince90k(1000, 2000))
}

func TestElapsedSince90kWraps(t *testing.T) {
	from := uint64(pcr90kHzWrap - 100)
	to := uint64(50)
	assert.Equal(t, uint64(150), ElapsedSince90k(from, to))
}

func TestElapsedSeconds(t *testing.T) {
	assert.Equal(t, time.Second, ElapsedSeconds(90000))
}
