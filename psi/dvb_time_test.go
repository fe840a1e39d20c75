package psi

import (
	"bytes"
	"testing"
	"time"

	"github.com/icza/bitio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMJDDateRoundTrip(t *testing.T) {
	cases := []struct{ y, m, d int }{
		{1993, 10, 13},
		{2026, 7, 29},
		{2000, 2, 29}, // leap day
		{1999, 12, 31},
		{2026, 1, 1},
	}
	for _, c := range cases {
		mjd := dateToMJD(time.Date(c.y, time.Month(c.m), c.d, 0, 0, 0, 0, time.UTC))
		y, m, d := mjdToDate(mjd)
		assert.Equal(t, c.y, y, "year for %v", c)
		assert.Equal(t, c.m, m, "month for %v", c)
		assert.Equal(t, c.d, d, "day for %v", c)
	}
}

func TestParseMJDTime(t *testing.T) {
	want := time.Date(2026, 7, 29, 12, 34, 56, 0, time.UTC)
	mjd := dateToMJD(want)
	raw := []byte{
		byte(mjd >> 8), byte(mjd),
		bcdByte(12), bcdByte(34), bcdByte(56),
	}

	r := bitio.NewCountReader(bytes.NewReader(raw))
	got, err := parseMJDTime(r)
	require.NoError(t, err)
	assert.True(t, want.Equal(got), "got %v, want %v", got, want)
}

func TestParseMJDTimeUndefinedSentinel(t *testing.T) {
	raw := []byte{0xff, 0xff, 0xff, 0xff, 0xff}
	r := bitio.NewCountReader(bytes.NewReader(raw))
	got, err := parseMJDTime(r)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}
