package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier(BandNone)

	tests := []struct {
		name             string
		total, available int
		hint             Band
		want             Band
	}{
		{"zero available", 100, 0, BandNone, BandFull},
		{"zero available with good hint", 100, 0, BandGood, BandFull},
		{"zero total", 0, 0, BandNone, BandFull},
		{"full hint overrides ratio", 100, 90, BandFull, BandFull},
		{"ratio 0.29", 100, 29, BandNone, BandLimited},
		{"ratio 0.30 exactly", 10, 3, BandNone, BandGood},
		{"ratio 0.50 exactly", 100, 50, BandNone, BandGood},
		{"ratio 0.40 gap", 100, 40, BandNone, BandGood},
		{"limited hint overrides high ratio", 100, 90, BandLimited, BandLimited},
		{"good hint in gap", 100, 40, BandGood, BandGood},
		{"good hint cannot lift low ratio", 100, 10, BandGood, BandLimited},
		{"all free", 50, 50, BandNone, BandGood},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.total, tt.available, tt.hint))
		})
	}
}

func TestClassifier_LimitedGapPolicy(t *testing.T) {
	c := NewClassifier(BandLimited)

	assert.Equal(t, BandLimited, c.Classify(100, 40, BandNone))
	assert.Equal(t, BandLimited, c.Classify(10, 3, BandNone))
	assert.Equal(t, BandGood, c.Classify(100, 50, BandNone))
	assert.Equal(t, BandGood, c.Classify(100, 40, BandGood))
}

func TestParseHint(t *testing.T) {
	assert.Equal(t, BandFull, ParseHint("red"))
	assert.Equal(t, BandFull, ParseHint(" RED "))
	assert.Equal(t, BandLimited, ParseHint("yellow"))
	assert.Equal(t, BandGood, ParseHint("Green"))
	assert.Equal(t, BandLimited, ParseHint("limited"))
	assert.Equal(t, BandNone, ParseHint("public"))
	assert.Equal(t, BandNone, ParseHint(""))
}

func TestParseGapBand(t *testing.T) {
	b, err := ParseGapBand("LIMITED")
	require.NoError(t, err)
	assert.Equal(t, BandLimited, b)

	b, err = ParseGapBand("good")
	require.NoError(t, err)
	assert.Equal(t, BandGood, b)

	_, err = ParseGapBand("full")
	require.Error(t, err)
}

func TestBand_ColorAndLabel(t *testing.T) {
	assert.Equal(t, "#ef4444", BandFull.Color())
	assert.Equal(t, "Full", BandFull.Label())
	assert.Equal(t, "#f59e0b", BandLimited.Color())
	assert.Equal(t, "Limited", BandLimited.Label())
	assert.Equal(t, "#22c55e", BandGood.Color())
	assert.Equal(t, "Good", BandGood.Label())
	assert.Empty(t, BandNone.Color())
}
