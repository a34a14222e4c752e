package rpg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeterLevel(t *testing.T) {
	m := ClubMeter(520, false)
	assert.Equal(t, 22, m.Level())
	assert.Equal(t, "22", m.StrLevel())
	assert.Equal(t, 0, m.ImLevel())

	m = HeartMeter(84, false)
	assert.Equal(t, 9, m.Level())

	m = SpadeMeter(19, false)
	assert.Equal(t, 4, m.Level())

	m = DiamondMeter(11, false)
	assert.Equal(t, 3, m.Level())
}

func TestMeterLevelZeroAndNegative(t *testing.T) {
	zero := ClubMeter(0, false)
	assert.Equal(t, 0, zero.Level())
	assert.Equal(t, "0", zero.StrLevel())

	// Negative values carry an imaginary level instead.
	neg := ClubMeter(-1, false)
	assert.Equal(t, 0, neg.Level())
	assert.Equal(t, 1, neg.ImLevel())
	assert.Equal(t, "i", neg.StrLevel())

	neg = ClubMeter(-9, false)
	assert.Equal(t, 3, neg.ImLevel())
	assert.Equal(t, "3i", neg.StrLevel())
}

func TestMeterLevelMonotone(t *testing.T) {
	prev := 0
	for v := 0; v <= 700; v++ {
		lvl := ClubMeter(v, false).Level()
		assert.GreaterOrEqual(t, lvl, prev)
		prev = lvl
	}
}

func TestMeterPercentClamped(t *testing.T) {
	// Even an empty meter shows at least 1% so the bar label fits.
	assert.Equal(t, 1, ClubMeter(0, false).Percent())
	assert.Equal(t, 100, ClubMeter(9999, false).Percent())
	assert.Equal(t, 100, ClubMeter(2500, false).Percent())

	for v := -100; v <= 3000; v += 17 {
		p := ClubMeter(v, false).Percent()
		assert.GreaterOrEqual(t, p, 1)
		assert.LessOrEqual(t, p, 100)

		p = ClubMeter(v, true).Percent()
		assert.GreaterOrEqual(t, p, 1)
		assert.LessOrEqual(t, p, 100)
	}
}

func TestMeterNeededAndThresh(t *testing.T) {
	m := ClubMeter(520, false)
	assert.Equal(t, 529, m.Thresh())
	assert.InDelta(t, 9.0, m.Needed(), 1e-9)

	m = HeartMeter(84.25, false)
	assert.Equal(t, 100, m.Thresh())
	assert.InDelta(t, 15.75, m.Needed(), 1e-9)
}

func TestMeterRounding(t *testing.T) {
	assert.InDelta(t, 84.13, HeartMeter(84.1349, false).Value, 1e-9)
	assert.InDelta(t, 19.1, SpadeMeter(19.06, false).Value, 1e-9)
}

func TestFourMetersLevelNumber(t *testing.T) {
	f := FourMeters{
		Clubs:    ClubMeter(520, false),
		Hearts:   HeartMeter(84, false),
		Spades:   SpadeMeter(19, false),
		Diamonds: DiamondMeter(11, false),
	}
	assert.Equal(t, 38, f.LevelNumber())
	assert.Equal(t, "", f.StrImLevel())
}

func TestFourMetersImaginary(t *testing.T) {
	f := FourMeters{
		Clubs:    ClubMeter(-1, false),
		Hearts:   HeartMeter(0, false),
		Spades:   SpadeMeter(0, false),
		Diamonds: DiamondMeter(0, false),
	}
	assert.Equal(t, "+ i", f.StrImLevel())

	f.Diamonds = DiamondMeter(-9, false)
	assert.Equal(t, "+ 4i", f.StrImLevel())
}
