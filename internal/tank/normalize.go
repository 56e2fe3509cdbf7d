package tank

import "math"

// Clamp limits v to [lo, hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Normalize converts a raw sensor distance into a fill level.
// Level is tankFull - distance clamped to [0, tankFull]; Percent is Level as a
// share of tankFull, rounded to one decimal place.
func (a *Aggregator) Normalize(distance float64) FillLevel {
	level := Clamp(a.tankFull-distance, 0, a.tankFull)
	percent := math.Round(level/a.tankFull*1000) / 10

	return FillLevel{
		Distance: distance,
		Level:    level,
		Percent:  percent,
		Band:     BandFor(percent),
	}
}

// BandFor classifies a fill percentage.
func BandFor(percent float64) LevelBand {
	switch {
	case percent < 20:
		return BandLow
	case percent < 50:
		return BandMedium
	default:
		return BandNormal
	}
}
