package model

import "fmt"

// RiskBand is the discrete risk classification of a customer. Bands partition
// the percentile axis: Low [0,75), Medium [75,90), High [90,95),
// Critical [95,100]. Cut points are configuration, not fixed here.
type RiskBand string

const (
	BandLow      RiskBand = "Low"
	BandMedium   RiskBand = "Medium"
	BandHigh     RiskBand = "High"
	BandCritical RiskBand = "Critical"
)

// BandFromString reconstructs a RiskBand from its string form.
func BandFromString(s string) (RiskBand, error) {
	switch RiskBand(s) {
	case BandLow, BandMedium, BandHigh, BandCritical:
		return RiskBand(s), nil
	default:
		return "", fmt.Errorf("invalid risk band: %q", s)
	}
}

// Level returns the ordinal of the band, Low=0 .. Critical=3. The zero value
// (unknown band) maps below Low so ordering comparisons treat it as lowest.
func (b RiskBand) Level() int {
	switch b {
	case BandLow:
		return 0
	case BandMedium:
		return 1
	case BandHigh:
		return 2
	case BandCritical:
		return 3
	default:
		return -1
	}
}

// AtLeast reports whether the band is at or above min in severity.
func (b RiskBand) AtLeast(min RiskBand) bool {
	return b.Level() >= min.Level() && b.Level() >= 0
}

// IsZero reports whether the band has not been assigned.
func (b RiskBand) IsZero() bool { return b == "" }
