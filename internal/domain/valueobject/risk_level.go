package valueobject

import "fmt"

// RiskLevel is an immutable value object representing the discrete risk of a URL.
type RiskLevel struct {
	value string
}

var (
	RiskLevelSafe     = RiskLevel{value: "safe"}
	RiskLevelLow      = RiskLevel{value: "low"}
	RiskLevelMedium   = RiskLevel{value: "medium"}
	RiskLevelHigh     = RiskLevel{value: "high"}
	RiskLevelCritical = RiskLevel{value: "critical"}
)

// riskLevels is ordered from least to most severe.
var riskLevels = []RiskLevel{
	RiskLevelSafe,
	RiskLevelLow,
	RiskLevelMedium,
	RiskLevelHigh,
	RiskLevelCritical,
}

// RiskLevelFromString reconstructs a RiskLevel from its string representation.
func RiskLevelFromString(s string) (RiskLevel, error) {
	for _, l := range riskLevels {
		if l.value == s {
			return l, nil
		}
	}
	return RiskLevel{}, fmt.Errorf("invalid risk level: %s", s)
}

// AllRiskLevels returns every level from safe to critical.
func AllRiskLevels() []RiskLevel {
	out := make([]RiskLevel, len(riskLevels))
	copy(out, riskLevels)
	return out
}

// String returns the string representation.
func (r RiskLevel) String() string {
	return r.value
}

// Rank returns the severity index: safe=0 ... critical=4, -1 when unset.
func (r RiskLevel) Rank() int {
	for i, l := range riskLevels {
		if l.value == r.value {
			return i
		}
	}
	return -1
}

// Escalate returns the next more severe level. Critical stays critical.
func (r RiskLevel) Escalate() RiskLevel {
	rank := r.Rank()
	if rank < 0 {
		return RiskLevelLow
	}
	if rank >= len(riskLevels)-1 {
		return RiskLevelCritical
	}
	return riskLevels[rank+1]
}

// AtLeast reports whether r is as severe as other or more.
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return r.Rank() >= other.Rank()
}

// IsUnsafe reports whether the level is above safe.
func (r RiskLevel) IsUnsafe() bool {
	return r.Rank() > 0
}

// IsZero returns true if the RiskLevel has not been set.
func (r RiskLevel) IsZero() bool {
	return r.value == ""
}

// Equal checks equality with another RiskLevel.
func (r RiskLevel) Equal(other RiskLevel) bool {
	return r.value == other.value
}

// MarshalText implements encoding.TextMarshaler.
func (r RiskLevel) MarshalText() ([]byte, error) {
	return []byte(r.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *RiskLevel) UnmarshalText(b []byte) error {
	l, err := RiskLevelFromString(string(b))
	if err != nil {
		return err
	}
	*r = l
	return nil
}
