package valueobject

import "fmt"

// TrustTier is one of six ordered domain-trust classifications, each owning
// a fixed score sub-range [Min, Max].
type TrustTier struct {
	value string
	min   float64
	max   float64
}

var (
	TrustTierHighest    = TrustTier{value: "highest", min: 0.85, max: 1.00}
	TrustTierHigh       = TrustTier{value: "high", min: 0.70, max: 0.85}
	TrustTierMedium     = TrustTier{value: "medium", min: 0.50, max: 0.70}
	TrustTierLow        = TrustTier{value: "low", min: 0.30, max: 0.50}
	TrustTierSuspicious = TrustTier{value: "suspicious", min: 0.15, max: 0.30}
	TrustTierDangerous  = TrustTier{value: "dangerous", min: 0.00, max: 0.15}
)

// trustTiers is ordered from most to least trusted.
var trustTiers = []TrustTier{
	TrustTierHighest,
	TrustTierHigh,
	TrustTierMedium,
	TrustTierLow,
	TrustTierSuspicious,
	TrustTierDangerous,
}

// TrustTierFromString reconstructs a TrustTier from its string representation.
func TrustTierFromString(s string) (TrustTier, error) {
	for _, t := range trustTiers {
		if t.value == s {
			return t, nil
		}
	}
	return TrustTier{}, fmt.Errorf("invalid trust tier: %s", s)
}

// String returns the string representation.
func (t TrustTier) String() string {
	return t.value
}

// Min returns the inclusive lower bound of the tier's score range.
func (t TrustTier) Min() float64 {
	return t.min
}

// Max returns the upper bound of the tier's score range.
func (t TrustTier) Max() float64 {
	return t.max
}

// Midpoint returns the centre of the tier's score range.
func (t TrustTier) Midpoint() float64 {
	return (t.min + t.max) / 2
}

// Contains reports whether score lies in the tier's sub-range. Upper bounds
// are exclusive except for the highest tier.
func (t TrustTier) Contains(score float64) bool {
	if score < t.min {
		return false
	}
	if t.value == TrustTierHighest.value {
		return score <= t.max
	}
	return score < t.max
}

// Clamp pins score inside the tier's sub-range.
func (t TrustTier) Clamp(score float64) float64 {
	if score < t.min {
		return t.min
	}
	if t.value == TrustTierHighest.value {
		if score > t.max {
			return t.max
		}
		return score
	}
	// keep strictly below the exclusive upper bound
	ceiling := t.max - 0.0001
	if score > ceiling {
		return ceiling
	}
	return score
}

// Rank returns 0 for highest trust through 5 for dangerous, -1 when unset.
func (t TrustTier) Rank() int {
	for i, tier := range trustTiers {
		if tier.value == t.value {
			return i
		}
	}
	return -1
}

// IsZero returns true if the TrustTier has not been set.
func (t TrustTier) IsZero() bool {
	return t.value == ""
}

// Equal checks equality with another TrustTier.
func (t TrustTier) Equal(other TrustTier) bool {
	return t.value == other.value
}

// MarshalText implements encoding.TextMarshaler.
func (t TrustTier) MarshalText() ([]byte, error) {
	return []byte(t.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TrustTier) UnmarshalText(b []byte) error {
	tier, err := TrustTierFromString(string(b))
	if err != nil {
		return err
	}
	*t = tier
	return nil
}
