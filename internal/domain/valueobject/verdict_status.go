package valueobject

import "fmt"

// VerdictStatus is the coarse label shown to end users.
type VerdictStatus struct {
	value string
}

var (
	StatusSafe       = VerdictStatus{value: "safe"}
	StatusSuspicious = VerdictStatus{value: "suspicious"}
	StatusPhishing   = VerdictStatus{value: "phishing"}
)

// VerdictStatusFromString reconstructs a VerdictStatus from its string representation.
func VerdictStatusFromString(s string) (VerdictStatus, error) {
	switch s {
	case "safe":
		return StatusSafe, nil
	case "suspicious":
		return StatusSuspicious, nil
	case "phishing":
		return StatusPhishing, nil
	default:
		return VerdictStatus{}, fmt.Errorf("invalid verdict status: %s", s)
	}
}

// StatusFromRiskLevel derives the status from a risk level.
func StatusFromRiskLevel(level RiskLevel) VerdictStatus {
	switch {
	case level.AtLeast(RiskLevelHigh):
		return StatusPhishing
	case level.IsUnsafe():
		return StatusSuspicious
	default:
		return StatusSafe
	}
}

// String returns the string representation.
func (s VerdictStatus) String() string {
	return s.value
}

// IsZero returns true if the status has not been set.
func (s VerdictStatus) IsZero() bool {
	return s.value == ""
}

// Equal checks equality with another VerdictStatus.
func (s VerdictStatus) Equal(other VerdictStatus) bool {
	return s.value == other.value
}

// MarshalText implements encoding.TextMarshaler.
func (s VerdictStatus) MarshalText() ([]byte, error) {
	return []byte(s.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *VerdictStatus) UnmarshalText(b []byte) error {
	v, err := VerdictStatusFromString(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
