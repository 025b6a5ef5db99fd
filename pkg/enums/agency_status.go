package enums

import "fmt"

// AgencyStatus gates what an agency account is allowed to do on the platform.
type AgencyStatus string

const (
	AgencyStatusPending   AgencyStatus = "pending"
	AgencyStatusVerified  AgencyStatus = "verified"
	AgencyStatusSuspended AgencyStatus = "suspended"
)

var validAgencyStatuses = []AgencyStatus{
	AgencyStatusPending,
	AgencyStatusVerified,
	AgencyStatusSuspended,
}

// String implements fmt.Stringer.
func (s AgencyStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s AgencyStatus) IsValid() bool {
	for _, candidate := range validAgencyStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseAgencyStatus converts raw input into an AgencyStatus.
func ParseAgencyStatus(value string) (AgencyStatus, error) {
	for _, candidate := range validAgencyStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid agency status %q", value)
}
