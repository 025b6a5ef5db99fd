package enums

import "fmt"

// EnergyClass is a DPE/GES label from A (best) to G (worst).
type EnergyClass string

const (
	EnergyClassA EnergyClass = "A"
	EnergyClassB EnergyClass = "B"
	EnergyClassC EnergyClass = "C"
	EnergyClassD EnergyClass = "D"
	EnergyClassE EnergyClass = "E"
	EnergyClassF EnergyClass = "F"
	EnergyClassG EnergyClass = "G"
)

var validEnergyClasses = []EnergyClass{
	EnergyClassA,
	EnergyClassB,
	EnergyClassC,
	EnergyClassD,
	EnergyClassE,
	EnergyClassF,
	EnergyClassG,
}

// String implements fmt.Stringer.
func (e EnergyClass) String() string {
	return string(e)
}

// IsValid reports whether the value is known.
func (e EnergyClass) IsValid() bool {
	for _, candidate := range validEnergyClasses {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEnergyClass converts raw input into an EnergyClass.
func ParseEnergyClass(value string) (EnergyClass, error) {
	for _, candidate := range validEnergyClasses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid energy class %q", value)
}
