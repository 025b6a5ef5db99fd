package enums

import "fmt"

// SortKey is the caller-requested primary ordering inside a priority band.
type SortKey string

const (
	SortKeyPrice      SortKey = "price"
	SortKeySurface    SortKey = "surface"
	SortKeyRenovation SortKey = "renovation"
	SortKeyDate       SortKey = "date"
)

var validSortKeys = []SortKey{
	SortKeyPrice,
	SortKeySurface,
	SortKeyRenovation,
	SortKeyDate,
}

// String implements fmt.Stringer.
func (k SortKey) String() string {
	return string(k)
}

// IsValid reports whether the value is known.
func (k SortKey) IsValid() bool {
	for _, candidate := range validSortKeys {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseSortKey converts raw input into a SortKey.
func ParseSortKey(value string) (SortKey, error) {
	for _, candidate := range validSortKeys {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sort key %q", value)
}

// SortOrder is the requested direction for the primary sort key.
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// IsValid reports whether the value is known.
func (o SortOrder) IsValid() bool {
	return o == SortOrderAsc || o == SortOrderDesc
}

// ParseSortOrder converts raw input into a SortOrder, defaulting empty to asc.
func ParseSortOrder(value string) (SortOrder, error) {
	switch value {
	case "", string(SortOrderAsc):
		return SortOrderAsc, nil
	case string(SortOrderDesc):
		return SortOrderDesc, nil
	}
	return "", fmt.Errorf("invalid sort order %q", value)
}
