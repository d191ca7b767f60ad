package enums

import "fmt"

// OrderOrigin distinguishes table-side orders from staff-entered ones.
type OrderOrigin string

const (
	OrderOriginDigital OrderOrigin = "digital"
	OrderOriginManual  OrderOrigin = "manual"
)

var validOrderOrigins = []OrderOrigin{
	OrderOriginDigital,
	OrderOriginManual,
}

// String implements fmt.Stringer.
func (o OrderOrigin) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderOrigin.
func (o OrderOrigin) IsValid() bool {
	for _, candidate := range validOrderOrigins {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderOrigin converts raw input into an OrderOrigin.
func ParseOrderOrigin(value string) (OrderOrigin, error) {
	for _, candidate := range validOrderOrigins {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order origin %q", value)
}
