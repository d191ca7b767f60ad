package enums

// TableStatus is the derived occupancy of a table.
type TableStatus string

const (
	TableStatusEmpty          TableStatus = "empty"
	TableStatusOccupied       TableStatus = "occupied"
	TableStatusNeedsAttention TableStatus = "needs_attention"
)

// String implements fmt.Stringer.
func (s TableStatus) String() string {
	return string(s)
}
