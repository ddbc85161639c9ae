package model

// Table is one entry of the restaurant's fixed roster.  Capacity is a
// ceiling for a single party, not a pool that bookings draw down.
type Table struct {
	ID       uint64 `json:"id" yaml:"id"`
	Capacity int    `json:"capacity" yaml:"capacity"`
	Label    string `json:"label,omitempty" yaml:"label,omitempty"`
}
