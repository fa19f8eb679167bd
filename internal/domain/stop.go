package domain

// Represents a single location handled by the system.
// A Stop is identified by a unique id and carries either an explicit
// coordinate or a free-text address that can be geocoded into one.
// Stops are immutable once a travel matrix has been built over them.
type Stop struct {
	ID         string
	Coordinate *Coordinates
	Address    string
}

// A pickup/drop-off pairing between two positions in a stop list.
// Both values index into the same stop slice; the pickup must be served
// before the drop-off, by the same vehicle.
type PickupDropPair struct {
	Pickup int
	Drop   int
}
