package domain

// Represents a single visited position in a vehicle's route: the stop id,
// the cumulative travel time on arrival, and the load carried after serving
// the stop.
type RouteStop struct {
	StopID      string
	TimeMinutes int
	LoadAtStop  int
}

// Represents the planned route for a single vehicle.
// The stop sequence begins at the depot and ends with the depot return.
// It is immutable planning data and contains no side effects.
type VehicleRoute struct {
	VehicleID              int
	Stops                  []RouteStop
	TotalTravelTimeMinutes int
	MaxLoad                int
}
