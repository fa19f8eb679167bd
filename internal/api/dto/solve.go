package dto

import "time"

type SolveStopRequest struct {
	ID      string   `json:"id"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
	Address string   `json:"address"`
}

type SolveRequest struct {
	Stops             []SolveStopRequest `json:"stops"`
	PickupDropPairs   [][2]int           `json:"pickup_drop_pairs"`
	VehicleCount      *int               `json:"vehicle_count"`
	VehicleCapacity   *int               `json:"vehicle_capacity"`
	DepartureTime     *time.Time         `json:"departure_time"`
	RoutingPreference string             `json:"routing_preference"`
}

type RouteStopResponse struct {
	StopID     string `json:"stop_id"`
	LoadAtStop int    `json:"load_at_stop"`
	TimeMin    int    `json:"time_min"`
}

type VehicleRouteResponse struct {
	VehicleID          int                 `json:"vehicle_id"`
	Stops              []RouteStopResponse `json:"stops"`
	TotalTravelTimeMin int                 `json:"total_travel_time_min"`
	MaxLoad            int                 `json:"max_load"`
}

type SolveResponse struct {
	Status string                 `json:"status"`
	Routes []VehicleRouteResponse `json:"routes"`
}
