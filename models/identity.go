package models

// Coordinate is a WGS84 point. Range checks are left to callers.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Identity is an already-authenticated caller.
type Identity struct {
	UserID  string
	Email   string
	IsAdmin bool
}
