// Package geo holds coordinates and great-circle distance.
package geo

import "github.com/umahmood/haversine"

// Point is a latitude/longitude pair in decimal degrees. (0, 0) is a valid point; absence is a nil *Point.
type Point struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// NewPoint returns a pointer to the given coordinates.
func NewPoint(lat, lon float64) *Point {
	return &Point{Latitude: lat, Longitude: lon}
}

// FromNullable returns a point only when both coordinates are present.
func FromNullable(lat, lon *float64) *Point {
	if lat == nil || lon == nil {
		return nil
	}
	return NewPoint(*lat, *lon)
}

// DistanceKm returns the haversine distance in kilometres (earth radius 6371 km).
func DistanceKm(a, b Point) float64 {
	_, km := haversine.Distance(
		haversine.Coord{Lat: a.Latitude, Lon: a.Longitude},
		haversine.Coord{Lat: b.Latitude, Lon: b.Longitude},
	)
	return km
}
