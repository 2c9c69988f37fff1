package utils

import (
	"math"
)

const (
	EarthRadiusM = 6371000.0
	DegToRad     = math.Pi / 180.0
	RadToDeg     = 180.0 / math.Pi
)

// CalculateDistance calculates the distance between two coordinates using the Haversine formula
func CalculateDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * DegToRad
	lat2Rad := lat2 * DegToRad

	dlat := (lat2 - lat1) * DegToRad
	dlon := (lon2 - lon1) * DegToRad

	a := math.Sin(dlat/2)*math.Sin(dlat/2) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusM * c
}

// CalculateBearing calculates the bearing between two coordinates
func CalculateBearing(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * DegToRad
	lat2Rad := lat2 * DegToRad
	dlon := (lon2 - lon1) * DegToRad

	y := math.Sin(dlon) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) - math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(dlon)

	bearing := math.Atan2(y, x) * RadToDeg
	return math.Mod(bearing+360, 360)
}

// IsValidCoordinate checks if latitude and longitude values are valid
func IsValidCoordinate(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
