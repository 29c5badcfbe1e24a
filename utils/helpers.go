package utils

import (
	"github.com/google/uuid"
)

// UUID Generation
func GenerateUUID() string {
	return uuid.New().String()
}

// Float64Ptr returns a pointer to v, for optional numeric fields.
func Float64Ptr(v float64) *float64 {
	return &v
}

// IsValidCoordinate checks if latitude and longitude values are valid
func IsValidCoordinate(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
