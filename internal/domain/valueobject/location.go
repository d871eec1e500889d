package valueobject

import (
	"fmt"

	"github.com/golang/geo/s2"

	"github.com/ignatzorin/littypicky-backend/internal/pkg/apperror"
)

// EarthRadiusKm: средний радиус Земли (IUGG).
const EarthRadiusKm = 6371.0088

type Location struct {
	Latitude  float64
	Longitude float64
}

func NewLocation(lat, lng float64) (Location, error) {
	if lat < -90 || lat > 90 {
		return Location{}, apperror.New(apperror.ErrCodeValidation, "широта должна быть в диапазоне [-90, 90]")
	}
	if lng < -180 || lng > 180 {
		return Location{}, apperror.New(apperror.ErrCodeValidation, "долгота должна быть в диапазоне [-180, 180]")
	}
	return Location{Latitude: lat, Longitude: lng}, nil
}

func (l Location) LatLng() s2.LatLng {
	return s2.LatLngFromDegrees(l.Latitude, l.Longitude)
}

// DistanceKm возвращает расстояние по большому кругу.
func (l Location) DistanceKm(other Location) float64 {
	return l.LatLng().Distance(other.LatLng()).Radians() * EarthRadiusKm
}

func (l Location) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", l.Latitude, l.Longitude)
}
