package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKM_SamePoint(t *testing.T) {
	p := Point{Lat: 33.7, Lng: 72.8}
	assert.Equal(t, 0.0, DistanceKM(p, p))
}

func TestDistanceKM_Symmetric(t *testing.T) {
	points := []Point{
		{Lat: 33.7, Lng: 72.8},
		{Lat: 33.7, Lng: 72.81},
		{Lat: -33.8688, Lng: 151.2093},
		{Lat: 51.5074, Lng: -0.1278},
		{Lat: 0, Lng: 0},
	}
	for _, a := range points {
		for _, b := range points {
			assert.Equal(t, DistanceKM(a, b), DistanceKM(b, a))
		}
	}
}

func TestDistanceKM_KnownDistances(t *testing.T) {
	// Austin -> Dallas, около 293 км
	d := DistanceKM(Point{Lat: 30.2672, Lng: -97.7431}, Point{Lat: 32.7767, Lng: -96.7970})
	assert.InDelta(t, 293, d, 5)

	// 0.01 градуса долготы на широте 33.7 - около 0.93 км
	d = DistanceKM(Point{Lat: 33.7, Lng: 72.8}, Point{Lat: 33.7, Lng: 72.81})
	assert.InDelta(t, 0.925, d, 0.01)

	// Антиподы - половина окружности
	d = DistanceKM(Point{Lat: 0, Lng: 0}, Point{Lat: 0, Lng: 180})
	assert.InDelta(t, math.Pi*EarthRadiusKM, d, 0.001)
}

func TestWithin(t *testing.T) {
	center := Point{Lat: 33.7, Lng: 72.8}
	assert.True(t, Within(center, Point{Lat: 33.7, Lng: 72.81}, 20))
	assert.True(t, Within(center, center, 0))
	// Один градус широты - около 111 км
	assert.False(t, Within(center, Point{Lat: 34.7, Lng: 72.8}, 20))
}

func TestPoint_Valid(t *testing.T) {
	assert.True(t, Point{}.Valid())
	assert.True(t, Point{Lat: -90, Lng: 180}.Valid())
	assert.False(t, Point{Lat: 91}.Valid())
	assert.False(t, Point{Lng: -181}.Valid())
	assert.False(t, Point{Lat: math.NaN()}.Valid())
	assert.False(t, Point{Lng: math.Inf(1)}.Valid())
}
