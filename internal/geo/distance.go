package geo

import "math"

// EarthRadiusKM - средний радиус Земли в километрах
const EarthRadiusKM = 6371.0

// Point - координаты в градусах
type Point struct {
	Lat float64
	Lng float64
}

// Valid проверяет, что координаты конечны и лежат в допустимых пределах
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// DistanceKM возвращает расстояние по большому кругу (формула гаверсинуса)
func DistanceKM(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := lat2 - lat1
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Pow(math.Sin(dLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLng/2), 2)
	// Округление может дать h чуть больше 1 для антиподов
	h = math.Min(1, h)
	return 2 * EarthRadiusKM * math.Asin(math.Sqrt(h))
}

// Within - находится ли b не дальше radiusKM от a
func Within(a, b Point, radiusKM float64) bool {
	return DistanceKM(a, b) <= radiusKM
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
