package hotspot

import (
	"math"
	"math/rand/v2"

	"github.com/shenikar/incident_triage/internal/geo"
	"github.com/shenikar/incident_triage/internal/models"
)

const (
	// MaxClusters - верхняя граница числа кластеров
	MaxClusters = 5
	// DefaultSeed фиксирует инициализацию, чтобы результат был стабилен для одного набора точек
	DefaultSeed uint64 = 42

	maxIterations = 300
	tolerance     = 1e-9
)

// Options - параметры кластеризации
type Options struct {
	MaxClusters int
	Seed        uint64
}

// DefaultOptions возвращает k <= 5 и фиксированный seed
func DefaultOptions() Options {
	return Options{MaxClusters: MaxClusters, Seed: DefaultSeed}
}

// Cluster разбивает точки на min(MaxClusters, n) кластеров алгоритмом Ллойда
// с инициализацией k-means++. Каждый вызов независим, общего состояния нет.
func Cluster(points []geo.Point, opts Options) []models.Hotspot {
	n := len(points)
	if n == 0 {
		return []models.Hotspot{}
	}
	k := min(opts.MaxClusters, n)
	if k < 1 {
		k = 1
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	centroids := initCentroids(points, k, rng)
	labels := make([]int, n)

	for iter := 0; iter < maxIterations; iter++ {
		assign(points, centroids, labels)
		next, counts := recompute(points, labels, k)
		reseedEmpty(points, labels, next, counts)

		shift := 0.0
		for c := range centroids {
			shift = math.Max(shift, sqDist(centroids[c], next[c]))
		}
		centroids = next
		if shift <= tolerance*tolerance {
			break
		}
	}
	counts := make([]int, k)
	for _, l := range labels {
		counts[l]++
	}
	hotspots := make([]models.Hotspot, k)
	for c := range centroids {
		hotspots[c] = models.Hotspot{Lat: centroids[c].Lat, Lng: centroids[c].Lng, Count: counts[c]}
	}
	return hotspots
}

// initCentroids - k-means++: каждый следующий центр выбирается с вероятностью,
// пропорциональной квадрату расстояния до ближайшего уже выбранного
func initCentroids(points []geo.Point, k int, rng *rand.Rand) []geo.Point {
	centroids := make([]geo.Point, 0, k)
	centroids = append(centroids, points[rng.IntN(len(points))])

	dist := make([]float64, len(points))
	for len(centroids) < k {
		var total float64
		for i, p := range points {
			dist[i] = sqDist(p, nearest(p, centroids))
			total += dist[i]
		}
		if total == 0 {
			// Все точки совпадают с центрами
			centroids = append(centroids, points[rng.IntN(len(points))])
			continue
		}
		target := rng.Float64() * total
		chosen := len(points) - 1
		for i, d := range dist {
			target -= d
			if target < 0 {
				chosen = i
				break
			}
		}
		centroids = append(centroids, points[chosen])
	}
	return centroids
}

func assign(points, centroids []geo.Point, labels []int) {
	for i, p := range points {
		best, bestDist := 0, math.Inf(1)
		for c, centroid := range centroids {
			if d := sqDist(p, centroid); d < bestDist {
				best, bestDist = c, d
			}
		}
		labels[i] = best
	}
}

func recompute(points []geo.Point, labels []int, k int) ([]geo.Point, []int) {
	sums := make([]geo.Point, k)
	counts := make([]int, k)
	for i, p := range points {
		c := labels[i]
		sums[c].Lat += p.Lat
		sums[c].Lng += p.Lng
		counts[c]++
	}
	for c := range sums {
		if counts[c] > 0 {
			sums[c].Lat /= float64(counts[c])
			sums[c].Lng /= float64(counts[c])
		}
	}
	return sums, counts
}

// reseedEmpty переносит пустой кластер в точку, наиболее удаленную от центра своего кластера
func reseedEmpty(points []geo.Point, labels []int, centroids []geo.Point, counts []int) {
	for c := range centroids {
		if counts[c] > 0 {
			continue
		}
		far, farDist := -1, -1.0
		for i, p := range points {
			if counts[labels[i]] < 2 {
				continue
			}
			if d := sqDist(p, centroids[labels[i]]); d > farDist {
				far, farDist = i, d
			}
		}
		if far < 0 {
			continue
		}
		counts[labels[far]]--
		labels[far] = c
		counts[c] = 1
		centroids[c] = points[far]
	}
}

func nearest(p geo.Point, centroids []geo.Point) geo.Point {
	best, bestDist := centroids[0], math.Inf(1)
	for _, c := range centroids {
		if d := sqDist(p, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// sqDist - квадрат евклидова расстояния в пространстве (lat, lng)
func sqDist(a, b geo.Point) float64 {
	dLat := a.Lat - b.Lat
	dLng := a.Lng - b.Lng
	return dLat*dLat + dLng*dLng
}
