package topics

import "math/rand"

type kmeansRun struct {
	centroids   [][]float64
	assignments []int
	wcss        float64
}

// kMeans runs Lloyd's algorithm with k-means++ seeding until the average
// centroid shift drops below the convergence threshold or maxIter passes.
func kMeans(vectors [][]float64, k, maxIter int, convergence float64, rng *rand.Rand) kmeansRun {
	n := len(vectors)
	if k > n {
		k = n
	}

	centroids := seedPlusPlus(vectors, k, rng)
	assignments := make([]int, n)

	for iter := 0; iter < maxIter; iter++ {
		for i, v := range vectors {
			assignments[i] = nearestCentroid(v, centroids)
		}

		next := recomputeCentroids(vectors, assignments, centroids)
		shift := 0.0
		for c := range centroids {
			shift += euclidean(centroids[c], next[c])
		}
		shift /= float64(len(centroids))
		centroids = next

		if shift < convergence {
			break
		}
	}

	wcss := 0.0
	for i, v := range vectors {
		assignments[i] = nearestCentroid(v, centroids)
		wcss += sqDist(v, centroids[assignments[i]])
	}

	return kmeansRun{centroids: centroids, assignments: assignments, wcss: wcss}
}

// seedPlusPlus picks the first centroid uniformly and each subsequent one
// with probability proportional to squared distance to the nearest chosen
// centroid.
func seedPlusPlus(vectors [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, cloneVec(vectors[rng.Intn(len(vectors))]))

	for len(centroids) < k {
		dists := make([]float64, len(vectors))
		total := 0.0
		for i, v := range vectors {
			best := sqDist(v, centroids[0])
			for _, c := range centroids[1:] {
				if d := sqDist(v, c); d < best {
					best = d
				}
			}
			dists[i] = best
			total += best
		}

		idx := len(vectors) - 1
		if total == 0 {
			idx = rng.Intn(len(vectors))
		} else {
			r := rng.Float64() * total
			cum := 0.0
			for i, d := range dists {
				cum += d
				if cum >= r {
					idx = i
					break
				}
			}
		}
		centroids = append(centroids, cloneVec(vectors[idx]))
	}
	return centroids
}

// recomputeCentroids returns the member means; a cluster that lost all its
// members keeps its previous centroid.
func recomputeCentroids(vectors [][]float64, assignments []int, prev [][]float64) [][]float64 {
	dims := len(vectors[0])
	sums := make([][]float64, len(prev))
	counts := make([]int, len(prev))
	for c := range sums {
		sums[c] = make([]float64, dims)
	}
	for i, v := range vectors {
		c := assignments[i]
		counts[c]++
		for d, val := range v {
			sums[c][d] += val
		}
	}

	next := make([][]float64, len(prev))
	for c := range prev {
		if counts[c] == 0 {
			next[c] = cloneVec(prev[c])
			continue
		}
		next[c] = sums[c]
		for d := range next[c] {
			next[c][d] /= float64(counts[c])
		}
	}
	return next
}

func nearestCentroid(v []float64, centroids [][]float64) int {
	best := 0
	bestDist := sqDist(v, centroids[0])
	for c := 1; c < len(centroids); c++ {
		if d := sqDist(v, centroids[c]); d < bestDist {
			best = c
			bestDist = d
		}
	}
	return best
}
