package topics

import (
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/agenthands/evidence/internal/config"
	"github.com/agenthands/evidence/internal/core/model"
)

// Clusterer groups evidence units by topic: one feature vector per unit
// over the batch keyword vocabulary, clustered with k-means++.
type Clusterer struct {
	Config config.TopicConfig
}

func NewClusterer(cfg config.TopicConfig) *Clusterer {
	return &Clusterer{Config: cfg}
}

// Cluster groups the extractions and fills each one's ClusterUUID in
// place. With NumClusters 0 the cluster count is chosen by the elbow
// method over real WCSS values.
func (c *Clusterer) Cluster(extractions []model.TopicExtractionResult) (*model.TopicClusteringResult, error) {
	result := &model.TopicClusteringResult{Clusters: []model.TopicCluster{}}
	if len(extractions) == 0 {
		return result, nil
	}

	cfg := c.Config // copy per invocation
	vocab, index := buildVocabulary(extractions)
	vectors := make([][]float64, len(extractions))
	for i, ex := range extractions {
		v := make([]float64, len(vocab))
		for _, kw := range ex.Keywords {
			v[index[kw.Keyword]] = kw.Score
		}
		vectors[i] = v
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	run := c.runForBestK(vectors, cfg, rng)

	// Collect members per centroid, preserving input order. A positive
	// similarity threshold cuts loose units too far from their centroid.
	members := make(map[int][]int)
	var unclustered []string
	for i, a := range run.assignments {
		if cfg.SimilarityThreshold > 0 && cosineVec(vectors[i], run.centroids[a]) < cfg.SimilarityThreshold {
			unclustered = append(unclustered, extractions[i].UnitUUID)
			continue
		}
		members[a] = append(members[a], i)
	}
	for ci := 0; ci < len(run.centroids); ci++ {
		idxs := members[ci]
		if len(idxs) < cfg.MinClusterSize {
			for _, i := range idxs {
				unclustered = append(unclustered, extractions[i].UnitUUID)
			}
			continue
		}

		topKeywords := topMemberKeywords(extractions, idxs, 5)
		labelParts := topKeywords
		if len(labelParts) > 3 {
			labelParts = labelParts[:3]
		}

		cluster := model.TopicCluster{
			UUID:      uuid.New().String(),
			Label:     strings.Join(labelParts, ", "),
			Keywords:  topKeywords,
			Centroid:  meanVector(vectors, idxs),
			Coherence: coherence(vectors, idxs),
			Size:      len(idxs),
		}
		for _, i := range idxs {
			cluster.UnitUUIDs = append(cluster.UnitUUIDs, extractions[i].UnitUUID)
			extractions[i].ClusterUUID = cluster.UUID
		}
		result.Clusters = append(result.Clusters, cluster)
	}

	result.UnclusteredUUIDs = unclustered
	result.SilhouetteScore = silhouette(vectors, result.Clusters, extractions)
	return result, nil
}

// runForBestK runs k-means for the configured k, or for k=1..maxClusters
// picking the elbow: the k with the largest second difference of WCSS.
func (c *Clusterer) runForBestK(vectors [][]float64, cfg config.TopicConfig, rng *rand.Rand) kmeansRun {
	if cfg.NumClusters > 0 {
		return kMeans(vectors, cfg.NumClusters, cfg.MaxIterations, cfg.ConvergenceThreshold, rng)
	}

	maxK := cfg.MaxClusters
	if maxK > len(vectors) {
		maxK = len(vectors)
	}

	runs := make([]kmeansRun, maxK+1)
	wcss := make([]float64, maxK+1)
	for k := 1; k <= maxK; k++ {
		runs[k] = kMeans(vectors, k, cfg.MaxIterations, cfg.ConvergenceThreshold, rng)
		wcss[k] = runs[k].wcss
	}

	if maxK <= 2 {
		return runs[maxK]
	}

	bestK := 2
	bestCurve := math.Inf(-1)
	for k := 2; k < maxK; k++ {
		curve := wcss[k-1] - 2*wcss[k] + wcss[k+1]
		if curve > bestCurve {
			bestCurve = curve
			bestK = k
		}
	}
	return runs[bestK]
}

func buildVocabulary(extractions []model.TopicExtractionResult) ([]string, map[string]int) {
	seen := make(map[string]bool)
	var vocab []string
	for _, ex := range extractions {
		for _, kw := range ex.Keywords {
			if !seen[kw.Keyword] {
				seen[kw.Keyword] = true
				vocab = append(vocab, kw.Keyword)
			}
		}
	}
	sort.Strings(vocab)

	index := make(map[string]int, len(vocab))
	for i, term := range vocab {
		index[term] = i
	}
	return vocab, index
}

// topMemberKeywords ranks keywords by how many member units carry them,
// ties broken by total score then alphabetically.
func topMemberKeywords(extractions []model.TopicExtractionResult, idxs []int, n int) []string {
	carriers := make(map[string]int)
	scores := make(map[string]float64)
	for _, i := range idxs {
		for _, kw := range extractions[i].Keywords {
			carriers[kw.Keyword]++
			scores[kw.Keyword] += kw.Score
		}
	}

	terms := make([]string, 0, len(carriers))
	for t := range carriers {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(a, b int) bool {
		if carriers[terms[a]] != carriers[terms[b]] {
			return carriers[terms[a]] > carriers[terms[b]]
		}
		if scores[terms[a]] != scores[terms[b]] {
			return scores[terms[a]] > scores[terms[b]]
		}
		return terms[a] < terms[b]
	})

	if len(terms) > n {
		terms = terms[:n]
	}
	return terms
}

func meanVector(vectors [][]float64, idxs []int) []float64 {
	mean := make([]float64, len(vectors[idxs[0]]))
	for _, i := range idxs {
		for d, v := range vectors[i] {
			mean[d] += v
		}
	}
	for d := range mean {
		mean[d] /= float64(len(idxs))
	}
	return mean
}

// coherence is the mean pairwise cosine similarity of the members' raw
// feature vectors. Single-member clusters are perfectly coherent.
func coherence(vectors [][]float64, idxs []int) float64 {
	if len(idxs) < 2 {
		return 1.0
	}
	sum := 0.0
	pairs := 0
	for i := 0; i < len(idxs); i++ {
		for j := i + 1; j < len(idxs); j++ {
			sum += cosineVec(vectors[idxs[i]], vectors[idxs[j]])
			pairs++
		}
	}
	return sum / float64(pairs)
}

// silhouette computes the global mean silhouette over units in surviving
// clusters: intra-cluster mean distance vs the nearest other cluster's
// mean distance. Diagnostic only.
func silhouette(vectors [][]float64, clusters []model.TopicCluster, extractions []model.TopicExtractionResult) float64 {
	if len(clusters) < 2 {
		return 0
	}

	// Recover member indices per surviving cluster from the extractions.
	clusterIdx := make(map[string][]int)
	for i, ex := range extractions {
		if ex.ClusterUUID != "" {
			clusterIdx[ex.ClusterUUID] = append(clusterIdx[ex.ClusterUUID], i)
		}
	}

	sum := 0.0
	count := 0
	for cid, own := range clusterIdx {
		for _, i := range own {
			if len(own) < 2 {
				count++ // silhouette of a lone point is 0
				continue
			}

			a := 0.0
			for _, j := range own {
				if j != i {
					a += euclidean(vectors[i], vectors[j])
				}
			}
			a /= float64(len(own) - 1)

			b := math.Inf(1)
			for otherID, others := range clusterIdx {
				if otherID == cid {
					continue
				}
				d := 0.0
				for _, j := range others {
					d += euclidean(vectors[i], vectors[j])
				}
				d /= float64(len(others))
				if d < b {
					b = d
				}
			}

			if m := math.Max(a, b); m > 0 {
				sum += (b - a) / m
			}
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func cosineVec(a, b []float64) float64 {
	dot, na, nb := 0.0, 0.0, 0.0
	for d := range a {
		dot += a[d] * b[d]
		na += a[d] * a[d]
		nb += b[d] * b[d]
	}
	if na == 0 && nb == 0 {
		return 1.0
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func sqDist(a, b []float64) float64 {
	sum := 0.0
	for d := range a {
		diff := a[d] - b[d]
		sum += diff * diff
	}
	return sum
}

func euclidean(a, b []float64) float64 {
	return math.Sqrt(sqDist(a, b))
}

func cloneVec(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
