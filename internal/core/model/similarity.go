package model

// SimilarityResult carries the four component scores plus the weighted
// composite for one pair of texts.
type SimilarityResult struct {
	CosineSimilarity  float64 `json:"cosine_similarity"`
	JaccardSimilarity float64 `json:"jaccard_similarity"`
	MinHashSimilarity float64 `json:"minhash_similarity"`
	SimHashSimilarity float64 `json:"simhash_similarity"`
	OverallSimilarity float64 `json:"overall_similarity"`
	IsDuplicate       bool    `json:"is_duplicate"`
}

// DuplicateCluster groups transitively-similar units around one
// representative. Members always has >= 2 entries.
type DuplicateCluster struct {
	Representative    EvidenceUnit   `json:"representative"`
	Members           []EvidenceUnit `json:"members"`
	AverageSimilarity float64        `json:"average_similarity"`
	Reason            string         `json:"reason"`
}

type DeduplicationStatistics struct {
	TotalUnits        int   `json:"total_units"`
	UniqueUnits       int   `json:"unique_units"`
	DuplicatesRemoved int   `json:"duplicates_removed"`
	ClustersFound     int   `json:"clusters_found"`
	ProcessingTimeMs  int64 `json:"processing_time_ms"`
}

type DeduplicationResult struct {
	Deduplicated      []EvidenceUnit          `json:"deduplicated"`
	DuplicateClusters []DuplicateCluster      `json:"duplicate_clusters"`
	Statistics        DeduplicationStatistics `json:"statistics"`
}
