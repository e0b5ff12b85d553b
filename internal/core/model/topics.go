package model

// Keyword is one ranked term from the TF-IDF extractor.
type Keyword struct {
	Keyword    string  `json:"keyword"`
	Score      float64 `json:"score"` // tf-idf
	Frequency  int     `json:"frequency"`
	Positions  []int   `json:"positions"`
	Confidence float64 `json:"confidence"`
}

type TopicExtractionResult struct {
	UnitUUID    string    `json:"unit_uuid"`
	Keywords    []Keyword `json:"keywords"`
	ClusterUUID string    `json:"cluster_uuid,omitempty"`
	Confidence  float64   `json:"confidence"`
}

// TopicCluster lives only for the clustering run that produced it; it is
// never persisted independently.
type TopicCluster struct {
	UUID      string    `json:"uuid"`
	Label     string    `json:"label"`
	Keywords  []string  `json:"keywords"`
	UnitUUIDs []string  `json:"unit_uuids"`
	Centroid  []float64 `json:"centroid"`
	Coherence float64   `json:"coherence"`
	Size      int       `json:"size"`
}

type TopicClusteringResult struct {
	Clusters         []TopicCluster `json:"clusters"`
	UnclusteredUUIDs []string       `json:"unclustered_uuids,omitempty"`
	SilhouetteScore  float64        `json:"silhouette_score"`
}
