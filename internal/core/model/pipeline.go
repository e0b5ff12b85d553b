package model

// RejectedUnit records a unit excluded during a batch run. Per-unit
// failures never abort the batch; they surface here instead.
type RejectedUnit struct {
	Snippet    string `json:"snippet"`
	StartIndex int    `json:"start_index"`
	Reason     string `json:"reason"`
}

// PipelineResult is the full output of one ProcessSource run: the stored
// units plus the read-only summaries consumed by reporting/ops.
type PipelineResult struct {
	Source            Source                  `json:"source"`
	Units             []EvidenceUnit          `json:"units"`
	Rejected          []RejectedUnit          `json:"rejected,omitempty"`
	DuplicateClusters []DuplicateCluster      `json:"duplicate_clusters,omitempty"`
	Statistics        DeduplicationStatistics `json:"statistics"`
	Topics            *TopicClusteringResult  `json:"topics,omitempty"`
}
