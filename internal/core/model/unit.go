package model

import "time"

// EvidenceUnit is a quality-scored snippet extracted from a source text.
// Offsets are byte offsets into the normalized source text, [start,end).
type EvidenceUnit struct {
	UUID         string                 `json:"uuid"`
	SourceUUID   string                 `json:"source_uuid"`
	Snippet      string                 `json:"snippet"`
	StartIndex   int                    `json:"start_index"`
	EndIndex     int                    `json:"end_index"`
	QualityScore *float64               `json:"quality_score,omitempty"`
	Confidence   *float64               `json:"confidence,omitempty"`
	Topics       []string               `json:"topics,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// TextUnit is the pre-persistence output of the unitizer. Units from one
// Unitize call tile the source text with no gaps and bounded overlap.
type TextUnit struct {
	Snippet          string `json:"snippet"`
	StartIndex       int    `json:"start_index"`
	EndIndex         int    `json:"end_index"`
	WordCount        int    `json:"word_count"`
	SentenceCount    int    `json:"sentence_count"`
	HasCompleteStart bool   `json:"has_complete_start"`
	HasCompleteEnd   bool   `json:"has_complete_end"`
}

type Source struct {
	UUID      string    `json:"uuid"`
	Name      string    `json:"name"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// UnitValidation is the report produced by Unitizer.Validate. Bound
// violations are errors, undersize units are only warnings.
type UnitValidation struct {
	Valid         bool     `json:"valid"`
	Errors        []string `json:"errors,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
	AverageSize   float64  `json:"average_size"`
	MinSize       int      `json:"min_size"`
	MaxSize       int      `json:"max_size"`
	CoverageRatio float64  `json:"coverage_ratio"`
	OverlapRatio  float64  `json:"overlap_ratio"`
}
