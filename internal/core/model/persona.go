package model

// Persona is the LLM-generated profile assembled from deduplicated,
// topic-tagged evidence units. Traits cite the unit UUIDs they rest on.
type Persona struct {
	Name    string         `json:"name"`
	Summary string         `json:"summary"`
	Traits  []PersonaTrait `json:"traits"`
}

type PersonaTrait struct {
	Trait         string   `json:"trait"`
	EvidenceUUIDs []string `json:"evidence_uuids"`
}
