package persona

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/evidence/internal/core/common"
	"github.com/agenthands/evidence/internal/core/model"
	"github.com/agenthands/evidence/internal/llm"
)

// Generator assembles a cited persona from deduplicated, topic-tagged
// evidence units via an LLM.
type Generator struct {
	LLM llm.LLMClient
}

func NewGenerator(llmClient llm.LLMClient) *Generator {
	return &Generator{LLM: llmClient}
}

func (g *Generator) Generate(ctx context.Context, name string, units []model.EvidenceUnit) (*model.Persona, error) {
	if len(units) == 0 {
		return nil, fmt.Errorf("no evidence units to build persona %q from", name)
	}

	var evidence strings.Builder
	for _, u := range units {
		topics := strings.Join(u.Topics, ", ")
		if topics == "" {
			topics = "untagged"
		}
		fmt.Fprintf(&evidence, "- UUID: %s | Topics: %s | %s\n", u.UUID, topics, u.Snippet)
	}

	prompt := fmt.Sprintf(`
<EVIDENCE UNITS>
%s</EVIDENCE UNITS>

Instructions:
Build a persona named %q from the evidence units above.
Return a JSON object with keys "name", "summary", and "traits".
Each trait must have "trait" (a short statement) and "evidence_uuids"
(the UUIDs of the units supporting it). Only cite UUIDs that appear above.

Example JSON:
{
  "name": "%s",
  "summary": "A short profile grounded in the evidence.",
  "traits": [
    {"trait": "Prefers working early mornings", "evidence_uuids": ["uuid-1", "uuid-2"]}
  ]
}
`, evidence.String(), name, name)

	response, err := g.LLM.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate persona: %w", err)
	}

	result, err := common.ParseJSON[model.Persona](response)
	if err != nil {
		return nil, fmt.Errorf("failed to parse persona result: %w", err)
	}

	// Drop citations of units we never offered.
	known := make(map[string]bool, len(units))
	for _, u := range units {
		known[u.UUID] = true
	}
	for i := range result.Traits {
		var kept []string
		for _, id := range result.Traits[i].EvidenceUUIDs {
			if known[id] {
				kept = append(kept, id)
			}
		}
		result.Traits[i].EvidenceUUIDs = kept
	}

	if result.Name == "" {
		result.Name = name
	}
	return &result, nil
}
