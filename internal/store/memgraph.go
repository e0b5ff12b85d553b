package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/agenthands/evidence/internal/core/model"
)

// MemgraphStore persists sources and evidence units in Memgraph via the
// Bolt protocol.
type MemgraphStore struct {
	Driver neo4j.DriverWithContext
}

func NewMemgraphStore(uri, username, password string) (*MemgraphStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}

	if err := driver.VerifyConnectivity(context.Background()); err != nil {
		return nil, err
	}

	log.Println("Connected to Memgraph")
	return &MemgraphStore{Driver: driver}, nil
}

func (s *MemgraphStore) Close(ctx context.Context) error {
	return s.Driver.Close(ctx)
}

func (s *MemgraphStore) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, s.Driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return neo4j.EagerResult{}, fmt.Errorf("failed to execute query: %w", err)
	}
	return *result, nil
}

func (s *MemgraphStore) BuildIndices(ctx context.Context) error {
	queries := []string{
		"CREATE INDEX ON :Source(uuid);",
		"CREATE INDEX ON :EvidenceUnit(uuid);",
		"CREATE INDEX ON :EvidenceUnit(source_uuid);",
	}

	for _, q := range queries {
		if _, err := s.ExecuteQuery(ctx, q, nil); err != nil {
			// Index might already exist
			log.Printf("Warning: failed to create index '%s': %v", q, err)
		}
	}
	return nil
}

func (s *MemgraphStore) SaveSource(ctx context.Context, source model.Source) error {
	params := map[string]interface{}{
		"uuid":       source.UUID,
		"name":       source.Name,
		"text":       source.Text,
		"created_at": source.CreatedAt,
	}
	_, err := s.ExecuteQuery(ctx, SaveSourceQuery, params)
	if err != nil {
		return fmt.Errorf("failed to save source: %w", err)
	}
	return nil
}

func (s *MemgraphStore) SaveUnits(ctx context.Context, units []model.EvidenceUnit) error {
	for _, u := range units {
		metadata := "{}"
		if u.Metadata != nil {
			data, err := json.Marshal(u.Metadata)
			if err != nil {
				return fmt.Errorf("failed to marshal metadata for unit %s: %w", u.UUID, err)
			}
			metadata = string(data)
		}

		params := map[string]interface{}{
			"uuid":          u.UUID,
			"source_uuid":   u.SourceUUID,
			"snippet":       u.Snippet,
			"start_index":   u.StartIndex,
			"end_index":     u.EndIndex,
			"quality_score": nilable(u.QualityScore),
			"confidence":    nilable(u.Confidence),
			"topics":        u.Topics,
			"metadata":      metadata,
			"created_at":    u.CreatedAt,
		}
		if _, err := s.ExecuteQuery(ctx, SaveEvidenceUnitQuery, params); err != nil {
			return fmt.Errorf("failed to save unit %s: %w", u.UUID, err)
		}
	}
	return nil
}

func (s *MemgraphStore) GetSource(ctx context.Context, uuid string) (*model.Source, error) {
	res, err := s.ExecuteQuery(ctx, GetSourceQuery, map[string]interface{}{"uuid": uuid})
	if err != nil {
		return nil, err
	}
	if len(res.Records) == 0 {
		return nil, fmt.Errorf("source %s not found", uuid)
	}

	rec := res.Records[0]
	src := &model.Source{UUID: uuid}
	if name, ok := rec.Get("name"); ok && name != nil {
		src.Name = name.(string)
	}
	if text, ok := rec.Get("text"); ok && text != nil {
		src.Text = text.(string)
	}
	return src, nil
}

func (s *MemgraphStore) GetUnitsBySource(ctx context.Context, sourceUUID string) ([]model.EvidenceUnit, error) {
	res, err := s.ExecuteQuery(ctx, GetUnitsBySourceQuery, map[string]interface{}{"source_uuid": sourceUUID})
	if err != nil {
		return nil, err
	}

	var units []model.EvidenceUnit
	for _, rec := range res.Records {
		u := model.EvidenceUnit{SourceUUID: sourceUUID}
		if v, ok := rec.Get("uuid"); ok && v != nil {
			u.UUID = v.(string)
		}
		if v, ok := rec.Get("snippet"); ok && v != nil {
			u.Snippet = v.(string)
		}
		if v, ok := rec.Get("start_index"); ok && v != nil {
			u.StartIndex = int(v.(int64))
		}
		if v, ok := rec.Get("end_index"); ok && v != nil {
			u.EndIndex = int(v.(int64))
		}
		if v, ok := rec.Get("quality_score"); ok && v != nil {
			q := v.(float64)
			u.QualityScore = &q
		}
		if v, ok := rec.Get("confidence"); ok && v != nil {
			c := v.(float64)
			u.Confidence = &c
		}
		if v, ok := rec.Get("topics"); ok && v != nil {
			if list, isList := v.([]interface{}); isList {
				for _, t := range list {
					if topic, isStr := t.(string); isStr {
						u.Topics = append(u.Topics, topic)
					}
				}
			}
		}
		if v, ok := rec.Get("metadata"); ok && v != nil {
			if raw, isStr := v.(string); isStr && raw != "" && raw != "{}" {
				var meta map[string]interface{}
				if err := json.Unmarshal([]byte(raw), &meta); err == nil {
					u.Metadata = meta
				}
			}
		}
		units = append(units, u)
	}
	return units, nil
}

func nilable(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
