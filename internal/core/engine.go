package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agenthands/evidence/internal/config"
	"github.com/agenthands/evidence/internal/core/common"
	"github.com/agenthands/evidence/internal/core/dedupe"
	"github.com/agenthands/evidence/internal/core/keywords"
	"github.com/agenthands/evidence/internal/core/model"
	"github.com/agenthands/evidence/internal/core/similarity"
	"github.com/agenthands/evidence/internal/core/topics"
	"github.com/agenthands/evidence/internal/core/unitizer"
	"github.com/agenthands/evidence/internal/store"
)

// Engine runs the full evidence pipeline for one source:
// unitize -> quality filter -> deduplicate -> keywords -> topic clustering
// -> persist. All stages are pure CPU work; the store is the only I/O.
type Engine struct {
	Store        store.Store
	Unitizer     *unitizer.Unitizer
	Similarity   *similarity.Service
	Deduplicator *dedupe.Deduplicator
	Keywords     *keywords.Extractor
	Topics       *topics.Clusterer
	Config       config.EngineConfig
}

func NewEngine(st store.Store, cfg config.EngineConfig) *Engine {
	return &Engine{
		Store:        st,
		Unitizer:     unitizer.NewUnitizer(cfg.Unitizer),
		Similarity:   similarity.NewService(cfg.Similarity),
		Deduplicator: dedupe.NewDeduplicator(cfg.Dedupe, cfg.Similarity),
		Keywords:     keywords.NewExtractor(cfg.Keywords),
		Topics:       topics.NewClusterer(cfg.Topics),
		Config:       cfg,
	}
}

// minimum words for a unit to carry usable evidence
const minUnitWords = 3

// ProcessSource runs the pipeline over one source text and persists the
// surviving units. Per-unit rejections are reported, not fatal.
func (e *Engine) ProcessSource(ctx context.Context, name, text string) (*model.PipelineResult, error) {
	norm := unitizer.Normalize(text)
	if norm == "" {
		return nil, fmt.Errorf("source %q has no usable text", name)
	}

	src := model.Source{
		UUID:      uuid.New().String(),
		Name:      name,
		Text:      norm,
		CreatedAt: time.Now().UTC(),
	}

	textUnits := e.Unitizer.Unitize(text)
	if v := e.Unitizer.Validate(textUnits, len(norm)); !v.Valid {
		return nil, fmt.Errorf("unitizer invariant violated for source %q: %s", name, strings.Join(v.Errors, "; "))
	}

	units, rejected := e.buildEvidenceUnits(src.UUID, textUnits)

	dedupRes, err := e.Deduplicator.Deduplicate(units)
	if err != nil {
		return nil, fmt.Errorf("deduplication failed: %w", err)
	}

	extractions := e.Keywords.ExtractForUnits(dedupRes.Deduplicated)

	var topicRes *model.TopicClusteringResult
	if e.Config.Topics.ClusteringEnabled {
		topicRes, err = e.Topics.Cluster(extractions)
		if err != nil {
			return nil, fmt.Errorf("topic clustering failed: %w", err)
		}
	}
	e.tagUnits(dedupRes.Deduplicated, extractions, topicRes)

	if e.Store != nil {
		if err := e.Store.SaveSource(ctx, src); err != nil {
			return nil, fmt.Errorf("failed to save source: %w", err)
		}
		if err := e.Store.SaveUnits(ctx, dedupRes.Deduplicated); err != nil {
			return nil, fmt.Errorf("failed to save units: %w", err)
		}
	}

	return &model.PipelineResult{
		Source:            src,
		Units:             dedupRes.Deduplicated,
		Rejected:          rejected,
		DuplicateClusters: dedupRes.DuplicateClusters,
		Statistics:        dedupRes.Statistics,
		Topics:            topicRes,
	}, nil
}

// buildEvidenceUnits turns text units into evidence units with a quality
// heuristic from word count and boundary completeness. Units too short to
// carry evidence are rejected, not dropped silently.
func (e *Engine) buildEvidenceUnits(sourceUUID string, textUnits []model.TextUnit) ([]model.EvidenceUnit, []model.RejectedUnit) {
	var units []model.EvidenceUnit
	var rejected []model.RejectedUnit

	now := time.Now().UTC()
	for _, tu := range textUnits {
		if tu.WordCount < minUnitWords {
			rejected = append(rejected, model.RejectedUnit{
				Snippet:    tu.Snippet,
				StartIndex: tu.StartIndex,
				Reason:     fmt.Sprintf("too few words (%d < %d)", tu.WordCount, minUnitWords),
			})
			continue
		}

		quality := 0.3 + 0.3*common.Clamp01(float64(tu.WordCount)/40)
		if tu.HasCompleteStart {
			quality += 0.2
		}
		if tu.HasCompleteEnd {
			quality += 0.2
		}
		quality = common.Clamp01(quality)

		confidence := 0.4 + 0.3*common.Clamp01(float64(tu.SentenceCount)/3)
		if tu.HasCompleteStart && tu.HasCompleteEnd {
			confidence += 0.3
		}
		confidence = common.Clamp01(confidence)

		units = append(units, model.EvidenceUnit{
			UUID:         uuid.New().String(),
			SourceUUID:   sourceUUID,
			Snippet:      tu.Snippet,
			StartIndex:   tu.StartIndex,
			EndIndex:     tu.EndIndex,
			QualityScore: &quality,
			Confidence:   &confidence,
			CreatedAt:    now,
		})
	}
	return units, rejected
}

// tagUnits writes topics and extraction confidence back onto the units:
// clustered units get their cluster's label keywords, unclustered ones
// fall back to their own top keywords.
func (e *Engine) tagUnits(units []model.EvidenceUnit, extractions []model.TopicExtractionResult, topicRes *model.TopicClusteringResult) {
	exByUnit := make(map[string]*model.TopicExtractionResult, len(extractions))
	for i := range extractions {
		exByUnit[extractions[i].UnitUUID] = &extractions[i]
	}

	clusterByUUID := make(map[string]*model.TopicCluster)
	if topicRes != nil {
		for i := range topicRes.Clusters {
			clusterByUUID[topicRes.Clusters[i].UUID] = &topicRes.Clusters[i]
		}
	}

	perUnit := e.Config.Topics.TopicsPerUnit
	for i := range units {
		u := &units[i]
		ex, ok := exByUnit[u.UUID]
		if !ok {
			continue
		}
		if u.Metadata == nil {
			u.Metadata = make(map[string]interface{})
		}

		if cluster, ok := clusterByUUID[ex.ClusterUUID]; ok {
			u.Topics = topicLabelTerms(cluster, perUnit)
			u.Metadata["clusterUUID"] = cluster.UUID
		} else {
			for j, kw := range ex.Keywords {
				if j == perUnit {
					break
				}
				u.Topics = append(u.Topics, kw.Keyword)
			}
		}

		// The unit's own Confidence keeps the quality heuristic; the
		// extraction confidence rides alongside as metadata.
		u.Metadata["extractionConfidence"] = ex.Confidence
	}
}

func topicLabelTerms(cluster *model.TopicCluster, n int) []string {
	terms := cluster.Keywords
	if len(terms) > n {
		terms = terms[:n]
	}
	out := make([]string, len(terms))
	copy(out, terms)
	return out
}
