package dedupe

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agenthands/evidence/internal/config"
	"github.com/agenthands/evidence/internal/core/model"
	"github.com/agenthands/evidence/internal/core/similarity"
)

// ErrEmptyCluster means representative selection was invoked on zero
// members. That is a programming-logic fault, not a user error.
var ErrEmptyCluster = errors.New("empty cluster")

const (
	// Prefiltering only pays off above this unit count.
	prefilterMinUnits = 100
	// Fixed SimHash threshold for the cheap bucketing pass.
	prefilterThreshold = 0.7
)

// Deduplicator groups similar evidence units via union-find over the
// pairwise similarity matrix and keeps one representative per group.
type Deduplicator struct {
	cfg    config.DedupeConfig
	simCfg config.SimilarityConfig
	sim    *similarity.Service
}

func NewDeduplicator(cfg config.DedupeConfig, simCfg config.SimilarityConfig) *Deduplicator {
	return &Deduplicator{
		cfg:    cfg,
		simCfg: simCfg,
		sim:    similarity.NewService(simCfg),
	}
}

// ConfigPatch is a partial configuration for UpdateConfig; nil fields keep
// their current values.
type ConfigPatch struct {
	Strategy                  *string  `json:"strategy,omitempty"`
	PreserveExactDuplicates   *bool    `json:"preserve_exact_duplicates,omitempty"`
	MaxClusterSize            *int     `json:"max_cluster_size,omitempty"`
	UseFastPrefiltering       *bool    `json:"use_fast_prefiltering,omitempty"`
	CosineSimilarityThreshold *float64 `json:"cosine_similarity_threshold,omitempty"`
	ShingleSize               *int     `json:"shingle_size,omitempty"`
	MinHashSignatureLength    *int     `json:"minhash_signature_length,omitempty"`
	SimHashDimensions         *int     `json:"simhash_dimensions,omitempty"`
}

// UpdateConfig shallow-merges the patch into the active configuration.
// Out-of-range values are rejected here, before they can skew any scores.
// In-flight calls are unaffected; only subsequent calls see the change.
func (d *Deduplicator) UpdateConfig(patch ConfigPatch) error {
	cfg := d.cfg
	simCfg := d.simCfg

	if patch.Strategy != nil {
		cfg.Strategy = *patch.Strategy
	}
	if patch.PreserveExactDuplicates != nil {
		cfg.PreserveExactDuplicates = *patch.PreserveExactDuplicates
	}
	if patch.MaxClusterSize != nil {
		cfg.MaxClusterSize = *patch.MaxClusterSize
	}
	if patch.UseFastPrefiltering != nil {
		cfg.UseFastPrefiltering = *patch.UseFastPrefiltering
	}
	if patch.CosineSimilarityThreshold != nil {
		simCfg.CosineSimilarityThreshold = *patch.CosineSimilarityThreshold
	}
	if patch.ShingleSize != nil {
		simCfg.ShingleSize = *patch.ShingleSize
	}
	if patch.MinHashSignatureLength != nil {
		simCfg.MinHashSignatureLength = *patch.MinHashSignatureLength
	}
	if patch.SimHashDimensions != nil {
		simCfg.SimHashDimensions = *patch.SimHashDimensions
	}

	check := config.Default()
	check.Engine.Dedupe = cfg
	check.Engine.Similarity = simCfg
	if err := check.Validate(); err != nil {
		return err
	}

	d.cfg = cfg
	d.simCfg = simCfg
	d.sim = similarity.NewService(simCfg)
	return nil
}

// Deduplicate clusters the units and returns one representative per
// cluster plus the multi-member clusters and run statistics.
func (d *Deduplicator) Deduplicate(units []model.EvidenceUnit) (*model.DeduplicationResult, error) {
	start := time.Now()

	// Copy config at call start; mid-call updates must not affect us.
	cfg := d.cfg
	sim := d.sim
	threshold := d.simCfg.CosineSimilarityThreshold

	result := &model.DeduplicationResult{
		Deduplicated:      []model.EvidenceUnit{},
		DuplicateClusters: []model.DuplicateCluster{},
	}
	n := len(units)
	if n == 0 {
		result.Statistics.ProcessingTimeMs = time.Since(start).Milliseconds()
		return result, nil
	}

	texts := make([]string, n)
	for i, u := range units {
		texts[i] = u.Snippet
	}

	var groups [][]int
	if cfg.UseFastPrefiltering && n > prefilterMinUnits {
		groups = d.prefilterBuckets(texts)
	} else {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		groups = [][]int{all}
	}

	uf := newUnionFind(n)
	scores := make(map[[2]int]float64)

	pairScore := func(a, b int) float64 {
		key := pairKey(a, b)
		s, ok := scores[key]
		if !ok {
			s = sim.CalculateSimilarity(texts[a], texts[b]).OverallSimilarity
			scores[key] = s
		}
		return s
	}

	tryUnion := func(a, b int, s float64) {
		if s < threshold {
			return
		}
		if cfg.PreserveExactDuplicates && strings.TrimSpace(texts[a]) == strings.TrimSpace(texts[b]) {
			return
		}
		if cfg.MaxClusterSize > 0 && uf.find(a) != uf.find(b) &&
			uf.componentSize(a)+uf.componentSize(b) > cfg.MaxClusterSize {
			return
		}
		uf.union(a, b)
	}

	for _, group := range groups {
		groupTexts := make([]string, len(group))
		for gi, idx := range group {
			groupTexts[gi] = texts[idx]
		}
		matrix := sim.CalculateSimilarityMatrix(groupTexts)
		for gi := 0; gi < len(group); gi++ {
			for gj := gi + 1; gj < len(group); gj++ {
				a, b := group[gi], group[gj]
				scores[pairKey(a, b)] = matrix[gi][gj]
				tryUnion(a, b, matrix[gi][gj])
			}
		}
	}

	// Anchor pass between adjacent buckets so near-boundary duplicates can
	// still merge buckets the cheap prefilter separated.
	for g := 0; g+1 < len(groups); g++ {
		a, b := groups[g][0], groups[g+1][0]
		tryUnion(a, b, pairScore(a, b))
	}

	// Group members by root, in first-seen input order.
	clusterOf := make(map[int][]int)
	var roots []int
	for i := 0; i < n; i++ {
		root := uf.find(i)
		if _, seen := clusterOf[root]; !seen {
			roots = append(roots, root)
		}
		clusterOf[root] = append(clusterOf[root], i)
	}

	for _, root := range roots {
		memberIdx := clusterOf[root]
		members := make([]model.EvidenceUnit, len(memberIdx))
		for i, idx := range memberIdx {
			members[i] = units[idx]
		}

		rep, err := d.selectRepresentative(members, cfg.Strategy)
		if err != nil {
			return nil, err
		}
		result.Deduplicated = append(result.Deduplicated, rep)

		if len(members) > 1 {
			sum := 0.0
			pairs := 0
			for i := 0; i < len(memberIdx); i++ {
				for j := i + 1; j < len(memberIdx); j++ {
					sum += pairScore(memberIdx[i], memberIdx[j])
					pairs++
				}
			}
			result.DuplicateClusters = append(result.DuplicateClusters, model.DuplicateCluster{
				Representative:    rep,
				Members:           members,
				AverageSimilarity: sum / float64(pairs),
				Reason:            fmt.Sprintf("Similarity threshold %g", threshold),
			})
		}
	}

	result.Statistics = model.DeduplicationStatistics{
		TotalUnits:        n,
		UniqueUnits:       len(result.Deduplicated),
		DuplicatesRemoved: n - len(result.Deduplicated),
		ClustersFound:     len(result.DuplicateClusters),
		ProcessingTimeMs:  time.Since(start).Milliseconds(),
	}
	return result, nil
}

// prefilterBuckets groups unit indices by a cheap SimHash check against
// each bucket's first member. Later pairwise comparison runs per bucket.
func (d *Deduplicator) prefilterBuckets(texts []string) [][]int {
	fingerprints := make([]string, len(texts))
	for i, t := range texts {
		fingerprints[i] = d.sim.SimHash(t)
	}

	var buckets [][]int
	for i := range texts {
		placed := false
		for bi, bucket := range buckets {
			sim, err := similarity.SimHashSimilarity(fingerprints[i], fingerprints[bucket[0]])
			if err == nil && sim >= prefilterThreshold {
				buckets[bi] = append(bucket, i)
				placed = true
				break
			}
		}
		if !placed {
			buckets = append(buckets, []int{i})
		}
	}
	return buckets
}

func (d *Deduplicator) selectRepresentative(members []model.EvidenceUnit, strategy string) (model.EvidenceUnit, error) {
	if len(members) == 0 {
		return model.EvidenceUnit{}, ErrEmptyCluster
	}

	switch strategy {
	case "keep_longest":
		best := members[0]
		for _, m := range members[1:] {
			if len(m.Snippet) > len(best.Snippet) {
				best = m
			}
		}
		return best, nil

	case "keep_first":
		return members[0], nil

	case "merge":
		return d.mergeUnits(members), nil

	default: // keep_highest_quality
		best := members[0]
		bestScore := qualitySum(best)
		for _, m := range members[1:] {
			if s := qualitySum(m); s > bestScore {
				best = m
				bestScore = s
			}
		}
		return best, nil
	}
}

func qualitySum(u model.EvidenceUnit) float64 {
	s := 0.0
	if u.QualityScore != nil {
		s += *u.QualityScore
	}
	if u.Confidence != nil {
		s += *u.Confidence
	}
	return s
}

// mergeUnits synthesizes one unit: the longest snippet as base, mean
// quality/confidence over members that define them, topic set union, and
// mergedFrom/mergedCount metadata.
func (d *Deduplicator) mergeUnits(members []model.EvidenceUnit) model.EvidenceUnit {
	base := members[0]
	for _, m := range members[1:] {
		if len(m.Snippet) > len(base.Snippet) {
			base = m
		}
	}

	var qSum, cSum float64
	var qCount, cCount int
	var topics []string
	seenTopic := make(map[string]bool)
	ids := make([]string, len(members))

	for i, m := range members {
		ids[i] = m.UUID
		if m.QualityScore != nil {
			qSum += *m.QualityScore
			qCount++
		}
		if m.Confidence != nil {
			cSum += *m.Confidence
			cCount++
		}
		for _, t := range m.Topics {
			if !seenTopic[t] {
				seenTopic[t] = true
				topics = append(topics, t)
			}
		}
	}

	metadata := make(map[string]interface{}, len(base.Metadata)+2)
	for k, v := range base.Metadata {
		metadata[k] = v
	}
	metadata["mergedFrom"] = ids
	metadata["mergedCount"] = len(members)

	merged := model.EvidenceUnit{
		UUID:       uuid.New().String(),
		SourceUUID: base.SourceUUID,
		Snippet:    base.Snippet,
		StartIndex: base.StartIndex,
		EndIndex:   base.EndIndex,
		Topics:     topics,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	}
	if qCount > 0 {
		q := qSum / float64(qCount)
		merged.QualityScore = &q
	}
	if cCount > 0 {
		c := cSum / float64(cCount)
		merged.Confidence = &c
	}
	return merged
}

// FindExactDuplicates groups units by exact (trimmed) snippet equality.
func (d *Deduplicator) FindExactDuplicates(units []model.EvidenceUnit) ([]model.DuplicateCluster, error) {
	byText := make(map[string][]model.EvidenceUnit)
	var order []string
	for _, u := range units {
		key := strings.TrimSpace(u.Snippet)
		if _, seen := byText[key]; !seen {
			order = append(order, key)
		}
		byText[key] = append(byText[key], u)
	}

	var clusters []model.DuplicateCluster
	for _, key := range order {
		members := byText[key]
		if len(members) < 2 {
			continue
		}
		rep, err := d.selectRepresentative(members, d.cfg.Strategy)
		if err != nil {
			return nil, err
		}
		clusters = append(clusters, model.DuplicateCluster{
			Representative:    rep,
			Members:           members,
			AverageSimilarity: 1.0,
			Reason:            "Exact text match",
		})
	}
	return clusters, nil
}

// GetSimilarityReport scores an arbitrary pair with the current config.
func (d *Deduplicator) GetSimilarityReport(unit1, unit2 model.EvidenceUnit) model.SimilarityResult {
	return d.sim.CalculateSimilarity(unit1.Snippet, unit2.Snippet)
}

func pairKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}
