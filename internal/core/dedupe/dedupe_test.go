package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agenthands/evidence/internal/config"
	"github.com/agenthands/evidence/internal/core/model"
)

func testConfigs() (config.DedupeConfig, config.SimilarityConfig) {
	return config.DedupeConfig{
			Strategy: "keep_highest_quality",
		}, config.SimilarityConfig{
			ShingleSize:               3,
			MinHashSignatureLength:    128,
			SimHashDimensions:         64,
			CosineSimilarityThreshold: 0.85,
		}
}

func unit(uuid, snippet string, quality float64) model.EvidenceUnit {
	q := quality
	return model.EvidenceUnit{
		UUID:         uuid,
		SourceUUID:   "src-1",
		Snippet:      snippet,
		QualityScore: &q,
	}
}

func TestDeduplicateExactDuplicates(t *testing.T) {
	// Two identical units and one unrelated. The higher-quality copy
	// survives as representative.
	cfg, simCfg := testConfigs()
	d := NewDeduplicator(cfg, simCfg)

	units := []model.EvidenceUnit{
		unit("unit-a", "The committee approved the funding request on Tuesday.", 0.5),
		unit("unit-b", "The committee approved the funding request on Tuesday.", 0.9),
		unit("unit-c", "Gardening requires patience, good soil and regular watering.", 0.7),
	}

	result, err := d.Deduplicate(units)
	assert.NoError(t, err)

	assert.Len(t, result.Deduplicated, 2)
	assert.Len(t, result.DuplicateClusters, 1)

	cluster := result.DuplicateClusters[0]
	assert.Equal(t, "unit-b", cluster.Representative.UUID)
	assert.Len(t, cluster.Members, 2)
	assert.InDelta(t, 1.0, cluster.AverageSimilarity, 1e-9)

	assert.Equal(t, 3, result.Statistics.TotalUnits)
	assert.Equal(t, 2, result.Statistics.UniqueUnits)
	assert.Equal(t, 1, result.Statistics.DuplicatesRemoved)
	assert.Equal(t, 1, result.Statistics.ClustersFound)
}

func TestDeduplicatePreserveExactDuplicates(t *testing.T) {
	cfg, simCfg := testConfigs()
	cfg.PreserveExactDuplicates = true
	d := NewDeduplicator(cfg, simCfg)

	units := []model.EvidenceUnit{
		unit("unit-a", "The committee approved the funding request on Tuesday.", 0.5),
		unit("unit-b", "The committee approved the funding request on Tuesday.", 0.9),
	}

	result, err := d.Deduplicate(units)
	assert.NoError(t, err)
	assert.Len(t, result.Deduplicated, 2)
	assert.Empty(t, result.DuplicateClusters)
}

func TestDeduplicateThresholdSensitivity(t *testing.T) {
	// One word changed. Near-duplicates merge only once the threshold
	// drops below their composite score.
	cfg, simCfg := testConfigs()
	d := NewDeduplicator(cfg, simCfg)

	units := []model.EvidenceUnit{
		unit("unit-a", "The committee approved the funding request on Tuesday", 0.5),
		unit("unit-b", "The committee approved the funding request on Wednesday", 0.5),
	}

	result, err := d.Deduplicate(units)
	assert.NoError(t, err)
	assert.Len(t, result.Deduplicated, 2, "strict threshold keeps both")

	lower := 0.6
	assert.NoError(t, d.UpdateConfig(ConfigPatch{CosineSimilarityThreshold: &lower}))

	result, err = d.Deduplicate(units)
	assert.NoError(t, err)
	assert.Len(t, result.Deduplicated, 1, "relaxed threshold merges the pair")
	assert.Len(t, result.DuplicateClusters, 1)
}

func TestDeduplicateIsDeterministic(t *testing.T) {
	cfg, simCfg := testConfigs()
	d := NewDeduplicator(cfg, simCfg)

	units := []model.EvidenceUnit{
		unit("unit-a", "The committee approved the funding request on Tuesday.", 0.5),
		unit("unit-b", "The committee approved the funding request on Tuesday.", 0.9),
		unit("unit-c", "Gardening requires patience, good soil and regular watering.", 0.7),
	}

	first, err := d.Deduplicate(units)
	assert.NoError(t, err)
	second, err := d.Deduplicate(units)
	assert.NoError(t, err)

	assert.Equal(t, len(first.Deduplicated), len(second.Deduplicated))
	for i := range first.Deduplicated {
		assert.Equal(t, first.Deduplicated[i].UUID, second.Deduplicated[i].UUID)
	}
}

func TestDeduplicateTransitiveCluster(t *testing.T) {
	// Three identical units plus two unrelated singletons must yield one
	// three-member cluster; singletons pass through untouched.
	cfg, simCfg := testConfigs()
	d := NewDeduplicator(cfg, simCfg)

	units := []model.EvidenceUnit{
		unit("unit-1", "The server logs rotation policy changed last quarter.", 0.5),
		unit("unit-2", "The server logs rotation policy changed last quarter.", 0.6),
		unit("unit-3", "The server logs rotation policy changed last quarter.", 0.7),
		unit("unit-4", "Bees pollinate most flowering crops in temperate climates.", 0.5),
		unit("unit-5", "Violin strings are tuned in perfect fifths starting from G.", 0.5),
	}

	result, err := d.Deduplicate(units)
	assert.NoError(t, err)

	assert.Equal(t, 3, result.Statistics.UniqueUnits)
	assert.Len(t, result.DuplicateClusters, 1)
	assert.Len(t, result.DuplicateClusters[0].Members, 3)
	assert.Equal(t, "unit-3", result.DuplicateClusters[0].Representative.UUID)
}

func TestDeduplicateMaxClusterSize(t *testing.T) {
	cfg, simCfg := testConfigs()
	cfg.MaxClusterSize = 2
	d := NewDeduplicator(cfg, simCfg)

	units := []model.EvidenceUnit{
		unit("unit-1", "Identical snippet text repeated for every unit here.", 0.5),
		unit("unit-2", "Identical snippet text repeated for every unit here.", 0.5),
		unit("unit-3", "Identical snippet text repeated for every unit here.", 0.5),
		unit("unit-4", "Identical snippet text repeated for every unit here.", 0.5),
	}

	result, err := d.Deduplicate(units)
	assert.NoError(t, err)

	assert.Equal(t, 2, result.Statistics.UniqueUnits)
	for _, c := range result.DuplicateClusters {
		assert.LessOrEqual(t, len(c.Members), 2)
	}
}

func TestDeduplicateMergeStrategy(t *testing.T) {
	cfg, simCfg := testConfigs()
	cfg.Strategy = "merge"
	d := NewDeduplicator(cfg, simCfg)

	a := unit("unit-a", "Shared snippet text used by both units in this cluster.", 0.6)
	a.Topics = []string{"storage", "logging"}
	b := unit("unit-b", "Shared snippet text used by both units in this cluster.", 0.8)
	b.Topics = []string{"logging", "metrics"}

	result, err := d.Deduplicate([]model.EvidenceUnit{a, b})
	assert.NoError(t, err)
	assert.Len(t, result.Deduplicated, 1)

	merged := result.Deduplicated[0]
	assert.NotEqual(t, "unit-a", merged.UUID)
	assert.NotEqual(t, "unit-b", merged.UUID)
	assert.Equal(t, []string{"storage", "logging", "metrics"}, merged.Topics)
	assert.InDelta(t, 0.7, *merged.QualityScore, 1e-9)
	assert.Equal(t, 2, merged.Metadata["mergedCount"])
	assert.ElementsMatch(t, []string{"unit-a", "unit-b"}, merged.Metadata["mergedFrom"])
}

func TestDeduplicateEmptyInput(t *testing.T) {
	cfg, simCfg := testConfigs()
	d := NewDeduplicator(cfg, simCfg)

	result, err := d.Deduplicate(nil)
	assert.NoError(t, err)
	assert.Empty(t, result.Deduplicated)
	assert.Empty(t, result.DuplicateClusters)
	assert.Equal(t, 0, result.Statistics.TotalUnits)
}

func TestSelectRepresentativeEmptyCluster(t *testing.T) {
	cfg, simCfg := testConfigs()
	d := NewDeduplicator(cfg, simCfg)

	_, err := d.selectRepresentative(nil, "keep_first")
	assert.ErrorIs(t, err, ErrEmptyCluster)
}

func TestSelectRepresentativeKeepLongest(t *testing.T) {
	cfg, simCfg := testConfigs()
	cfg.Strategy = "keep_longest"
	d := NewDeduplicator(cfg, simCfg)

	short := unit("unit-short", "Short text.", 0.9)
	long := unit("unit-long", "A noticeably longer snippet of text.", 0.1)

	rep, err := d.selectRepresentative([]model.EvidenceUnit{short, long}, cfg.Strategy)
	assert.NoError(t, err)
	assert.Equal(t, "unit-long", rep.UUID)
}

func TestFindExactDuplicates(t *testing.T) {
	cfg, simCfg := testConfigs()
	d := NewDeduplicator(cfg, simCfg)

	units := []model.EvidenceUnit{
		unit("unit-a", "Same text here.", 0.5),
		unit("unit-b", "  Same text here.  ", 0.8), // trimmed equality
		unit("unit-c", "Different text entirely.", 0.5),
	}

	clusters, err := d.FindExactDuplicates(units)
	assert.NoError(t, err)
	assert.Len(t, clusters, 1)
	assert.Len(t, clusters[0].Members, 2)
	assert.Equal(t, "unit-b", clusters[0].Representative.UUID)
	assert.Equal(t, 1.0, clusters[0].AverageSimilarity)
	assert.Equal(t, "Exact text match", clusters[0].Reason)
}

func TestUpdateConfigRejectsInvalidPatch(t *testing.T) {
	cfg, simCfg := testConfigs()
	d := NewDeduplicator(cfg, simCfg)

	badStrategy := "keep_random"
	assert.ErrorContains(t, d.UpdateConfig(ConfigPatch{Strategy: &badStrategy}), "unknown dedupe strategy")

	badThreshold := 1.5
	assert.ErrorContains(t, d.UpdateConfig(ConfigPatch{CosineSimilarityThreshold: &badThreshold}), "malformed config")

	// Rejected patches leave the active config untouched.
	assert.Equal(t, "keep_highest_quality", d.cfg.Strategy)
	assert.Equal(t, 0.85, d.simCfg.CosineSimilarityThreshold)
}

func TestGetSimilarityReport(t *testing.T) {
	cfg, simCfg := testConfigs()
	d := NewDeduplicator(cfg, simCfg)

	a := unit("unit-a", "Identical report text.", 0.5)
	b := unit("unit-b", "Identical report text.", 0.5)

	report := d.GetSimilarityReport(a, b)
	assert.InDelta(t, 1.0, report.OverallSimilarity, 1e-9)
	assert.True(t, report.IsDuplicate)
}

func TestUnionFind(t *testing.T) {
	uf := newUnionFind(5)
	uf.union(0, 1)
	uf.union(1, 2)

	assert.Equal(t, uf.find(0), uf.find(2))
	assert.NotEqual(t, uf.find(0), uf.find(3))
	assert.Equal(t, 3, uf.componentSize(1))
	assert.Equal(t, 1, uf.componentSize(4))
}
