package keywords

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agenthands/evidence/internal/config"
	"github.com/agenthands/evidence/internal/core/model"
)

func testConfig() config.KeywordConfig {
	return config.KeywordConfig{
		MaxKeywords:          10,
		MinTermFrequency:     1,
		MinWordLength:        3,
		MaxWordLength:        30,
		UseStopWordFiltering: true,
		UseStemming:          false,
		UseCorpusTFIDF:       true,
		NgramSize:            1,
	}
}

func TestPreprocessFiltersStopWordsAndShortTerms(t *testing.T) {
	e := NewExtractor(testConfig())

	terms := e.Preprocess("The quick brown foxes, the lazy dog!")
	assert.Equal(t, []string{"quick", "brown", "foxes", "lazy", "dog"}, terms)
}

func TestPreprocessKeepsHyphenatedTerms(t *testing.T) {
	e := NewExtractor(testConfig())

	terms := e.Preprocess("a well-known -edge- case")
	assert.Equal(t, []string{"well-known", "edge", "case"}, terms)
}

func TestPreprocessStemming(t *testing.T) {
	cfg := testConfig()
	cfg.UseStemming = true
	e := NewExtractor(cfg)

	terms := e.Preprocess("processing dogs nations")
	assert.Equal(t, []string{"process", "dog", "nation"}, terms)
}

func TestPreprocessBigrams(t *testing.T) {
	cfg := testConfig()
	cfg.NgramSize = 2
	e := NewExtractor(cfg)

	terms := e.Preprocess("evidence unit storage")
	assert.Equal(t, []string{"evidence unit", "unit storage"}, terms)
}

func TestTermFrequencies(t *testing.T) {
	e := NewExtractor(testConfig())

	stats := e.TermFrequencies([]string{"alpha", "beta", "alpha"})
	assert.Len(t, stats, 2)
	assert.Equal(t, "alpha", stats[0].Term)
	assert.Equal(t, 2, stats[0].Count)
	assert.Equal(t, []int{0, 2}, stats[0].Positions)
	assert.InDelta(t, 2.0/3.0, stats[0].NormalizedFrequency, 1e-9)
	assert.Equal(t, "beta", stats[1].Term)
}

func TestTFIDFDiscountsCommonTerms(t *testing.T) {
	e := NewExtractor(testConfig())

	corpus := [][]string{
		{"alpha", "beta"},
		{"beta", "gamma"},
	}
	scored := e.TFIDF(corpus)

	// "beta" appears in every document, so its idf (and tfidf) is zero;
	// the document-unique term ranks first.
	assert.Equal(t, "alpha", scored[0][0].Term)
	assert.Greater(t, scored[0][0].TFIDF, 0.0)
	for _, st := range scored[0] {
		if st.Term == "beta" {
			assert.Equal(t, 0.0, st.TFIDF)
		}
	}
}

func TestExtractKeywords(t *testing.T) {
	e := NewExtractor(testConfig())

	text := "Machine learning models need machine learning data pipelines"
	corpus := []string{
		"Cooking recipes need fresh ingredients and patience",
		"Gardening depends on soil quality and regular watering",
	}

	kws := e.ExtractKeywords(text, corpus)
	assert.NotEmpty(t, kws)
	assert.LessOrEqual(t, len(kws), e.Config.MaxKeywords)

	terms := make(map[string]model.Keyword)
	for _, kw := range kws {
		terms[kw.Keyword] = kw
		assert.GreaterOrEqual(t, kw.Confidence, 0.0)
		assert.LessOrEqual(t, kw.Confidence, 1.0)
	}
	assert.Contains(t, terms, "machine")
	assert.Contains(t, terms, "learning")
	assert.Equal(t, 2, terms["machine"].Frequency)
}

func TestExtractKeywordsPlainTermFrequency(t *testing.T) {
	// With corpus TF-IDF off, a term present in every document keeps its
	// normalized-frequency score instead of being discounted to zero.
	cfg := testConfig()
	cfg.UseCorpusTFIDF = false
	e := NewExtractor(cfg)

	corpus := []string{"storage everywhere", "storage again"}
	kws := e.ExtractKeywords("storage storage cache", corpus)

	assert.NotEmpty(t, kws)
	assert.Equal(t, "storage", kws[0].Keyword)
	assert.InDelta(t, 2.0/3.0, kws[0].Score, 1e-9)

	// The same corpus with TF-IDF on zeroes the ubiquitous term.
	withIDF := NewExtractor(testConfig()).ExtractKeywords("storage storage cache", corpus)
	for _, kw := range withIDF {
		if kw.Keyword == "storage" {
			assert.Equal(t, 0.0, kw.Score)
		}
	}
}

func TestExtractKeywordsMinTermFrequency(t *testing.T) {
	cfg := testConfig()
	cfg.MinTermFrequency = 2
	e := NewExtractor(cfg)

	kws := e.ExtractKeywords("storage storage cache", nil)

	assert.Len(t, kws, 1)
	assert.Equal(t, "storage", kws[0].Keyword)
}

func TestOverallConfidenceBounds(t *testing.T) {
	e := NewExtractor(testConfig())

	assert.Equal(t, 0.0, e.OverallConfidence(nil, 200))

	kws := []model.Keyword{
		{Keyword: "storage", Confidence: 0.8},
		{Keyword: "cache", Confidence: 0.6},
	}
	conf := e.OverallConfidence(kws, 250)
	assert.Greater(t, conf, 0.0)
	assert.LessOrEqual(t, conf, 1.0)
}

func TestExtractForUnits(t *testing.T) {
	e := NewExtractor(testConfig())

	units := []model.EvidenceUnit{
		{UUID: "unit-1", Snippet: "Database storage engines optimize query latency with caching"},
		{UUID: "unit-2", Snippet: "Neural network training benefits from gradient clipping"},
	}

	results := e.ExtractForUnits(units)
	assert.Len(t, results, 2)
	assert.Equal(t, "unit-1", results[0].UnitUUID)
	assert.Equal(t, "unit-2", results[1].UnitUUID)
	for _, r := range results {
		assert.NotEmpty(t, r.Keywords)
		assert.GreaterOrEqual(t, r.Confidence, 0.0)
		assert.LessOrEqual(t, r.Confidence, 1.0)
	}
}

func TestStem(t *testing.T) {
	assert.Equal(t, "process", stem("processing"))
	assert.Equal(t, "nation", stem("nations"))
	assert.Equal(t, "glass", stem("glass")) // double 's' is kept
	assert.Equal(t, "ing", stem("ing"))     // too short to strip
}
