package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type UnitizerConfig struct {
	MinSize       int `toml:"min_size"`
	MaxSize       int `toml:"max_size"`
	OverlapSize   int `toml:"overlap_size"`
	PreferredSize int `toml:"preferred_size"`
}

type SimilarityConfig struct {
	ShingleSize               int     `toml:"shingle_size"`
	MinHashSignatureLength    int     `toml:"minhash_signature_length"`
	SimHashDimensions         int     `toml:"simhash_dimensions"`
	CosineSimilarityThreshold float64 `toml:"cosine_similarity_threshold"`
}

type DedupeConfig struct {
	Strategy                string `toml:"strategy"`
	PreserveExactDuplicates bool   `toml:"preserve_exact_duplicates"`
	MaxClusterSize          int    `toml:"max_cluster_size"`
	UseFastPrefiltering     bool   `toml:"use_fast_prefiltering"`
}

type KeywordConfig struct {
	MaxKeywords          int  `toml:"max_keywords"`
	MinTermFrequency     int  `toml:"min_term_frequency"`
	MinWordLength        int  `toml:"min_word_length"`
	MaxWordLength        int  `toml:"max_word_length"`
	UseStopWordFiltering bool `toml:"use_stopword_filtering"`
	UseStemming          bool `toml:"use_stemming"`
	UseCorpusTFIDF       bool `toml:"use_corpus_tfidf"`
	NgramSize            int  `toml:"ngram_size"`
}

type TopicConfig struct {
	ClusteringEnabled    bool    `toml:"clustering_enabled"`
	NumClusters          int     `toml:"num_clusters"` // 0 = auto (elbow method)
	MaxClusters          int     `toml:"max_clusters"`
	MinClusterSize       int     `toml:"min_cluster_size"`
	TopicsPerUnit        int     `toml:"topics_per_unit"`
	SimilarityThreshold  float64 `toml:"similarity_threshold"` // 0 = no centroid cutoff
	MaxIterations        int     `toml:"max_iterations"`
	ConvergenceThreshold float64 `toml:"convergence_threshold"`
	Seed                 int64   `toml:"seed"`
}

type EngineConfig struct {
	Unitizer   UnitizerConfig   `toml:"unitizer"`
	Similarity SimilarityConfig `toml:"similarity"`
	Dedupe     DedupeConfig     `toml:"dedupe"`
	Keywords   KeywordConfig    `toml:"keywords"`
	Topics     TopicConfig      `toml:"topics"`
}

type LLMConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
}

type StoreConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type Config struct {
	Engine EngineConfig `toml:"engine"`
	LLM    LLMConfig    `toml:"llm"`
	Store  StoreConfig  `toml:"store"`
}

func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Unitizer: UnitizerConfig{
				MinSize:       200,
				MaxSize:       400,
				OverlapSize:   50,
				PreferredSize: 300,
			},
			Similarity: SimilarityConfig{
				ShingleSize:               3,
				MinHashSignatureLength:    128,
				SimHashDimensions:         64,
				CosineSimilarityThreshold: 0.85,
			},
			Dedupe: DedupeConfig{
				Strategy:            "keep_highest_quality",
				MaxClusterSize:      0, // unlimited
				UseFastPrefiltering: true,
			},
			Keywords: KeywordConfig{
				MaxKeywords:          10,
				MinTermFrequency:     1,
				MinWordLength:        3,
				MaxWordLength:        30,
				UseStopWordFiltering: true,
				UseStemming:          false,
				UseCorpusTFIDF:       true,
				NgramSize:            1,
			},
			Topics: TopicConfig{
				ClusteringEnabled:    true,
				NumClusters:          0, // auto
				MaxClusters:          8,
				MinClusterSize:       2,
				TopicsPerUnit:        3,
				SimilarityThreshold:  0,
				MaxIterations:        50,
				ConvergenceThreshold: 0.001,
				Seed:                 42,
			},
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects out-of-range numeric settings up front so they never
// produce silently wrong similarity scores downstream.
func (c *Config) Validate() error {
	u := c.Engine.Unitizer
	if u.MinSize <= 0 || u.MaxSize <= 0 || u.PreferredSize <= 0 {
		return fmt.Errorf("malformed config: unitizer sizes must be positive (min=%d max=%d preferred=%d)", u.MinSize, u.MaxSize, u.PreferredSize)
	}
	if u.MinSize > u.MaxSize {
		return fmt.Errorf("malformed config: unitizer min_size %d exceeds max_size %d", u.MinSize, u.MaxSize)
	}
	if u.PreferredSize < u.MinSize || u.PreferredSize > u.MaxSize {
		return fmt.Errorf("malformed config: unitizer preferred_size %d outside [%d,%d]", u.PreferredSize, u.MinSize, u.MaxSize)
	}
	if u.OverlapSize < 0 || u.OverlapSize >= u.MinSize {
		return fmt.Errorf("malformed config: unitizer overlap_size %d must be in [0,%d)", u.OverlapSize, u.MinSize)
	}

	s := c.Engine.Similarity
	if s.ShingleSize < 1 {
		return fmt.Errorf("malformed config: shingle_size %d must be >= 1", s.ShingleSize)
	}
	if s.MinHashSignatureLength < 1 {
		return fmt.Errorf("malformed config: minhash_signature_length %d must be >= 1", s.MinHashSignatureLength)
	}
	if s.SimHashDimensions < 1 || s.SimHashDimensions > 256 {
		return fmt.Errorf("malformed config: simhash_dimensions %d must be in [1,256]", s.SimHashDimensions)
	}
	if s.CosineSimilarityThreshold < 0 || s.CosineSimilarityThreshold > 1 {
		return fmt.Errorf("malformed config: cosine_similarity_threshold %g must be in [0,1]", s.CosineSimilarityThreshold)
	}

	d := c.Engine.Dedupe
	switch d.Strategy {
	case "keep_highest_quality", "keep_longest", "keep_first", "merge":
	default:
		return fmt.Errorf("malformed config: unknown dedupe strategy %q", d.Strategy)
	}
	if d.MaxClusterSize < 0 {
		return fmt.Errorf("malformed config: max_cluster_size %d must be >= 0", d.MaxClusterSize)
	}

	k := c.Engine.Keywords
	if k.MaxKeywords < 1 {
		return fmt.Errorf("malformed config: max_keywords %d must be >= 1", k.MaxKeywords)
	}
	if k.MinWordLength < 1 || k.MaxWordLength < k.MinWordLength {
		return fmt.Errorf("malformed config: word length bounds [%d,%d] invalid", k.MinWordLength, k.MaxWordLength)
	}
	if k.MinTermFrequency < 1 {
		return fmt.Errorf("malformed config: min_term_frequency %d must be >= 1", k.MinTermFrequency)
	}
	if k.NgramSize < 1 {
		return fmt.Errorf("malformed config: ngram_size %d must be >= 1", k.NgramSize)
	}

	t := c.Engine.Topics
	if t.NumClusters < 0 || t.MaxClusters < 1 {
		return fmt.Errorf("malformed config: cluster counts (num=%d max=%d) invalid", t.NumClusters, t.MaxClusters)
	}
	if t.MinClusterSize < 1 {
		return fmt.Errorf("malformed config: min_cluster_size %d must be >= 1", t.MinClusterSize)
	}
	if t.TopicsPerUnit < 1 {
		return fmt.Errorf("malformed config: topics_per_unit %d must be >= 1", t.TopicsPerUnit)
	}
	if t.SimilarityThreshold < 0 || t.SimilarityThreshold > 1 {
		return fmt.Errorf("malformed config: similarity_threshold %g must be in [0,1]", t.SimilarityThreshold)
	}
	if t.MaxIterations < 1 {
		return fmt.Errorf("malformed config: max_iterations %d must be >= 1", t.MaxIterations)
	}
	if t.ConvergenceThreshold <= 0 {
		return fmt.Errorf("malformed config: convergence_threshold %g must be > 0", t.ConvergenceThreshold)
	}

	return nil
}
