package similarity

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/agenthands/evidence/internal/config"
	"github.com/agenthands/evidence/internal/core/model"
)

// ErrLengthMismatch is returned when MinHash signatures or SimHash
// fingerprints of unequal length are compared. Comparisons are never
// silently truncated.
var ErrLengthMismatch = errors.New("length mismatch")

// Composite weights, fixed by design.
const (
	cosineWeight  = 0.4
	jaccardWeight = 0.25
	minHashWeight = 0.2
	simHashWeight = 0.15
)

// Service computes text similarity. All methods are pure; the config is
// read-only after construction, so one instance is safe to share.
type Service struct {
	Config config.SimilarityConfig
}

func NewService(cfg config.SimilarityConfig) *Service {
	return &Service{Config: cfg}
}

var reNonWord = regexp.MustCompile(`[^a-z0-9\s]+`)

// Preprocess lowercases, strips non-word characters and collapses whitespace.
func Preprocess(text string) string {
	text = strings.ToLower(text)
	text = reNonWord.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

// Shingles returns the set of unique k-word n-grams of the normalized text.
// Texts shorter than k words yield a single shingle: the whole text.
func Shingles(text string, k int) map[string]struct{} {
	words := strings.Fields(Preprocess(text))
	set := make(map[string]struct{})
	if len(words) < k {
		set[strings.Join(words, " ")] = struct{}{}
		return set
	}
	for i := 0; i+k <= len(words); i++ {
		set[strings.Join(words[i:i+k], " ")] = struct{}{}
	}
	return set
}

// Jaccard is |A∩B| / |A∪B|. Two empty sets are identical, hence 1.0.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	inter := 0
	for s := range a {
		if _, ok := b[s]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 1.0
	}
	return float64(inter) / float64(union)
}

// CosineFromShingles computes cosine similarity of binary presence vectors
// over the union of the two shingle sets. An empty union means two empty
// texts, which count as identical.
func CosineFromShingles(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	dot := 0
	for s := range a {
		if _, ok := b[s]; ok {
			dot++
		}
	}
	return float64(dot) / (math.Sqrt(float64(len(a))) * math.Sqrt(float64(len(b))))
}

func (s *Service) Cosine(text1, text2 string) float64 {
	k := s.Config.ShingleSize
	return CosineFromShingles(Shingles(text1, k), Shingles(text2, k))
}

// hashShingle maps (shingle, seed) to a deterministic 32-bit value: the
// first 4 bytes of a sha256 digest, i.e. the first 8 hex characters.
func hashShingle(shingle string, seed int) uint32 {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", shingle, seed)))
	return binary.BigEndian.Uint32(sum[:4])
}

// MinHashSignature returns, for each seed, the minimum hash over all
// shingles. With no shingles every position stays at the sentinel max.
func (s *Service) MinHashSignature(shingles map[string]struct{}) []uint32 {
	sig := make([]uint32, s.Config.MinHashSignatureLength)
	for i := range sig {
		sig[i] = math.MaxUint32
	}
	for sh := range shingles {
		for seed := range sig {
			if h := hashShingle(sh, seed); h < sig[seed] {
				sig[seed] = h
			}
		}
	}
	return sig
}

// MinHashSimilarity is the fraction of signature positions that agree.
func MinHashSimilarity(sig1, sig2 []uint32) (float64, error) {
	if len(sig1) != len(sig2) {
		return 0, fmt.Errorf("%w: minhash signatures have lengths %d and %d", ErrLengthMismatch, len(sig1), len(sig2))
	}
	if len(sig1) == 0 {
		return 0, nil
	}
	matches := 0
	for i := range sig1 {
		if sig1[i] == sig2[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(sig1)), nil
}

// SimHash builds a D-bit locality-sensitive fingerprint: each shingle's
// digest votes +1/-1 per bit position, and bit i is '1' when the
// accumulated weight is >= 0.
func (s *Service) SimHash(text string) string {
	return simHashFromShingles(Shingles(text, s.Config.ShingleSize), s.Config.SimHashDimensions)
}

func simHashFromShingles(shingles map[string]struct{}, dims int) string {
	weights := make([]int, dims)
	for sh := range shingles {
		sum := sha256.Sum256([]byte(sh))
		for i := 0; i < dims; i++ {
			bit := sum[i/8] >> (7 - i%8) & 1
			if bit == 1 {
				weights[i]++
			} else {
				weights[i]--
			}
		}
	}
	var b strings.Builder
	b.Grow(dims)
	for _, w := range weights {
		if w >= 0 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// HammingDistance counts differing bit positions of two equal-length
// fingerprints.
func HammingDistance(fp1, fp2 string) (int, error) {
	if len(fp1) != len(fp2) {
		return 0, fmt.Errorf("%w: simhash fingerprints have lengths %d and %d", ErrLengthMismatch, len(fp1), len(fp2))
	}
	dist := 0
	for i := 0; i < len(fp1); i++ {
		if fp1[i] != fp2[i] {
			dist++
		}
	}
	return dist, nil
}

// SimHashSimilarity is 1 - normalized Hamming distance.
func SimHashSimilarity(fp1, fp2 string) (float64, error) {
	dist, err := HammingDistance(fp1, fp2)
	if err != nil {
		return 0, err
	}
	if len(fp1) == 0 {
		return 1.0, nil
	}
	return 1.0 - float64(dist)/float64(len(fp1)), nil
}

// FastSimilarityCheck is a cheap SimHash-only pre-filter.
func (s *Service) FastSimilarityCheck(text1, text2 string, threshold float64) bool {
	sim, err := SimHashSimilarity(s.SimHash(text1), s.SimHash(text2))
	if err != nil {
		return false
	}
	return sim >= threshold
}

// features caches per-text derived state so matrix construction computes
// shingles, signatures and fingerprints once per text.
type features struct {
	shingles    map[string]struct{}
	signature   []uint32
	fingerprint string
}

func (s *Service) featuresOf(text string) features {
	sh := Shingles(text, s.Config.ShingleSize)
	return features{
		shingles:    sh,
		signature:   s.MinHashSignature(sh),
		fingerprint: simHashFromShingles(sh, s.Config.SimHashDimensions),
	}
}

func (s *Service) compare(f1, f2 features) model.SimilarityResult {
	cos := CosineFromShingles(f1.shingles, f2.shingles)
	jac := Jaccard(f1.shingles, f2.shingles)
	// Lengths come from the same config, so the comparisons cannot mismatch.
	mh, _ := MinHashSimilarity(f1.signature, f2.signature)
	sh, _ := SimHashSimilarity(f1.fingerprint, f2.fingerprint)

	overall := cosineWeight*cos + jaccardWeight*jac + minHashWeight*mh + simHashWeight*sh
	return model.SimilarityResult{
		CosineSimilarity:  cos,
		JaccardSimilarity: jac,
		MinHashSimilarity: mh,
		SimHashSimilarity: sh,
		OverallSimilarity: overall,
		IsDuplicate:       overall >= s.Config.CosineSimilarityThreshold,
	}
}

// CalculateSimilarity computes all four metrics and the weighted composite
// for one pair of texts.
func (s *Service) CalculateSimilarity(text1, text2 string) model.SimilarityResult {
	return s.compare(s.featuresOf(text1), s.featuresOf(text2))
}

// CalculateSimilarityMatrix returns the symmetric n×n matrix of overall
// similarities with a unit diagonal. Per-text features are precomputed, but
// every off-diagonal pair is still scored once, so this is O(n²) in pairs.
func (s *Service) CalculateSimilarityMatrix(texts []string) [][]float64 {
	n := len(texts)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
		matrix[i][i] = 1.0
	}

	feats := make([]features, n)
	for i, t := range texts {
		feats[i] = s.featuresOf(t)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim := s.compare(feats[i], feats[j]).OverallSimilarity
			matrix[i][j] = sim
			matrix[j][i] = sim
		}
	}
	return matrix
}
