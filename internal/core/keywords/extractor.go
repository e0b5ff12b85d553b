package keywords

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/agenthands/evidence/internal/config"
	"github.com/agenthands/evidence/internal/core/common"
	"github.com/agenthands/evidence/internal/core/model"
)

// Extractor tokenizes unit text and scores terms with corpus-wide TF-IDF.
type Extractor struct {
	Config config.KeywordConfig
}

func NewExtractor(cfg config.KeywordConfig) *Extractor {
	return &Extractor{Config: cfg}
}

// TermStat is the per-term bookkeeping for one document: raw count,
// token positions, count/total frequency, and (after TFIDF) the score.
type TermStat struct {
	Term                string  `json:"term"`
	Count               int     `json:"count"`
	Positions           []int   `json:"positions"`
	NormalizedFrequency float64 `json:"normalized_frequency"`
	TFIDF               float64 `json:"tfidf"`
}

var reNonTerm = regexp.MustCompile(`[^a-z0-9\s-]+`)

// Preprocess lowercases, strips punctuation except hyphens, and applies the
// configured length filter, stop-word filter, stemmer and n-gram join.
func (e *Extractor) Preprocess(text string) []string {
	text = strings.ToLower(text)
	text = reNonTerm.ReplaceAllString(text, "")

	var terms []string
	for _, w := range strings.Fields(text) {
		w = strings.Trim(w, "-")
		if len(w) < e.Config.MinWordLength || len(w) > e.Config.MaxWordLength {
			continue
		}
		if e.Config.UseStopWordFiltering && stopWords[w] {
			continue
		}
		if e.Config.UseStemming {
			w = stem(w)
		}
		if w == "" {
			continue
		}
		terms = append(terms, w)
	}

	if n := e.Config.NgramSize; n > 1 {
		var grams []string
		for i := 0; i+n <= len(terms); i++ {
			grams = append(grams, strings.Join(terms[i:i+n], " "))
		}
		return grams
	}
	return terms
}

// Suffixes stripped by the simple stemmer, longest first so e.g. "tions"
// does not leave a dangling "s".
var stemSuffixes = []string{"tions", "tion", "sion", "ments", "ment", "ness", "ing", "est", "ed", "er", "ly", "ful"}

// stem strips one known suffix when the remaining stem keeps >= 3 chars,
// then a trailing non-double 's'.
func stem(w string) string {
	for _, suf := range stemSuffixes {
		if strings.HasSuffix(w, suf) && len(w)-len(suf) >= 3 {
			w = w[:len(w)-len(suf)]
			break
		}
	}
	if len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") {
		w = w[:len(w)-1]
	}
	return w
}

// TermFrequencies counts each unique term with its positions, sorted by
// raw count descending (ties alphabetical for determinism).
func (e *Extractor) TermFrequencies(terms []string) []TermStat {
	byTerm := make(map[string]*TermStat)
	for pos, t := range terms {
		st, ok := byTerm[t]
		if !ok {
			st = &TermStat{Term: t}
			byTerm[t] = st
		}
		st.Count++
		st.Positions = append(st.Positions, pos)
	}

	stats := make([]TermStat, 0, len(byTerm))
	for _, st := range byTerm {
		if len(terms) > 0 {
			st.NormalizedFrequency = float64(st.Count) / float64(len(terms))
		}
		stats = append(stats, *st)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Term < stats[j].Term
	})
	return stats
}

// TFIDF scores every document of the corpus: idf = ln(N/df), tfidf =
// normalized frequency · idf, each document sorted by tfidf descending.
// With corpus TF-IDF disabled, plain normalized frequency is the score and
// the document frequencies are ignored.
func (e *Extractor) TFIDF(corpus [][]string) [][]TermStat {
	df := make(map[string]int)
	perDoc := make([][]TermStat, len(corpus))
	for i, doc := range corpus {
		perDoc[i] = e.TermFrequencies(doc)
		for _, st := range perDoc[i] {
			df[st.Term]++
		}
	}

	n := float64(len(corpus))
	for i := range perDoc {
		for j := range perDoc[i] {
			st := &perDoc[i][j]
			if e.Config.UseCorpusTFIDF {
				st.TFIDF = st.NormalizedFrequency * math.Log(n/float64(df[st.Term]))
			} else {
				st.TFIDF = st.NormalizedFrequency
			}
		}
		doc := perDoc[i]
		sort.Slice(doc, func(a, b int) bool {
			if doc[a].TFIDF != doc[b].TFIDF {
				return doc[a].TFIDF > doc[b].TFIDF
			}
			if doc[a].Count != doc[b].Count {
				return doc[a].Count > doc[b].Count
			}
			return doc[a].Term < doc[b].Term
		})
	}
	return perDoc
}

// ExtractKeywords appends text as a synthetic document to the corpus,
// recomputes TF-IDF corpus-wide, and returns the new document's top terms.
func (e *Extractor) ExtractKeywords(text string, corpus []string) []model.Keyword {
	docs := make([][]string, 0, len(corpus)+1)
	for _, c := range corpus {
		docs = append(docs, e.Preprocess(c))
	}
	docs = append(docs, e.Preprocess(text))

	scored := e.TFIDF(docs)
	own := scored[len(scored)-1]

	var maxTFIDF float64
	maxCount := 0
	for _, st := range own {
		if st.TFIDF > maxTFIDF {
			maxTFIDF = st.TFIDF
		}
		if st.Count > maxCount {
			maxCount = st.Count
		}
	}

	var kws []model.Keyword
	for _, st := range own {
		if st.Count < e.Config.MinTermFrequency {
			continue
		}
		kws = append(kws, model.Keyword{
			Keyword:    st.Term,
			Score:      st.TFIDF,
			Frequency:  st.Count,
			Positions:  st.Positions,
			Confidence: keywordConfidence(st, maxTFIDF, maxCount),
		})
		if len(kws) == e.Config.MaxKeywords {
			break
		}
	}
	return kws
}

// keywordConfidence blends normalized TF-IDF (40%), normalized frequency
// (25%), a multi-position bonus (20%/10%) and a term-length bonus
// (15% for 4-12 chars, else 7%), clamped to [0,1].
func keywordConfidence(st TermStat, maxTFIDF float64, maxCount int) float64 {
	conf := 0.0
	if maxTFIDF > 0 {
		conf += 0.40 * (st.TFIDF / maxTFIDF)
	}
	if maxCount > 0 {
		conf += 0.25 * (float64(st.Count) / float64(maxCount))
	}
	switch {
	case len(st.Positions) >= 3:
		conf += 0.20
	case len(st.Positions) == 2:
		conf += 0.10
	}
	if l := len(st.Term); l >= 4 && l <= 12 {
		conf += 0.15
	} else {
		conf += 0.07
	}
	return common.Clamp01(conf)
}

// OverallConfidence blends average keyword confidence (60%), keyword-count
// adequacy vs target (25%, full bonus at >= 70% of target) and text-length
// adequacy (15%, full bonus for 100-500 chars).
func (e *Extractor) OverallConfidence(kws []model.Keyword, textLen int) float64 {
	if len(kws) == 0 {
		return 0
	}

	sum := 0.0
	for _, kw := range kws {
		sum += kw.Confidence
	}
	conf := 0.60 * (sum / float64(len(kws)))

	ratio := float64(len(kws)) / float64(e.Config.MaxKeywords)
	if ratio >= 0.7 {
		conf += 0.25
	} else {
		conf += 0.25 * (ratio / 0.7)
	}

	switch {
	case textLen >= 100 && textLen <= 500:
		conf += 0.15
	case textLen < 100:
		conf += 0.15 * float64(textLen) / 100
	default:
		conf += 0.15 * 500 / float64(textLen)
	}
	return common.Clamp01(conf)
}

// ExtractForUnits runs keyword extraction per unit, using the other units'
// snippets as the corpus.
func (e *Extractor) ExtractForUnits(units []model.EvidenceUnit) []model.TopicExtractionResult {
	snippets := make([]string, len(units))
	for i, u := range units {
		snippets[i] = u.Snippet
	}

	results := make([]model.TopicExtractionResult, len(units))
	for i, u := range units {
		corpus := make([]string, 0, len(units)-1)
		corpus = append(corpus, snippets[:i]...)
		corpus = append(corpus, snippets[i+1:]...)

		kws := e.ExtractKeywords(u.Snippet, corpus)
		results[i] = model.TopicExtractionResult{
			UnitUUID:   u.UUID,
			Keywords:   kws,
			Confidence: e.OverallConfidence(kws, len(u.Snippet)),
		}
	}
	return results
}
