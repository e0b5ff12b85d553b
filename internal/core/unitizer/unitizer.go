package unitizer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/agenthands/evidence/internal/config"
	"github.com/agenthands/evidence/internal/core/model"
)

// boundaryWindow is how far around the preferred end we look for a
// sentence or paragraph break before giving up and cutting mid-text.
const boundaryWindow = 100

type Unitizer struct {
	Config config.UnitizerConfig
}

func NewUnitizer(cfg config.UnitizerConfig) *Unitizer {
	return &Unitizer{Config: cfg}
}

var (
	normalizeReplacer = strings.NewReplacer(
		"\r\n", "\n", "\r", "\n",
		"“", `"`, "”", `"`,
		"‘", "'", "’", "'",
		" ", " ", "\t", " ",
	)
	reSpaces = regexp.MustCompile(` {2,}`)
)

// Normalize unifies quote characters and whitespace. All unit offsets index
// into the normalized text, so callers must persist this form as canonical.
func Normalize(text string) string {
	text = normalizeReplacer.Replace(text)
	text = reSpaces.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Unitize splits text into units that tile the normalized text with no gaps:
// the first unit starts at 0, the last ends at text length, and consecutive
// units overlap by at most OverlapSize bytes.
func (u *Unitizer) Unitize(text string) []model.TextUnit {
	norm := Normalize(text)
	if norm == "" {
		return nil
	}

	cfg := u.Config
	if len(norm) <= cfg.MaxSize {
		return []model.TextUnit{makeUnit(norm, 0, len(norm))}
	}

	sents := sentenceBoundaries(norm)
	paras := paragraphBoundaries(norm)
	merged := mergeSorted(sents, paras)

	var units []model.TextUnit
	pos := 0
	for pos < len(norm) {
		if len(norm)-pos <= cfg.MaxSize {
			units = append(units, makeUnit(norm, pos, len(norm)))
			break
		}

		target := pos + cfg.PreferredSize
		end := chooseEnd(target, pos+cfg.MinSize, pos+cfg.MaxSize, sents, paras, merged)
		units = append(units, makeUnit(norm, pos, end))

		// Next unit starts OverlapSize before this unit's end, but never
		// closer than MinSize to our own start, snapped forward to a
		// sentence boundary when one exists before the current end.
		next := end - cfg.OverlapSize
		if floor := pos + cfg.MinSize; next < floor {
			next = floor
		}
		if b, ok := firstAtOrAfter(sents, next); ok && b < end {
			next = b
		}
		if next <= pos {
			next = end // force progress, prevents infinite loops
		}
		if next > end {
			next = end // never leave a gap
		}
		pos = next
	}

	return units
}

// Validate checks the tiling invariant and size bounds over a Unitize
// result. Oversize units are errors; undersize units are only warnings.
func (u *Unitizer) Validate(units []model.TextUnit, textLen int) model.UnitValidation {
	v := model.UnitValidation{Valid: true}
	if len(units) == 0 {
		if textLen > 0 {
			v.Errors = append(v.Errors, "no units produced for non-empty text")
			v.Valid = false
		}
		return v
	}

	if units[0].StartIndex != 0 {
		v.Errors = append(v.Errors, fmt.Sprintf("first unit starts at %d, want 0", units[0].StartIndex))
	}
	if last := units[len(units)-1]; last.EndIndex != textLen {
		v.Errors = append(v.Errors, fmt.Sprintf("last unit ends at %d, want %d", last.EndIndex, textLen))
	}

	total := 0
	overlapped := 0
	v.MinSize = units[0].EndIndex - units[0].StartIndex
	for i, un := range units {
		size := un.EndIndex - un.StartIndex
		total += size
		if size < v.MinSize {
			v.MinSize = size
		}
		if size > v.MaxSize {
			v.MaxSize = size
		}
		if size > u.Config.MaxSize {
			v.Errors = append(v.Errors, fmt.Sprintf("unit %d size %d exceeds max %d", i, size, u.Config.MaxSize))
		} else if size < u.Config.MinSize {
			v.Warnings = append(v.Warnings, fmt.Sprintf("unit %d size %d below min %d", i, size, u.Config.MinSize))
		}
		if i > 0 {
			prevEnd := units[i-1].EndIndex
			if un.StartIndex > prevEnd {
				v.Errors = append(v.Errors, fmt.Sprintf("gap between unit %d (end %d) and unit %d (start %d)", i-1, prevEnd, i, un.StartIndex))
			} else {
				overlapped += prevEnd - un.StartIndex
			}
		}
	}

	v.AverageSize = float64(total) / float64(len(units))
	if textLen > 0 {
		v.CoverageRatio = float64(total) / float64(textLen)
		v.OverlapRatio = float64(overlapped) / float64(textLen)
	}
	v.Valid = len(v.Errors) == 0
	return v
}

// chooseEnd picks the unit end nearest to target: a paragraph boundary wins
// over a sentence boundary when it is at least as close, and the result is
// clamped so the unit never exceeds cap or falls below floor.
func chooseEnd(target, floor, cap int, sents, paras, merged []int) int {
	end := target
	p, pok := nearestWithin(paras, target, boundaryWindow)
	s, sok := nearestWithin(sents, target, boundaryWindow)
	switch {
	case pok && (!sok || abs(p-target) <= abs(s-target)):
		end = p
	case sok:
		end = s
	}

	if end > cap {
		if b, ok := lastAtOrBefore(merged, cap); ok && b > floor {
			end = b
		} else {
			end = cap
		}
	}
	if end < floor {
		if b, ok := firstAtOrAfter(merged, floor); ok && b <= cap {
			end = b
		} else {
			end = target
		}
	}
	return end
}

func makeUnit(text string, start, end int) model.TextUnit {
	snippet := text[start:end]
	return model.TextUnit{
		Snippet:          snippet,
		StartIndex:       start,
		EndIndex:         end,
		WordCount:        len(strings.Fields(snippet)),
		SentenceCount:    countSentences(snippet),
		HasCompleteStart: start == 0 || startsAtBoundary(text, start),
		HasCompleteEnd:   end == len(text) || endsAtBoundary(text, end),
	}
}

func isTerminator(c byte) bool {
	return c == '.' || c == '!' || c == '?'
}

// sentenceBoundaries returns positions just past each sentence terminator
// that is followed by whitespace or end of text, in ascending order.
func sentenceBoundaries(text string) []int {
	var out []int
	for i := 0; i < len(text); i++ {
		if !isTerminator(text[i]) {
			continue
		}
		if i+1 == len(text) || text[i+1] == ' ' || text[i+1] == '\n' {
			out = append(out, i+1)
		}
	}
	return out
}

// paragraphBoundaries returns positions just past the first newline of each
// blank-line break, in ascending order.
func paragraphBoundaries(text string) []int {
	var out []int
	for i := 0; i+1 < len(text); i++ {
		if text[i] == '\n' && text[i+1] == '\n' {
			out = append(out, i+1)
		}
	}
	return out
}

func startsAtBoundary(text string, start int) bool {
	i := start - 1
	for i >= 0 && (text[i] == ' ' || text[i] == '\n') {
		i--
	}
	return i < 0 || isTerminator(text[i])
}

func endsAtBoundary(text string, end int) bool {
	c := text[end-1]
	return isTerminator(c) || c == '\n'
}

func countSentences(snippet string) int {
	n := 0
	for i := 0; i < len(snippet); i++ {
		if !isTerminator(snippet[i]) {
			continue
		}
		if i+1 == len(snippet) || snippet[i+1] == ' ' || snippet[i+1] == '\n' {
			n++
		}
	}
	if n == 0 && len(strings.TrimSpace(snippet)) > 0 {
		return 1
	}
	return n
}

// nearestWithin returns the boundary closest to target if it is within
// the given window, preferring the earlier one on exact ties.
func nearestWithin(boundaries []int, target, window int) (int, bool) {
	best := -1
	bestDist := window + 1
	for _, b := range boundaries {
		d := abs(b - target)
		if d < bestDist {
			best = b
			bestDist = d
		}
		if b > target+window {
			break
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

func firstAtOrAfter(boundaries []int, pos int) (int, bool) {
	for _, b := range boundaries {
		if b >= pos {
			return b, true
		}
	}
	return 0, false
}

func lastAtOrBefore(boundaries []int, pos int) (int, bool) {
	found := -1
	for _, b := range boundaries {
		if b > pos {
			break
		}
		found = b
	}
	if found < 0 {
		return 0, false
	}
	return found, true
}

func mergeSorted(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i] <= b[j] {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
