package align

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// bulletRe strips leading list glyphs that never appear in the trace.
var bulletRe = regexp.MustCompile(`^[◇◆●○■□▪▫▸►・\-\*]+\s*`)

// ResyncOptions tunes the paragraph-start resynchronization search. The
// defaults were settled empirically against long legal documents and should
// rarely need changing.
type ResyncOptions struct {
	// MaxBackward bounds the backward search window in entries.
	MaxBackward int
	// MaxForward bounds the forward search window in entries; a tight
	// bound prevents jumps to a far-away occurrence of a common word.
	MaxForward int
	// Continuation is how many following entries extend a candidate's
	// score by greedy matching.
	Continuation int
	// MaxGap is the largest gap, in runes, tolerated between consecutive
	// continuation matches.
	MaxGap int
	// SearchWindow bounds, in runes, how far ahead a continuation match
	// may be looked for.
	SearchWindow int
	// EarlyExit stops the forward search once a candidate scores this
	// many runes.
	EarlyExit int
	// PenaltySpan is the distance, in entries, over which the score
	// penalty decays to its floor.
	PenaltySpan int
}

// DefaultResyncOptions returns the tuned defaults.
func DefaultResyncOptions() ResyncOptions {
	return ResyncOptions{
		MaxBackward:  50,
		MaxForward:   150,
		Continuation: 8,
		MaxGap:       8,
		SearchWindow: 30,
		EarlyExit:    15,
		PenaltySpan:  1000,
	}
}

// Resync realigns the trace cursor at a paragraph boundary. When the
// paragraph's opening words already match the current entry the index is
// returned untouched; otherwise nearby candidates are scored by greedy
// continuation matching with a distance penalty, searching backward within
// opt.MaxBackward entries and forward within opt.MaxForward. Backward
// candidates whose end time is not strictly earlier than the current entry's
// start time are rejected outright — highlight timing never moves backward.
func Resync(paragraph string, trace []Interval, traceIdx int, opt ResyncOptions) int {
	reading := normalizeLabel(paragraph)
	if strings.TrimSpace(reading) == "" {
		return traceIdx
	}

	reading = strings.TrimLeft(reading, " \t　\n\r")
	reading = bulletRe.ReplaceAllString(reading, "")
	if strings.TrimSpace(reading) == "" {
		return traceIdx
	}

	// fast path: already in sync
	if traceIdx < len(trace) {
		current := normalizeLabel(trace[traceIdx].Label)
		if current != "" && strings.HasPrefix(reading, current) {
			return traceIdx
		}
	}

	bestIdx := traceIdx
	bestScore := 0

	var currentStart float64
	if traceIdx < len(trace) {
		currentStart = trace[traceIdx].Begin
	}

	backwardStart := traceIdx - opt.MaxBackward
	if backwardStart < 0 {
		backwardStart = 0
	}
	for i := backwardStart; i < traceIdx; i++ {
		// temporal monotonicity: a backward jump may never replay audio
		if trace[i].End >= currentStart {
			continue
		}
		if score := scoreCandidate(reading, trace, i, traceIdx-i, opt); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	forwardEnd := traceIdx + opt.MaxForward
	if forwardEnd > len(trace) {
		forwardEnd = len(trace)
	}
	for i := traceIdx; i < forwardEnd; i++ {
		if score := scoreCandidate(reading, trace, i, i-traceIdx, opt); score > bestScore {
			bestScore = score
			bestIdx = i
			if score >= opt.EarlyExit {
				break
			}
		}
	}

	return bestIdx
}

// scoreCandidate rates how well the paragraph opening matches the trace at
// start. The candidate's label must prefix the reading text; each following
// recognized entry found within the gap window adds its length. The score
// decays with distance from the pre-resync cursor.
func scoreCandidate(reading string, trace []Interval, start, distance int, opt ResyncOptions) int {
	label := trace[start].Label
	if label == UnknownLabel {
		return scoreUnknownCandidate(reading, trace, start, distance, opt)
	}
	if label == "" {
		return 0
	}
	norm := normalizeLabel(label)
	if norm == "" || !strings.HasPrefix(reading, norm) {
		return 0
	}

	score := utf8.RuneCountInString(norm)
	textPos := len(norm)
	score += scoreContinuation(reading, &textPos, trace, start+1, opt)
	return applyPenalty(score, distance, opt)
}

// scoreUnknownCandidate rates an unrecognized entry by the first recognized
// entry shortly after it: that word must occur near the paragraph start, and
// continuation matching proceeds from its position.
func scoreUnknownCandidate(reading string, trace []Interval, start, distance int, opt ResyncOptions) int {
	firstIdx := -1
	var firstNorm string
	limit := start + 5
	if limit > len(trace) {
		limit = len(trace)
	}
	for k := start + 1; k < limit; k++ {
		label := trace[k].Label
		if label == "" || label == UnknownLabel {
			continue
		}
		norm := normalizeLabel(label)
		pos := strings.Index(prefixRunes(reading, 20), norm)
		if pos >= 0 && utf8.RuneCountInString(reading[:pos]) < 10 {
			firstIdx = k
			firstNorm = norm
			break
		}
	}
	if firstIdx < 0 {
		return 0
	}

	pos := strings.Index(reading, firstNorm)
	if pos < 0 {
		return 0
	}
	score := utf8.RuneCountInString(firstNorm)
	textPos := pos + len(firstNorm)
	score += scoreContinuation(reading, &textPos, trace, firstIdx+1, opt)
	return applyPenalty(score, distance, opt)
}

// scoreContinuation greedily extends a match with following recognized
// entries, each within opt.MaxGap runes of the previous match.
func scoreContinuation(reading string, textPos *int, trace []Interval, from int, opt ResyncOptions) int {
	score := 0
	limit := from + opt.Continuation - 1
	if limit > len(trace) {
		limit = len(trace)
	}
	for j := from; j < limit; j++ {
		label := trace[j].Label
		if label == "" || label == UnknownLabel {
			continue
		}
		norm := normalizeLabel(label)
		if norm == "" {
			continue
		}
		window := prefixRunes(reading[*textPos:], opt.SearchWindow)
		pos := strings.Index(window, norm)
		if pos < 0 || utf8.RuneCountInString(window[:pos]) >= opt.MaxGap {
			break
		}
		score += utf8.RuneCountInString(norm)
		*textPos += pos + len(norm)
	}
	return score
}

func applyPenalty(score, distance int, opt ResyncOptions) int {
	penalty := 1.0 - float64(distance)/float64(opt.PenaltySpan)
	if penalty < 0.1 {
		penalty = 0.1
	}
	return int(float64(score) * penalty)
}

// prefixRunes returns the prefix of s holding at most n runes.
func prefixRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}
