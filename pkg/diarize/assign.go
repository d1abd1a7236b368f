package diarize

import (
	"sort"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// sentenceSplitPattern matches the whitespace run that follows
// sentence-final punctuation. Go's RE2 engine cannot express the
// lookbehind this needs, hence regexp2.
var sentenceSplitPattern = regexp2.MustCompile(`(?<=[.!?])\s+`, regexp2.None)

// splitSentences splits text on sentenceSplitPattern, discarding the
// matched separator. Text with no terminal punctuation falls back to a
// single "sentence" spanning the whole string.
func splitSentences(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	var parts []string
	lastEnd := 0
	m, _ := sentenceSplitPattern.FindStringMatch(trimmed)
	for m != nil {
		parts = append(parts, trimmed[lastEnd:m.Index])
		lastEnd = m.Index + m.Length
		m, _ = sentenceSplitPattern.FindNextMatch(m)
	}
	parts = append(parts, trimmed[lastEnd:])

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{trimmed}
	}
	return out
}

// relUtterance is an utterance expressed in recording-relative seconds,
// the common currency both assignment paths work in before the final
// conversion to absolute instants.
type relUtterance struct {
	Speaker  string
	Text     string
	StartRel float64
	EndRel   float64
}

func toAbsolute(rec RecordingContext, utts []relUtterance) []DiarizedUtterance {
	out := make([]DiarizedUtterance, len(utts))
	for i, u := range utts {
		out[i] = DiarizedUtterance{
			Speaker: u.Speaker,
			Text:    u.Text,
			Start:   rec.Start.Add(secondsToDuration(u.StartRel)),
			End:     rec.Start.Add(secondsToDuration(u.EndRel)),
		}
	}
	return out
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// mergeRelUtterances merges consecutive same-speaker utterances whose gap
// is below gapSeconds, normalising interior whitespace in the joined
// text. It is idempotent: running it again on its own output is a no-op.
func mergeRelUtterances(utts []relUtterance, gapSeconds float64) []relUtterance {
	if len(utts) == 0 {
		return utts
	}
	merged := []relUtterance{utts[0]}
	for _, next := range utts[1:] {
		last := &merged[len(merged)-1]
		if next.Speaker == last.Speaker && next.StartRel-last.EndRel < gapSeconds {
			last.Text = strings.Join(strings.Fields(last.Text+" "+next.Text), " ")
			last.EndRel = next.EndRel
			continue
		}
		merged = append(merged, next)
	}
	for i := range merged {
		merged[i].Text = strings.Join(strings.Fields(merged[i].Text), " ")
	}
	return merged
}

// mostRecentSpeakerAt returns the first speaker of the most recent
// non-empty ActivityEvent at or before at, or "" if no such event
// exists. events need not be pre-sorted.
func mostRecentSpeakerAt(events []ActivityEvent, at time.Time) string {
	sorted := make([]ActivityEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At.Before(sorted[j].At) })

	var speaker string
	for _, ev := range sorted {
		if ev.At.After(at) {
			break
		}
		if len(ev.Speakers) > 0 {
			speaker = ev.Speakers[0]
		}
	}
	return speaker
}

// firstAppearance maps each speaker to the time of the earliest activity
// event in which it appears, used to break voting ties.
func firstAppearance(events []ActivityEvent) map[string]time.Time {
	sorted := make([]ActivityEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At.Before(sorted[j].At) })

	out := make(map[string]time.Time)
	for _, ev := range sorted {
		for _, s := range ev.Speakers {
			if _, ok := out[s]; !ok {
				out[s] = ev.At
			}
		}
	}
	return out
}

// blockSearch implements the §4.4.2 step 4 fallback rules, in order: a
// block fully contained in the range, a block ongoing at its start, or a
// block starting inside it. Returns "" if none match.
func blockSearch(blocks []SpeakerBlock, startRel, endRel float64) string {
	for _, b := range blocks {
		if b.StartRel >= startRel && b.EndRel <= endRel {
			return b.Speaker
		}
	}
	for _, b := range blocks {
		if b.StartRel <= startRel && b.EndRel >= startRel {
			return b.Speaker
		}
	}
	for _, b := range blocks {
		if b.StartRel >= startRel && b.StartRel <= endRel {
			return b.Speaker
		}
	}
	return ""
}

// overlapDuration sums the intersection, in seconds, of every block
// belonging to speaker with [startRel, endRel].
func overlapDuration(blocks []SpeakerBlock, speaker string, startRel, endRel float64) float64 {
	var total float64
	for _, b := range blocks {
		if b.Speaker != speaker {
			continue
		}
		if b.EndRel <= startRel || b.StartRel >= endRel {
			continue
		}
		start := b.StartRel
		if startRel > start {
			start = startRel
		}
		end := b.EndRel
		if endRel < end {
			end = endRel
		}
		total += end - start
	}
	return total
}

// speakerNames returns the distinct speaker names present in blocks, in
// sorted order, so reassignment search order is deterministic.
func speakerNames(blocks []SpeakerBlock) []string {
	seen := make(map[string]bool)
	var names []string
	for _, b := range blocks {
		if !seen[b.Speaker] {
			seen[b.Speaker] = true
			names = append(names, b.Speaker)
		}
	}
	sort.Strings(names)
	return names
}

// AssignSegmentPath implements §4.4.2: segment-level speaker assignment
// by activity-timeline midpoint lookup, with a block-search fallback and
// a duration-ratio reassignment check, followed by consecutive-speaker
// merging.
func AssignSegmentPath(segments []STTSegment, events []ActivityEvent, blocks []SpeakerBlock, rec RecordingContext, cfg Config) []DiarizedUtterance {
	var utts []relUtterance

	for _, seg := range segments {
		sentences := splitSentences(seg.Text)
		if len(sentences) == 0 {
			continue
		}

		totalChars := 0
		for _, s := range sentences {
			totalChars += len([]rune(s))
		}
		if totalChars == 0 {
			totalChars = len(sentences)
		}

		span := seg.EndRel - seg.StartRel
		cursor := seg.StartRel
		for _, s := range sentences {
			chars := len([]rune(s))
			width := span
			if totalChars > 0 {
				width = span * float64(chars) / float64(totalChars)
			}
			subStart := cursor
			subEnd := subStart + width
			cursor = subEnd

			mid := subStart + (subEnd-subStart)/2
			speaker := mostRecentSpeakerAt(events, rec.Start.Add(secondsToDuration(mid)))
			if speaker == "" {
				speaker = blockSearch(blocks, seg.StartRel, seg.EndRel)
			}
			if speaker == "" {
				speaker = UnknownSpeaker
			}

			if speaker != UnknownSpeaker {
				assignedDur := overlapDuration(blocks, speaker, seg.StartRel, seg.EndRel)
				for _, other := range speakerNames(blocks) {
					if other == speaker {
						continue
					}
					otherDur := overlapDuration(blocks, other, seg.StartRel, seg.EndRel)
					if otherDur >= assignedDur*cfg.DurationRatio {
						speaker = other
						break
					}
				}
			}

			utts = append(utts, relUtterance{Speaker: speaker, Text: s, StartRel: subStart, EndRel: subEnd})
		}
	}

	return toAbsolute(rec, mergeRelUtterances(utts, cfg.MergeGapSecondsSegmentPath))
}

// wordProviderSegment is a maximal run of consecutive words sharing a
// speaker_id, extracted per §4.4.1 step 1.
type wordProviderSegment struct {
	SpeakerID string
	StartRel  float64
	EndRel    float64
}

func extractWordProviderSegments(words []STTWord, cfg Config) []wordProviderSegment {
	var segments []wordProviderSegment
	var cur *wordProviderSegment

	flush := func() {
		if cur != nil && cur.EndRel-cur.StartRel >= cfg.MinUtteranceSeconds {
			segments = append(segments, *cur)
		}
		cur = nil
	}

	for _, w := range words {
		if w.Kind != WordKindWord || w.SpeakerID == "" {
			continue
		}
		if cur == nil || cur.SpeakerID != w.SpeakerID || w.StartRel-cur.EndRel > cfg.MinSpeakerChangeGapSeconds {
			flush()
			cur = &wordProviderSegment{SpeakerID: w.SpeakerID, StartRel: w.StartRel, EndRel: w.EndRel}
		} else {
			cur.EndRel = w.EndRel
		}
	}
	flush()

	return segments
}

// voteSpeakerMap implements §4.4.1 steps 2-3: for each provider segment,
// sample the activity log at evenly-spaced points and tally which
// display-name was active; each speaker_id maps to its best-voted name,
// ties broken by earliest first appearance in the activity log.
func voteSpeakerMap(segments []wordProviderSegment, events []ActivityEvent, rec RecordingContext) map[string]string {
	votes := make(map[string]map[string]int)

	for _, seg := range segments {
		duration := seg.EndRel - seg.StartRel
		numSamples := int(duration / 0.5)
		if numSamples < 3 {
			numSamples = 3
		}

		for i := 0; i < numSamples; i++ {
			sampleRel := seg.StartRel + duration*float64(i)/float64(numSamples-1)
			speaker := mostRecentSpeakerAt(events, rec.Start.Add(secondsToDuration(sampleRel)))
			if speaker == "" {
				continue
			}
			if votes[seg.SpeakerID] == nil {
				votes[seg.SpeakerID] = make(map[string]int)
			}
			votes[seg.SpeakerID][speaker]++
		}
	}

	firstSeen := firstAppearance(events)

	speakerMap := make(map[string]string)
	for speakerID, tally := range votes {
		best := ""
		bestCount := -1
		for name, count := range tally {
			if count > bestCount {
				best, bestCount = name, count
				continue
			}
			if count == bestCount && firstSeen[name].Before(firstSeen[best]) {
				best = name
			}
		}
		speakerMap[speakerID] = best
	}
	return speakerMap
}

// AssignWordPath implements §4.4.1: speaker_id-to-display-name mapping by
// activity-log voting, followed by utterance construction from the raw
// word stream and consecutive-speaker merging.
func AssignWordPath(words []STTWord, events []ActivityEvent, rec RecordingContext, cfg Config) []DiarizedUtterance {
	segments := extractWordProviderSegments(words, cfg)
	speakerMap := voteSpeakerMap(segments, events, rec)

	var utts []relUtterance
	var cur *relUtterance

	for _, w := range words {
		if w.Kind != WordKindWord {
			continue
		}
		name := UnknownSpeaker
		if w.SpeakerID != "" {
			if mapped, ok := speakerMap[w.SpeakerID]; ok && mapped != "" {
				name = mapped
			}
		}

		if cur == nil || cur.Speaker != name {
			if cur != nil {
				utts = append(utts, *cur)
			}
			cur = &relUtterance{Speaker: name, Text: w.Text, StartRel: w.StartRel, EndRel: w.EndRel}
		} else {
			cur.Text += " " + w.Text
			cur.EndRel = w.EndRel
		}
	}
	if cur != nil {
		utts = append(utts, *cur)
	}

	return toAbsolute(rec, mergeRelUtterances(utts, cfg.MergeGapSecondsWordPath))
}
