package diarize

import "strings"

// NormalizeSegments implements C2's path (a): pass the provider's own
// segments through, dropping any whose trimmed text is empty.
func NormalizeSegments(fullText string, segments []STTSegment) NormalizedTranscript {
	out := make([]STTSegment, 0, len(segments))
	for _, s := range segments {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		out = append(out, s)
	}
	return NormalizedTranscript{FullText: fullText, Segments: out}
}

// NormalizeWords implements C2's path (b): synthesize segments from a
// word stream by grouping consecutive "word" entries while the same
// speaker_id holds and the inter-word gap stays under
// minSpeakerChangeGapSeconds. A trailing "punctuation" entry appends to
// the previous word without an intervening space.
func NormalizeWords(fullText string, words []STTWord, minSpeakerChangeGapSeconds float64) NormalizedTranscript {
	segments := make([]STTSegment, 0)

	var cur *STTSegment
	var curSpeaker string
	var lastWordEnd float64
	haveLast := false

	flush := func() {
		if cur != nil && strings.TrimSpace(cur.Text) != "" {
			segments = append(segments, *cur)
		}
		cur = nil
		haveLast = false
	}

	for _, w := range words {
		switch w.Kind {
		case WordKindWord:
			gapBroken := haveLast && (w.StartRel-lastWordEnd) >= minSpeakerChangeGapSeconds
			speakerChanged := cur != nil && w.SpeakerID != curSpeaker
			if cur == nil || gapBroken || speakerChanged {
				flush()
				cur = &STTSegment{Text: w.Text, StartRel: w.StartRel, EndRel: w.EndRel}
				curSpeaker = w.SpeakerID
			} else {
				cur.Text += " " + w.Text
				cur.EndRel = w.EndRel
			}
			lastWordEnd = w.EndRel
			haveLast = true
		case WordKindPunctuation:
			if cur != nil {
				cur.Text += w.Text
				if w.EndRel > cur.EndRel {
					cur.EndRel = w.EndRel
				}
			}
		case WordKindSpacing:
			// carries no text of its own; ignored for segment synthesis.
		}
	}
	flush()

	return NormalizedTranscript{FullText: fullText, Segments: segments, Words: words}
}

// ApplyOffset adds offsetSeconds to every segment's and word's start/end,
// used by C3 to correct chunk-relative timings back to recording-relative
// timings before concatenation.
func ApplyOffset(nt NormalizedTranscript, offsetSeconds float64) NormalizedTranscript {
	if offsetSeconds == 0 {
		return nt
	}
	out := NormalizedTranscript{FullText: nt.FullText}
	if nt.Segments != nil {
		out.Segments = make([]STTSegment, len(nt.Segments))
		for i, s := range nt.Segments {
			s.StartRel += offsetSeconds
			s.EndRel += offsetSeconds
			out.Segments[i] = s
		}
	}
	if nt.Words != nil {
		out.Words = make([]STTWord, len(nt.Words))
		for i, w := range nt.Words {
			w.StartRel += offsetSeconds
			w.EndRel += offsetSeconds
			out.Words[i] = w
		}
	}
	return out
}

// FormatParagraphs formats a normalized transcript's segments into
// paragraphs, breaking after a segment that ends in sentence-final
// punctuation when the gap to the next segment is at least
// cfg.ParagraphBreakGapSeconds. This mirrors the original recorder's
// format_transcript behavior; it is a display helper and does not change
// the flat FullText used for the no-loss invariant.
func FormatParagraphs(nt NormalizedTranscript, cfg Config) string {
	if len(nt.Segments) == 0 {
		return nt.FullText
	}

	var paragraphs []string
	var current []string

	for i, seg := range nt.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		current = append(current, text)

		if i < len(nt.Segments)-1 {
			gap := nt.Segments[i+1].StartRel - seg.EndRel
			last := text[len(text)-1]
			if gap >= cfg.ParagraphBreakGapSeconds && (last == '.' || last == '!' || last == '?') {
				paragraphs = append(paragraphs, strings.Join(current, " "))
				current = nil
			}
		}
	}
	if len(current) > 0 {
		paragraphs = append(paragraphs, strings.Join(current, " "))
	}

	return strings.Join(paragraphs, "\n\n")
}
