package diarize

import (
	"fmt"
	"sort"
)

// BuildActivityTimeline converts an ordered activity-event stream into a
// sequence of non-overlapping per-speaker SpeakerBlocks, relative to
// rec.Start. speakerOffsetSeconds (Config.SpeakerOffsetSeconds) is applied
// additively to every block boundary before returning, modelling a known
// clock skew between the activity recorder and the audio clock.
func BuildActivityTimeline(events []ActivityEvent, rec RecordingContext, speakerOffsetSeconds float64) ([]SpeakerBlock, error) {
	active := make(map[string]float64)
	var blocks []SpeakerBlock

	haveLast := false
	var lastRel float64

	for _, ev := range events {
		rel := ev.At.Sub(rec.Start).Seconds()
		if rel < 0 {
			rel = 0
		}
		if haveLast && rel < lastRel {
			return nil, fmt.Errorf("%w: activity events are not monotone (at %.3fs after %.3fs)", ErrInvalidInput, rel, lastRel)
		}
		lastRel = rel
		haveLast = true

		current := make(map[string]bool, len(ev.Speakers))
		for _, s := range ev.Speakers {
			current[s] = true
		}

		for s, start := range active {
			if !current[s] {
				blocks = append(blocks, SpeakerBlock{Speaker: s, StartRel: start, EndRel: rel})
				delete(active, s)
			}
		}
		for s := range current {
			if _, ok := active[s]; !ok {
				active[s] = rel
			}
		}
	}

	closeAt := lastRel
	if rec.Duration > 0 {
		closeAt = rec.Duration.Seconds()
	}
	// Keep deterministic iteration order for the speakers still open at
	// end-of-stream so repeated runs produce identical block ordering
	// before the final sort.
	openSpeakers := make([]string, 0, len(active))
	for s := range active {
		openSpeakers = append(openSpeakers, s)
	}
	sort.Strings(openSpeakers)
	for _, s := range openSpeakers {
		blocks = append(blocks, SpeakerBlock{Speaker: s, StartRel: active[s], EndRel: closeAt})
	}

	for i := range blocks {
		blocks[i].StartRel += speakerOffsetSeconds
		blocks[i].EndRel += speakerOffsetSeconds
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].StartRel < blocks[j].StartRel
	})

	return blocks, nil
}
