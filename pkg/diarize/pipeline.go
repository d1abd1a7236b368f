package diarize

import (
	"context"
	"fmt"
)

// Pipeline wires the five components (C1-C5) into the single entry point
// a caller uses to turn a raw recording hand-off into a DiarizedTranscript.
// Each field is independently swappable so tests can substitute fakes.
type Pipeline struct {
	STT        STTProvider
	Summarizer LLMProvider
	Config     Config
	Prompts    PromptBundle
	Logger     Logger
}

// NewPipeline builds a Pipeline with default configuration and prompts. A
// nil Summarizer is valid: the resulting transcript simply carries a nil
// TL;DR.
func NewPipeline(stt STTProvider, summarizer LLMProvider) *Pipeline {
	return &Pipeline{
		STT:        stt,
		Summarizer: summarizer,
		Config:     DefaultConfig(),
		Prompts:    DefaultPromptBundle(),
		Logger:     &NoOpLogger{},
	}
}

// Run drives a full recording through C1-C5: it transcribes (chunking as
// needed), normalizes, builds the activity timeline, dispatches to the
// word-level or segment-level speaker assigner depending on what the
// provider returned, and attaches a best-effort summary.
func (p *Pipeline) Run(ctx context.Context, rec RecordingContext, audio []byte, audioDurationMS int64, events []ActivityEvent) (*DiarizedTranscript, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty audio", ErrInvalidInput)
	}
	if rec.Start.IsZero() {
		return nil, fmt.Errorf("%w: recording_start is required", ErrInvalidInput)
	}
	if p.STT == nil {
		return nil, fmt.Errorf("%w: no STT provider configured", ErrInvalidInput)
	}

	logger := p.Logger
	if logger == nil {
		logger = &NoOpLogger{}
	}

	raw, err := Transcribe(ctx, p.STT, audio, audioDurationMS, logger)
	if err != nil {
		return nil, err
	}

	hasSpeakerIDs := (NormalizedTranscript{Words: raw.Words}).HasSpeakerIDs()

	blocks, err := BuildActivityTimeline(events, rec, p.Config.SpeakerOffsetSeconds)
	if err != nil {
		return nil, err
	}

	var nt NormalizedTranscript
	var utts []DiarizedUtterance

	if hasSpeakerIDs {
		nt = NormalizeWords(raw.FullText, raw.Words, p.Config.MinSpeakerChangeGapSeconds)
		logger.Debug("dispatching word-level speaker assignment", "words", len(raw.Words))
		utts = AssignWordPath(raw.Words, events, rec, p.Config)
	} else {
		if len(raw.Segments) == 0 {
			return nil, fmt.Errorf("%w: provider returned neither words nor segments", ErrProviderContract)
		}
		nt = NormalizeSegments(raw.FullText, raw.Segments)
		logger.Debug("dispatching segment-level speaker assignment", "segments", len(nt.Segments))
		utts = AssignSegmentPath(nt.Segments, events, blocks, rec, p.Config)
	}

	var tldr *string
	if p.Summarizer != nil {
		tldr = Summarize(ctx, p.Summarizer, utts, p.Config, p.Prompts, logger)
	}

	return &DiarizedTranscript{
		FullText:   nt.FullText,
		Utterances: utts,
		TLDR:       tldr,
	}, nil
}
