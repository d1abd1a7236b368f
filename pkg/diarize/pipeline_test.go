package diarize

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeSTT struct {
	raw      RawSTTResponse
	maxBytes int64
	err      error
}

func (f *fakeSTT) Name() string    { return "fake_stt" }
func (f *fakeSTT) MaxBytes() int64 { return f.maxBytes }
func (f *fakeSTT) Transcribe(ctx context.Context, audio []byte) (RawSTTResponse, error) {
	if f.err != nil {
		return RawSTTResponse{}, f.err
	}
	return f.raw, nil
}

func TestPipelineRun_SegmentPathEndToEnd(t *testing.T) {
	start := mustParse(t, "2025-02-19T08:29:10+00:00")
	rec := RecordingContext{Start: start, Duration: 6 * time.Second}
	events := []ActivityEvent{
		{At: start, Speakers: []string{"Ada"}},
		{At: start.Add(3 * time.Second), Speakers: []string{"Ben"}},
		{At: start.Add(5 * time.Second), Speakers: nil},
	}

	stt := &fakeSTT{
		maxBytes: 1 << 20,
		raw: RawSTTResponse{
			FullText: "hello world goodbye",
			Segments: []STTSegment{
				{Text: "hello world", StartRel: 0, EndRel: 3},
				{Text: "goodbye", StartRel: 3, EndRel: 5},
			},
		},
	}
	llm := &mockLLM{response: "a short summary"}

	p := NewPipeline(stt, llm)
	out, err := p.Run(context.Background(), rec, []byte("audio-bytes"), 6000, events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Utterances) != 2 {
		t.Fatalf("expected 2 utterances, got %d: %+v", len(out.Utterances), out.Utterances)
	}
	if out.Utterances[0].Speaker != "Ada" || out.Utterances[1].Speaker != "Ben" {
		t.Fatalf("unexpected speakers: %+v", out.Utterances)
	}
	if out.TLDR == nil || *out.TLDR == "" {
		t.Fatal("expected a non-nil TLDR")
	}
	if out.FullText != "hello world goodbye" {
		t.Fatalf("unexpected full text: %q", out.FullText)
	}
}

func TestPipelineRun_WordPathDispatchedWhenSpeakerIDsPresent(t *testing.T) {
	start := mustParse(t, "2025-02-19T08:29:10+00:00")
	rec := RecordingContext{Start: start}
	events := []ActivityEvent{
		{At: start, Speakers: []string{"Ada"}},
		{At: start.Add(600 * time.Millisecond), Speakers: []string{"Ben"}},
	}

	stt := &fakeSTT{
		maxBytes: 1 << 20,
		raw: RawSTTResponse{
			FullText: "yes no maybe so",
			Words: []STTWord{
				{Kind: WordKindWord, Text: "yes", StartRel: 0, EndRel: 0.3, SpeakerID: "X"},
				{Kind: WordKindWord, Text: "no", StartRel: 0.3, EndRel: 0.6, SpeakerID: "X"},
				{Kind: WordKindWord, Text: "maybe", StartRel: 0.6, EndRel: 0.9, SpeakerID: "Y"},
				{Kind: WordKindWord, Text: "so", StartRel: 0.9, EndRel: 1.2, SpeakerID: "Y"},
			},
		},
	}

	p := NewPipeline(stt, nil)
	p.Config.MinUtteranceSeconds = 0
	out, err := p.Run(context.Background(), rec, []byte("audio-bytes"), 1200, events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Utterances) != 2 {
		t.Fatalf("expected 2 utterances, got %d: %+v", len(out.Utterances), out.Utterances)
	}
	if out.TLDR != nil {
		t.Fatalf("expected nil TLDR when no Summarizer is configured, got %q", *out.TLDR)
	}
}

func TestPipelineRun_SummarizerFailureDoesNotFailPipeline(t *testing.T) {
	start := mustParse(t, "2025-02-19T08:29:10+00:00")
	rec := RecordingContext{Start: start, Duration: 3 * time.Second}
	events := []ActivityEvent{{At: start, Speakers: []string{"Ada"}}}

	stt := &fakeSTT{
		maxBytes: 1 << 20,
		raw: RawSTTResponse{
			FullText: "hello there",
			Segments: []STTSegment{{Text: "hello there", StartRel: 0, EndRel: 3}},
		},
	}
	llm := &mockLLM{fail: true}

	p := NewPipeline(stt, llm)
	out, err := p.Run(context.Background(), rec, []byte("audio-bytes"), 3000, events)
	if err != nil {
		t.Fatalf("expected the pipeline to succeed despite the summariser failing, got %v", err)
	}
	if out.TLDR != nil {
		t.Fatalf("expected nil TLDR on summariser failure, got %q", *out.TLDR)
	}
	if len(out.Utterances) != 1 {
		t.Fatalf("expected the transcript itself to still be produced, got %+v", out.Utterances)
	}
}

func TestPipelineRun_STTFailurePropagates(t *testing.T) {
	start := mustParse(t, "2025-02-19T08:29:10+00:00")
	rec := RecordingContext{Start: start}

	stt := &fakeSTT{maxBytes: 1 << 20, err: errors.New("upstream 503")}
	p := NewPipeline(stt, nil)

	_, err := p.Run(context.Background(), rec, []byte("audio-bytes"), 1000, nil)
	if err == nil || !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected a wrapped ErrProviderUnavailable, got %v", err)
	}
}

func TestPipelineRun_RejectsEmptyAudio(t *testing.T) {
	p := NewPipeline(&fakeSTT{maxBytes: 1 << 20}, nil)
	_, err := p.Run(context.Background(), RecordingContext{Start: mustParse(t, "2025-02-19T08:29:10+00:00")}, nil, 0, nil)
	if err == nil || !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty audio, got %v", err)
	}
}
