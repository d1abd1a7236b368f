package diarize

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentChunks bounds the number of in-flight STT requests a single
// Transcribe call will issue, independent of how many chunks a recording
// splits into.
const maxConcurrentChunks = 4

// STTProvider adapts a speech-to-text backend to the diarization core. A
// provider returns its own notion of segments and/or word timestamps;
// whichever it supplies is carried through unmodified in RawSTTResponse so
// C2 can decide which normalization path applies.
type STTProvider interface {
	Transcribe(ctx context.Context, audio []byte) (RawSTTResponse, error)
	MaxBytes() int64
	Name() string
}

// chunkResult pairs a chunk's raw provider output with its position and
// offset, so results can be reassembled in order regardless of completion
// order.
type chunkResult struct {
	index  int
	offset float64
	raw    RawSTTResponse
}

// Transcribe drives a (possibly oversize) audio blob through provider,
// splitting it into time-contiguous chunks per PlanAudioChunks when it
// exceeds provider.MaxBytes(), transcribing chunks with up to
// maxConcurrentChunks requests in flight, and reassembling the results into
// a single RawSTTResponse with all relative timestamps corrected back to
// the full recording's clock.
//
// Any chunk failure aborts the whole call: the in-flight group is
// cancelled and no partial transcript is returned. This matches the
// pipeline's no-partial-success contract — a half-transcribed recording is
// worse than a clear failure.
func Transcribe(ctx context.Context, provider STTProvider, audio []byte, durationMS int64, logger Logger) (RawSTTResponse, error) {
	if logger == nil {
		logger = &NoOpLogger{}
	}

	chunks := PlanAudioChunks(audio, durationMS, provider.MaxBytes())

	if len(chunks) == 1 {
		reqID := uuid.NewString()
		logger.Debug("transcribing single chunk", "request_id", reqID, "provider", provider.Name(), "bytes", len(chunks[0].Bytes))
		raw, err := provider.Transcribe(ctx, chunks[0].Bytes)
		if err != nil {
			return RawSTTResponse{}, fmt.Errorf("%w: %s: %v", ErrProviderUnavailable, provider.Name(), err)
		}
		return raw, nil
	}

	logger.Info("splitting oversize audio for transcription", "provider", provider.Name(), "chunks", len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentChunks)

	results := make([]chunkResult, len(chunks))
	for i, c := range chunks {
		i, c := i, c
		g.Go(func() error {
			reqID := uuid.NewString()
			logger.Debug("transcribing chunk", "request_id", reqID, "provider", provider.Name(), "index", i, "offset_seconds", c.OffsetSeconds, "bytes", len(c.Bytes))
			raw, err := provider.Transcribe(gctx, c.Bytes)
			if err != nil {
				return fmt.Errorf("%w: %s chunk %d: %v", ErrProviderUnavailable, provider.Name(), i, err)
			}
			results[i] = chunkResult{index: i, offset: c.OffsetSeconds, raw: raw}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return RawSTTResponse{}, err
	}

	return mergeChunkResults(results), nil
}

// mergeChunkResults concatenates per-chunk RawSTTResponses in chunk order,
// correcting each chunk's segment and word timestamps by its offset before
// joining.
func mergeChunkResults(results []chunkResult) RawSTTResponse {
	var merged RawSTTResponse
	var texts []string

	for _, r := range results {
		normalized := ApplyOffset(NormalizedTranscript{
			FullText: r.raw.FullText,
			Segments: r.raw.Segments,
			Words:    r.raw.Words,
		}, r.offset)

		if normalized.FullText != "" {
			texts = append(texts, normalized.FullText)
		}
		merged.Segments = append(merged.Segments, normalized.Segments...)
		merged.Words = append(merged.Words, normalized.Words...)
	}

	for i, t := range texts {
		if i > 0 {
			merged.FullText += " "
		}
		merged.FullText += t
	}

	return merged
}
