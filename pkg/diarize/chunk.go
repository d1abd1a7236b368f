package diarize

import "math"

// AudioChunk is a time-contiguous slice of an oversize audio blob, as
// produced by PlanAudioChunks.
type AudioChunk struct {
	Bytes         []byte
	OffsetSeconds float64
}

// PlanAudioChunks implements the byte-range splitting algorithm of
// spec.md section 4.3: given a total audio size, its duration, and a
// provider byte cap, it returns time-contiguous chunks whose combined
// bytes reconstruct the original blob and whose OffsetSeconds values are
// the seconds to add back to each chunk's internal timings.
//
// Audio is assumed to carry a constant bytes-per-millisecond rate, which
// holds for the PCM/WAV inputs this core accepts; chunk boundaries are
// therefore computed by byte proportion rather than by parsing the audio
// container.
func PlanAudioChunks(audio []byte, durationMS int64, maxBytes int64) []AudioChunk {
	total := int64(len(audio))
	if total <= maxBytes || durationMS <= 0 {
		return []AudioChunk{{Bytes: audio, OffsetSeconds: 0}}
	}

	chunkMS := int64(math.Floor(float64(durationMS) * float64(maxBytes) / float64(total)))
	if chunkMS <= 0 {
		chunkMS = 10000
	}
	numChunks := int64(math.Ceil(float64(durationMS) / float64(chunkMS)))
	if numChunks < 1 {
		numChunks = 1
	}

	bytesPerMS := float64(total) / float64(durationMS)

	chunks := make([]AudioChunk, 0, numChunks)
	var start int64
	for i := int64(0); i < numChunks; i++ {
		var end int64
		if i == numChunks-1 {
			end = total
		} else {
			end = int64(math.Floor(float64(i+1) * float64(chunkMS) * bytesPerMS))
			if end > total {
				end = total
			}
		}
		if end < start {
			end = start
		}
		chunks = append(chunks, AudioChunk{
			Bytes:         audio[start:end],
			OffsetSeconds: float64(i*chunkMS) / 1000.0,
		})
		start = end
	}
	return chunks
}
