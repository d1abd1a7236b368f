package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/lokutor-ai/lokutor-diarizer/pkg/diarize"
)

type DeepgramSTT struct {
	apiKey     string
	url        string
	sampleRate int
	maxBytes   int64
}

func NewDeepgramSTT(apiKey string) *DeepgramSTT {
	return &DeepgramSTT{
		apiKey:     apiKey,
		url:        "https://api.deepgram.com/v1/listen",
		sampleRate: 44100,
		maxBytes:   defaultMaxBytes,
	}
}

func (s *DeepgramSTT) SetSampleRate(rate int) {
	s.sampleRate = rate
}

func (s *DeepgramSTT) SetMaxBytes(n int64) {
	s.maxBytes = n
}

func (s *DeepgramSTT) MaxBytes() int64 {
	return s.maxBytes
}

func (s *DeepgramSTT) Name() string {
	return "deepgram-stt"
}

// Transcribe requests diarized word timestamps. Deepgram tags each word
// with a numeric speaker index, which is carried through as the opaque
// speaker_id the word-level assignment path maps to a display-name.
func (s *DeepgramSTT) Transcribe(ctx context.Context, audioPCM []byte) (diarize.RawSTTResponse, error) {
	u, err := url.Parse(s.url)
	if err != nil {
		return diarize.RawSTTResponse{}, err
	}

	params := u.Query()
	params.Set("model", "nova-2")
	params.Set("smart_format", "true")
	params.Set("diarize", "true")
	params.Set("punctuate", "true")
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "POST", u.String(), bytes.NewReader(audioPCM))
	if err != nil {
		return diarize.RawSTTResponse{}, err
	}

	req.Header.Set("Authorization", "Token "+s.apiKey)
	req.Header.Set("Content-Type", fmt.Sprintf("audio/l16; rate=%d; channels=1", s.sampleRate))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return diarize.RawSTTResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return diarize.RawSTTResponse{}, fmt.Errorf("deepgram error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Results struct {
			Channels []struct {
				Alternatives []struct {
					Transcript string `json:"transcript"`
					Words      []struct {
						Word    string  `json:"word"`
						Start   float64 `json:"start"`
						End     float64 `json:"end"`
						Speaker int     `json:"speaker"`
					} `json:"words"`
				} `json:"alternatives"`
			} `json:"channels"`
		} `json:"results"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return diarize.RawSTTResponse{}, err
	}

	if len(result.Results.Channels) == 0 || len(result.Results.Channels[0].Alternatives) == 0 {
		return diarize.RawSTTResponse{}, nil
	}

	alt := result.Results.Channels[0].Alternatives[0]
	raw := diarize.RawSTTResponse{FullText: alt.Transcript}
	for _, w := range alt.Words {
		raw.Words = append(raw.Words, diarize.STTWord{
			Kind:      diarize.WordKindWord,
			Text:      w.Word,
			StartRel:  w.Start,
			EndRel:    w.End,
			SpeakerID: strconv.Itoa(w.Speaker),
		})
	}
	return raw, nil
}
