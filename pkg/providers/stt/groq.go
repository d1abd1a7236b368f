package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/lokutor-ai/lokutor-diarizer/pkg/audio"
	"github.com/lokutor-ai/lokutor-diarizer/pkg/diarize"
)

type GroqSTT struct {
	apiKey     string
	url        string
	model      string
	sampleRate int
	maxBytes   int64
}

func NewGroqSTT(apiKey string, model string) *GroqSTT {
	if model == "" {
		model = "whisper-large-v3-turbo"
	}
	return &GroqSTT{
		apiKey:     apiKey,
		url:        "https://api.groq.com/openai/v1/audio/transcriptions",
		model:      model,
		sampleRate: 44100,
		maxBytes:   defaultMaxBytes,
	}
}

func (s *GroqSTT) SetSampleRate(rate int) {
	s.sampleRate = rate
}

func (s *GroqSTT) SetMaxBytes(n int64) {
	s.maxBytes = n
}

func (s *GroqSTT) MaxBytes() int64 {
	return s.maxBytes
}

// Transcribe requests a verbose JSON response with segment timestamps,
// Groq's Whisper endpoint being OpenAI-compatible. Like OpenAI, it carries
// no speaker ids, so this provider always feeds the segment-level path.
func (s *GroqSTT) Transcribe(ctx context.Context, audioPCM []byte) (diarize.RawSTTResponse, error) {
	wavData := audio.NewWavBuffer(audioPCM, s.sampleRate)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("model", s.model); err != nil {
		return diarize.RawSTTResponse{}, err
	}
	if err := writer.WriteField("response_format", "verbose_json"); err != nil {
		return diarize.RawSTTResponse{}, err
	}

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return diarize.RawSTTResponse{}, err
	}
	if _, err := io.Copy(part, bytes.NewReader(wavData)); err != nil {
		return diarize.RawSTTResponse{}, err
	}

	if err := writer.Close(); err != nil {
		return diarize.RawSTTResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.url, body)
	if err != nil {
		return diarize.RawSTTResponse{}, err
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return diarize.RawSTTResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return diarize.RawSTTResponse{}, fmt.Errorf("groq stt error (status %d): %v", resp.StatusCode, errResp)
	}

	var result struct {
		Text     string `json:"text"`
		Segments []struct {
			Text  string  `json:"text"`
			Start float64 `json:"start"`
			End   float64 `json:"end"`
		} `json:"segments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return diarize.RawSTTResponse{}, err
	}

	raw := diarize.RawSTTResponse{FullText: result.Text}
	for _, seg := range result.Segments {
		raw.Segments = append(raw.Segments, diarize.STTSegment{
			Text:     seg.Text,
			StartRel: seg.Start,
			EndRel:   seg.End,
		})
	}
	return raw, nil
}

func (s *GroqSTT) Name() string {
	return "groq-stt"
}
