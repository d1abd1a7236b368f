package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/lokutor-ai/lokutor-diarizer/pkg/audio"
	"github.com/lokutor-ai/lokutor-diarizer/pkg/diarize"
)

// defaultMaxBytes mirrors the core's default stt_max_bytes.
const defaultMaxBytes int64 = 26214400

type OpenAISTT struct {
	apiKey     string
	url        string
	model      string
	sampleRate int
	maxBytes   int64
}

func NewOpenAISTT(apiKey string, model string) *OpenAISTT {
	if model == "" {
		model = "whisper-1"
	}
	return &OpenAISTT{
		apiKey:     apiKey,
		url:        "https://api.openai.com/v1/audio/transcriptions",
		model:      model,
		sampleRate: 44100,
		maxBytes:   defaultMaxBytes,
	}
}

func (s *OpenAISTT) SetSampleRate(rate int) {
	s.sampleRate = rate
}

func (s *OpenAISTT) SetMaxBytes(n int64) {
	s.maxBytes = n
}

func (s *OpenAISTT) MaxBytes() int64 {
	return s.maxBytes
}

func (s *OpenAISTT) Name() string {
	return "openai_stt"
}

// Transcribe requests a verbose JSON response with segment timestamps.
// Whisper does not attach per-word speaker ids, so this provider always
// feeds the segment-level assignment path.
func (s *OpenAISTT) Transcribe(ctx context.Context, audioPCM []byte) (diarize.RawSTTResponse, error) {
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
	if _, err := part.Write(wavData); err != nil {
		return diarize.RawSTTResponse{}, err
	}
	writer.Close()

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
		return diarize.RawSTTResponse{}, fmt.Errorf("openai stt error (status %d): %v", resp.StatusCode, errResp)
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
