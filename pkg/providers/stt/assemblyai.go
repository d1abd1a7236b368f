package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lokutor-ai/lokutor-diarizer/pkg/diarize"
)

type AssemblyAISTT struct {
	apiKey   string
	baseURL  string
	maxBytes int64
}

func NewAssemblyAISTT(apiKey string) *AssemblyAISTT {
	return &AssemblyAISTT{
		apiKey:   apiKey,
		baseURL:  "https://api.assemblyai.com/v2",
		maxBytes: defaultMaxBytes,
	}
}

func (s *AssemblyAISTT) SetMaxBytes(n int64) {
	s.maxBytes = n
}

func (s *AssemblyAISTT) MaxBytes() int64 {
	return s.maxBytes
}

func (s *AssemblyAISTT) Name() string {
	return "assemblyai-stt"
}

// Transcribe uploads, submits with speaker_labels enabled, and polls
// until completion. AssemblyAI tags each word with a speaker label,
// which feeds the word-level assignment path directly.
func (s *AssemblyAISTT) Transcribe(ctx context.Context, audioPCM []byte) (diarize.RawSTTResponse, error) {
	uploadURL, err := s.upload(ctx, audioPCM)
	if err != nil {
		return diarize.RawSTTResponse{}, err
	}

	transcriptID, err := s.submit(ctx, uploadURL)
	if err != nil {
		return diarize.RawSTTResponse{}, err
	}

	for {
		select {
		case <-ctx.Done():
			return diarize.RawSTTResponse{}, ctx.Err()
		case <-time.After(500 * time.Millisecond):
			raw, status, err := s.getTranscript(ctx, transcriptID)
			if err != nil {
				return diarize.RawSTTResponse{}, err
			}
			if status == "completed" {
				return raw, nil
			}
			if status == "error" {
				return diarize.RawSTTResponse{}, fmt.Errorf("assemblyai transcription failed")
			}
		}
	}
}

func (s *AssemblyAISTT) upload(ctx context.Context, audioPCM []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/upload", bytes.NewReader(audioPCM))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", s.apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		UploadURL string `json:"upload_url"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	return result.UploadURL, nil
}

func (s *AssemblyAISTT) submit(ctx context.Context, uploadURL string) (string, error) {
	payload := map[string]interface{}{
		"audio_url":      uploadURL,
		"speaker_labels": true,
	}

	body, _ := json.Marshal(payload)
	req, _ := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/transcript", bytes.NewReader(body))
	req.Header.Set("Authorization", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		ID string `json:"id"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	return result.ID, nil
}

func (s *AssemblyAISTT) getTranscript(ctx context.Context, id string) (diarize.RawSTTResponse, string, error) {
	req, _ := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/transcript/"+id, nil)
	req.Header.Set("Authorization", s.apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return diarize.RawSTTResponse{}, "", err
	}
	defer resp.Body.Close()

	var result struct {
		Status string `json:"status"`
		Text   string `json:"text"`
		Words  []struct {
			Text    string  `json:"text"`
			Start   float64 `json:"start"`
			End     float64 `json:"end"`
			Speaker string  `json:"speaker"`
		} `json:"words"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return diarize.RawSTTResponse{}, "", err
	}

	raw := diarize.RawSTTResponse{FullText: result.Text}
	for _, w := range result.Words {
		raw.Words = append(raw.Words, diarize.STTWord{
			Kind:      diarize.WordKindWord,
			Text:      w.Text,
			StartRel:  w.Start / 1000.0,
			EndRel:    w.End / 1000.0,
			SpeakerID: w.Speaker,
		})
	}
	return raw, result.Status, nil
}
