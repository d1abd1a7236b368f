// Command diarize is a one-shot CLI wrapper around the diarize pipeline.
// It mirrors the hand-off described in SPEC_FULL.md §5: a recorder process
// (out of scope for the core) hands over an audio blob, a recording start
// time, and an activity log, and this binary prints the resulting
// DiarizedTranscript as JSON on stdout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/lokutor-ai/lokutor-diarizer/internal/cliconfig"
	"github.com/lokutor-ai/lokutor-diarizer/pkg/diarize"
	llmProvider "github.com/lokutor-ai/lokutor-diarizer/pkg/providers/llm"
	sttProvider "github.com/lokutor-ai/lokutor-diarizer/pkg/providers/stt"
)

// handoff is the one-shot payload a recorder produces: a recording context,
// an activity log, and a path to the raw audio bytes on disk.
type handoff struct {
	RecordingStart  time.Time           `json:"recording_start"`
	DurationSeconds float64             `json:"duration_seconds"`
	AudioPath       string              `json:"audio_path"`
	AudioDurationMS int64               `json:"audio_duration_ms"`
	Activity        []activityEventJSON `json:"activity_log"`
}

type activityEventJSON struct {
	At       time.Time `json:"at"`
	Speakers []string  `json:"speakers"`
}

func main() {
	handoffPath := flag.String("handoff", "", "path to a hand-off JSON file (recording_start, duration_seconds, audio_path, audio_duration_ms, activity_log)")
	configPath := flag.String("config", ".", "directory to search for diarize.yaml")
	flag.Parse()

	if *handoffPath == "" {
		log.Fatal("Error: -handoff is required")
	}

	if err := godotenv.Load(); err != nil {
		log.Println("Note: no .env file found, using system environment variables")
	}

	cfg, err := cliconfig.Load(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	h, err := loadHandoff(*handoffPath)
	if err != nil {
		log.Fatalf("Error loading hand-off file: %v", err)
	}

	audio, err := os.ReadFile(h.AudioPath)
	if err != nil {
		log.Fatalf("Error reading audio file %s: %v", h.AudioPath, err)
	}

	stt, err := buildSTT(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if s, ok := stt.(interface{ SetSampleRate(int) }); ok {
		s.SetSampleRate(cfg.SampleRate)
	}

	llm, err := buildLLM(cfg)
	if err != nil {
		log.Println("Note:", err, "- running without a TL;DR summariser")
	}

	pipeline := diarize.NewPipeline(stt, llm)
	pipeline.Config = resolveDiarizeConfig(cfg)
	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Error building logger: %v", err)
	}
	defer zapLogger.Sync()
	pipeline.Logger = diarize.NewZapLogger(zapLogger)

	rec := diarize.RecordingContext{
		Start:    h.RecordingStart,
		Duration: time.Duration(h.DurationSeconds * float64(time.Second)),
	}

	events := make([]diarize.ActivityEvent, 0, len(h.Activity))
	for _, e := range h.Activity {
		events = append(events, diarize.ActivityEvent{At: e.At, Speakers: e.Speakers})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	transcript, err := pipeline.Run(ctx, rec, audio, h.AudioDurationMS, events)
	if err != nil {
		log.Fatalf("Error running pipeline: %v", err)
	}

	out, err := json.MarshalIndent(transcript, "", "  ")
	if err != nil {
		log.Fatalf("Error encoding output: %v", err)
	}
	fmt.Println(string(out))
}

func loadHandoff(path string) (handoff, error) {
	var h handoff
	data, err := os.ReadFile(path)
	if err != nil {
		return h, err
	}
	if err := json.Unmarshal(data, &h); err != nil {
		return h, fmt.Errorf("parsing hand-off file: %w", err)
	}
	return h, nil
}

func buildSTT(cfg cliconfig.Config) (diarize.STTProvider, error) {
	switch cfg.STT.Provider {
	case "openai":
		if cfg.Keys.OpenAI == "" {
			return nil, fmt.Errorf("keys.openai (DIARIZE_KEYS_OPENAI) must be set for openai STT")
		}
		return sttProvider.NewOpenAISTT(cfg.Keys.OpenAI, cfg.STT.Model), nil
	case "deepgram":
		if cfg.Keys.Deepgram == "" {
			return nil, fmt.Errorf("keys.deepgram (DIARIZE_KEYS_DEEPGRAM) must be set for deepgram STT")
		}
		return sttProvider.NewDeepgramSTT(cfg.Keys.Deepgram), nil
	case "assemblyai":
		if cfg.Keys.AssemblyAI == "" {
			return nil, fmt.Errorf("keys.assemblyai (DIARIZE_KEYS_ASSEMBLYAI) must be set for assemblyai STT")
		}
		return sttProvider.NewAssemblyAISTT(cfg.Keys.AssemblyAI), nil
	case "groq", "":
		if cfg.Keys.Groq == "" {
			return nil, fmt.Errorf("keys.groq (DIARIZE_KEYS_GROQ) must be set for groq STT")
		}
		return sttProvider.NewGroqSTT(cfg.Keys.Groq, cfg.STT.Model), nil
	default:
		return nil, fmt.Errorf("unknown STT provider %q", cfg.STT.Provider)
	}
}

func buildLLM(cfg cliconfig.Config) (diarize.LLMProvider, error) {
	switch cfg.LLM.Provider {
	case "openai":
		if cfg.Keys.OpenAI == "" {
			return nil, fmt.Errorf("keys.openai (DIARIZE_KEYS_OPENAI) must be set for openai LLM")
		}
		return llmProvider.NewOpenAILLM(cfg.Keys.OpenAI, cfg.LLM.Model), nil
	case "anthropic":
		if cfg.Keys.Anthropic == "" {
			return nil, fmt.Errorf("keys.anthropic (DIARIZE_KEYS_ANTHROPIC) must be set for anthropic LLM")
		}
		return llmProvider.NewAnthropicLLM(cfg.Keys.Anthropic, cfg.LLM.Model), nil
	case "google":
		if cfg.Keys.Google == "" {
			return nil, fmt.Errorf("keys.google (DIARIZE_KEYS_GOOGLE) must be set for google LLM")
		}
		return llmProvider.NewGoogleLLM(cfg.Keys.Google, cfg.LLM.Model), nil
	case "groq", "":
		if cfg.Keys.Groq == "" {
			return nil, fmt.Errorf("keys.groq (DIARIZE_KEYS_GROQ) must be set for groq LLM")
		}
		return llmProvider.NewGroqLLM(cfg.Keys.Groq, cfg.LLM.Model), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLM.Provider)
	}
}

// resolveDiarizeConfig overlays non-zero values from the CLI config file
// onto diarize.DefaultConfig, leaving spec-default values untouched when the
// operator hasn't overridden them.
func resolveDiarizeConfig(cfg cliconfig.Config) diarize.Config {
	d := diarize.DefaultConfig()
	c := cfg.Diarize

	if c.SpeakerOffsetSeconds != 0 {
		d.SpeakerOffsetSeconds = c.SpeakerOffsetSeconds
	}
	if c.DurationRatio != 0 {
		d.DurationRatio = c.DurationRatio
	}
	if c.MinUtteranceSeconds != 0 {
		d.MinUtteranceSeconds = c.MinUtteranceSeconds
	}
	if c.MinSpeakerChangeGapSeconds != 0 {
		d.MinSpeakerChangeGapSeconds = c.MinSpeakerChangeGapSeconds
	}
	if c.ParagraphBreakGapSeconds != 0 {
		d.ParagraphBreakGapSeconds = c.ParagraphBreakGapSeconds
	}
	if c.MergeGapSecondsSegmentPath != 0 {
		d.MergeGapSecondsSegmentPath = c.MergeGapSecondsSegmentPath
	}
	if c.MergeGapSecondsWordPath != 0 {
		d.MergeGapSecondsWordPath = c.MergeGapSecondsWordPath
	}
	if c.STTMaxBytes != 0 {
		d.STTMaxBytes = c.STTMaxBytes
	}
	if c.SummarizerTokenBudget != 0 {
		d.SummarizerTokenBudget = c.SummarizerTokenBudget
	}
	if c.TokensPerCharacter != 0 {
		d.TokensPerCharacter = c.TokensPerCharacter
	}
	return d
}
