// Package cliconfig loads configuration for cmd/diarize using Viper,
// layering an optional config file under environment variables prefixed
// DIARIZE_.
package cliconfig

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds everything the CLI needs beyond diarize.Config: provider
// selection and credentials. diarize.Config itself is loaded separately
// via diarize.DefaultConfig and overridden field-by-field from this struct
// when non-zero.
type Config struct {
	STT struct {
		Provider string `mapstructure:"provider"`
		Model    string `mapstructure:"model"`
	} `mapstructure:"stt"`
	LLM struct {
		Provider string `mapstructure:"provider"`
		Model    string `mapstructure:"model"`
	} `mapstructure:"llm"`
	Keys struct {
		OpenAI     string `mapstructure:"openai"`
		Groq       string `mapstructure:"groq"`
		Anthropic  string `mapstructure:"anthropic"`
		Google     string `mapstructure:"google"`
		Deepgram   string `mapstructure:"deepgram"`
		AssemblyAI string `mapstructure:"assemblyai"`
	} `mapstructure:"keys"`
	SampleRate int `mapstructure:"sample_rate"`

	Diarize struct {
		SpeakerOffsetSeconds       float64 `mapstructure:"speaker_offset_seconds"`
		DurationRatio              float64 `mapstructure:"duration_ratio"`
		MinUtteranceSeconds        float64 `mapstructure:"min_utterance_seconds"`
		MinSpeakerChangeGapSeconds float64 `mapstructure:"min_speaker_change_gap_seconds"`
		ParagraphBreakGapSeconds   float64 `mapstructure:"paragraph_break_gap_seconds"`
		MergeGapSecondsSegmentPath float64 `mapstructure:"merge_gap_seconds_segment_path"`
		MergeGapSecondsWordPath    float64 `mapstructure:"merge_gap_seconds_word_path"`
		STTMaxBytes                int64   `mapstructure:"stt_max_bytes"`
		SummarizerTokenBudget      int     `mapstructure:"summarizer_token_budget"`
		TokensPerCharacter         float64 `mapstructure:"tokens_per_character"`
	} `mapstructure:"diarize"`
}

// Load reads an optional "diarize.yaml"/"diarize.json" from configPaths,
// then applies DIARIZE_-prefixed environment variable overrides.
func Load(configPaths ...string) (Config, error) {
	var cfg Config

	v := viper.New()
	v.SetDefault("stt.provider", "groq")
	v.SetDefault("llm.provider", "groq")
	v.SetDefault("sample_rate", 44100)

	v.SetConfigName("diarize")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	for _, path := range configPaths {
		v.AddConfigPath(path)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("DIARIZE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only covers keys viper already knows (defaults or the
	// config file), so every other key Unmarshal fills is bound explicitly.
	for _, key := range []string{
		"stt.model", "llm.model", "keys.openai", "keys.groq", "keys.anthropic", "keys.google", "keys.deepgram", "keys.assemblyai",
		"diarize.speaker_offset_seconds", "diarize.duration_ratio", "diarize.min_utterance_seconds", "diarize.min_speaker_change_gap_seconds",
		"diarize.paragraph_break_gap_seconds", "diarize.merge_gap_seconds_segment_path", "diarize.merge_gap_seconds_word_path",
		"diarize.stt_max_bytes", "diarize.summarizer_token_budget", "diarize.tokens_per_character",
	} {
		if err := v.BindEnv(key); err != nil {
			return cfg, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}

	return cfg, nil
}
