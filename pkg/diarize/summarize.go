package diarize

import (
	"context"
	"fmt"
	"strings"
)

// Message is a single chat-completion turn, the wire shape every
// LLMProvider implementation speaks.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMProvider adapts a chat-completion backend for summarisation.
type LLMProvider interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// PromptBundle supplies the locale-specific prompts C5 wraps around a
// formatted transcript. The core carries no hard-coded language; callers
// configure the wording their summariser should see.
type PromptBundle struct {
	System             string
	IntermediateFormat func(chunk string) string
	FinalFormat        func(transcript string) string
	CombineFormat      func(intermediateSummaries string) string
}

// DefaultPromptBundle mirrors the original recorder's TL;DR prompts,
// translated out of their hard-coded locale into an English template so
// callers see the intended structure before supplying their own.
func DefaultPromptBundle() PromptBundle {
	return PromptBundle{
		System: "You are an assistant that writes short, accurate summaries of business meetings.",
		IntermediateFormat: func(chunk string) string {
			return fmt.Sprintf("Here is part of a meeting transcript. Write a brief intermediate summary of the main topics discussed:\n\n%s\n\nIntermediate summary:", chunk)
		},
		FinalFormat: func(transcript string) string {
			return fmt.Sprintf("Read the following meeting transcript and write a TL;DR in 1-2 sentences covering the main topics discussed, as a comma-separated list of topics. Do not wrap the summary in quotes.\n\nTranscript:\n%s\n\nTL;DR:", transcript)
		},
		CombineFormat: func(intermediateSummaries string) string {
			return fmt.Sprintf("Based on the following intermediate summaries of different parts of a long meeting, write a final TL;DR in 1-2 sentences covering the main topics discussed, as a comma-separated list of topics. Do not wrap the summary in quotes.\n\nIntermediate summaries:\n%s\n\nFinal TL;DR:", intermediateSummaries)
		},
	}
}

// FormatTranscriptForSummary renders utterances as "{speaker}: {text}"
// lines, one per utterance, dropping any with blank text.
func FormatTranscriptForSummary(utts []DiarizedUtterance) string {
	lines := make([]string, 0, len(utts))
	for _, u := range utts {
		if strings.TrimSpace(u.Text) == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", u.Speaker, u.Text))
	}
	return strings.Join(lines, "\n")
}

// splitIntoChunks splits formatted transcript text at line boundaries
// into chunks no longer than targetLength characters, never splitting a
// line in two; a single line longer than targetLength becomes a chunk of
// its own.
func splitIntoChunks(text string, targetLength int) []string {
	lines := strings.Split(text, "\n")
	var chunks []string
	var current []string
	currentLen := 0

	for _, line := range lines {
		added := len(line)
		if len(current) > 0 {
			added++ // the "\n" joining it to the previous line
		}
		if currentLen+added > targetLength && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n"))
			current = []string{line}
			currentLen = len(line)
			continue
		}
		current = append(current, line)
		currentLen += added
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n"))
	}
	return chunks
}

func stripWrappingQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

func complete(ctx context.Context, provider LLMProvider, bundle PromptBundle, prompt string) (string, error) {
	out, err := provider.Complete(ctx, []Message{
		{Role: "system", Content: bundle.System},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return out, nil
}

// Summarize implements C5: format the diarized transcript, decide
// whether it fits in one call given the provider's token budget, and
// either submit it directly or map-then-reduce it through chunk and
// combine prompts. Per the §7 propagation policy, any provider error
// here is isolated: the caller receives a nil TL;DR, never an error that
// would fail the whole pipeline.
func Summarize(ctx context.Context, provider LLMProvider, utts []DiarizedUtterance, cfg Config, bundle PromptBundle, logger Logger) *string {
	if logger == nil {
		logger = &NoOpLogger{}
	}

	formatted := FormatTranscriptForSummary(utts)
	if strings.TrimSpace(formatted) == "" {
		return nil
	}

	chunkBudgetChars := int(0.7 * float64(cfg.SummarizerTokenBudget) / cfg.TokensPerCharacter)

	var tldr string
	var err error

	if len(formatted) < chunkBudgetChars {
		tldr, err = complete(ctx, provider, bundle, bundle.FinalFormat(formatted))
	} else {
		chunks := splitIntoChunks(formatted, chunkBudgetChars)
		summaries := make([]string, 0, len(chunks))
		for _, chunk := range chunks {
			s, cerr := complete(ctx, provider, bundle, bundle.IntermediateFormat(chunk))
			if cerr != nil {
				err = cerr
				break
			}
			summaries = append(summaries, s)
		}
		if err == nil {
			combined := strings.Join(summaries, "\n\n")
			tldr, err = complete(ctx, provider, bundle, bundle.CombineFormat(combined))
		}
	}

	if err != nil {
		logger.Warn("tldr generation failed, omitting summary", "error", err)
		return nil
	}

	tldr = stripWrappingQuotes(tldr)
	return &tldr
}
