package diarize

import (
	"encoding/json"
	"time"
)

// wireUtterance is the JSON shape of a single diarized utterance per §6.
type wireUtterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// wireTranscript is the JSON shape of the core's produced output per §6.
type wireTranscript struct {
	Text     string          `json:"text"`
	Diarized []wireUtterance `json:"diarized"`
	TLDR     *string         `json:"tldr"`
}

// MarshalJSON renders a DiarizedTranscript in the §6 wire shape, with
// timestamps in ISO-8601 with an explicit time zone offset.
func (d DiarizedTranscript) MarshalJSON() ([]byte, error) {
	diarized := make([]wireUtterance, len(d.Utterances))
	for i, u := range d.Utterances {
		diarized[i] = wireUtterance{
			Speaker: u.Speaker,
			Text:    u.Text,
			Start:   u.Start.Format(time.RFC3339),
			End:     u.End.Format(time.RFC3339),
		}
	}
	return json.Marshal(wireTranscript{
		Text:     d.FullText,
		Diarized: diarized,
		TLDR:     d.TLDR,
	})
}
