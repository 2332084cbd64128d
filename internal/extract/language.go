package extract

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/menutalk/kiku/internal/errors"
	"github.com/menutalk/kiku/internal/menu"
	"github.com/menutalk/kiku/internal/services/ai"
)

type detectedLanguage struct {
	DetectedLanguage string `json:"detectedLanguage"`
}

// Language reads {"detectedLanguage": "..."} from model output. Anything
// unusable yields ai.UnknownLanguage; detection never fails the caller.
func Language(raw string) string {
	fragment, _, err := JSON(raw, Object)
	if err != nil {
		slog.Debug("No language object in model output", "error", err)
		return ai.UnknownLanguage
	}

	var out detectedLanguage
	if err := json.Unmarshal([]byte(fragment), &out); err != nil {
		slog.Debug("Failed to decode detected language", "error", err)
		return ai.UnknownLanguage
	}

	name := strings.TrimSpace(out.DetectedLanguage)
	if name == "" {
		return ai.UnknownLanguage
	}
	return name
}

// Phrases parses a translation response. The length contract is strict:
// anything other than exactly want entries is a PARSE_ERROR.
func Phrases(raw string, want int) ([]menu.Phrase, error) {
	fragment, _, err := JSON(raw, Array)
	if err != nil {
		return nil, err
	}

	var out []menu.Phrase
	if err := json.Unmarshal([]byte(fragment), &out); err != nil {
		return nil, errors.NewParseError("model output is not a valid phrase list", "INVALID_PHRASE_JSON", raw, err)
	}
	if len(out) != want {
		return nil, errors.NewParseError("model returned a different number of translations than phrases", "PHRASE_COUNT_MISMATCH", raw, nil)
	}
	for i := range out {
		out[i].Translation = strings.TrimSpace(out[i].Translation)
		out[i].Pronunciation = strings.TrimSpace(out[i].Pronunciation)
		if out[i].Translation == "" {
			return nil, errors.NewParseError("model returned an empty translation", "EMPTY_TRANSLATION", raw, nil)
		}
	}
	return out, nil
}
