// Package translate turns order phrases into the menu's language and
// detects which language a menu is written in.
package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/menutalk/kiku/internal/errors"
	"github.com/menutalk/kiku/internal/extract"
	"github.com/menutalk/kiku/internal/menu"
	"github.com/menutalk/kiku/internal/services/ai"
	"github.com/menutalk/kiku/internal/services/model"
)

// Phrase is a translated sentence paired with its source and the speech
// tag a client needs to read it aloud.
type Phrase struct {
	Source        string `json:"source"`
	Translation   string `json:"translation"`
	Pronunciation string `json:"pronunciation"`
	SpeechLang    string `json:"speechLang"`
}

// Backend translates phrases into one language. It returns exactly one
// result per phrase, in input order.
type Backend interface {
	TranslatePhrases(ctx context.Context, phrases []string, target ai.Language) ([]menu.Phrase, error)
}

// Options configures a Service. Zero values take defaults.
type Options struct {
	// Backend does the phrase translation; nil means the model.
	Backend Backend
	// DefaultLanguage is used when a language hint does not resolve.
	DefaultLanguage ai.Language
}

// Service translates phrases through its backend and detects menu
// languages through the model.
type Service struct {
	gen      model.Generator
	backend  Backend
	fallback ai.Language
}

// NewService creates a new translation service
func NewService(gen model.Generator, opts Options) *Service {
	backend := opts.Backend
	if backend == nil {
		backend = NewModelBackend(gen)
	}
	fallback := opts.DefaultLanguage
	if fallback.Code == "" {
		fallback = ai.DefaultLanguage()
	}
	return &Service{gen: gen, backend: backend, fallback: fallback}
}

// Translate returns exactly one Phrase per input, in input order. A blank
// phrase rejects the whole request before anything is sent.
func (s *Service) Translate(ctx context.Context, phrases []string, languageHint string) ([]Phrase, error) {
	if len(phrases) == 0 {
		return nil, errors.NewValidationError("no phrases to translate", "MISSING_PHRASES", "Send at least one non-empty phrase.")
	}
	cleaned := make([]string, len(phrases))
	for i, p := range phrases {
		if cleaned[i] = strings.TrimSpace(p); cleaned[i] == "" {
			return nil, errors.NewValidationError(fmt.Sprintf("phrase %d is empty", i+1), "BLANK_PHRASE", "Remove the empty phrase or fill it in.")
		}
	}

	lang, ok := ai.ResolveLanguage(languageHint, s.fallback)
	if !ok {
		slog.Debug("Unknown language hint, using default", "hint", languageHint, "language", lang.Name)
	}

	parsed, err := s.backend.TranslatePhrases(ctx, cleaned, lang)
	if err != nil {
		slog.Warn("Translation failed", "phrases", len(cleaned), "language", lang.Code, "error", err)
		return nil, err
	}
	if len(parsed) != len(cleaned) {
		return nil, errors.NewParseError("backend returned a different number of translations than phrases", "PHRASE_COUNT_MISMATCH", "", nil)
	}

	out := make([]Phrase, len(parsed))
	for i, p := range parsed {
		out[i] = Phrase{
			Source:        cleaned[i],
			Translation:   p.Translation,
			Pronunciation: p.Pronunciation,
			SpeechLang:    lang.SpeechTag,
		}
	}
	return out, nil
}

// Suggestions translates the canned conversation helpers.
func (s *Service) Suggestions(ctx context.Context, languageHint string) ([]Phrase, error) {
	return s.Translate(ctx, menu.SuggestionPhrases, languageHint)
}

// DetectLanguage asks the model which language the menu images use. Output
// that cannot be parsed yields ai.UnknownLanguage; model failures are returned.
func (s *Service) DetectLanguage(ctx context.Context, images []model.Attachment) (string, error) {
	if len(images) == 0 {
		return "", errors.NewValidationError("no images provided", "MISSING_IMAGES", "Attach at least one photo of the menu.")
	}

	raw, err := s.gen.Generate(ctx, ai.BuildDetectLanguagePrompt(), images)
	if err != nil {
		return "", err
	}
	return extract.Language(raw), nil
}
