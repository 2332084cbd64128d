package translate

import (
	"context"

	"github.com/menutalk/kiku/internal/extract"
	"github.com/menutalk/kiku/internal/menu"
	"github.com/menutalk/kiku/internal/services/ai"
	"github.com/menutalk/kiku/internal/services/model"
)

// ModelBackend translates with the vision model, which also writes a
// katakana pronunciation for each phrase.
type ModelBackend struct {
	gen model.Generator
}

func NewModelBackend(gen model.Generator) *ModelBackend {
	return &ModelBackend{gen: gen}
}

func (b *ModelBackend) TranslatePhrases(ctx context.Context, phrases []string, target ai.Language) ([]menu.Phrase, error) {
	raw, err := b.gen.Generate(ctx, ai.BuildTranslatePrompt(phrases, target), nil)
	if err != nil {
		return nil, err
	}
	return extract.Phrases(raw, len(phrases))
}
