package translate

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/menutalk/kiku/internal/errors"
	"github.com/menutalk/kiku/internal/menu"
	"github.com/menutalk/kiku/internal/services/ai"
	"github.com/menutalk/kiku/internal/services/model"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string, attachments []model.Attachment) (string, error) {
	args := m.Called(ctx, prompt, attachments)
	return args.String(0), args.Error(1)
}

func TestTranslate(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Korean") &&
			strings.Contains(p, "1. ラーメンを1個ください。") &&
			strings.Contains(p, "2. ありがとう！")
	}), []model.Attachment(nil)).Return("```json\n["+
		"{\"translation\":\"라면 하나 주세요.\",\"pronunciation\":\"ラミョン ハナ ジュセヨ\"},"+
		"{\"translation\":\"감사합니다!\",\"pronunciation\":\"カムサハムニダ\"}"+
		"]\n```", nil)

	svc := NewService(gen, Options{})
	got, err := svc.Translate(context.Background(), []string{" ラーメンを1個ください。 ", "ありがとう！"}, "韓国語")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Phrase{
		Source:        "ラーメンを1個ください。",
		Translation:   "라면 하나 주세요.",
		Pronunciation: "ラミョン ハナ ジュセヨ",
		SpeechLang:    "ko-KR",
	}, got[0])
	assert.Equal(t, "ありがとう！", got[1].Source)
	assert.Equal(t, "감사합니다!", got[1].Translation)
	gen.AssertExpectations(t)
}

func TestTranslate_BlankPhraseRejected(t *testing.T) {
	tests := []struct {
		name    string
		phrases []string
	}{
		{"blank in the middle", []string{"one", "", "two"}},
		{"whitespace only", []string{"one", "   "}},
		{"all blank", []string{"  ", ""}},
		{"none", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := new(mockGenerator)
			svc := NewService(gen, Options{})

			got, err := svc.Translate(context.Background(), tt.phrases, "en")
			assert.Nil(t, got)
			assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
			gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestTranslate_LengthMismatch(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(`[{"translation":"Thanks","pronunciation":"サンクス"}]`, nil)

	_, err := NewService(gen, Options{}).Translate(context.Background(), []string{"おいしいです！", "ありがとう！"}, "en")
	assert.True(t, errors.IsType(err, errors.ErrorTypeParse))
}

func TestTranslate_UpstreamPassesThrough(t *testing.T) {
	upstream := errors.NewUpstreamError("gemini request failed", "MODEL_SERVER_ERROR", nil)
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("", upstream)

	_, err := NewService(gen, Options{}).Translate(context.Background(), []string{"ありがとう！"}, "en")
	assert.Same(t, upstream, err)
}

func TestTranslate_UnknownHintUsesDefault(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Japanese")
	}), mock.Anything).Return(`[{"translation":"ありがとう","pronunciation":"アリガトウ"}]`, nil)

	got, err := NewService(gen, Options{}).Translate(context.Background(), []string{"Thank you"}, "Klingon")
	require.NoError(t, err)
	assert.Equal(t, "ja-JP", got[0].SpeechLang)
}

func TestTranslate_UnknownHintUsesConfiguredDefault(t *testing.T) {
	english, ok := ai.Lookup("en")
	require.True(t, ok)

	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "English")
	}), mock.Anything).Return(`[{"translation":"Thank you","pronunciation":"サンキュー"}]`, nil)

	got, err := NewService(gen, Options{DefaultLanguage: english}).Translate(context.Background(), []string{"ありがとう"}, "Unknown")
	require.NoError(t, err)
	assert.Equal(t, "en-US", got[0].SpeechLang)
	gen.AssertExpectations(t)
}

type shortBackend struct{}

func (shortBackend) TranslatePhrases(_ context.Context, phrases []string, _ ai.Language) ([]menu.Phrase, error) {
	return []menu.Phrase{{Translation: "only one"}}, nil
}

func TestTranslate_BackendCountMismatch(t *testing.T) {
	svc := NewService(new(mockGenerator), Options{Backend: shortBackend{}})

	_, err := svc.Translate(context.Background(), []string{"one", "two"}, "en")
	assert.True(t, errors.IsType(err, errors.ErrorTypeParse))
}

func TestSuggestions(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "exactly 3 objects")
	}), mock.Anything).Return(`[
		{"translation":"What do you recommend?","pronunciation":"ワット ドゥ ユー レコメンド"},
		{"translation":"It's delicious!","pronunciation":"イッツ デリシャス"},
		{"translation":"Thank you!","pronunciation":"サンキュー"}
	]`, nil)

	got, err := NewService(gen, Options{}).Suggestions(context.Background(), "en")
	require.NoError(t, err)
	require.Len(t, got, len(menu.SuggestionPhrases))
	for i, p := range got {
		assert.Equal(t, menu.SuggestionPhrases[i], p.Source)
		assert.Equal(t, "en-US", p.SpeechLang)
	}
}

func TestDetectLanguage(t *testing.T) {
	images := []model.Attachment{{Data: []byte{1}, MIMEType: "image/jpeg"}}

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"parsed", "```json\n{\"detectedLanguage\": \"Thai\"}\n```", "Thai"},
		{"unparseable", "I think this is Thai.", "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := new(mockGenerator)
			gen.On("Generate", mock.Anything, mock.Anything, images).Return(tt.raw, nil)

			got, err := NewService(gen, Options{}).DetectLanguage(context.Background(), images)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectLanguage_NoImages(t *testing.T) {
	_, err := NewService(new(mockGenerator), Options{}).DetectLanguage(context.Background(), nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}
