package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/menutalk/kiku/internal/errors"
	"github.com/menutalk/kiku/internal/httpclient"
	"github.com/menutalk/kiku/internal/menu"
	"github.com/menutalk/kiku/internal/services/ai"
)

const defaultDeepLBaseURL = "https://api-free.deepl.com/v2"

// statusQuotaExceeded is DeepL's answer once the character quota is used up.
const statusQuotaExceeded = 456

type deeplRequest struct {
	Text       []string `json:"text"`
	TargetLang string   `json:"target_lang"`
}

type deeplResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

// DeepLBackend translates through the DeepL API. All phrases go in one
// request; DeepL answers in input order. It gives no pronunciation.
type DeepLBackend struct {
	apiKey  string
	baseURL string
	hc      *http.Client
}

// DeepLOptions configures a DeepLBackend. Zero values take defaults.
type DeepLOptions struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewDeepLBackend(apiKey string, opts DeepLOptions) *DeepLBackend {
	base := opts.BaseURL
	if base == "" {
		base = defaultDeepLBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = httpclient.New("deepl", 20*time.Second)
	}
	return &DeepLBackend{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(base, "/"),
		hc:      hc,
	}
}

func (b *DeepLBackend) TranslatePhrases(ctx context.Context, phrases []string, target ai.Language) (out []menu.Phrase, err error) {
	if target.DeepLCode == "" {
		return nil, errors.NewValidationError(
			fmt.Sprintf("DeepL cannot translate into %s", target.Name),
			"UNSUPPORTED_LANGUAGE",
			"Pick another language or switch translate.provider to model.",
		)
	}

	done := httpclient.ObserveCall(ctx, "deepl")
	defer func() { done(err) }()

	body, err := json.Marshal(deeplRequest{Text: phrases, TargetLang: target.DeepLCode})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+b.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.hc.Do(req)
	if err != nil {
		return nil, errors.NewUpstreamError("deepl request failed", "DEEPL_UNAVAILABLE", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		statusErr := fmt.Errorf("deepl API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			return nil, errors.NewUpstreamError("deepl rate limit reached", "DEEPL_RATE_LIMIT", statusErr)
		case statusQuotaExceeded:
			return nil, errors.NewUpstreamError("deepl quota exceeded", "DEEPL_QUOTA_EXCEEDED", statusErr)
		default:
			return nil, errors.NewUpstreamError("deepl request failed", "DEEPL_UNAVAILABLE", statusErr)
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewUpstreamError("deepl response unreadable", "DEEPL_UNAVAILABLE", err)
	}

	var decoded deeplResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, errors.NewParseError("deepl response is not valid JSON", "INVALID_DEEPL_JSON", string(raw), err)
	}
	if len(decoded.Translations) != len(phrases) {
		return nil, errors.NewParseError("deepl returned a different number of translations than phrases", "PHRASE_COUNT_MISMATCH", string(raw), nil)
	}

	out = make([]menu.Phrase, len(decoded.Translations))
	for i, t := range decoded.Translations {
		text := strings.TrimSpace(t.Text)
		if text == "" {
			return nil, errors.NewParseError("deepl returned an empty translation", "EMPTY_TRANSLATION", string(raw), nil)
		}
		out[i] = menu.Phrase{Translation: text}
	}
	return out, nil
}
