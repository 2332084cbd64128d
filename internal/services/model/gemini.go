package model

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/menutalk/kiku/internal/httpclient"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type geminiInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		MaxOutputTokens int `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// GeminiGenerator implements Generator for the Gemini generateContent API
type GeminiGenerator struct {
	apiKey    string
	model     string
	baseURL   string
	maxTokens int
	client    *http.Client
}

// NewGeminiGenerator creates a new Gemini generator
func NewGeminiGenerator(apiKey, model string, opts Options) *GeminiGenerator {
	client := opts.HTTPClient
	if client == nil {
		client = httpclient.New(string(ProviderGemini), opts.timeout())
	}
	return &GeminiGenerator{
		apiKey:    apiKey,
		model:     model,
		baseURL:   strings.TrimSuffix(opts.baseURL(defaultGeminiBaseURL), "/"),
		maxTokens: opts.maxTokens(),
		client:    client,
	}
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, attachments []Attachment) (text string, err error) {
	done := httpclient.ObserveCall(ctx, string(ProviderGemini))
	defer func() { done(err) }()

	text, err = g.generate(ctx, prompt, attachments)
	if err != nil {
		return "", Upstream(ProviderGemini, err)
	}
	return text, nil
}

func (g *GeminiGenerator) generate(ctx context.Context, prompt string, attachments []Attachment) (string, error) {
	parts := []geminiPart{{Text: prompt}}
	for _, a := range attachments {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MIMEType: a.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(a.Data),
		}})
	}

	var req geminiRequest
	req.Contents = []geminiContent{{Role: "user", Parts: parts}}
	req.GenerationConfig.MaxOutputTokens = g.maxTokens

	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("x-goog-api-key", g.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode >= 400 {
		return "", &StatusError{Provider: ProviderGemini, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var genResp geminiResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", err
	}

	if len(genResp.Candidates) == 0 {
		if genResp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: blocked (%s)", errEmptyResponse, genResp.PromptFeedback.BlockReason)
		}
		return "", errEmptyResponse
	}

	var sb strings.Builder
	for _, p := range genResp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if sb.Len() == 0 {
		return "", errEmptyResponse
	}
	return sb.String(), nil
}
