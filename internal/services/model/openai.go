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

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// OpenAIGenerator implements Generator for OpenAI-compatible chat completions
type OpenAIGenerator struct {
	apiKey    string
	model     string
	baseURL   string
	maxTokens int
	client    *http.Client
}

// NewOpenAIGenerator creates a new OpenAI generator
func NewOpenAIGenerator(apiKey, model string, opts Options) *OpenAIGenerator {
	client := opts.HTTPClient
	if client == nil {
		client = httpclient.New(string(ProviderOpenAI), opts.timeout())
	}
	return &OpenAIGenerator{
		apiKey:    apiKey,
		model:     model,
		baseURL:   strings.TrimSuffix(opts.baseURL(defaultOpenAIBaseURL), "/"),
		maxTokens: opts.maxTokens(),
		client:    client,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, attachments []Attachment) (text string, err error) {
	done := httpclient.ObserveCall(ctx, string(ProviderOpenAI))
	defer func() { done(err) }()

	text, err = g.callChat(ctx, prompt, attachments)
	if err != nil {
		return "", Upstream(ProviderOpenAI, err)
	}
	return text, nil
}

func (g *OpenAIGenerator) callChat(ctx context.Context, prompt string, attachments []Attachment) (string, error) {
	content := []contentPart{{Type: "text", Text: prompt}}
	for _, a := range attachments {
		content = append(content, contentPart{
			Type: "image_url",
			ImageURL: &imageURL{
				URL: fmt.Sprintf("data:%s;base64,%s", a.MIMEType, base64.StdEncoding.EncodeToString(a.Data)),
			},
		})
	}

	req := chatRequest{
		Model:     g.model,
		Messages:  []chatMessage{{Role: "user", Content: content}},
		MaxTokens: g.maxTokens,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
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
		return "", &StatusError{Provider: ProviderOpenAI, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", err
	}

	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		return "", errEmptyResponse
	}

	return chatResp.Choices[0].Message.Content, nil
}
