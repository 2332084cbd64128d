package model

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/menutalk/kiku/internal/httpclient"
)

// AnthropicGenerator implements Generator on the Anthropic Messages API
type AnthropicGenerator struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicGenerator creates a new Anthropic generator. The SDK's own
// retry loop is switched off; one call means one request.
func NewAnthropicGenerator(apiKey, model string, opts Options) *AnthropicGenerator {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = httpclient.New(string(ProviderAnthropic), opts.timeout())
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(httpClient),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &AnthropicGenerator{
		client:    anthropic.NewClient(reqOpts...),
		model:     model,
		maxTokens: opts.maxTokens(),
	}
}

func (g *AnthropicGenerator) Generate(ctx context.Context, prompt string, attachments []Attachment) (text string, err error) {
	done := httpclient.ObserveCall(ctx, string(ProviderAnthropic))
	defer func() { done(err) }()

	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(attachments)+1)
	for _, a := range attachments {
		blocks = append(blocks, anthropic.NewImageBlockBase64(a.MIMEType, base64.StdEncoding.EncodeToString(a.Data)))
	}
	blocks = append(blocks, anthropic.NewTextBlock(prompt))

	msg, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: int64(g.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	})
	if err != nil {
		return "", Upstream(ProviderAnthropic, err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", Upstream(ProviderAnthropic, errEmptyResponse)
	}
	return sb.String(), nil
}

func sdkStatus(err error) int {
	var apiErr *anthropic.Error
	if stderrors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
