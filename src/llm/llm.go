package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	defaultBaseURL    = "https://openrouter.ai/api/v1"
	defaultMaxRetries = 3
	defaultDelay      = 1 * time.Second
	defaultTimeout    = 45 * time.Second
	noTextMarker      = "NO_TEXT_FOUND"
)

var (
	ErrNotConfigured = errors.New("LLM client not configured")
	ErrNoChoices     = errors.New("no choices in API response")
)

type Config struct {
	APIKey         string
	BaseURL        string
	Model          string // vision model used for OCR
	TranslateModel string // falls back to Model
	Providers      []string
	MaxRetries     int
	RetryDelay     time.Duration
	Timeout        time.Duration
	HTTPClient     *http.Client // optional (tests)
}

// ProviderPreferences is the OpenRouter routing extension of the request body.
type ProviderPreferences struct {
	Order          []string `json:"order,omitempty"`
	AllowFallbacks *bool    `json:"allow_fallbacks,omitempty"`
}

// Client talks to an OpenAI-compatible chat completion endpoint
// (OpenRouter by default).
type Client struct {
	cfg    Config
	client openai.Client
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.TranslateModel == "" {
		cfg.TranslateModel = cfg.Model
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithHTTPClient(httpClient),
		// Retries are handled here so OpenRouter errors share one policy.
		option.WithMaxRetries(0),
		option.WithHeader("HTTP-Referer", "https://github.com/screen-ocr-translate"),
		option.WithHeader("X-Title", "Screen OCR Translate"),
	)
	return &Client{cfg: cfg, client: client}
}

// Ping verifies the endpoint is reachable and the key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.cfg.APIKey == "" {
		return fmt.Errorf("%w: API key is required", ErrNotConfigured)
	}
	page, err := c.client.Models.List(ctx)
	if err != nil {
		return fmt.Errorf("models list failed: %w", mapError(err))
	}
	if page == nil {
		return fmt.Errorf("models list returned nil response")
	}
	return nil
}

// QueryVision sends a PNG image to the vision model for OCR. An image with
// no text yields "" and a nil error.
func (c *Client) QueryVision(ctx context.Context, imageData []byte) (string, error) {
	if err := c.check(false); err != nil {
		return "", err
	}

	imageURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(imageData)
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(visionPrompt),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: imageURL}),
		}),
	}

	text, err := c.complete(ctx, c.cfg.Model, messages)
	if err != nil {
		return "", err
	}
	text = cleanExtractedText(text)
	if strings.TrimSpace(text) == noTextMarker {
		return "", nil
	}
	return text, nil
}

// Translate translates text as a single unit into the target language.
// Empty input is sent as-is; whatever the model answers is returned.
func (c *Client) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	if err := c.check(true); err != nil {
		return "", err
	}
	if targetLanguage == "" {
		return "", fmt.Errorf("target language is required")
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(fmt.Sprintf(translatePrompt, targetLanguage)),
		openai.UserMessage(text),
	}
	return c.complete(ctx, c.cfg.TranslateModel, messages)
}

func (c *Client) check(translate bool) error {
	if c == nil {
		return ErrNotConfigured
	}
	if c.cfg.APIKey == "" {
		return fmt.Errorf("%w: API key is required", ErrNotConfigured)
	}
	model := c.cfg.Model
	if translate {
		model = c.cfg.TranslateModel
	}
	if model == "" {
		return fmt.Errorf("%w: model is required", ErrNotConfigured)
	}
	return nil
}

func (c *Client) complete(ctx context.Context, model string, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    messages,
		Temperature: openai.Float(0.1),
		MaxTokens:   openai.Int(2000),
	}
	var opts []option.RequestOption
	if prefs := c.providerPreferences(); prefs != nil {
		opts = append(opts, option.WithJSONSet("provider", prefs))
	}

	return retry.DoWithData(
		func() (string, error) {
			resp, err := c.client.Chat.Completions.New(ctx, params, opts...)
			if err != nil {
				return "", mapError(err)
			}
			if len(resp.Choices) == 0 {
				return "", ErrNoChoices
			}
			return resp.Choices[0].Message.Content, nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.cfg.MaxRetries)),
		retry.Delay(c.cfg.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("llm: attempt %d with model %s failed: %v", n+1, model, err)
		}),
	)
}

// providerPreferences pins the OpenRouter provider order when configured.
func (c *Client) providerPreferences() *ProviderPreferences {
	if len(c.cfg.Providers) == 0 {
		return nil
	}
	allowFallbacks := false
	return &ProviderPreferences{
		Order:          c.cfg.Providers,
		AllowFallbacks: &allowFallbacks,
	}
}

// StatusError is a non-2xx answer from the endpoint.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API returned status %d", e.StatusCode)
}

func mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &StatusError{StatusCode: apiErr.StatusCode, Message: apiErr.Message}
	}
	return err
}

// isRetryable keeps retrying transport errors, rate limits and 5xx, and
// gives up on other client errors such as a bad key.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	return true
}

func cleanExtractedText(text string) string {
	// Some vision models echo a trailing image tag.
	text = strings.TrimSuffix(text, "</image>")
	return text
}

const visionPrompt = "Perform OCR on this image. Return ONLY the raw extracted text with:\n" +
	"- No formatting\n" +
	"- No XML/HTML tags\n" +
	"- No markdown\n" +
	"- No explanations\n" +
	"- One detected line of text per output line, in reading order.\n" +
	"If no text found, return '" + noTextMarker + "'"

const translatePrompt = "You are a translation engine. Translate the user's message into %s. " +
	"Translate the whole message as one text, keep its line breaks, and return ONLY the translation."
