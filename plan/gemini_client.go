package plan

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultGeminiBaseURL is the Generative Language REST endpoint.
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultImageModel renders the room visualization.
	DefaultImageModel = "gemini-2.5-flash-image"

	// DefaultAdviceModel writes the layout advice.
	DefaultAdviceModel = "gemini-3-flash-preview"

	// DefaultGenerateTimeout bounds one generateContent request.
	DefaultGenerateTimeout = 90 * time.Second

	// DefaultMaxRetries is the default number of attempts per request.
	DefaultMaxRetries = 3

	defaultBaseBackoff = 500 * time.Millisecond

	// maxResponseBytes limits the response body to 32 MB; images arrive inline.
	maxResponseBytes = 32 << 20
)

// ErrMissingAPIKey is returned when the client has no API key
var ErrMissingAPIKey = errors.New("gemini API key not configured")

// GeminiOption configures a GeminiClient.
type GeminiOption func(*GeminiClient)

// WithBaseURL overrides the REST endpoint (useful for testing).
func WithBaseURL(u string) GeminiOption {
	return func(c *GeminiClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithImageModel sets the model used for visualizations.
func WithImageModel(m string) GeminiOption {
	return func(c *GeminiClient) {
		c.imageModel = m
	}
}

// WithAdviceModel sets the model used for advice.
func WithAdviceModel(m string) GeminiOption {
	return func(c *GeminiClient) {
		c.adviceModel = m
	}
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) GeminiOption {
	return func(c *GeminiClient) {
		c.timeout = d
	}
}

// WithMaxRetries sets the maximum number of attempts.
func WithMaxRetries(n int) GeminiOption {
	return func(c *GeminiClient) {
		c.maxRetries = n
	}
}

// WithBaseBackoff sets the base delay for exponential backoff between retries.
func WithBaseBackoff(d time.Duration) GeminiOption {
	return func(c *GeminiClient) {
		c.baseBackoff = d
	}
}

// WithHTTPClient overrides the default HTTP client (useful for testing).
func WithHTTPClient(client *http.Client) GeminiOption {
	return func(c *GeminiClient) {
		c.client = client
	}
}

// GeminiClient is a Designer backed by the Gemini generateContent REST API
type GeminiClient struct {
	apiKey      string
	baseURL     string
	imageModel  string
	adviceModel string
	timeout     time.Duration
	maxRetries  int
	baseBackoff time.Duration
	client      *http.Client
}

// NewGeminiClient creates a client. An empty apiKey is accepted; every call
// then fails with ErrMissingAPIKey.
func NewGeminiClient(apiKey string, opts ...GeminiOption) *GeminiClient {
	c := &GeminiClient{
		apiKey:      apiKey,
		baseURL:     DefaultGeminiBaseURL,
		imageModel:  DefaultImageModel,
		adviceModel: DefaultAdviceModel,
		timeout:     DefaultGenerateTimeout,
		maxRetries:  DefaultMaxRetries,
		baseBackoff: defaultBaseBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: c.timeout}
	}
	if c.maxRetries < 1 {
		c.maxRetries = 1
	}
	return c
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig map[string]any  `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// VisualizationPrompt builds the image prompt for a room and its furniture
func VisualizationPrompt(cfg RoomConfig, items []FurnitureItem) string {
	style := LookupStyle(cfg.Style)
	summary := make([]string, len(items))
	for i, it := range items {
		summary[i] = fmt.Sprintf("%s (%s)", it.Kind, it.Color)
	}

	var b strings.Builder
	b.WriteString("Фотореалистичная 3D визуализация интерьера.\n")
	fmt.Fprintf(&b, "Тип комнаты: %s.\n", strings.ToLower(RoomTypeName(cfg.Type)))
	fmt.Fprintf(&b, "Стиль: %s.\n", style.Name)
	fmt.Fprintf(&b, "Материалы отделки: %s.\n", style.Materials)
	fmt.Fprintf(&b, "Цветовая палитра: %s.\n", strings.Join(style.Palette, ", "))
	fmt.Fprintf(&b, "Мебель в комнате: %s.\n", strings.Join(summary, ", "))
	b.WriteString("Освещение: естественный дневной свет из окна, мягкие тени.\n")
	b.WriteString("Качество: 8k, photorealistic, architectural visualization, interior design magazine style.")
	return b.String()
}

// AdvicePrompt builds the advice prompt for a room and its furniture
func AdvicePrompt(cfg RoomConfig, items []FurnitureItem) string {
	return fmt.Sprintf("Ты - эксперт по дизайну интерьеров. Дай 3 конкретных совета по улучшению планировки для комнаты типа %s в стиле %s.\n"+
		"Размеры комнаты: %gx%gсм. Расставлено мебели: %d предметов.\n"+
		"Отвечай на русском языке в формате списка строк.",
		cfg.Type, cfg.Style, cfg.Width, cfg.Height, len(items))
}

// GenerateVisualization asks the image model for a rendering and returns the
// first inline image as a data URL
func (c *GeminiClient) GenerateVisualization(ctx context.Context, cfg RoomConfig, items []FurnitureItem) (string, error) {
	req := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: VisualizationPrompt(cfg, items)}}}},
		GenerationConfig: map[string]any{
			"responseModalities": []string{"TEXT", "IMAGE"},
			"imageConfig":        map[string]any{"aspectRatio": "16:9"},
		},
	}

	resp, err := c.generate(ctx, c.imageModel, req)
	if err != nil {
		return "", fmt.Errorf("generate visualization: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("generate visualization: no candidates returned")
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData != nil && part.InlineData.Data != "" {
			return "data:image/png;base64," + part.InlineData.Data, nil
		}
	}
	return "", fmt.Errorf("generate visualization: no image data in response")
}

// GenerateAdvice asks the text model for layout tips as a JSON string list
func (c *GeminiClient) GenerateAdvice(ctx context.Context, cfg RoomConfig, items []FurnitureItem) ([]string, error) {
	req := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: AdvicePrompt(cfg, items)}}}},
		GenerationConfig: map[string]any{
			"responseMimeType": "application/json",
			"responseSchema": map[string]any{
				"type": "OBJECT",
				"properties": map[string]any{
					"advice": map[string]any{
						"type":  "ARRAY",
						"items": map[string]any{"type": "STRING"},
					},
				},
			},
		},
	}

	resp, err := c.generate(ctx, c.adviceModel, req)
	if err != nil {
		return nil, fmt.Errorf("generate advice: %w", err)
	}

	var text strings.Builder
	if len(resp.Candidates) > 0 {
		for _, part := range resp.Candidates[0].Content.Parts {
			text.WriteString(part.Text)
		}
	}
	raw := text.String()
	if strings.TrimSpace(raw) == "" {
		raw = `{"advice":[]}`
	}

	var result struct {
		Advice []string `json:"advice"`
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("generate advice: parsing JSON: %w", err)
	}
	if result.Advice == nil {
		result.Advice = []string{}
	}
	return result.Advice, nil
}

// statusError is a non-200 response
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d", e.code)
}

// retryable reports whether a failed attempt may succeed on retry. Client
// errors other than rate limiting are final.
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return true
}

// generate posts a generateContent request, retrying transient failures with
// exponential backoff
func (c *GeminiClient) generate(ctx context.Context, model string, req geminiRequest) (*geminiResponse, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)

	var lastErr error
	for attempt := range c.maxRetries {
		if attempt > 0 {
			backoff := c.baseBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		body, err := c.doPost(ctx, url, payload)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil || !retryable(err) {
				return nil, err
			}
			logger().Debugw("gemini request failed, retrying", "model", model, "attempt", attempt+1, "err", err)
			continue
		}

		var resp geminiResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			// Parse errors are not transient; do not retry.
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
		return &resp, nil
	}

	return nil, fmt.Errorf("all %d attempts failed: %w", c.maxRetries, lastErr)
}

// doPost performs a single HTTP POST and returns the response body bytes.
func (c *GeminiClient) doPost(ctx context.Context, url string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP POST %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP POST %s: %w", url, &statusError{code: resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", url, err)
	}
	return body, nil
}
