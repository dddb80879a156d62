package describe

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	// DefaultModel is a vision-capable chat model.
	DefaultModel = "gpt-4o"

	// Markup answers spend roughly one token per character, so they get a
	// much larger completion budget than plain alt text.
	defaultTextTokens   = 300
	defaultMarkupTokens = 2000
)

// OpenAIConfig configures the OpenAI-backed client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // override for testing
	Model   string
	Timeout time.Duration

	// MaxTokens caps text answers; markup answers use a larger fixed cap.
	MaxTokens int

	// MaxRetries bounds transport-level retries on transient failures.
	// The pipeline itself never retries a node.
	MaxRetries int

	// RequestsPerMinute paces calls to the service. 0 uses a default.
	RequestsPerMinute int

	Logger *slog.Logger
}

// OpenAIClient implements Client against the OpenAI chat completions API.
type OpenAIClient struct {
	client     openai.Client
	model      string
	maxTokens  int
	maxRetries int
	limiter    *RateLimiter
	logger     *slog.Logger
}

// NewOpenAIClient creates a client. The API key is passed explicitly; the
// client never reads ambient credentials.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 90 * time.Second
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultTextTokens
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(0), // retries are handled below
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		client:     openai.NewClient(opts...),
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		maxRetries: cfg.MaxRetries,
		limiter:    NewRateLimiter(cfg.RequestsPerMinute),
		logger:     logger.With("component", "describe"),
	}
}

// Describe sends one payload and returns the generated description.
func (c *OpenAIClient) Describe(ctx context.Context, p *Payload, opts Options) (*Result, error) {
	prompt, err := buildPrompt(p, opts)
	if err != nil {
		return nil, &ServiceError{Reason: ReasonUnknown, Err: err}
	}

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(prompt),
	}
	switch {
	case len(p.Image) > 0:
		url := fmt.Sprintf("data:%s;base64,%s", p.MIMEType, base64.StdEncoding.EncodeToString(p.Image))
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: url}))
	case p.Markup != "":
		parts = append(parts, openai.TextContentPart("```xml\n"+p.Markup+"\n```"))
	default:
		return nil, &ServiceError{Reason: ReasonUnknown, Err: errors.New("payload has no content")}
	}

	params := openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(parts)},
	}
	if p.Task == TaskMathML || p.Markup != "" {
		params.MaxTokens = openai.Int(defaultMarkupTokens)
		params.Temperature = openai.Float(0)
	} else {
		params.MaxTokens = openai.Int(int64(c.maxTokens))
	}

	requestID := uuid.New().String()
	log := c.logger.With("request_id", requestID, "task", string(p.Task))

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &ServiceError{Reason: ReasonUnknown, Err: err}
	}

	var completion *openai.ChatCompletion
	err = retry.Do(
		func() error {
			var callErr error
			completion, callErr = c.client.Chat.Completions.New(ctx, params)
			return callErr
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries)),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
		retry.OnRetry(func(n uint, err error) {
			if classify(err) == ReasonRateLimit {
				c.limiter.RecordRateLimited()
			}
			log.Debug("retrying description request", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		reason := classify(err)
		log.Warn("description request failed", "reason", string(reason), "error", err)
		return nil, &ServiceError{Reason: reason, Err: err}
	}

	if len(completion.Choices) == 0 {
		return nil, &ServiceError{Reason: ReasonMalformed, Err: errors.New("no choices in response")}
	}
	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return nil, &ServiceError{Reason: ReasonMalformed, Err: errors.New("empty content in response")}
	}

	log.Debug("description generated", "model", completion.Model, "chars", len(content))
	return &Result{
		Task:      p.Task,
		Content:   content,
		Model:     completion.Model,
		RequestID: requestID,
	}, nil
}

// isTransient reports whether an error is worth a transport-level retry.
func isTransient(err error) bool {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return apierr.StatusCode == http.StatusTooManyRequests || apierr.StatusCode >= 500
	}
	// Network-level errors without a status code are retried.
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// classify maps a transport error onto the service error taxonomy.
func classify(err error) Reason {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == http.StatusUnauthorized || apierr.StatusCode == http.StatusForbidden:
			return ReasonAuth
		case apierr.StatusCode == http.StatusTooManyRequests:
			return ReasonRateLimit
		case apierr.StatusCode >= 400 && apierr.StatusCode < 500:
			return ReasonMalformed
		}
	}
	return ReasonUnknown
}

// Verify interface
var _ Client = (*OpenAIClient)(nil)
