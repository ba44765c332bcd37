// internal/assist/gemini.go
package assist

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

// GenerativeClient abstracts the Gemini client for testability.
type GenerativeClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// ClientFactory creates a GenerativeClient. Tests inject a factory that
// returns a mock.
type ClientFactory func(ctx context.Context, apiKey string) (GenerativeClient, error)

type genaiClient struct {
	inner *genai.Client
}

func (g *genaiClient) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return g.inner.Models.GenerateContent(ctx, model, contents, config)
}

func (g *genaiClient) GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error] {
	return g.inner.Models.GenerateContentStream(ctx, model, contents, config)
}

// DefaultClientFactory creates a real Gemini API client.
func DefaultClientFactory(ctx context.Context, apiKey string) (GenerativeClient, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &genaiClient{inner: c}, nil
}

// ErrNoAPIKey is returned by every call when no key is configured.
var ErrNoAPIKey = errors.New("code intelligence is not configured: missing API key")

// Gemini implements Service on the Gemini API.
type Gemini struct {
	apiKey  string
	model   string
	timeout time.Duration
	factory ClientFactory
	logger  *zap.Logger
}

type GeminiOptions struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	Factory ClientFactory
	Logger  *zap.Logger
}

func NewGemini(opts GeminiOptions) *Gemini {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Factory == nil {
		opts.Factory = DefaultClientFactory
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Gemini{
		apiKey:  opts.APIKey,
		model:   opts.Model,
		timeout: opts.Timeout,
		factory: opts.Factory,
		logger:  opts.Logger.Named("assist"),
	}
}

func (g *Gemini) Run(ctx context.Context, code string) (string, error) {
	return g.generate(ctx, "run", code, &genai.GenerateContentConfig{
		SystemInstruction: instruction(instructionRunner),
		Temperature:       genai.Ptr(float32(0.1)),
	})
}

func (g *Gemini) Explain(ctx context.Context, code string) (string, error) {
	text, err := g.generate(ctx, "explain", explainPrompt(code), &genai.GenerateContentConfig{
		SystemInstruction: instruction(instructionHelper),
	})
	if err != nil {
		return "", err
	}
	if text == "" {
		return "No explanation provided.", nil
	}
	return text, nil
}

func (g *Gemini) Fix(ctx context.Context, code string) (string, error) {
	text, err := g.generate(ctx, "fix", fixPrompt(code), &genai.GenerateContentConfig{
		SystemInstruction: instruction(instructionHelper),
	})
	if err != nil {
		return "", err
	}
	return ExtractCode(text), nil
}

// Format returns the formatted code. An empty reply leaves the code as is.
func (g *Gemini) Format(ctx context.Context, code string) (string, error) {
	text, err := g.generate(ctx, "format", code, &genai.GenerateContentConfig{
		SystemInstruction: instruction(instructionFormatter),
	})
	if err != nil {
		return "", err
	}
	if text == "" {
		return code, nil
	}
	return stripFences(text), nil
}

func (g *Gemini) Complete(ctx context.Context, codeContext string) (string, error) {
	return g.generate(ctx, "complete", codeContext, &genai.GenerateContentConfig{
		SystemInstruction: instruction(instructionCompletion),
		Temperature:       genai.Ptr(float32(0.3)),
		MaxOutputTokens:   64,
	})
}

// Chat streams the model reply to onChunk. The current file is sent as part
// of the final user turn.
func (g *Gemini) Chat(ctx context.Context, history []Message, fileContext, userMessage string, onChunk func(string)) error {
	client, err := g.client(ctx)
	if err != nil {
		return err
	}

	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		contents = append(contents, &genai.Content{
			Role:  string(m.Role),
			Parts: []*genai.Part{{Text: m.Text}},
		})
	}
	contents = append(contents, &genai.Content{
		Role:  string(RoleUser),
		Parts: []*genai.Part{{Text: chatPrompt(fileContext, userMessage)}},
	})

	config := &genai.GenerateContentConfig{SystemInstruction: instruction(instructionChat)}
	chunks := 0
	for resp, err := range client.GenerateContentStream(ctx, g.model, contents, config) {
		if err != nil {
			g.logger.Warn("chat stream failed", zap.Error(err), zap.Int("chunks", chunks))
			return fmt.Errorf("streaming chat: %w", err)
		}
		if text := responseText(resp); text != "" {
			chunks++
			onChunk(text)
		}
	}
	g.logger.Debug("chat complete", zap.Int("chunks", chunks))
	return nil
}

func (g *Gemini) client(ctx context.Context) (GenerativeClient, error) {
	if g.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	client, err := g.factory(ctx, g.apiKey)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return client, nil
}

func (g *Gemini) generate(ctx context.Context, action, prompt string, config *genai.GenerateContentConfig) (string, error) {
	client, err := g.client(ctx)
	if err != nil {
		return "", err
	}

	start := time.Now()
	reqCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := client.GenerateContent(reqCtx, g.model, genai.Text(prompt), config)
	if err != nil {
		g.logger.Warn("generation failed", zap.String("action", action), zap.Error(err))
		return "", fmt.Errorf("%s: %w", action, err)
	}

	g.logger.Debug("generation complete",
		zap.String("action", action),
		zap.String("model", g.model),
		zap.Duration("duration", time.Since(start)),
	)
	return responseText(resp), nil
}

func instruction(text string) *genai.Content {
	return &genai.Content{Parts: []*genai.Part{{Text: text}}}
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}
