package translator

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Default base URLs for the OpenAI-compatible providers. The API path prefix
// "/v1" is appended by the client.
var chatBaseURLs = map[string]string{
	"openai":     "https://api.openai.com",
	"ollama":     "http://localhost:11434",
	"lmstudio":   "http://localhost:1234",
	"groq":       "https://api.groq.com/openai",
	"openrouter": "https://openrouter.ai/api",
}

// Chat translates through an OpenAI-compatible chat completions endpoint
// (OpenAI, Ollama, LM Studio, Groq, OpenRouter or any compatible server).
type Chat struct {
	baseURL   string
	apiKey    string
	model     string
	maxLength int
	client    *http.Client
}

// ChatOptions configures NewChat.
type ChatOptions struct {
	// Provider selects the default BaseURL; "custom" requires BaseURL.
	Provider string
	BaseURL  string
	APIKey   string
	Model    string

	// MaxLength rejects longer texts (in characters) with ErrTextTooLong.
	MaxLength int

	Timeout time.Duration
}

// NewChat returns a chat-completion translator.
func NewChat(opts ChatOptions) (*Chat, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = chatBaseURLs[opts.Provider]
	}
	if base == "" {
		return nil, fmt.Errorf("translator: provider %q needs a base URL", opts.Provider)
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("translator: provider %q needs a model", opts.Provider)
	}
	return &Chat{
		baseURL:   base,
		apiKey:    opts.APIKey,
		model:     opts.Model,
		maxLength: opts.MaxLength,
		client:    newHTTPClient(opts.Timeout),
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Translate implements Translator.
func (c *Chat) Translate(ctx context.Context, text, source, target string) (string, error) {
	if c.maxLength > 0 && utf8.RuneCountInString(text) > c.maxLength {
		return "", fmt.Errorf("%w: %d characters (max %d)", ErrTextTooLong, utf8.RuneCountInString(text), c.maxLength)
	}

	req := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(source, target)},
			{Role: "user", Content: text},
		},
	}

	header := http.Header{}
	if c.apiKey != "" {
		header.Set("Authorization", "Bearer "+c.apiKey)
	}

	var resp chatCompletionResponse
	if err := postJSON(ctx, c.client, c.baseURL+"/v1/chat/completions", header, req, &resp); err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	if resp.Choices[0].FinishReason == "length" {
		return "", fmt.Errorf("chat: %w: reply truncated", ErrTextTooLong)
	}

	out := stripThinking(resp.Choices[0].Message.Content)
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

func systemPrompt(source, target string) string {
	return fmt.Sprintf("You are a professional literary translator. Translate the user's text from %s to %s. "+
		"Reply with the translation only: no quotes, notes or explanations. "+
		"Keep punctuation, numbers and proper names as they are.",
		languageName(source), languageName(target))
}

// languageName returns the English name of a language tag, or the tag
// itself when it is not recognised.
func languageName(tag string) string {
	t, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	if name := display.English.Tags().Name(t); name != "" {
		return name
	}
	return tag
}

// stripThinking removes <think>...</think> blocks some reasoning models emit
// before their answer.
func stripThinking(s string) string {
	for {
		start := strings.Index(s, "<think>")
		if start == -1 {
			break
		}
		end := strings.Index(s[start:], "</think>")
		if end == -1 {
			s = s[:start]
			break
		}
		s = s[:start] + s[start+end+len("</think>"):]
	}
	return strings.TrimSpace(s)
}
