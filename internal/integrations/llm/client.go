package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/Mindbaseeducation/khotwa-email-review-app/internal/config"
	"github.com/Mindbaseeducation/khotwa-email-review-app/internal/extract"
	"github.com/Mindbaseeducation/khotwa-email-review-app/internal/httpx"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type Config = config.Config

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"
const defaultOpenAIModel = "gpt-4-turbo"
const defaultOpenAIBaseURL = "https://api.openai.com/v1"

type LLMUsage struct {
	Calls                    int64
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

func (u LLMUsage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

func (u *LLMUsage) Add(other LLMUsage) {
	u.Calls += other.Calls
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationInputTokens += other.CacheCreationInputTokens
	u.CacheReadInputTokens += other.CacheReadInputTokens
}

// Client sends review prompts to the configured provider. It is safe for
// concurrent use and keeps a running usage total.
type Client struct {
	provider    string
	model       string
	apiKey      string
	baseURL     string
	temperature float64
	maxTokens   int64
	httpClient  *http.Client
	sdk         anthropic.Client

	mu    sync.Mutex
	usage LLMUsage
}

func NewClient(cfg Config) (*Client, error) {
	c := &Client{
		provider:    cfg.LLMProvider,
		model:       strings.TrimSpace(cfg.LLMModel),
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.LLMBaseURL), "/"),
		temperature: cfg.LLMTemperature,
		maxTokens:   int64(cfg.LLMMaxTokens),
		httpClient:  httpx.ExternalHTTPClient(),
	}
	if c.maxTokens <= 0 {
		c.maxTokens = 4096
	}

	switch c.provider {
	case "openai":
		c.apiKey = cfg.OpenAIAPIKey
		if c.model == "" {
			c.model = defaultOpenAIModel
		}
		if c.baseURL == "" {
			c.baseURL = defaultOpenAIBaseURL
		}
	case "anthropic", "":
		c.provider = "anthropic"
		c.apiKey = cfg.AnthropicAPIKey
		if c.model == "" {
			c.model = defaultAnthropicModel
		}
		opts := []option.RequestOption{
			option.WithAPIKey(c.apiKey),
			option.WithHTTPClient(c.httpClient),
			option.WithMaxRetries(cfg.LLMMaxRetries),
		}
		if c.baseURL != "" {
			opts = append(opts, option.WithBaseURL(c.baseURL+"/"))
		}
		c.sdk = anthropic.NewClient(opts...)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider)
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("missing API key for llm provider %s", c.provider)
	}
	return c, nil
}

func (c *Client) Provider() string { return c.provider }
func (c *Client) Model() string    { return c.model }

// Usage returns the totals accumulated since the client was created.
func (c *Client) Usage() LLMUsage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// Generate sends one review prompt and returns the model's full reply.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var text string
	var usage LLMUsage
	var err error

	switch c.provider {
	case "openai":
		text, usage, err = c.callOpenAI(ctx, extract.SystemPrompt, prompt)
	default:
		text, usage, err = c.callAnthropic(ctx, extract.SystemPrompt, prompt)
	}

	usage.Calls = 1
	c.mu.Lock()
	c.usage.Add(usage)
	c.mu.Unlock()
	return text, err
}

// --- Anthropic ---

func (c *Client) callAnthropic(ctx context.Context, systemPrompt, userPrompt string) (string, LLMUsage, error) {
	message, err := c.sdk.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(c.temperature),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		log.Printf("llm anthropic error: %v", err)
		return "", LLMUsage{}, fmt.Errorf("Anthropic API error: %w", err)
	}
	usage := LLMUsage{
		InputTokens:              message.Usage.InputTokens,
		OutputTokens:             message.Usage.OutputTokens,
		CacheCreationInputTokens: message.Usage.CacheCreationInputTokens,
		CacheReadInputTokens:     message.Usage.CacheReadInputTokens,
	}

	var text strings.Builder
	found := false
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
			found = true
		}
	}
	if !found {
		return "", usage, fmt.Errorf("no text content in Anthropic response")
	}
	log.Printf("llm anthropic response size=%d tokens_in=%d tokens_out=%d", text.Len(), usage.InputTokens, usage.OutputTokens)
	return text.String(), usage, nil
}

// --- OpenAI ---

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int64           `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) callOpenAI(ctx context.Context, systemPrompt, userPrompt string) (string, LLMUsage, error) {
	reqBody := openAIRequest{
		Model: c.model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", LLMUsage{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", LLMUsage{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("llm openai error: %v", err)
		return "", LLMUsage{}, fmt.Errorf("OpenAI API error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", LLMUsage{}, fmt.Errorf("reading response: %w", err)
	}

	var openAIResp openAIResponse
	if err := json.Unmarshal(respBody, &openAIResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", LLMUsage{}, fmt.Errorf("OpenAI API error %d: %s", resp.StatusCode, truncate(string(respBody), 512))
		}
		return "", LLMUsage{}, fmt.Errorf("parsing OpenAI response: %w", err)
	}

	if openAIResp.Error != nil {
		log.Printf("llm openai api error: %s", openAIResp.Error.Message)
		return "", LLMUsage{}, fmt.Errorf("OpenAI API error: %s", openAIResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", LLMUsage{}, fmt.Errorf("OpenAI API error %d", resp.StatusCode)
	}

	if len(openAIResp.Choices) == 0 {
		return "", LLMUsage{}, fmt.Errorf("no choices in OpenAI response")
	}
	usage := LLMUsage{}
	if openAIResp.Usage != nil {
		usage.InputTokens = openAIResp.Usage.PromptTokens
		usage.OutputTokens = openAIResp.Usage.CompletionTokens
	}

	log.Printf("llm openai response size=%d tokens_in=%d tokens_out=%d", len(openAIResp.Choices[0].Message.Content), usage.InputTokens, usage.OutputTokens)
	return openAIResp.Choices[0].Message.Content, usage, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + fmt.Sprintf("... [truncated, total_length=%d]", len(s))
}
