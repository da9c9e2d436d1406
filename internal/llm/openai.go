package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const openAIAPIURL = "https://api.openai.com/v1/chat/completions"

// OpenAIClient talks to the chat completions API, or to any local server
// that speaks the same protocol.
type OpenAIClient struct {
	apiKey     string
	model      string
	url        string
	httpClient *http.Client
}

// NewOpenAIClient creates a chat completions client. An empty baseURL uses
// the public endpoint.
func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	if model == "" {
		model = "gpt-4o-mini"
	}
	url := openAIAPIURL
	if baseURL != "" {
		url = strings.TrimRight(baseURL, "/") + "/chat/completions"
	}
	return &OpenAIClient{
		apiKey: apiKey,
		model:  model,
		url:    url,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

type openAIRequest struct {
	Model       string      `json:"model"`
	Messages    []openAIMsg `json:"messages"`
	MaxTokens   int         `json:"max_tokens,omitempty"`
	Temperature *float64    `json:"temperature,omitempty"`
}

type openAIMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      openAIMsg `json:"message"`
		FinishReason string    `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt string, messages []Message, opts *RequestOptions) (*Response, error) {
	start := time.Now()

	msgs := make([]openAIMsg, 0, len(messages)+1)
	if systemPrompt != "" {
		msgs = append(msgs, openAIMsg{Role: "system", Content: systemPrompt})
	}
	for _, m := range messages {
		msgs = append(msgs, openAIMsg{Role: m.Role, Content: m.Content})
	}

	reqBody := openAIRequest{Model: c.model, Messages: msgs}
	if opts != nil {
		reqBody.MaxTokens = opts.MaxTokens
		if opts.Temperature > 0 {
			temp := opts.Temperature
			reqBody.Temperature = &temp
		}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var apiResp openAIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || apiResp.Error != nil {
		if apiResp.Error != nil {
			return nil, fmt.Errorf("API error (%d): %s - %s", resp.StatusCode, apiResp.Error.Type, apiResp.Error.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(body))
	}
	if len(apiResp.Choices) == 0 {
		return nil, fmt.Errorf("response has no choices")
	}

	return &Response{
		Content:      apiResp.Choices[0].Message.Content,
		InputTokens:  apiResp.Usage.PromptTokens,
		OutputTokens: apiResp.Usage.CompletionTokens,
		Duration:     time.Since(start),
		Model:        apiResp.Model,
		StopReason:   apiResp.Choices[0].FinishReason,
	}, nil
}

func (c *OpenAIClient) CompleteWithRetry(ctx context.Context, systemPrompt string, messages []Message, maxRetries int, opts *RequestOptions) (*Response, error) {
	return completeWithRetry(ctx, c.Complete, systemPrompt, messages, maxRetries, opts)
}
