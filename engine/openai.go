package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultOpenAIBaseURL is used when no base URL is configured.
const DefaultOpenAIBaseURL = "https://api.openai.com"

// OpenAIChat returns a ChatFunc backed by an OpenAI-compatible
// /v1/chat/completions endpoint. Any provider speaking that dialect works by
// swapping the base URL.
func OpenAIChat(baseURL, apiKey, model string, client *http.Client) ChatFunc {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	return func(ctx context.Context, prompt string) (string, error) {
		payload, err := json.Marshal(chatRequest{
			Model:    model,
			Messages: []chatMessage{{Role: "user", Content: prompt}},
		})
		if err != nil {
			return "", fmt.Errorf("encode chat request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			baseURL+"/v1/chat/completions", bytes.NewReader(payload))
		if err != nil {
			return "", fmt.Errorf("build chat request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+apiKey)

		resp, err := client.Do(req)
		if err != nil {
			return "", fmt.Errorf("chat request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("read chat response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("chat endpoint returned %d: %s", resp.StatusCode, truncateBody(body))
		}

		var decoded chatResponse
		if err := json.Unmarshal(body, &decoded); err != nil {
			return "", fmt.Errorf("decode chat response: %w", err)
		}
		if len(decoded.Choices) == 0 {
			return "", fmt.Errorf("chat endpoint returned no choices")
		}
		return decoded.Choices[0].Message.Content, nil
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func truncateBody(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
