package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const chatCompletionsEndpoint = "https://api.openai.com/v1/chat/completions"

// OpenAI translates through the chat completions API.
type OpenAI struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

func NewOpenAI(apiKey, model string) *OpenAI {
	return &OpenAI{
		apiKey:     apiKey,
		model:      model,
		endpoint:   chatCompletionsEndpoint,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// WithEndpoint points the client at another base URL (proxies, tests).
func (o *OpenAI) WithEndpoint(endpoint string) *OpenAI {
	o.endpoint = endpoint
	return o
}

func (o *OpenAI) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(o.apiKey) == "" {
		return "", errors.New("openai api key is not configured")
	}

	payload := map[string]any{
		"model": o.model,
		"messages": []map[string]string{
			{"role": "system", "content": SystemPrompt},
			{"role": "user", "content": userPrompt(text, sourceLang, targetLang)},
		},
		"temperature": 0,
	}
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return "", fmt.Errorf("encode translation payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, buf)
	if err != nil {
		return "", fmt.Errorf("create translation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", decodeAPIError(resp)
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("decode translation response: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", errors.New("no translation returned")
	}
	return cleanOutput(response.Choices[0].Message.Content)
}

func decodeAPIError(resp *http.Response) error {
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("openai api error: status %d type %s message %s", resp.StatusCode, apiErr.Error.Type, apiErr.Error.Message)
	}
	return fmt.Errorf("openai api error: status %d body %s", resp.StatusCode, string(body))
}
