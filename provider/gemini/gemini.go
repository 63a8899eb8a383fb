package gemini_provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const geminiAPIURL = "https://generativelanguage.googleapis.com/v1beta/models"

// client implements the provider interface using Google's Gemini API
type client struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// RequestError is returned when the API answers with a non-2xx status.
// The status code is preserved so callers can recognise 429 rejections.
type RequestError struct {
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("gemini API returned status %d: %s", e.StatusCode, e.Body)
}

// NewClient creates a new Gemini client
func NewClient(apiKey, model string, timeout time.Duration) *client {
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &client{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

// request represents a generateContent request body
type request struct {
	SystemInstruction *content  `json:"system_instruction,omitempty"`
	Contents          []content `json:"contents"`
}

// response represents a generateContent response body
type response struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Chat sends a single-turn conversation and returns the first candidate's text.
func (c *client) Chat(ctx context.Context, system, user string) (string, error) {
	reqBody := request{
		Contents: []content{{Role: "user", Parts: []part{{Text: user}}}},
	}
	if system != "" {
		reqBody.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent", geminiAPIURL, c.model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &RequestError{StatusCode: resp.StatusCode, Body: string(b)}
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini API returned no candidates")
	}

	var text string
	for _, p := range out.Candidates[0].Content.Parts {
		text += p.Text
	}
	return text, nil
}
