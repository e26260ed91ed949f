// Package genai is the boundary to the generative-AI provider. The provider
// is a black box: this package builds prompts, performs the HTTP exchange,
// and validates the JSON that comes back. Provider trouble surfaces as
// unavailable domain errors, never as a crash.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	dErrors "quizforge/pkg/domain-errors"
)

const defaultTimeout = 30 * time.Second

// Client speaks the generateContent wire shape: the API key rides in the
// query string, the prompt goes in contents/parts, and the reply text is at
// candidates[0].content.parts[0].text.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(endpoint, apiKey string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GenerateContent sends one prompt and returns the first candidate's text.
func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode provider request")
	}

	endpoint := c.endpoint + "?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to build provider request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "AI provider unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read provider response")
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.WarnContext(ctx, "AI provider returned non-OK status",
			"status", resp.StatusCode,
		)
		return "", dErrors.New(dErrors.CodeUnavailable,
			fmt.Sprintf("AI provider returned status %d", resp.StatusCode))
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "provider response is not valid JSON")
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", dErrors.New(dErrors.CodeUnavailable, "provider response contains no content")
	}
	return decoded.Candidates[0].Content.Parts[0].Text, nil
}
