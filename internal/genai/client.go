// Package genai asks an external text-generation endpoint to reconcile a
// pasted class roster against the current seating chart. Responses are
// constrained JSON; transport failures are retried with exponential backoff,
// format failures are not.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"seatplan/api/internal/seating"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.5-flash"
	defaultTimeout = 20 * time.Second
)

// Phase reports where a generation request currently is. Attempt numbers
// accompany the requesting and retrying phases.
type Phase string

const (
	PhaseRequesting Phase = "requesting"
	PhaseRetrying   Phase = "retrying"
	PhaseParsing    Phase = "parsing"
)

// Config wires a Client. Zero fields fall back to defaults; only APIKey is
// required by the live endpoint.
type Config struct {
	BaseURL string
	Model   string
	APIKey  string
	// Timeout bounds each attempt when the caller's context carries no
	// deadline of its own.
	Timeout time.Duration
	Policy  Policy
}

// Client calls the generateContent endpoint. Safe for concurrent use.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	timeout    time.Duration
	policy     Policy
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		model:      strings.TrimSpace(cfg.Model),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		timeout:    cfg.Timeout,
		policy:     cfg.Policy,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.model == "" {
		c.model = defaultModel
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.policy.MaxAttempts < 1 {
		c.policy = DefaultPolicy()
	}
	return c
}

// Request describes one reconciliation call.
type Request struct {
	State      seating.State
	RosterText string
	// Notify, when set, receives phase transitions as the call progresses.
	// The attempt number is 0 for phases where it has no meaning.
	Notify func(phase Phase, attempt int)
}

func (r Request) notify(phase Phase, attempt int) {
	if r.Notify != nil {
		r.Notify(phase, attempt)
	}
}

type generateRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
	Error      *apiError   `json:"error,omitempty"`
}

type candidate struct {
	Content content `json:"content"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// GenerateSeating sends the chart snapshot and roster to the model and
// parses the reply into a proposal. Transport failures retry per the
// client's policy; once text arrives, a parse failure is final.
func (c *Client) GenerateSeating(ctx context.Context, req Request) (seating.Proposal, error) {
	userPrompt, err := buildUserPrompt(req.State, req.RosterText)
	if err != nil {
		return seating.Proposal{}, err
	}
	payload, err := json.Marshal(generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: userPrompt}}},
		},
		SystemInstruction: &content{Parts: []part{{Text: systemInstruction}}},
		GenerationConfig: generationConfig{
			Temperature:      0.2,
			MaxOutputTokens:  8192,
			ResponseMimeType: "application/json",
		},
	})
	if err != nil {
		return seating.Proposal{}, fmt.Errorf("encode generation request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	text, err := retry(ctx, c.policy, func(ctx context.Context, attempt int) (string, error) {
		if attempt == 1 {
			req.notify(PhaseRequesting, attempt)
		} else {
			req.notify(PhaseRetrying, attempt)
		}
		return c.complete(ctx, url, payload)
	})
	if err != nil {
		return seating.Proposal{}, err
	}

	req.notify(PhaseParsing, 0)
	return ParseProposal(text)
}

// complete performs one attempt and returns the concatenated model text.
func (c *Client) complete(ctx context.Context, url string, payload []byte) (string, error) {
	if c.timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode response envelope: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("endpoint error %d: %s", out.Error.Code, out.Error.Message)
	}

	var b strings.Builder
	if len(out.Candidates) > 0 {
		for _, p := range out.Candidates[0].Content.Parts {
			b.WriteString(p.Text)
		}
	}
	return strings.TrimSpace(b.String()), nil
}
