package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"gloss-relay/internal/models"
	"gloss-relay/internal/provider"
)

const (
	contentTypeJSON = "application/json"
	userAgent       = "gloss-relay/0.1"
	maxErrorBody    = 64 * 1024
)

var _ provider.Provider = (*Provider)(nil)

// Provider talks to an Ollama /api/chat endpoint.
type Provider struct {
	name    string
	chatURL string
	client  *http.Client
}

// New creates a provider posting to chatURL with the given client.
func New(name, chatURL string, client *http.Client) (*Provider, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}

	chatURL = strings.TrimSpace(chatURL)
	if chatURL == "" {
		return nil, errors.New("chat url must not be empty")
	}

	return &Provider{
		name:    name,
		chatURL: chatURL,
		client:  client,
	}, nil
}

func (p *Provider) Name() string {
	return p.name
}

// Chat performs exactly one non-streaming chat call.
func (p *Provider) Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	httpReq, err := p.newRequest(ctx, buildChatPayload(req))
	if err != nil {
		return nil, err
	}

	start := time.Now()
	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		slog.Warn("upstream request failed", "provider", p.name, "url", p.chatURL, "err", err)
		return nil, &provider.TransportError{Err: err}
	}
	defer httpResp.Body.Close()

	slog.Debug("upstream responded",
		"provider", p.name,
		"model", req.Model,
		"status", httpResp.StatusCode,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	if httpResp.StatusCode != http.StatusOK {
		return nil, readStatusError(httpResp)
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &provider.TransportError{Err: err}
	}

	var providerResp chatResponse
	if err := json.Unmarshal(body, &providerResp); err != nil {
		return nil, errors.Wrapf(err, "decode %s response", p.name)
	}

	return providerResp.toUnified(), nil
}

func (p *Provider) newRequest(ctx context.Context, payload chatPayload) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.chatURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "construct request")
	}

	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

type chatPayload struct {
	Model    string          `json:"model"`
	Stream   bool            `json:"stream"`
	Messages []ollamaMessage `json:"messages"`
	Options  chatOptions     `json:"options"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

func buildChatPayload(req models.ChatRequest) chatPayload {
	messages := make([]ollamaMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, ollamaMessage{Role: msg.Role, Content: msg.Content})
	}

	return chatPayload{
		Model:    req.Model,
		Stream:   false,
		Messages: messages,
		Options: chatOptions{
			Temperature: req.Options.Temperature,
			NumPredict:  req.Options.NumPredict,
		},
	}
}

// chatResponse tolerates a missing or null message object.
type chatResponse struct {
	Model   string         `json:"model"`
	Message *ollamaMessage `json:"message"`
	Done    bool           `json:"done"`
}

func (r chatResponse) toUnified() *models.ChatResponse {
	resp := &models.ChatResponse{
		Model: r.Model,
		Done:  r.Done,
	}
	if r.Message != nil {
		resp.Content = r.Message.Content
	}
	return resp
}

func readStatusError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return &provider.TransportError{Err: errors.Wrapf(err, "upstream status %d and failed to read body", resp.StatusCode)}
	}
	return &provider.StatusError{
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}
}
