package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gloss-relay/internal/models"
	"gloss-relay/internal/provider"
	"gloss-relay/internal/translator"
)

// ErrInvalidInput indicates the gloss joined to an empty string.
var ErrInvalidInput = errors.New("aslWords cannot be empty")

// Options configures a Relay.
type Options struct {
	Model        string
	SystemPrompt string
	Generation   models.GenerationOptions
}

// Relay turns gloss tokens into one upstream chat call and a cleaned
// sentence. It holds no per-request state.
type Relay struct {
	provider     provider.Provider
	model        string
	systemPrompt string
	generation   models.GenerationOptions
}

// New constructs a relay backed by the provided upstream.
func New(p provider.Provider, opts Options) (*Relay, error) {
	if p == nil {
		return nil, errors.New("provider must not be nil")
	}
	if strings.TrimSpace(opts.Model) == "" {
		return nil, errors.New("model must not be empty")
	}

	systemPrompt := opts.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = translator.DefaultSystemPrompt
	}

	return &Relay{
		provider:     p,
		model:        opts.Model,
		systemPrompt: systemPrompt,
		generation:   opts.Generation,
	}, nil
}

// GenerateSentence translates words into a single English sentence. Input is
// rejected before any upstream call when it joins to nothing.
func (r *Relay) GenerateSentence(ctx context.Context, words []string) (translator.GenerateResponse, error) {
	asl := translator.JoinGloss(words)
	if asl == "" {
		return translator.GenerateResponse{}, ErrInvalidInput
	}

	resp, err := r.provider.Chat(ctx, models.ChatRequest{
		Model:    r.model,
		Messages: translator.BuildMessages(r.systemPrompt, asl),
		Options:  r.generation,
	})
	if err != nil {
		return translator.GenerateResponse{}, fmt.Errorf("provider %s chat request: %w", r.provider.Name(), err)
	}

	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return translator.GenerateResponse{}, provider.ErrEmptyReply
	}

	return translator.GenerateResponse{
		ASL:      asl,
		Sentence: translator.CleanSentence(resp.Content),
	}, nil
}
