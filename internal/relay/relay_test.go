package relay

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gloss-relay/internal/models"
	"gloss-relay/internal/provider"
	"gloss-relay/internal/translator"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string {
	return "mock"
}

func (m *mockProvider) Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*models.ChatResponse)
	return resp, args.Error(1)
}

func newTestRelay(t *testing.T, p provider.Provider) *Relay {
	t.Helper()
	r, err := New(p, Options{
		Model:      "llama3",
		Generation: models.GenerationOptions{Temperature: 0.2, NumPredict: 50},
	})
	require.NoError(t, err)
	return r
}

func TestGenerateSentenceRejectsEmptyInput(t *testing.T) {
	p := new(mockProvider)
	r := newTestRelay(t, p)

	for _, words := range [][]string{nil, {}, {" "}, {"", " "}, {"\t", "\n"}} {
		_, err := r.GenerateSentence(context.Background(), words)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}

	p.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
}

func TestGenerateSentenceBuildsRequestAndCleansReply(t *testing.T) {
	p := new(mockProvider)
	r := newTestRelay(t, p)

	want := models.ChatRequest{
		Model: "llama3",
		Messages: []models.Message{
			{Role: models.RoleSystem, Content: translator.DefaultSystemPrompt},
			{Role: models.RoleUser, Content: "ASL gloss: STORE I GO"},
		},
		Options: models.GenerationOptions{Temperature: 0.2, NumPredict: 50},
	}
	p.On("Chat", mock.Anything, want).
		Return(&models.ChatResponse{Content: "\"I went to the store.\""}, nil).
		Once()

	resp, err := r.GenerateSentence(context.Background(), []string{"STORE", "I", "GO"})
	require.NoError(t, err)

	assert.Equal(t, translator.GenerateResponse{ASL: "STORE I GO", Sentence: "I went to the store."}, resp)
	p.AssertExpectations(t)
}

func TestGenerateSentenceEmptyReply(t *testing.T) {
	for _, content := range []string{"", "   ", "\n\t"} {
		p := new(mockProvider)
		p.On("Chat", mock.Anything, mock.Anything).Return(&models.ChatResponse{Content: content}, nil)

		_, err := newTestRelay(t, p).GenerateSentence(context.Background(), []string{"HELLO"})
		assert.ErrorIs(t, err, provider.ErrEmptyReply)
	}
}

func TestGenerateSentencePropagatesProviderErrors(t *testing.T) {
	statusErr := &provider.StatusError{StatusCode: 500, Body: "boom"}
	transportErr := &provider.TransportError{Err: errors.New("connection refused")}

	for _, upstreamErr := range []error{statusErr, transportErr} {
		p := new(mockProvider)
		p.On("Chat", mock.Anything, mock.Anything).Return(nil, upstreamErr).Once()

		_, err := newTestRelay(t, p).GenerateSentence(context.Background(), []string{"HELLO"})
		require.Error(t, err)
		assert.ErrorIs(t, err, upstreamErr)
		p.AssertNumberOfCalls(t, "Chat", 1)
	}
}

func TestGenerateSentenceIsIdempotent(t *testing.T) {
	p := new(mockProvider)
	p.On("Chat", mock.Anything, mock.Anything).Return(&models.ChatResponse{Content: "'You give me.'"}, nil)
	r := newTestRelay(t, p)

	first, err := r.GenerateSentence(context.Background(), []string{"YOU-GIVE"})
	require.NoError(t, err)
	second, err := r.GenerateSentence(context.Background(), []string{"YOU-GIVE"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "You give me.", second.Sentence)
}

func TestNewUsesCustomSystemPrompt(t *testing.T) {
	p := new(mockProvider)
	r, err := New(p, Options{Model: "llama3", SystemPrompt: "custom rules"})
	require.NoError(t, err)

	p.On("Chat", mock.Anything, mock.MatchedBy(func(req models.ChatRequest) bool {
		return len(req.Messages) == 2 && req.Messages[0].Content == "custom rules"
	})).Return(&models.ChatResponse{Content: "Hi."}, nil).Once()

	_, err = r.GenerateSentence(context.Background(), []string{"HELLO"})
	require.NoError(t, err)
	p.AssertExpectations(t)
}

func TestNewValidatesArguments(t *testing.T) {
	_, err := New(nil, Options{Model: "llama3"})
	assert.Error(t, err)

	_, err = New(new(mockProvider), Options{})
	assert.Error(t, err)
}
