package llm

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseText(t *testing.T) {
	tests := []struct {
		name string
		resp *Response
		want string
	}{
		{"nil", nil, ""},
		{"no candidates", &Response{}, ""},
		{"candidate without content", &Response{Candidates: []Candidate{{}}}, ""},
		{"content without parts", &Response{Candidates: []Candidate{{Content: &Content{}}}}, ""},
		{"text", TextResponse("hi"), "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.resp.Text())
		})
	}
}

func TestResponse_DecodesEnvelope(t *testing.T) {
	var r Response
	require.NoError(t, json.Unmarshal([]byte(`{"candidates":[{"content":{"parts":[{"text":"hello"}]}}]}`), &r))
	assert.Equal(t, "hello", r.Text())
}

func TestNewClient_MissingKeyIsNotConfigured(t *testing.T) {
	for _, provider := range []string{"", "gemini", "openai", "anthropic"} {
		t.Run(provider, func(t *testing.T) {
			c, err := NewClient(context.Background(), ProviderConfig{Provider: provider})
			require.NoError(t, err)
			_, err = c.Generate(context.Background(), "hi", ReplyOptions)
			assert.ErrorIs(t, err, ErrNotConfigured)
		})
	}
}

func TestNewClient_UnknownProvider(t *testing.T) {
	_, err := NewClient(context.Background(), ProviderConfig{Provider: "palm", APIKey: "k"})
	assert.Error(t, err)
}

func TestNewClient_KeyedProviders(t *testing.T) {
	c, err := NewClient(context.Background(), ProviderConfig{Provider: "openai", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIClient{}, c)

	c, err = NewClient(context.Background(), ProviderConfig{Provider: "ollama", APIKey: "ollama"})
	require.NoError(t, err)
	assert.Equal(t, "llama3.1", c.(*OpenAIClient).model)

	c, err = NewClient(context.Background(), ProviderConfig{Provider: "anthropic", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, c)
}
