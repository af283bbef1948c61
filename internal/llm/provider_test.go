package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockProvider is a test implementation of the Provider interface
type MockProvider struct {
	name         string
	generateFunc func(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error)
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
	if m.generateFunc != nil {
		return m.generateFunc(ctx, request)
	}
	return &GenerationResponse{}, nil
}

func TestProviderInterface(t *testing.T) {
	var provider Provider = &MockProvider{name: "mock"}
	assert.Equal(t, "mock", provider.Name())

	resp, err := provider.Generate(context.Background(), &GenerationRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.RawOutput)
}

func TestUsage_Add(t *testing.T) {
	a := Usage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30}
	b := Usage{InputTokens: 1, OutputTokens: 2, ReasoningTokens: 5, TotalTokens: 8}

	assert.Equal(t, Usage{InputTokens: 11, OutputTokens: 22, ReasoningTokens: 5, TotalTokens: 38}, a.Add(b))
}

func TestCleanJSONOutput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "\n  {\"a\":1}  \n", `{"a":1}`},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSONOutput(tt.input))
		})
	}
}

func TestUserMessage(t *testing.T) {
	msg := UserMessage("compose")
	assert.Equal(t, "user", msg["role"])
	assert.Equal(t, "compose", msg["content"])
}

func TestGetCompositionSchema(t *testing.T) {
	schema := GetCompositionSchema()

	assert.Equal(t, "object", schema["type"])
	assert.ElementsMatch(t, []string{"metadata", "tracks"}, schema["required"])

	props := schema["properties"].(map[string]any)
	metadata := props["metadata"].(map[string]any)
	metaProps := metadata["properties"].(map[string]any)
	assert.Equal(t, []string{"major", "minor"}, metaProps["scale"].(map[string]any)["enum"])
	assert.Equal(t, 60, metaProps["tempo"].(map[string]any)["minimum"])
	assert.Equal(t, 200, metaProps["tempo"].(map[string]any)["maximum"])

	tracks := props["tracks"].(map[string]any)
	assert.Equal(t, 1, tracks["minItems"])
	track := tracks["items"].(map[string]any)
	trackProps := track["properties"].(map[string]any)
	notes := trackProps["notes"].(map[string]any)
	note := notes["items"].(map[string]any)
	assert.ElementsMatch(t, []string{"pitch", "start_time", "duration", "velocity"}, note["required"])
}

func TestCompositionOutputSchema(t *testing.T) {
	schema := CompositionOutputSchema()
	assert.Equal(t, "composition", schema.Name)
	assert.NotEmpty(t, schema.Description)
	assert.NotNil(t, schema.Schema)
}

func TestProviderFactory(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit openai", func(t *testing.T) {
		provider, err := NewProviderFactory("sk-test", "").GetProvider(ctx, "", "OpenAI")
		require.NoError(t, err)
		assert.Equal(t, "openai", provider.Name())
	})

	t.Run("model defaults to openai", func(t *testing.T) {
		provider, err := NewProviderFactory("sk-test", "").GetProvider(ctx, "gpt-4o", "")
		require.NoError(t, err)
		assert.Equal(t, "openai", provider.Name())
	})

	t.Run("missing openai key", func(t *testing.T) {
		_, err := NewProviderFactory("", "").GetProvider(ctx, "gpt-4o", "")
		assert.Error(t, err)
	})

	t.Run("missing gemini key", func(t *testing.T) {
		_, err := NewProviderFactory("sk-test", "").GetProvider(ctx, "gemini-2.5-flash", "")
		assert.Error(t, err)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewProviderFactory("sk-test", "g-test").GetProvider(ctx, "", "anthropic")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown provider")
	})
}
