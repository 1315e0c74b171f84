package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kartikeya-G121/SIH-CreditScore/internal/schema"
)

var testSchema = &schema.Schema{
	Name: "answer",
	Fields: []schema.Field{
		schema.String("answer", "The answer").NonBlank(),
		schema.Enum("tone", "Tone", "Calm", "Urgent").Optional(),
	},
}

// TestExtractJSON проверяет извлечение JSON из ответа модели.
func TestExtractJSON(t *testing.T) {
	cases := map[string]string{
		`{"a":1}`:                         `{"a":1}`,
		"```json\n{\"a\":1}\n```":         `{"a":1}`,
		"Here you go: {\"a\":{\"b\":2}}.": `{"a":{"b":2}}`,
		"no json here":                    "",
		"":                                "",
		"} {":                             "",
		`[{"a":1}]`:                       "",
		"```json\n[{\"a\":1}]\n```":       "",
	}

	for input, want := range cases {
		assert.Equal(t, want, ExtractJSON(input), input)
	}
}

// TestGeminiChatSendsInlineImageAndSchema проверяет запрос к Gemini REST API.
func TestGeminiChatSendsInlineImageAndSchema(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-goog-api-key"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"answer\":"},{"text":"\"ok\"}"}]}}]}`))
	}))
	defer server.Close()

	client := NewGeminiClient("key", server.URL+"/", "gemini-test", time.Second, 0)
	content, raw, err := client.Chat(context.Background(), Request{
		System: "Respond with JSON only.",
		Prompt: "Read the bill.",
		Media:  []Media{{MIMEType: "image/png", Data: []byte{1, 2, 3}}},
		Schema: testSchema,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"answer":"ok"}`, content)
	assert.NotEmpty(t, raw)

	contents := captured["contents"].([]any)
	parts := contents[0].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 2)
	assert.Equal(t, "Read the bill.", parts[0].(map[string]any)["text"])
	inline := parts[1].(map[string]any)["inline_data"].(map[string]any)
	assert.Equal(t, "image/png", inline["mime_type"])
	assert.Equal(t, "AQID", inline["data"])

	generation := captured["generationConfig"].(map[string]any)
	responseSchema := generation["responseSchema"].(map[string]any)
	assert.Equal(t, "OBJECT", responseSchema["type"])
	assert.Equal(t, []any{"answer"}, responseSchema["required"])
	tone := responseSchema["properties"].(map[string]any)["tone"].(map[string]any)
	assert.Equal(t, []any{"Calm", "Urgent"}, tone["enum"])
}

// TestGeminiChatEmptyCandidates проверяет классификацию пустого ответа.
func TestGeminiChatEmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client := NewGeminiClient("key", server.URL, "m", time.Second, 0)
	_, _, err := client.Chat(context.Background(), Request{Prompt: "hi"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

// TestGeminiChatAPIError проверяет разбор ошибки API.
func TestGeminiChatAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}))
	defer server.Close()

	client := NewGeminiClient("key", server.URL, "m", time.Second, 0)
	_, raw, err := client.Chat(context.Background(), Request{Prompt: "hi"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyResponse)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.NotEmpty(t, raw)
}

// TestGeminiChatMissingKey проверяет отказ без ключа.
func TestGeminiChatMissingKey(t *testing.T) {
	client := NewGeminiClient("", "http://localhost", "m", time.Second, 0)
	_, _, err := client.Chat(context.Background(), Request{Prompt: "hi"})
	assert.Error(t, err)
}

// TestGroqChatSendsImageParts проверяет OpenAI-совместимый запрос с изображением.
func TestGroqChatSendsImageParts(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"answer\":\"ok\"}"}}]}`))
	}))
	defer server.Close()

	client := NewGroqClient("gsk", server.URL, "llama", time.Second, 100)
	content, _, err := client.Chat(context.Background(), Request{
		System: "json only",
		Prompt: "Read the bill.",
		Media:  []Media{{MIMEType: "image/jpeg", Data: []byte{1, 2, 3}}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"answer":"ok"}`, content)

	assert.Equal(t, "llama", captured["model"])
	assert.Equal(t, float64(100), captured["max_tokens"])
	messages := captured["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "json only", messages[0].(map[string]any)["content"])

	parts := messages[1].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	image := parts[1].(map[string]any)["image_url"].(map[string]any)
	assert.Equal(t, "data:image/jpeg;base64,AQID", image["url"])
}

// TestGroqChatAPIError проверяет разбор ошибки Groq.
func TestGroqChatAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"over capacity"}}`))
	}))
	defer server.Close()

	client := NewGroqClient("gsk", server.URL, "llama", time.Second, 0)
	_, _, err := client.Chat(context.Background(), Request{Prompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "over capacity")
}

// TestGroqChatEmptyChoices проверяет классификацию пустого ответа Groq.
func TestGroqChatEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewGroqClient("gsk", server.URL, "llama", time.Second, 0)
	_, _, err := client.Chat(context.Background(), Request{Prompt: "hi"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

// TestToGenAISchema проверяет преобразование схемы для SDK.
func TestToGenAISchema(t *testing.T) {
	out := toGenAISchema(testSchema.Root())

	assert.Equal(t, []string{"answer"}, out.Required)
	assert.Equal(t, []string{"answer", "tone"}, out.PropertyOrdering)
	assert.Equal(t, []string{"Calm", "Urgent"}, out.Properties["tone"].Enum)
}

// TestKeylessSDKClients проверяет, что клиенты без ключа создаются, но не вызывают модель.
func TestKeylessSDKClients(t *testing.T) {
	genaiClient, err := NewGenAIClient(context.Background(), "", "", "gemini", time.Second, 0)
	require.NoError(t, err)
	_, _, err = genaiClient.Chat(context.Background(), Request{Prompt: "hi"})
	assert.Error(t, err)

	lcClient, err := NewLangChainClient("", "", "gpt", time.Second, 0)
	require.NoError(t, err)
	_, _, err = lcClient.Chat(context.Background(), Request{Prompt: "hi"})
	assert.Error(t, err)
}
