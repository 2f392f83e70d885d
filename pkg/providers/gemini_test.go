package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiInvokeWireShape(t *testing.T) {
	var gotPath, gotKey string
	var gotReq geminiRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"role":  "model",
					"parts": []map[string]string{{"text": "答えは"}, {"text": "42です。"}},
				}},
			},
			"usageMetadata": map[string]int{"promptTokenCount": 12, "candidatesTokenCount": 7},
		})
	}))
	defer server.Close()

	p := NewGeminiProvider("test-key").WithBaseURL(server.URL)
	temp := 0.2
	resp, err := p.Invoke(context.Background(), &ChatRequest{
		ModelID:      "gemini-3-flash-preview",
		SystemPrompt: "answer in japanese",
		MaxTokens:    256,
		Temperature:  &temp,
		Messages: []Message{
			{Role: RoleUser, Content: "question"},
			{Role: RoleAssistant, Content: "earlier answer"},
			{Role: RoleUser, Content: "followup", Attachments: []Attachment{
				{Name: "chart.png", MediaType: "image/png", Data: []byte{1, 2, 3}},
				{Name: "doc.pdf", MediaType: "application/pdf", Data: []byte{4}},
			}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "/gemini-3-flash-preview:generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)

	require.Len(t, gotReq.Contents, 3)
	assert.Equal(t, "user", gotReq.Contents[0].Role)
	assert.Equal(t, "model", gotReq.Contents[1].Role)
	assert.Equal(t, "user", gotReq.Contents[2].Role)

	// Non-image attachments are dropped; the image rides as inline data.
	require.Len(t, gotReq.Contents[2].Parts, 2)
	inline := gotReq.Contents[2].Parts[1].InlineData
	require.NotNil(t, inline)
	assert.Equal(t, "image/png", inline.MimeType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{1, 2, 3}), inline.Data)

	require.NotNil(t, gotReq.SystemInstruction)
	assert.Equal(t, "answer in japanese", gotReq.SystemInstruction.Parts[0].Text)
	require.NotNil(t, gotReq.GenerationConfig)
	assert.Equal(t, 256, gotReq.GenerationConfig.MaxOutputTokens)
	require.NotNil(t, gotReq.GenerationConfig.Temperature)
	assert.Equal(t, 0.2, *gotReq.GenerationConfig.Temperature)

	assert.Equal(t, "答えは42です。", resp.Content)
	assert.Equal(t, "gemini", resp.Provider)
	assert.Equal(t, "gemini-3-flash-preview", resp.ModelID)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 12, resp.Usage.InputTokens)
	assert.Equal(t, 7, resp.Usage.OutputTokens)
}

func TestGeminiInvokeDefaults(t *testing.T) {
	var gotReq geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{"parts": []map[string]string{{"text": "ok"}}}},
			},
		})
	}))
	defer server.Close()

	p := NewGeminiProvider("k").WithBaseURL(server.URL)
	resp, err := p.Invoke(context.Background(), &ChatRequest{
		ModelID:  "gemini-3-pro-preview",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)

	assert.Equal(t, geminiDefaultMaxTokens, gotReq.GenerationConfig.MaxOutputTokens)
	assert.Nil(t, gotReq.GenerationConfig.Temperature)
	assert.Nil(t, gotReq.SystemInstruction)
	assert.Nil(t, resp.Usage)
	assert.Equal(t, "ok", resp.Content)
}

func TestGeminiInvokeErrors(t *testing.T) {
	t.Run("api error body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]interface{}{"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"},
			})
		}))
		defer server.Close()

		p := NewGeminiProvider("bad").WithBaseURL(server.URL)
		_, err := p.Invoke(context.Background(), &ChatRequest{
			ModelID:  "gemini-3-flash-preview",
			Messages: []Message{{Role: RoleUser, Content: "hi"}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "API key not valid")
	})

	t.Run("no candidates", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"candidates": []interface{}{}})
		}))
		defer server.Close()

		p := NewGeminiProvider("k").WithBaseURL(server.URL)
		_, err := p.Invoke(context.Background(), &ChatRequest{
			ModelID:  "gemini-3-flash-preview",
			Messages: []Message{{Role: RoleUser, Content: "hi"}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no candidates")
	})
}
