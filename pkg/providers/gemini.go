package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	geminiEndpoint         = "https://generativelanguage.googleapis.com/v1beta/models"
	geminiDefaultMaxTokens = 8192
)

// Gemini wire model for the generateContent endpoint.

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GeminiProvider invokes models through the Generative Language REST API.
type GeminiProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewGeminiProvider creates a client authenticated by API key.
func NewGeminiProvider(apiKey string) *GeminiProvider {
	return &GeminiProvider{
		apiKey:     apiKey,
		baseURL:    geminiEndpoint,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// WithBaseURL overrides the API endpoint, for tests.
func (p *GeminiProvider) WithBaseURL(baseURL string) *GeminiProvider {
	p.baseURL = strings.TrimRight(baseURL, "/")
	return p
}

// Invoke translates the neutral request to Gemini contents and returns the
// first candidate's text with token usage. Roles map user->"user",
// assistant->"model"; the system prompt becomes the systemInstruction
// field; image attachments become inline-data parts.
func (p *GeminiProvider) Invoke(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	contents := make([]geminiContent, 0, len(req.Messages))
	for _, msg := range req.Messages {
		role := "user"
		if msg.Role == RoleAssistant {
			role = "model"
		}
		parts := []geminiPart{{Text: msg.Content}}
		for _, att := range msg.Attachments {
			if !strings.HasPrefix(att.MediaType, "image/") {
				continue
			}
			parts = append(parts, geminiPart{
				InlineData: &geminiInlineData{
					MimeType: att.MediaType,
					Data:     base64.StdEncoding.EncodeToString(att.Data),
				},
			})
		}
		contents = append(contents, geminiContent{Role: role, Parts: parts})
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = geminiDefaultMaxTokens
	}
	wireReq := &geminiRequest{
		Contents: contents,
		GenerationConfig: &geminiGenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: maxTokens,
		},
	}
	if req.SystemPrompt != "" {
		wireReq.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}}
	}

	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", p.baseURL, req.ModelID, p.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gemini response: %w", err)
	}

	var wireResp geminiResponse
	if err := json.Unmarshal(respBody, &wireResp); err != nil {
		return nil, fmt.Errorf("failed to decode gemini response: %w", err)
	}
	if wireResp.Error != nil {
		return nil, fmt.Errorf("gemini error %d: %s", wireResp.Error.Code, wireResp.Error.Message)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini returned status %d", httpResp.StatusCode)
	}
	if len(wireResp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	var content strings.Builder
	for _, part := range wireResp.Candidates[0].Content.Parts {
		content.WriteString(part.Text)
	}

	resp := &ChatResponse{
		Content:  content.String(),
		ModelID:  req.ModelID,
		Provider: "gemini",
	}
	if wireResp.UsageMetadata != nil {
		resp.Usage = &Usage{
			InputTokens:  wireResp.UsageMetadata.PromptTokenCount,
			OutputTokens: wireResp.UsageMetadata.CandidatesTokenCount,
		}
	}
	return resp, nil
}
