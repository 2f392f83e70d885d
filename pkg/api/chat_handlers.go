package api

import (
	"net/http"

	"github.com/kasugai-cloud/aichat/pkg/chat"
	"github.com/kasugai-cloud/aichat/pkg/httputil"
	"github.com/kasugai-cloud/aichat/pkg/middleware"
	"github.com/kasugai-cloud/aichat/pkg/models"
	"github.com/kasugai-cloud/aichat/pkg/providers"
)

type chatAttachment struct {
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
	// Data is base64 in JSON and decoded by encoding/json.
	Data []byte `json:"data"`
}

type chatMessage struct {
	Role        string           `json:"role"`
	Content     string           `json:"content"`
	Attachments []chatAttachment `json:"attachments"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	SystemPrompt   string        `json:"systemPrompt"`
	MaxTokens      int           `json:"maxTokens"`
	Temperature    *float64      `json:"temperature"`
	ConversationID string        `json:"conversationId"`
	UserID         string        `json:"userId"`
	FileIDs        []string      `json:"fileIds"`
	SaveHistory    *bool         `json:"saveHistory"`
}

// handleChat handles POST /chat
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	actor, _ := middleware.ActorFrom(r.Context())

	messages := make([]providers.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		msg := providers.Message{Role: m.Role, Content: m.Content}
		for _, att := range m.Attachments {
			msg.Attachments = append(msg.Attachments, providers.Attachment{
				Name:      att.Name,
				MediaType: att.MediaType,
				Data:      att.Data,
			})
		}
		messages = append(messages, msg)
	}

	result, err := s.chat.Turn(r.Context(), chat.TurnInput{
		ModelID:        req.Model,
		Messages:       messages,
		SystemPrompt:   req.SystemPrompt,
		MaxTokens:      req.MaxTokens,
		Temperature:    req.Temperature,
		ConversationID: req.ConversationID,
		FileIDs:        req.FileIDs,
		SaveHistory:    req.SaveHistory,
		Actor:          actor,
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.ChatTurnsTotal.WithLabelValues(req.Model, "error").Inc()
		}
		httputil.WriteError(w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.ChatTurnsTotal.WithLabelValues(req.Model, "ok").Inc()
		if result.Usage != nil {
			s.metrics.ProviderTokensTotal.WithLabelValues(result.Provider, result.ModelID, "input").Add(float64(result.Usage.InputTokens))
			s.metrics.ProviderTokensTotal.WithLabelValues(result.Provider, result.ModelID, "output").Add(float64(result.Usage.OutputTokens))
			if info, ok := models.LookupModel(result.ModelID); ok {
				s.metrics.ProviderCostUSDTotal.WithLabelValues(result.Provider, result.ModelID).Add(info.Cost(result.Usage.InputTokens, result.Usage.OutputTokens))
			}
		}
	}
	httputil.WriteSuccess(w, result)
}

// listModels handles GET /models
func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]interface{}{"models": models.ListModels()})
}
