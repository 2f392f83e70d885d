package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kasugai-cloud/aichat/pkg/apperrors"
	"github.com/kasugai-cloud/aichat/pkg/files"
	"github.com/kasugai-cloud/aichat/pkg/models"
	"github.com/kasugai-cloud/aichat/pkg/providers"
	"github.com/kasugai-cloud/aichat/pkg/storage"
)

// titleRunes caps the auto-generated conversation title.
const titleRunes = 50

// Service runs chat turns against the registered providers.
type Service struct {
	kv            storage.KVStore
	invokers      map[models.ProviderTag]providers.Invoker
	files         *files.Service
	invokeTimeout time.Duration
	log           *logrus.Logger
}

// NewService wires the orchestrator. The invoker map must have one entry
// per provider tag in the model registry. invokeTimeout bounds a single
// provider call; zero means no bound beyond the request context.
func NewService(kv storage.KVStore, invokers map[models.ProviderTag]providers.Invoker, fileSvc *files.Service, invokeTimeout time.Duration, log *logrus.Logger) *Service {
	return &Service{kv: kv, invokers: invokers, files: fileSvc, invokeTimeout: invokeTimeout, log: log}
}

// TurnInput is the decoded /chat request body.
type TurnInput struct {
	ModelID        string
	Messages       []providers.Message
	SystemPrompt   string
	MaxTokens      int
	Temperature    *float64
	ConversationID string
	FileIDs        []string
	// SaveHistory nil means true.
	SaveHistory *bool
	Actor       models.Actor
}

// TurnResult is the /chat response. ConversationID is empty when history
// was not saved, including the case where persistence failed after a
// successful provider call.
type TurnResult struct {
	Content        string           `json:"content"`
	ModelID        string           `json:"model"`
	Provider       string           `json:"provider"`
	ConversationID string           `json:"conversationId,omitempty"`
	Usage          *providers.Usage `json:"usage,omitempty"`
}

// Turn validates, assembles context, dispatches to the model's provider,
// computes cost and persists the exchange. The provider response is never
// failed for persistence errors; those are logged and the result simply
// omits the conversation id.
func (s *Service) Turn(ctx context.Context, in TurnInput) (*TurnResult, error) {
	if in.ModelID == "" {
		return nil, apperrors.Validation("model is required")
	}
	info, ok := models.LookupModel(in.ModelID)
	if !ok {
		return nil, apperrors.UnknownModel(in.ModelID)
	}
	if len(in.Messages) == 0 {
		return nil, apperrors.Validation("messages must not be empty")
	}

	invoker, ok := s.invokers[info.Provider]
	if !ok {
		return nil, apperrors.Provider(string(info.Provider), errNoInvoker(info.Provider))
	}

	// Continuing a conversation requires owning it; a foreign id reads as
	// missing before any provider spend. An unknown id falls through and
	// becomes a new conversation.
	if in.ConversationID != "" {
		metaItem, err := s.kv.Get(ctx, models.ConvPK(in.ConversationID), models.SKMeta)
		if err != nil {
			return nil, apperrors.Storage("conversation get", err)
		}
		if metaItem != nil {
			conv, err := models.ConversationFromItem(metaItem)
			if err != nil {
				return nil, apperrors.Storage("conversation decode", err)
			}
			if !models.CanAccessConversation(conv, in.Actor) {
				return nil, apperrors.NotFound("conversation", in.ConversationID)
			}
		}
	}

	systemPrompt := s.assembleSystemPrompt(ctx, in.SystemPrompt, in.FileIDs, in.Actor)

	invokeCtx := ctx
	if s.invokeTimeout > 0 {
		var cancel context.CancelFunc
		invokeCtx, cancel = context.WithTimeout(ctx, s.invokeTimeout)
		defer cancel()
	}
	resp, err := invoker.Invoke(invokeCtx, &providers.ChatRequest{
		ModelID:      in.ModelID,
		Messages:     in.Messages,
		SystemPrompt: systemPrompt,
		MaxTokens:    in.MaxTokens,
		Temperature:  in.Temperature,
	})
	if err != nil {
		return nil, apperrors.Provider(string(info.Provider), err)
	}

	result := &TurnResult{
		Content:  resp.Content,
		ModelID:  resp.ModelID,
		Provider: resp.Provider,
		Usage:    resp.Usage,
	}

	if in.SaveHistory != nil && !*in.SaveHistory {
		return result, nil
	}

	conversationID, err := s.persistTurn(ctx, in, info, resp)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"model":  in.ModelID,
			"userId": in.Actor.UserID,
		}).Error("history persistence failed, returning response without conversationId")
		return result, nil
	}
	result.ConversationID = conversationID
	return result, nil
}

type errNoInvoker models.ProviderTag

func (e errNoInvoker) Error() string { return "no invoker registered for provider " + string(e) }

// persistTurn writes the user message, the assistant message and then the
// metadata roll-up. The roll-up is a single non-conditional counter update;
// concurrent turns interleave but converge to the correct sums.
func (s *Service) persistTurn(ctx context.Context, in TurnInput, info models.ModelInfo, resp *providers.ChatResponse) (string, error) {
	now := models.Now()
	conversationID := in.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	existing, err := s.kv.Get(ctx, models.ConvPK(conversationID), models.SKMeta)
	if err != nil {
		return "", err
	}
	if existing == nil {
		conv := &models.Conversation{
			ConversationID: conversationID,
			Title:          titleFrom(in.Messages),
			UserID:         in.Actor.UserID,
			Scope:          in.Actor.Scope,
			ModelID:        in.ModelID,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		item, err := conv.Item()
		if err != nil {
			return "", err
		}
		if err := s.kv.Put(ctx, item); err != nil {
			return "", err
		}
	} else {
		conv, err := models.ConversationFromItem(existing)
		if err != nil {
			return "", err
		}
		if !models.CanAccessConversation(conv, in.Actor) {
			return "", apperrors.NotFound("conversation", conversationID)
		}
	}

	lastUser := in.Messages[len(in.Messages)-1]
	userMsg := &models.Message{
		MessageID: uuid.NewString(),
		Role:      providers.RoleUser,
		Content:   lastUser.Content,
		CreatedAt: now,
	}
	userItem, err := userMsg.Item(conversationID)
	if err != nil {
		return "", err
	}
	if err := s.kv.Put(ctx, userItem); err != nil {
		return "", err
	}

	var inputTokens, outputTokens int
	var cost float64
	if resp.Usage != nil {
		inputTokens = resp.Usage.InputTokens
		outputTokens = resp.Usage.OutputTokens
		cost = info.Cost(inputTokens, outputTokens)
	}
	assistantMsg := &models.Message{
		MessageID:    uuid.NewString(),
		Role:         providers.RoleAssistant,
		Content:      resp.Content,
		ModelID:      resp.ModelID,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         cost,
		CreatedAt:    models.NowAfter(now),
	}
	assistantItem, err := assistantMsg.Item(conversationID)
	if err != nil {
		return "", err
	}
	if err := s.kv.Put(ctx, assistantItem); err != nil {
		return "", err
	}

	updatedAt := models.Now()
	err = s.kv.Update(ctx, storage.UpdateInput{
		PK: models.ConvPK(conversationID),
		SK: models.SKMeta,
		Set: map[string]interface{}{
			"updatedAt":       updatedAt,
			models.AttrGSI1SK: models.PrefixConv + updatedAt,
		},
		Add: map[string]float64{
			"messageCount":      2,
			"totalInputTokens":  float64(inputTokens),
			"totalOutputTokens": float64(outputTokens),
			"totalCost":         cost,
		},
	})
	if err != nil {
		// Messages stay behind as dangling but valid records.
		return "", err
	}
	return conversationID, nil
}

// titleFrom derives the conversation title from the first user message.
func titleFrom(messages []providers.Message) string {
	for _, m := range messages {
		if m.Role != providers.RoleUser || m.Content == "" {
			continue
		}
		title := strings.TrimSpace(m.Content)
		runes := []rune(title)
		if len(runes) > titleRunes {
			return string(runes[:titleRunes])
		}
		return title
	}
	return "新しい会話"
}
