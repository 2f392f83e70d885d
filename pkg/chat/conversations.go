package chat

import (
	"context"

	"github.com/kasugai-cloud/aichat/pkg/apperrors"
	"github.com/kasugai-cloud/aichat/pkg/models"
	"github.com/kasugai-cloud/aichat/pkg/storage"
)

// ListConversations returns the user's conversations, most recently
// updated first.
func (s *Service) ListConversations(ctx context.Context, userID string, limit int) ([]*models.Conversation, error) {
	items, err := s.kv.Query(ctx, storage.QueryInput{
		Index:         models.IndexGSI1,
		PartitionKey:  models.UserPK(userID),
		SortKeyPrefix: models.PrefixConv,
		ScanForward:   false,
		Limit:         limit,
	})
	if err != nil {
		return nil, apperrors.Storage("conversation query", err)
	}

	out := make([]*models.Conversation, 0, len(items))
	for _, item := range items {
		conv, err := models.ConversationFromItem(item)
		if err != nil {
			s.log.WithError(err).Warn("skipping undecodable conversation item")
			continue
		}
		out = append(out, conv)
	}
	return out, nil
}

// GetConversation returns the metadata record and every message in
// chronological order. Another user's conversation reads as missing so
// ids cannot be probed.
func (s *Service) GetConversation(ctx context.Context, conversationID string, actor models.Actor) (*models.Conversation, []*models.Message, error) {
	conv, err := s.ownedConversation(ctx, conversationID, actor)
	if err != nil {
		return nil, nil, err
	}

	msgItems, err := s.kv.Query(ctx, storage.QueryInput{
		PartitionKey:  models.ConvPK(conversationID),
		SortKeyPrefix: models.PrefixMsg,
		ScanForward:   true,
	})
	if err != nil {
		return nil, nil, apperrors.Storage("message query", err)
	}
	messages := make([]*models.Message, 0, len(msgItems))
	for _, item := range msgItems {
		msg, err := models.MessageFromItem(item)
		if err != nil {
			s.log.WithError(err).Warn("skipping undecodable message item")
			continue
		}
		messages = append(messages, msg)
	}
	return conv, messages, nil
}

// DeleteConversation removes the metadata record and every message in the
// partition in one batch.
func (s *Service) DeleteConversation(ctx context.Context, conversationID string, actor models.Actor) error {
	pk := models.ConvPK(conversationID)
	if _, err := s.ownedConversation(ctx, conversationID, actor); err != nil {
		return err
	}

	msgItems, err := s.kv.Query(ctx, storage.QueryInput{
		PartitionKey:  pk,
		SortKeyPrefix: models.PrefixMsg,
	})
	if err != nil {
		return apperrors.Storage("message query", err)
	}

	keys := make([]storage.Key, 0, len(msgItems)+1)
	keys = append(keys, storage.Key{PK: pk, SK: models.SKMeta})
	for _, item := range msgItems {
		sk, _ := item[models.AttrSK].(string)
		if sk == "" {
			continue
		}
		keys = append(keys, storage.Key{PK: pk, SK: sk})
	}
	if err := s.kv.BatchDelete(ctx, keys); err != nil {
		return apperrors.Storage("conversation delete", err)
	}
	return nil
}

// ownedConversation loads the metadata record and enforces ownership.
// A conversation the actor may not touch is indistinguishable from a
// missing one.
func (s *Service) ownedConversation(ctx context.Context, conversationID string, actor models.Actor) (*models.Conversation, error) {
	metaItem, err := s.kv.Get(ctx, models.ConvPK(conversationID), models.SKMeta)
	if err != nil {
		return nil, apperrors.Storage("conversation get", err)
	}
	if metaItem == nil {
		return nil, apperrors.NotFound("conversation", conversationID)
	}
	conv, err := models.ConversationFromItem(metaItem)
	if err != nil {
		return nil, apperrors.Storage("conversation decode", err)
	}
	if !models.CanAccessConversation(conv, actor) {
		return nil, apperrors.NotFound("conversation", conversationID)
	}
	return conv, nil
}
