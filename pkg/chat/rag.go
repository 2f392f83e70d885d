// Package chat orchestrates a turn: context assembly, provider dispatch,
// cost accounting and conversation persistence.
package chat

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kasugai-cloud/aichat/pkg/models"
)

const (
	ragInstruction = "以下の参考資料を使用して質問に回答してください。"
	ragOpen        = "--- ファイル内容 ---"
	ragClose       = "--- ファイル終了 ---"

	// ragFetchConcurrency bounds parallel blob reads per request.
	ragFetchConcurrency = 4
)

// assembleSystemPrompt appends the referenced files' contents to the
// caller's system prompt, each wrapped in the fixed delimiters. Files the
// actor cannot read, or that do not exist, are skipped without error so
// guessed private ids stay invisible. Fetches run in parallel; output
// order follows the request's fileIds order.
func (s *Service) assembleSystemPrompt(ctx context.Context, systemPrompt string, fileIDs []string, actor models.Actor) string {
	if len(fileIDs) == 0 {
		return systemPrompt
	}

	texts := make([]string, len(fileIDs))
	var g errgroup.Group
	g.SetLimit(ragFetchConcurrency)
	for i, fileID := range fileIDs {
		g.Go(func() error {
			text, err := s.files.TextForActor(ctx, fileID, actor)
			if err != nil {
				s.log.WithError(err).WithField("fileId", fileID).Debug("skipping context file")
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	_ = g.Wait()

	var blocks []string
	for _, text := range texts {
		if text == "" {
			continue
		}
		blocks = append(blocks, ragOpen+"\n"+text+"\n"+ragClose)
	}
	if len(blocks) == 0 {
		return systemPrompt
	}

	var b strings.Builder
	if systemPrompt != "" {
		b.WriteString(systemPrompt)
		b.WriteString("\n\n")
	}
	b.WriteString(ragInstruction)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(blocks, "\n\n"))
	return b.String()
}
