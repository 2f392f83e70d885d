package files

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kasugai-cloud/aichat/pkg/apperrors"
	"github.com/kasugai-cloud/aichat/pkg/models"
)

// previewRunes caps the plain-text excerpt returned by Query.
const previewRunes = 1000

// QueryResult is a deterministic, non-LLM answer about one file.
type QueryResult struct {
	FileID     string `json:"fileId"`
	FileName   string `json:"fileName"`
	Answer     string `json:"answer"`
	SourceData string `json:"sourceData,omitempty"`
}

// Query answers simple questions about a file's structure without calling
// a model. CSV files get a schema summary (column names and row count);
// everything else gets a bounded text excerpt.
func (s *Service) Query(ctx context.Context, fileID string, actor models.Actor, question string) (*QueryResult, error) {
	record, err := s.Get(ctx, fileID, actor)
	if err != nil {
		return nil, err
	}
	text, err := s.Text(ctx, record)
	if err != nil {
		return nil, err
	}

	result := &QueryResult{FileID: record.FileID, FileName: record.FileName}
	if record.FileType == "csv" {
		headers, rows, err := csvSummary(text)
		if err != nil {
			return nil, apperrors.Validation("file is not parseable as CSV")
		}
		result.Answer = fmt.Sprintf("%s には %d 行のデータがあります。列: %s",
			record.FileName, rows, strings.Join(headers, ", "))
		result.SourceData = strings.Join(headers, ",")
		return result, nil
	}

	excerpt := truncateRunes(text, previewRunes)
	result.Answer = fmt.Sprintf("%s の冒頭を抜粋します。", record.FileName)
	result.SourceData = excerpt
	return result, nil
}

// csvSummary parses the header row and counts data rows. Ragged rows are
// tolerated; only a malformed header fails.
func csvSummary(text string) (headers []string, rows int, err error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	all, err := reader.ReadAll()
	if err != nil {
		return nil, 0, err
	}
	if len(all) == 0 {
		return nil, 0, nil
	}
	return all[0], len(all) - 1, nil
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
