package store

import (
	"context"
	"fmt"

	"formpilot/internal/types"

	"github.com/jackc/pgx/v5"
)

var questionRecordColumns = []string{
	"user_id",
	"application_id",
	"platform",
	"question_id",
	"question_text",
	"input_kind",
	"element_id",
	"options",
	"ai_answer",
	"target_element_id",
	"was_grounded",
}

// CreateQuestionRecords inserts all records in one transaction. Either every
// record is written or none is.
func (s *Store) CreateQuestionRecords(ctx context.Context, records []types.QuestionRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	rows := make([][]any, len(records))
	for i, r := range records {
		var elementID *string
		if r.ElementID != "" {
			elementID = &r.ElementID
		}
		var options []byte
		if len(r.Options) > 0 {
			options = r.Options
		}
		rows[i] = []any{
			r.UserID,
			r.ApplicationID,
			r.Platform,
			r.QuestionID,
			r.QuestionText,
			string(r.InputKind),
			elementID,
			options,
			r.AIAnswer,
			r.TargetElementID,
			r.WasGrounded,
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // no-op if committed

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"question_records"}, questionRecordColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("insert question records: %w", err)
	}
	if n != int64(len(records)) {
		return 0, fmt.Errorf("insert question records: wrote %d of %d", n, len(records))
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit question records: %w", err)
	}
	return n, nil
}
