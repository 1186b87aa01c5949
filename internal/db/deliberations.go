package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DeliberationRecord is one completed deliberation row.
type DeliberationRecord struct {
	WorkflowID   string                 `db:"workflow_id"`
	Mode         string                 `db:"mode"`
	Question     string                 `db:"question"`
	Answer       string                 `db:"answer"`
	Model        string                 `db:"model"`
	InputTokens  int                    `db:"input_tokens"`
	OutputTokens int                    `db:"output_tokens"`
	CostUSD      float64                `db:"cost_usd"`
	DurationMS   int64                  `db:"duration_ms"`
	Metadata     map[string]interface{} `db:"-"`
	CreatedAt    time.Time              `db:"created_at"`
}

const insertDeliberation = `
	INSERT INTO deliberations (
		workflow_id, mode, question, answer, model,
		input_tokens, output_tokens, cost_usd, duration_ms, metadata, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (workflow_id) DO NOTHING`

// RecordDeliberation inserts a completed deliberation. Re-recording the same
// workflow ID is a no-op, which keeps the write idempotent across workflow
// replays.
func (c *Client) RecordDeliberation(ctx context.Context, rec DeliberationRecord) error {
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err = c.db.ExecContext(ctx, insertDeliberation,
		rec.WorkflowID, rec.Mode, rec.Question, rec.Answer, rec.Model,
		rec.InputTokens, rec.OutputTokens, rec.CostUSD, rec.DurationMS,
		metadata, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert deliberation: %w", err)
	}

	c.logger.Debug("Recorded deliberation",
		zap.String("workflow_id", rec.WorkflowID),
		zap.String("mode", rec.Mode),
	)
	return nil
}
