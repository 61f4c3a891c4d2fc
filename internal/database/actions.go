// internal/database/actions.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/kalooki/internal/journal"
)

const schema = `
CREATE TABLE IF NOT EXISTS client_actions (
	id           BIGSERIAL PRIMARY KEY,
	session_id   UUID        NOT NULL,
	game_id      TEXT        NOT NULL,
	player_id    INTEGER     NOT NULL,
	action_index INTEGER     NOT NULL,
	action       TEXT        NOT NULL,
	outcome      TEXT        NOT NULL,
	error        TEXT,
	payload      JSONB,
	occurred_at  TIMESTAMPTZ NOT NULL,
	UNIQUE (session_id, action_index)
)`

// ActionStore persists journal records into client_actions.
type ActionStore struct {
	pool *pgxpool.Pool
}

// NewActionStore wraps an open pool.
func NewActionStore(pool *pgxpool.Pool) *ActionStore {
	return &ActionStore{pool: pool}
}

// EnsureSchema creates client_actions if it does not exist.
func (s *ActionStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create client_actions: %w", err)
	}
	return nil
}

// InsertActions writes recs in one transaction. Records already stored (same
// session and action index) are skipped, so redelivery is harmless.
func (s *ActionStore) InsertActions(ctx context.Context, recs []journal.Record) error {
	if len(recs) == 0 {
		return nil
	}
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO client_actions (
				session_id, game_id, player_id, action_index, action, outcome, error, payload, occurred_at
			) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)
			ON CONFLICT (session_id, action_index) DO NOTHING
		`
		batch := &pgx.Batch{}
		for _, rec := range recs {
			payload, err := payloadJSON(rec.Payload)
			if err != nil {
				return err
			}
			batch.Queue(q,
				rec.SessionID, rec.GameID, rec.PlayerID, rec.ActionIndex,
				rec.Action, rec.Outcome, rec.Error, payload, time.UnixMilli(rec.Timestamp),
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("insert %d actions: %w", len(recs), err)
	}
	return nil
}

func payloadJSON(p map[string]interface{}) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal action payload: %w", err)
	}
	return b, nil
}
