package postgres

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/strandlabs/strand/store"
)

func (d *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversation_message (
			id           SERIAL PRIMARY KEY,
			thread_key   TEXT   NOT NULL,
			role         TEXT   NOT NULL,
			content      TEXT   NOT NULL,
			name         TEXT   NOT NULL DEFAULT '',
			tool_call_id TEXT   NOT NULL DEFAULT '',
			tool_calls   TEXT   NOT NULL DEFAULT '',
			created_ts   BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversation_message_thread ON conversation_message(thread_key, id)`,
	}
	for _, s := range stmts {
		if _, err := d.db.ExecContext(ctx, s); err != nil {
			return errors.Wrap(err, "ensure schema")
		}
	}
	return nil
}

func (d *DB) AppendMessages(ctx context.Context, appendMsgs *store.AppendMessages) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	stmt := `INSERT INTO conversation_message (thread_key, role, content, name, tool_call_id, tool_calls)
	         VALUES ($1, $2, $3, $4, $5, $6)`
	for _, m := range appendMsgs.Messages {
		var toolCalls string
		if len(m.ToolCalls) > 0 {
			raw, err := json.Marshal(m.ToolCalls)
			if err != nil {
				return errors.Wrap(err, "encode tool calls")
			}
			toolCalls = string(raw)
		}
		if _, err := tx.ExecContext(ctx, stmt, appendMsgs.ThreadKey, m.Role, m.Content, m.Name, m.ToolCallID, toolCalls); err != nil {
			return errors.Wrap(err, "insert message")
		}
	}
	return tx.Commit()
}

func (d *DB) ListMessages(ctx context.Context, find *store.FindMessages) ([]*store.Message, error) {
	query := `SELECT id, thread_key, role, content, name, tool_call_id, tool_calls, created_ts
	          FROM conversation_message WHERE thread_key = ` + placeholder(1) + ` ORDER BY id ASC`
	rows, err := d.db.QueryContext(ctx, query, find.ThreadKey)
	if err != nil {
		return nil, errors.Wrap(err, "list messages")
	}
	defer rows.Close()

	list := []*store.Message{}
	for rows.Next() {
		m := &store.Message{}
		var toolCalls string
		if err := rows.Scan(&m.ID, &m.ThreadKey, &m.Role, &m.Content, &m.Name, &m.ToolCallID, &toolCalls, &m.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "scan message")
		}
		if toolCalls != "" {
			if err := json.Unmarshal([]byte(toolCalls), &m.ToolCalls); err != nil {
				return nil, errors.Wrap(err, "decode tool calls")
			}
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (d *DB) ListThreadKeys(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT DISTINCT thread_key FROM conversation_message`)
	if err != nil {
		return nil, errors.Wrap(err, "list thread keys")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, errors.Wrap(err, "scan thread key")
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
