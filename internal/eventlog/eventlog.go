// internal/eventlog/eventlog.go
//
// SQLite-backed journal of executed instructions. The engine itself is
// in-memory; the journal gives operators a durable trail of what ran, in
// which order, and with what outcome.
package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS instruction_log (
	id          TEXT PRIMARY KEY,
	ts          TIMESTAMP NOT NULL,
	instruction TEXT NOT NULL,
	mint        TEXT,
	actor       TEXT,
	amount_in   TEXT,
	amount_out  TEXT,
	fee         TEXT,
	status      TEXT NOT NULL,
	detail      TEXT
);
CREATE INDEX IF NOT EXISTS idx_instruction_log_mint ON instruction_log (mint);
CREATE INDEX IF NOT EXISTS idx_instruction_log_ts ON instruction_log (ts);
`

// Event is one journal row. Status is "ok" or "error"; Detail carries the
// error text for failed instructions.
type Event struct {
	ID          string
	Timestamp   time.Time
	Instruction string
	Mint        string
	Actor       string
	AmountIn    uint64
	AmountOut   uint64
	Fee         uint64
	Status      string
	Detail      string
}

type Log struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens or creates the journal at path. ":memory:" gives an ephemeral
// journal for tests.
func Open(path string, logger *zap.Logger) (*Log, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	// modernc's driver serializes writes; a single connection avoids
	// SQLITE_BUSY on concurrent recorders.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}
	return &Log{db: db, logger: logger}, nil
}

// Record appends one event. ID and Timestamp are filled in when empty.
func (l *Log) Record(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if ev.Status == "" {
		ev.Status = "ok"
	}
	// Lamport amounts are u64; stored as decimal strings so values above
	// MaxInt64 survive the round trip.
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO instruction_log
		 (id, ts, instruction, mint, actor, amount_in, amount_out, fee, status, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Timestamp, ev.Instruction, ev.Mint, ev.Actor,
		strconv.FormatUint(ev.AmountIn, 10),
		strconv.FormatUint(ev.AmountOut, 10),
		strconv.FormatUint(ev.Fee, 10),
		ev.Status, ev.Detail)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	l.logger.Debug("event recorded",
		zap.String("id", ev.ID),
		zap.String("instruction", ev.Instruction),
		zap.String("status", ev.Status))
	return nil
}

// Recent returns the latest limit events, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, ts, instruction, mint, actor, amount_in, amount_out, fee, status, detail
		 FROM instruction_log ORDER BY ts DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		var in, outAmt, fee string
		if err := rows.Scan(&ev.ID, &ev.Timestamp, &ev.Instruction, &ev.Mint, &ev.Actor,
			&in, &outAmt, &fee, &ev.Status, &ev.Detail); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if ev.AmountIn, err = strconv.ParseUint(in, 10, 64); err != nil {
			return nil, fmt.Errorf("parse amount_in: %w", err)
		}
		if ev.AmountOut, err = strconv.ParseUint(outAmt, 10, 64); err != nil {
			return nil, fmt.Errorf("parse amount_out: %w", err)
		}
		if ev.Fee, err = strconv.ParseUint(fee, 10, 64); err != nil {
			return nil, fmt.Errorf("parse fee: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (l *Log) Close() error {
	return l.db.Close()
}
