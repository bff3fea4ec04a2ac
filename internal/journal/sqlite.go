// Package journal provides an optional, consumer-side transition journal.
// The engine itself holds no history; the journal is an Observer that
// records completed and failed triggers in a SQLite table.
package journal

import (
	"context"
	"database/sql"
	"time"

	"github.com/petrijr/machina/pkg/api"
)

// SQLite is an api.Observer backed by a SQLite database.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing the
// driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLite struct {
	api.NoopObserver
	db *sql.DB
}

// Ensure SQLite implements Observer.
var _ api.Observer = (*SQLite)(nil)

// NewSQLite initializes the required schema in the given database and
// returns a new SQLite journal.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	j := &SQLite{db: db}
	if err := j.initSchema(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *SQLite) initSchema() error {
	_, err := j.db.Exec(`
		CREATE TABLE IF NOT EXISTS transitions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			machine TEXT NOT NULL,
			event TEXT NOT NULL,
			src TEXT NOT NULL,
			dst TEXT NOT NULL,
			result TEXT NOT NULL,
			error TEXT,
			occurred_at TIMESTAMP NOT NULL
		);`,
	)
	return err
}

// Entry is one journal row.
type Entry struct {
	Machine    string
	Event      api.Event
	From       api.State
	To         api.State
	Result     api.Result
	Error      string
	OccurredAt time.Time
}

func (j *SQLite) OnTriggerCompleted(ctx context.Context, machine string, t api.Transition, r api.Result, d time.Duration) {
	j.record(ctx, machine, t, string(r), "")
}

func (j *SQLite) OnTriggerFailed(ctx context.Context, machine string, t api.Transition, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	j.record(ctx, machine, t, "FAILED", msg)
}

// record inserts one row. Journal write failures are swallowed: an observer
// must never fail a trigger.
func (j *SQLite) record(ctx context.Context, machine string, t api.Transition, result, errMsg string) {
	_, _ = j.db.ExecContext(ctx, `
		INSERT INTO transitions (machine, event, src, dst, result, error, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		machine,
		string(t.Event),
		string(t.From),
		string(t.To),
		result,
		errMsg,
		time.Now().UTC(),
	)
}

// Recent returns the newest entries for a machine, most recent first.
func (j *SQLite) Recent(ctx context.Context, machine string, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT machine, event, src, dst, result, error, occurred_at
		FROM transitions
		WHERE machine = ?
		ORDER BY id DESC
		LIMIT ?`,
		machine, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var event, src, dst, result string
		if err := rows.Scan(&e.Machine, &event, &src, &dst, &result, &e.Error, &e.OccurredAt); err != nil {
			return nil, err
		}
		e.Event = api.Event(event)
		e.From = api.State(src)
		e.To = api.State(dst)
		e.Result = api.Result(result)
		out = append(out, e)
	}
	return out, rows.Err()
}
