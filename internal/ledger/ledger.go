// Package ledger keeps a record of fetch runs and the outcome of every
// catalog entry in a local SQLite database, so failed downloads can be
// inspected and retried later.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/blicero/krylib"
	_ "github.com/mattn/go-sqlite3" // Import the database driver
	"github.com/ytget/phin/internal/common"
	"github.com/ytget/phin/internal/ledger/query"
	"github.com/ytget/phin/internal/logdomain"
	"github.com/ytget/phin/internal/model"
)

var (
	openLock sync.Mutex
	idCnt    int64
)

// ErrRunNotFound indicates that a run id is not in the ledger.
var ErrRunNotFound = errors.New("run was not found in ledger")

// ErrInvalidValue indicates that a parameter had a value that is invalid
// for the operation.
var ErrInvalidValue = errors.New("invalid value for parameter")

// If a query returns an error and the error text is matched by this regex, we
// consider the error as transient and try again after a short delay.
var retryPat = regexp.MustCompile("(?i)database is (?:locked|busy)")

func worthARetry(e error) bool {
	return retryPat.MatchString(e.Error())
}

// retryDelay is the amount of time we wait before we repeat a database
// operation that failed due to a transient error.
const retryDelay = 25 * time.Millisecond

func waitForRetry(ctx context.Context) error {
	t := time.NewTimer(retryDelay)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run is the ledger row of one fetch run.
type Run struct {
	RunID      string
	OutputRoot string
	Started    time.Time
	Finished   time.Time
	Planned    int
	Succeeded  int
	Skipped    int
	Failed     int
}

// Done reports whether the run has been finished.
func (r *Run) Done() bool {
	return !r.Finished.IsZero()
}

// Ledger is the storage backend for run records.
//
// It is not safe to share a Ledger between goroutines, however opening
// multiple connections to the same database file is safe.
type Ledger struct {
	id      int64
	db      *sql.DB
	log     *log.Logger
	path    string
	queries map[query.ID]*sql.Stmt
}

// Open opens a Ledger. If the database at path does not exist yet, it is
// created and initialized.
func Open(path string) (*Ledger, error) {
	var (
		err      error
		dbExists bool
		l        = &Ledger{
			path:    path,
			queries: make(map[query.ID]*sql.Stmt),
		}
	)

	openLock.Lock()
	defer openLock.Unlock()
	idCnt++
	l.id = idCnt

	if l.log, err = common.GetLogger(logdomain.Ledger); err != nil {
		return nil, err
	} else if common.Debug {
		l.log.Printf("[DEBUG] Open ledger %s\n", path)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cannot create directory for ledger %s: %w", path, err)
		}
	}

	var connstring = fmt.Sprintf("%s?_locking=NORMAL&_journal=WAL&_fk=1&recursive_triggers=0",
		path)

	if dbExists, err = krylib.Fexists(path); err != nil {
		l.log.Printf("[ERROR] Failed to check if %s already exists: %s\n",
			path,
			err.Error())
		return nil, err
	} else if l.db, err = sql.Open("sqlite3", connstring); err != nil {
		l.log.Printf("[ERROR] Failed to open %s: %s\n",
			path,
			err.Error())
		return nil, err
	}

	if !dbExists {
		if err = l.initialize(); err != nil {
			var e2 error
			if e2 = l.db.Close(); e2 != nil {
				l.log.Printf("[CRITICAL] Failed to close database: %s\n",
					e2.Error())
				return nil, e2
			} else if e2 = os.Remove(path); e2 != nil {
				l.log.Printf("[CRITICAL] Failed to remove database file %s: %s\n",
					l.path,
					e2.Error())
			}
			return nil, err
		}
		l.log.Printf("[INFO] Ledger at %s has been initialized\n",
			path)
	}

	return l, nil
} // func Open(path string) (*Ledger, error)

func (l *Ledger) initialize() error {
	var err error
	var tx *sql.Tx

	if tx, err = l.db.Begin(); err != nil {
		l.log.Printf("[ERROR] Cannot begin transaction: %s\n",
			err.Error())
		return err
	}

	for _, q := range initQueries {
		l.log.Printf("[TRACE] Execute init query:\n%s\n",
			q)
		if _, err = tx.Exec(q); err != nil {
			l.log.Printf("[ERROR] Cannot execute init query: %s\n%s\n",
				err.Error(),
				q)
			if rbErr := tx.Rollback(); rbErr != nil {
				l.log.Printf("[CANTHAPPEN] Cannot rollback transaction: %s\n",
					rbErr.Error())
				return rbErr
			}
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		l.log.Printf("[CANTHAPPEN] Failed to commit init transaction: %s\n",
			err.Error())
		return err
	}

	return nil
} // func (l *Ledger) initialize() error

// Path returns the location of the database file.
func (l *Ledger) Path() string {
	return l.path
}

// Close closes the ledger.
func (l *Ledger) Close() error {
	var err error

	for key, stmt := range l.queries {
		if err = stmt.Close(); err != nil {
			l.log.Printf("[CRITICAL] Cannot close statement handle %s: %s\n",
				key,
				err.Error())
			return err
		}
		delete(l.queries, key)
	}

	if err = l.db.Close(); err != nil {
		l.log.Printf("[CRITICAL] Cannot close database: %s\n",
			err.Error())
		return err
	}

	l.db = nil
	return nil
} // func (l *Ledger) Close() error

func (l *Ledger) getQuery(ctx context.Context, id query.ID) (*sql.Stmt, error) {
	var (
		stmt  *sql.Stmt
		found bool
		err   error
	)

	if stmt, found = l.queries[id]; found {
		return stmt, nil
	} else if _, found = dbQueries[id]; !found {
		return nil, fmt.Errorf("unknown query %s", id)
	}

	l.log.Printf("[TRACE] Prepare query %s\n", id)

PREPARE_QUERY:
	if stmt, err = l.db.PrepareContext(ctx, dbQueries[id]); err != nil {
		if worthARetry(err) {
			if err = waitForRetry(ctx); err == nil {
				goto PREPARE_QUERY
			}
		}

		l.log.Printf("[ERROR] Cannot parse query %s: %s\n%s\n",
			id,
			err.Error(),
			dbQueries[id])
		return nil, err
	}

	l.queries[id] = stmt
	return stmt, nil
} // func (l *Ledger) getQuery(ctx context.Context, id query.ID) (*sql.Stmt, error)

// exec runs a modifying query and returns the number of affected rows.
func (l *Ledger) exec(ctx context.Context, qid query.ID, args ...any) (int64, error) {
	var (
		err  error
		stmt *sql.Stmt
		res  sql.Result
	)

	if stmt, err = l.getQuery(ctx, qid); err != nil {
		l.log.Printf("[ERROR] Cannot prepare query %s: %s\n",
			qid,
			err.Error())
		return 0, err
	}

EXEC_QUERY:
	if res, err = stmt.ExecContext(ctx, args...); err != nil {
		if worthARetry(err) {
			if err = waitForRetry(ctx); err == nil {
				goto EXEC_QUERY
			}
		}

		err = fmt.Errorf("cannot execute query %s: %w", qid, err)
		l.log.Printf("[ERROR] %s\n", err.Error())
		return 0, err
	}

	return res.RowsAffected()
} // func (l *Ledger) exec(ctx context.Context, qid query.ID, args ...any) (int64, error)

// query runs a select query, retrying while the database is busy.
func (l *Ledger) query(ctx context.Context, qid query.ID, args ...any) (*sql.Rows, error) {
	var (
		err  error
		stmt *sql.Stmt
		rows *sql.Rows
	)

	if stmt, err = l.getQuery(ctx, qid); err != nil {
		l.log.Printf("[ERROR] Cannot prepare query %s: %s\n",
			qid,
			err.Error())
		return nil, err
	}

EXEC_QUERY:
	if rows, err = stmt.QueryContext(ctx, args...); err != nil {
		if worthARetry(err) {
			if err = waitForRetry(ctx); err == nil {
				goto EXEC_QUERY
			}
		}

		return nil, err
	}

	return rows, nil
} // func (l *Ledger) query(ctx context.Context, qid query.ID, args ...any) (*sql.Rows, error)

// BeginRun adds a run to the ledger.
func (l *Ledger) BeginRun(ctx context.Context, report *model.Report) error {
	if report == nil || report.RunID == "" {
		return ErrInvalidValue
	}

	_, err := l.exec(ctx, query.RunAdd,
		report.RunID,
		report.OutputRoot,
		report.StartedAt.Unix(),
		report.Planned())
	return err
} // func (l *Ledger) BeginRun(ctx context.Context, report *model.Report) error

// RecordTask stores the current state of a task. Recording the same task
// again replaces its earlier state.
func (l *Ledger) RecordTask(ctx context.Context, runID string, task *model.FetchTask) error {
	if task == nil || task.ID == "" || runID == "" {
		return ErrInvalidValue
	}

	_, err := l.exec(ctx, query.TaskAdd,
		task.ID,
		runID,
		task.Entry.ID,
		string(task.Entry.Category),
		task.Entry.Title,
		string(task.Status),
		task.Attempts,
		nullString(task.OutputPath),
		task.FileSize,
		nullString(task.LastError),
		nullTime(task.StartedAt),
		nullTime(task.FinishedAt))
	return err
} // func (l *Ledger) RecordTask(ctx context.Context, runID string, task *model.FetchTask) error

// FinishRun stores the finish time and the outcome counts of a run.
func (l *Ledger) FinishRun(ctx context.Context, report *model.Report) error {
	if report == nil || report.RunID == "" {
		return ErrInvalidValue
	}

	finished := report.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	n, err := l.exec(ctx, query.RunFinish,
		finished.Unix(),
		report.Succeeded(),
		report.Skipped(),
		report.Failed(),
		report.RunID)
	if err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, report.RunID)
	}
	return nil
} // func (l *Ledger) FinishRun(ctx context.Context, report *model.Report) error

// Runs returns all runs, newest first.
func (l *Ledger) Runs(ctx context.Context) ([]Run, error) {
	rows, err := l.query(ctx, query.RunGetAll)
	if err != nil {
		return nil, err
	}
	defer rows.Close() // nolint: errcheck

	var list = make([]Run, 0, 16)

	for rows.Next() {
		var r *Run
		if r, err = scanRun(rows); err != nil {
			l.log.Printf("[ERROR] Cannot scan row: %s\n", err.Error())
			return nil, err
		}
		list = append(list, *r)
	}

	return list, rows.Err()
} // func (l *Ledger) Runs(ctx context.Context) ([]Run, error)

// Run loads a single run. The id "latest" (or an empty id) selects the most
// recent run.
func (l *Ledger) Run(ctx context.Context, runID string) (*Run, error) {
	var (
		rows *sql.Rows
		err  error
	)

	if runID == "" || runID == LatestRun {
		rows, err = l.query(ctx, query.RunGetLatest)
	} else {
		rows, err = l.query(ctx, query.RunGetByID, runID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close() // nolint: errcheck

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	return scanRun(rows)
} // func (l *Ledger) Run(ctx context.Context, runID string) (*Run, error)

// LatestRun is the run id alias for the most recent run.
const LatestRun = "latest"

// Tasks returns the recorded tasks of a run in catalog order.
func (l *Ledger) Tasks(ctx context.Context, runID string) ([]model.FetchTask, error) {
	return l.tasks(ctx, query.TaskGetByRun, runID)
}

// Failures returns the failed tasks of a run.
func (l *Ledger) Failures(ctx context.Context, runID string) ([]model.FetchTask, error) {
	return l.tasks(ctx, query.TaskGetFailedByRun, runID, string(model.TaskStatusError))
}

// History returns every recorded attempt to fetch a video, newest first.
func (l *Ledger) History(ctx context.Context, videoID string) ([]model.FetchTask, error) {
	return l.tasks(ctx, query.TaskGetByVideo, videoID)
}

func (l *Ledger) tasks(ctx context.Context, qid query.ID, args ...any) ([]model.FetchTask, error) {
	rows, err := l.query(ctx, qid, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() // nolint: errcheck

	var list = make([]model.FetchTask, 0, 32)

	for rows.Next() {
		var t *model.FetchTask
		if t, err = scanTask(rows); err != nil {
			l.log.Printf("[ERROR] Cannot scan row: %s\n", err.Error())
			return nil, err
		}
		list = append(list, *t)
	}

	return list, rows.Err()
}

func scanRun(rows *sql.Rows) (*Run, error) {
	var (
		r                 Run
		started           int64
		finished          sql.NullInt64
		planned, ok, skip int
		failed            int
	)

	if err := rows.Scan(&r.RunID, &r.OutputRoot, &started, &finished,
		&planned, &ok, &skip, &failed); err != nil {
		return nil, err
	}

	r.Started = time.Unix(started, 0)
	if finished.Valid {
		r.Finished = time.Unix(finished.Int64, 0)
	}
	r.Planned, r.Succeeded, r.Skipped, r.Failed = planned, ok, skip, failed
	return &r, nil
}

func scanTask(rows *sql.Rows) (*model.FetchTask, error) {
	var (
		t                 model.FetchTask
		runID, category   string
		status            string
		outPath, errMsg   sql.NullString
		started, finished sql.NullInt64
	)

	if err := rows.Scan(&t.ID, &runID, &t.Entry.ID, &category, &t.Entry.Title,
		&status, &t.Attempts, &outPath, &t.FileSize, &errMsg,
		&started, &finished); err != nil {
		return nil, err
	}

	t.Entry.Category = model.Category(category)
	t.Status = model.TaskStatus(status)
	t.OutputPath = outPath.String
	t.LastError = errMsg.String
	t.ETASec = -1
	if started.Valid {
		t.StartedAt = time.Unix(started.Int64, 0)
	}
	if finished.Valid {
		t.FinishedAt = time.Unix(finished.Int64, 0)
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}
