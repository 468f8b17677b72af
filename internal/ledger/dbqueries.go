package ledger

import "github.com/ytget/phin/internal/ledger/query"

const taskColumns = `
    task_id,
    run_id,
    video_id,
    category,
    title,
    status,
    attempts,
    output_path,
    file_size,
    error,
    started,
    finished
`

const runColumns = `
    run_id,
    output_root,
    started,
    finished,
    planned,
    succeeded,
    skipped,
    failed
`

var dbQueries = map[query.ID]string{
	query.RunAdd: `
INSERT INTO run (run_id, output_root, started, planned)
VALUES          (     ?,           ?,       ?,       ?)
`,
	query.RunFinish: `
UPDATE run
SET finished = ?,
    succeeded = ?,
    skipped = ?,
    failed = ?
WHERE run_id = ?
`,
	query.RunGetAll:    "SELECT " + runColumns + " FROM run ORDER BY started DESC, id DESC",
	query.RunGetByID:   "SELECT " + runColumns + " FROM run WHERE run_id = ?",
	query.RunGetLatest: "SELECT " + runColumns + " FROM run ORDER BY started DESC, id DESC LIMIT 1",
	query.TaskAdd: `
INSERT INTO task (` + taskColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (task_id) DO UPDATE
SET status = excluded.status,
    attempts = excluded.attempts,
    output_path = excluded.output_path,
    file_size = excluded.file_size,
    error = excluded.error,
    started = excluded.started,
    finished = excluded.finished
`,
	query.TaskGetByRun:       "SELECT " + taskColumns + " FROM task WHERE run_id = ? ORDER BY id",
	query.TaskGetFailedByRun: "SELECT " + taskColumns + " FROM task WHERE run_id = ? AND status = ? ORDER BY id",
	query.TaskGetByVideo:     "SELECT " + taskColumns + " FROM task WHERE video_id = ? ORDER BY id DESC",
}
