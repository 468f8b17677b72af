package ledger

var initQueries = []string{
	`
CREATE TABLE run (
    id INTEGER PRIMARY KEY,
    run_id TEXT UNIQUE NOT NULL,
    output_root TEXT NOT NULL,
    started INTEGER NOT NULL,
    finished INTEGER,
    planned INTEGER NOT NULL DEFAULT 0,
    succeeded INTEGER NOT NULL DEFAULT 0,
    skipped INTEGER NOT NULL DEFAULT 0,
    failed INTEGER NOT NULL DEFAULT 0,
    CHECK (planned >= 0)
)`,

	`
CREATE TABLE task (
    id INTEGER PRIMARY KEY,
    task_id TEXT UNIQUE NOT NULL,
    run_id TEXT NOT NULL,
    video_id TEXT NOT NULL,
    category TEXT NOT NULL,
    title TEXT NOT NULL,
    status TEXT NOT NULL,
    attempts INTEGER NOT NULL DEFAULT 0,
    output_path TEXT,
    file_size INTEGER NOT NULL DEFAULT 0,
    error TEXT,
    started INTEGER,
    finished INTEGER,
    FOREIGN KEY (run_id) REFERENCES run (run_id)
        ON UPDATE RESTRICT
        ON DELETE CASCADE
)`,

	"CREATE INDEX task_run_idx ON task (run_id)",
	"CREATE INDEX task_video_idx ON task (video_id)",
	"CREATE INDEX task_status_idx ON task (status)",
}
