package migrations

import (
	"newsrelay/internal/core"
)

// Migration001CreateDispatchHistory creates the dispatch audit table
var Migration001CreateDispatchHistory = core.Migration{
	Version:     1,
	Name:        "create_dispatch_history",
	Description: "Create the relay dispatch audit table",
	UpSQL: `
		CREATE TABLE IF NOT EXISTS relay_dispatches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			source_name TEXT NOT NULL,
			source_url TEXT NOT NULL,
			category TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			title TEXT NOT NULL,
			link TEXT,
			published_at INTEGER NOT NULL,
			dispatched_at INTEGER NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('delivered', 'failed')),
			error TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_relay_dispatches_source ON relay_dispatches(source_url, id);
		CREATE INDEX IF NOT EXISTS idx_relay_dispatches_status ON relay_dispatches(status, id);
	`,
	DownSQL: `
		DROP INDEX IF EXISTS idx_relay_dispatches_status;
		DROP INDEX IF EXISTS idx_relay_dispatches_source;
		DROP TABLE IF EXISTS relay_dispatches;
	`,
}
