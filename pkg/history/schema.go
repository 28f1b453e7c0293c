package history

// Schema contains the SQL statements to create the probe history schema.
const Schema = `
-- Probes table: one row per finished status probe
CREATE TABLE IF NOT EXISTS probes (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    address     TEXT NOT NULL,
    kind        TEXT NOT NULL,
    ping_ms     INTEGER NOT NULL DEFAULT 0,
    online      INTEGER NOT NULL DEFAULT 0,
    max_players INTEGER NOT NULL DEFAULT 0,
    motd        TEXT NOT NULL DEFAULT '',
    version     TEXT NOT NULL DEFAULT '',
    reason      TEXT NOT NULL DEFAULT '',
    recorded_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_probes_address ON probes(address, id);
CREATE INDEX IF NOT EXISTS idx_probes_recorded ON probes(recorded_at);
`

// defaultRecentLimit is used when Recent is called without a limit.
const defaultRecentLimit = 50

// maxRecentLimit caps how many rows Recent returns.
const maxRecentLimit = 1000
