package db

// schema is the full database schema.
//
// The certificate sequence is seeded from the highest certificate already in
// the ledger, so re-running the schema can never rewind numbering.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS units (
    id         TEXT PRIMARY KEY CHECK (length(trim(id)) > 0),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS equipment (
    id                TEXT PRIMARY KEY CHECK (length(trim(id)) > 0),
    equipment_type    TEXT NOT NULL CHECK (length(trim(equipment_type)) > 0),
    serial_number     TEXT NOT NULL,
    current_custodian TEXT NOT NULL REFERENCES units(id),
    last_issuer       TEXT REFERENCES units(id),
    image             BLOB,
    image_mime        TEXT,
    created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_equipment_type_serial
    ON equipment(equipment_type, serial_number);

CREATE TABLE IF NOT EXISTS transfers (
    certificate_no INTEGER PRIMARY KEY CHECK (certificate_no > 0),
    recorded_at    DATETIME NOT NULL,
    equipment_id   TEXT NOT NULL REFERENCES equipment(id),
    issuing_unit   TEXT NOT NULL REFERENCES units(id),
    receiving_unit TEXT NOT NULL REFERENCES units(id),
    details        TEXT NOT NULL CHECK (length(trim(details)) > 0),
    recorder_name  TEXT NOT NULL CHECK (length(trim(recorder_name)) > 0),
    recorded_by    INTEGER REFERENCES users(id),
    CHECK (issuing_unit <> receiving_unit)
);

CREATE INDEX IF NOT EXISTS idx_transfers_equipment
    ON transfers(equipment_id, certificate_no);

CREATE TRIGGER IF NOT EXISTS transfers_no_update
BEFORE UPDATE ON transfers
BEGIN
    SELECT RAISE(ABORT, 'transfers are append-only');
END;

CREATE TRIGGER IF NOT EXISTS transfers_no_delete
BEFORE DELETE ON transfers
BEGIN
    SELECT RAISE(ABORT, 'transfers are append-only');
END;

CREATE TABLE IF NOT EXISTS ledger_sequence (
    name  TEXT PRIMARY KEY,
    value INTEGER NOT NULL CHECK (value >= 0)
);

INSERT OR IGNORE INTO ledger_sequence (name, value)
    SELECT 'certificate', COALESCE(MAX(certificate_no), 0) FROM transfers;
`
