package db

const schema = `
-- Performance and reliability settings
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- Sections table: one row per normalized statute section. The id is a
-- deterministic UUID derived from the citation path so re-ingesting the
-- same section updates in place.
CREATE TABLE IF NOT EXISTS sections (
    id TEXT PRIMARY KEY,
    citation_path TEXT NOT NULL UNIQUE,
    jurisdiction TEXT NOT NULL,
    title INTEGER NOT NULL DEFAULT 0,
    section TEXT NOT NULL,
    title_name TEXT,
    section_title TEXT,
    body TEXT,
    subsections_json TEXT,
    chapter TEXT,
    part TEXT,
    history TEXT,
    language TEXT,
    effective_date TEXT,
    source_url TEXT,
    retrieved_at TIMESTAMP,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_sections_cite ON sections(jurisdiction, title, section);
CREATE INDEX IF NOT EXISTS idx_sections_jurisdiction ON sections(jurisdiction);

-- FTS5 full-text search over heading and body, kept in sync by triggers.
CREATE VIRTUAL TABLE IF NOT EXISTS sections_fts USING fts5(
    section_title,
    body,
    content='sections',
    content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS sections_ai AFTER INSERT ON sections BEGIN
    INSERT INTO sections_fts(rowid, section_title, body)
    VALUES (new.rowid, new.section_title, new.body);
END;

CREATE TRIGGER IF NOT EXISTS sections_ad AFTER DELETE ON sections BEGIN
    INSERT INTO sections_fts(sections_fts, rowid, section_title, body)
    VALUES ('delete', old.rowid, old.section_title, old.body);
END;

CREATE TRIGGER IF NOT EXISTS sections_au AFTER UPDATE ON sections BEGIN
    INSERT INTO sections_fts(sections_fts, rowid, section_title, body)
    VALUES ('delete', old.rowid, old.section_title, old.body);
    INSERT INTO sections_fts(rowid, section_title, body)
    VALUES (new.rowid, new.section_title, new.body);
END;

-- Cross-references between sections, stored as citation paths.
CREATE TABLE IF NOT EXISTS cross_references (
    from_path TEXT NOT NULL,
    to_path TEXT NOT NULL,
    PRIMARY KEY (from_path, to_path)
);

CREATE INDEX IF NOT EXISTS idx_xref_to ON cross_references(to_path);

-- Title metadata per jurisdiction.
CREATE TABLE IF NOT EXISTS titles (
    jurisdiction TEXT NOT NULL,
    number INTEGER NOT NULL,
    name TEXT,
    section_count INTEGER DEFAULT 0,
    last_updated TEXT,
    PRIMARY KEY (jurisdiction, number)
);

-- Ingest runs: per-run accounting for bulk downloads.
CREATE TABLE IF NOT EXISTS ingest_runs (
    run_id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    finished_at TIMESTAMP,
    jurisdictions TEXT,
    section_count INTEGER DEFAULT 0,
    error_count INTEGER DEFAULT 0
);
`
