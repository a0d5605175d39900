package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/RulesFoundation/atlas/models"
)

// SectionID returns the deterministic UUID for a citation path. Matching
// IDs across runs make upserts idempotent.
func SectionID(citationPath string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("atlas:"+citationPath)).String()
}

// UpsertSection inserts or updates a section record, returning its ID.
func (db *DB) UpsertSection(section *models.Section) (string, error) {
	path := section.Jurisdiction + "/" + section.Citation.Path()
	id := SectionID(path)

	subsectionsJSON, err := json.Marshal(section.Subsections)
	if err != nil {
		return "", fmt.Errorf("failed to marshal subsections: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO sections (
			id, citation_path, jurisdiction, title, section,
			title_name, section_title, body, subsections_json,
			chapter, part, history, language, effective_date,
			source_url, retrieved_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(citation_path) DO UPDATE SET
			title_name = excluded.title_name,
			section_title = excluded.section_title,
			body = excluded.body,
			subsections_json = excluded.subsections_json,
			chapter = excluded.chapter,
			part = excluded.part,
			history = excluded.history,
			language = excluded.language,
			effective_date = excluded.effective_date,
			source_url = excluded.source_url,
			retrieved_at = excluded.retrieved_at,
			updated_at = CURRENT_TIMESTAMP
	`,
		id, path, section.Jurisdiction, section.Citation.Title, section.Citation.Section,
		section.TitleName, section.SectionTitle, section.Text, string(subsectionsJSON),
		section.Chapter, section.Part, section.History, section.Language,
		section.EffectiveDate, section.SourceURL, section.RetrievedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to upsert section: %w", err)
	}

	return id, nil
}

// GetSection loads one section by jurisdiction and section number. Title
// 0 matches any title; section numbers repeat across titles, so callers
// that know the title should pass it.
func (db *DB) GetSection(jurisdiction string, title int, sectionNum string) (*models.Section, error) {
	query := `
		SELECT jurisdiction, title, section, title_name, section_title,
		       body, subsections_json, chapter, part, history, language,
		       effective_date, source_url
		FROM sections
		WHERE jurisdiction = ? AND section = ?
	`
	args := []any{jurisdiction, sectionNum}
	if title > 0 {
		query += " AND title = ?"
		args = append(args, title)
	}
	row := db.QueryRow(query, args...)

	return scanSection(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSection(row rowScanner) (*models.Section, error) {
	var s models.Section
	var titleName, sectionTitle, body, subsJSON sql.NullString
	var chapter, part, history, language, effective, sourceURL sql.NullString

	err := row.Scan(
		&s.Jurisdiction, &s.Citation.Title, &s.Citation.Section,
		&titleName, &sectionTitle, &body, &subsJSON,
		&chapter, &part, &history, &language, &effective, &sourceURL,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan section: %w", err)
	}

	s.TitleName = titleName.String
	s.SectionTitle = sectionTitle.String
	s.Text = body.String
	s.Chapter = chapter.String
	s.Part = part.String
	s.History = history.String
	s.Language = language.String
	s.EffectiveDate = effective.String
	s.SourceURL = sourceURL.String

	if subsJSON.String != "" {
		if err := json.Unmarshal([]byte(subsJSON.String), &s.Subsections); err != nil {
			return nil, fmt.Errorf("failed to unmarshal subsections: %w", err)
		}
	}

	return &s, nil
}

// ListSections loads stored sections, optionally filtered by
// jurisdiction. Limit <= 0 means all.
func (db *DB) ListSections(jurisdiction string, limit int) ([]*models.Section, error) {
	query := `
		SELECT jurisdiction, title, section, title_name, section_title,
		       body, subsections_json, chapter, part, history, language,
		       effective_date, source_url
		FROM sections
	`
	var args []any
	if jurisdiction != "" {
		query += " WHERE jurisdiction = ?"
		args = append(args, jurisdiction)
	}
	query += " ORDER BY citation_path"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sections: %w", err)
	}
	defer rows.Close()

	var sections []*models.Section
	for rows.Next() {
		s, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

// InsertCrossReference records that one citation path references another.
func (db *DB) InsertCrossReference(fromPath, toPath string) error {
	_, err := db.Exec(`
		INSERT OR IGNORE INTO cross_references (from_path, to_path)
		VALUES (?, ?)
	`, fromPath, toPath)
	if err != nil {
		return fmt.Errorf("failed to insert cross reference: %w", err)
	}
	return nil
}

// ReferencesTo returns citation paths that reference the given path.
func (db *DB) ReferencesTo(path string) ([]string, error) {
	rows, err := db.Query(`
		SELECT from_path FROM cross_references WHERE to_path = ? ORDER BY from_path
	`, path)
	if err != nil {
		return nil, fmt.Errorf("failed to query cross references: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// UpsertTitle records title metadata for a jurisdiction.
func (db *DB) UpsertTitle(jurisdiction string, number int, name string, sectionCount int) error {
	_, err := db.Exec(`
		INSERT INTO titles (jurisdiction, number, name, section_count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(jurisdiction, number) DO UPDATE SET
			name = excluded.name,
			section_count = excluded.section_count
	`, jurisdiction, number, name, sectionCount)
	if err != nil {
		return fmt.Errorf("failed to upsert title: %w", err)
	}
	return nil
}

// StartRun opens an ingest_runs row and returns its ID.
func (db *DB) StartRun(jurisdictions []string) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO ingest_runs (jurisdictions) VALUES (?)
	`, strings.Join(jurisdictions, ","))
	if err != nil {
		return 0, fmt.Errorf("failed to start run: %w", err)
	}
	return result.LastInsertId()
}

// FinishRun closes an ingest_runs row with final counts.
func (db *DB) FinishRun(runID int64, sectionCount, errorCount int) error {
	_, err := db.Exec(`
		UPDATE ingest_runs
		SET finished_at = CURRENT_TIMESTAMP, section_count = ?, error_count = ?
		WHERE run_id = ?
	`, sectionCount, errorCount, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// Stats summarizes stored content per jurisdiction.
func (db *DB) Stats() (map[string]int, error) {
	rows, err := db.Query(`
		SELECT jurisdiction, COUNT(*) FROM sections GROUP BY jurisdiction
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var jur string
		var count int
		if err := rows.Scan(&jur, &count); err != nil {
			return nil, err
		}
		stats[jur] = count
	}
	return stats, rows.Err()
}
