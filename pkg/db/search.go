package db

import "fmt"

// SearchResult is one full-text search hit.
type SearchResult struct {
	Jurisdiction string
	Section      string
	SectionTitle string
	Snippet      string
	Score        float64
}

// Search runs an FTS5 query over section headings and bodies, ranked by
// bm25. Limit <= 0 means 10.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := db.Query(`
		SELECT s.jurisdiction, s.section, s.section_title,
		       snippet(sections_fts, 1, '[', ']', '...', 20),
		       bm25(sections_fts)
		FROM sections_fts
		JOIN sections s ON s.rowid = sections_fts.rowid
		WHERE sections_fts MATCH ?
		ORDER BY bm25(sections_fts)
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to run search: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Jurisdiction, &r.Section, &r.SectionTitle, &r.Snippet, &r.Score); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
