package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// UpsertResult describes what a single fragment upsert did.
type UpsertResult int

const (
	// UpsertUnchanged means the stored fragment was byte-identical.
	UpsertUnchanged UpsertResult = iota
	// UpsertNew means the fragment did not exist before.
	UpsertNew
	// UpsertUpdated means content changed and was rewritten in place,
	// preserving usage statistics.
	UpsertUpdated
)

// UpsertFragment stores f, creating it or updating its content in place.
//
// Fragment identity is a pure function of (api_id, type, natural key), so
// re-ingesting an unchanged spec is a no-op and a changed fragment keeps
// its usage_count across the update.
func (s *Store) UpsertFragment(f *Fragment) (UpsertResult, error) {
	contentJSON, err := json.Marshal(f.Content)
	if err != nil {
		return UpsertUnchanged, fmt.Errorf("failed to marshal content: %w", err)
	}
	metadataJSON, err := json.Marshal(f.Metadata)
	if err != nil {
		return UpsertUnchanged, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	var stored struct {
		content  string
		metadata string
	}
	row := s.db.QueryRow(
		"SELECT content, metadata FROM fragments WHERE fragment_id = ?",
		f.FragmentID,
	)
	err = row.Scan(&stored.content, &stored.metadata)

	switch {
	case err == sql.ErrNoRows:
		now := time.Now().UTC()
		_, err := s.db.Exec(`
			INSERT INTO fragments (
				fragment_id, api_id, fragment_type, natural_key,
				content, metadata, created_at, updated_at, usage_count
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)
		`,
			f.FragmentID, f.APIID, string(f.Type), f.NaturalKey,
			string(contentJSON), string(metadataJSON),
			now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
		)
		if err != nil {
			return UpsertUnchanged, fmt.Errorf("failed to insert fragment: %w", err)
		}
		return UpsertNew, nil

	case err != nil:
		return UpsertUnchanged, fmt.Errorf("failed to look up fragment: %w", err)
	}

	if stored.content == string(contentJSON) && stored.metadata == string(metadataJSON) {
		return UpsertUnchanged, nil
	}

	_, err = s.db.Exec(`
		UPDATE fragments
		SET content = ?, metadata = ?, updated_at = ?
		WHERE fragment_id = ?
	`,
		string(contentJSON), string(metadataJSON),
		time.Now().UTC().Format(time.RFC3339Nano), f.FragmentID,
	)
	if err != nil {
		return UpsertUnchanged, fmt.Errorf("failed to update fragment: %w", err)
	}
	return UpsertUpdated, nil
}

// IngestFragments upserts a batch of extracted fragments and returns the
// ingest report. skipped carries extraction-time failures so partial
// success is visible to the caller.
func (s *Store) IngestFragments(apiID string, fragments []*Fragment, skipped []string) (*IngestReport, error) {
	report := &IngestReport{
		APIID:     apiID,
		Extracted: len(fragments),
		Skipped:   skipped,
	}

	for _, f := range fragments {
		result, err := s.UpsertFragment(f)
		if err != nil {
			// StoreCorruption policy: log, skip, keep going.
			report.Skipped = append(report.Skipped,
				fmt.Sprintf("%s: %v", f.NaturalKey, err))
			continue
		}
		switch result {
		case UpsertNew:
			report.New++
		case UpsertUpdated:
			report.Updated++
		case UpsertUnchanged:
			report.Unchanged++
		}
	}

	return report, nil
}

// Get retrieves a fragment by id. Returns ErrNotFound if absent.
func (s *Store) Get(fragmentID string) (*Fragment, error) {
	row := s.db.QueryRow(`
		SELECT fragment_id, api_id, fragment_type, natural_key,
		       content, metadata, created_at, updated_at, usage_count, last_used
		FROM fragments WHERE fragment_id = ?
	`, fragmentID)

	f, err := scanFragment(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read fragment: %w", err)
	}
	return f, nil
}

// FragmentsByAPI returns all fragments for an API, optionally filtered by
// type. Results are ordered by fragment_id for determinism.
func (s *Store) FragmentsByAPI(apiID string, types ...FragmentType) ([]*Fragment, error) {
	query := `
		SELECT fragment_id, api_id, fragment_type, natural_key,
		       content, metadata, created_at, updated_at, usage_count, last_used
		FROM fragments WHERE api_id = ?
	`
	args := []interface{}{apiID}

	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		query += fmt.Sprintf(" AND fragment_type IN (%s)", strings.Join(placeholders, ","))
	}
	query += " ORDER BY fragment_id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fragments: %w", err)
	}
	defer rows.Close()

	var fragments []*Fragment
	for rows.Next() {
		f, err := scanFragment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fragment: %w", err)
		}
		fragments = append(fragments, f)
	}
	return fragments, rows.Err()
}

// FragmentCount returns the number of stored fragments for an API.
func (s *Store) FragmentCount(apiID string) (int, error) {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM fragments WHERE api_id = ?", apiID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count fragments: %w", err)
	}
	return count, nil
}

// EndpointExists reports whether (method, path) is a known endpoint
// fragment of the API. A synthesized call may not target endpoints the
// stored spec does not contain.
func (s *Store) EndpointExists(apiID, method, path string) (bool, error) {
	naturalKey := strings.ToUpper(method) + " " + path
	fragmentID := NewFragmentID(apiID, FragmentEndpoint, naturalKey)

	var one int
	err := s.db.QueryRow(
		"SELECT 1 FROM fragments WHERE fragment_id = ?", fragmentID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up endpoint: %w", err)
	}
	return true, nil
}

// TouchFragments records retrieval of the given fragments: usage_count is
// incremented and last_used set to now. The increment happens inside a
// single UPDATE so concurrent searches never lose counts.
func (s *Store) TouchFragments(fragmentIDs []string) error {
	if len(fragmentIDs) == 0 {
		return nil
	}

	placeholders := make([]string, len(fragmentIDs))
	args := make([]interface{}, 0, len(fragmentIDs)+1)
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano))
	for i, id := range fragmentIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := fmt.Sprintf(`
		UPDATE fragments
		SET usage_count = usage_count + 1, last_used = ?
		WHERE fragment_id IN (%s)
	`, strings.Join(placeholders, ","))

	if _, err := s.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to update usage stats: %w", err)
	}
	return nil
}

// ResetUsage zeroes usage statistics for an API. Administrative action;
// usage counts are otherwise monotonic.
func (s *Store) ResetUsage(apiID string) error {
	_, err := s.db.Exec(
		"UPDATE fragments SET usage_count = 0, last_used = NULL WHERE api_id = ?",
		apiID,
	)
	if err != nil {
		return fmt.Errorf("failed to reset usage: %w", err)
	}
	return nil
}

// EvictOlderThan deletes fragments whose last_used predates now-retention.
// Fragments never retrieved are evicted based on their creation time.
// Eviction is unconditional; there is no hot-fragment pin. The evicted
// fragment ids are returned so callers can purge derived state such as
// the search index.
func (s *Store) EvictOlderThan(retention time.Duration) ([]string, error) {
	cutoff := time.Now().UTC().Add(-retention).Format(time.RFC3339Nano)

	rows, err := s.db.Query(`
		SELECT fragment_id FROM fragments
		WHERE (last_used IS NOT NULL AND last_used < ?)
		   OR (last_used IS NULL AND created_at < ?)
	`, cutoff, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to select evictable fragments: %w", err)
	}
	defer rows.Close()

	var evicted []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		evicted = append(evicted, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(evicted) == 0 {
		return nil, nil
	}

	_, err = s.db.Exec(`
		DELETE FROM fragments
		WHERE (last_used IS NOT NULL AND last_used < ?)
		   OR (last_used IS NULL AND created_at < ?)
	`, cutoff, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to evict fragments: %w", err)
	}

	return evicted, nil
}

// DeleteAPI removes all fragments belonging to an API.
func (s *Store) DeleteAPI(apiID string) (int, error) {
	result, err := s.db.Exec("DELETE FROM fragments WHERE api_id = ?", apiID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete fragments: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(deleted), nil
}

// Stats aggregates fragment statistics for an API.
func (s *Store) Stats(apiID string) (*APIStats, error) {
	stats := &APIStats{
		APIID:         apiID,
		TypeBreakdown: make(map[FragmentType]int),
	}

	rows, err := s.db.Query(`
		SELECT fragment_type, COUNT(*), COALESCE(SUM(usage_count), 0)
		FROM fragments WHERE api_id = ?
		GROUP BY fragment_type
	`, apiID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fragmentType string
		var count int
		var usage int64
		if err := rows.Scan(&fragmentType, &count, &usage); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		stats.TypeBreakdown[FragmentType(fragmentType)] = count
		stats.FragmentCount += count
		stats.TotalUsage += usage
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var lastUsed sql.NullString
	err = s.db.QueryRow(
		"SELECT MAX(last_used) FROM fragments WHERE api_id = ?", apiID,
	).Scan(&lastUsed)
	if err != nil {
		return nil, fmt.Errorf("failed to read last_used: %w", err)
	}
	if lastUsed.Valid {
		if t, err := time.Parse(time.RFC3339Nano, lastUsed.String); err == nil {
			stats.LastUsed = t
		}
	}

	return stats, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFragment(row rowScanner) (*Fragment, error) {
	var f Fragment
	var fragmentType, contentJSON, metadataJSON string
	var createdAt, updatedAt string
	var lastUsed sql.NullString

	err := row.Scan(
		&f.FragmentID, &f.APIID, &fragmentType, &f.NaturalKey,
		&contentJSON, &metadataJSON, &createdAt, &updatedAt,
		&f.UsageCount, &lastUsed,
	)
	if err != nil {
		return nil, err
	}

	f.Type = FragmentType(fragmentType)

	if err := json.Unmarshal([]byte(contentJSON), &f.Content); err != nil {
		return nil, fmt.Errorf("corrupt content for %s: %w", f.FragmentID, err)
	}
	if err := json.Unmarshal([]byte(metadataJSON), &f.Metadata); err != nil {
		return nil, fmt.Errorf("corrupt metadata for %s: %w", f.FragmentID, err)
	}

	if f.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("corrupt created_at for %s: %w", f.FragmentID, err)
	}
	if f.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("corrupt updated_at for %s: %w", f.FragmentID, err)
	}
	if lastUsed.Valid {
		if f.LastUsed, err = time.Parse(time.RFC3339Nano, lastUsed.String); err != nil {
			return nil, fmt.Errorf("corrupt last_used for %s: %w", f.FragmentID, err)
		}
	}

	return &f, nil
}
