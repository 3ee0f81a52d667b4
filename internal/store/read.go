package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Artifact is one archived line with its index columns.
type Artifact struct {
	Seq       uint64
	Kind      string
	StepID    string
	Timestamp string
	Line      string
}

// Run is the index entry of one test run. EndSeq is nil while the run has
// no testRunEnd in the archive.
type Run struct {
	StartSeq  uint64
	Name      string
	Version   string
	DutInfoID string
	EndSeq    *uint64
	Status    string
	Result    string
}

// StreamSummary describes one archived stream.
type StreamSummary struct {
	Name      string
	Artifacts int
	Runs      int
}

// ReadArtifacts returns every artifact of a stream in sequence order.
// Returns an empty slice (not nil) for an unknown or empty stream.
func (s *Store) ReadArtifacts(ctx context.Context, stream string) ([]Artifact, error) {
	return s.queryArtifacts(ctx, `
		SELECT seq, kind, step_id, timestamp, line
		FROM artifacts
		WHERE stream = ?
		ORDER BY seq ASC
	`, stream)
}

// ReadStep returns the artifacts of one step in sequence order.
func (s *Store) ReadStep(ctx context.Context, stream, stepID string) ([]Artifact, error) {
	return s.queryArtifacts(ctx, `
		SELECT seq, kind, step_id, timestamp, line
		FROM artifacts
		WHERE stream = ? AND step_id = ?
		ORDER BY seq ASC
	`, stream, stepID)
}

func (s *Store) queryArtifacts(ctx context.Context, query string, args ...any) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	artifacts := []Artifact{}
	for rows.Next() {
		var a Artifact
		var seq int64
		if err := rows.Scan(&seq, &a.Kind, &a.StepID, &a.Timestamp, &a.Line); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		a.Seq = uint64(seq)
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return artifacts, nil
}

// ListRuns returns the runs of a stream ordered by start.
func (s *Store) ListRuns(ctx context.Context, stream string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT start_seq, name, version, dut_info_id, end_seq, status, result
		FROM runs
		WHERE stream = ?
		ORDER BY start_seq ASC
	`, stream)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			r      Run
			start  int64
			end    sql.NullInt64
			status sql.NullString
			result sql.NullString
		)
		if err := rows.Scan(&start, &r.Name, &r.Version, &r.DutInfoID, &end, &status, &result); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartSeq = uint64(start)
		if end.Valid {
			e := uint64(end.Int64)
			r.EndSeq = &e
		}
		r.Status = status.String
		r.Result = result.String
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ListStreams returns every stream in the archive ordered by name.
func (s *Store) ListStreams(ctx context.Context) ([]StreamSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.name,
		       (SELECT COUNT(*) FROM artifacts a WHERE a.stream = s.name),
		       (SELECT COUNT(*) FROM runs r WHERE r.stream = s.name)
		FROM streams s
		ORDER BY s.name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query streams: %w", err)
	}
	defer rows.Close()

	streams := []StreamSummary{}
	for rows.Next() {
		var sum StreamSummary
		if err := rows.Scan(&sum.Name, &sum.Artifacts, &sum.Runs); err != nil {
			return nil, fmt.Errorf("scan stream: %w", err)
		}
		streams = append(streams, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate streams: %w", err)
	}
	return streams, nil
}
