package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/ocptv/internal/schema"
)

// ErrSeqConflict is returned when a sequence number of the stream already
// holds a different line.
var ErrSeqConflict = errors.New("sequence number already holds a different line")

// StreamWriter appends artifact lines to one named stream. It satisfies
// output.Writer.
type StreamWriter struct {
	store  *Store
	stream string
}

// Name returns the stream name.
func (w *StreamWriter) Name() string {
	return w.stream
}

// Write decodes line, stores it under its sequence number and updates the
// run index. Writing the same line twice is a no-op, so a retried write after
// a partial failure is safe. A different line under a sequence number already
// stored fails with ErrSeqConflict.
func (w *StreamWriter) Write(ctx context.Context, line []byte) error {
	root, err := schema.Decode(line)
	if err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	tx, err := w.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write artifact: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, `
		INSERT INTO artifacts (stream, seq, kind, step_id, timestamp, line)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(stream, seq) DO NOTHING
	`,
		w.stream,
		int64(root.SequenceNumber),
		string(root.Kind()),
		root.StepID(),
		root.Timestamp.String(),
		string(line),
	)
	if err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var existing string
		err := tx.QueryRowContext(ctx, `
			SELECT line FROM artifacts WHERE stream = ? AND seq = ?
		`, w.stream, int64(root.SequenceNumber)).Scan(&existing)
		if err != nil {
			return fmt.Errorf("write artifact: %w", err)
		}
		if existing != string(line) {
			return fmt.Errorf("write artifact: stream %s seq %d: %w", w.stream, root.SequenceNumber, ErrSeqConflict)
		}
		return tx.Commit()
	}

	if ra := root.TestRunArtifact; ra != nil {
		switch {
		case ra.TestRunStart != nil:
			_, err = tx.ExecContext(ctx, `
				INSERT INTO runs (stream, start_seq, name, version, dut_info_id)
				VALUES (?, ?, ?, ?, ?)
			`,
				w.stream,
				int64(root.SequenceNumber),
				ra.TestRunStart.Name,
				ra.TestRunStart.Version,
				ra.TestRunStart.DutInfo.DutInfoID,
			)
		case ra.TestRunEnd != nil:
			// testRunEnd carries no run id; it closes the most recent open run.
			_, err = tx.ExecContext(ctx, `
				UPDATE runs SET end_seq = ?, status = ?, result = ?
				WHERE stream = ? AND start_seq = (
					SELECT MAX(start_seq) FROM runs WHERE stream = ? AND end_seq IS NULL
				)
			`,
				int64(root.SequenceNumber),
				string(ra.TestRunEnd.Status),
				string(ra.TestRunEnd.Result),
				w.stream,
				w.stream,
			)
		}
		if err != nil {
			return fmt.Errorf("write artifact: index run: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write artifact: commit: %w", err)
	}
	return nil
}
