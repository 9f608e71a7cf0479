// Package sheets defines the spreadsheet mirror the sync worker writes to.
package sheets

import "context"

// Ports for outbound adapters.
type (
	// SnapshotWriter replaces the mirrored sheet contents with rows.
	SnapshotWriter interface {
		WriteSnapshot(ctx context.Context, rows [][]string) (ref string, err error)
	}

	// SnapshotReader returns what was last mirrored.
	SnapshotReader interface {
		ReadSnapshot(ctx context.Context) ([][]string, error)
	}
)
