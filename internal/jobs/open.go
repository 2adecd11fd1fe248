package jobs

import (
	"context"
	"fmt"

	"github.com/Lllllllleong/pdftoolkit/internal/gcp"
)

// Config selects the ledger backend.
type Config struct {
	Backend    string
	SQLitePath string
	ProjectID  string
	Collection string
	Database   string
}

// Open builds the recorder named by cfg.Backend.
func Open(ctx context.Context, cfg Config) (Recorder, error) {
	switch cfg.Backend {
	case "", BackendNone:
		return Nop{}, nil
	case BackendSQLite:
		return NewSQLiteRecorder(cfg.SQLitePath)
	case BackendFirestore:
		client, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID, cfg.Database)
		if err != nil {
			return nil, err
		}
		r := NewFirestoreRecorder(client, cfg.Collection)
		r.owned = true
		return r, nil
	default:
		return nil, fmt.Errorf("unknown jobs backend %q", cfg.Backend)
	}
}
