// Package store persists analysis runs so results can be listed and
// re-opened without re-analysing the sources.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/VectorBits/Reentry/src/internal/config"
)

var ErrRunNotFound = errors.New("analysis run not found")

// Run is one stored analysis. Result holds the JSON encoded result.
type Run struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Fingerprint string    `gorm:"index;size:66" json:"fingerprint"`
	Sources     string    `gorm:"type:text" json:"sources"`
	Contracts   int       `json:"contracts"`
	Functions   int       `json:"functions"`
	Findings    int       `json:"findings"`
	Critical    int       `json:"critical"`
	High        int       `json:"high"`
	Medium      int       `json:"medium"`
	Low         int       `json:"low"`
	Result      string    `gorm:"type:text" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Run) TableName() string { return "analysis_runs" }

// NewRun stamps a run with a fresh id.
func NewRun(fingerprint string, sources []string) *Run {
	return &Run{
		ID:          uuid.New().String(),
		Fingerprint: fingerprint,
		Sources:     strings.Join(sources, "\n"),
		CreatedAt:   time.Now().UTC(),
	}
}

type Store interface {
	Save(ctx context.Context, run *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	// Latest returns the newest run for a program fingerprint.
	Latest(ctx context.Context, fingerprint string) (*Run, error)
	List(ctx context.Context, limit int) ([]Run, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Open connects the backend named by cfg.Database.Driver.
func Open(ctx context.Context, cfg *config.AppConfig) (Store, error) {
	switch cfg.Database.Driver {
	case "", "sqlite":
		path := cfg.Database.Path
		if cfg.Database.DSN != "" {
			path = cfg.Database.DSN
		}
		if path == "" {
			path = "data/reentry.db"
		}
		return NewSQLiteStore(path)
	case "postgres":
		dsn := cfg.Database.DSN
		if dsn == "" {
			dsn = cfg.GetPostgresDSN()
		}
		return NewPostgresStore(dsn)
	case "mysql":
		return NewMySQLStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// ValidID rejects ids that cannot have been produced by NewRun.
func ValidID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrRunNotFound, id)
	}
	return nil
}
