package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"

	"model-serving-service/internal/core/domain"
	ports "model-serving-service/internal/core/ports/output"
)

// DefaultArtifactTable holds one exported bundle per row:
//
//	CREATE TABLE model_artifact (
//	    name       TEXT PRIMARY KEY,
//	    payload    JSONB NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
const DefaultArtifactTable = "model_artifact"

var tableNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)?$`)

// querier is the slice of *pgxpool.Pool the repository uses.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type artifactRepo struct {
	db    querier
	table string
}

// NewArtifactRepository reads bundles from table through db, typically a
// *pgxpool.Pool.
func NewArtifactRepository(db querier, table string) (ports.ArtifactStore, error) {
	if table == "" {
		table = DefaultArtifactTable
	}
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("invalid artifact table name %q", table)
	}
	return &artifactRepo{db: db, table: table}, nil
}

func (r *artifactRepo) Describe() string {
	return "postgres://" + r.table
}

func (r *artifactRepo) Fetch(ctx context.Context, name string) ([]byte, error) {
	query := `SELECT payload::text FROM ` + r.table + ` WHERE name = $1`

	var payload string
	err := r.db.QueryRow(ctx, query, name).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, name)
		}
		return nil, fmt.Errorf("get model artifact: %w", err)
	}
	return []byte(payload), nil
}

var _ ports.ArtifactStore = (*artifactRepo)(nil)
