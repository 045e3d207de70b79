package tenant

import (
	"context"
	"database/sql"
	"errors"

	gerrors "github.com/coderisk/gkg/internal/errors"
	"github.com/coderisk/gkg/internal/storage"
	"github.com/coderisk/gkg/internal/types"
)

// SQLRegistry persists tenant records through internal/storage's
// Postgres/SQLite-backed DB, for deployments already running a relational
// store for the audit log and wanting the tenant registry alongside it.
type SQLRegistry struct {
	db *storage.DB
}

func NewSQLRegistry(db *storage.DB) *SQLRegistry {
	return &SQLRegistry{db: db}
}

func (r *SQLRegistry) Create(ctx context.Context, rec Record) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO tenants (id, policy) VALUES (?, ?)`),
		string(rec.ID), string(rec.Policy))
	if err != nil {
		return gerrors.Backend(err, "failed to insert tenant %q", rec.ID)
	}
	return nil
}

func (r *SQLRegistry) Get(ctx context.Context, id types.TenantID) (*Record, bool, error) {
	var row struct {
		ID     string `db:"id"`
		Policy string `db:"policy"`
	}
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT id, policy FROM tenants WHERE id = ?`), string(id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, gerrors.Backend(err, "failed to read tenant %q", id)
	}
	return &Record{ID: types.TenantID(row.ID), Policy: Policy(row.Policy)}, true, nil
}

func (r *SQLRegistry) List(ctx context.Context) ([]Record, error) {
	var rows []struct {
		ID     string `db:"id"`
		Policy string `db:"policy"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, policy FROM tenants`); err != nil {
		return nil, gerrors.Backend(err, "failed to list tenants")
	}
	out := make([]Record, len(rows))
	for i, row := range rows {
		out[i] = Record{ID: types.TenantID(row.ID), Policy: Policy(row.Policy)}
	}
	return out, nil
}

func (r *SQLRegistry) Delete(ctx context.Context, id types.TenantID) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM tenants WHERE id = ?`), string(id))
	if err != nil {
		return gerrors.Backend(err, "failed to delete tenant %q", id)
	}
	return nil
}
