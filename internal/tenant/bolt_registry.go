package tenant

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	gerrors "github.com/coderisk/gkg/internal/errors"
	"github.com/coderisk/gkg/internal/types"
)

var tenantsBucket = []byte("tenants")

// BoltRegistry persists tenant records to a local bbolt file, for
// single-node deployments that want the registry to survive restarts
// without standing up a relational database.
type BoltRegistry struct {
	db *bbolt.DB
}

// NewBoltRegistry opens (creating if needed) a bbolt-backed registry at path.
func NewBoltRegistry(path string) (*BoltRegistry, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, gerrors.Backend(err, "failed to open tenant registry at %s", path)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(tenantsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, gerrors.Backend(err, "failed to initialize tenant bucket")
	}
	return &BoltRegistry{db: db}, nil
}

func (r *BoltRegistry) Close() error {
	return r.db.Close()
}

func (r *BoltRegistry) Create(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return gerrors.Internal("failed to marshal tenant record: %v", err)
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(tenantsBucket)
		return b.Put([]byte(rec.ID), data)
	})
}

func (r *BoltRegistry) Get(ctx context.Context, id types.TenantID) (*Record, bool, error) {
	var rec Record
	found := false
	err := r.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(tenantsBucket)
		data := b.Get([]byte(id))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, false, gerrors.Backend(err, "failed to read tenant %q", id)
	}
	if !found {
		return nil, false, nil
	}
	return &rec, true, nil
}

func (r *BoltRegistry) List(ctx context.Context) ([]Record, error) {
	var out []Record
	err := r.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(tenantsBucket)
		return b.ForEach(func(k, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("corrupt tenant record %q: %w", k, err)
			}
			out = append(out, rec)
			return nil
		})
	})
	if err != nil {
		return nil, gerrors.Backend(err, "failed to list tenants")
	}
	return out, nil
}

func (r *BoltRegistry) Delete(ctx context.Context, id types.TenantID) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(tenantsBucket)
		return b.Delete([]byte(id))
	})
}
