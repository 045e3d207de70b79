package main

import (
	"context"

	"github.com/coderisk/gkg/internal/config"
	"github.com/coderisk/gkg/internal/graph"
	"github.com/coderisk/gkg/internal/graph/neo4jstore"
	"github.com/coderisk/gkg/internal/storage"
	"github.com/coderisk/gkg/internal/tenant"
)

// openStore constructs the graph.Store the loaded configuration points at.
// For the neo4j backend, it also wires the tenant registry's policy lookup
// in so DedicatedNamespace tenants get routed to their own database.
func openStore(ctx context.Context, c *config.Config) (graph.Store, error) {
	if c.Backend.Type == "neo4j" {
		store, err := neo4jstore.New(ctx, c.Backend.Neo4jURI, c.Backend.Neo4jUsername, c.Backend.Neo4jPassword, c.Backend.Neo4jDatabase)
		if err != nil {
			return nil, err
		}
		if mgr, err := openManager(c); err == nil {
			store.SetPolicyResolver(mgr.Resolve)
		}
		return store, nil
	}
	return graph.NewMemoryStore(), nil
}

// openRegistry constructs the tenant registry the loaded configuration
// points at: a SQL registry when a DSN is configured, otherwise a local
// bbolt file.
func openRegistry(c *config.Config) (tenant.Registry, error) {
	if c.Backend.RegistryDSN != "" {
		db, err := storage.Open(c.Backend.RegistryDSN)
		if err != nil {
			return nil, err
		}
		return tenant.NewSQLRegistry(db), nil
	}
	return tenant.NewBoltRegistry(c.Backend.BoltPath)
}

func openManager(c *config.Config) (*tenant.Manager, error) {
	registry, err := openRegistry(c)
	if err != nil {
		return nil, err
	}
	return tenant.NewManager(registry), nil
}
