package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coderisk/gkg/internal/types"
)

var (
	exportTenant string
	exportLabels []string
	exportOut    string
)

// exportDocument is the graph-exchange shape written by "export": every
// matched node once, keyed by system_id, plus the edges connecting them.
// JSON is the one exchange format this CLI writes; a caller wanting
// GraphML/GEXF/Cypher output runs export then converts downstream.
type exportDocument struct {
	Nodes []types.Node     `json:"nodes"`
	Edges []types.TimeEdge `json:"edges"`
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a tenant's current graph to a JSON exchange document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportTenant == "" {
			return usageError("--tenant is required")
		}

		ctx := context.Background()
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}

		q := types.FindNodes(exportLabels, nil, 0)
		paths, err := store.Query(ctx, types.TenantID(exportTenant), q)
		if err != nil {
			return err
		}

		doc := exportDocument{}
		seenNodes := make(map[string]bool)
		seenEdges := make(map[string]bool)
		for _, p := range paths {
			for _, n := range p.Nodes {
				if !seenNodes[n.SystemID] {
					seenNodes[n.SystemID] = true
					doc.Nodes = append(doc.Nodes, n)
				}
			}
			for _, step := range p.Steps {
				if !seenEdges[step.Edge.SystemID] {
					seenEdges[step.Edge.SystemID] = true
					doc.Edges = append(doc.Edges, step.Edge)
				}
			}
		}

		relPaths, err := store.Query(ctx, types.TenantID(exportTenant), types.FindRelationships("", "", nil, nil, 0))
		if err != nil {
			return err
		}
		for _, p := range relPaths {
			for _, step := range p.Steps {
				e := step.Edge
				if seenNodes[e.FromNode] && seenNodes[e.ToNode] && !seenEdges[e.SystemID] {
					seenEdges[e.SystemID] = true
					doc.Edges = append(doc.Edges, e)
				}
			}
		}

		out := os.Stdout
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return usageError("cannot create %s: %v", exportOut, err)
			}
			defer f.Close()
			out = f
		}

		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(doc); err != nil {
			return err
		}
		if exportOut != "" {
			fmt.Printf("exported %d nodes, %d edges to %s\n", len(doc.Nodes), len(doc.Edges), exportOut)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportTenant, "tenant", "", "tenant to export")
	exportCmd.Flags().StringSliceVar(&exportLabels, "label", nil, "restrict to these node labels (default: all)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default: stdout)")
}
