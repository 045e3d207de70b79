package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/coderisk/gkg/internal/graph"
	"github.com/coderisk/gkg/internal/temporal"
	"github.com/coderisk/gkg/internal/types"
)

var (
	ingestNodesPath string
	ingestEdgesPath string
	ingestTenant    string
)

// ingestCmd loads nodes and relationships from tabular (CSV) sources
// directly into the configured backend, for callers that already have
// structured data rather than free text for an LLM connector to extract
// from. Node rows are id_alias,label,<prop columns...>; edge rows are
// from_alias,to_alias,kind,valid_from,valid_to,<prop columns...> with
// valid_to blank meaning still open.
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load nodes and relationships from CSV files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if ingestTenant == "" {
			return usageError("--tenant is required")
		}
		if ingestNodesPath == "" && ingestEdgesPath == "" {
			return usageError("at least one of --nodes or --edges is required")
		}

		ctx := context.Background()
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		tenantID := types.TenantID(ingestTenant)

		nodeCount := 0
		if ingestNodesPath != "" {
			nodeCount, err = ingestNodes(ctx, store, tenantID, ingestNodesPath)
			if err != nil {
				return err
			}
		}

		edgeCount := 0
		if ingestEdgesPath != "" {
			edgeCount, err = ingestEdges(ctx, store, tenantID, ingestEdgesPath)
			if err != nil {
				return err
			}
		}

		fmt.Printf("ingested %d nodes, %d relationships\n", nodeCount, edgeCount)
		return nil
	},
}

func ingestNodes(ctx context.Context, store graph.Store, tenantID types.TenantID, path string) (int, error) {
	rows, header, err := readCSV(path)
	if err != nil {
		return 0, err
	}
	aliasIdx, labelIdx := indexOf(header, "id_alias"), indexOf(header, "label")
	if aliasIdx < 0 || labelIdx < 0 {
		return 0, usageError("%s must have id_alias and label columns", path)
	}

	count := 0
	for _, row := range rows {
		node := types.Node{
			IDAlias: row[aliasIdx],
			Label:   row[labelIdx],
			Props:   rowProps(header, row, aliasIdx, labelIdx),
		}
		if _, err := store.UpsertNode(ctx, tenantID, node); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func ingestEdges(ctx context.Context, store graph.Store, tenantID types.TenantID, path string) (int, error) {
	rows, header, err := readCSV(path)
	if err != nil {
		return 0, err
	}
	fromIdx, toIdx, kindIdx := indexOf(header, "from_alias"), indexOf(header, "to_alias"), indexOf(header, "kind")
	validFromIdx, validToIdx := indexOf(header, "valid_from"), indexOf(header, "valid_to")
	if fromIdx < 0 || toIdx < 0 || kindIdx < 0 {
		return 0, usageError("%s must have from_alias, to_alias, and kind columns", path)
	}

	count := 0
	for _, row := range rows {
		fromNode, err := store.GetNodeByAlias(ctx, tenantID, row[fromIdx])
		if err != nil {
			return count, err
		}
		if fromNode == nil {
			return count, usageError("row %d: unknown alias %q", count+1, row[fromIdx])
		}
		toNode, err := store.GetNodeByAlias(ctx, tenantID, row[toIdx])
		if err != nil {
			return count, err
		}
		if toNode == nil {
			return count, usageError("row %d: unknown alias %q", count+1, row[toIdx])
		}

		validFrom := temporal.Now()
		if validFromIdx >= 0 && row[validFromIdx] != "" {
			validFrom, err = temporal.ParseUTC(row[validFromIdx])
			if err != nil {
				return count, usageError("row %d: invalid valid_from: %v", count+1, err)
			}
		}
		var validTo *time.Time
		if validToIdx >= 0 && row[validToIdx] != "" {
			t, err := temporal.ParseUTC(row[validToIdx])
			if err != nil {
				return count, usageError("row %d: invalid valid_to: %v", count+1, err)
			}
			validTo = &t
		}

		edge := types.TimeEdge{
			FromNode:  fromNode.SystemID,
			ToNode:    toNode.SystemID,
			Kind:      row[kindIdx],
			Props:     rowProps(header, row, fromIdx, toIdx, kindIdx, validFromIdx, validToIdx),
			ValidFrom: validFrom,
			ValidTo:   validTo,
		}
		if _, err := store.UpsertEdge(ctx, tenantID, edge); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func readCSV(path string) (rows [][]string, header []string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, usageError("cannot open %s: %v", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, usageError("cannot parse %s: %v", path, err)
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	return records[1:], records[0], nil
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

func rowProps(header, row []string, skip ...int) map[string]interface{} {
	skipSet := make(map[int]bool, len(skip))
	for _, i := range skip {
		skipSet[i] = true
	}
	props := make(map[string]interface{})
	for i, h := range header {
		if skipSet[i] || i >= len(row) || row[i] == "" {
			continue
		}
		props[h] = row[i]
	}
	return props
}

func init() {
	ingestCmd.Flags().StringVar(&ingestNodesPath, "nodes", "", "path to a node CSV file")
	ingestCmd.Flags().StringVar(&ingestEdgesPath, "edges", "", "path to a relationship CSV file")
	ingestCmd.Flags().StringVar(&ingestTenant, "tenant", "", "tenant to ingest into")
}
