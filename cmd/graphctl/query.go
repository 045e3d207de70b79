package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coderisk/gkg/internal/temporal"
	"github.com/coderisk/gkg/internal/types"
)

var (
	queryTenant string
	queryLabels []string
	queryLimit  int
	queryAsOf   string
	queryTxAsAt string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Find nodes by label, optionally as of a valid-time or transaction-time instant",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if queryTenant == "" {
			return usageError("--tenant is required")
		}
		if len(queryLabels) == 0 {
			return usageError("--label is required (repeatable)")
		}

		ctx := context.Background()
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}

		q := types.FindNodes(queryLabels, nil, queryLimit)
		if queryAsOf != "" {
			t, err := temporal.ParseUTC(queryAsOf)
			if err != nil {
				return usageError("invalid --as-of: %v", err)
			}
			q = types.AsOf(q, t)
		}
		if queryTxAsAt != "" {
			t, err := temporal.ParseUTC(queryTxAsAt)
			if err != nil {
				return usageError("invalid --tx-as-at: %v", err)
			}
			if queryAsOf != "" {
				q = types.Bitemporal(*q.Inner, *q.ValidTime, t)
			} else {
				q = types.AsAt(q, t)
			}
		}

		paths, err := store.Query(ctx, types.TenantID(queryTenant), q)
		if err != nil {
			return err
		}

		for _, p := range paths {
			labels := make([]string, len(p.Nodes))
			for i, n := range p.Nodes {
				labels[i] = fmt.Sprintf("%s(%s)", n.Label, n.IDAlias)
			}
			fmt.Println(strings.Join(labels, " -> "))
		}
		fmt.Printf("%d result(s)\n", len(paths))
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryTenant, "tenant", "", "tenant to query")
	queryCmd.Flags().StringSliceVar(&queryLabels, "label", nil, "node label to match (repeatable)")
	queryCmd.Flags().IntVar(&queryLimit, "limit", 100, "maximum results")
	queryCmd.Flags().StringVar(&queryAsOf, "as-of", "", "RFC3339 valid-time instant")
	queryCmd.Flags().StringVar(&queryTxAsAt, "tx-as-at", "", "RFC3339 transaction-time instant")
}
