package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coderisk/gkg/internal/tenant"
	"github.com/coderisk/gkg/internal/types"
)

var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Manage tenants and their isolation policy",
}

var tenantPolicyFlag string

var tenantCreateCmd = &cobra.Command{
	Use:   "create <tenant-id>",
	Short: "Register a new tenant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		policy := tenant.Policy(tenantPolicyFlag)
		switch policy {
		case tenant.PropertyScoped, tenant.LabelNamespaced, tenant.DedicatedNamespace:
		default:
			return usageError("unknown isolation policy %q", tenantPolicyFlag)
		}

		mgr, err := openManager(cfg)
		if err != nil {
			return err
		}
		if err := mgr.Create(context.Background(), types.TenantID(args[0]), policy); err != nil {
			return err
		}
		fmt.Printf("tenant %q created (policy=%s)\n", args[0], policy)
		return nil
	},
}

var tenantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered tenants",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager(cfg)
		if err != nil {
			return err
		}
		records, err := mgr.List(context.Background())
		if err != nil {
			return err
		}
		for _, rec := range records {
			fmt.Printf("%s\t%s\n", rec.ID, rec.Policy)
		}
		return nil
	},
}

var tenantDescribeCmd = &cobra.Command{
	Use:   "describe <tenant-id>",
	Short: "Show a tenant's isolation policy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager(cfg)
		if err != nil {
			return err
		}
		rec, err := mgr.Describe(context.Background(), types.TenantID(args[0]))
		if err != nil {
			return err
		}
		fmt.Printf("id:     %s\npolicy: %s\n", rec.ID, rec.Policy)
		return nil
	},
}

var tenantDeleteForce bool

var tenantDeleteCmd = &cobra.Command{
	Use:   "delete <tenant-id>",
	Short: "Remove a tenant's registry entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager(cfg)
		if err != nil {
			return err
		}
		if err := mgr.Delete(context.Background(), types.TenantID(args[0]), tenantDeleteForce); err != nil {
			return err
		}
		fmt.Printf("tenant %q deleted\n", args[0])
		return nil
	},
}

func init() {
	tenantCreateCmd.Flags().StringVar(&tenantPolicyFlag, "policy", string(tenant.PropertyScoped),
		"isolation policy: property_scoped, label_namespaced, or dedicated_namespace")
	tenantDeleteCmd.Flags().BoolVar(&tenantDeleteForce, "force", false,
		"only logged; the registry entry is removed either way and no backend data is checked or removed")

	tenantCmd.AddCommand(tenantCreateCmd, tenantListCmd, tenantDescribeCmd, tenantDeleteCmd)
}
