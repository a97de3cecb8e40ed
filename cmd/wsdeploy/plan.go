package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kettlebyte/wsdeploy/pkg/plan"
)

func newPlanCmd() *cobra.Command {
	var fingerprint bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what a publish run would create, update, and delete",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ws, cfg, err := newWorkspace(ctx)
			if err != nil {
				return err
			}

			decisions, err := plan.Compute(ws.RepositoryItems, ws.DeployedItems, plan.Options{
				TypesInScope:     cfg.ItemTypesInScope,
				ExcludeNameRegex: cfg.PublishExcludeRegex,
			})
			if err != nil {
				return err
			}

			if fingerprint {
				if err := plan.Fingerprint(ctx, decisions, ws.RepositoryItems); err != nil {
					return err
				}
			}

			plan.Render(os.Stdout, decisions)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fingerprint, "fingerprint", false,
		"include a content hash per repository item")
	return cmd
}
