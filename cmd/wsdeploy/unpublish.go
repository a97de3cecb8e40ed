package main

import (
	"github.com/spf13/cobra"

	"github.com/kettlebyte/wsdeploy/pkg/deploy"
)

func newUnpublishCmd() *cobra.Command {
	var excludeRegex string

	cmd := &cobra.Command{
		Use:   "unpublish",
		Short: "Delete deployed items that are no longer in the repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ws, cfg, err := newWorkspace(ctx)
			if err != nil {
				return err
			}

			if excludeRegex == "" {
				excludeRegex = cfg.UnpublishExcludeRegex
			}
			return deploy.UnpublishAllOrphanItems(ctx, ws, excludeRegex)
		},
	}

	cmd.Flags().StringVar(&excludeRegex, "exclude", "",
		"regex of item names to keep (overrides unpublish_exclude_regex)")
	return cmd
}
