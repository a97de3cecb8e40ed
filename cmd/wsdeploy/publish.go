package main

import (
	"github.com/spf13/cobra"

	"github.com/kettlebyte/wsdeploy/pkg/deploy"
)

func newPublishCmd() *cobra.Command {
	var unpublishOrphans bool

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish all in-scope repository items to the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			ws, cfg, err := newWorkspace(ctx)
			if err != nil {
				return err
			}

			if err := deploy.PublishAllItems(ctx, ws); err != nil {
				return err
			}

			if unpublishOrphans || cfg.UnpublishOrphans {
				return deploy.UnpublishAllOrphanItems(ctx, ws, cfg.UnpublishExcludeRegex)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&unpublishOrphans, "unpublish-orphans", false,
		"delete deployed items that are no longer in the repository")
	return cmd
}
