package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/kettlebyte/wsdeploy/pkg/config"
	"github.com/kettlebyte/wsdeploy/pkg/param"
)

// validate checks the parameter file without touching the API, for CI
// gates on pull requests.
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the repository's parameter file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(ctx, configFile)
			if err != nil {
				return errors.Errorf("loading config: %w", err)
			}

			table, err := param.Load(ctx, cfg.RepositoryDir, param.Options{
				FileName:                cfg.ParameterFileName,
				Environment:             cfg.Environment,
				ItemTypesInScope:        cfg.ItemTypesInScope,
				EnableEnvVarReplacement: cfg.EnableEnvVarReplacement,
			})
			if err != nil {
				pterm.Error.Println("Parameter file validation failed")
				return err
			}

			if table.IsEmpty() {
				pterm.Warning.Println("No substitutions defined")
				return nil
			}
			pterm.Success.Println("Parameter file is valid")
			return nil
		},
	}
}
