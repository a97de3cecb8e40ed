package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/oauth2"

	"github.com/kettlebyte/wsdeploy/pkg/config"
	"github.com/kettlebyte/wsdeploy/pkg/endpoint"
	"github.com/kettlebyte/wsdeploy/pkg/workspace"
)

var (
	// Flags
	configFile string
	debug      bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "wsdeploy",
		Short:        "Deploy a repository of workspace item definitions to a live workspace",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", ".wsdeploy.yaml", "config file path")
	cmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")

	cmd.AddCommand(newPublishCmd())
	cmd.AddCommand(newUnpublishCmd())
	cmd.AddCommand(newPlanCmd())
	cmd.AddCommand(newValidateCmd())
	return cmd
}

// setupLogging configures zerolog based on flags
func setupLogging() {
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log
}

// newWorkspace loads the config and builds a fully refreshed workspace.
func newWorkspace(ctx context.Context) (*workspace.Workspace, *config.Config, error) {
	cfg, err := config.Load(ctx, configFile)
	if err != nil {
		return nil, nil, errors.Errorf("loading config: %w", err)
	}

	token := os.Getenv(cfg.TokenEnv)
	if token == "" {
		return nil, nil, errors.Errorf("%s environment variable not set", cfg.TokenEnv)
	}
	tokens := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})

	ws, err := workspace.New(ctx, workspace.Options{
		WorkspaceID:                 cfg.WorkspaceID,
		RepositoryDir:               cfg.RepositoryDir,
		ItemTypesInScope:            cfg.ItemTypesInScope,
		Environment:                 cfg.Environment,
		Endpoint:                    endpoint.New(tokens),
		APIRoot:                     cfg.APIRoot,
		IgnoreGlobs:                 cfg.IgnoreGlobs,
		PublishItemNameExcludeRegex: cfg.PublishExcludeRegex,
		ParameterFileName:           cfg.ParameterFileName,
		EnableEnvVarReplacement:     cfg.EnableEnvVarReplacement,
	})
	if err != nil {
		return nil, nil, err
	}
	return ws, cfg, nil
}
