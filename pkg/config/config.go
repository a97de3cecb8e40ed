// Copyright 2025 kettlebyte
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the deployment configuration consumed by the CLI.
package config

import (
	"context"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// Config describes one deployment target.
type Config struct {
	// WorkspaceID is the target workspace guid
	WorkspaceID string `json:"workspace_id" yaml:"workspace_id" hcl:"workspace_id"`
	// RepositoryDir is the directory holding item folders (and the
	// parameter file, if any)
	RepositoryDir string `json:"repository_directory" yaml:"repository_directory" hcl:"repository_directory"`
	// ItemTypesInScope lists the item types this deployment manages
	ItemTypesInScope []string `json:"item_types_in_scope" yaml:"item_types_in_scope" hcl:"item_types_in_scope"`
	// Environment selects parameter values; may be empty
	Environment string `json:"environment,omitempty" yaml:"environment,omitempty" hcl:"environment,optional"`
	// APIRoot overrides the production API root
	APIRoot string `json:"api_root,omitempty" yaml:"api_root,omitempty" hcl:"api_root,optional"`
	// PublishExcludeRegex skips matching item names during publish
	PublishExcludeRegex string `json:"publish_exclude_regex,omitempty" yaml:"publish_exclude_regex,omitempty" hcl:"publish_exclude_regex,optional"`
	// UnpublishOrphans enables deletion of deployed items missing from the
	// repository after a publish run
	UnpublishOrphans bool `json:"unpublish_orphans,omitempty" yaml:"unpublish_orphans,omitempty" hcl:"unpublish_orphans,optional"`
	// UnpublishExcludeRegex keeps matching orphans deployed
	UnpublishExcludeRegex string `json:"unpublish_exclude_regex,omitempty" yaml:"unpublish_exclude_regex,omitempty" hcl:"unpublish_exclude_regex,optional"`
	// IgnoreGlobs are doublestar patterns excluded from item file sets
	IgnoreGlobs []string `json:"ignore_globs,omitempty" yaml:"ignore_globs,omitempty" hcl:"ignore_globs,optional"`
	// ParameterFileName overrides parameter.yml
	ParameterFileName string `json:"parameter_file_name,omitempty" yaml:"parameter_file_name,omitempty" hcl:"parameter_file_name,optional"`
	// EnableEnvVarReplacement substitutes $ENV: tokens in the parameter file
	EnableEnvVarReplacement bool `json:"enable_env_var_replacement,omitempty" yaml:"enable_env_var_replacement,omitempty" hcl:"enable_env_var_replacement,optional"`
	// TokenEnv names the environment variable carrying the bearer token
	TokenEnv string `json:"token_env,omitempty" yaml:"token_env,omitempty" hcl:"token_env,optional"`
}

// DefaultTokenEnv is consulted when token_env is not set.
const DefaultTokenEnv = "WSDEPLOY_TOKEN"

// Validate checks required fields and applies defaults.
func (c *Config) Validate(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)

	if c.WorkspaceID == "" {
		return errors.New("workspace_id is required")
	}
	if c.RepositoryDir == "" {
		return errors.New("repository_directory is required")
	}
	if len(c.ItemTypesInScope) == 0 {
		return errors.New("item_types_in_scope must list at least one item type")
	}
	if c.TokenEnv == "" {
		c.TokenEnv = DefaultTokenEnv
	}
	if c.Environment == "" {
		logger.Debug().Msg("no environment set, parameter substitution limited to universal rules")
	}
	return nil
}
