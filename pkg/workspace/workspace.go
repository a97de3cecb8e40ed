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

// Package workspace is the reconciliation core: it snapshots the repository
// and the deployed workspace into two keyed collections, correlates them by
// (type, name), and drives idempotent create/update/delete calls against
// the item API.
package workspace

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/kettlebyte/wsdeploy/pkg/endpoint"
	"github.com/kettlebyte/wsdeploy/pkg/item"
	"github.com/kettlebyte/wsdeploy/pkg/itemtype"
	"github.com/kettlebyte/wsdeploy/pkg/param"
	"github.com/kettlebyte/wsdeploy/pkg/rewrite"
)

// DefaultAPIRoot is the production API root; override it via Options for
// sovereign clouds or test servers.
const DefaultAPIRoot = "https://api.fabric.microsoft.com"

var guidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}(-[0-9a-fA-F]{4}){3}-[0-9a-fA-F]{12}$`)

// Workspace owns the two per-run snapshots and publishes repository items
// into the target workspace. All mutation happens on one goroutine: the
// scanner populates RepositoryItems, and the create path of Publish is the
// only writer of an item's guid after that.
type Workspace struct {
	// WorkspaceID is the target workspace
	WorkspaceID string
	// RepositoryDir is the local directory items are deployed from
	RepositoryDir string
	// Environment selects values from the parameter table; empty means no
	// environment-specific substitution
	Environment string
	// ItemTypesInScope bounds which item types this run touches
	ItemTypesInScope []string
	// BaseAPIURL is the workspace-scoped API base
	BaseAPIURL string
	// PublishItemNameExcludeRegex, when set, short-circuits publishing of
	// any item whose name matches
	PublishItemNameExcludeRegex string

	// RepositoryItems and DeployedItems are rebuilt from scratch by every
	// Refresh; they are never incrementally patched
	RepositoryItems item.Collection
	DeployedItems   item.Collection

	// Parameters is the loaded environment parameter table
	Parameters *param.Table

	endpoint    endpoint.Invoker
	pipeline    *rewrite.Pipeline
	ignoreGlobs []string
}

// Options configures New.
type Options struct {
	// WorkspaceID of the target workspace (required, guid)
	WorkspaceID string
	// RepositoryDir holding the item folders (required)
	RepositoryDir string
	// ItemTypesInScope to deploy (required, non-empty)
	ItemTypesInScope []string
	// Environment key for parameterization
	Environment string
	// Endpoint performs the API calls (required)
	Endpoint endpoint.Invoker
	// APIRoot defaults to DefaultAPIRoot
	APIRoot string
	// IgnoreGlobs are doublestar patterns excluded from item file sets
	IgnoreGlobs []string
	// PublishItemNameExcludeRegex skips matching item names at publish time
	PublishItemNameExcludeRegex string
	// ParameterFileName overrides param.DefaultFileName
	ParameterFileName string
	// EnableEnvVarReplacement turns on $ENV: substitution in the parameter file
	EnableEnvVarReplacement bool
}

// New validates the options, loads the parameter table, and takes the
// initial deployed + repository snapshots. An invalid parameter file is
// fatal here, before any item is touched.
func New(ctx context.Context, opts Options) (*Workspace, error) {
	if !guidPattern.MatchString(opts.WorkspaceID) {
		return nil, errors.Errorf("workspace id %q is not a valid guid", opts.WorkspaceID)
	}
	info, err := os.Stat(opts.RepositoryDir)
	if err != nil {
		return nil, errors.Errorf("repository directory %q: %w", opts.RepositoryDir, err)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("repository directory %q is not a directory", opts.RepositoryDir)
	}
	if len(opts.ItemTypesInScope) == 0 {
		return nil, errors.New("at least one item type must be in scope")
	}
	for _, itemType := range opts.ItemTypesInScope {
		if !itemtype.Known(itemType) {
			return nil, errors.Errorf("unknown item type %q in scope", itemType)
		}
	}
	if opts.Endpoint == nil {
		return nil, errors.New("endpoint is required")
	}

	apiRoot := opts.APIRoot
	if apiRoot == "" {
		apiRoot = DefaultAPIRoot
	}

	ws := &Workspace{
		WorkspaceID:                 opts.WorkspaceID,
		RepositoryDir:               opts.RepositoryDir,
		Environment:                 opts.Environment,
		ItemTypesInScope:            opts.ItemTypesInScope,
		BaseAPIURL:                  fmt.Sprintf("%s/v1/workspaces/%s", apiRoot, opts.WorkspaceID),
		PublishItemNameExcludeRegex: opts.PublishItemNameExcludeRegex,
		endpoint:                    opts.Endpoint,
		pipeline:                    rewrite.Default(),
		ignoreGlobs:                 opts.IgnoreGlobs,
	}

	table, err := param.Load(ctx, ws.RepositoryDir, param.Options{
		FileName:                opts.ParameterFileName,
		Environment:             ws.Environment,
		ItemTypesInScope:        ws.ItemTypesInScope,
		EnableEnvVarReplacement: opts.EnableEnvVarReplacement,
	})
	if err != nil {
		return nil, err
	}
	ws.Parameters = table

	if err := ws.Refresh(ctx); err != nil {
		return nil, err
	}
	return ws, nil
}

// Refresh rebuilds both snapshots. The deployed snapshot is taken first so
// the scanner can pre-populate guids for already-deployed items. Always
// recompute full state rather than track deltas: reconciliation runs are
// infrequent, and O(items) work buys freedom from staleness bugs.
func (ws *Workspace) Refresh(ctx context.Context) error {
	if err := ws.refreshDeployedItems(ctx); err != nil {
		return err
	}
	return ws.refreshRepositoryItems(ctx)
}

// InScope reports whether the item type participates in this run.
func (ws *Workspace) InScope(itemType string) bool {
	for _, t := range ws.ItemTypesInScope {
		if t == itemType {
			return true
		}
	}
	return false
}

func (ws *Workspace) logger(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}
