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

// Package rewrite is the content pipeline applied to every text file before
// upload: logical ids become deployed guids, environment parameters are
// substituted, and the placeholder workspace id is resolved to the target.
// The stages run in exactly that order — a find/replace token may only
// exist after logical-id resolution, and the workspace-id stage must not
// see ids the parameter table is still responsible for.
package rewrite

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/kettlebyte/wsdeploy/pkg/item"
	"github.com/kettlebyte/wsdeploy/pkg/param"
)

// Context carries everything a transform may branch on. Transforms read it;
// only the engine mutates the collections behind it.
type Context struct {
	// Environment is the target environment key into the parameter table
	Environment string
	// WorkspaceID is the target workspace id the placeholder resolves to
	WorkspaceID string
	// RepositoryDir anchors repository-relative paths for rule scoping
	RepositoryDir string
	// Repository is the scanned repository item collection
	Repository item.Collection
	// Parameters is the loaded parameter table, possibly empty
	Parameters *param.Table
	// Item is the item whose file is being rewritten
	Item *item.Item
	// File is the file being rewritten
	File *item.File
}

// RelFilePath returns the file's path relative to the repository directory,
// slash-separated. Scope predicates in the parameter table match against it.
func (rc *Context) RelFilePath() string {
	rel, err := filepath.Rel(rc.RepositoryDir, rc.File.AbsPath)
	if err != nil {
		return filepath.ToSlash(rc.File.AbsPath)
	}
	return filepath.ToSlash(rel)
}

// Transform is one pure content rewrite stage.
type Transform interface {
	Name() string
	Apply(ctx context.Context, content string, rc *Context) (string, error)
}

// Pipeline applies transforms in a fixed order.
type Pipeline struct {
	transforms []Transform
}

// NewPipeline builds a pipeline over the given stages, applied in order.
func NewPipeline(transforms ...Transform) *Pipeline {
	return &Pipeline{transforms: transforms}
}

// Default is the standard three-stage publish pipeline.
func Default() *Pipeline {
	return NewPipeline(LogicalIDs{}, Parameters{}, WorkspaceIDs{})
}

// Run threads content through every stage. Binary files and the metadata
// marker are the caller's responsibility to keep out.
func (p *Pipeline) Run(ctx context.Context, content string, rc *Context) (string, error) {
	logger := zerolog.Ctx(ctx)
	for _, transform := range p.transforms {
		rewritten, err := transform.Apply(ctx, content, rc)
		if err != nil {
			return "", errors.Errorf("%s: %s %q (%s): %w",
				transform.Name(), rc.Item.Type, rc.Item.Name, rc.File.RelativePath, err)
		}
		if rewritten != content {
			logger.Debug().
				Str("transform", transform.Name()).
				Str("file", rc.File.RelativePath).
				Msg("content rewritten")
		}
		content = rewritten
	}
	return content, nil
}
