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

package workspace

import (
	"context"
	"net/http"
	"regexp"

	"gitlab.com/tozd/go/errors"

	"github.com/kettlebyte/wsdeploy/pkg/endpoint"
	"github.com/kettlebyte/wsdeploy/pkg/item"
	"github.com/kettlebyte/wsdeploy/pkg/itemtype"
	"github.com/kettlebyte/wsdeploy/pkg/rewrite"
)

// ProcessFileFunc lets a type-specific publisher rewrite a file before the
// standard pipeline runs (e.g. report dataset-reference fixups).
type ProcessFileFunc func(ctx context.Context, ws *Workspace, it *item.Item, f *item.File) ([]byte, error)

// PublishOptions tunes one Publish call.
type PublishOptions struct {
	// ExcludePath is a regex on file relative paths; matching files are
	// left out of the definition
	ExcludePath string
	// ProcessFile runs before the rewrite pipeline on each text file
	ProcessFile ProcessFileFunc
	// CreationPayload replaces the file-based definition on first create
	// for types that take one; mutually exclusive with definition parts
	CreationPayload map[string]any
	// SkipPublishLogging defers the user-facing confirmation when the
	// caller performs further steps after the API call
	SkipPublishLogging bool
}

// Publish creates or updates one repository item in the target workspace.
// The decision is derived entirely from the item's guid: empty means
// create, otherwise update (definition for full types, metadata for
// shell-only types). After a create, the server-assigned guid is stored on
// the in-memory item so logical-id resolution sees it for the rest of the
// run.
func (ws *Workspace) Publish(ctx context.Context, itemType, itemName string, opts *PublishOptions) error {
	logger := ws.logger(ctx)
	if opts == nil {
		opts = &PublishOptions{}
	}

	if ws.PublishItemNameExcludeRegex != "" {
		exclude, err := anchoredRegexp(ws.PublishItemNameExcludeRegex)
		if err != nil {
			return errors.Errorf("invalid item name exclude regex: %w", err)
		}
		if exclude.MatchString(itemName) {
			logger.Info().
				Str("item_type", itemType).
				Str("item", itemName).
				Msg("skipping publish due to exclusion regex")
			return nil
		}
	}

	it := ws.RepositoryItems.Get(itemType, itemName)
	if it == nil {
		return errors.Errorf("%s %q not found in repository", itemType, itemName)
	}

	capability := itemtype.For(itemType)
	metadataBody := map[string]any{
		"displayName": itemName,
		"type":        itemType,
	}

	var definitionBody map[string]any
	var combinedBody map[string]any
	switch {
	case opts.CreationPayload != nil:
		combinedBody = map[string]any{
			"displayName":     itemName,
			"type":            itemType,
			"creationPayload": opts.CreationPayload,
		}
	case !capability.SupportsDefinition:
		combinedBody = metadataBody
	default:
		parts, err := ws.buildDefinitionParts(ctx, it, opts)
		if err != nil {
			return err
		}
		definitionBody = map[string]any{
			"definition": map[string]any{"parts": parts},
		}
		combinedBody = map[string]any{
			"displayName": itemName,
			"type":        itemType,
			"definition":  definitionBody["definition"],
		}
	}

	logger.Info().
		Str("item_type", itemType).
		Str("item", itemName).
		Msg("publishing")

	switch {
	case it.GUID == "":
		resp, err := ws.endpoint.Invoke(ctx, endpoint.Request{
			Method:     http.MethodPost,
			URL:        ws.BaseAPIURL + "/items",
			Body:       combinedBody,
			MaxRetries: capability.MaxRetries,
		})
		if err != nil {
			return errors.Errorf("creating %s %q: %w", itemType, itemName, err)
		}
		guid, _ := resp.Body["id"].(string)
		if guid == "" {
			return errors.Errorf("creating %s %q: response carries no item id", itemType, itemName)
		}
		it.GUID = guid

	case capability.SupportsDefinition:
		_, err := ws.endpoint.Invoke(ctx, endpoint.Request{
			Method:     http.MethodPost,
			URL:        ws.BaseAPIURL + "/items/" + it.GUID + "/updateDefinition?updateMetadata=True",
			Body:       definitionBody,
			MaxRetries: capability.MaxRetries,
		})
		if err != nil {
			return errors.Errorf("updating definition of %s %q: %w", itemType, itemName, err)
		}

	default:
		// the metadata-update endpoint rejects the type field
		delete(metadataBody, "type")
		_, err := ws.endpoint.Invoke(ctx, endpoint.Request{
			Method:     http.MethodPatch,
			URL:        ws.BaseAPIURL + "/items/" + it.GUID,
			Body:       metadataBody,
			MaxRetries: capability.MaxRetries,
		})
		if err != nil {
			return errors.Errorf("updating metadata of %s %q: %w", itemType, itemName, err)
		}
	}

	if !opts.SkipPublishLogging {
		logger.Info().
			Str("item_type", itemType).
			Str("item", itemName).
			Str("guid", it.GUID).
			Msg("published")
	}
	return nil
}

// anchoredRegexp compiles an exclusion pattern to match from the start of
// its input. Exclusion patterns are written against that contract: "tmp"
// excludes "tmp-notebook" but not "my-tmp-notebook".
func anchoredRegexp(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("^(?:" + pattern + ")")
}

// buildDefinitionParts assembles the upload parts for a full-definition
// publish, running each text file through the optional custom processor and
// the three-stage rewrite pipeline. Binary files and the metadata marker
// pass through untouched.
func (ws *Workspace) buildDefinitionParts(ctx context.Context, it *item.Item, opts *PublishOptions) ([]item.Part, error) {
	var excludeRe *regexp.Regexp
	if opts.ExcludePath != "" {
		re, err := anchoredRegexp(opts.ExcludePath)
		if err != nil {
			return nil, errors.Errorf("invalid exclude path regex: %w", err)
		}
		excludeRe = re
	}

	parts := make([]item.Part, 0, len(it.Files))
	for _, file := range it.Files {
		if excludeRe != nil && excludeRe.MatchString(file.RelativePath) {
			continue
		}
		if file.IsText() {
			if opts.ProcessFile != nil {
				contents, err := opts.ProcessFile(ctx, ws, it, file)
				if err != nil {
					return nil, err
				}
				file.Contents = contents
			}
			if !file.IsMetadata() {
				rewritten, err := ws.pipeline.Run(ctx, string(file.Contents), &rewrite.Context{
					Environment:   ws.Environment,
					WorkspaceID:   ws.WorkspaceID,
					RepositoryDir: ws.RepositoryDir,
					Repository:    ws.RepositoryItems,
					Parameters:    ws.Parameters,
					Item:          it,
					File:          file,
				})
				if err != nil {
					return nil, err
				}
				file.Contents = []byte(rewritten)
			}
		}
		parts = append(parts, file.Part())
	}
	return parts, nil
}

// Unpublish deletes one deployed item. Failures are logged and swallowed:
// deletions are best-effort cleanup, lower-stakes than a partial publish,
// and must not abort the rest of the batch.
func (ws *Workspace) Unpublish(ctx context.Context, itemType, itemName string) {
	logger := ws.logger(ctx)

	// an unpublish target must already exist remotely, so only the
	// deployed snapshot is consulted
	guid := ws.DeployedItems.GUID(itemType, itemName)
	if guid == "" {
		logger.Warn().
			Str("item_type", itemType).
			Str("item", itemName).
			Msg("cannot unpublish: item is not deployed")
		return
	}

	logger.Info().
		Str("item_type", itemType).
		Str("item", itemName).
		Msg("unpublishing")

	_, err := ws.endpoint.Invoke(ctx, endpoint.Request{
		Method: http.MethodDelete,
		URL:    ws.BaseAPIURL + "/items/" + guid,
	})
	if err != nil {
		logger.Warn().
			Err(err).
			Str("item_type", itemType).
			Str("item", itemName).
			Msg("failed to unpublish")
		return
	}

	logger.Info().
		Str("item_type", itemType).
		Str("item", itemName).
		Msg("unpublished")
}
