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

// Package deploy orchestrates whole-repository runs: publish every in-scope
// item in dependency-safe type order, and optionally delete deployed items
// the repository no longer contains.
package deploy

import (
	"context"
	"regexp"

	"github.com/pterm/pterm"
	"gitlab.com/tozd/go/errors"

	"github.com/kettlebyte/wsdeploy/pkg/itemtype"
	"github.com/kettlebyte/wsdeploy/pkg/workspace"
)

// ErrItemDependency marks an item whose publish needs another repository
// item that is absent.
var ErrItemDependency = errors.New("item dependency error")

// publishers holds type-specific publish flows; types without an entry get
// the generic flow.
var publishers = map[string]func(ctx context.Context, ws *workspace.Workspace) error{
	"Report": publishReports,
}

// PublishAllItems publishes every repository item whose type is in scope.
// Types run in itemtype.PublishOrder and items within a type run in name
// order, sequentially: a created item's guid must be visible to logical-id
// resolution before any item referencing it is rewritten.
func PublishAllItems(ctx context.Context, ws *workspace.Workspace) error {
	for _, itemType := range itemtype.PublishOrder {
		if !ws.InScope(itemType) {
			continue
		}
		publish, ok := publishers[itemType]
		if !ok {
			publish = func(ctx context.Context, ws *workspace.Workspace) error {
				return publishType(ctx, ws, itemType, nil)
			}
		}
		if err := publish(ctx, ws); err != nil {
			return err
		}
	}
	return nil
}

// publishType runs the generic per-item flow for one type.
func publishType(ctx context.Context, ws *workspace.Workspace, itemType string, opts *workspace.PublishOptions) error {
	names := ws.RepositoryItems.Names(itemType)
	if len(names) == 0 {
		return nil
	}
	pterm.Info.Printfln("Publishing %d %s item(s)", len(names), itemType)
	for _, name := range names {
		if err := ws.Publish(ctx, itemType, name, opts); err != nil {
			pterm.Error.Printfln("Failed to publish %s '%s'", itemType, name)
			return err
		}
		pterm.Success.Printfln("Published %s '%s'", itemType, name)
	}
	return nil
}

// UnpublishAllOrphanItems deletes deployed in-scope items that have no
// repository counterpart. Item names matching excludeRegex are kept. Types
// run in reverse publish order so dependents disappear before the items
// they reference. Individual delete failures are logged by the engine and
// do not stop the batch.
func UnpublishAllOrphanItems(ctx context.Context, ws *workspace.Workspace, excludeRegex string) error {
	var exclude *regexp.Regexp
	if excludeRegex != "" {
		// matched from the start of the name, like the publish exclusion
		re, err := regexp.Compile("^(?:" + excludeRegex + ")")
		if err != nil {
			return errors.Errorf("invalid item name exclude regex: %w", err)
		}
		exclude = re
	}

	for i := len(itemtype.PublishOrder) - 1; i >= 0; i-- {
		itemType := itemtype.PublishOrder[i]
		if !ws.InScope(itemType) {
			continue
		}
		for _, name := range ws.DeployedItems.Names(itemType) {
			if ws.RepositoryItems.Get(itemType, name) != nil {
				continue
			}
			if exclude != nil && exclude.MatchString(name) {
				pterm.Debug.Printfln("Keeping %s '%s' (matches exclude regex)", itemType, name)
				continue
			}
			pterm.Warning.Printfln("Removing orphan %s '%s'", itemType, name)
			ws.Unpublish(ctx, itemType, name)
		}
	}
	return nil
}
