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

import "path/filepath"

// Side selects which snapshot a lookup searches.
type Side string

const (
	// SideRepository resolves by logical id
	SideRepository Side = "repository"
	// SideDeployed resolves by guid
	SideDeployed Side = "deployed"
)

// ConvertIDToName returns the display name of the item whose identifier
// matches genericID: logical id on the repository side, guid on the
// deployed side. Returns "" when the reference does not resolve in the
// given scope; interpreting that is the caller's business.
func (ws *Workspace) ConvertIDToName(itemType, genericID string, side Side) string {
	collection := ws.DeployedItems
	if side == SideRepository {
		collection = ws.RepositoryItems
	}
	for _, it := range collection[itemType] {
		id := it.GUID
		if side == SideRepository {
			id = it.LogicalID
		}
		if id == genericID {
			return it.Name
		}
	}
	return ""
}

// ConvertPathToID returns the logical id of the repository item rooted at
// the given folder, or "" if no item lives there.
func (ws *Workspace) ConvertPathToID(itemType, path string) string {
	cleaned := filepath.Clean(path)
	for _, it := range ws.RepositoryItems[itemType] {
		if filepath.Clean(it.Path) == cleaned {
			return it.LogicalID
		}
	}
	return ""
}
