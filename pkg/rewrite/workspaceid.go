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

package rewrite

import (
	"context"
	"regexp"
	"strings"
)

// PlaceholderWorkspaceID is the neutral workspace id content is authored
// against; it is resolved to the target workspace at publish time.
const PlaceholderWorkspaceID = "00000000-0000-0000-0000-000000000000"

// workspaceIDRef recognizes workspace-id reference attributes in JSON-ish
// content. Group 2 is the referenced id.
var workspaceIDRef = regexp.MustCompile(`"(workspaceId|defaultLakehouseWorkspaceId)"\s*:\s*"([0-9a-fA-F-]{36})"`)

// WorkspaceIDs rewrites placeholder workspace-id references to the target
// workspace id. Only the all-zero placeholder inside a recognized reference
// is touched; a concrete foreign workspace id is a deliberate cross-workspace
// reference and is left alone.
type WorkspaceIDs struct{}

func (WorkspaceIDs) Name() string { return "workspace-ids" }

func (WorkspaceIDs) Apply(_ context.Context, content string, rc *Context) (string, error) {
	rewritten := workspaceIDRef.ReplaceAllStringFunc(content, func(match string) string {
		groups := workspaceIDRef.FindStringSubmatch(match)
		if groups[2] != PlaceholderWorkspaceID {
			return match
		}
		return strings.Replace(match, PlaceholderWorkspaceID, rc.WorkspaceID, 1)
	})
	return rewritten, nil
}
