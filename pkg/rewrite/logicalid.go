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
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/kettlebyte/wsdeploy/pkg/item"
)

// LogicalIDs replaces every repository item's logical id occurring in the
// content with that item's deployed guid. Referencing an item that has no
// guid yet is fatal: the caller must publish referenced items before
// referencing items within the same run.
type LogicalIDs struct{}

func (LogicalIDs) Name() string { return "logical-ids" }

func (LogicalIDs) Apply(_ context.Context, content string, rc *Context) (string, error) {
	for _, byName := range rc.Repository {
		for _, it := range byName {
			if it.LogicalID == "" || !strings.Contains(content, it.LogicalID) {
				continue
			}
			if it.GUID == "" {
				return "", errors.Errorf("%w: cannot replace logical id %q, referenced %s %q is not yet deployed",
					item.ErrParsing, it.LogicalID, it.Type, it.Name)
			}
			content = strings.ReplaceAll(content, it.LogicalID, it.GUID)
		}
	}
	return content, nil
}
