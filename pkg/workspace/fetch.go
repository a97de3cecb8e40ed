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

	"gitlab.com/tozd/go/errors"

	"github.com/kettlebyte/wsdeploy/pkg/endpoint"
	"github.com/kettlebyte/wsdeploy/pkg/item"
)

// refreshDeployedItems rebuilds the deployed snapshot from a full listing
// of the workspace. No pagination or filtering: reconciliation correctness
// depends on this being one consistent point-in-time view.
func (ws *Workspace) refreshDeployedItems(ctx context.Context) error {
	resp, err := ws.endpoint.Invoke(ctx, endpoint.Request{
		Method: http.MethodGet,
		URL:    ws.BaseAPIURL + "/items",
	})
	if err != nil {
		return errors.Errorf("listing workspace items: %w", err)
	}

	entries, ok := resp.Body["value"].([]any)
	if !ok {
		return errors.Errorf("unexpected item listing response: missing value array")
	}

	ws.DeployedItems = item.Collection{}
	for _, entry := range entries {
		fields, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		deployed := &item.Item{
			Type: stringField(fields, "type"),
			Name: stringField(fields, "displayName"),
			// deployed-side items have no logical id; the remote has no
			// concept of it
			Description: stringField(fields, "description"),
			GUID:        stringField(fields, "id"),
		}
		ws.DeployedItems.Add(deployed)
	}

	ws.logger(ctx).Debug().
		Int("count", len(entries)).
		Msg("refreshed deployed items")
	return nil
}

func stringField(fields map[string]any, key string) string {
	value, _ := fields[key].(string)
	return value
}
