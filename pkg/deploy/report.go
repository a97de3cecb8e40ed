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

package deploy

import (
	"context"
	"encoding/json"
	"path/filepath"

	"gitlab.com/tozd/go/errors"

	"github.com/kettlebyte/wsdeploy/pkg/item"
	"github.com/kettlebyte/wsdeploy/pkg/workspace"
)

// publishReports publishes Report items. Report folders carry a local .pbi
// cache that never uploads, and a definition.pbir whose dataset reference
// must be rewritten from a repository-relative path to a live connection.
func publishReports(ctx context.Context, ws *workspace.Workspace) error {
	return publishType(ctx, ws, "Report", &workspace.PublishOptions{
		ExcludePath: `.*\.pbi[/\\].*`,
		ProcessFile: processReportFile,
	})
}

// processReportFile rewrites a byPath dataset reference into a byConnection
// reference. The connection is written with the semantic model's logical id;
// the logical-id stage of the pipeline then resolves it to the deployed
// guid, which also enforces that the model publishes before the report.
func processReportFile(ctx context.Context, ws *workspace.Workspace, it *item.Item, f *item.File) ([]byte, error) {
	if f.Name() != "definition.pbir" {
		return f.Contents, nil
	}

	var definition map[string]any
	if err := json.Unmarshal(f.Contents, &definition); err != nil {
		return nil, errors.Errorf("decoding %s: %w", f.RelativePath, err)
	}

	datasetReference, _ := definition["datasetReference"].(map[string]any)
	byPath, _ := datasetReference["byPath"].(map[string]any)
	modelRelPath, _ := byPath["path"].(string)
	if modelRelPath == "" {
		return f.Contents, nil
	}

	modelPath := filepath.Join(it.Path, filepath.FromSlash(modelRelPath))
	modelID := ws.ConvertPathToID("SemanticModel", modelPath)
	if modelID == "" {
		return nil, errors.Errorf(
			"%w: semantic model at %q not found in the repository; a report with a relative dataset path cannot deploy without its model",
			ErrItemDependency, modelRelPath)
	}

	definition["datasetReference"] = map[string]any{
		"byConnection": map[string]any{
			"connectionString":          nil,
			"pbiServiceModelId":         nil,
			"pbiModelVirtualServerName": "sobe_wowvirtualserver",
			"pbiModelDatabaseName":      modelID,
			"name":                      "EntityDataSource",
			"connectionType":            "pbiServiceXmlaStyleLive",
		},
	}

	rewritten, err := json.MarshalIndent(definition, "", "    ")
	if err != nil {
		return nil, errors.Errorf("encoding %s: %w", f.RelativePath, err)
	}
	return rewritten, nil
}
