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
	"encoding/json"
	"os"
	"path/filepath"

	"gitlab.com/tozd/go/errors"

	"github.com/kettlebyte/wsdeploy/pkg/item"
)

// itemMetadata is the decoded metadata marker file.
type itemMetadata struct {
	Metadata struct {
		Type        string `json:"type"`
		DisplayName string `json:"displayName"`
		Description string `json:"description"`
	} `json:"metadata"`
	Config struct {
		LogicalID string `json:"logicalId"`
	} `json:"config"`
}

// refreshRepositoryItems rebuilds the repository snapshot by walking the
// repository directory. A directory is an item root iff it directly
// contains the metadata marker file. Runs after refreshDeployedItems so
// each scanned item's guid can be pre-populated from the deployed side.
func (ws *Workspace) refreshRepositoryItems(ctx context.Context) error {
	logger := ws.logger(ctx)
	ws.RepositoryItems = item.Collection{}

	return filepath.WalkDir(ws.RepositoryDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return errors.Errorf("walking %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}

		markerPath := filepath.Join(path, item.MetadataFile)
		if _, err := os.Stat(markerPath); err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return errors.Errorf("checking %s: %w", markerPath, err)
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return errors.Errorf("reading item directory %s: %w", path, err)
		}
		if len(entries) <= 1 {
			// nothing but the marker: a legitimate outcome of gitignore or
			// partial checkouts, not a process-fatal state
			logger.Warn().Str("directory", d.Name()).Msg("item directory is empty, skipping")
			return filepath.SkipDir
		}

		scanned, err := ws.scanItem(markerPath, path)
		if err != nil {
			return err
		}
		ws.RepositoryItems.Add(scanned)
		// keep descending: an item folder nested inside another item
		// folder is still its own item
		return nil
	})
}

// scanItem parses one item folder. A marker that cannot be read or parsed
// is immediately fatal for the run: a malformed item folder makes the whole
// reconciliation outcome undefined.
func (ws *Workspace) scanItem(markerPath, dir string) (*item.Item, error) {
	raw, err := os.ReadFile(markerPath)
	if err != nil {
		return nil, errors.Errorf("%w: reading %s: %w", item.ErrParsing, markerPath, err)
	}

	var metadata itemMetadata
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return nil, errors.Errorf("%w: decoding JSON in %s: %w", item.ErrParsing, markerPath, err)
	}
	if metadata.Metadata.Type == "" || metadata.Metadata.DisplayName == "" {
		return nil, errors.Errorf("%w: displayName and type are required in %s", item.ErrParsing, markerPath)
	}
	if metadata.Config.LogicalID == "" {
		return nil, errors.Errorf("%w: config.logicalId is required in %s", item.ErrParsing, markerPath)
	}

	scanned := &item.Item{
		Type:        metadata.Metadata.Type,
		Name:        metadata.Metadata.DisplayName,
		Description: metadata.Metadata.Description,
		LogicalID:   metadata.Config.LogicalID,
		Path:        dir,
		// already-deployed items start with their remote guid; everything
		// else keeps the empty sentinel until its create call
		GUID: ws.DeployedItems.GUID(metadata.Metadata.Type, metadata.Metadata.DisplayName),
	}
	if err := scanned.CollectFiles(ws.ignoreGlobs); err != nil {
		return nil, err
	}
	return scanned, nil
}
