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

// Package item defines the in-memory model of a deployable workspace item:
// its metadata, its files, and the keyed collections the reconciliation
// engine correlates repository and deployed state with.
package item

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

// MetadataFile is the marker file that makes a directory an item root.
const MetadataFile = ".platform"

// Item represents one deployable workspace unit (e.g. a Notebook).
type Item struct {
	// Type is the item type tag (e.g. "Notebook", "Environment")
	Type string
	// Name is the display name, unique per type within one workspace
	Name string
	// Description is optional free text
	Description string
	// GUID is the server-assigned identifier; "" means not yet deployed
	GUID string
	// LogicalID is the repository-assigned stable identifier used for
	// cross-item references in file content; empty for deployed-side items
	LogicalID string
	// Path is the item folder on disk (repository items only)
	Path string
	// Files holds the item folder's payload, ordered by relative path
	Files []*File
}

// CollectFiles walks the item folder and fills in Files. Paths matching one
// of the ignore globs (doublestar syntax, matched against the path relative
// to the item folder) are left out entirely.
func (it *Item) CollectFiles(ignoreGlobs []string) error {
	if it.Path == "" {
		return errors.New("item has no repository path")
	}

	it.Files = nil
	err := filepath.WalkDir(it.Path, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return errors.Errorf("walking %s: %w", path, err)
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(it.Path, path)
		if err != nil {
			return errors.Errorf("relativizing %s: %w", path, err)
		}
		rel = filepath.ToSlash(rel)

		for _, glob := range ignoreGlobs {
			matched, err := doublestar.Match(glob, rel)
			if err != nil {
				return errors.Errorf("matching ignore pattern %q: %w", glob, err)
			}
			if matched {
				return nil
			}
		}

		file, err := LoadFile(path, rel)
		if err != nil {
			return err
		}
		it.Files = append(it.Files, file)
		return nil
	})
	if err != nil {
		return err
	}

	sort.Slice(it.Files, func(i, j int) bool {
		return it.Files[i].RelativePath < it.Files[j].RelativePath
	})
	return nil
}

// Collection keys items by type, then by display name. Both the repository
// and the deployed snapshot use this shape, and the two are correlated by
// that (type, name) key, never by guid or logical id.
type Collection map[string]map[string]*Item

// Add inserts an item, creating the per-type bucket on first use.
func (c Collection) Add(it *Item) {
	if _, ok := c[it.Type]; !ok {
		c[it.Type] = map[string]*Item{}
	}
	c[it.Type][it.Name] = it
}

// Get returns the item for (itemType, name), or nil if absent.
func (c Collection) Get(itemType, name string) *Item {
	return c[itemType][name]
}

// GUID returns the guid for (itemType, name), or "" if the item is absent
// or not yet deployed.
func (c Collection) GUID(itemType, name string) string {
	if it := c.Get(itemType, name); it != nil {
		return it.GUID
	}
	return ""
}

// Names returns the display names of one type's items in sorted order, so
// publish runs are deterministic.
func (c Collection) Names(itemType string) []string {
	names := make([]string, 0, len(c[itemType]))
	for name := range c[itemType] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
