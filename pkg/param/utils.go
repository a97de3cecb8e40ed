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

package param

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// StringList accepts either a single YAML scalar or a sequence of scalars,
// matching how rule scope fields may be written.
type StringList []string

func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var value string
		if err := node.Decode(&value); err != nil {
			return err
		}
		*s = StringList{value}
		return nil
	case yaml.SequenceNode:
		var values []string
		if err := node.Decode(&values); err != nil {
			return err
		}
		*s = StringList(values)
		return nil
	default:
		return errors.New("expected a string or a list of strings")
	}
}

// StructureKind classifies a find_replace node's layout.
type StructureKind int

const (
	StructureAbsent StructureKind = iota
	StructureList
	StructureLegacyMap
	StructureInvalid
)

// Structure determines which parameter layout a node uses: the current form
// is a sequence of rule mappings, the deprecated form maps find tokens
// directly to replacement mappings.
func Structure(node *yaml.Node) StructureKind {
	switch node.Kind {
	case 0:
		// the key never appeared: the decoder leaves the node zero-valued
		return StructureAbsent
	case yaml.AliasNode:
		return StructureInvalid
	case yaml.SequenceNode:
		return StructureList
	case yaml.MappingNode:
		return StructureLegacyMap
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return StructureAbsent
		}
		return StructureInvalid
	default:
		return StructureInvalid
	}
}

// Matches reports whether the rule's optional scope accepts the given item
// and file. A rule with no scope fields applies universally. Scope paths are
// compared against the file's repository-relative path; doublestar globs
// are accepted so one rule can cover e.g. every valueSets file.
func (r Rule) Matches(itemType, itemName, relPath string) bool {
	if len(r.ItemType) == 0 && len(r.ItemName) == 0 && len(r.FilePath) == 0 {
		return true
	}
	return matchValue(r.ItemType, itemType) &&
		matchValue(r.ItemName, itemName) &&
		matchPath(r.FilePath, relPath)
}

func matchValue(scope StringList, value string) bool {
	if len(scope) == 0 {
		return true
	}
	for _, s := range scope {
		if s == value {
			return true
		}
	}
	return false
}

func matchPath(scope StringList, relPath string) bool {
	if len(scope) == 0 {
		return true
	}
	relPath = NormalizePath(relPath)
	for _, s := range scope {
		pattern := NormalizePath(s)
		if pattern == relPath {
			return true
		}
		if matched, err := doublestar.Match(pattern, relPath); err == nil && matched {
			return true
		}
	}
	return false
}

// NormalizePath makes a scope path comparable to a repository-relative file
// path: slash-separated, no leading separators.
func NormalizePath(p string) string {
	return strings.TrimLeft(filepath.ToSlash(p), "/")
}

// ReplaceKeyValue merges replacement entries into a decoded JSON list of
// objects. An entry is updated only when its keyCheck value matches a
// replacement's, and only the keys in keysToUpdate are touched, so unrelated
// attributes of each entry survive the merge.
func ReplaceKeyValue(entries []any, replacements []map[string]any, keyCheck string, keysToUpdate []string) {
	for _, entry := range entries {
		object, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		for _, replacement := range replacements {
			if object[keyCheck] != replacement[keyCheck] {
				continue
			}
			for _, key := range keysToUpdate {
				if value, ok := replacement[key]; ok {
					object[key] = value
				}
			}
		}
	}
}
