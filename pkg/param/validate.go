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
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/kettlebyte/wsdeploy/pkg/item"
)

// Validator checks a decoded Table against the repository it will be
// applied to. Structural problems are fatal; rules that merely will not
// fire for the target environment produce warnings, since the same file is
// shared across environments.
type Validator struct {
	RepositoryDir    string
	Environment      string
	ItemTypesInScope []string
}

// Validate runs all checks. The returned error wraps ErrParameterFile.
func (v *Validator) Validate(ctx context.Context, table *Table) error {
	logger := zerolog.Ctx(ctx)

	for i, rule := range table.FindReplace {
		label := fmt.Sprintf("find_replace rule %d", i+1)
		if err := v.validateRule(ctx, label, rule); err != nil {
			return err
		}
		if v.Environment != "" {
			if _, ok := rule.ReplaceValue[v.Environment]; !ok {
				logger.Warn().
					Str("find_value", rule.FindValue).
					Str("environment", v.Environment).
					Msgf("%s has no replacement for the target environment, replacement will be skipped", label)
			}
		}
	}

	for key, replacements := range table.LegacyFindReplace {
		if len(replacements) == 0 {
			return errors.Errorf("%w: find_replace %q has no replacement values", ErrParameterFile, key)
		}
	}

	for i, byEnv := range table.VariableLibraries {
		for env, overrides := range byEnv {
			for _, override := range overrides {
				if override.LibraryName == "" {
					return errors.Errorf("%w: variable_libraries entry %d (%s): library_name is required", ErrParameterFile, i+1, env)
				}
				if len(override.Variables) == 0 && len(override.AlternateSets) == 0 {
					return errors.Errorf("%w: variable_libraries entry %d (%s): variables are required", ErrParameterFile, i+1, env)
				}
			}
		}
	}

	return nil
}

func (v *Validator) validateRule(ctx context.Context, label string, rule Rule) error {
	logger := zerolog.Ctx(ctx)

	if rule.FindValue == "" {
		return errors.Errorf("%w: %s: find_value is required", ErrParameterFile, label)
	}
	if len(rule.ReplaceValue) == 0 {
		return errors.Errorf("%w: %s: replace_value is required", ErrParameterFile, label)
	}
	for env, value := range rule.ReplaceValue {
		if value == "" {
			return errors.Errorf("%w: %s: replace_value for %q is empty", ErrParameterFile, label, env)
		}
	}

	// Scope values that reference nothing in the repository are warnings,
	// not errors: the rule simply never fires.
	for _, itemType := range rule.ItemType {
		if len(v.ItemTypesInScope) > 0 && !contains(v.ItemTypesInScope, itemType) {
			logger.Warn().Str("item_type", itemType).Msgf("%s scopes an item type outside the deployment scope", label)
		}
	}
	if len(rule.ItemName) > 0 {
		names, err := v.repositoryItemNames()
		if err != nil {
			return err
		}
		for _, itemName := range rule.ItemName {
			if !contains(names, itemName) {
				logger.Warn().Str("item_name", itemName).Msgf("%s scopes an item name not found in the repository", label)
			}
		}
	}
	for _, scopePath := range rule.FilePath {
		if isGlob(scopePath) {
			continue
		}
		full := filepath.Join(v.RepositoryDir, filepath.FromSlash(NormalizePath(scopePath)))
		if _, err := os.Stat(full); err != nil {
			logger.Warn().Str("file_path", scopePath).Msgf("%s scopes a file path not found in the repository", label)
		}
	}

	return nil
}

// repositoryItemNames collects the display names declared by metadata
// marker files under the repository directory. Unreadable markers are left
// for the scanner to report; here they just don't contribute a name.
func (v *Validator) repositoryItemNames() ([]string, error) {
	var names []string
	err := filepath.WalkDir(v.RepositoryDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return errors.Errorf("walking %s: %w", path, err)
		}
		if d.IsDir() || d.Name() != item.MetadataFile {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		var metadata struct {
			Metadata struct {
				DisplayName string `json:"displayName"`
			} `json:"metadata"`
		}
		if err := json.Unmarshal(raw, &metadata); err != nil {
			return nil
		}
		if metadata.Metadata.DisplayName != "" {
			names = append(names, metadata.Metadata.DisplayName)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func isGlob(path string) bool {
	for _, c := range path {
		if c == '*' || c == '?' || c == '[' || c == '{' {
			return true
		}
	}
	return false
}
