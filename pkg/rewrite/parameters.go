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
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/kettlebyte/wsdeploy/pkg/param"
)

// Parameters substitutes values from the environment parameter table. Two
// sub-schemas are handled independently: variable-library merges for
// VariableLibrary items, and generic find/replace for everything.
type Parameters struct{}

func (Parameters) Name() string { return "parameters" }

func (p Parameters) Apply(ctx context.Context, content string, rc *Context) (string, error) {
	if rc.Parameters.IsEmpty() {
		return content, nil
	}

	var err error
	if rc.Item.Type == "VariableLibrary" && len(rc.Parameters.VariableLibraries) > 0 {
		content, err = p.applyVariableLibraries(content, rc)
		if err != nil {
			return "", err
		}
	}

	return p.applyFindReplace(ctx, content, rc), nil
}

// applyVariableLibraries merges per-environment values into the library's
// variables.json and valueSets files. The merge is update-in-place guarded
// by the entry's name field, and limited to a small attribute allowlist, so
// unrelated attributes of each entry are preserved.
func (Parameters) applyVariableLibraries(content string, rc *Context) (string, error) {
	fileName := rc.File.Name()
	inValueSets := false
	for _, segment := range strings.Split(rc.File.RelativePath, "/") {
		if segment == "valueSets" {
			inValueSets = true
		}
	}
	if fileName != "variables.json" && !inValueSets {
		return content, nil
	}

	for _, byEnv := range rc.Parameters.VariableLibraries {
		overrides, ok := byEnv[rc.Environment]
		if !ok {
			continue
		}
		for _, override := range overrides {
			switch {
			case fileName == "variables.json" && override.LibraryName == rc.Item.Name:
				merged, err := mergeJSONList(content, "variables", override.Variables, []string{"value", "note"})
				if err != nil {
					return "", err
				}
				content = merged
			case inValueSets:
				for _, set := range override.AlternateSets {
					if !strings.Contains(fileName, set.SetName) {
						continue
					}
					merged, err := mergeJSONList(content, "variableOverrides", set.Variables, []string{"value"})
					if err != nil {
						return "", err
					}
					content = merged
				}
			}
		}
	}
	return content, nil
}

func mergeJSONList(content, listKey string, replacements []map[string]any, keysToUpdate []string) (string, error) {
	var document map[string]any
	if err := json.Unmarshal([]byte(content), &document); err != nil {
		return "", errors.Errorf("decoding JSON for variable merge: %w", err)
	}
	entries, _ := document[listKey].([]any)
	param.ReplaceKeyValue(entries, replacements, "name", keysToUpdate)

	raw, err := json.Marshal(document)
	if err != nil {
		return "", errors.Errorf("encoding JSON after variable merge: %w", err)
	}
	return string(raw), nil
}

// applyFindReplace handles both find_replace layouts. A replacement fires
// only when the token is present, the target environment has a value, and
// the rule's scope (current layout only) matches this item and file.
func (Parameters) applyFindReplace(ctx context.Context, content string, rc *Context) string {
	logger := zerolog.Ctx(ctx)

	for _, rule := range rc.Parameters.FindReplace {
		replacement, ok := rule.ReplaceValue[rc.Environment]
		if !ok || !strings.Contains(content, rule.FindValue) {
			continue
		}
		if !rule.Matches(rc.Item.Type, rc.Item.Name, rc.RelFilePath()) {
			continue
		}
		content = strings.ReplaceAll(content, rule.FindValue, replacement)
		logger.Debug().
			Str("find_value", rule.FindValue).
			Str("item", rc.Item.Name).
			Str("item_type", rc.Item.Type).
			Msg("applied find/replace rule")
	}

	for token, byEnv := range rc.Parameters.LegacyFindReplace {
		replacement, ok := byEnv[rc.Environment]
		if !ok || !strings.Contains(content, token) {
			continue
		}
		content = strings.ReplaceAll(content, token, replacement)
		logger.Debug().
			Str("find_value", token).
			Str("item", rc.Item.Name).
			Str("item_type", rc.Item.Type).
			Msg("applied legacy find/replace entry")
	}

	return content
}
