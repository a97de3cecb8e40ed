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

// Package param loads and validates the environment parameter file that
// drives content substitution at publish time. Two find_replace layouts are
// supported: the current list-of-rules form and the deprecated map form.
package param

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is where the parameter table lives, relative to the
// repository directory.
const DefaultFileName = "parameter.yml"

// ErrParameterFile marks a parameter file that failed validation. It is
// fatal at workspace initialization; no items are processed.
var ErrParameterFile = errors.New("invalid parameter file")

// Rule is one find/replace entry in the current parameter layout. The
// optional scope fields restrict which item/file the rule applies to; all
// absent means the rule applies universally.
type Rule struct {
	FindValue    string            `yaml:"find_value"`
	ReplaceValue map[string]string `yaml:"replace_value"`
	ItemType     StringList        `yaml:"item_type"`
	ItemName     StringList        `yaml:"item_name"`
	FilePath     StringList        `yaml:"file_path"`
}

// LibraryOverride carries per-environment variable values for one
// VariableLibrary item.
type LibraryOverride struct {
	LibraryName   string             `yaml:"library_name"`
	Variables     []map[string]any   `yaml:"variables"`
	AlternateSets []ValueSetOverride `yaml:"alternate_sets"`
}

// ValueSetOverride targets one value set file under the library's
// valueSets folder.
type ValueSetOverride struct {
	SetName   string           `yaml:"set_name"`
	Variables []map[string]any `yaml:"variables"`
}

// Table is the loaded parameter file. Exactly one of FindReplace and
// LegacyFindReplace is populated, depending on the file's layout.
type Table struct {
	FindReplace       []Rule
	LegacyFindReplace map[string]map[string]string
	VariableLibraries []map[string][]LibraryOverride
}

// IsEmpty reports whether the table carries no substitutions at all.
func (t *Table) IsEmpty() bool {
	return t == nil || (len(t.FindReplace) == 0 && len(t.LegacyFindReplace) == 0 && len(t.VariableLibraries) == 0)
}

// Options configures Load.
type Options struct {
	// FileName defaults to DefaultFileName
	FileName string
	// Environment is the target environment the table will be applied for
	Environment string
	// ItemTypesInScope bounds the item_type scope values rules may use
	ItemTypesInScope []string
	// EnableEnvVarReplacement substitutes $ENV:NAME tokens from the process
	// environment before parsing
	EnableEnvVarReplacement bool
}

// Load reads and validates the parameter file in repositoryDir. A missing
// file is not an error: deployments without parameterization get an empty
// table and a warning. Anything else that fails validation is fatal, so a
// broken table never silently publishes unsubstituted content.
func Load(ctx context.Context, repositoryDir string, opts Options) (*Table, error) {
	logger := zerolog.Ctx(ctx)
	path := parameterFilePath(repositoryDir, opts.FileName)

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn().Str("path", path).Msg("no parameter file found, proceeding without substitutions")
			return &Table{}, nil
		}
		return nil, errors.Errorf("%w: reading %s: %w", ErrParameterFile, path, err)
	}

	if opts.EnableEnvVarReplacement {
		content = []byte(replaceEnvVariables(logger, string(content)))
	}

	if err := checkContent(content); err != nil {
		return nil, err
	}

	table, err := decode(content)
	if err != nil {
		return nil, err
	}

	validator := &Validator{
		RepositoryDir:    repositoryDir,
		Environment:      opts.Environment,
		ItemTypesInScope: opts.ItemTypesInScope,
	}
	if err := validator.Validate(ctx, table); err != nil {
		return nil, err
	}

	logger.Info().Str("path", path).Msg("parameter file validation passed")
	return table, nil
}

var envVarToken = regexp.MustCompile(`\$ENV:([A-Za-z_][A-Za-z0-9_]*)`)

// replaceEnvVariables substitutes $ENV:NAME tokens with the value of the
// NAME environment variable. Unset variables leave the token in place, which
// validation will then reject as a missing value.
func replaceEnvVariables(logger *zerolog.Logger, content string) string {
	return envVarToken.ReplaceAllStringFunc(content, func(token string) string {
		name := token[len("$ENV:"):]
		value, ok := os.LookupEnv(name)
		if !ok {
			logger.Warn().Str("variable", name).Msg("environment variable referenced in parameter file is not set")
			return token
		}
		logger.Debug().Str("variable", name).Msg("replaced environment variable in parameter file")
		return value
	})
}

// fileModel is the raw decoded shape; find_replace is deferred to a node so
// both the list and the deprecated map layout can be handled.
type fileModel struct {
	FindReplace       yaml.Node                      `yaml:"find_replace"`
	VariableLibraries []map[string][]LibraryOverride `yaml:"variable_libraries"`
}

func decode(content []byte) (*Table, error) {
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return nil, errors.Errorf("%w: parsing YAML: %w", ErrParameterFile, err)
	}

	for key := range raw {
		if key != "find_replace" && key != "variable_libraries" {
			return nil, errors.Errorf("%w: unknown parameter %q", ErrParameterFile, key)
		}
	}

	var model fileModel
	if err := yaml.Unmarshal(content, &model); err != nil {
		return nil, errors.Errorf("%w: parsing YAML: %w", ErrParameterFile, err)
	}

	table := &Table{VariableLibraries: model.VariableLibraries}

	switch Structure(&model.FindReplace) {
	case StructureAbsent:
	case StructureList:
		if err := model.FindReplace.Decode(&table.FindReplace); err != nil {
			return nil, errors.Errorf("%w: decoding find_replace: %w", ErrParameterFile, err)
		}
	case StructureLegacyMap:
		if err := model.FindReplace.Decode(&table.LegacyFindReplace); err != nil {
			return nil, errors.Errorf("%w: decoding legacy find_replace: %w", ErrParameterFile, err)
		}
	default:
		return nil, errors.Errorf("%w: find_replace must be a list of rules", ErrParameterFile)
	}

	return table, nil
}

// checkContent ports plain-text sanity checks that catch the usual ways a
// hand-edited YAML file goes wrong before the parser produces a confusing
// error: invalid encoding and unbalanced quotes.
func checkContent(content []byte) error {
	if !utf8.Valid(content) {
		return errors.Errorf("%w: file is not valid UTF-8", ErrParameterFile)
	}
	for _, quote := range []byte{'"', '\''} {
		count := 0
		for _, b := range content {
			if b == quote {
				count++
			}
		}
		if count%2 != 0 {
			return errors.Errorf("%w: unclosed %q quote", ErrParameterFile, string(quote))
		}
	}
	return nil
}

func parameterFilePath(repositoryDir, fileName string) string {
	if fileName == "" {
		fileName = DefaultFileName
	}
	return filepath.Join(repositoryDir, fileName)
}
