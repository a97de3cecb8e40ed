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

// Package itemtype is the table of per-item-type publishing behavior. The
// remote API is not uniform across types: some types carry an uploadable
// definition, some are metadata-only shells, and some need a longer retry
// budget. All of that lives here as data rather than as conditionals
// scattered through the publish engine.
package itemtype

import "sort"

// Capability describes how one item type publishes.
type Capability struct {
	// SupportsDefinition is false for shell-only types, whose remote
	// representation has metadata but no uploadable definition
	SupportsDefinition bool
	// MaxRetries is the retry ceiling passed to the endpoint per call
	MaxRetries int
	// RequiresCreationPayload marks types that take a type-specific payload
	// on first create instead of a file-based definition
	RequiresCreationPayload bool
}

// DefaultMaxRetries applies to any type without an override.
const DefaultMaxRetries = 5

var capabilities = map[string]Capability{
	"Lakehouse":    {SupportsDefinition: false, MaxRetries: DefaultMaxRetries, RequiresCreationPayload: true},
	"MLExperiment": {SupportsDefinition: false, MaxRetries: DefaultMaxRetries},
	"MLModel":      {SupportsDefinition: false, MaxRetries: DefaultMaxRetries},
	"Warehouse":    {SupportsDefinition: false, MaxRetries: DefaultMaxRetries},
	"SQLDatabase":  {SupportsDefinition: false, MaxRetries: DefaultMaxRetries},

	// Environment publishes take longer to settle server-side
	"Environment": {SupportsDefinition: true, MaxRetries: 10},
	"Notebook":    {SupportsDefinition: true, MaxRetries: 10},
}

// PublishOrder lists known types in dependency-safe publish order: types
// that others commonly reference by logical id come first, so their guids
// exist by the time referencing items are rewritten.
var PublishOrder = []string{
	"VariableLibrary",
	"Warehouse",
	"Lakehouse",
	"SQLDatabase",
	"Environment",
	"Notebook",
	"DataPipeline",
	"Dataflow",
	"SemanticModel",
	"Report",
	"Eventhouse",
	"KQLDatabase",
	"KQLQueryset",
	"Eventstream",
	"MLExperiment",
	"MLModel",
	"Reflex",
}

// For returns the capability record for an item type. Unknown types get the
// full-definition default, which keeps the engine open-ended over type tags.
func For(itemType string) Capability {
	if c, ok := capabilities[itemType]; ok {
		return c
	}
	return Capability{SupportsDefinition: true, MaxRetries: DefaultMaxRetries}
}

// Known reports whether the item type is one this tool knows how to deploy.
func Known(itemType string) bool {
	for _, t := range PublishOrder {
		if t == itemType {
			return true
		}
	}
	return false
}

// KnownTypes returns the deployable type tags in sorted order.
func KnownTypes() []string {
	types := append([]string(nil), PublishOrder...)
	sort.Strings(types)
	return types
}
