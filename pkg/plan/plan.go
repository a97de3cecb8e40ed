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

// Package plan computes what a publish run would do without calling the
// API: per (type, name) key, one of create, update, delete, or skip,
// derived purely from the two snapshots.
package plan

import (
	"regexp"
	"sort"

	"gitlab.com/tozd/go/errors"

	"github.com/kettlebyte/wsdeploy/pkg/item"
)

// Action is the reconciliation outcome for one key.
type Action int

const (
	ActionSkip Action = iota
	ActionCreate
	ActionUpdate
	ActionDelete
)

// String returns the action's display name.
func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return "skip"
	}
}

// Decision is the planned outcome for one item key.
type Decision struct {
	ItemType string
	ItemName string
	Action   Action
	// Reason is set for skips
	Reason string
	// Fingerprint is the repository content hash, when computed
	Fingerprint string
}

// Options bounds a plan the same way a publish run is bounded.
type Options struct {
	// TypesInScope limits which item types are planned
	TypesInScope []string
	// ExcludeNameRegex marks matching repository items as skipped
	ExcludeNameRegex string
}

// Compute derives the plan from the two snapshots. It is a pure function of
// its inputs: no filesystem, no network. Items present on both sides plan
// as update even when content is unchanged, because the engine has no
// content diffing and republishing is idempotent.
func Compute(repository, deployed item.Collection, opts Options) ([]Decision, error) {
	var exclude *regexp.Regexp
	if opts.ExcludeNameRegex != "" {
		// matched from the start of the name, like the publish exclusion
		re, err := regexp.Compile("^(?:" + opts.ExcludeNameRegex + ")")
		if err != nil {
			return nil, errors.Errorf("invalid exclude regex: %w", err)
		}
		exclude = re
	}

	inScope := func(itemType string) bool {
		if len(opts.TypesInScope) == 0 {
			return true
		}
		for _, t := range opts.TypesInScope {
			if t == itemType {
				return true
			}
		}
		return false
	}

	var decisions []Decision
	for itemType, byName := range repository {
		if !inScope(itemType) {
			continue
		}
		for name := range byName {
			decision := Decision{ItemType: itemType, ItemName: name}
			switch {
			case exclude != nil && exclude.MatchString(name):
				decision.Action = ActionSkip
				decision.Reason = "matches exclude regex"
			case deployed.GUID(itemType, name) == "":
				decision.Action = ActionCreate
			default:
				decision.Action = ActionUpdate
			}
			decisions = append(decisions, decision)
		}
	}

	for itemType, byName := range deployed {
		if !inScope(itemType) {
			continue
		}
		for name := range byName {
			if repository.Get(itemType, name) != nil {
				continue
			}
			decisions = append(decisions, Decision{
				ItemType: itemType,
				ItemName: name,
				Action:   ActionDelete,
			})
		}
	}

	sort.Slice(decisions, func(i, j int) bool {
		if decisions[i].ItemType != decisions[j].ItemType {
			return decisions[i].ItemType < decisions[j].ItemType
		}
		return decisions[i].ItemName < decisions[j].ItemName
	})
	return decisions, nil
}
