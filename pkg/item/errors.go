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

package item

import "gitlab.com/tozd/go/errors"

// ErrParsing marks malformed or incomplete item metadata, and content
// references that cannot be resolved (a logical id pointing at an item with
// no deployed guid). It is fatal to the run: a half-understood item makes
// the reconciliation outcome undefined.
var ErrParsing = errors.New("parsing error")
