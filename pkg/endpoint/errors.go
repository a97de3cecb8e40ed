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

package endpoint

import (
	"time"

	"gitlab.com/tozd/go/errors"
)

// transientError marks failures worth retrying (network errors, 5xx).
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// throttledError marks a 429, carrying the server's Retry-After hint.
type throttledError struct {
	retryAfter time.Duration
	err        error
}

func (e *throttledError) Error() string { return e.err.Error() }
func (e *throttledError) Unwrap() error { return e.err }

func retryable(err error) bool {
	var transient *transientError
	if errors.As(err, &transient) {
		return true
	}
	var throttled *throttledError
	return errors.As(err, &throttled)
}
