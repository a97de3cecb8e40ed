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

package plan

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"github.com/kettlebyte/wsdeploy/pkg/item"
)

var (
	createColor = color.New(color.FgGreen)
	updateColor = color.New(color.FgYellow)
	deleteColor = color.New(color.FgRed)
	skipColor   = color.New(color.FgHiBlack)
)

// Render writes the plan as an aligned, colored listing.
func Render(w io.Writer, decisions []Decision) {
	counts := map[Action]int{}
	for _, d := range decisions {
		painter := skipColor
		switch d.Action {
		case ActionCreate:
			painter = createColor
		case ActionUpdate:
			painter = updateColor
		case ActionDelete:
			painter = deleteColor
		}
		counts[d.Action]++

		line := fmt.Sprintf("  %-8s %-16s %s", d.Action, d.ItemType, d.ItemName)
		if d.Fingerprint != "" {
			line += "  " + d.Fingerprint[:12]
		}
		if d.Reason != "" {
			line += "  (" + d.Reason + ")"
		}
		painter.Fprintln(w, line)
	}

	fmt.Fprintf(w, "\n%d to create, %d to update, %d to delete, %d skipped\n",
		counts[ActionCreate], counts[ActionUpdate], counts[ActionDelete], counts[ActionSkip])
}

// Fingerprint attaches a content hash to every decision backed by a
// repository item. Hashing is pure reads over already-collected file
// contents, so it fans out across items; this is the only concurrency in
// the tool, and it never touches the API or mutates an item.
func Fingerprint(ctx context.Context, decisions []Decision, repository item.Collection) error {
	group, _ := errgroup.WithContext(ctx)
	group.SetLimit(8)

	var mu sync.Mutex
	for i := range decisions {
		it := repository.Get(decisions[i].ItemType, decisions[i].ItemName)
		if it == nil {
			continue
		}
		i := i
		group.Go(func() error {
			sum := hashItem(it)
			mu.Lock()
			decisions[i].Fingerprint = sum
			mu.Unlock()
			return nil
		})
	}
	return group.Wait()
}

func hashItem(it *item.Item) string {
	digest := sha256.New()
	files := append([]*item.File(nil), it.Files...)
	sort.Slice(files, func(i, j int) bool { return files[i].RelativePath < files[j].RelativePath })
	for _, f := range files {
		digest.Write([]byte(f.RelativePath))
		digest.Write([]byte{0})
		digest.Write(f.Contents)
		digest.Write([]byte{0})
	}
	return hex.EncodeToString(digest.Sum(nil))
}
