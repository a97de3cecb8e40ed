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

package workspace

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/kettlebyte/wsdeploy/pkg/endpoint"
	"github.com/kettlebyte/wsdeploy/pkg/item"
)

const testWorkspaceID = "aaaaaaaa-1111-2222-3333-444444444444"

// fakeEndpoint serves canned responses for the item API and records every
// request it sees.
type fakeEndpoint struct {
	calls      []endpoint.Request
	deployed   []map[string]any
	nextID     int
	deleteErrs map[string]error
}

func (f *fakeEndpoint) Invoke(_ context.Context, req endpoint.Request) (*endpoint.Response, error) {
	f.calls = append(f.calls, req)

	switch {
	case req.Method == http.MethodGet && strings.HasSuffix(req.URL, "/items"):
		entries := make([]any, 0, len(f.deployed))
		for _, fields := range f.deployed {
			entries = append(entries, map[string]any(fields))
		}
		return &endpoint.Response{Status: http.StatusOK, Body: map[string]any{"value": entries}}, nil

	case req.Method == http.MethodPost && strings.HasSuffix(req.URL, "/items"):
		f.nextID++
		guid := fmt.Sprintf("99999999-0000-0000-0000-%012d", f.nextID)
		return &endpoint.Response{Status: http.StatusCreated, Body: map[string]any{"id": guid}}, nil

	case req.Method == http.MethodDelete:
		if err, ok := f.deleteErrs[req.URL]; ok {
			return nil, err
		}
		return &endpoint.Response{Status: http.StatusOK, Body: map[string]any{}}, nil

	default:
		return &endpoint.Response{Status: http.StatusOK, Body: map[string]any{}}, nil
	}
}

func (f *fakeEndpoint) callsTo(method string) []endpoint.Request {
	var matched []endpoint.Request
	for _, call := range f.calls {
		if call.Method == method {
			matched = append(matched, call)
		}
	}
	return matched
}

// writeItem lays down one item folder with its metadata marker.
func writeItem(t *testing.T, repoDir, itemType, name, logicalID string, files map[string]string) {
	t.Helper()
	dir := filepath.Join(repoDir, name+"."+itemType)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	marker := fmt.Sprintf(`{"metadata": {"type": %q, "displayName": %q}, "config": {"logicalId": %q}}`,
		itemType, name, logicalID)
	require.NoError(t, os.WriteFile(filepath.Join(dir, item.MetadataFile), []byte(marker), 0o644))

	for rel, contents := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	}
}

func newTestWorkspace(t *testing.T, repoDir string, fake *fakeEndpoint, scope ...string) *Workspace {
	t.Helper()
	if len(scope) == 0 {
		scope = []string{"Notebook", "DataPipeline", "Lakehouse", "Warehouse"}
	}
	ws, err := New(context.Background(), Options{
		WorkspaceID:      testWorkspaceID,
		RepositoryDir:    repoDir,
		ItemTypesInScope: scope,
		Environment:      "PPE",
		Endpoint:         fake,
	})
	require.NoError(t, err)
	return ws
}

func decodeParts(t *testing.T, body any) map[string]string {
	t.Helper()
	payload, ok := body.(map[string]any)
	require.True(t, ok, "request body should be a JSON object")
	definition, ok := payload["definition"].(map[string]any)
	require.True(t, ok, "request body should carry a definition")
	parts, ok := definition["parts"].([]item.Part)
	require.True(t, ok, "definition should carry parts")

	decoded := map[string]string{}
	for _, part := range parts {
		raw, err := base64.StdEncoding.DecodeString(part.Payload)
		require.NoError(t, err)
		decoded[part.Path] = string(raw)
	}
	return decoded
}

func TestNewSnapshotsBothSides(t *testing.T) {
	repoDir := t.TempDir()
	writeItem(t, repoDir, "Notebook", "Hello World", "11111111-aaaa-bbbb-cccc-222222222222",
		map[string]string{"notebook-content.py": "print('hi')"})
	writeItem(t, repoDir, "DataPipeline", "Run Hello World", "33333333-aaaa-bbbb-cccc-444444444444",
		map[string]string{"pipeline-content.json": "{}"})

	fake := &fakeEndpoint{deployed: []map[string]any{
		{"type": "Notebook", "displayName": "Hello World", "id": "99999999-aaaa-bbbb-cccc-000000000000"},
		{"type": "Warehouse", "displayName": "Orphan", "id": "88888888-aaaa-bbbb-cccc-000000000000"},
	}}
	ws := newTestWorkspace(t, repoDir, fake)

	require.Len(t, fake.callsTo(http.MethodGet), 1)
	assert.Equal(t, "https://api.fabric.microsoft.com/v1/workspaces/"+testWorkspaceID+"/items",
		fake.calls[0].URL)

	// deployed guid is pre-populated onto the scanned repository item
	assert.Equal(t, "99999999-aaaa-bbbb-cccc-000000000000", ws.RepositoryItems.GUID("Notebook", "Hello World"))
	// the pipeline has never been deployed: empty guid sentinel
	assert.Equal(t, "", ws.RepositoryItems.GUID("DataPipeline", "Run Hello World"))
	// the orphan only exists on the deployed side
	assert.Nil(t, ws.RepositoryItems.Get("Warehouse", "Orphan"))
	assert.NotNil(t, ws.DeployedItems.Get("Warehouse", "Orphan"))
}

func TestRefreshIsIdempotent(t *testing.T) {
	repoDir := t.TempDir()
	writeItem(t, repoDir, "Notebook", "Hello World", "11111111-aaaa-bbbb-cccc-222222222222",
		map[string]string{"notebook-content.py": "print('hi')", "nested/cell.json": "{}"})

	fake := &fakeEndpoint{deployed: []map[string]any{
		{"type": "Notebook", "displayName": "Hello World", "id": "99999999-aaaa-bbbb-cccc-000000000000"},
	}}
	ws := newTestWorkspace(t, repoDir, fake)

	first := ws.RepositoryItems
	require.NoError(t, ws.Refresh(context.Background()))

	require.Len(t, ws.RepositoryItems, len(first))
	before := first.Get("Notebook", "Hello World")
	after := ws.RepositoryItems.Get("Notebook", "Hello World")
	require.NotNil(t, after)
	assert.NotSame(t, before, after, "refresh rebuilds from scratch")
	assert.Equal(t, before.LogicalID, after.LogicalID)
	assert.Equal(t, before.GUID, after.GUID)

	var beforePaths, afterPaths []string
	for _, f := range before.Files {
		beforePaths = append(beforePaths, f.RelativePath)
	}
	for _, f := range after.Files {
		afterPaths = append(afterPaths, f.RelativePath)
	}
	assert.Equal(t, beforePaths, afterPaths)
}

func TestPublishIsIdempotent(t *testing.T) {
	repoDir := t.TempDir()
	writeItem(t, repoDir, "Notebook", "Hello World", "11111111-aaaa-bbbb-cccc-222222222222",
		map[string]string{"notebook-content.py": "print('hi')"})

	fake := &fakeEndpoint{}
	ws := newTestWorkspace(t, repoDir, fake)

	require.NoError(t, ws.Publish(context.Background(), "Notebook", "Hello World", nil))
	require.NoError(t, ws.Publish(context.Background(), "Notebook", "Hello World", nil))

	posts := fake.callsTo(http.MethodPost)
	require.Len(t, posts, 2)
	assert.Equal(t, ws.BaseAPIURL+"/items", posts[0].URL, "first publish creates")
	assert.Equal(t,
		ws.BaseAPIURL+"/items/99999999-0000-0000-0000-000000000001/updateDefinition?updateMetadata=True",
		posts[1].URL, "second publish updates, never creates again")
	assert.Equal(t, "99999999-0000-0000-0000-000000000001", ws.RepositoryItems.GUID("Notebook", "Hello World"),
		"the guid is stable across republish")
}

func TestNewValidatesOptions(t *testing.T) {
	repoDir := t.TempDir()
	fake := &fakeEndpoint{}

	tests := []struct {
		name        string
		opts        Options
		errContains string
	}{
		{
			name: "workspace_id_not_a_guid",
			opts: Options{
				WorkspaceID:      "not-a-guid",
				RepositoryDir:    repoDir,
				ItemTypesInScope: []string{"Notebook"},
				Endpoint:         fake,
			},
			errContains: "not a valid guid",
		},
		{
			name: "missing_repository_directory",
			opts: Options{
				WorkspaceID:      testWorkspaceID,
				RepositoryDir:    filepath.Join(repoDir, "nope"),
				ItemTypesInScope: []string{"Notebook"},
				Endpoint:         fake,
			},
			errContains: "repository directory",
		},
		{
			name: "empty_scope",
			opts: Options{
				WorkspaceID:   testWorkspaceID,
				RepositoryDir: repoDir,
				Endpoint:      fake,
			},
			errContains: "at least one item type",
		},
		{
			name: "unknown_item_type",
			opts: Options{
				WorkspaceID:      testWorkspaceID,
				RepositoryDir:    repoDir,
				ItemTypesInScope: []string{"FluxCapacitor"},
				Endpoint:         fake,
			},
			errContains: "unknown item type",
		},
		{
			name: "missing_endpoint",
			opts: Options{
				WorkspaceID:      testWorkspaceID,
				RepositoryDir:    repoDir,
				ItemTypesInScope: []string{"Notebook"},
			},
			errContains: "endpoint is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestScanRejectsMalformedMarker(t *testing.T) {
	tests := []struct {
		name   string
		marker string
	}{
		{name: "invalid_json", marker: `{"metadata": `},
		{name: "missing_display_name", marker: `{"metadata": {"type": "Notebook"}, "config": {"logicalId": "11111111-aaaa-bbbb-cccc-222222222222"}}`},
		{name: "missing_logical_id", marker: `{"metadata": {"type": "Notebook", "displayName": "nb"}, "config": {}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repoDir := t.TempDir()
			dir := filepath.Join(repoDir, "nb.Notebook")
			require.NoError(t, os.MkdirAll(dir, 0o755))
			require.NoError(t, os.WriteFile(filepath.Join(dir, item.MetadataFile), []byte(tt.marker), 0o644))
			require.NoError(t, os.WriteFile(filepath.Join(dir, "notebook-content.py"), []byte("print('hi')"), 0o644))

			_, err := New(context.Background(), Options{
				WorkspaceID:      testWorkspaceID,
				RepositoryDir:    repoDir,
				ItemTypesInScope: []string{"Notebook"},
				Endpoint:         &fakeEndpoint{},
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, item.ErrParsing)
		})
	}
}

func TestScanSkipsMarkerOnlyDirectory(t *testing.T) {
	repoDir := t.TempDir()
	dir := filepath.Join(repoDir, "nb.Notebook")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	marker := `{"metadata": {"type": "Notebook", "displayName": "nb"}, "config": {"logicalId": "11111111-aaaa-bbbb-cccc-222222222222"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, item.MetadataFile), []byte(marker), 0o644))

	ws := newTestWorkspace(t, repoDir, &fakeEndpoint{})
	assert.Nil(t, ws.RepositoryItems.Get("Notebook", "nb"), "a marker-only folder is skipped, not fatal")
}

func TestScanDiscoversNestedItems(t *testing.T) {
	repoDir := t.TempDir()
	writeItem(t, repoDir, "Notebook", "outer", "11111111-aaaa-bbbb-cccc-222222222222",
		map[string]string{"notebook-content.py": "print('outer')"})
	// an item folder living inside another item folder is still an item
	outerDir := filepath.Join(repoDir, "outer.Notebook")
	writeItem(t, outerDir, "Notebook", "inner", "33333333-aaaa-bbbb-cccc-444444444444",
		map[string]string{"notebook-content.py": "print('inner')"})

	ws := newTestWorkspace(t, repoDir, &fakeEndpoint{})

	require.NotNil(t, ws.RepositoryItems.Get("Notebook", "outer"))
	inner := ws.RepositoryItems.Get("Notebook", "inner")
	require.NotNil(t, inner, "nested item folders are discovered")
	assert.Equal(t, "33333333-aaaa-bbbb-cccc-444444444444", inner.LogicalID)
}

func TestPublishCreatesNewItem(t *testing.T) {
	repoDir := t.TempDir()
	writeItem(t, repoDir, "Notebook", "Hello World", "11111111-aaaa-bbbb-cccc-222222222222",
		map[string]string{"notebook-content.py": "print('hi')"})

	fake := &fakeEndpoint{}
	ws := newTestWorkspace(t, repoDir, fake)

	require.NoError(t, ws.Publish(context.Background(), "Notebook", "Hello World", nil))

	posts := fake.callsTo(http.MethodPost)
	require.Len(t, posts, 1)
	assert.Equal(t, ws.BaseAPIURL+"/items", posts[0].URL)
	assert.Equal(t, 10, posts[0].MaxRetries, "notebook creates retry longer")

	body := posts[0].Body.(map[string]any)
	assert.Equal(t, "Hello World", body["displayName"])
	assert.Equal(t, "Notebook", body["type"])

	parts := decodeParts(t, posts[0].Body)
	assert.Contains(t, parts, item.MetadataFile)
	assert.Equal(t, "print('hi')", parts["notebook-content.py"])

	// the server-assigned guid lands on the in-memory item
	assert.Equal(t, "99999999-0000-0000-0000-000000000001", ws.RepositoryItems.GUID("Notebook", "Hello World"))
}

func TestPublishUpdatesDeployedItem(t *testing.T) {
	repoDir := t.TempDir()
	writeItem(t, repoDir, "Notebook", "Hello World", "11111111-aaaa-bbbb-cccc-222222222222",
		map[string]string{"notebook-content.py": "print('hi')"})

	fake := &fakeEndpoint{deployed: []map[string]any{
		{"type": "Notebook", "displayName": "Hello World", "id": "99999999-aaaa-bbbb-cccc-000000000000"},
	}}
	ws := newTestWorkspace(t, repoDir, fake)

	require.NoError(t, ws.Publish(context.Background(), "Notebook", "Hello World", nil))

	posts := fake.callsTo(http.MethodPost)
	require.Len(t, posts, 1)
	assert.Equal(t,
		ws.BaseAPIURL+"/items/99999999-aaaa-bbbb-cccc-000000000000/updateDefinition?updateMetadata=True",
		posts[0].URL)

	body := posts[0].Body.(map[string]any)
	assert.NotContains(t, body, "displayName", "definition updates carry the definition only")
	assert.Contains(t, body, "definition")
}

func TestPublishShellOnlyItem(t *testing.T) {
	repoDir := t.TempDir()
	writeItem(t, repoDir, "Warehouse", "wh", "11111111-aaaa-bbbb-cccc-222222222222",
		map[string]string{"warehouse.json": "{}"})

	t.Run("create", func(t *testing.T) {
		fake := &fakeEndpoint{}
		ws := newTestWorkspace(t, repoDir, fake)

		require.NoError(t, ws.Publish(context.Background(), "Warehouse", "wh", nil))

		posts := fake.callsTo(http.MethodPost)
		require.Len(t, posts, 1)
		body := posts[0].Body.(map[string]any)
		assert.Equal(t, map[string]any{"displayName": "wh", "type": "Warehouse"}, body,
			"shell-only creates carry metadata and never a definition")
	})

	t.Run("update", func(t *testing.T) {
		fake := &fakeEndpoint{deployed: []map[string]any{
			{"type": "Warehouse", "displayName": "wh", "id": "99999999-aaaa-bbbb-cccc-000000000000"},
		}}
		ws := newTestWorkspace(t, repoDir, fake)

		require.NoError(t, ws.Publish(context.Background(), "Warehouse", "wh", nil))

		assert.Empty(t, fake.callsTo(http.MethodPost), "shell-only updates never touch the definition endpoint")
		patches := fake.callsTo(http.MethodPatch)
		require.Len(t, patches, 1)
		assert.Equal(t, ws.BaseAPIURL+"/items/99999999-aaaa-bbbb-cccc-000000000000", patches[0].URL)
		body := patches[0].Body.(map[string]any)
		assert.NotContains(t, body, "type", "the metadata endpoint rejects the type field")
		assert.Equal(t, "wh", body["displayName"])
	})
}

func TestPublishCreationPayload(t *testing.T) {
	repoDir := t.TempDir()
	writeItem(t, repoDir, "Lakehouse", "lake", "11111111-aaaa-bbbb-cccc-222222222222",
		map[string]string{"lakehouse.metadata.json": "{}"})

	fake := &fakeEndpoint{}
	ws := newTestWorkspace(t, repoDir, fake)

	payload := map[string]any{"enableSchemas": true}
	require.NoError(t, ws.Publish(context.Background(), "Lakehouse", "lake", &PublishOptions{CreationPayload: payload}))

	posts := fake.callsTo(http.MethodPost)
	require.Len(t, posts, 1)
	body := posts[0].Body.(map[string]any)
	assert.Equal(t, payload, body["creationPayload"])
	assert.NotContains(t, body, "definition")
}

func TestPublishResolvesLogicalIDsWithinRun(t *testing.T) {
	// A fresh workspace: first create the notebook, then publish the
	// pipeline that references it by logical id. The pipeline's upload must
	// carry the guid the notebook's create just returned.
	repoDir := t.TempDir()
	notebookLogicalID := "11111111-aaaa-bbbb-cccc-222222222222"
	writeItem(t, repoDir, "Notebook", "Hello World", notebookLogicalID,
		map[string]string{"notebook-content.py": "print('hi')"})
	writeItem(t, repoDir, "DataPipeline", "Run Hello World", "33333333-aaaa-bbbb-cccc-444444444444",
		map[string]string{"pipeline-content.json": fmt.Sprintf(`{"notebookId": %q}`, notebookLogicalID)})

	fake := &fakeEndpoint{}
	ws := newTestWorkspace(t, repoDir, fake)

	require.NoError(t, ws.Publish(context.Background(), "Notebook", "Hello World", nil))
	require.NoError(t, ws.Publish(context.Background(), "DataPipeline", "Run Hello World", nil))

	posts := fake.callsTo(http.MethodPost)
	require.Len(t, posts, 2)
	parts := decodeParts(t, posts[1].Body)
	var reference map[string]string
	require.NoError(t, json.Unmarshal([]byte(parts["pipeline-content.json"]), &reference))
	assert.Equal(t, "99999999-0000-0000-0000-000000000001", reference["notebookId"])
}

func TestPublishUndeployedReferenceFails(t *testing.T) {
	// Publishing the referencing item before the referenced one has a guid
	// is an ordering bug and must fail loudly.
	repoDir := t.TempDir()
	writeItem(t, repoDir, "Notebook", "Hello World", "11111111-aaaa-bbbb-cccc-222222222222",
		map[string]string{"notebook-content.py": "print('hi')"})
	writeItem(t, repoDir, "DataPipeline", "Run Hello World", "33333333-aaaa-bbbb-cccc-444444444444",
		map[string]string{"pipeline-content.json": `{"notebookId": "11111111-aaaa-bbbb-cccc-222222222222"}`})

	ws := newTestWorkspace(t, repoDir, &fakeEndpoint{})

	err := ws.Publish(context.Background(), "DataPipeline", "Run Hello World", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, item.ErrParsing)
	assert.Contains(t, err.Error(), "not yet deployed")
}

func TestPublishExcludeRegexSkips(t *testing.T) {
	repoDir := t.TempDir()
	writeItem(t, repoDir, "Notebook", "scratch-pad", "11111111-aaaa-bbbb-cccc-222222222222",
		map[string]string{"notebook-content.py": "print('hi')"})

	fake := &fakeEndpoint{}
	ws, err := New(context.Background(), Options{
		WorkspaceID:                 testWorkspaceID,
		RepositoryDir:               repoDir,
		ItemTypesInScope:            []string{"Notebook"},
		Endpoint:                    fake,
		PublishItemNameExcludeRegex: "^scratch-.*",
	})
	require.NoError(t, err)

	require.NoError(t, ws.Publish(context.Background(), "Notebook", "scratch-pad", nil))
	assert.Empty(t, fake.callsTo(http.MethodPost), "excluded items make no API calls")
}

func TestPublishExcludeRegexMatchesFromStart(t *testing.T) {
	repoDir := t.TempDir()
	writeItem(t, repoDir, "Notebook", "tmp-notebook", "11111111-aaaa-bbbb-cccc-222222222222",
		map[string]string{"notebook-content.py": "print('hi')"})
	writeItem(t, repoDir, "Notebook", "my-tmp-notebook", "33333333-aaaa-bbbb-cccc-444444444444",
		map[string]string{"notebook-content.py": "print('hi')"})

	fake := &fakeEndpoint{}
	ws, err := New(context.Background(), Options{
		WorkspaceID:                 testWorkspaceID,
		RepositoryDir:               repoDir,
		ItemTypesInScope:            []string{"Notebook"},
		Endpoint:                    fake,
		PublishItemNameExcludeRegex: "tmp",
	})
	require.NoError(t, err)

	require.NoError(t, ws.Publish(context.Background(), "Notebook", "tmp-notebook", nil))
	require.NoError(t, ws.Publish(context.Background(), "Notebook", "my-tmp-notebook", nil))

	posts := fake.callsTo(http.MethodPost)
	require.Len(t, posts, 1, "only the name matching at its start is excluded")
	assert.Equal(t, "my-tmp-notebook", posts[0].Body.(map[string]any)["displayName"])
}

func TestPublishExcludePathOption(t *testing.T) {
	repoDir := t.TempDir()
	writeItem(t, repoDir, "Notebook", "nb", "11111111-aaaa-bbbb-cccc-222222222222",
		map[string]string{
			"notebook-content.py":   "print('hi')",
			"scratch/tmp.txt":       "ignore me",
			"nested/scratch/keep.v": "not at the start, not excluded",
		})

	fake := &fakeEndpoint{}
	ws := newTestWorkspace(t, repoDir, fake)

	require.NoError(t, ws.Publish(context.Background(), "Notebook", "nb", &PublishOptions{
		ExcludePath: `scratch/.*`,
	}))

	posts := fake.callsTo(http.MethodPost)
	require.Len(t, posts, 1)
	parts := decodeParts(t, posts[0].Body)
	assert.Contains(t, parts, "notebook-content.py")
	assert.NotContains(t, parts, "scratch/tmp.txt")
	assert.Contains(t, parts, "nested/scratch/keep.v", "path patterns match from the start of the relative path")
}

func TestPublishUnknownItemFails(t *testing.T) {
	repoDir := t.TempDir()
	writeItem(t, repoDir, "Notebook", "nb", "11111111-aaaa-bbbb-cccc-222222222222",
		map[string]string{"notebook-content.py": "print('hi')"})

	ws := newTestWorkspace(t, repoDir, &fakeEndpoint{})

	err := ws.Publish(context.Background(), "Notebook", "missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in repository")
}

func TestUnpublishIsBestEffort(t *testing.T) {
	repoDir := t.TempDir()
	fake := &fakeEndpoint{
		deployed: []map[string]any{
			{"type": "Notebook", "displayName": "doomed", "id": "99999999-aaaa-bbbb-cccc-000000000001"},
			{"type": "Notebook", "displayName": "survivor", "id": "99999999-aaaa-bbbb-cccc-000000000002"},
		},
		deleteErrs: map[string]error{},
	}
	ws := newTestWorkspace(t, repoDir, fake)
	fake.deleteErrs[ws.BaseAPIURL+"/items/99999999-aaaa-bbbb-cccc-000000000001"] = errors.New("delete denied")

	// a failing delete must not stop the batch
	ws.Unpublish(context.Background(), "Notebook", "doomed")
	ws.Unpublish(context.Background(), "Notebook", "survivor")

	deletes := fake.callsTo(http.MethodDelete)
	require.Len(t, deletes, 2)
	assert.Equal(t, ws.BaseAPIURL+"/items/99999999-aaaa-bbbb-cccc-000000000002", deletes[1].URL)
}

func TestUnpublishNotDeployedMakesNoCall(t *testing.T) {
	repoDir := t.TempDir()
	fake := &fakeEndpoint{}
	ws := newTestWorkspace(t, repoDir, fake)

	ws.Unpublish(context.Background(), "Notebook", "ghost")
	assert.Empty(t, fake.callsTo(http.MethodDelete))
}

func TestConvertLookups(t *testing.T) {
	repoDir := t.TempDir()
	writeItem(t, repoDir, "Notebook", "Hello World", "11111111-aaaa-bbbb-cccc-222222222222",
		map[string]string{"notebook-content.py": "print('hi')"})

	fake := &fakeEndpoint{deployed: []map[string]any{
		{"type": "Notebook", "displayName": "Hello World", "id": "99999999-aaaa-bbbb-cccc-000000000000"},
	}}
	ws := newTestWorkspace(t, repoDir, fake)

	assert.Equal(t, "Hello World", ws.ConvertIDToName("Notebook", "11111111-aaaa-bbbb-cccc-222222222222", SideRepository))
	assert.Equal(t, "Hello World", ws.ConvertIDToName("Notebook", "99999999-aaaa-bbbb-cccc-000000000000", SideDeployed))
	assert.Equal(t, "", ws.ConvertIDToName("Notebook", "deadbeef-0000-0000-0000-000000000000", SideDeployed))

	itemDir := filepath.Join(repoDir, "Hello World.Notebook")
	assert.Equal(t, "11111111-aaaa-bbbb-cccc-222222222222", ws.ConvertPathToID("Notebook", itemDir))
	assert.Equal(t, "", ws.ConvertPathToID("Notebook", filepath.Join(repoDir, "nope")))
}
