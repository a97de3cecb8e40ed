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
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	c := New(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token", TokenType: "Bearer"}))
	c.backoffBase = time.Millisecond
	c.pollInterval = time.Millisecond
	return c
}

func TestInvokeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"), "bearer token should be attached")
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"value": []any{}})
	}))
	defer server.Close()

	resp, err := testClient(t).Invoke(context.Background(), Request{Method: http.MethodGet, URL: server.URL + "/items"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Contains(t, resp.Body, "value")
}

func TestInvokeSendsJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "nb", body["displayName"])
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"id": "abc"})
	}))
	defer server.Close()

	resp, err := testClient(t).Invoke(context.Background(), Request{
		Method: http.MethodPost,
		URL:    server.URL + "/items",
		Body:   map[string]any{"displayName": "nb", "type": "Notebook"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, "abc", resp.Body["id"])
}

func TestInvokeRetriesThrottling(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer server.Close()

	resp, err := testClient(t).Invoke(context.Background(), Request{
		Method:     http.MethodGet,
		URL:        server.URL,
		MaxRetries: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.EqualValues(t, 3, calls.Load(), "two throttled attempts then success")
}

func TestInvokeDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"errorCode": "InvalidRequest", "message": "bad payload"})
	}))
	defer server.Close()

	_, err := testClient(t).Invoke(context.Background(), Request{
		Method:     http.MethodPost,
		URL:        server.URL,
		MaxRetries: 5,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "InvalidRequest")
	assert.EqualValues(t, 1, calls.Load(), "4xx should not be retried")
}

func TestInvokeExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := testClient(t).Invoke(context.Background(), Request{
		Method:     http.MethodGet,
		URL:        server.URL,
		MaxRetries: 2,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retries exhausted")
	assert.EqualValues(t, 3, calls.Load(), "initial attempt plus two retries")
}

func TestInvokeAwaitsLongRunningOperation(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/items", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", server.URL+"/operations/op-1")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/operations/op-1", func(w http.ResponseWriter, r *http.Request) {
		status := "Running"
		if polls.Add(1) >= 2 {
			status = "Succeeded"
		}
		json.NewEncoder(w).Encode(map[string]any{"status": status})
	})
	mux.HandleFunc("/operations/op-1/result", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": "created-guid"})
	})

	resp, err := testClient(t).Invoke(context.Background(), Request{
		Method: http.MethodPost,
		URL:    server.URL + "/items",
	})
	require.NoError(t, err)
	assert.Equal(t, "created-guid", resp.Body["id"], "operation result should be fetched after success")
	assert.GreaterOrEqual(t, polls.Load(), int32(2), "operation should be polled until terminal")
}

func TestInvokeFailedOperation(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/items", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", server.URL+"/operations/op-2")
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/operations/op-2", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "Failed", "error": map[string]any{"errorCode": "Boom"}})
	})

	_, err := testClient(t).Invoke(context.Background(), Request{
		Method: http.MethodPost,
		URL:    server.URL + "/items",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "long-running operation failed")
}
