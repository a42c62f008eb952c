package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamledger/roamledger/logger"
)

func init() {
	logger.IsTest = true
}

// runCommand executes the roam CLI against the given store and remote,
// returning the combined output.
func runCommand(t *testing.T, storePath, remoteURL string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(append(args, "--store", storePath, "--remote", remoteURL))
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}

// unreachableURL points at a port nothing listens on, so every remote call
// fails fast with a connection refusal.
const unreachableURL = "http://127.0.0.1:1"

func TestIdentitySetAndShow(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "roam.db")

	out, err := runCommand(t, storePath, unreachableURL, "identity", "set", "123.456.789-01")
	require.NoError(t, err)
	assert.Contains(t, out, "identity set to 123.456.789-01")

	out, err = runCommand(t, storePath, unreachableURL, "identity", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "123.456.789-01")
}

func TestIdentitySet_RejectsBadValue(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "roam.db")

	_, err := runCommand(t, storePath, unreachableURL, "identity", "set", "123")
	require.Error(t, err)
}

func TestTripAdd_OfflineFallsBackToLocalStore(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "roam.db")

	_, err := runCommand(t, storePath, unreachableURL, "identity", "set", "12345678901")
	require.NoError(t, err)

	out, err := runCommand(t, storePath, unreachableURL,
		"trip", "add", "Porto onboarding", "--start", "2024-05-01", "--end", "2024-05-03")
	require.NoError(t, err)
	assert.Contains(t, out, "saved locally", "offline write should report the degraded path")

	out, err = runCommand(t, storePath, unreachableURL, "trip", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Porto onboarding")
	assert.Contains(t, out, "pending")
}

func TestTripAdd_RequiresIdentity(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "roam.db")

	_, err := runCommand(t, storePath, unreachableURL, "trip", "add", "No identity yet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identity")
}

func TestTripAdd_RejectsBackwardsDates(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "roam.db")

	_, err := runCommand(t, storePath, unreachableURL, "identity", "set", "12345678901")
	require.NoError(t, err)

	_, err = runCommand(t, storePath, unreachableURL,
		"trip", "add", "Backwards", "--start", "2024-05-10", "--end", "2024-05-01")
	require.Error(t, err)

	out, err := runCommand(t, storePath, unreachableURL, "trip", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "Backwards", "no partial write should remain")
}

// fakeServer is a minimal in-memory remote API for CLI round trips.
type fakeServer struct {
	mu     sync.Mutex
	nextID int64
	trips  []map[string]any
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/session", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "roam_session", Value: "test-session"})
		_ = json.NewEncoder(w).Encode(map[string]string{"deviceId": "dev-1"})
	})
	mux.HandleFunc("POST /v1/trips", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var trip map[string]any
		_ = json.NewDecoder(r.Body).Decode(&trip)
		f.nextID++
		trip["id"] = f.nextID
		if _, ok := trip["createdAt"]; !ok {
			trip["createdAt"] = "2024-05-01T09:00:00Z"
		}
		f.trips = append(f.trips, trip)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(trip)
	})
	mux.HandleFunc("GET /v1/trips/by-identity/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		identity := strings.TrimPrefix(r.URL.Path, "/v1/trips/by-identity/")
		matches := make([]map[string]any, 0)
		for _, trip := range f.trips {
			if trip["identityValue"] == identity {
				matches = append(matches, trip)
			}
		}
		_ = json.NewEncoder(w).Encode(matches)
	})
	mux.HandleFunc("GET /v1/expenses/by-trip/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]any{})
	})
	return mux
}

func TestFlush_PushesOfflineTripAndAdoptsServerID(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "roam.db")
	fake := &fakeServer{nextID: 41}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	_, err := runCommand(t, storePath, unreachableURL, "identity", "set", "12345678901")
	require.NoError(t, err)

	// Created offline: the trip sits pending under a local key.
	_, err = runCommand(t, storePath, unreachableURL, "trip", "add", "Porto onboarding")
	require.NoError(t, err)

	out, err := runCommand(t, storePath, server.URL, "flush")
	require.NoError(t, err)
	assert.Contains(t, out, "pushed 1 trip(s)")

	out, err = runCommand(t, storePath, server.URL, "trip", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "42", "server-assigned ID should be adopted locally")
	assert.Contains(t, out, "synced")
	assert.NotContains(t, out, "pending")
}

func TestSync_PullsServerTrips(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "roam.db")
	fake := &fakeServer{
		nextID: 7,
		trips: []map[string]any{{
			"id":            int64(7),
			"name":          "Created on another device",
			"identityValue": "12345678901",
			"createdAt":     "2024-04-01T08:00:00Z",
		}},
	}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	// The identity is configured while offline, so nothing is pulled yet.
	_, err := runCommand(t, storePath, unreachableURL, "identity", "set", "12345678901")
	require.NoError(t, err)

	out, err := runCommand(t, storePath, server.URL, "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "1 trip(s) updated from server")

	out, err = runCommand(t, storePath, server.URL, "trip", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Created on another device")
}

func TestVerify_MirrorsServerState(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "roam.db")
	fake := &fakeServer{
		nextID: 7,
		trips: []map[string]any{{
			"id":            int64(7),
			"name":          "Server truth",
			"identityValue": "12345678901",
			"createdAt":     "2024-04-01T08:00:00Z",
		}},
	}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	out, err := runCommand(t, storePath, server.URL, "identity", "set", "12345678901")
	require.NoError(t, err)
	assert.Contains(t, out, "pulled 1 record(s) from the server",
		"configuring a fresh identity should pull its history")

	out, err = runCommand(t, storePath, server.URL, "verify")
	require.NoError(t, err)
	assert.Contains(t, out, "local store verified")

	out, err = runCommand(t, storePath, server.URL, "trip", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Server truth")
}
