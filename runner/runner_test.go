package runner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mthds-ai/mthds/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectFallsBackToAPIWhenSubprocessMissing(t *testing.T) {
	dir := t.TempDir()
	store, err := credentials.OpenAt(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("runner", "subprocess"))

	t.Setenv("PATH", dir) // a temp dir with no "pipelex" binary on it

	r, err := Select(store)
	require.NoError(t, err)
	assert.Equal(t, "api", r.Name())
}

func TestSelectUnknownRunner(t *testing.T) {
	dir := t.TempDir()
	store, err := credentials.OpenAt(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("runner", "carrier-pigeon"))

	_, err = Select(store)
	assert.Error(t, err)
}

func TestAPIRunnerSendsBearerToken(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := &APIRunner{baseURL: srv.URL, apiKey: "sk-test", client: srv.Client()}
	err := r.Run(context.Background(), "ship_order")
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "/v1/pipes/ship_order/run", gotPath)
}

func TestAPIRunnerNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := &APIRunner{baseURL: srv.URL, client: srv.Client()}
	err := r.Run(context.Background(), "ship_order")
	assert.Error(t, err)
}
