// Package runner defines the dispatch interface used to execute a pipe by
// name, with a subprocess-backed implementation (shelling out to a local
// "pipelex" executable) and an HTTP-backed implementation (calling a
// hosted pipelex API), plus a factory that picks between them.
//
// Execution itself is a stub: both implementations are wired up to make the
// right request/command, but neither interprets a result, since running a
// pipe end-to-end is out of scope here.
package runner

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"time"

	"github.com/mthds-ai/mthds/credentials"
	"github.com/mthds-ai/mthds/mtherr"
)

// Runner dispatches execution of a named pipe.
type Runner interface {
	// Run executes the pipe identified by pipeName and reports whether it
	// ran successfully.
	Run(ctx context.Context, pipeName string) error

	// Name identifies which runner implementation this is, for logging.
	Name() string
}

// Select picks a Runner according to the credentials store's "runner"
// setting ("subprocess" or "api"), falling back from subprocess to HTTP
// when the local pipelex executable isn't on PATH.
func Select(store *credentials.Store) (Runner, error) {
	entry, err := store.Get("runner")
	if err != nil {
		return nil, mtherr.RunnerError("reading runner setting", err)
	}

	switch entry.Value {
	case "subprocess":
		if _, err := exec.LookPath("pipelex"); err != nil {
			return newAPIRunner(store)
		}
		return &SubprocessRunner{executable: "pipelex"}, nil
	case "api":
		return newAPIRunner(store)
	default:
		return nil, mtherr.RunnerError(fmt.Sprintf("unknown runner %q", entry.Value), nil)
	}
}

func newAPIRunner(store *credentials.Store) (Runner, error) {
	urlEntry, err := store.Get("api_url")
	if err != nil {
		return nil, mtherr.RunnerError("reading api_url setting", err)
	}
	keyEntry, err := store.Get("api_key")
	if err != nil {
		return nil, mtherr.RunnerError("reading api_key setting", err)
	}
	return &APIRunner{
		baseURL: urlEntry.Value,
		apiKey:  keyEntry.Value,
		client:  http.DefaultClient,
	}, nil
}

// SubprocessRunner dispatches to a local pipelex executable.
type SubprocessRunner struct {
	executable string
}

func (r *SubprocessRunner) Name() string { return "subprocess" }

func (r *SubprocessRunner) Run(ctx context.Context, pipeName string) error {
	cmd := exec.CommandContext(ctx, r.executable, "run", pipeName)
	if out, err := cmd.CombinedOutput(); err != nil {
		return mtherr.RunnerError(fmt.Sprintf("running pipe %q via %s: %s", pipeName, r.executable, out), err)
	}
	return nil
}

// APIRunner dispatches to a hosted pipelex API over HTTP.
type APIRunner struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func (r *APIRunner) Name() string { return "api" }

func (r *APIRunner) Run(ctx context.Context, pipeName string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/v1/pipes/%s/run", r.baseURL, pipeName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return mtherr.RunnerError("building request", err)
	}
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	res, err := r.client.Do(req)
	if err != nil {
		return mtherr.RunnerError(fmt.Sprintf("running pipe %q via %s", pipeName, r.baseURL), err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		return mtherr.RunnerError(fmt.Sprintf("pipe %q run failed: %s", pipeName, res.Status), nil)
	}
	return nil
}
