package engine_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dimasma0305/ctfscrape/function/client"
	"github.com/dimasma0305/ctfscrape/function/engine"
	"github.com/dimasma0305/ctfscrape/function/log"
	"github.com/dimasma0305/ctfscrape/function/retry"
	"github.com/dimasma0305/ctfscrape/function/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fast = retry.Policy{Attempts: 2, BaseDelay: time.Millisecond}

type ctfdSite struct {
	*httptest.Server
	fileHits int32
}

// a small CTFd with three challenges; challenge 3 has no readable detail
func newCTFd(t *testing.T) *ctfdSite {
	site := &ctfdSite{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/challenges", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success": true, "data": [
			{"id": 1, "name": "Baby RSA", "value": 100, "solves": 5, "category": "Crypto"},
			{"id": 2, "name": "XSS Me", "value": 200, "solves": 3, "category": "Web/Client"},
			{"id": 3, "name": "Broken", "value": 300, "solves": 0, "category": "Misc"}
		]}`)
	})
	mux.HandleFunc("/api/v1/challenges/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/v1/challenges/")
		switch id {
		case "1":
			fmt.Fprint(w, `{"success": true, "data": {"id": 1, "description": "e = 3", "files": ["/files/a/chall.py?token=t", "/files/b/out.txt?token=t"]}}`)
		case "2":
			fmt.Fprint(w, `{"success": true, "data": {"id": 2, "description": "<script>", "files": []}}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&site.fileHits, 1)
		fmt.Fprint(w, "content of "+r.URL.Path)
	})
	site.Server = httptest.NewServer(mux)
	t.Cleanup(site.Close)
	return site
}

func runner(site *ctfdSite, out string, mutate func(*engine.Config)) *engine.Runner {
	c := client.New(client.Options{Retry: fast, MaxConcurrent: 4})
	cfg := engine.Config{OutputDir: out, SkipExisting: true, Workers: 3, Retry: fast}
	if mutate != nil {
		mutate(&cfg)
	}
	return engine.New(engine.NewAdapter(scraper.CTFd, site.URL, site.URL, c, cfg.Workers), c, cfg)
}

func TestRunAndResume(t *testing.T) {
	site := newCTFd(t)
	out := t.TempDir()

	sum, err := runner(site, out, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, engine.Summary{
		Platform: scraper.CTFd, Total: 3, Success: 2, Failed: 1, Files: 2,
	}, *sum)

	data, err := os.ReadFile(filepath.Join(out, "Crypto", "Baby RSA", "files", "chall.py"))
	require.NoError(t, err)
	assert.Equal(t, "content of /files/a/chall.py", string(data))
	assert.FileExists(t, filepath.Join(out, "Web_Client", "XSS Me", "challenge.txt"))
	assert.NoDirExists(t, filepath.Join(out, "Misc", "Broken"))

	var ledger struct {
		Completed []string `json:"completed_challenges"`
		Failed    []string `json:"failed_challenges"`
		Platform  string
	}
	raw, err := os.ReadFile(filepath.Join(out, ".scraper_state.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &ledger))
	assert.ElementsMatch(t, []string{"1", "2"}, ledger.Completed)
	assert.Equal(t, []string{"3"}, ledger.Failed)
	assert.Equal(t, "ctfd", ledger.Platform)

	var index struct {
		Total      int
		Challenges []struct{ Name string }
	}
	raw, err = os.ReadFile(filepath.Join(out, "index.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &index))
	assert.Equal(t, 2, index.Total)

	// second run: nothing new is downloaded, the failed one is tried again
	var logs bytes.Buffer
	log.SetOutput(&logs)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	hits := atomic.LoadInt32(&site.fileHits)
	sum, err = runner(site, out, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Skipped)
	assert.Equal(t, 0, sum.Success)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, hits, atomic.LoadInt32(&site.fileHits))
	assert.Contains(t, logs.String(), "resuming: 2 completed, 1 failed in earlier runs")
	// no success, so the first run's manifest stays
	assert.NotContains(t, logs.String(), "wrote ")
}

func TestDryRunWritesNothing(t *testing.T) {
	site := newCTFd(t)
	out := filepath.Join(t.TempDir(), "out")
	var preview bytes.Buffer

	sum, err := runner(site, out, func(c *engine.Config) {
		c.DryRun = true
		c.Preview = &preview
	}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Total)
	assert.Zero(t, sum.Success)
	assert.NoDirExists(t, out)
	assert.Contains(t, preview.String(), "[Crypto] Baby RSA (100 pts)")
	assert.Zero(t, atomic.LoadInt32(&site.fileHits))
}

func TestDryRunVerbose(t *testing.T) {
	site := newCTFd(t)
	var preview bytes.Buffer

	_, err := runner(site, t.TempDir(), func(c *engine.Config) {
		c.DryRun = true
		c.Verbose = true
		c.Preview = &preview
	}).Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, preview.String(), "XSS Me")
}

func TestListingAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := client.New(client.Options{Retry: fast})
	r := engine.New(engine.NewAdapter(scraper.CTFd, srv.URL, srv.URL, c, 2), c, engine.Config{OutputDir: t.TempDir()})
	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, client.IsAuth(err))
}

// blockingAdapter lists n challenges and blocks every detail fetch until the
// context ends.
type blockingAdapter struct {
	n       int
	started int32
	once    sync.Once
	ready   chan struct{}
}

func (b *blockingAdapter) Platform() scraper.Platform { return scraper.Unknown }

func (b *blockingAdapter) ListChallenges(ctx context.Context) ([]scraper.Stub, error) {
	stubs := make([]scraper.Stub, b.n)
	for i := range stubs {
		stubs[i] = scraper.Stub{ID: fmt.Sprint(i), Name: fmt.Sprint("c", i)}
	}
	return stubs, nil
}

func (b *blockingAdapter) FetchDetail(ctx context.Context, stub scraper.Stub) (*scraper.Detail, error) {
	atomic.AddInt32(&b.started, 1)
	b.once.Do(func() { close(b.ready) })
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestInterruptStopsDispatch(t *testing.T) {
	a := &blockingAdapter{n: 50, ready: make(chan struct{})}
	out := t.TempDir()
	r := engine.New(a, client.New(client.Options{}), engine.Config{OutputDir: out, Workers: 2})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-a.ready
		cancel()
	}()

	done := make(chan *engine.Summary)
	go func() {
		sum, err := r.Run(ctx)
		assert.NoError(t, err)
		done <- sum
	}()

	select {
	case sum := <-done:
		assert.True(t, sum.Interrupted)
		assert.Zero(t, sum.Failed)
		assert.LessOrEqual(t, atomic.LoadInt32(&a.started), int32(4))
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
	assert.NoFileExists(t, filepath.Join(out, "index.json"))
}

func TestCategoryFilter(t *testing.T) {
	site := newCTFd(t)
	var preview bytes.Buffer

	sum, err := runner(site, t.TempDir(), func(c *engine.Config) {
		c.DryRun = true
		c.Category = "crypto"
		c.Preview = &preview
	}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Total)
	assert.Contains(t, preview.String(), "Baby RSA")
	assert.NotContains(t, preview.String(), "XSS Me")
}
