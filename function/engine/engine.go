// Package engine runs a scrape: list once, then process every challenge on a
// fixed pool of workers, keeping the ledger and manifest up to date.
package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dimasma0305/ctfscrape/function/config"
	"github.com/dimasma0305/ctfscrape/function/log"
	"github.com/dimasma0305/ctfscrape/function/manifest"
	"github.com/dimasma0305/ctfscrape/function/materializer"
	"github.com/dimasma0305/ctfscrape/function/retry"
	"github.com/dimasma0305/ctfscrape/function/scraper"
	"github.com/dimasma0305/ctfscrape/function/state"
	"github.com/hokaccha/go-prettyjson"
	"github.com/schollz/progressbar/v3"
)

type Config struct {
	OutputDir    string
	SkipExisting bool
	DryRun       bool
	Verbose      bool
	// Category keeps only challenges of that category, case-insensitively.
	Category string
	Workers  int
	Retry    retry.Policy
	// Progress receives the progress bar; nil hides it.
	Progress io.Writer
	// Preview receives the dry-run listing; nil means stdout.
	Preview io.Writer
}

type Summary struct {
	Platform    scraper.Platform `json:"platform"`
	Total       int              `json:"total"`
	Success     int              `json:"success"`
	Failed      int              `json:"failed"`
	Skipped     int              `json:"skipped"`
	Files       int              `json:"files"`
	FilesFailed int              `json:"files_failed"`
	Interrupted bool             `json:"interrupted"`
}

type Runner struct {
	adapter scraper.Adapter
	dl      materializer.Downloader
	cfg     Config
	now     func() time.Time

	mu  sync.Mutex
	sum Summary
}

func New(a scraper.Adapter, dl materializer.Downloader, cfg Config) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Preview == nil {
		cfg.Preview = os.Stdout
	}
	return &Runner{adapter: a, dl: dl, cfg: cfg, now: time.Now}
}

// Run lists the challenges and processes them. The returned error is only set
// when listing failed; per challenge failures end up in the Summary.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	r.sum = Summary{Platform: r.adapter.Platform()}

	log.Info("listing challenges (%s)", r.adapter.Platform())
	stubs, err := r.adapter.ListChallenges(ctx)
	if err != nil {
		return nil, fmt.Errorf("list challenges: %w", err)
	}
	stubs = uniqueStubs(stubs)
	if r.cfg.Category != "" {
		stubs = filterCategory(stubs, r.cfg.Category)
	}
	r.sum.Total = len(stubs)
	log.InfoH2("found %d challenges", len(stubs))

	if r.cfg.DryRun {
		return &r.sum, r.preview(stubs)
	}

	if err := os.MkdirAll(r.cfg.OutputDir, 0755); err != nil {
		return nil, err
	}
	ledger := state.Load(filepath.Join(r.cfg.OutputDir, config.StateFile))
	if completed, failed := ledger.Counts(); completed+failed > 0 {
		log.InfoH2("resuming: %d completed, %d failed in earlier runs", completed, failed)
	}
	if prev := ledger.Platform(); prev != "" && prev != r.adapter.Platform() {
		log.Warn("%s was scraped as %s before, now as %s", r.cfg.OutputDir, prev, r.adapter.Platform())
	}
	if err := ledger.SetPlatform(r.adapter.Platform()); err != nil {
		log.Warn("cannot save state: %v", err)
	}
	writer := materializer.New(r.dl, materializer.Options{
		Root:         r.cfg.OutputDir,
		SkipExisting: r.cfg.SkipExisting,
		Workers:      r.cfg.Workers,
		Retry:        r.cfg.Retry,
	})
	index := manifest.New()
	bar := r.progressBar(len(stubs))

	jobs := make(chan scraper.Stub)
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for stub := range jobs {
				r.process(ctx, stub, ledger, writer, index)
				_ = bar.Add(1)
			}
		}()
	}

dispatch:
	for _, stub := range stubs {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- stub:
		}
	}
	close(jobs)
	wg.Wait()
	_ = bar.Finish()
	if err := ledger.Save(); err != nil {
		log.Warn("cannot save state: %v", err)
	}

	r.sum.Interrupted = ctx.Err() != nil
	if r.sum.Success > 0 && !r.sum.Interrupted {
		path := filepath.Join(r.cfg.OutputDir, config.ManifestFile)
		if err := index.Write(path, r.now()); err != nil {
			log.Error("cannot write manifest: %v", err)
		} else {
			log.InfoH2("wrote %s (%d challenges)", path, index.Len())
		}
	}
	return &r.sum, nil
}

func (r *Runner) progressBar(n int) *progressbar.ProgressBar {
	if r.cfg.Progress == nil {
		return progressbar.DefaultSilent(int64(n))
	}
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(r.cfg.Progress),
		progressbar.OptionSetDescription("[x] scraping"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *Runner) count(fn func(s *Summary)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.sum)
}

func (r *Runner) process(ctx context.Context, stub scraper.Stub, ledger *state.Ledger, writer *materializer.Materializer, index *manifest.Manifest) {
	if ctx.Err() != nil {
		return
	}
	if r.cfg.SkipExisting && ledger.IsCompleted(stub.ID) {
		c := scraper.Assemble(r.adapter.Platform(), stub, stub.Detail)
		index.Add(c, countFiles(filepath.Join(writer.Dir(c), materializer.FilesDir)))
		r.count(func(s *Summary) { s.Skipped++ })
		log.DebugH2("skipping %s, already completed", stub.Name)
		return
	}

	if ledger.IsFailed(stub.ID) {
		log.DebugH2("retrying %s, it failed last run", stub.Name)
	}

	fail := func(err error) {
		if ctx.Err() != nil {
			// interrupted, not failed: the next run picks it up again
			return
		}
		log.ErrorH2("%s: %v", stub.Name, err)
		if err := ledger.MarkFailed(stub.ID); err != nil {
			log.Warn("cannot save state: %v", err)
		}
		r.count(func(s *Summary) { s.Failed++ })
	}

	detail, err := r.adapter.FetchDetail(ctx, stub)
	if err != nil {
		fail(err)
		return
	}
	c := scraper.Assemble(r.adapter.Platform(), stub, detail)
	res, err := writer.Write(ctx, c)
	if err != nil {
		fail(err)
		return
	}
	if err := ledger.MarkCompleted(stub.ID); err != nil {
		log.Warn("cannot save state: %v", err)
	}
	index.Add(c, res.Downloaded+res.Skipped)
	r.count(func(s *Summary) {
		s.Success++
		s.Files += res.Downloaded
		s.FilesFailed += res.Failed
	})
	log.SuccessDownload(c.Name, c.Category)
}

func countFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) != ".part" {
			n++
		}
	}
	return n
}

// uniqueStubs drops repeated ids; paginated listings can overlap.
func uniqueStubs(stubs []scraper.Stub) []scraper.Stub {
	seen := make(map[string]bool, len(stubs))
	out := stubs[:0:0]
	for _, s := range stubs {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	return out
}

func filterCategory(stubs []scraper.Stub, category string) []scraper.Stub {
	var out []scraper.Stub
	for _, s := range stubs {
		if strings.EqualFold(scraper.NormalizeCategory(s.Category), strings.TrimSpace(category)) {
			out = append(out, s)
		}
	}
	return out
}

type previewEntry struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Category string        `json:"category"`
	Points   scraper.Score `json:"points"`
	Solves   scraper.Score `json:"solves"`
	Tags     []string      `json:"tags,omitempty"`
}

func (r *Runner) preview(stubs []scraper.Stub) error {
	entries := make([]previewEntry, 0, len(stubs))
	for _, s := range stubs {
		entries = append(entries, previewEntry{
			ID:       s.ID,
			Name:     s.Name,
			Category: scraper.NormalizeCategory(s.Category),
			Points:   s.Points,
			Solves:   s.Solves,
			Tags:     s.Tags,
		})
	}
	if r.cfg.Verbose {
		out, err := prettyjson.Marshal(entries)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(r.cfg.Preview, string(out))
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(r.cfg.Preview, "[%s] %s (%s pts)\n", e.Category, e.Name, e.Points); err != nil {
			return err
		}
	}
	return nil
}
