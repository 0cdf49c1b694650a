// Package materializer lays a challenge out on disk: a category folder, a
// challenge folder with challenge.txt, and the attachments under files/.
package materializer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/dimasma0305/ctfscrape/function/client"
	"github.com/dimasma0305/ctfscrape/function/log"
	"github.com/dimasma0305/ctfscrape/function/retry"
	"github.com/dimasma0305/ctfscrape/function/scraper"
	"github.com/dimasma0305/ctfscrape/function/scraper/templater"
	"github.com/dimasma0305/ctfscrape/function/utils"
	"golang.org/x/sync/errgroup"
)

const FilesDir = "files"

// Downloader streams one url into w. declared is the announced length or -1.
type Downloader interface {
	Download(ctx context.Context, url string, w io.Writer) (written, declared int64, err error)
}

type Options struct {
	Root         string
	SkipExisting bool
	// Workers bounds the concurrent downloads of one challenge.
	Workers int
	Retry   retry.Policy
}

type Materializer struct {
	dl   Downloader
	opts Options
}

// Result counts what happened to the files of one challenge.
type Result struct {
	Dir          string
	Downloaded   int
	Skipped      int
	Failed       int
	FailedFiles  []string
	WrittenFiles []string
}

// SizeMismatchError means the body was shorter or longer than announced.
type SizeMismatchError struct {
	URL      string
	Written  int64
	Declared int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("size mismatch for %s: got %d bytes, expected %d", e.URL, e.Written, e.Declared)
}

func New(dl Downloader, opts Options) *Materializer {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Retry.Attempts == 0 {
		opts.Retry = retry.Default
	}
	return &Materializer{dl: dl, opts: opts}
}

// Dir is where c is written: root/category/name, both sanitized.
func (m *Materializer) Dir(c *scraper.Challenge) string {
	return filepath.Join(m.opts.Root, utils.SanitizeName(c.Category), utils.SanitizeName(c.Name))
}

// Write creates the challenge folder, writes challenge.txt and downloads the
// attachments. Only a failure to write the folder or challenge.txt is
// returned as an error; failed files are reported in the Result.
func (m *Materializer) Write(ctx context.Context, c *scraper.Challenge) (*Result, error) {
	dir := m.Dir(c)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	if err := templater.WriteChallenge(dir, c); err != nil {
		return nil, fmt.Errorf("write %s: %w", templater.ChallengeFile, err)
	}

	res := &Result{Dir: dir}
	if len(c.Attachments) == 0 {
		return res, nil
	}
	filesDir := filepath.Join(dir, FilesDir)
	if err := os.MkdirAll(filesDir, 0755); err != nil {
		return nil, err
	}

	var (
		mu    sync.Mutex
		g     errgroup.Group
		names = utils.FileNames(c.Attachments)
	)
	g.SetLimit(m.opts.Workers)
	for i, url := range c.Attachments {
		url, dst := url, filepath.Join(filesDir, names[i])
		g.Go(func() error {
			skipped, err := m.download(ctx, url, dst)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				res.Failed++
				res.FailedFiles = append(res.FailedFiles, filepath.Base(dst))
				log.ErrorH2("failed downloading %s: %v", filepath.Base(dst), err)
			case skipped:
				res.Skipped++
			default:
				res.Downloaded++
				res.WrittenFiles = append(res.WrittenFiles, filepath.Base(dst))
				log.InfoH3("downloaded %s", filepath.Base(dst))
			}
			return nil
		})
	}
	_ = g.Wait()
	return res, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// download fetches url into dst through a .part file. Transient errors and
// size mismatches share one retry sequence.
func (m *Materializer) download(ctx context.Context, url, dst string) (skipped bool, err error) {
	if m.opts.SkipExisting && exists(dst) {
		log.DebugH2("%s exists, skipping", filepath.Base(dst))
		return true, nil
	}
	part := dst + ".part"
	err = retry.Do(ctx, m.opts.Retry, func(attempt int) error {
		f, err := os.Create(part)
		if err != nil {
			return retry.Permanent(err)
		}
		written, declared, err := m.dl.Download(ctx, url, f)
		if cerr := f.Close(); err == nil && cerr != nil {
			err = retry.Permanent(cerr)
		}
		if err != nil {
			os.Remove(part)
			if !client.Retryable(err) {
				return retry.Permanent(err)
			}
			log.DebugH2("attempt %d for %s failed: %v", attempt, filepath.Base(dst), err)
			return err
		}
		if declared >= 0 && written != declared {
			os.Remove(part)
			mismatch := &SizeMismatchError{URL: url, Written: written, Declared: declared}
			log.DebugH2("attempt %d: %v", attempt, mismatch)
			return mismatch
		}
		return os.Rename(part, dst)
	})
	return false, err
}
