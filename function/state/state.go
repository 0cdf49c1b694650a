// Package state keeps the resume ledger: which challenges a previous run
// already finished or failed.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dimasma0305/ctfscrape/function/log"
	"github.com/dimasma0305/ctfscrape/function/scraper"
)

type document struct {
	Completed []string         `json:"completed_challenges"`
	Failed    []string         `json:"failed_challenges"`
	LastRun   time.Time        `json:"last_run"`
	Platform  scraper.Platform `json:"platform"`
}

// Ledger is safe for concurrent use. Every mutation is written to disk
// before the call returns.
type Ledger struct {
	mu        sync.Mutex
	path      string
	completed map[string]struct{}
	failed    map[string]struct{}
	platform  scraper.Platform
	lastRun   time.Time
	now       func() time.Time
}

func empty(path string) *Ledger {
	return &Ledger{
		path:      path,
		completed: map[string]struct{}{},
		failed:    map[string]struct{}{},
		now:       time.Now,
	}
}

// Load reads the ledger at path. A missing file gives an empty ledger, and so
// does one that cannot be parsed, with a warning.
func Load(path string) *Ledger {
	l := empty(path)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("cannot read state file %s, starting fresh: %v", path, err)
		}
		return l
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Warn("state file %s is corrupted, starting fresh: %v", path, err)
		return l
	}
	for _, id := range doc.Completed {
		l.completed[id] = struct{}{}
	}
	for _, id := range doc.Failed {
		if _, done := l.completed[id]; !done {
			l.failed[id] = struct{}{}
		}
	}
	l.platform = doc.Platform
	l.lastRun = doc.LastRun
	return l
}

func (l *Ledger) IsCompleted(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.completed[id]
	return ok
}

func (l *Ledger) IsFailed(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.failed[id]
	return ok
}

// MarkCompleted records id as done and forgets any earlier failure.
func (l *Ledger) MarkCompleted(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.completed[id] = struct{}{}
	delete(l.failed, id)
	return l.saveLocked()
}

// MarkFailed records id as failed unless it already completed.
func (l *Ledger) MarkFailed(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, done := l.completed[id]; !done {
		l.failed[id] = struct{}{}
	}
	return l.saveLocked()
}

func (l *Ledger) SetPlatform(p scraper.Platform) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.platform = p
	return l.saveLocked()
}

func (l *Ledger) Platform() scraper.Platform {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.platform
}

func (l *Ledger) Counts() (completed, failed int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.completed), len(l.failed)
}

func (l *Ledger) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.saveLocked()
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// saveLocked writes through a temp file and a rename so a crash mid-write
// leaves the previous ledger intact.
func (l *Ledger) saveLocked() error {
	l.lastRun = l.now().UTC()
	data, err := json.MarshalIndent(document{
		Completed: sorted(l.completed),
		Failed:    sorted(l.failed),
		LastRun:   l.lastRun,
		Platform:  l.platform,
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".scraper_state-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}
