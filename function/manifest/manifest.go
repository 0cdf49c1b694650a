// Package manifest writes index.json, the summary of everything a run
// scraped.
package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dimasma0305/ctfscrape/function/scraper"
)

// Version is stamped into every manifest; set by the cmd package.
var Version = "dev"

type Entry struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Category string           `json:"category"`
	Points   scraper.Score    `json:"points"`
	Solves   scraper.Score    `json:"solves"`
	Files    int              `json:"files"`
	Platform scraper.Platform `json:"platform"`
}

type document struct {
	Total      int       `json:"total"`
	ScrapedAt  time.Time `json:"scraped_at"`
	Version    string    `json:"version"`
	Challenges []Entry   `json:"challenges"`
}

// Manifest collects entries from concurrent workers. The written order is
// sorted by category then name, so it does not depend on completion order.
type Manifest struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func New() *Manifest {
	return &Manifest{entries: map[string]Entry{}}
}

func (m *Manifest) Add(c *scraper.Challenge, files int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[c.ID] = Entry{
		ID:       c.ID,
		Name:     c.Name,
		Category: c.Category,
		Points:   c.Points,
		Solves:   c.Solves,
		Files:    files,
		Platform: c.Platform,
	}
}

func (m *Manifest) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Manifest) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Write saves the manifest to path.
func (m *Manifest) Write(path string, at time.Time) error {
	entries := m.Entries()
	data, err := json.MarshalIndent(document{
		Total:      len(entries),
		ScrapedAt:  at.UTC(),
		Version:    Version,
		Challenges: entries,
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
