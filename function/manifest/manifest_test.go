package manifest_test

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dimasma0305/ctfscrape/function/manifest"
	"github.com/dimasma0305/ctfscrape/function/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteIsOrderIndependent(t *testing.T) {
	m := manifest.New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Add(&scraper.Challenge{
				ID:       fmt.Sprint(i),
				Name:     fmt.Sprintf("chall %02d", i),
				Category: []string{"Web", "Crypto"}[i%2],
				Points:   scraper.Known(i * 10),
				Platform: scraper.CTFd,
			}, i%3)
		}(i)
	}
	wg.Wait()

	path := filepath.Join(t.TempDir(), "index.json")
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, m.Write(path, at))

	var doc struct {
		Total      int
		ScrapedAt  string `json:"scraped_at"`
		Version    string
		Challenges []map[string]any
	}
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, 20, doc.Total)
	assert.Equal(t, "2024-03-01T12:00:00Z", doc.ScrapedAt)
	assert.Equal(t, manifest.Version, doc.Version)
	require.Len(t, doc.Challenges, 20)
	assert.Equal(t, "Crypto", doc.Challenges[0]["category"])
	assert.Equal(t, "chall 01", doc.Challenges[0]["name"])
	assert.Equal(t, "Web", doc.Challenges[19]["category"])
	assert.EqualValues(t, 10, doc.Challenges[0]["points"])
	assert.EqualValues(t, 1, doc.Challenges[0]["files"])
}

func TestMissingPoints(t *testing.T) {
	m := manifest.New()
	m.Add(&scraper.Challenge{ID: "x", Name: "x", Category: "Misc"}, 0)
	entries := m.Entries()
	require.Len(t, entries, 1)

	b, err := json.Marshal(entries[0])
	require.NoError(t, err)
	assert.Contains(t, string(b), `"points":"N/A"`)
}
