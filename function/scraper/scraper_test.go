package scraper_test

import (
	"encoding/json"
	"testing"

	"github.com/dimasma0305/ctfscrape/function/scraper"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerce(t *testing.T) {
	var tests = map[string]struct {
		In   string
		Want string
	}{
		"string":      {In: `"  Web "`, Want: "Web"},
		"object-name": {In: `{"id": 3, "name": "Cryptography"}`, Want: "Cryptography"},
		"object-val":  {In: `{"value": "hard"}`, Want: "hard"},
		"number":      {In: `500`, Want: "500"},
		"float":       {In: `12.5`, Want: "12.5"},
		"null":        {In: `null`, Want: ""},
		"empty":       {In: ``, Want: ""},
		"list":        {In: `["a"]`, Want: ""},
		"bool":        {In: `true`, Want: "true"},
		"no-label":    {In: `{"id": 1}`, Want: ""},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.Want, scraper.Coerce(json.RawMessage(tt.In)))
		})
	}
}

func TestTextFields(t *testing.T) {
	var entry struct {
		Category scraper.Text     `json:"category"`
		Tags     scraper.TextList `json:"tags"`
		Points   scraper.Score    `json:"value"`
		Solves   scraper.Score    `json:"solves"`
	}
	raw := `{"category": {"name": "Forensics"}, "tags": ["easy", {"value": "pcap"}, null, ""], "value": "250", "solves": null}`
	require.NoError(t, json.Unmarshal([]byte(raw), &entry))

	assert.Equal(t, scraper.Text("Forensics"), entry.Category)
	if diff := cmp.Diff(scraper.TextList{"easy", "pcap"}, entry.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, scraper.Known(250), entry.Points)
	assert.Equal(t, scraper.Missing, entry.Solves)
	assert.Equal(t, "N/A", entry.Solves.String())

	var single scraper.TextList
	require.NoError(t, json.Unmarshal([]byte(`"warmup"`), &single))
	assert.Equal(t, scraper.TextList{"warmup"}, single)
}

func TestScoreMarshal(t *testing.T) {
	b, err := json.Marshal(map[string]scraper.Score{"a": scraper.Known(100), "b": scraper.Missing})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 100, "b": "N/A"}`, string(b))
}

func TestAssemble(t *testing.T) {
	stub := scraper.Stub{
		ID:       "7",
		Name:     " Baby RSA ",
		Category: "",
		Points:   scraper.Known(100),
		Solves:   scraper.Known(12),
		Tags:     []string{"easy"},
	}
	detail := &scraper.Detail{
		Description: "  e = 3  ",
		Tags:        []string{"easy", "rsa"},
		Attachments: []string{"https://x/a.py", "https://x/a.py", "https://x/out.txt"},
		Points:      scraper.Known(150),
		Author:      "alice",
	}

	c := scraper.Assemble(scraper.CTFd, stub, detail)
	want := &scraper.Challenge{
		ID:          "7",
		Name:        "Baby RSA",
		Category:    "Misc",
		Points:      scraper.Known(150),
		Solves:      scraper.Known(12),
		Tags:        []string{"easy", "rsa"},
		Author:      "alice",
		Description: "e = 3",
		Attachments: []string{"https://x/a.py", "https://x/out.txt"},
		Platform:    scraper.CTFd,
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("Assemble() mismatch (-want +got):\n%s", diff)
	}

	bare := scraper.Assemble(scraper.Unknown, scraper.Stub{ID: "x"}, nil)
	assert.Equal(t, "x", bare.Name)
	assert.Equal(t, scraper.Missing, bare.Points)
	assert.Empty(t, bare.Attachments)
}

func TestParsePlatform(t *testing.T) {
	p, auto, err := scraper.ParsePlatform("auto")
	require.NoError(t, err)
	assert.True(t, auto)
	assert.Equal(t, scraper.Unknown, p)

	p, auto, err = scraper.ParsePlatform("CTFd")
	require.NoError(t, err)
	assert.False(t, auto)
	assert.Equal(t, scraper.CTFd, p)

	p, _, err = scraper.ParsePlatform("generic")
	require.NoError(t, err)
	assert.Equal(t, scraper.Unknown, p)

	_, _, err = scraper.ParsePlatform("hackthebox")
	assert.Error(t, err)
}

func TestGuessCategory(t *testing.T) {
	assert.Equal(t, "Pwn", scraper.GuessCategory("anything", "binary"))
	assert.Equal(t, "OSINT", scraper.GuessCategory("anything", " OSINT "))
	assert.Equal(t, "Crypto", scraper.GuessCategory("Baby RSA", ""))
	assert.Equal(t, "Reverse", scraper.GuessCategory("crackme 2", ""))
	assert.Equal(t, "Misc", scraper.GuessCategory("Sanity Check", ""))
	// substrings do not count, only whole words
	assert.Equal(t, "Misc", scraper.GuessCategory("Treasure", ""))
}
