// Package mellivora reads the flat challenge listing Mellivora exposes at
// /api/challenges.php.
package mellivora

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dimasma0305/ctfscrape/function/htmlutil"
	"github.com/dimasma0305/ctfscrape/function/scraper"
	"github.com/dimasma0305/ctfscrape/function/utils"
)

type challenge struct {
	ID          scraper.Text  `json:"id"`
	Title       scraper.Text  `json:"title"`
	Name        scraper.Text  `json:"name"`
	Category    scraper.Text  `json:"category"`
	Points      scraper.Score `json:"points"`
	Value       scraper.Score `json:"value"`
	Solves      scraper.Score `json:"solves"`
	Description string        `json:"description"`
	Author      scraper.Text  `json:"author"`
	Files       fileList      `json:"files"`
}

// fileList is the files field, which some installs send as a single value
// instead of a list.
type fileList []json.RawMessage

func (l *fileList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*l = nil
		return nil
	case b[0] != '[':
		*l = fileList{json.RawMessage(b)}
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	*l = items
	return nil
}

type Scraper struct {
	Url    string
	client scraper.Fetcher
}

func New(base string, client scraper.Fetcher) *Scraper {
	return &Scraper{Url: base, client: client}
}

func (s *Scraper) Platform() scraper.Platform { return scraper.Mellivora }

// ListChallenges reads the whole listing in one call. Every entry carries its
// own detail.
func (s *Scraper) ListChallenges(ctx context.Context) ([]scraper.Stub, error) {
	var list []challenge
	if err := s.client.GetJSON(ctx, utils.UrlJoinPath(s.Url, "/api/challenges.php"), &list); err != nil {
		return nil, err
	}
	stubs := make([]scraper.Stub, 0, len(list))
	for _, c := range list {
		name := string(c.Title)
		if name == "" {
			name = string(c.Name)
		}
		id := string(c.ID)
		if id == "" {
			id = utils.Slug(name)
		}
		if id == "" {
			continue
		}
		points := c.Points.Or(c.Value)
		stubs = append(stubs, scraper.Stub{
			ID:       id,
			Name:     name,
			Category: normalizeCategory(string(c.Category)),
			Points:   points,
			Solves:   c.Solves,
			Author:   string(c.Author),
			Detail: &scraper.Detail{
				Description: htmlutil.HTMLToText(c.Description),
				Attachments: s.files(c.Files),
				Points:      points,
				Solves:      c.Solves,
				Author:      string(c.Author),
			},
		})
	}
	return stubs, nil
}

func (s *Scraper) FetchDetail(ctx context.Context, stub scraper.Stub) (*scraper.Detail, error) {
	if stub.Detail == nil {
		return nil, fmt.Errorf("challenge %s has no detail in the listing", stub.ID)
	}
	return stub.Detail, nil
}

// files accepts plain url strings or objects carrying url, href or path.
func (s *Scraper) files(raw fileList) []string {
	var out []string
	for _, r := range raw {
		var link string
		var obj map[string]json.RawMessage
		if json.Unmarshal(r, &obj) == nil {
			for _, key := range []string{"url", "href", "path"} {
				if link = scraper.Coerce(obj[key]); link != "" {
					break
				}
			}
		} else {
			link = scraper.Coerce(r)
		}
		if link != "" {
			out = append(out, utils.ResolveURL(s.Url, link))
		}
	}
	return out
}

// Mellivora categories are free text like "  web / misc" or "CRYPTO".
func normalizeCategory(c string) string {
	c = strings.Join(strings.Fields(c), " ")
	if c == strings.ToUpper(c) || c == strings.ToLower(c) {
		c = titleCase(c)
	}
	return c
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
