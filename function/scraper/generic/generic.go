// Package generic scrapes challenge listings out of plain html for sites
// with no recognised api.
package generic

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dimasma0305/ctfscrape/function/htmlutil"
	"github.com/dimasma0305/ctfscrape/function/log"
	"github.com/dimasma0305/ctfscrape/function/scraper"
	"github.com/dimasma0305/ctfscrape/function/utils"
)

var ErrNoChallenges = errors.New("no challenges could be detected, the page structure may be unsupported")

var navWords = []string{"login", "logout", "register", "profile", "about"}

type Scraper struct {
	// Url is the listing page, not the site root
	Url    string
	client scraper.Fetcher
}

func New(pageUrl string, client scraper.Fetcher) *Scraper {
	return &Scraper{Url: pageUrl, client: client}
}

func (s *Scraper) Platform() scraper.Platform { return scraper.Unknown }

// ListChallenges tries table rows, then card elements, then bare challenge
// links. The first that finds anything wins.
func (s *Scraper) ListChallenges(ctx context.Context) ([]scraper.Stub, error) {
	body, err := s.client.GetBytes(ctx, s.Url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Url, err)
	}

	for _, h := range []struct {
		name string
		fn   func(*goquery.Document) []scraper.Stub
	}{
		{"table", s.fromTables},
		{"card", s.fromCards},
		{"link", s.fromLinks},
	} {
		if stubs := h.fn(doc); len(stubs) > 0 {
			log.InfoH2("found %d challenges with the %s layout", len(stubs), h.name)
			return withIDs(stubs), nil
		}
	}
	return nil, ErrNoChallenges
}

func (s *Scraper) FetchDetail(ctx context.Context, stub scraper.Stub) (*scraper.Detail, error) {
	if stub.Detail == nil {
		return &scraper.Detail{}, nil
	}
	return stub.Detail, nil
}

func text(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}

func (s *Scraper) fromTables(doc *goquery.Document) []scraper.Stub {
	var stubs []scraper.Stub
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(i int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() < 2 {
				return
			}
			name := text(cells.Eq(0))
			if name == "" {
				return
			}
			var files []string
			for _, link := range htmlutil.SelectionLinks(row, s.Url) {
				if htmlutil.IsFileLink(link) {
					files = append(files, link)
				}
			}
			var desc string
			if cells.Length() > 2 {
				desc = text(cells.Eq(2))
			}
			stubs = append(stubs, scraper.Stub{
				Name:     name,
				Category: scraper.GuessCategory(name, text(cells.Eq(1))),
				Detail:   &scraper.Detail{Description: desc, Attachments: files},
			})
		})
	})
	return stubs
}

func classHas(sel *goquery.Selection, words ...string) bool {
	class := strings.ToLower(sel.AttrOr("class", ""))
	for _, w := range words {
		if strings.Contains(class, w) {
			return true
		}
	}
	return false
}

func (s *Scraper) fromCards(doc *goquery.Document) []scraper.Stub {
	var stubs []scraper.Stub
	doc.Find("div[class], article[class]").Each(func(_ int, card *goquery.Selection) {
		if !classHas(card, "card", "challenge") {
			return
		}
		name := text(card.Find("h1, h2, h3, h4, h5, h6").First())
		if name == "" {
			return
		}
		var category, desc string
		card.Find("[class]").EachWithBreak(func(_ int, el *goquery.Selection) bool {
			if classHas(el, "category") {
				category = text(el)
				return false
			}
			return true
		})
		card.Find("p[class], div[class]").EachWithBreak(func(_ int, el *goquery.Selection) bool {
			if classHas(el, "desc", "content") {
				desc = text(el)
				return false
			}
			return true
		})
		var files []string
		for _, link := range htmlutil.SelectionLinks(card, s.Url) {
			lower := strings.ToLower(link)
			if strings.Contains(lower, "download") || strings.Contains(lower, "file") || htmlutil.IsFileLink(link) {
				files = append(files, link)
			}
		}
		stubs = append(stubs, scraper.Stub{
			Name:     name,
			Category: scraper.GuessCategory(name, category),
			Detail:   &scraper.Detail{Description: desc, Attachments: files},
		})
	})
	return stubs
}

func (s *Scraper) fromLinks(doc *goquery.Document) []scraper.Stub {
	var stubs []scraper.Stub
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.ToLower(a.AttrOr("href", ""))
		for _, w := range navWords {
			if strings.Contains(href, w) {
				return
			}
		}
		name := text(a)
		if len([]rune(name)) <= 3 || !strings.Contains(href, "challenge") {
			return
		}
		link := utils.ResolveURL(s.Url, a.AttrOr("href", ""))
		stubs = append(stubs, scraper.Stub{
			Name:     name,
			Category: scraper.GuessCategory(name, ""),
			Detail: &scraper.Detail{
				Description: "URL: " + link + "\n\nAuto-detected from a link, the description may be incomplete.",
			},
		})
	})
	return stubs
}

// withIDs gives every stub the slug of its name as id. Nested markup can
// match the same challenge twice, so repeated names are dropped.
func withIDs(stubs []scraper.Stub) []scraper.Stub {
	out := make([]scraper.Stub, 0, len(stubs))
	seen := map[string]bool{}
	for i, st := range stubs {
		id := utils.Slug(st.Name)
		if id == "" {
			id = fmt.Sprintf("challenge-%d", i+1)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		st.ID = id
		out = append(out, st)
	}
	return out
}
