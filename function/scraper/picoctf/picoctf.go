// Package picoctf reads the paginated challenge api of play.picoctf.org and
// sites running the same backend.
package picoctf

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dimasma0305/ctfscrape/function/client"
	"github.com/dimasma0305/ctfscrape/function/htmlutil"
	"github.com/dimasma0305/ctfscrape/function/log"
	"github.com/dimasma0305/ctfscrape/function/scraper"
	"github.com/dimasma0305/ctfscrape/function/utils"
	"golang.org/x/sync/errgroup"
)

type page struct {
	Count   int         `json:"count"`
	Next    *string     `json:"next"`
	Results []challenge `json:"results"`
}

type challenge struct {
	ID          scraper.Text     `json:"id"`
	Name        scraper.Text     `json:"name"`
	Category    scraper.Text     `json:"category"`
	Event       scraper.Text     `json:"event"`
	Author      scraper.Text     `json:"author"`
	Points      scraper.Score    `json:"points"`
	Value       scraper.Score    `json:"value"`
	UsersSolved scraper.Score    `json:"users_solved"`
	Tags        scraper.TextList `json:"tags"`
}

type instance struct {
	Description    string       `json:"description"`
	ConnectionInfo scraper.Text `json:"connection_info"`
}

type Scraper struct {
	Url     string
	client  scraper.Fetcher
	workers int
}

// New returns a picoCTF adapter. workers bounds the concurrent page fetches.
func New(base string, client scraper.Fetcher, workers int) *Scraper {
	if workers < 1 {
		workers = 1
	}
	return &Scraper{Url: base, client: client, workers: workers}
}

func (s *Scraper) Platform() scraper.Platform { return scraper.PicoCTF }

func (s *Scraper) pageUrl(n int) string {
	return fmt.Sprintf("%s?page=%d", utils.UrlJoinPath(s.Url, "/api/challenges/"), n)
}

// ListChallenges reads page 1 to learn the page count, fetches the rest
// concurrently, then puts them back in page order.
func (s *Scraper) ListChallenges(ctx context.Context) ([]scraper.Stub, error) {
	var first page
	if err := s.client.GetJSON(ctx, s.pageUrl(1), &first); err != nil {
		return nil, err
	}
	perPage := len(first.Results)
	pages := make([][]challenge, 1)
	pages[0] = first.Results

	if perPage > 0 && first.Count > perPage {
		total := (first.Count + perPage - 1) / perPage
		log.InfoH2("%d challenges across %d pages", first.Count, total)
		pages = append(pages, make([][]challenge, total-1)...)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.workers)
		for n := 2; n <= total; n++ {
			n := n
			g.Go(func() error {
				var p page
				if err := s.client.GetJSON(gctx, s.pageUrl(n), &p); err != nil {
					if client.IsAuth(err) || errors.Is(err, context.Canceled) {
						return err
					}
					log.ErrorH2("skipping page %d: %v", n, err)
					return nil
				}
				pages[n-1] = p.Results
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	var stubs []scraper.Stub
	for _, results := range pages {
		for _, c := range results {
			stubs = append(stubs, c.stub())
		}
	}
	return stubs, nil
}

func (c challenge) stub() scraper.Stub {
	tags := []string(c.Tags)
	if c.Event != "" {
		tags = append(tags, string(c.Event))
	}
	return scraper.Stub{
		ID:       string(c.ID),
		Name:     string(c.Name),
		Category: string(c.Category),
		Points:   c.Points.Or(c.Value),
		Solves:   c.UsersSolved,
		Tags:     tags,
		Author:   string(c.Author),
	}
}

// FetchDetail reads the instance endpoint, whose description is html with
// the attachments linked inline.
func (s *Scraper) FetchDetail(ctx context.Context, stub scraper.Stub) (*scraper.Detail, error) {
	var inst instance
	url := utils.UrlJoinPath(s.Url, "/api/challenges", stub.ID, "instance") + "/"
	if err := s.client.GetJSON(ctx, url, &inst); err != nil {
		var se *client.StatusError
		if errors.As(err, &se) && se.Status == http.StatusNotFound {
			log.DebugH2("no instance for challenge %s", stub.ID)
			return &scraper.Detail{}, nil
		}
		return nil, fmt.Errorf("challenge %s: %w", stub.ID, err)
	}
	return &scraper.Detail{
		Description: htmlutil.HTMLToText(inst.Description),
		Attachments: htmlutil.FileLinks(inst.Description, s.Url),
		Connection:  strings.TrimSpace(string(inst.ConnectionInfo)),
	}, nil
}
