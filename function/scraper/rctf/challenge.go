package rctf

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dimasma0305/ctfscrape/function/client"
	"github.com/dimasma0305/ctfscrape/function/scraper"
	"github.com/dimasma0305/ctfscrape/function/utils"
)

type envelope struct {
	Kind    string          `json:"kind"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type ChallengeData struct {
	Files       []File        `json:"files"`
	Description *string       `json:"description"`
	Author      scraper.Text  `json:"author"`
	Points      scraper.Score `json:"points"`
	ID          scraper.Text  `json:"id"`
	Name        scraper.Text  `json:"name"`
	Category    scraper.Text  `json:"category"`
	Solves      scraper.Score `json:"solves"`
}

type File struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (r *RCTFScraper) get(ctx context.Context, url string, v any) error {
	var env envelope
	if err := r.client.GetJSON(ctx, url, &env); err != nil {
		return err
	}
	if strings.HasPrefix(env.Kind, "bad") {
		switch env.Kind {
		case "badToken", "badAuth", "badPerms":
			return &client.AuthError{URL: url, Status: 200}
		}
		return fmt.Errorf("%s: %s", env.Kind, env.Message)
	}
	if len(env.Data) == 0 {
		return client.Malformed(url, fmt.Errorf("no data in %q response", env.Kind))
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return client.Malformed(url, err)
	}
	return nil
}

func (r *RCTFScraper) ListChallenges(ctx context.Context) ([]scraper.Stub, error) {
	var challs []ChallengeData
	if err := r.get(ctx, utils.UrlJoinPath(r.Url, "/api/v1/challs"), &challs); err != nil {
		return nil, err
	}
	stubs := make([]scraper.Stub, 0, len(challs))
	for i := range challs {
		c := &challs[i]
		stub := scraper.Stub{
			ID:       string(c.ID),
			Name:     string(c.Name),
			Category: string(c.Category),
			Points:   c.Points,
			Solves:   c.Solves,
			Author:   string(c.Author),
		}
		// the listing usually carries the whole challenge already
		if c.Description != nil {
			stub.Detail = c.detail(r.Url)
		}
		stubs = append(stubs, stub)
	}
	return stubs, nil
}

func (r *RCTFScraper) FetchDetail(ctx context.Context, stub scraper.Stub) (*scraper.Detail, error) {
	if stub.Detail != nil {
		return stub.Detail, nil
	}
	var c ChallengeData
	if err := r.get(ctx, utils.UrlJoinPath(r.Url, "/api/v1/challs", stub.ID), &c); err != nil {
		return nil, fmt.Errorf("challenge %s: %w", stub.ID, err)
	}
	return c.detail(r.Url), nil
}

func (c *ChallengeData) detail(base string) *scraper.Detail {
	files := make([]string, 0, len(c.Files))
	for _, f := range c.Files {
		if f.URL != "" {
			files = append(files, utils.ResolveURL(base, f.URL))
		}
	}
	var desc string
	if c.Description != nil {
		desc = *c.Description
	}
	return &scraper.Detail{
		Description: desc,
		Attachments: files,
		Points:      c.Points,
		Solves:      c.Solves,
		Author:      string(c.Author),
	}
}
