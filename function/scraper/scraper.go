// Package scraper holds the platform neutral challenge model and the
// interface every platform adapter implements.
package scraper

import (
	"context"
	"strings"
)

// Stub is one entry of a challenge listing. Detail is set when the listing
// already carried the full challenge, so no second request is needed.
type Stub struct {
	ID       string
	Name     string
	Category string
	Points   Score
	Solves   Score
	Tags     []string
	Author   string
	Detail   *Detail
}

type Detail struct {
	Description string
	Tags        []string
	Attachments []string
	Points      Score
	Solves      Score
	Author      string
	Connection  string
}

// Challenge is a fully fetched challenge. It is built once by Assemble and
// not modified afterwards.
type Challenge struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Points      Score    `json:"points"`
	Solves      Score    `json:"solves"`
	Tags        []string `json:"tags"`
	Author      string   `json:"author,omitempty"`
	Connection  string   `json:"connection_info,omitempty"`
	Description string   `json:"description"`
	Attachments []string `json:"files"`
	Platform    Platform `json:"platform"`
}

// Adapter lists and fetches challenges for one platform.
type Adapter interface {
	Platform() Platform
	ListChallenges(ctx context.Context) ([]Stub, error)
	FetchDetail(ctx context.Context, stub Stub) (*Detail, error)
}

// Fetcher is the part of the http client adapters need.
type Fetcher interface {
	GetJSON(ctx context.Context, url string, v any) error
	GetBytes(ctx context.Context, url string) ([]byte, error)
}

const DefaultCategory = "Misc"

// NormalizeCategory trims c and gives DefaultCategory for an empty one.
func NormalizeCategory(c string) string {
	c = strings.TrimSpace(c)
	if c == "" {
		return DefaultCategory
	}
	return c
}

// Assemble merges a listing entry with its detail. Values from the detail win
// when present; tags from both are merged in order without duplicates.
func Assemble(p Platform, stub Stub, d *Detail) *Challenge {
	if d == nil {
		d = &Detail{}
	}
	name := strings.TrimSpace(stub.Name)
	if name == "" {
		name = stub.ID
	}
	return &Challenge{
		ID:          stub.ID,
		Name:        name,
		Category:    NormalizeCategory(stub.Category),
		Points:      d.Points.Or(stub.Points),
		Solves:      d.Solves.Or(stub.Solves),
		Tags:        mergeTags(stub.Tags, d.Tags),
		Author:      firstNonEmpty(d.Author, stub.Author),
		Connection:  strings.TrimSpace(d.Connection),
		Description: strings.TrimSpace(d.Description),
		Attachments: dedupe(d.Attachments),
		Platform:    p,
	}
}

func mergeTags(lists ...[]string) []string {
	var all []string
	for _, l := range lists {
		for _, t := range l {
			if t = strings.TrimSpace(t); t != "" {
				all = append(all, t)
			}
		}
	}
	return dedupe(all)
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
