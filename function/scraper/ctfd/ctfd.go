package ctfd

import (
	"context"
	"fmt"

	"github.com/dimasma0305/ctfscrape/function/scraper"
	"github.com/dimasma0305/ctfscrape/function/utils"
)

type ctfdScraper struct {
	Url           string
	client        scraper.Fetcher
	challengesUrl string
}

// Create a new CTFd adapter for the site at base
func New(base string, client scraper.Fetcher) *ctfdScraper {
	return &ctfdScraper{
		Url:           base,
		client:        client,
		challengesUrl: utils.UrlJoinPath(base, "/api/v1/challenges"),
	}
}

func (cs *ctfdScraper) Platform() scraper.Platform { return scraper.CTFd }

// get all challenges from /api/v1/challenges in ctfd platform
func (cs *ctfdScraper) ListChallenges(ctx context.Context) ([]scraper.Stub, error) {
	var data []ChallengeInfo
	if err := cs.getData(ctx, cs.challengesUrl, &data); err != nil {
		return nil, err
	}
	stubs := make([]scraper.Stub, 0, len(data))
	for _, ci := range data {
		if ci.Type == "hidden" {
			continue
		}
		stubs = append(stubs, ci.stub())
	}
	return stubs, nil
}

// Get all info of the chall from ctfd plaform
func (cs *ctfdScraper) FetchDetail(ctx context.Context, stub scraper.Stub) (*scraper.Detail, error) {
	var data ChallengeFullInfo
	if err := cs.getData(ctx, utils.UrlJoinPath(cs.challengesUrl, stub.ID), &data); err != nil {
		return nil, fmt.Errorf("challenge %s: %w", stub.ID, err)
	}
	return data.detail(cs.Url), nil
}
