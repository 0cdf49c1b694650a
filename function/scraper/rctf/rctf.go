package rctf

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dimasma0305/ctfscrape/function/scraper"
	"github.com/dimasma0305/ctfscrape/function/utils"
	"github.com/imroc/req/v3"
)

type RCTFScraper struct {
	Url    string
	client scraper.Fetcher
}

func New(base string, client scraper.Fetcher) *RCTFScraper {
	return &RCTFScraper{Url: base, client: client}
}

func (r *RCTFScraper) Platform() scraper.Platform { return scraper.RCTF }

// ExchangeTeamToken logs in with a team token and returns the bearer auth
// token the api expects.
func ExchangeTeamToken(ctx context.Context, base string, teamToken string, userAgent string, insecure bool) (string, error) {
	var (
		client = req.C().
			SetUserAgent(userAgent).
			SetRedirectPolicy(func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			})
		data struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
			Data    struct {
				AuthToken string `json:"authToken"`
			} `json:"data"`
		}
	)
	if insecure {
		client.EnableInsecureSkipVerify()
	}
	res, err := client.R().
		SetContext(ctx).
		SetBodyJsonMarshal(map[string]string{
			"teamToken": teamToken,
		}).
		Post(utils.UrlJoinPath(base, "/api/v1/auth/login"))
	if err != nil {
		return "", err
	}
	if err := res.UnmarshalJson(&data); err != nil {
		return "", fmt.Errorf("login response: %w", err)
	}
	if data.Data.AuthToken == "" {
		return "", fmt.Errorf("login failed: %s (%s)", data.Message, data.Kind)
	}
	return data.Data.AuthToken, nil
}

// TokenFromURL splits a login link of the form https://host/login?token=...
// into the site base and the team token.
func TokenFromURL(Url string) (base string, token string, err error) {
	rctfUrl, err := url.Parse(Url)
	if err != nil {
		return "", "", err
	}
	token = strings.TrimSpace(rctfUrl.Query().Get("token"))
	if token == "" {
		return "", "", fmt.Errorf("token not found in the url")
	}
	return rctfUrl.Scheme + "://" + rctfUrl.Host, token, nil
}
