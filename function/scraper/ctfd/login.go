package ctfd

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dimasma0305/ctfscrape/function/utils"
	"github.com/imroc/req/v3"
)

type Creds struct {
	Username string
	Password string
}

// Login signs in with a username and password and returns the session
// cookies to hand to the shared client.
func Login(ctx context.Context, base string, creds *Creds, userAgent string, insecure bool) (map[string]string, error) {
	c := req.C().
		SetUserAgent(userAgent).
		SetRedirectPolicy(func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		})
	if insecure {
		c.EnableInsecureSkipVerify()
	}
	loginUrl := utils.UrlJoinPath(base, "/login")

	nonce, err := getNonce(ctx, c, loginUrl)
	if err != nil {
		return nil, err
	}
	res, err := c.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"name":     creds.Username,
			"password": creds.Password,
			"_submit":  "Submit",
			"nonce":    nonce,
		}).
		Post(loginUrl)
	if err != nil {
		return nil, err
	}
	if strings.Contains(strings.ToLower(res.String()), "incorrect") {
		return nil, fmt.Errorf("invalid credential")
	}
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("login answered with status %d", res.StatusCode)
	}

	cookies := map[string]string{}
	for _, ck := range res.Cookies() {
		cookies[ck.Name] = ck.Value
	}
	if _, ok := cookies["session"]; !ok {
		return nil, fmt.Errorf("login did not return a session cookie")
	}
	return cookies, nil
}

// Get nonce from login page
func getNonce(ctx context.Context, c *req.Client, loginUrl string) (string, error) {
	res, err := c.R().SetContext(ctx).Get(loginUrl)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.String()))
	if err != nil {
		return "", err
	}
	nonce, exist := doc.Find("#nonce").Attr("value")
	if !exist {
		return "", fmt.Errorf("nonce doesn't exist")
	}
	return nonce, nil
}
