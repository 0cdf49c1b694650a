package creds

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

const (
	CookieEnv = "CTF_COOKIE"
	TokenEnv  = "CTF_TOKEN"
)

// Credentials is the already-parsed authentication material handed to the
// HTTP client: cookie pairs plus an optional bearer token.
type Credentials struct {
	Cookies map[string]string
	Token   string
}

// ParseCookies parses a "k1=v1; k2=v2" cookie header. Only the first '=' of
// each pair separates key from value; items without '=' or with an empty key
// are dropped.
func ParseCookies(raw string) map[string]string {
	cookies := make(map[string]string)
	for _, item := range strings.Split(raw, ";") {
		key, value, ok := strings.Cut(item, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		cookies[key] = strings.TrimSpace(value)
	}
	return cookies
}

// Load builds Credentials from a cookie argument and a token. Either given as
// "@path" is read from that file. Empty values fall back
// to the CTF_COOKIE and CTF_TOKEN environment variables.
func Load(cookie, token string) (*Credentials, error) {
	if cookie == "" {
		cookie = os.Getenv(CookieEnv)
	}
	if token == "" {
		token = os.Getenv(TokenEnv)
	}
	cookie, err := fromFile("cookie", cookie)
	if err != nil {
		return nil, err
	}
	token, err = fromFile("token", token)
	if err != nil {
		return nil, err
	}
	return &Credentials{
		Cookies: ParseCookies(strings.TrimSpace(cookie)),
		Token:   strings.TrimSpace(token),
	}, nil
}

func fromFile(what, value string) (string, error) {
	path, ok := strings.CutPrefix(value, "@")
	if !ok {
		return value, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s file: %w", what, err)
	}
	return string(data), nil
}

// Names returns the cookie names in sorted order.
func (c *Credentials) Names() []string {
	names := make([]string, 0, len(c.Cookies))
	for k := range c.Cookies {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (c *Credentials) Empty() bool {
	return c == nil || (len(c.Cookies) == 0 && c.Token == "")
}
