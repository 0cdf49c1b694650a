package utils

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode"
)

// Placeholder replaces names that sanitize to nothing.
const Placeholder = "unnamed"

// normalize path for windows compability
func NormalizePath(str string) string {
	return strings.ReplaceAll(str, "\\", "/")
}

// SanitizeName makes s safe as a single path segment. Reserved characters and
// control characters become '_', leading and trailing dots and spaces are
// dropped, everything else (whitespace and unicode included) is kept.
func SanitizeName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return '_'
		}
		if unicode.IsControl(r) {
			return '_'
		}
		return r
	}, s)
	s = strings.Trim(s, ". ")
	if s == "" {
		return Placeholder
	}
	return s
}

var nonSlug = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Slug lowercases s and joins its alphanumeric runs with '-'.
func Slug(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// BaseURL reduces a page url to scheme://host.
func BaseURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%q is not an absolute url", raw)
	}
	return u.Scheme + "://" + u.Host, nil
}

// ResolveURL resolves ref against base. A ref that does not parse is returned
// unchanged.
func ResolveURL(base, ref string) string {
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return r.String()
	}
	return b.ResolveReference(r).String()
}

func UrlJoinPath(base string, elem ...string) string {
	res, err := url.JoinPath(base, elem...)
	if err != nil {
		return strings.TrimRight(base, "/") + "/" + strings.Join(elem, "/")
	}
	return res
}

// FileNameFromURL returns the last path segment of raw without its query
// string, sanitized for the filesystem.
func FileNameFromURL(raw string) string {
	p := NormalizePath(strings.Split(raw, "?")[0])
	p = strings.Split(p, "#")[0]
	if u, err := url.Parse(p); err == nil {
		p = u.Path
	}
	name := path.Base(p)
	if name == "." || name == "/" {
		name = ""
	}
	return SanitizeName(name)
}

// FileNames maps attachment urls to the names they are saved under. Later
// urls whose name is already taken get a numeric suffix before the extension.
func FileNames(urls []string) []string {
	names := make([]string, len(urls))
	used := make(map[string]bool, len(urls))
	for i, u := range urls {
		name := FileNameFromURL(u)
		if used[strings.ToLower(name)] {
			ext := path.Ext(name)
			stem := strings.TrimSuffix(name, ext)
			for n := 2; ; n++ {
				candidate := fmt.Sprintf("%s_%d%s", stem, n, ext)
				if !used[strings.ToLower(candidate)] {
					name = candidate
					break
				}
			}
		}
		used[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}
