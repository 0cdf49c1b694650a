// Package htmlutil turns challenge descriptions written in HTML into plain
// text and pulls the links out of them.
package htmlutil

import (
	"html"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dimasma0305/ctfscrape/function/utils"
)

const blockElements = "p, div, li, tr, pre, blockquote, h1, h2, h3, h4, h5, h6, table, ul, ol"

var (
	looksLikeHTML = regexp.MustCompile(`<[a-zA-Z/!][^>]*>`)
	blankLines    = regexp.MustCompile(`\n{3,}`)
)

// HTMLToText strips markup from s, keeping block boundaries as line breaks.
// Text without tags only gets its entities decoded.
func HTMLToText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	if !looksLikeHTML.MatchString(s) {
		return strings.TrimSpace(html.UnescapeString(s))
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(html.UnescapeString(s))
	}
	doc.Find("script, style").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find(blockElements).Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml("\n")
	})

	lines := strings.Split(doc.Text(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	text := strings.Join(lines, "\n")
	return strings.TrimSpace(blankLines.ReplaceAllString(text, "\n\n"))
}

// ExtractLinks returns the href of every anchor in s resolved against base,
// first occurrence order, without duplicates.
func ExtractLinks(s, base string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return nil
	}
	return linksIn(doc.Selection, base)
}

func linksIn(sel *goquery.Selection, base string) []string {
	var (
		links []string
		seen  = map[string]bool{}
	)
	sel.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		lower := strings.ToLower(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") {
			return
		}
		abs := utils.ResolveURL(base, href)
		if seen[abs] {
			return
		}
		seen[abs] = true
		links = append(links, abs)
	})
	return links
}

var pageExtensions = map[string]bool{
	"":      true,
	".html": true,
	".htm":  true,
	".php":  true,
	".asp":  true,
	".aspx": true,
}

// IsFileLink reports whether link points at something downloadable: its last
// path segment carries an extension that is not a web page.
func IsFileLink(link string) bool {
	p := strings.Split(strings.Split(link, "?")[0], "#")[0]
	if i := strings.Index(p, "://"); i >= 0 {
		rest := p[i+3:]
		slash := strings.Index(rest, "/")
		if slash < 0 {
			return false
		}
		p = rest[slash:]
	}
	return !pageExtensions[strings.ToLower(path.Ext(path.Base(p)))]
}

// FileLinks is ExtractLinks filtered down to downloadable files.
func FileLinks(s, base string) []string {
	var files []string
	for _, link := range ExtractLinks(s, base) {
		if IsFileLink(link) {
			files = append(files, link)
		}
	}
	return files
}

// SelectionLinks is ExtractLinks over an already parsed fragment.
func SelectionLinks(sel *goquery.Selection, base string) []string {
	return linksIn(sel, base)
}
