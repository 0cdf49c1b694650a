package engine

import (
	"github.com/dimasma0305/ctfscrape/function/scraper"
	"github.com/dimasma0305/ctfscrape/function/scraper/ctfd"
	"github.com/dimasma0305/ctfscrape/function/scraper/generic"
	"github.com/dimasma0305/ctfscrape/function/scraper/mellivora"
	"github.com/dimasma0305/ctfscrape/function/scraper/picoctf"
	"github.com/dimasma0305/ctfscrape/function/scraper/rctf"
)

// NewAdapter picks the adapter for p. Unknown gets the html scraper, which
// reads pageURL rather than the site root.
func NewAdapter(p scraper.Platform, baseURL, pageURL string, f scraper.Fetcher, workers int) scraper.Adapter {
	switch p {
	case scraper.CTFd:
		return ctfd.New(baseURL, f)
	case scraper.PicoCTF:
		return picoctf.New(baseURL, f, workers)
	case scraper.RCTF:
		return rctf.New(baseURL, f)
	case scraper.Mellivora:
		return mellivora.New(baseURL, f)
	}
	return generic.New(pageURL, f)
}
