package scraper

import (
	"strings"

	"github.com/dimasma0305/ctfscrape/function/utils"
)

var categoryKeywords = []struct {
	Name     string
	Keywords []string
}{
	{"Pwn", []string{"pwn", "binary", "exploitation", "buffer", "overflow"}},
	{"Web", []string{"web", "webapp", "website", "http", "xss", "sqli"}},
	{"Crypto", []string{"crypto", "cryptography", "rsa", "aes", "cipher"}},
	{"Reverse", []string{"reverse", "rev", "reversing", "crackme", "re"}},
	{"Forensics", []string{"forensics", "forensic", "steganography", "stego", "pcap"}},
	{"Misc", []string{"misc", "miscellaneous", "trivia"}},
}

func lookupCategory(word string) string {
	for _, c := range categoryKeywords {
		for _, k := range c.Keywords {
			if word == k {
				return c.Name
			}
		}
	}
	return ""
}

// GuessCategory names the category of a challenge scraped from markup, where
// the page may not label it. A hint equal to a known keyword maps to its
// canonical name and any other hint is kept; without a hint the words of the
// challenge name are matched; DefaultCategory is the last resort.
func GuessCategory(name string, hint string) string {
	if hint = strings.TrimSpace(hint); hint != "" {
		if c := lookupCategory(strings.ToLower(hint)); c != "" {
			return c
		}
		return hint
	}
	for _, word := range strings.Split(utils.Slug(name), "-") {
		if c := lookupCategory(word); c != "" {
			return c
		}
	}
	return DefaultCategory
}
