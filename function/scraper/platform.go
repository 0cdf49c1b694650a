package scraper

import (
	"fmt"
	"strings"
)

type Platform string

const (
	CTFd      Platform = "ctfd"
	PicoCTF   Platform = "picoctf"
	RCTF      Platform = "rctf"
	Mellivora Platform = "mellivora"
	Unknown   Platform = "unknown"
)

// ParsePlatform maps a user supplied name to a platform tag. "auto" and the
// empty string give Unknown with auto=true, "generic" gives Unknown.
func ParsePlatform(s string) (p Platform, auto bool, err error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return Unknown, true, nil
	case "ctfd":
		return CTFd, false, nil
	case "picoctf", "pico":
		return PicoCTF, false, nil
	case "rctf":
		return RCTF, false, nil
	case "mellivora":
		return Mellivora, false, nil
	case "generic", "unknown", "html":
		return Unknown, false, nil
	}
	return Unknown, false, fmt.Errorf("unknown platform %q", s)
}

func (p Platform) String() string { return string(p) }
