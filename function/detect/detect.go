// Package detect works out which platform a CTF site runs by probing a fixed
// list of api fingerprints.
package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/dimasma0305/ctfscrape/function/client"
	"github.com/dimasma0305/ctfscrape/function/log"
	"github.com/dimasma0305/ctfscrape/function/scraper"
	"github.com/dimasma0305/ctfscrape/function/utils"
)

// Prober sends one request and reports the raw answer.
type Prober interface {
	Probe(ctx context.Context, url string) (*client.ProbeResult, error)
}

type fingerprint struct {
	platform scraper.Platform
	path     string
	match    func(status int, body []byte) bool
}

var fingerprints = []fingerprint{
	{scraper.CTFd, "/api/v1/challenges", isCTFd},
	{scraper.RCTF, "/api/v1/challs", isRCTF},
	{scraper.Mellivora, "/api/challenges.php", isMellivora},
	{scraper.PicoCTF, "/api/challenges", isPicoStyle},
}

// Detect returns the platform behind rawURL, or scraper.Unknown. The domain
// heuristic runs first and costs no request; after that each candidate gets
// exactly one probe and any failure just means no match.
func Detect(ctx context.Context, rawURL string, p Prober) scraper.Platform {
	if u, err := url.Parse(rawURL); err == nil && strings.Contains(strings.ToLower(u.Hostname()), "picoctf") {
		log.DebugH2("picoctf domain, skipping probes")
		return scraper.PicoCTF
	}
	base, err := utils.BaseURL(rawURL)
	if err != nil {
		log.DebugH2("cannot probe %s: %v", rawURL, err)
		return scraper.Unknown
	}
	for _, fp := range fingerprints {
		if ctx.Err() != nil {
			return scraper.Unknown
		}
		res, err := p.Probe(ctx, utils.UrlJoinPath(base, fp.path))
		if err != nil {
			log.DebugH2("probe %s: %v", fp.path, err)
			continue
		}
		if fp.match(res.Status, res.Body) {
			return fp.platform
		}
		log.DebugH2("probe %s: status %d, no match", fp.path, res.Status)
	}
	return scraper.Unknown
}

func jsonObject(body []byte) map[string]json.RawMessage {
	var obj map[string]json.RawMessage
	if json.Unmarshal(bytes.TrimSpace(body), &obj) != nil {
		return nil
	}
	return obj
}

func isCTFd(status int, body []byte) bool {
	if status != http.StatusOK {
		return false
	}
	obj := jsonObject(body)
	_, success := obj["success"]
	_, data := obj["data"]
	return success || data
}

// rCTF answers unauthenticated requests with a 401 that still carries the
// kind envelope, so any status counts.
func isRCTF(_ int, body []byte) bool {
	obj := jsonObject(body)
	var kind string
	return obj != nil && json.Unmarshal(obj["kind"], &kind) == nil && kind != ""
}

func isMellivora(status int, body []byte) bool {
	if status != http.StatusOK {
		return false
	}
	var list []map[string]json.RawMessage
	if json.Unmarshal(bytes.TrimSpace(body), &list) != nil {
		return false
	}
	for _, item := range list {
		_, title := item["title"]
		_, category := item["category"]
		if title || category {
			return true
		}
	}
	return false
}

func isPicoStyle(status int, body []byte) bool {
	if status != http.StatusOK {
		return false
	}
	var list []json.RawMessage
	if json.Unmarshal(bytes.TrimSpace(body), &list) == nil {
		return true
	}
	_, results := jsonObject(body)["results"]
	return results
}
