package ctfd

import (
	"github.com/dimasma0305/ctfscrape/function/scraper"
)

// ChallengeInfo is one entry of /api/v1/challenges.
type ChallengeInfo struct {
	Id       scraper.Text     `json:"id"`
	Name     scraper.Text     `json:"name"`
	Category scraper.Text     `json:"category"`
	Value    scraper.Score    `json:"value"`
	Solves   scraper.Score    `json:"solves"`
	Tags     scraper.TextList `json:"tags"`
	Type     string           `json:"type"`
}

func (ci ChallengeInfo) stub() scraper.Stub {
	return scraper.Stub{
		ID:       string(ci.Id),
		Name:     string(ci.Name),
		Category: string(ci.Category),
		Points:   ci.Value,
		Solves:   ci.Solves,
		Tags:     ci.Tags,
	}
}

// ChallengeFullInfo is the payload of /api/v1/challenges/{id}.
type ChallengeFullInfo struct {
	Id              scraper.Text     `json:"id"`
	Name            scraper.Text     `json:"name"`
	Description     string           `json:"description"`
	Category        scraper.Text     `json:"category"`
	Tags            scraper.TextList `json:"tags"`
	Value           scraper.Score    `json:"value"`
	Connection_Info scraper.Text     `json:"connection_info"`
	Attribution     scraper.Text     `json:"attribution"`
	Solves          scraper.Score    `json:"solves"`
	Files           []fileUrl        `json:"files"`
}

func (cfi *ChallengeFullInfo) detail(base string) *scraper.Detail {
	files := make([]string, 0, len(cfi.Files))
	for _, f := range cfi.Files {
		files = append(files, f.Resolve(base))
	}
	return &scraper.Detail{
		Description: cfi.Description,
		Tags:        cfi.Tags,
		Attachments: files,
		Points:      cfi.Value,
		Solves:      cfi.Solves,
		Author:      string(cfi.Attribution),
		Connection:  string(cfi.Connection_Info),
	}
}
