package templater

import (
	"bytes"
	"embed"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/dimasma0305/ctfscrape/function/scraper"
	"github.com/dimasma0305/ctfscrape/function/utils"
)

const ChallengeFile = "challenge.txt"

var (
	//go:embed template/*
	TemplateFile embed.FS

	funcs = template.FuncMap{"join": strings.Join}
)

type challengeView struct {
	*scraper.Challenge
	Files []string
}

func templater(src string, obj interface{}) ([]byte, error) {
	var buf bytes.Buffer
	file, err := template.New(filepath.Base(src)).Funcs(funcs).ParseFS(TemplateFile, src)
	if err != nil {
		return nil, err
	}
	if err := file.Execute(&buf, obj); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Render produces challenge.txt for c. Files lists the attachment names as
// they are saved under files/.
func Render(c *scraper.Challenge) ([]byte, error) {
	view := challengeView{Challenge: c, Files: utils.FileNames(c.Attachments)}
	return templater("template/"+ChallengeFile, view)
}

// make challenge.txt from the embedded template and put it in dstFolder
func WriteChallenge(dstFolder string, c *scraper.Challenge) error {
	data, err := Render(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dstFolder, ChallengeFile), data, 0644)
}
