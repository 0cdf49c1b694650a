/*
Copyright © 2023 dimas maulana dimasmaulana0305@gmail.com
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dimasma0305/ctfscrape/function/client"
	"github.com/dimasma0305/ctfscrape/function/config"
	"github.com/dimasma0305/ctfscrape/function/creds"
	"github.com/dimasma0305/ctfscrape/function/detect"
	"github.com/dimasma0305/ctfscrape/function/engine"
	"github.com/dimasma0305/ctfscrape/function/log"
	"github.com/dimasma0305/ctfscrape/function/ratelimit"
	"github.com/dimasma0305/ctfscrape/function/retry"
	"github.com/dimasma0305/ctfscrape/function/scraper"
	"github.com/dimasma0305/ctfscrape/function/scraper/ctfd"
	"github.com/dimasma0305/ctfscrape/function/scraper/rctf"
	"github.com/dimasma0305/ctfscrape/function/utils"
	"github.com/spf13/cobra"
)

const (
	exitOK        = 0
	exitFailure   = 1
	exitAuth      = 2
	exitInterrupt = 130
)

type scrapeCmdFlags struct {
	configPath     string
	url            string
	output         string
	platform       string
	cookie         string
	token          string
	teamToken      string
	username       string
	password       string
	category       string
	headers        []string
	workers        int
	maxConnections int
	timeout        int
	rateLimit      float64
	retries        int
	noSkip         bool
	dryRun         bool
	verbose        bool
	insecure       bool
	noGeneric      bool
	noProgress     bool
}

var scrapeFlag scrapeCmdFlags

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape [url]",
	Short: "Download every challenge of a CTF, detecting the platform",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runScrape(cmd, args, &scrapeFlag, ""))
	},
}

func addScrapeFlags(cmd *cobra.Command, f *scrapeCmdFlags) {
	d := config.Default()
	cmd.Flags().StringVar(&f.configPath, "config", "", "YAML config file")
	cmd.Flags().StringVarP(&f.url, "url", "u", "", "CTF platform url to get")
	cmd.Flags().StringVarP(&f.output, "output", "O", d.OutputDir, "Output directory")
	cmd.Flags().StringVarP(&f.cookie, "cookie", "c", "", "Cookie string \"k1=v1; k2=v2\" or @file (default $"+creds.CookieEnv+")")
	cmd.Flags().StringVarP(&f.token, "token", "t", "", "Bearer token or @file (default $"+creds.TokenEnv+")")
	cmd.Flags().StringVar(&f.category, "filter-category", "", "Only scrape challenges of this category")
	cmd.Flags().StringArrayVarP(&f.headers, "header", "H", nil, "Extra request header \"Name: value\" (repeatable)")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", d.MaxWorkers, "Challenges processed in parallel")
	cmd.Flags().IntVar(&f.maxConnections, "max-connections", d.MaxConnections, "Cap on concurrent requests (0 = 2 x workers)")
	cmd.Flags().IntVar(&f.timeout, "timeout", d.TimeoutSeconds, "Request timeout in seconds")
	cmd.Flags().Float64Var(&f.rateLimit, "rate-limit", d.RateLimit, "Requests per second (0 = unlimited)")
	cmd.Flags().IntVar(&f.retries, "retries", d.Retries, "Attempts per request")
	cmd.Flags().BoolVar(&f.noSkip, "no-skip", false, "Re-download challenges and files that already exist")
	cmd.Flags().BoolVarP(&f.dryRun, "dry-run", "n", false, "List challenges without writing anything")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Make the log more verbose")
	cmd.Flags().BoolVarP(&f.insecure, "insecure", "k", false, "Skip TLS certificate verification")
	cmd.Flags().BoolVar(&f.noGeneric, "no-generic", false, "Fail instead of falling back to html scraping")
	cmd.Flags().BoolVar(&f.noProgress, "no-progress", false, "Hide the progress bar")
}

// addPlatformFlags adds the flags only the auto-detecting command has.
func addPlatformFlags(cmd *cobra.Command, f *scrapeCmdFlags) {
	cmd.Flags().StringVarP(&f.platform, "platform", "P", "auto", "auto, ctfd, picoctf, rctf, mellivora or generic (html)")
	cmd.Flags().StringVar(&f.teamToken, "team-token", "", "rCTF team token, exchanged for an auth token")
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
	addScrapeFlags(scrapeCmd, &scrapeFlag)
	addPlatformFlags(scrapeCmd, &scrapeFlag)
}

// loadOptions merges the config file with the flags the user actually set.
func loadOptions(cmd *cobra.Command, args []string, f *scrapeCmdFlags) (*config.Options, error) {
	opts, found, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.configPath != "" && !found {
		log.Warn("config file %s not found, using defaults", f.configPath)
	}
	set := cmd.Flags().Changed
	if len(args) > 0 {
		opts.Url = args[0]
	} else if set("url") || opts.Url == "" {
		opts.Url = f.url
	}
	if set("output") {
		opts.OutputDir = f.output
	}
	if set("platform") {
		opts.Platform = f.platform
	}
	if set("cookie") {
		opts.Auth.Cookie = f.cookie
	}
	if set("token") {
		opts.Auth.Token = f.token
	}
	if set("team-token") {
		opts.Auth.TeamToken = f.teamToken
	}
	if set("workers") {
		opts.MaxWorkers = f.workers
	}
	if set("max-connections") {
		opts.MaxConnections = f.maxConnections
	}
	if set("timeout") {
		opts.TimeoutSeconds = f.timeout
	}
	if set("rate-limit") {
		opts.RateLimit = f.rateLimit
	}
	if set("retries") {
		opts.Retries = f.retries
	}
	if set("no-skip") {
		opts.SkipExisting = !f.noSkip
	}
	if set("dry-run") {
		opts.DryRun = f.dryRun
	}
	if set("insecure") {
		opts.Insecure = f.insecure
	}
	if set("no-generic") {
		opts.GenericFallback = !f.noGeneric
	}
	for _, h := range f.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("bad header %q, want \"Name: value\"", h)
		}
		if opts.Headers == nil {
			opts.Headers = map[string]string{}
		}
		opts.Headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return opts, opts.Validate()
}

func newClient(opts *config.Options, c *creds.Credentials) *client.Client {
	limiter := ratelimit.New(opts.RateLimit)
	if limiter.Enabled() {
		log.Debug("rate limit: %g requests/s", opts.RateLimit)
	}
	return client.New(client.Options{
		UserAgent:       opts.UserAgent,
		Headers:         opts.Headers,
		Cookies:         c.Cookies,
		Token:           c.Token,
		Timeout:         opts.Timeout(),
		ProbeTimeout:    opts.ProbeTimeout(),
		DownloadTimeout: 10 * opts.Timeout(),
		Insecure:        opts.Insecure,
		MaxConcurrent:   opts.Connections(),
		Limiter:         limiter,
		Retry:           retry.Policy{Attempts: opts.Retries, BaseDelay: opts.RetryDelay()},
	})
}

// runScrape does the whole run and returns the process exit code. forced, when
// set, skips detection.
func runScrape(cmd *cobra.Command, args []string, f *scrapeCmdFlags, forced scraper.Platform) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return scrape(ctx, cmd, args, f, forced)
}

func scrape(ctx context.Context, cmd *cobra.Command, args []string, f *scrapeCmdFlags, forced scraper.Platform) int {
	opts, err := loadOptions(cmd, args, f)
	if err != nil {
		log.Error("%v", err)
		return exitFailure
	}

	// rCTF login links carry the team token
	if opts.Auth.TeamToken == "" && strings.Contains(opts.Url, "token=") {
		if base, token, err := rctf.TokenFromURL(opts.Url); err == nil {
			opts.Url, opts.Auth.TeamToken = base, token
			if forced == "" && opts.Platform == "auto" {
				forced = scraper.RCTF
			}
		}
	}
	base, err := utils.BaseURL(opts.Url)
	if err != nil {
		log.Error("%v", err)
		return exitFailure
	}

	credentials, err := creds.Load(opts.Auth.Cookie, opts.Auth.Token)
	if err != nil {
		log.Error("%v", err)
		return exitFailure
	}
	if f.username != "" {
		log.Info("logging in as %s", f.username)
		cookies, err := ctfd.Login(ctx, base, &ctfd.Creds{Username: f.username, Password: f.password}, opts.UserAgent, opts.Insecure)
		if err != nil {
			log.Error("login failed: %v", err)
			return exitAuth
		}
		for k, v := range cookies {
			credentials.Cookies[k] = v
		}
	}
	if opts.Auth.TeamToken != "" {
		token, err := rctf.ExchangeTeamToken(ctx, base, opts.Auth.TeamToken, opts.UserAgent, opts.Insecure)
		if err != nil {
			log.Error("rctf login failed: %v", err)
			return exitAuth
		}
		credentials.Token = token
	}
	if !credentials.Empty() {
		log.Debug("cookies: %s", strings.Join(credentials.Names(), ", "))
	}
	c := newClient(opts, credentials)

	platform := forced
	if platform == "" {
		p, auto, err := scraper.ParsePlatform(opts.Platform)
		if err != nil {
			log.Error("%v", err)
			return exitFailure
		}
		platform = p
		if auto {
			log.Info("detecting platform of %s", base)
			platform = detect.Detect(ctx, opts.Url, c)
			if ctx.Err() != nil {
				return exitInterrupt
			}
			if platform == scraper.Unknown {
				if !opts.GenericFallback {
					log.Error("could not detect the platform of %s", opts.Url)
					return exitFailure
				}
				log.Warn("unknown platform, falling back to html scraping")
			}
		}
	}
	log.Info("platform: %s", platform)

	cfg := engine.Config{
		OutputDir:    opts.OutputDir,
		SkipExisting: opts.SkipExisting,
		DryRun:       opts.DryRun,
		Verbose:      f.verbose,
		Category:     f.category,
		Workers:      opts.MaxWorkers,
		Retry:        retry.Policy{Attempts: opts.Retries, BaseDelay: opts.RetryDelay()},
	}
	if !f.noProgress {
		cfg.Progress = os.Stderr
	}

	adapter := engine.NewAdapter(platform, base, opts.Url, c, opts.MaxWorkers)
	sum, err := engine.New(adapter, c, cfg).Run(ctx)
	if err != nil && client.IsMalformed(err) && platform != scraper.Unknown && opts.GenericFallback {
		log.Warn("%s api answered unexpectedly (%v), falling back to html scraping", platform, err)
		adapter = engine.NewAdapter(scraper.Unknown, base, opts.Url, c, opts.MaxWorkers)
		sum, err = engine.New(adapter, c, cfg).Run(ctx)
	}
	if err != nil {
		switch {
		case ctx.Err() != nil:
			log.Warn("interrupted")
			return exitInterrupt
		case client.IsAuth(err):
			log.Error("%v", err)
			log.ErrorH2("pass a fresh session with --cookie or --token")
			return exitAuth
		}
		log.Error("%v", err)
		return exitFailure
	}

	printSummary(sum)
	if sum.Interrupted {
		log.Warn("interrupted, run the same command again to resume")
		return exitInterrupt
	}
	return exitOK
}

func printSummary(sum *engine.Summary) {
	log.Info("summary (%s)", sum.Platform)
	log.InfoH2("total:   %d", sum.Total)
	log.InfoH2("success: %d", sum.Success)
	log.InfoH2("failed:  %d", sum.Failed)
	log.InfoH2("skipped: %d", sum.Skipped)
	if sum.Files > 0 || sum.FilesFailed > 0 {
		log.InfoH2("files:   %d downloaded, %d failed", sum.Files, sum.FilesFailed)
	}
}
