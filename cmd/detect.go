/*
Copyright © 2023 dimas maulana dimasmaulana0305@gmail.com
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/dimasma0305/ctfscrape/function/config"
	"github.com/dimasma0305/ctfscrape/function/creds"
	"github.com/dimasma0305/ctfscrape/function/detect"
	"github.com/dimasma0305/ctfscrape/function/log"
	"github.com/dimasma0305/ctfscrape/function/utils"
	"github.com/hokaccha/go-prettyjson"
	"github.com/spf13/cobra"
)

var detectFlag struct {
	cookie   string
	insecure bool
	json     bool
	timeout  int
}

// detectCmd represents the detect command
var detectCmd = &cobra.Command{
	Use:   "detect <url>",
	Short: "Print which CTF platform a site runs",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		base, err := utils.BaseURL(args[0])
		if err != nil {
			log.Fatal(err)
		}
		credentials, err := creds.Load(detectFlag.cookie, "")
		if err != nil {
			log.Fatal(err)
		}
		opts := config.Default()
		opts.Insecure = detectFlag.insecure
		opts.ProbeTimeoutSeconds = detectFlag.timeout

		platform := detect.Detect(ctx, args[0], newClient(opts, credentials))
		if !detectFlag.json {
			fmt.Println(platform)
			return
		}
		out, err := prettyjson.Marshal(map[string]string{
			"url":      args[0],
			"base":     base,
			"platform": platform.String(),
		})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(string(out))
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)
	detectCmd.Flags().StringVarP(&detectFlag.cookie, "cookie", "c", "", "Cookie string or @file")
	detectCmd.Flags().BoolVarP(&detectFlag.insecure, "insecure", "k", false, "Skip TLS certificate verification")
	detectCmd.Flags().BoolVar(&detectFlag.json, "json", false, "Print the result as json")
	detectCmd.Flags().IntVar(&detectFlag.timeout, "timeout", config.Default().ProbeTimeoutSeconds, "Probe timeout in seconds")
}
