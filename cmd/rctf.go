/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/dimasma0305/ctfscrape/function/scraper"
	"github.com/spf13/cobra"
)

var rctfFlag scrapeCmdFlags

// rctfCmd represents the rctf command
var rctfCmd = &cobra.Command{
	Use:   "rctf [url]",
	Short: "Download RCTF challenges from url",
	Long: `Download RCTF challenges from url. The team token can be given with --team-token
or as the ?token= parameter of the login link.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runScrape(cmd, args, &rctfFlag, scraper.RCTF))
	},
}

func init() {
	rootCmd.AddCommand(rctfCmd)
	addScrapeFlags(rctfCmd, &rctfFlag)
	rctfCmd.Flags().StringVar(&rctfFlag.teamToken, "team-token", "", "your team token")
}
