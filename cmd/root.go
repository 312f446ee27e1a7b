package cmd

import (
	"github.com/spf13/cobra"
	"os"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "mangalib",
	Short: "Aggregate manga, manhwa and webtoon content from multiple sources",
	Long: `
 A multi-source manga aggregation server. Searches eight upstream sources
 (MangaDex, Manga Plus, Webtoons, TuManga, AniList, Jikan, VisorManga and
 MangaLector) concurrently, normalizes everything into one schema and serves
 it over a small read-only HTTP API.

 Typical usage:
   ./mangalib serve
   ./mangalib search "solo leveling" --source all --limit 5
   ./mangalib sources
`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			_ = cmd.Help()
			os.Exit(0)
		}
	},
}

func Execute() {
	err := RootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
