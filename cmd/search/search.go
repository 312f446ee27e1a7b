package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mangalib-app/mangalib/catalog"
	"github.com/mangalib-app/mangalib/cmd"
	"github.com/mangalib-app/mangalib/sources"
)

var (
	flagType    string
	flagSource  string
	flagLimit   int
	flagTimeout time.Duration
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run one aggregated search and print the result as JSON",
	Args:  cobra.MinimumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		run(strings.Join(args, " "))
	},
}

func init() {
	searchCmd.Flags().StringVar(&flagType, "type", "all", "content type filter (manga, manhwa, manhua, webtoon, oneshot, lightnovel)")
	searchCmd.Flags().StringVar(&flagSource, "source", "all", "restrict the search to one source")
	searchCmd.Flags().IntVar(&flagLimit, "limit", catalog.DefaultLimit, "maximum results")
	searchCmd.Flags().DurationVar(&flagTimeout, "timeout", 10*time.Second, "per-source fetch timeout")
	cmd.RootCmd.AddCommand(searchCmd)
}

func run(query string) {
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	registry := catalog.NewRegistry(sources.All(flagTimeout)...)
	agg := catalog.NewAggregator(registry, log)

	ctx, cancel := context.WithTimeout(context.Background(), flagTimeout+5*time.Second)
	defer cancel()

	result := agg.Search(ctx, query, catalog.SearchOptions{
		Type:   flagType,
		Source: flagSource,
		Limit:  flagLimit,
	})

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Error("encoding result", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
