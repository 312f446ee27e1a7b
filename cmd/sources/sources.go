package sources

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mangalib-app/mangalib/cmd"
	srcs "github.com/mangalib-app/mangalib/sources"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the registered sources and their capabilities",
	Run: func(_ *cobra.Command, _ []string) {
		for _, s := range srcs.All(10 * time.Second) {
			capability := "chapters + pages"
			if !s.HasChapters() {
				capability = "metadata only"
			}
			fmt.Printf("%-12s %s\n", s.Name(), capability)
		}
	},
}

func init() {
	cmd.RootCmd.AddCommand(sourcesCmd)
}
