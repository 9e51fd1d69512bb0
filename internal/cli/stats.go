package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), getDBPath(), getUser())
	if err != nil {
		exitErr("stats", err)
	}

	if textOutput() {
		fmt.Printf("%s (%s)\n", stats.DBPath, stats.DBSize)
		fmt.Printf("memories: %d published, %d draft, %d deleted\n",
			stats.PublishedMemories, stats.DraftMemories, stats.DeletedMemories)
		fmt.Printf("structures: %d, cache entries: %d\n", stats.Structures, stats.CacheEntries)
		if stats.LastMemoryRelative != "" {
			fmt.Printf("last memory: %s\n", stats.LastMemoryRelative)
		}
		return
	}
	printJSON(stats)
}
