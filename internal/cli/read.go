package cli

import (
	"context"
	"strings"

	"github.com/rcliao/plume/internal/manuscript"
	"github.com/rcliao/plume/internal/reader"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read the book in the terminal",
		Long:  "Open the assembled book in a full-screen reader. Without an active structure every published memory is its own chapter.",
		Run:   runRead,
	}

	cmd.Flags().String("theme", "", "Only memories matching a theme ("+strings.Join(manuscript.Themes(), ", ")+")")

	RootCmd.AddCommand(cmd)
}

// loadManuscript assembles the user's book from the active structure and
// published memories.
func loadManuscript(ctx context.Context, theme string) manuscript.Manuscript {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	b, err := s.LoadActive(ctx, getUser())
	if err != nil {
		exitErr("load structure", err)
	}
	memories, err := s.ListPublished(ctx, getUser())
	if err != nil {
		exitErr("load memories", err)
	}
	return manuscript.Build(b, memories, manuscript.View{Theme: theme})
}

func runRead(cmd *cobra.Command, args []string) {
	theme, _ := cmd.Flags().GetString("theme")

	ms := loadManuscript(cmd.Context(), theme)
	if textOutput() {
		printJSON(ms)
		return
	}
	if err := reader.Run(ms); err != nil {
		exitErr("reader", err)
	}
}
