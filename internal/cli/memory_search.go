package cli

import (
	"fmt"
	"strings"

	"github.com/rcliao/plume/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search memories by keyword",
		Long:  "Search memory titles, content, and chunks for matching text.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().String("status", "", "Filter by status")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	memoryCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	results, err := s.Search(cmd.Context(), store.SearchParams{
		UserID: getUser(),
		Query:  query,
		Status: status,
		Limit:  limit,
	})
	if err != nil {
		exitErr("search", err)
	}

	if len(results) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(results)
}
