package cli

import (
	"fmt"

	"github.com/rcliao/plume/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memories, oldest first",
		Run:   runList,
	}

	cmd.Flags().String("status", "", "Filter by status")
	cmd.Flags().StringP("tags", "t", "", "Filter by tags (comma-separated)")
	cmd.Flags().IntP("limit", "l", 0, "Max results (0 for all)")
	cmd.Flags().Bool("ids-only", false, "Only output id and title")

	memoryCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	status, _ := cmd.Flags().GetString("status")
	tags, _ := cmd.Flags().GetString("tags")
	limit, _ := cmd.Flags().GetInt("limit")
	idsOnly, _ := cmd.Flags().GetBool("ids-only")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	memories, err := s.List(cmd.Context(), store.ListParams{
		UserID: getUser(),
		Status: status,
		Tags:   splitList(tags),
		Limit:  limit,
	})
	if err != nil {
		exitErr("list", err)
	}

	if textOutput() {
		for _, m := range memories {
			fmt.Printf("%s  %-9s  %s  %s\n", m.ID, m.Status, m.CreatedAt.Format("2006-01-02"), m.Title)
		}
		return
	}

	if idsOnly {
		type entry struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		}
		out := make([]entry, len(memories))
		for i, m := range memories {
			out[i] = entry{ID: m.ID, Title: m.Title}
		}
		printJSON(out)
		return
	}

	if len(memories) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(memories)
}
