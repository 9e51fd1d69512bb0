package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the generation cache",
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop the user's cached structure drafts",
		Run:   runCacheClear,
	}
	clearCmd.Flags().Bool("all", false, "Drop the drafts of every user")

	cacheCmd.AddCommand(clearCmd)
	RootCmd.AddCommand(cacheCmd)
}

func runCacheClear(cmd *cobra.Command, args []string) {
	all, _ := cmd.Flags().GetBool("all")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if all {
		if err := s.Cache().Clear(cmd.Context()); err != nil {
			exitErr("cache clear", err)
		}
		fmt.Println(`{"ok":true,"scope":"all"}`)
		return
	}

	n, err := s.ClearUserCache(cmd.Context(), getUser())
	if err != nil {
		exitErr("cache clear", err)
	}
	fmt.Printf(`{"ok":true,"user":%q,"removed":%d}`+"\n", getUser(), n)
}
