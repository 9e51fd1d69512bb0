package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Retrieve a memory",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	memoryCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	mem, err := s.Get(cmd.Context(), getUser(), args[0])
	if err != nil {
		exitErr("get", err)
	}

	if textOutput() {
		fmt.Printf("# %s\n\n%s\n", mem.Title, mem.Content)
		return
	}
	printJSON(mem)
}
