package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rcliao/plume/internal/model"
	"github.com/rcliao/plume/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export memories as JSON",
		Long: "Export the user's live memories as JSON, oldest first. The output can be fed back to import, " +
			"which keeps ids so saved book structures still resolve.",
		Run: runExport,
	}

	cmd.Flags().String("status", "", "Only memories with this status (draft or published)")
	cmd.Flags().StringP("out", "o", "", "Write to a file instead of stdout")

	RootCmd.AddCommand(cmd)
}

// exportMemories lists what export writes for the user.
func exportMemories(ctx context.Context, s *store.SQLiteStore, userID, status string) ([]model.Memory, error) {
	if status == "" {
		return s.ExportAll(ctx, userID)
	}
	if !model.ValidStatuses[status] {
		return nil, fmt.Errorf("invalid status %q", status)
	}
	return s.List(ctx, store.ListParams{UserID: userID, Status: status})
}

func writeExport(w io.Writer, memories []model.Memory) error {
	if memories == nil {
		memories = []model.Memory{}
	}
	b, err := json.MarshalIndent(memories, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func runExport(cmd *cobra.Command, args []string) {
	status, _ := cmd.Flags().GetString("status")
	out, _ := cmd.Flags().GetString("out")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	memories, err := exportMemories(cmd.Context(), s, getUser(), status)
	if err != nil {
		exitErr("export", err)
	}

	if out == "" {
		if err := writeExport(os.Stdout, memories); err != nil {
			exitErr("export", err)
		}
		return
	}

	f, err := os.Create(out)
	if err != nil {
		exitErr("create output", err)
	}
	err = writeExport(f, memories)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		exitErr("export", err)
	}
	fmt.Printf(`{"ok":true,"path":%q,"exported":%d}`+"\n", out, len(memories))
}
