package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rcliao/plume/internal/model"
	"github.com/rcliao/plume/internal/store"
	"github.com/spf13/cobra"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Write and manage memories",
}

func init() {
	cmd := &cobra.Command{
		Use:   "put [content]",
		Short: "Store a memory",
		Long:  "Store a memory. Content can be a positional arg or piped via stdin.",
		Run:   runPut,
	}

	cmd.Flags().StringP("title", "t", "", "Title (required)")
	cmd.Flags().String("status", model.StatusDraft, "Status: draft or published")
	cmd.Flags().String("dates", "", "Comma-separated dates")
	cmd.Flags().String("characters", "", "Comma-separated people")
	cmd.Flags().String("tags", "", "Comma-separated tags")
	cmd.Flags().String("photos", "", "Comma-separated photo URLs or paths")

	cmd.MarkFlagRequired("title")

	memoryCmd.AddCommand(cmd)
	RootCmd.AddCommand(memoryCmd)
}

// readContent takes the positional args, or stdin when it is piped.
func readContent(args []string) string {
	if len(args) > 0 {
		return strings.Join(args, " ")
	}
	stat, _ := os.Stdin.Stat()
	if stat != nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		b, err := readAllStdin()
		if err != nil {
			exitErr("read stdin", err)
		}
		return string(b)
	}
	return ""
}

func metadataFlags(cmd *cobra.Command) model.Metadata {
	dates, _ := cmd.Flags().GetString("dates")
	characters, _ := cmd.Flags().GetString("characters")
	tags, _ := cmd.Flags().GetString("tags")
	photos, _ := cmd.Flags().GetString("photos")
	return model.Metadata{
		Dates:      splitList(dates),
		Characters: splitList(characters),
		Tags:       splitList(tags),
		Photos:     splitList(photos),
	}
}

func runPut(cmd *cobra.Command, args []string) {
	title, _ := cmd.Flags().GetString("title")
	status, _ := cmd.Flags().GetString("status")

	content := readContent(args)
	if strings.TrimSpace(content) == "" {
		exitErr("put", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	mem, err := s.Put(cmd.Context(), store.PutParams{
		UserID:   getUser(),
		Title:    strings.TrimSpace(title),
		Content:  strings.TrimSpace(content),
		Status:   status,
		Metadata: metadataFlags(cmd),
	})
	if err != nil {
		exitErr("put", err)
	}

	printJSON(mem)
}

func readAllStdin() ([]byte, error) {
	return io.ReadAll(os.Stdin)
}
