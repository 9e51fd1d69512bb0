package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rcliao/plume/internal/export"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "pdf",
		Short: "Export the book as a PDF",
		Run:   runPDF,
	}

	cmd.Flags().StringP("out", "o", "", "Output file (required)")
	cmd.Flags().String("theme", "", "Only memories matching a theme")
	cmd.Flags().String("author", "", "Author name for the cover (default: profile first name)")
	cmd.Flags().Bool("verify", false, "Read the written file back and report its page count")

	cmd.MarkFlagRequired("out")

	RootCmd.AddCommand(cmd)
}

func runPDF(cmd *cobra.Command, args []string) {
	out, _ := cmd.Flags().GetString("out")
	theme, _ := cmd.Flags().GetString("theme")
	author, _ := cmd.Flags().GetString("author")
	verify, _ := cmd.Flags().GetBool("verify")

	c := getConfig()
	if author == "" {
		author = c.Profile.FirstName
	}
	log := newLogger()
	defer log.Sync()

	ms := loadManuscript(cmd.Context(), theme)

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		exitErr("create output dir", err)
	}
	f, err := os.Create(out)
	if err != nil {
		exitErr("create output", err)
	}

	e := &export.Exporter{
		Images:  export.NewFetcher(c.ImageTimeout()),
		MaxEdge: c.Images.MaxEdge,
		Log:     log,
	}
	res, err := e.Write(cmd.Context(), ms, export.Options{Author: author}, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		os.Remove(out)
		exitErr("pdf", err)
	}

	if verify {
		info, err := export.Inspect(out)
		if err != nil {
			exitErr("verify", err)
		}
		if info.Pages != res.Pages {
			exitErr("verify", fmt.Errorf("wrote %d pages, read back %d", res.Pages, info.Pages))
		}
		printJSON(struct {
			Path string `json:"path"`
			*export.Result
			Verified *export.Info `json:"verified"`
		}{out, res, info})
		return
	}

	printJSON(struct {
		Path string `json:"path"`
		*export.Result
	}{out, res})
}
