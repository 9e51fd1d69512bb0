package cli

import (
	"strings"

	"github.com/rcliao/plume/internal/model"
	"github.com/rcliao/plume/internal/store"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "update [id] [content]",
		Short: "Update a memory",
		Long:  "Update a memory. Only the given fields change. New content can be a positional arg or piped via stdin.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runUpdate,
	}

	cmd.Flags().StringP("title", "t", "", "New title")
	cmd.Flags().String("status", "", "New status")
	cmd.Flags().String("dates", "", "Comma-separated dates")
	cmd.Flags().String("characters", "", "Comma-separated people")
	cmd.Flags().String("tags", "", "Comma-separated tags")
	cmd.Flags().String("photos", "", "Comma-separated photo URLs or paths")

	memoryCmd.AddCommand(cmd)

	publish := &cobra.Command{
		Use:   "publish [id]",
		Short: "Mark a memory as published so it can be used in the book",
		Args:  cobra.ExactArgs(1),
		Run:   runPublish,
	}
	publish.Flags().Bool("undo", false, "Move the memory back to draft")

	memoryCmd.AddCommand(publish)
}

func runUpdate(cmd *cobra.Command, args []string) {
	p := store.UpdateParams{UserID: getUser(), ID: args[0]}

	if cmd.Flags().Changed("title") {
		title, _ := cmd.Flags().GetString("title")
		title = strings.TrimSpace(title)
		p.Title = &title
	}
	if cmd.Flags().Changed("status") {
		status, _ := cmd.Flags().GetString("status")
		p.Status = &status
	}
	if content := strings.TrimSpace(readContent(args[1:])); content != "" {
		p.Content = &content
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if metaChanged(cmd) {
		cur, err := s.Get(cmd.Context(), p.UserID, p.ID)
		if err != nil {
			exitErr("update", err)
		}
		meta := mergeMetadata(cmd, cur.Metadata)
		p.Metadata = &meta
	}

	mem, err := s.Update(cmd.Context(), p)
	if err != nil {
		exitErr("update", err)
	}
	printJSON(mem)
}

func metaChanged(cmd *cobra.Command) bool {
	for _, name := range []string{"dates", "characters", "tags", "photos"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

// mergeMetadata replaces the fields whose flags were given.
func mergeMetadata(cmd *cobra.Command, cur model.Metadata) model.Metadata {
	next := metadataFlags(cmd)
	if cmd.Flags().Changed("dates") {
		cur.Dates = next.Dates
	}
	if cmd.Flags().Changed("characters") {
		cur.Characters = next.Characters
	}
	if cmd.Flags().Changed("tags") {
		cur.Tags = next.Tags
	}
	if cmd.Flags().Changed("photos") {
		cur.Photos = next.Photos
	}
	return cur
}

func runPublish(cmd *cobra.Command, args []string) {
	undo, _ := cmd.Flags().GetBool("undo")
	status := model.StatusPublished
	if undo {
		status = model.StatusDraft
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	mem, err := s.Update(cmd.Context(), store.UpdateParams{UserID: getUser(), ID: args[0], Status: &status})
	if err != nil {
		exitErr("publish", err)
	}
	printJSON(mem)
}
