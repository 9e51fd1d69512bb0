package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rcliao/plume/internal/book"
	"github.com/rcliao/plume/internal/model"
	"github.com/rcliao/plume/internal/plumeerr"
	"github.com/spf13/cobra"
)

var bookCmd = &cobra.Command{
	Use:   "book",
	Short: "Generate and manage book structures",
}

func init() {
	show := &cobra.Command{
		Use:   "show",
		Short: "Show the active book structure",
		Run:   runBookShow,
	}

	activate := &cobra.Command{
		Use:   "activate",
		Short: "Make a structure the active one",
		Long:  "Activate a structure from a JSON file (as produced by book generate or book show), or re-activate one from history by id.",
		Run:   runBookActivate,
	}
	activate.Flags().String("file", "", "Structure JSON file (- for stdin)")
	activate.Flags().String("id", "", "Structure id from book history")
	activate.MarkFlagsMutuallyExclusive("file", "id")
	activate.MarkFlagsOneRequired("file", "id")

	history := &cobra.Command{
		Use:   "history",
		Short: "List saved structures, newest first",
		Run:   runBookHistory,
	}

	deactivate := &cobra.Command{
		Use:   "deactivate",
		Short: "Clear the active structure",
		Run:   runBookDeactivate,
	}

	unassigned := &cobra.Command{
		Use:   "unassigned",
		Short: "List published memories no chapter references",
		Run:   runBookUnassigned,
	}

	bookCmd.AddCommand(show, activate, history, deactivate, unassigned)
	RootCmd.AddCommand(bookCmd)
}

func printStructure(b *model.BookStructure) {
	if !textOutput() {
		printJSON(b)
		return
	}
	fmt.Printf("%s (%s, ~%d pages)\n", b.Title, b.Mode, b.TotalEstimatedPages)
	if b.Subtitle != "" {
		fmt.Println(b.Subtitle)
	}
	for _, ch := range b.Chapters {
		label := ""
		if l := ch.Label(); l != "" {
			label = " [" + l + "]"
		}
		fmt.Printf("%2d. %s%s  %s  (%d memories, ~%d pages)\n",
			ch.Order, ch.Title, label, ch.ID, len(ch.MemoryIDs), ch.EstimatedPages)
	}
}

func runBookShow(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	b, err := s.LoadActive(cmd.Context(), getUser())
	if err != nil {
		exitErr("book show", err)
	}
	if b == nil {
		exitErr("book show", plumeerr.Newf(plumeerr.NotFound, "no active structure for user %s", getUser()))
	}
	printStructure(b)
}

func readStructure(path string) (*model.BookStructure, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = readAllStdin()
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	var b model.BookStructure
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse structure: %w", err)
	}
	return &b, nil
}

func runBookActivate(cmd *cobra.Command, args []string) {
	file, _ := cmd.Flags().GetString("file")
	id, _ := cmd.Flags().GetString("id")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	var b *model.BookStructure
	if id != "" {
		b, err = s.ActivateByID(cmd.Context(), getUser(), id)
	} else {
		var in *model.BookStructure
		in, err = readStructure(file)
		if err != nil {
			exitErr("read structure", err)
		}
		b, err = s.Activate(cmd.Context(), getUser(), in)
	}
	if err != nil {
		exitErr("activate", err)
	}
	log := newLogger()
	log.Info("structure activated", "id", b.ID, "chapters", len(b.Chapters))
	log.Sync()
	printStructure(b)
}

func runBookHistory(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	list, err := s.ListStructures(cmd.Context(), getUser())
	if err != nil {
		exitErr("history", err)
	}

	if textOutput() {
		for _, b := range list {
			mark := " "
			if b.Active {
				mark = "*"
			}
			fmt.Printf("%s %s  %s  %-13s  %d chapters  %s\n",
				mark, b.ID, b.CreatedAt.Format("2006-01-02 15:04"), b.Mode, len(b.Chapters), b.Title)
		}
		return
	}
	if len(list) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(list)
}

func runBookDeactivate(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.DeactivateAll(cmd.Context(), getUser()); err != nil {
		exitErr("deactivate", err)
	}
	fmt.Println(`{"ok":true}`)
}

func runBookUnassigned(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	b, err := s.LoadActive(cmd.Context(), getUser())
	if err != nil {
		exitErr("unassigned", err)
	}
	memories, err := s.ListPublished(cmd.Context(), getUser())
	if err != nil {
		exitErr("unassigned", err)
	}

	out := book.Unassigned(b, memories)
	if textOutput() {
		for _, m := range out {
			fmt.Printf("%s  %s\n", m.ID, m.Title)
		}
		return
	}
	if len(out) == 0 {
		fmt.Println("[]")
		return
	}
	printJSON(out)
}
