package cli

import (
	"strconv"

	"github.com/rcliao/plume/internal/book"
	"github.com/rcliao/plume/internal/model"
	"github.com/rcliao/plume/internal/store"
	"github.com/spf13/cobra"
)

var chapterCmd = &cobra.Command{
	Use:   "chapter",
	Short: "Edit the chapters of the active structure",
	Long:  "Edit the chapters of the active structure. When no structure is active, a default one-chapter book is started.",
}

func init() {
	add := &cobra.Command{
		Use:   "add [title]",
		Short: "Append a chapter",
		Args:  cobra.MaximumNArgs(1),
		Run:   runChapterAdd,
	}

	rename := &cobra.Command{
		Use:   "rename [chapter-id] [title]",
		Short: "Rename a chapter",
		Args:  cobra.RangeArgs(1, 2),
		Run:   runChapterRename,
	}
	rename.Flags().String("description", "", "New description")

	rm := &cobra.Command{
		Use:   "rm [chapter-id]",
		Short: "Remove a chapter (its memories become unassigned)",
		Args:  cobra.ExactArgs(1),
		Run:   runChapterRm,
	}

	move := &cobra.Command{
		Use:   "move [chapter-id] [position]",
		Short: "Move a chapter to a 1-based position",
		Args:  cobra.ExactArgs(2),
		Run:   runChapterMove,
	}

	assign := &cobra.Command{
		Use:   "assign [chapter-id] [memory-id]",
		Short: "Add a memory to a chapter",
		Args:  cobra.ExactArgs(2),
		Run:   runChapterAssign,
	}
	assign.Flags().Int("at", 0, "1-based position in the chapter (0 appends)")

	unassign := &cobra.Command{
		Use:   "unassign [chapter-id] [memory-id]",
		Short: "Remove a memory from a chapter",
		Args:  cobra.ExactArgs(2),
		Run:   runChapterUnassign,
	}

	chapterCmd.AddCommand(add, rename, rm, move, assign, unassign)
	RootCmd.AddCommand(chapterCmd)
}

// editActive applies fn to the active structure and saves the result.
func editActive(cmd *cobra.Command, op string, fn func(s *store.SQLiteStore, b *model.BookStructure) error) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	b, err := s.LoadActive(cmd.Context(), getUser())
	if err != nil {
		exitErr(op, err)
	}
	if b == nil {
		b = book.Default(getUser())
	}
	if err := fn(s, b); err != nil {
		exitErr(op, err)
	}

	saved, err := s.Activate(cmd.Context(), getUser(), b)
	if err != nil {
		exitErr(op, err)
	}
	printStructure(saved)
}

func runChapterAdd(cmd *cobra.Command, args []string) {
	title := ""
	if len(args) == 1 {
		title = args[0]
	}
	editActive(cmd, "chapter add", func(_ *store.SQLiteStore, b *model.BookStructure) error {
		book.AddChapter(b, title)
		return nil
	})
}

func runChapterRename(cmd *cobra.Command, args []string) {
	title := ""
	if len(args) == 2 {
		title = args[1]
	}
	var desc *string
	if cmd.Flags().Changed("description") {
		d, _ := cmd.Flags().GetString("description")
		desc = &d
	}
	editActive(cmd, "chapter rename", func(_ *store.SQLiteStore, b *model.BookStructure) error {
		return book.RenameChapter(b, args[0], title, desc)
	})
}

func runChapterRm(cmd *cobra.Command, args []string) {
	editActive(cmd, "chapter rm", func(_ *store.SQLiteStore, b *model.BookStructure) error {
		return book.RemoveChapter(b, args[0])
	})
}

func runChapterMove(cmd *cobra.Command, args []string) {
	pos, err := strconv.Atoi(args[1])
	if err != nil {
		exitErr("chapter move", err)
	}
	editActive(cmd, "chapter move", func(_ *store.SQLiteStore, b *model.BookStructure) error {
		return book.MoveChapter(b, args[0], pos-1)
	})
}

func runChapterAssign(cmd *cobra.Command, args []string) {
	at, _ := cmd.Flags().GetInt("at")
	editActive(cmd, "chapter assign", func(s *store.SQLiteStore, b *model.BookStructure) error {
		if _, err := s.Get(cmd.Context(), getUser(), args[1]); err != nil {
			return err
		}
		return book.AssignMemory(b, args[0], args[1], at-1)
	})
}

func runChapterUnassign(cmd *cobra.Command, args []string) {
	editActive(cmd, "chapter unassign", func(_ *store.SQLiteStore, b *model.BookStructure) error {
		return book.UnassignMemory(b, args[0], args[1])
	})
}
