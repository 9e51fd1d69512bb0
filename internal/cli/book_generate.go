package cli

import (
	"github.com/rcliao/plume/internal/architect"
	"github.com/rcliao/plume/internal/cache"
	"github.com/rcliao/plume/internal/llm"
	"github.com/rcliao/plume/internal/model"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Draft a book structure from published memories",
		Long: "Draft a book structure from the user's published memories with a text-generation model. " +
			"The draft is printed and only saved when --activate is given.",
		Run: runBookGenerate,
	}

	cmd.Flags().StringP("mode", "m", string(model.ModeChronological), "Mode: chronological, thematic, or expert")
	cmd.Flags().Bool("activate", false, "Save the draft and make it the active structure")
	cmd.Flags().Bool("fresh", false, "Ignore cached drafts")

	bookCmd.AddCommand(cmd)
}

func runBookGenerate(cmd *cobra.Command, args []string) {
	mode, _ := cmd.Flags().GetString("mode")
	activate, _ := cmd.Flags().GetBool("activate")
	fresh, _ := cmd.Flags().GetBool("fresh")

	c := getConfig()
	log := newLogger()
	defer log.Sync()

	ttl, err := c.TTL()
	if err != nil {
		exitErr("cache ttl", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	mem, err := cache.NewMemory(64)
	if err != nil {
		exitErr("cache", err)
	}
	defer mem.Close()

	// A missing API key leaves LLM nil; Generate reports it as a
	// generation failure after the cache had its chance.
	client, err := llm.New(cmd.Context(), llm.Config{APIKey: c.Gemini.APIKey, Model: c.Gemini.LLMModel})
	if err != nil {
		log.Debug("text generation unavailable", "error", err)
	}

	svc := &architect.Service{
		Memories: s,
		LLM:      client,
		Cache:    cache.Layered(mem, s.Cache()),
		TTL:      ttl,
		Log:      log,
	}

	b, err := svc.Generate(cmd.Context(), getUser(), mode, architect.Options{Profile: c.Profile, Fresh: fresh})
	if err != nil {
		exitErr("generate", err)
	}

	if activate {
		b, err = s.Activate(cmd.Context(), getUser(), b)
		if err != nil {
			exitErr("activate", err)
		}
		log.Info("structure activated", "id", b.ID, "chapters", len(b.Chapters))
	}
	printStructure(b)
}
