package cli

import (
	"fmt"

	"github.com/rcliao/plume/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (secrets redacted)",
		Run:   runConfigShow,
	}

	set := &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Set a key in the config file",
		Long: "Set a key in the config file. Keys: db_path, user_id, gemini.api_key, gemini.llm_model, " +
			"log.mode, log.level, cache_ttl, profile.first_name, profile.birth_date, images.timeout, images.max_edge.",
		Args: cobra.ExactArgs(2),
		Run:  runConfigSet,
	}

	configCmd.AddCommand(show, set)
	RootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) {
	printJSON(getConfig().Redacted())
}

func runConfigSet(cmd *cobra.Command, args []string) {
	path := config.DefaultPath()
	// Environment overrides must not leak into the saved file, so the file
	// is edited on its own.
	file, err := config.ReadFile(path)
	if err != nil {
		exitErr("load config", err)
	}
	if err := file.Set(args[0], args[1]); err != nil {
		exitErr("config set", err)
	}
	if err := config.Save(file, path); err != nil {
		exitErr("save config", err)
	}
	fmt.Printf(`{"ok":true,"key":%q}`+"\n", args[0])
}
