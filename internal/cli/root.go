// Package cli implements the plume CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rcliao/plume/internal/config"
	"github.com/rcliao/plume/internal/logger"
	"github.com/rcliao/plume/internal/store"
	"github.com/spf13/cobra"
)

var (
	dbPath     string
	userFlag   string
	formatFlag string

	cfg *config.Config
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "plume",
	Short: "Turn your memories into a book",
	Long:  "PLUME keeps autobiographical memories in SQLite, drafts a book structure from them, and renders the result in the terminal or as a PDF.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $PLUME_DB or ~/.plume/plume.db)")
	RootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "User id (default: $PLUME_USER or \"local\")")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

func getConfig() *config.Config {
	if cfg == nil {
		c, err := config.Load(config.DefaultPath())
		if err != nil {
			exitErr("load config", err)
		}
		cfg = c
	}
	return cfg
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	return getConfig().DBPath
}

func getUser() string {
	if userFlag != "" {
		return userFlag
	}
	return getConfig().UserID
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath())
}

func newLogger() *logger.Logger {
	c := getConfig()
	log, err := logger.New(c.Log.Mode, c.Log.Level)
	if err != nil {
		return logger.Nop()
	}
	return log
}

func textOutput() bool {
	return strings.EqualFold(formatFlag, "text")
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
