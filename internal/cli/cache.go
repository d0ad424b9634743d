package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/practice2025/supportai/internal/app"
)

var cacheJSON bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the query cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List frequent queries in insertion order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			entries, err := a.Cache.Entries(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list frequent queries: %w", err)
			}
			if cacheJSON {
				return printJSON(cmd, entries)
			}
			if len(entries) == 0 {
				cmd.Println("No cached queries.")
				return nil
			}
			for _, e := range entries {
				cmd.Printf("%4d  %s\n", e.Count, e.Query)
			}
			return nil
		})
	},
}

var cacheHistoryCmd = &cobra.Command{
	Use:   "history [user-id]",
	Short: "Show a user's recent queries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			records, err := a.Cache.History(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get history: %w", err)
			}
			if cacheJSON {
				return printJSON(cmd, records)
			}
			if len(records) == 0 {
				cmd.Println("No history.")
				return nil
			}
			for _, r := range records {
				cmd.Printf("%s  %s\n", r.Timestamp.Format("2006-01-02 15:04:05"), r.Query)
			}
			return nil
		})
	},
}

func init() {
	cacheCmd.PersistentFlags().BoolVar(&cacheJSON, "json", false, "output as JSON")
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheHistoryCmd)
	rootCmd.AddCommand(cacheCmd)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
