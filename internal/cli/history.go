package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sortdesk/sortdesk/internal/config"
	"github.com/sortdesk/sortdesk/internal/history"
)

var (
	historySearch   string
	historyCategory string
)

// historyCmd queries the daemon's decision log without starting the TUI.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query the daemon's file decision log",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return fmt.Errorf("open history log: %w", err)
		}
		defer store.Close()

		records, err := store.Query(context.Background(), history.Filter{
			Search:   historySearch,
			Category: historyCategory,
		})
		if err != nil {
			return fmt.Errorf("query history: %w", err)
		}

		if len(records) == 0 {
			fmt.Println("no matching records")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FILENAME\tCATEGORY\tTIMESTAMP\tSUMMARY")
		for _, r := range records {
			ts := "-"
			if !r.Timestamp.IsZero() {
				ts = r.Timestamp.Local().Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Filename, r.Category, ts, r.SummaryPreview())
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().StringVar(&historySearch, "search", "", "substring match on filename or summary")
	historyCmd.Flags().StringVar(&historyCategory, "category", "", "exact category match")
}
