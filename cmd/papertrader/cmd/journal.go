package cmd

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrader/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query history journal data",
	Long: `Query and display history records from the SQLite journal.

Subcommands:
  order     - Get the history entry of one order
  position  - List the open and close entries of a position
  today     - List entries recorded today
  day       - List entries recorded on a specific day
  history   - List entries in a time range, optionally as a report

Examples:
  papertrader journal order <order-id>
  papertrader journal today
  papertrader journal day 2026-01-15
  papertrader journal history --from 2026-01-01 --to 2026-02-01 --report`,
}

var journalOrderCmd = &cobra.Command{
	Use:   "order <order-id>",
	Short: "Get the history entry of one order",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalOrder,
}

var journalPositionCmd = &cobra.Command{
	Use:   "position <position-id>",
	Short: "List the entries of one position",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalPosition,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List entries recorded today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List entries recorded on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List entries in [from, to)",
	Args:  cobra.NoArgs,
	RunE:  runJournalHistory,
}

var (
	journalDBPath  string
	journalFrom    string
	journalTo      string
	journalReport  bool
	journalParquet string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalOrderCmd)
	journalCmd.AddCommand(journalPositionCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)
	journalCmd.AddCommand(journalHistoryCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./papertrader.sqlite", "path to SQLite journal DB")
	journalHistoryCmd.Flags().StringVar(&journalFrom, "from", "", "first day, YYYY-MM-DD (required)")
	journalHistoryCmd.Flags().StringVar(&journalTo, "to", "", "day after the last, YYYY-MM-DD (default: day after --from)")
	journalHistoryCmd.Flags().BoolVar(&journalReport, "report", false, "print a session report instead of entries")
	journalHistoryCmd.Flags().StringVar(&journalParquet, "parquet", "", "also export the entries to this Parquet file")
	journalHistoryCmd.MarkFlagRequired("from")
}

func openJournal() (*journal.SQLite, error) {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalOrder(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	e, err := j.GetOrder(args[0])
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatEntryOrg(e))
	return nil
}

func runJournalPosition(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	entries, err := j.ListPosition(args[0])
	if err != nil {
		return fmt.Errorf("query position: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), journal.FormatEntriesOrg(entries))
	return nil
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	return listDay(cmd.OutOrStdout(), time.Now().In(time.Local).Format("2006-01-02"))
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	return listDay(cmd.OutOrStdout(), args[0])
}

func listDay(w io.Writer, day string) error {
	start, end, err := dayBounds(time.Local, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	entries, err := j.ListHistoryBetween(start, end)
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}
	fmt.Fprintln(w, journal.FormatEntriesOrg(entries))
	return nil
}

func runJournalHistory(cmd *cobra.Command, args []string) error {
	start, end, err := dayBounds(time.Local, journalFrom)
	if err != nil {
		return fmt.Errorf("from: %w", err)
	}
	if journalTo != "" {
		if end, _, err = dayBounds(time.Local, journalTo); err != nil {
			return fmt.Errorf("to: %w", err)
		}
	}

	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	entries, err := j.ListHistoryBetween(start, end)
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}

	if journalParquet != "" {
		if err := journal.WriteParquet(journalParquet, slices.Values(entries)); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if journalReport {
		return journal.Summarize(slices.Values(entries)).WriteOrg(out)
	}
	fmt.Fprintln(out, journal.FormatEntriesOrg(entries))
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start, end, nil
}
