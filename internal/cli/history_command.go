package cli

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"tonearm.click/internal/tracking"
)

type historyOptions struct {
	since      string
	preset     string
	days       int
	source     string
	fileType   string
	command    string
	failedOnly bool
	limit      int
}

func newHistoryCommand() *cobra.Command {
	var opts historyOptions

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded decode sessions",
		Long: `Summarize and list the decode sessions recorded by info and decode, newest
first.

--since accepts natural language ("2 days ago", "last monday", "yesterday").
--preset accepts today, yesterday, last-week, this-week, this-month or all.

Examples:
  tonearm history
  tonearm history --since "3 hours ago" --failed
  tonearm history --preset this-week --type FLAC --limit 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts, time.Now())
		},
	}

	historyCmd.Flags().StringVar(&opts.since, "since", "", "Only sessions after this time (natural language)")
	historyCmd.Flags().StringVar(&opts.preset, "preset", "", "Date preset")
	historyCmd.Flags().IntVar(&opts.days, "days", 0, "Only sessions from the last N days")
	historyCmd.Flags().StringVar(&opts.source, "source", "", "Only sources whose path contains this text")
	historyCmd.Flags().StringVar(&opts.fileType, "type", "", "Only this container type (WAVE, FLAC, ...)")
	historyCmd.Flags().StringVar(&opts.command, "command", "", "Only sessions from this command (info, decode)")
	historyCmd.Flags().BoolVar(&opts.failedOnly, "failed", false, "Only sessions that failed")
	historyCmd.Flags().IntVar(&opts.limit, "limit", 20, "Maximum number of sessions to list")

	return historyCmd
}

func (o historyOptions) filter(now time.Time) (tracking.QueryFilter, error) {
	filter := tracking.QueryFilter{
		DatePreset: o.preset,
		Days:       o.days,
		Source:     o.source,
		FileType:   o.fileType,
		Command:    o.command,
		FailedOnly: o.failedOnly,
		Limit:      o.limit,
	}
	if o.since != "" {
		start, err := tracking.ParseNaturalDate(o.since, now)
		if err != nil {
			return filter, fmt.Errorf("invalid --since value: %w", err)
		}
		filter.StartTime = &start
	}
	return filter, nil
}

func runHistory(cmd *cobra.Command, opts historyOptions, now time.Time) error {
	cli, err := mustCLI(cmd)
	if err != nil {
		return err
	}

	db := cli.historyDatabase()
	if db == nil {
		return ErrHistoryDisabled
	}

	filter, err := opts.filter(now)
	if err != nil {
		return err
	}
	slog.Debug("running history command", "limit", filter.Limit, "failed_only", filter.FailedOnly)

	summary, err := tracking.Summarize(db, filter)
	if err != nil {
		return fmt.Errorf("failed to summarize history: %w", err)
	}
	events, err := tracking.ListEvents(db, filter)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	out := cmd.OutOrStdout()
	printSummary(out, summary)
	if len(events) == 0 {
		fmt.Fprintln(out, "No decode sessions recorded.")
		return nil
	}
	fmt.Fprintln(out)
	printEvents(out, events)
	return nil
}

func printSummary(w io.Writer, s *tracking.Summary) {
	fmt.Fprintf(w, "%d sessions, %d failed, %d sources, %d frames decoded\n",
		s.Events, s.Failed, s.Sources, s.FramesDecoded)
	if len(s.ByFileType) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tSESSIONS\tFAILED\tFRAMES")
	for _, ft := range s.ByFileType {
		name := ft.FileType
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", name, ft.Events, ft.Failed, ft.FramesDecoded)
	}
	tw.Flush()
}

func printEvents(w io.Writer, events []tracking.DecodeEvent) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tCOMMAND\tTYPE\tFRAMES\tSOURCE\tRESULT")
	for _, e := range events {
		result := "ok"
		if e.Failed() {
			result = e.Error
		}
		fileType := e.FileType
		if fileType == "" {
			fileType = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Command, fileType, e.FramesDecoded, e.SourceURL, result)
	}
	tw.Flush()
}
