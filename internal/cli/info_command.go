package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"tonearm.click/internal/toolbox"
)

// fileReport is what info prints for one file
type fileReport struct {
	Path         string
	FileType     string
	SourceFormat string
	ClientFormat string
	Layout       string
	TotalFrames  int64
	Duration     time.Duration
	PositionMode string
	Seekable     bool
}

func newInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE...",
		Short: "Show stream details for audio files",
		Long: `Open each file and print its container type, the source and client formats,
the channel layout, the length in frames and time, and where the decoder
takes its position from.

A path without an extension is tried with each supported extension.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runInfoE,
	}
}

func runInfoE(cmd *cobra.Command, args []string) error {
	cli, err := mustCLI(cmd)
	if err != nil {
		return err
	}

	var reports []fileReport
	var failed int
	for _, path := range args {
		f, err := cli.openFile(path)
		if err != nil {
			cli.record("info", path, nil, 0, err, nil)
			cmd.PrintErrf("%s: %v\n", path, err)
			failed++
			continue
		}
		reports = append(reports, reportFor(f))
		cli.record("info", path, f, 0, nil, nil)
		f.Close()
	}

	out := cmd.OutOrStdout()
	if cli.writerIsTerminal(out) {
		printReportTable(out, reports)
	} else {
		printReportPairs(out, reports)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be opened", failed, len(args))
	}
	return nil
}

func reportFor(f *openedFile) fileReport {
	dec := f.decoder
	r := fileReport{
		Path:         f.path,
		SourceFormat: dec.SourceFormat().String(),
		ClientFormat: dec.Format().String(),
		Layout:       "none",
		TotalFrames:  dec.TotalFrames(),
		Seekable:     dec.SupportsSeeking(),
	}
	if layout := dec.ChannelLayout(); layout != nil {
		r.Layout = layout.String()
	}
	if rate := dec.Format().SampleRate; rate > 0 && r.TotalFrames >= 0 {
		r.Duration = time.Duration(float64(r.TotalFrames) / rate * float64(time.Second))
	}
	if ft, ok := dec.(fileTyper); ok {
		r.FileType = toolbox.FileTypeName(ft.FileType())
		r.PositionMode = positionModeName(ft.UsesManualPosition())
	}
	return r
}

// writerIsTerminal reports whether w is a file attached to a terminal
func (c *CLI) writerIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return c.isInteractiveTerminal(int(f.Fd()))
}

func printReportTable(w io.Writer, reports []fileReport) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, r := range reports {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "File\t%s\n", r.Path)
		fmt.Fprintf(tw, "Type\t%s\n", r.FileType)
		fmt.Fprintf(tw, "Source format\t%s\n", r.SourceFormat)
		fmt.Fprintf(tw, "Client format\t%s\n", r.ClientFormat)
		fmt.Fprintf(tw, "Channel layout\t%s\n", r.Layout)
		fmt.Fprintf(tw, "Frames\t%s\n", framesText(r.TotalFrames))
		fmt.Fprintf(tw, "Duration\t%s\n", r.Duration.Round(time.Millisecond))
		fmt.Fprintf(tw, "Position\t%s\n", r.PositionMode)
		fmt.Fprintf(tw, "Seekable\t%t\n", r.Seekable)
	}
	tw.Flush()
}

func printReportPairs(w io.Writer, reports []fileReport) {
	for _, r := range reports {
		fmt.Fprintf(w, "file=%q type=%q source_format=%q client_format=%q layout=%q total_frames=%d duration=%s position_mode=%s seekable=%t\n",
			r.Path, r.FileType, r.SourceFormat, r.ClientFormat, r.Layout, r.TotalFrames,
			r.Duration.Round(time.Millisecond), r.PositionMode, r.Seekable)
	}
}

func framesText(n int64) string {
	if n < 0 {
		return "unknown"
	}
	return fmt.Sprintf("%d", n)
}
