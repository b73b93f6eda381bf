package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tonearm.click/internal/audio"
)

func newFormatsCommand() *cobra.Command {
	var extension, mimeType string

	formatsCmd := &cobra.Command{
		Use:   "formats",
		Short: "List or check supported file types",
		Long: `With no flags, list the file extensions and MIME types the decoder can open.
With --extension or --mime, check a single value; the command exits non-zero
when it is not supported.

Examples:
  tonearm formats
  tonearm formats --extension FLAC
  tonearm formats --mime audio/x-wav`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFormats(cmd, extension, mimeType)
		},
	}

	formatsCmd.Flags().StringVar(&extension, "extension", "", "Check whether files with this extension can be decoded")
	formatsCmd.Flags().StringVar(&mimeType, "mime", "", "Check whether this MIME type can be decoded")

	return formatsCmd
}

func runFormats(cmd *cobra.Command, extension, mimeType string) error {
	if extension == "" && mimeType == "" {
		cmd.Println("Extensions:")
		cmd.Printf("  %s\n", strings.Join(audio.SupportedFileExtensions(), " "))
		cmd.Println("MIME types:")
		for _, m := range audio.SupportedMIMETypes() {
			cmd.Printf("  %s\n", m)
		}
		return nil
	}

	var unsupported []string
	if extension != "" {
		ext := strings.TrimPrefix(extension, ".")
		ok := audio.HandlesFilesWithExtension(ext)
		cmd.Printf("extension %s: %s\n", ext, supportedText(ok))
		if !ok {
			unsupported = append(unsupported, "extension "+ext)
		}
	}
	if mimeType != "" {
		ok := audio.HandlesMIMEType(mimeType)
		cmd.Printf("mime %s: %s\n", mimeType, supportedText(ok))
		if !ok {
			unsupported = append(unsupported, "mime "+mimeType)
		}
	}

	if len(unsupported) > 0 {
		return fmt.Errorf("not supported: %s", strings.Join(unsupported, ", "))
	}
	return nil
}

func supportedText(ok bool) string {
	if ok {
		return "supported"
	}
	return "not supported"
}
