package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/docslice/internal/assemble"
	"github.com/MeKo-Tech/docslice/internal/document"
	"github.com/MeKo-Tech/docslice/internal/engine/vectortext"
	"github.com/MeKo-Tech/docslice/internal/render"
)

// processCmd represents the process command.
var processCmd = &cobra.Command{
	Use:   "process [file]",
	Short: "Slice a PDF document into structured fragments",
	Long: `Process a PDF file and print its slices as JSON.

Each slice carries a stable reference, a sequence number, its parent
reference, one of the known labels and its positions on the page.

Examples:
  docslice process document.pdf
  docslice process report.pdf --first-page 3 --last-page 5
  docslice process scan.pdf --mode accuracy --page-screenshots -o out.json`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().Int("first-page", 0, "first page to process (1-based, 0 = first)")
	processCmd.Flags().Int("last-page", 0, "last page to process (0 = last page of the document)")
	processCmd.Flags().StringP("mode", "m", "", "processing mode (speed, accuracy, hybrid)")
	processCmd.Flags().Bool("page-screenshots", false, "render a screenshot per page")
	processCmd.Flags().Bool("slice-screenshots", false, "render a screenshot per table and picture slice")
	processCmd.Flags().String("image-format", "", "screenshot format (png, jpeg)")
	processCmd.Flags().Int("image-quality", 0, "screenshot quality for lossy formats (1-100)")
	processCmd.Flags().Float64("image-scale", 0, "screenshot scale relative to native page size")
	processCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	processCmd.Flags().Bool("pretty", false, "indent the JSON output")
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	req := &document.Request{
		DocumentName: filepath.Base(path),
		ContentType:  "application/pdf",
		Data:         data,
		Mode:         document.Mode(cfg.Process.Mode),
		ImageFormat:  document.ImageFormat(cfg.Render.Format),
		ImageQuality: cfg.Render.Quality,
		ImageScale:   cfg.Render.Scale,
	}
	req.FirstPage, _ = cmd.Flags().GetInt("first-page")
	req.LastPage, _ = cmd.Flags().GetInt("last-page")
	req.PageScreenshots, _ = cmd.Flags().GetBool("page-screenshots")
	req.SliceScreenshots, _ = cmd.Flags().GetBool("slice-screenshots")
	if v, _ := cmd.Flags().GetString("mode"); v != "" {
		req.Mode = document.Mode(v)
	}
	if v, _ := cmd.Flags().GetString("image-format"); v != "" {
		req.ImageFormat = document.ImageFormat(v)
	}
	if v, _ := cmd.Flags().GetInt("image-quality"); v != 0 {
		req.ImageQuality = v
	}
	if v, _ := cmd.Flags().GetFloat64("image-scale"); v != 0 {
		req.ImageScale = v
	}

	orchestrator := assemble.New(vectortext.New(), render.NewPageRenderer, cfg.ToAssembleConfig())

	resp, err := orchestrator.Process(cmd.Context(), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if file, _ := cmd.Flags().GetString("output"); file != "" {
		f, err := os.Create(file)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	enc := json.NewEncoder(out)
	if pretty, _ := cmd.Flags().GetBool("pretty"); pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(resp)
}
