package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperpress/internal/container"
	"github.com/pdiddy/paperpress/internal/convert"
	"github.com/pdiddy/paperpress/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert [pdfs...]",
	Short: "Convert PDF files to Markdown locally",
	Long: `Convert renders PDF files to Markdown on this machine, without the
server. Each paper becomes a .md file plus a directory of extracted
figures. The marker backend needs a container runtime with the marker
image; the default fitz backend runs fully local.`,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().String("backend", "", "conversion backend: fitz or marker (default fitz)")
	convertCmd.Flags().String("out", "converted", "output directory for Markdown and figures")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more PDF files")
	}

	outDir, _ := cmd.Flags().GetString("out")

	conv, err := buildConverter(cmd)
	if err != nil {
		return err
	}

	result := convert.ConvertBatch(conv, args, outDir, os.Stdout)
	if result.HasFailures() {
		return fmt.Errorf("%d file(s) failed conversion", result.Failed)
	}
	return nil
}

// buildConverter picks the conversion backend from flags and config.
func buildConverter(cmd *cobra.Command) (convert.Converter, error) {
	backend, _ := cmd.Flags().GetString("backend")
	if backend == "" {
		backend = viper.GetString("conversion.backend")
	}

	if types.ConversionBackend(backend) == types.BackendMarker {
		rt, err := container.DetectRuntime()
		if err != nil {
			return nil, err
		}
		return convert.NewMarkerConverter(rt)
	}
	return convert.NewFitzConverter(), nil
}
