package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"unikrew/internal/app"
	"unikrew/internal/pipeline"
)

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var output string
	var showLabels bool

	cmd := &cobra.Command{
		Use:   "extract <image>",
		Short: "Run the full extraction pipeline on a receipt image",
		Long: "Runs OCR, token classification and LLM reasoning locally and prints the\n" +
			"validated receipt fields. The image may be a local path or s3://bucket/key.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(output)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			img, err := ctx.loadImage(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			agent, _, err := app.NewPipeline(cfg)
			if err != nil {
				return err
			}
			extraction, err := agent.Run(cmd.Context(), *img)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if showLabels {
				fmt.Fprintln(out, renderTable(labelTable(extraction)))
			}
			return writeOutput(out, format, extraction.Fields)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputJSON, "Output format: json or yaml")
	cmd.Flags().BoolVar(&showLabels, "labels", false, "Print the per-word classifier labels before the fields")
	return cmd
}

func labelTable(e *pipeline.Extraction) ([]string, [][]string, []columnAlignment) {
	headers := []string{"#", "Word", "Label"}
	rows := make([][]string, 0, len(e.Words))
	for i, w := range e.Words {
		label := ""
		if i < len(e.Labels) {
			label = e.Labels[i]
		}
		rows = append(rows, []string{strconv.Itoa(i), w.Text, label})
	}
	return headers, rows, []columnAlignment{alignRight, alignLeft, alignLeft}
}
