package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"unikrew/internal/domain"
	"unikrew/internal/ocr"
	"unikrew/internal/ocr/tesseract"
	"unikrew/internal/port"
)

func newOCRCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ocr <image>",
		Short: "Print OCR words with pixel and normalized boxes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			img, err := ctx.loadImage(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			result, err := tesseract.NewEngine(&cfg.OCR).Extract(cmd.Context(), port.OCRInput{
				Image:       img.Bytes,
				ContentType: img.ContentType,
			})
			if err != nil {
				return err
			}
			boxes, err := ocr.NormalizeBoxes(result.Words, result.Width, result.Height)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d words, %dx%d px\n", result.Engine, len(result.Words), result.Width, result.Height)
			if len(result.Words) == 0 {
				return nil
			}
			fmt.Fprintln(out, renderTable(wordTable(result.Words, boxes)))
			return nil
		},
	}
}

func wordTable(words []domain.Word, boxes []domain.NormalizedBox) ([]string, [][]string, []columnAlignment) {
	headers := []string{"#", "Text", "Pixel Box", "Normalized Box", "Conf"}
	rows := make([][]string, 0, len(words))
	for i, w := range words {
		norm := ""
		if i < len(boxes) {
			b := boxes[i]
			norm = fmt.Sprintf("%d,%d,%d,%d", b[0], b[1], b[2], b[3])
		}
		rows = append(rows, []string{
			strconv.Itoa(i),
			w.Text,
			fmt.Sprintf("%d,%d %dx%d", w.Box.Left, w.Box.Top, w.Box.Width, w.Box.Height),
			norm,
			strconv.FormatFloat(w.Confidence, 'f', 1, 64),
		})
	}
	return headers, rows, []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight}
}
