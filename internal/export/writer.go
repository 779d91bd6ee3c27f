// Package export renders receipts as CSV or XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"unikrew/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the header row shared by the CSV and XLSX exports.
var columns = []string{
	"Receipt ID",
	"Original Name",
	"Status",
	"Company",
	"Date",
	"Address",
	"Total",
	"Agent Comment",
	"Classifier Model",
	"Reasoner Model",
	"Attempts",
	"Error",
	"Completed At",
	"Created At",
}

// Columns returns a copy of the export header row.
func Columns() []string {
	return append([]string(nil), columns...)
}

// Write encodes receipts to w in the requested format.
func Write(format domain.ExportFormat, w io.Writer, receipts []domain.Receipt) error {
	switch format {
	case domain.ExportFormatCSV:
		if _, err := w.Write(BOM); err != nil {
			return fmt.Errorf("export.Write: %w", err)
		}
		cw := NewWriter(w)
		if err := cw.WriteHeader(); err != nil {
			return fmt.Errorf("export.Write: %w", err)
		}
		if err := cw.WriteReceipts(receipts); err != nil {
			return fmt.Errorf("export.Write: %w", err)
		}
		cw.Flush()
		return cw.Error()
	case domain.ExportFormatXLSX:
		return WriteXLSX(w, receipts)
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedExport, format)
	}
}

// ContentType returns the MIME type for an export format.
func ContentType(format domain.ExportFormat) string {
	if format == domain.ExportFormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Writer wraps csv.Writer for exporting receipts as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteReceipts converts a batch of receipts to CSV rows and writes them.
func (w *Writer) WriteReceipts(receipts []domain.Receipt) error {
	for i := range receipts {
		if err := w.csv.Write(receiptToRow(&receipts[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

// receiptToRow flattens a receipt. Field columns stay empty unless the
// receipt completed with decodable fields.
func receiptToRow(r *domain.Receipt) []string {
	row := make([]string, len(columns))

	row[0] = r.ID.String()
	row[1] = r.OriginalName
	row[2] = string(r.Status)
	row[8] = r.ClassifierModel
	row[9] = r.ReasonerModel
	row[10] = strconv.Itoa(r.Attempts)
	row[11] = r.Error
	row[12] = formatTime(r.CompletedAt)
	row[13] = r.CreatedAt.Format(time.RFC3339)

	if r.Status != domain.ReceiptStatusCompleted {
		return row
	}
	fields := r.ParsedFields()
	if fields == nil {
		return row
	}
	row[3] = fields.Company
	row[4] = fields.Date
	row[5] = fields.Address
	row[6] = fields.Total
	row[7] = fields.AgentComment
	return row
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns {sanitized_name}_{YYYY-MM-DD}.{format}.
func BuildFilename(name string, format domain.ExportFormat, now time.Time) string {
	sanitized := SanitizeFilename(name)
	if sanitized == "" {
		sanitized = "receipts"
	}
	return fmt.Sprintf("%s_%s.%s", sanitized, now.Format("2006-01-02"), format)
}
