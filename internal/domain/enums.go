package domain

// FileType represents the receipt image formats accepted for extraction.
type FileType string

const (
	FileTypeJPG  FileType = "jpg"
	FileTypePNG  FileType = "png"
	FileTypeBMP  FileType = "bmp"
	FileTypeTIFF FileType = "tiff"
	FileTypeWEBP FileType = "webp"
)

// AllowedFileTypes maps FileType to its MIME content type.
var AllowedFileTypes = map[FileType]string{
	FileTypeJPG:  "image/jpeg",
	FileTypePNG:  "image/png",
	FileTypeBMP:  "image/bmp",
	FileTypeTIFF: "image/tiff",
	FileTypeWEBP: "image/webp",
}

// AllowedContentTypes maps MIME content types back to FileType.
var AllowedContentTypes = map[string]FileType{
	"image/jpeg": FileTypeJPG,
	"image/png":  FileTypePNG,
	"image/bmp":  FileTypeBMP,
	"image/tiff": FileTypeTIFF,
	"image/webp": FileTypeWEBP,
}

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"jpg":  FileTypeJPG,
	"jpeg": FileTypeJPG,
	"png":  FileTypePNG,
	"bmp":  FileTypeBMP,
	"tif":  FileTypeTIFF,
	"tiff": FileTypeTIFF,
	"webp": FileTypeWEBP,
}

// ReceiptStatus represents the extraction lifecycle of a receipt.
type ReceiptStatus string

const (
	ReceiptStatusPending    ReceiptStatus = "pending"
	ReceiptStatusProcessing ReceiptStatus = "processing"
	ReceiptStatusQueued     ReceiptStatus = "queued"
	ReceiptStatusCompleted  ReceiptStatus = "completed"
	ReceiptStatusFailed     ReceiptStatus = "failed"
)

// Entity types emitted by the receipt token classifier.
const (
	EntityCompany = "COMPANY"
	EntityDate    = "DATE"
	EntityAddress = "ADDRESS"
	EntityTotal   = "TOTAL"
)

// LabelOutside is the BIO label for words outside any entity.
const LabelOutside = "O"

// ExportFormat selects the receipt export encoding.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatXLSX ExportFormat = "xlsx"
)
