package files

import (
	"errors"
	"fmt"
	"strings"
)

// Notice strings surfaced to the user verbatim.
const (
	NoticeUnsupportedType = "Please upload an image or PDF file"
	NoticeFileTooLarge    = "File size should be less than 10MB"
	NoticePDFUnsupported  = "PDF compression requires server-side processing"
	NoticeCompressOK      = "Image compressed successfully!"
	NoticeCompressFailed  = "Error compressing file"
)

var (
	// ErrUnsupportedType means the candidate is neither an image nor a PDF.
	ErrUnsupportedType = errors.New(NoticeUnsupportedType)

	// ErrFileTooLarge means the candidate exceeds the upload ceiling.
	ErrFileTooLarge = errors.New(NoticeFileTooLarge)
)

const pdfMIME = "application/pdf"

// Candidate is a file obtained from user interaction before validation.
type Candidate struct {
	Name string
	Size int64
	MIME string
}

// IsImage reports whether the candidate carries an image MIME type.
// Matching is deliberately a prefix check, so vendor subtypes like
// "image/vnd.custom" are accepted.
func (c Candidate) IsImage() bool {
	return strings.HasPrefix(c.MIME, "image/")
}

// IsPDF reports whether the candidate is a PDF.
func (c Candidate) IsPDF() bool {
	return c.MIME == pdfMIME
}

// Validate checks the candidate against the accepted types and then the
// size ceiling. The first failed check wins.
func (c Candidate) Validate(maxSize int64) error {
	if !c.IsImage() && !c.IsPDF() {
		return ErrUnsupportedType
	}
	if c.Size > maxSize {
		return ErrFileTooLarge
	}
	return nil
}

// SizeMB formats a byte count as megabytes with two-decimal precision,
// the way the result panel displays it.
func SizeMB(size int64) string {
	return fmt.Sprintf("%.2f MB", float64(size)/(1024*1024))
}

// ArtifactName returns the download filename for a compressed artifact.
func ArtifactName(original string) string {
	return "compressed-" + original
}
