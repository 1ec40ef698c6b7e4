package statistics

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Statistics contains counters for the current server session.
type Statistics struct {
	FilesReceived     int64
	RejectedType      int64
	RejectedSize      int64
	ImagesCompressed  int64
	CompressionErrors int64
	PDFsRefused       int64
	BytesIn           int64
	BytesOut          int64

	StartTime time.Time
}

// NewStatistics returns a new Statistics instance.
func NewStatistics() *Statistics {
	return &Statistics{StartTime: time.Now()}
}

// RecordReceived counts a candidate file reaching validation.
func (s *Statistics) RecordReceived() {
	atomic.AddInt64(&s.FilesReceived, 1)
}

// RecordRejectedType counts a type rejection.
func (s *Statistics) RecordRejectedType() {
	atomic.AddInt64(&s.RejectedType, 1)
}

// RecordRejectedSize counts a size rejection.
func (s *Statistics) RecordRejectedSize() {
	atomic.AddInt64(&s.RejectedSize, 1)
}

// RecordCompressed counts a successful image compression and its byte flow.
func (s *Statistics) RecordCompressed(bytesIn, bytesOut int64) {
	atomic.AddInt64(&s.ImagesCompressed, 1)
	atomic.AddInt64(&s.BytesIn, bytesIn)
	atomic.AddInt64(&s.BytesOut, bytesOut)
}

// RecordCompressionError counts a failed image compression.
func (s *Statistics) RecordCompressionError() {
	atomic.AddInt64(&s.CompressionErrors, 1)
}

// RecordPDFRefused counts a PDF upload turned away.
func (s *Statistics) RecordPDFRefused() {
	atomic.AddInt64(&s.PDFsRefused, 1)
}

// BytesSaved returns the total bytes shaved off across all compressions.
func (s *Statistics) BytesSaved() int64 {
	return atomic.LoadInt64(&s.BytesIn) - atomic.LoadInt64(&s.BytesOut)
}

// Snapshot returns a consistent-enough copy of the counters for reporting.
func (s *Statistics) Snapshot() map[string]int64 {
	return map[string]int64{
		"files_received":     atomic.LoadInt64(&s.FilesReceived),
		"rejected_type":      atomic.LoadInt64(&s.RejectedType),
		"rejected_size":      atomic.LoadInt64(&s.RejectedSize),
		"images_compressed":  atomic.LoadInt64(&s.ImagesCompressed),
		"compression_errors": atomic.LoadInt64(&s.CompressionErrors),
		"pdfs_refused":       atomic.LoadInt64(&s.PDFsRefused),
		"bytes_in":           atomic.LoadInt64(&s.BytesIn),
		"bytes_out":          atomic.LoadInt64(&s.BytesOut),
		"bytes_saved":        s.BytesSaved(),
	}
}

// GetSummary returns a human-readable summary of the session.
func (s *Statistics) GetSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session started: %s\n", s.StartTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Files received: %d\n", atomic.LoadInt64(&s.FilesReceived))
	fmt.Fprintf(&b, "Images compressed: %d\n", atomic.LoadInt64(&s.ImagesCompressed))
	fmt.Fprintf(&b, "Compression errors: %d\n", atomic.LoadInt64(&s.CompressionErrors))
	fmt.Fprintf(&b, "PDFs refused: %d\n", atomic.LoadInt64(&s.PDFsRefused))
	fmt.Fprintf(&b, "Rejected (type/size): %d/%d\n",
		atomic.LoadInt64(&s.RejectedType), atomic.LoadInt64(&s.RejectedSize))
	fmt.Fprintf(&b, "Bytes saved: %d", s.BytesSaved())
	return b.String()
}
