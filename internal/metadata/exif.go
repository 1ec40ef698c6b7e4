package metadata

import (
	"bytes"
	"fmt"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/sirupsen/logrus"
)

// Probe extracts capture metadata from uploaded image bytes using EXIF.
type Probe struct {
	logger *logrus.Logger
}

// NewProbe returns a new Probe.
func NewProbe(logger *logrus.Logger) *Probe {
	return &Probe{logger: logger}
}

// TakenAt returns the capture time recorded in the image's EXIF block.
// The result is best-effort: most PNG uploads and many JPEGs carry no
// usable EXIF, and that is not an error worth surfacing.
func (p *Probe) TakenAt(data []byte) (*time.Time, error) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode EXIF: %w", err)
	}

	if tm, err := x.DateTime(); err == nil {
		p.logger.Debugf("Extracted DateTime from EXIF: %v", tm)
		return &tm, nil
	}

	if field, err := x.Get(exif.DateTimeOriginal); err == nil {
		if dateStr, err := field.StringVal(); err == nil {
			if date := parseEXIFDateTime(dateStr); date != nil {
				p.logger.Debugf("Extracted DateTimeOriginal from EXIF: %v", date)
				return date, nil
			}
		}
	}

	if field, err := x.Get(exif.DateTimeDigitized); err == nil {
		if dateStr, err := field.StringVal(); err == nil {
			if date := parseEXIFDateTime(dateStr); date != nil {
				p.logger.Debugf("Extracted DateTimeDigitized from EXIF: %v", date)
				return date, nil
			}
		}
	}

	return nil, fmt.Errorf("no valid date found in EXIF")
}

// parseEXIFDateTime parses an EXIF date time string and returns a time.Time
// pointer. Returns nil if parsing fails.
func parseEXIFDateTime(dateStr string) *time.Time {
	if dateStr == "" {
		return nil
	}

	formats := []string{
		"2006:01:02 15:04:05",
		"2006-01-02 15:04:05",
		"2006:01:02",
		"2006-01-02",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if date, err := time.Parse(format, dateStr); err == nil {
			return &date
		}
	}

	return nil
}
