package data

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Status string

const (
	StatusOk                 Status = "Ok"
	StatusDiscrepancy        Status = "Discrepancy"
	StatusNoAnchor           Status = "NoAnchor"
	StatusHandwrittenMissing Status = "HandwrittenMissing"
	StatusReferenceMissing   Status = "ReferenceMissing"
	StatusError              Status = "Error"
)

// TicketFallback is used when a filename carries no digits at all.
const TicketFallback = "UNKNOWN"

const ticketDigits = 7

// Record is the audit result for one delivery note. It is built once and not
// changed afterwards.
type Record struct {
	TicketID        string     `json:"ticketId"`
	Filename        string     `json:"filename"`
	HandwrittenTime *TimeValue `json:"handwrittenTime"`
	ReferenceTime   *TimeValue `json:"referenceTime"`
	Status          Status     `json:"status"`
	DiffMinutes     *int       `json:"diffMinutes"`
	Message         string     `json:"message,omitempty"`
	AnchorText      string     `json:"anchorText,omitempty"`
	OCRRaw          string     `json:"ocrRaw,omitempty"`
	OCRFiltered     string     `json:"ocrFiltered,omitempty"`
	RunID           string     `json:"runId,omitempty"`
	ProcessedAt     time.Time  `json:"processedAt"`
}

// TicketID takes the digits of the file's base name in order and keeps the
// first seven.
func TicketID(path string) string {
	base := filepath.Base(path)
	var b strings.Builder
	for _, r := range base {
		if r < '0' || r > '9' {
			continue
		}
		b.WriteRune(r)
		if b.Len() == ticketDigits {
			break
		}
	}
	if b.Len() == 0 {
		return TicketFallback
	}
	return b.String()
}

func MapCSVRecord(item Record) []string {
	diff := ""
	if item.DiffMinutes != nil {
		diff = strconv.Itoa(*item.DiffMinutes)
	}
	return []string{
		item.TicketID,
		item.Filename,
		FormatOptional(item.HandwrittenTime),
		FormatOptional(item.ReferenceTime),
		string(item.Status),
		diff,
		item.Message,
		item.AnchorText,
		item.OCRRaw,
		item.OCRFiltered,
		item.RunID,
	}
}

func GetCSVHeader() []string {
	return []string{"TicketID", "Filename", "HandwrittenTime", "ReferenceTime", "Status", "DiffMinutes", "Message", "AnchorText", "OCRRaw", "OCRFiltered", "RunID"}
}
