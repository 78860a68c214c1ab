package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"delivery-audit/internal/data"
	"delivery-audit/internal/faults"
	"delivery-audit/internal/logger"
	"delivery-audit/internal/reconcile"
)

// extractTime fills the OCR diagnostics and returns the handwritten time, or
// nil when none was found.
func (p *Pipeline) extractTime(rec *data.Record, raw string) *data.TimeValue {
	rec.OCRRaw = raw
	rec.OCRFiltered = p.clients.Parser.Filter(raw)

	// Parse runs on the joined fragments; OCRFiltered is diagnostic only.
	tv, ok := p.clients.Parser.Parse(raw)
	if !ok {
		logger.DebugLog("[extractTime]: no time in %q", raw)
		return nil
	}
	logger.DebugLog("[extractTime]: %q -> %s", raw, tv)
	return &tv
}

func (p *Pipeline) reconcile(ctx context.Context, rec *data.Record, handwritten *data.TimeValue) error {
	ref, err := p.clients.References.Lookup(ctx, rec.TicketID)
	if err != nil {
		return faults.NewDocumentFault(faults.CodeReference, "reference", rec.Filename, err)
	}

	res := p.clients.Reconciler.Reconcile(handwritten, ref)
	rec.HandwrittenTime = handwritten
	rec.ReferenceTime = ref
	rec.Status = res.Outcome.Status()
	rec.DiffMinutes = res.DiffMinutes
	rec.Message = p.outcomeMessage(res)
	return nil
}

func (p *Pipeline) outcomeMessage(res reconcile.Result) string {
	switch res.Outcome {
	case reconcile.OutcomeHandwrittenMissing:
		return "no time found in handwriting region"
	case reconcile.OutcomeReferenceMissing:
		return "no reference time for ticket"
	case reconcile.OutcomeDiscrepancy:
		return fmt.Sprintf("difference of %d minutes exceeds tolerance of %d", *res.DiffMinutes, p.clients.Reconciler.Tolerance())
	default:
		return ""
	}
}

// faultRecord is the Error record standing in for a failed document.
func (p *Pipeline) faultRecord(path string, err error) data.Record {
	logger.Error("document failed", "document", path, "error", err)
	return data.Record{
		TicketID:    data.TicketID(path),
		Filename:    filepath.Base(path),
		Status:      data.StatusError,
		Message:     err.Error(),
		RunID:       p.opts.RunID,
		ProcessedAt: p.opts.Now(),
	}
}
