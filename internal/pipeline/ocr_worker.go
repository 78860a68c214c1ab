package pipeline

import (
	"context"
	"errors"
	"path/filepath"

	"delivery-audit/internal/data"
	"delivery-audit/internal/faults"
	"delivery-audit/internal/logger"
)

func (p *Pipeline) analyzeWorker(ctx context.Context, jobs <-chan job, results chan<- result[data.Record]) {
	for j := range jobs {
		if ctx.Err() != nil {
			logger.DebugLog("[analyzeWorker]: context cancelled")
			return
		}
		logger.DebugLog("[analyzeWorker]: processing document %s", j.path)
		rec := p.analyzeSafely(ctx, j.path)
		results <- result[data.Record]{index: j.index, path: j.path, data: rec}
	}
}

// analyzeSafely keeps every failure, panics included, inside the document.
func (p *Pipeline) analyzeSafely(ctx context.Context, path string) (rec data.Record) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while analysing document", "document", path, "panic", r)
			rec = p.faultRecord(path, faults.NewPanicFault("analyze", path, r))
		}
	}()

	analyzed, err := p.AnalyzeDocument(ctx, path)
	if err != nil {
		return p.faultRecord(path, err)
	}
	return analyzed
}

// AnalyzeDocument runs every stage for one document. Missing anchor, time or
// reference are statuses on the record; the error is a *faults.DocumentFault
// for anything that went wrong.
func (p *Pipeline) AnalyzeDocument(ctx context.Context, path string) (data.Record, error) {
	state := newDocumentState(path)
	rec := data.Record{
		TicketID: data.TicketID(path),
		Filename: filepath.Base(path),
		RunID:    p.opts.RunID,
	}

	page, release, err := p.preparePage(ctx, path)
	if err != nil {
		state.fail()
		return rec, faults.NewDocumentFault(faults.CodeRasterize, "rasterize", path, err)
	}
	defer release()
	state.mustAdvance(stateRasterized)

	tokens, err := p.clients.Engine.DetectText(ctx, page)
	if err != nil {
		state.fail()
		return rec, engineFault(faults.CodeDetect, "detect", path, err)
	}
	anchor, found := LocateAnchor(tokens, p.opts.Anchors)
	state.mustResolveAnchor(found)
	if !found {
		logger.DebugLog("[analyze]: no anchor among %d tokens in %s", len(tokens), path)
		rec.Status = data.StatusNoAnchor
		rec.Message = "anchor phrase not found"
		rec.ProcessedAt = p.opts.Now()
		state.mustAdvance(stateDone)
		return rec, nil
	}
	rec.AnchorText = anchor.Text

	rect := ComputeRegion(page.Bounds(), anchor.Center, p.opts.Radius)
	roi := p.prepareRegion(page, rect)
	state.mustAdvance(stateRegionExtracted)
	p.saveDebug(ctx, path, roi)

	_, raw, err := ExtractHandwriting(ctx, p.clients.Engine, roi, p.clients.Parser.Profile().Allowlist())
	if err != nil {
		state.fail()
		return rec, engineFault(faults.CodeRecognize, "recognize", path, err)
	}
	state.mustAdvance(stateTimeExtracted)

	handwritten := p.extractTime(&rec, raw)
	state.mustAdvance(stateParsed)

	if err := p.reconcile(ctx, &rec, handwritten); err != nil {
		state.fail()
		return rec, err
	}
	state.mustAdvance(stateReconciled)

	rec.ProcessedAt = p.opts.Now()
	state.mustAdvance(stateDone)
	logger.DebugLog("[analyze]: %s -> %s (states %v)", path, rec.Status, state.history)
	return rec, nil
}

// engineFault marks deadline expiry as a timeout rather than a plain engine
// failure.
func engineFault(code faults.Code, stage, path string, err error) *faults.DocumentFault {
	if errors.Is(err, context.DeadlineExceeded) {
		code = faults.CodeOCRTimeout
	}
	return faults.NewDocumentFault(code, stage, path, err)
}

func (s *documentState) mustAdvance(to docState) {
	if err := s.advance(to); err != nil {
		panic(err)
	}
}

func (s *documentState) mustResolveAnchor(found bool) {
	if err := s.resolveAnchor(found); err != nil {
		panic(err)
	}
}
