package pipeline

import "fmt"

type docState string

const (
	stateStart           docState = "start"
	stateRasterized      docState = "rasterized"
	stateAnchorResolved  docState = "anchor_resolved"
	stateRegionExtracted docState = "region_extracted"
	stateTimeExtracted   docState = "time_extracted"
	stateParsed          docState = "parsed"
	stateReconciled      docState = "reconciled"
	stateDone            docState = "done"
	stateFailed          docState = "failed"
)

// documentState tracks one document through the analysis stages.
type documentState struct {
	document string
	current  docState
	anchor   bool
	history  []docState
}

func newDocumentState(document string) *documentState {
	return &documentState{document: document, current: stateStart, history: []docState{stateStart}}
}

func (s *documentState) advance(to docState) error {
	if !s.isAllowedTransition(s.current, to) {
		return fmt.Errorf("disallowed transition for %q: %s -> %s", s.document, s.current, to)
	}
	s.current = to
	s.history = append(s.history, to)
	return nil
}

// resolveAnchor records whether the anchor was found, which decides whether
// the region stages run.
func (s *documentState) resolveAnchor(found bool) error {
	s.anchor = found
	return s.advance(stateAnchorResolved)
}

func (s *documentState) fail() {
	if s.current == stateDone || s.current == stateFailed {
		return
	}
	s.current = stateFailed
	s.history = append(s.history, stateFailed)
}

func (s *documentState) isAllowedTransition(from, to docState) bool {
	if to == stateFailed {
		return from != stateDone && from != stateFailed
	}
	switch from {
	case stateStart:
		return to == stateRasterized
	case stateRasterized:
		return to == stateAnchorResolved
	case stateAnchorResolved:
		if s.anchor {
			return to == stateRegionExtracted
		}
		return to == stateDone
	case stateRegionExtracted:
		return to == stateTimeExtracted
	case stateTimeExtracted:
		return to == stateParsed
	case stateParsed:
		return to == stateReconciled
	case stateReconciled:
		return to == stateDone
	default:
		return false
	}
}
