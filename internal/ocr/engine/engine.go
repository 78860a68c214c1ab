package engine

import (
	"context"
	"fmt"

	"delivery-audit/internal/ocr"
)

// NewFactory returns the bootstrap factory for an engine type.
func NewFactory(engineType string, opts ...Option) (ocr.Factory, error) {
	switch engineType {
	case "tesseract", "gosseract", "":
		return func(ctx context.Context, languages []string) (ocr.OCREngine, error) {
			if len(languages) == 0 {
				return nil, fmt.Errorf("no OCR languages configured")
			}
			e := NewGosseractEngine(languages, opts...)
			if err := e.Probe(); err != nil {
				return nil, err
			}
			return e, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown engine type: %s", engineType)
	}
}
