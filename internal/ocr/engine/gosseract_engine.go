package engine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"delivery-audit/internal/ocr"
)

// GosseractEngine runs Tesseract through gosseract. Every call builds its own
// client from the fixed language list, so one engine can serve many
// goroutines.
type GosseractEngine struct {
	languages     []string
	recognizePSM  gosseract.PageSegMode
	clientFactory func() *gosseract.Client
}

// DefaultRecognitionPSM treats the region as scattered handwriting.
const DefaultRecognitionPSM = int(gosseract.PSM_SPARSE_TEXT)

// Option tunes a GosseractEngine.
type Option func(*GosseractEngine)

// WithRecognitionPSM sets the page segmentation mode used by Recognize.
// Zero keeps the default.
func WithRecognitionPSM(psm int) Option {
	return func(g *GosseractEngine) {
		if psm != 0 {
			g.recognizePSM = gosseract.PageSegMode(psm)
		}
	}
}

func NewGosseractEngine(languages []string, opts ...Option) *GosseractEngine {
	g := &GosseractEngine{
		languages:     append([]string(nil), languages...),
		recognizePSM:  gosseract.PSM_SPARSE_TEXT,
		clientFactory: gosseract.NewClient,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GosseractEngine) Name() string { return "tesseract" }

func (g *GosseractEngine) Languages() []string {
	return append([]string(nil), g.languages...)
}

// Probe forces Tesseract to load its language data. Missing traineddata only
// surfaces on the first recognition, so this runs one on a blank image.
func (g *GosseractEngine) Probe() error {
	client, err := g.newClient(gosseract.PSM_AUTO)
	if err != nil {
		return err
	}
	defer client.Close()

	blank := image.NewGray(image.Rect(0, 0, 32, 32))
	draw.Draw(blank, blank.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	data, err := encodePNG(blank)
	if err != nil {
		return err
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return fmt.Errorf("set probe image: %w", err)
	}
	if _, err := client.Text(); err != nil {
		return fmt.Errorf("initialise tesseract with %v: %w", g.languages, err)
	}
	return nil
}

func (g *GosseractEngine) DetectText(ctx context.Context, img image.Image) ([]ocr.Token, error) {
	boxes, err := g.boxes(ctx, img, gosseract.PSM_AUTO, gosseract.RIL_TEXTLINE, "")
	if err != nil {
		return nil, err
	}
	tokens := make([]ocr.Token, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		tokens = append(tokens, ocr.Token{
			Text:       text,
			Box:        b.Box,
			Confidence: b.Confidence / 100.0,
		})
	}
	return tokens, nil
}

func (g *GosseractEngine) Recognize(ctx context.Context, img image.Image, allowlist string) ([]string, error) {
	boxes, err := g.boxes(ctx, img, g.recognizePSM, gosseract.RIL_WORD, allowlist)
	if err != nil {
		return nil, err
	}
	fragments := make([]string, 0, len(boxes))
	for _, b := range boxes {
		if text := strings.TrimSpace(b.Word); text != "" {
			fragments = append(fragments, text)
		}
	}
	return fragments, nil
}

func (g *GosseractEngine) Close() error {
	return nil
}

func (g *GosseractEngine) boxes(ctx context.Context, img image.Image, psm gosseract.PageSegMode, level gosseract.PageIteratorLevel, allowlist string) ([]gosseract.BoundingBox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client, err := g.newClient(psm)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if allowlist != "" {
		if err := client.SetWhitelist(allowlist); err != nil {
			return nil, fmt.Errorf("set whitelist: %w", err)
		}
	}
	data, err := encodePNG(img)
	if err != nil {
		return nil, err
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	boxes, err := client.GetBoundingBoxes(level)
	if err != nil {
		return nil, fmt.Errorf("tesseract bounding boxes: %w", err)
	}
	return boxes, nil
}

func (g *GosseractEngine) newClient(psm gosseract.PageSegMode) (*gosseract.Client, error) {
	client := g.clientFactory()
	if err := client.SetLanguage(g.languages...); err != nil {
		client.Close()
		return nil, fmt.Errorf("set languages %v: %w", g.languages, err)
	}
	if err := client.SetPageSegMode(psm); err != nil {
		client.Close()
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}
	return client, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
