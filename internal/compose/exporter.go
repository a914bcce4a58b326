package compose

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/kimhsiao/photowall/backend/internal/apperr"
	"github.com/kimhsiao/photowall/backend/internal/models"
)

// Base layout constants, multiplied by the quality scale factor.
const (
	baseWidth       = 240 // canvas width
	basePadding     = 12  // frame border
	baseMinCaption  = 80  // minimum caption block height
	baseCaptionPad  = 40  // vertical slack around caption lines
	baseLineHeight  = 18  // caption line advance
	baseCaptionSize = 13  // caption font size
	baseLabelSize   = 9   // timestamp font size
)

// FilenamePrefix is the app prefix of exported file names.
const FilenamePrefix = "photowall"

var (
	canvasColor    = color.NRGBA{R: 0xFA, G: 0xF8, B: 0xF3, A: 0xFF}
	captionColor   = color.NRGBA{R: 0x3A, G: 0x3A, B: 0x3A, A: 0xFF}
	timestampColor = color.NRGBA{R: 0x8C, G: 0x88, B: 0x80, A: 0xFF}
)

// Config holds exporter configuration.
type Config struct {
	// Scale multiplies every layout constant; 2 doubles the output
	// resolution.
	Scale int
	// DecodeTimeout bounds the image-decode step so a corrupt payload
	// aborts the export instead of hanging.
	DecodeTimeout time.Duration
	// JPEGQuality is the output compression quality (1-100).
	JPEGQuality int
}

// DefaultConfig returns the default exporter configuration.
func DefaultConfig() *Config {
	return &Config{
		Scale:         2,
		DecodeTimeout: 10 * time.Second,
		JPEGQuality:   90,
	}
}

func (c *Config) normalize() {
	def := DefaultConfig()
	if c.Scale <= 0 {
		c.Scale = def.Scale
	}
	if c.DecodeTimeout <= 0 {
		c.DecodeTimeout = def.DecodeTimeout
	}
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		c.JPEGQuality = def.JPEGQuality
	}
}

// Result is a finished export: an encoded JPEG and the name to save it
// under.
type Result struct {
	Filename string
	Data     []byte
	Width    int
	Height   int
}

// Exporter composites photos into downloadable images.
type Exporter struct {
	config *Config
	logger *slog.Logger

	fontOnce    sync.Once
	fontErr     error
	captionFace font.Face
	labelFace   font.Face
}

// NewExporter creates an exporter with the given configuration.
func NewExporter(config *Config) *Exporter {
	if config == nil {
		config = DefaultConfig()
	}
	config.normalize()

	return &Exporter{
		config: config,
		logger: slog.Default().With("component", "exporter"),
	}
}

// faces lazily parses the embedded typeface at the configured scale.
func (e *Exporter) faces() (caption, label font.Face, err error) {
	e.fontOnce.Do(func() {
		parsed, err := opentype.Parse(goregular.TTF)
		if err != nil {
			e.fontErr = err
			return
		}
		s := float64(e.config.Scale)
		e.captionFace, err = opentype.NewFace(parsed, &opentype.FaceOptions{
			Size: baseCaptionSize * s, DPI: 72, Hinting: font.HintingFull,
		})
		if err != nil {
			e.fontErr = err
			return
		}
		e.labelFace, err = opentype.NewFace(parsed, &opentype.FaceOptions{
			Size: baseLabelSize * s, DPI: 72, Hinting: font.HintingFull,
		})
		if err != nil {
			e.fontErr = err
		}
	})
	if e.fontErr != nil {
		return nil, nil, e.fontErr
	}
	return e.captionFace, e.labelFace, nil
}

// Export composites the photo and its caption onto a frame-styled canvas
// and encodes it as a JPEG. The photo image is decoded fully before
// drawing; a decode error or timeout aborts the export with DECODE_FAILED
// and no partial output.
func (e *Exporter) Export(ctx context.Context, photo *models.Photo) (*Result, error) {
	img, err := e.decode(ctx, photo.Image)
	if err != nil {
		return nil, err
	}

	captionFace, labelFace, err := e.faces()
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrExportFailed, "failed to load typeface", err)
	}

	s := e.config.Scale
	width := baseWidth * s
	pad := basePadding * s
	innerWidth := width - 2*pad
	photoHeight := innerWidth * 4 / 3 // capture aspect is 3:4
	lineHeight := baseLineHeight * s

	lines := WrapText(captionFace, photo.Caption, innerWidth)
	captionBlock := len(lines)*lineHeight + baseCaptionPad*s
	if minBlock := baseMinCaption * s; captionBlock < minBlock {
		captionBlock = minBlock
	}
	height := pad + photoHeight + captionBlock + pad

	canvas := imaging.New(width, height, canvasColor)
	fitted := imaging.Fill(img, innerWidth, photoHeight, imaging.Center, imaging.Lanczos)
	canvas = imaging.Paste(canvas, fitted, image.Pt(pad, pad))

	// Timestamp label: uppercased and letter-spaced, centered under the
	// photo.
	label := strings.ToUpper(photo.Timestamp)
	spacing := 2 * s
	labelY := pad + photoHeight + 22*s
	e.drawSpaced(canvas, labelFace, label, spacing, labelY, timestampColor)

	// Caption lines, centered, below the timestamp.
	captionY := pad + photoHeight + 22*s + lineHeight + 6*s
	drawer := &font.Drawer{Dst: canvas, Src: image.NewUniform(captionColor), Face: captionFace}
	for i, line := range lines {
		lineWidth := drawer.MeasureString(line).Ceil()
		drawer.Dot = fixed.P((width-lineWidth)/2, captionY+i*lineHeight)
		drawer.DrawString(line)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.JPEG, imaging.JPEGQuality(e.config.JPEGQuality)); err != nil {
		return nil, apperr.Wrap(apperr.ErrExportFailed, "failed to encode export", err)
	}

	result := &Result{
		Filename: Filename(photo.Timestamp),
		Data:     buf.Bytes(),
		Width:    width,
		Height:   height,
	}
	e.logger.Debug("export composed",
		"photo_id", photo.ID.String(),
		"filename", result.Filename,
		"bytes", len(result.Data))
	return result, nil
}

// decode decodes the photo payload under the configured timeout. Decoding
// runs in its own goroutine so a pathological payload cannot block the
// caller past the deadline.
func (e *Exporter) decode(ctx context.Context, payload []byte) (image.Image, error) {
	if len(payload) == 0 {
		return nil, apperr.New(apperr.ErrDecodeFailed, "photo has no image payload")
	}

	ctx, cancel := context.WithTimeout(ctx, e.config.DecodeTimeout)
	defer cancel()

	type decoded struct {
		img image.Image
		err error
	}
	ch := make(chan decoded, 1)
	go func() {
		img, _, err := image.Decode(bytes.NewReader(payload))
		ch <- decoded{img, err}
	}()

	select {
	case d := <-ch:
		if d.err != nil {
			return nil, apperr.Wrap(apperr.ErrDecodeFailed, "failed to decode photo image", d.err)
		}
		return d.img, nil
	case <-ctx.Done():
		return nil, apperr.Wrap(apperr.ErrDecodeFailed, "image decode timed out", ctx.Err())
	}
}

// drawSpaced draws text centered at the given baseline with extra spacing
// between letters.
func (e *Exporter) drawSpaced(dst *image.NRGBA, face font.Face, text string, spacing, baselineY int, col color.NRGBA) {
	total := measureSpaced(face, text, spacing)
	drawer := &font.Drawer{Dst: dst, Src: image.NewUniform(col), Face: face}
	drawer.Dot = fixed.P((dst.Bounds().Dx()-total)/2, baselineY)
	for _, r := range text {
		drawer.DrawString(string(r))
		drawer.Dot.X += fixed.I(spacing)
	}
}

// Filename derives the export file name from a photo timestamp, matching
// the <app-prefix>-<timestamp>.<ext> pattern.
func Filename(timestamp string) string {
	sanitized := strings.NewReplacer(" ", "-", ",", "", ":", "-").Replace(timestamp)
	return fmt.Sprintf("%s-%s.jpg", FilenamePrefix, strings.ToLower(sanitized))
}
