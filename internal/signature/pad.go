package signature

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"time"

	"golang.org/x/image/vector"

	"contrato-firma/internal/domain/entity"
)

// capSegments is the number of vertices used to approximate a round cap
const capSegments = 16

var ErrUnknownPointerEvent = errors.New("unknown pointer event")

// Point is a surface-relative coordinate
type Point struct {
	X float64
	Y float64
}

type Options struct {
	Width     int
	Height    int
	LineWidth float64
	Color     color.Color
	// OnChange is called with the new artifact after every finalized gesture
	// and with nil after Clear.
	OnChange func(*entity.SignatureArtifact)
	Now      func() time.Time
}

// Pad is a drawable signature surface.
// It is not safe for concurrent use; the owning session serializes access.
type Pad struct {
	width     int
	height    int
	lineWidth float64
	ink       *image.Uniform
	canvas    *image.RGBA
	raster    *vector.Rasterizer
	onChange  func(*entity.SignatureArtifact)
	now       func() time.Time

	drawing  bool
	last     Point
	artifact *entity.SignatureArtifact
}

func NewPad(opts Options) *Pad {
	if opts.Width <= 0 {
		opts.Width = 400
	}
	if opts.Height <= 0 {
		opts.Height = 200
	}
	if opts.LineWidth <= 0 {
		opts.LineWidth = 2
	}
	if opts.Color == nil {
		opts.Color = color.Black
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Pad{
		width:     opts.Width,
		height:    opts.Height,
		lineWidth: opts.LineWidth,
		ink:       image.NewUniform(opts.Color),
		canvas:    image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height)),
		raster:    vector.NewRasterizer(opts.Width, opts.Height),
		onChange:  opts.OnChange,
		now:       opts.Now,
	}
}

// PointerDown starts a new gesture at p
func (p *Pad) PointerDown(pt Point) {
	p.drawing = true
	p.last = p.clamp(pt)
}

// PointerMove extends the active gesture to pt and renders the segment
func (p *Pad) PointerMove(pt Point) {
	if !p.drawing {
		return
	}
	pt = p.clamp(pt)
	p.stroke(p.last, pt)
	p.last = pt
}

// PointerUp ends the active gesture and publishes a new artifact
func (p *Pad) PointerUp() error {
	if !p.drawing {
		return nil
	}
	p.drawing = false
	return p.finalize()
}

// PointerLeave ends the active gesture like PointerUp. Leaving the surface
// finalizes too, so a stroke that runs off the edge is never lost.
func (p *Pad) PointerLeave() error {
	return p.PointerUp()
}

// Apply replays a batch of pointer events in order
func (p *Pad) Apply(events []entity.PointerEvent) error {
	for i, ev := range events {
		pt := Point{X: ev.X, Y: ev.Y}
		switch ev.Type {
		case entity.PointerDown:
			p.PointerDown(pt)
		case entity.PointerMove:
			p.PointerMove(pt)
		case entity.PointerUp:
			if err := p.PointerUp(); err != nil {
				return err
			}
		case entity.PointerLeave:
			if err := p.PointerLeave(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("event %d: %w: %q", i, ErrUnknownPointerEvent, ev.Type)
		}
	}
	return nil
}

// Clear erases the surface and drops the artifact
func (p *Pad) Clear() {
	for i := range p.canvas.Pix {
		p.canvas.Pix[i] = 0
	}
	p.drawing = false
	p.artifact = nil
	p.notify()
}

// Load replaces the surface with an image rendered elsewhere, given as a data URL
func (p *Pad) Load(dataURL string) error {
	raw, mediaType, err := DecodeDataURL(dataURL)
	if err != nil {
		return err
	}
	if mediaType != "image/png" {
		return entity.NewDecodeError("signature must be a PNG image", fmt.Errorf("got %q", mediaType))
	}

	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return entity.NewDecodeError("signature image could not be decoded", err)
	}

	for i := range p.canvas.Pix {
		p.canvas.Pix[i] = 0
	}
	draw.Draw(p.canvas, p.canvas.Bounds(), img, img.Bounds().Min, draw.Src)
	p.drawing = false

	return p.finalize()
}

// Artifact returns the latest finalized signature or nil
func (p *Pad) Artifact() *entity.SignatureArtifact {
	return p.artifact
}

// Drawing reports whether a gesture is in progress
func (p *Pad) Drawing() bool {
	return p.drawing
}

func (p *Pad) finalize() error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, p.canvas); err != nil {
		return fmt.Errorf("failed to encode signature: %w", err)
	}

	p.artifact = &entity.SignatureArtifact{
		DataURL:   "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:     p.width,
		Height:    p.height,
		CreatedAt: p.now(),
	}
	p.notify()
	return nil
}

func (p *Pad) notify() {
	if p.onChange != nil {
		p.onChange(p.artifact)
	}
}

// stroke renders the segment a-b with round caps at both ends
func (p *Pad) stroke(a, b Point) {
	half := p.lineWidth / 2
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)

	if length > 0 {
		nx, ny := -dy/length*half, dx/length*half
		p.raster.Reset(p.width, p.height)
		p.moveTo(a.X+nx, a.Y+ny)
		p.lineTo(b.X+nx, b.Y+ny)
		p.lineTo(b.X-nx, b.Y-ny)
		p.lineTo(a.X-nx, a.Y-ny)
		p.raster.ClosePath()
		p.fill()
	}

	p.dot(a, half)
	p.dot(b, half)
}

func (p *Pad) dot(c Point, radius float64) {
	p.raster.Reset(p.width, p.height)
	for i := 0; i < capSegments; i++ {
		angle := 2 * math.Pi * float64(i) / capSegments
		x, y := c.X+radius*math.Cos(angle), c.Y+radius*math.Sin(angle)
		if i == 0 {
			p.moveTo(x, y)
		} else {
			p.lineTo(x, y)
		}
	}
	p.raster.ClosePath()
	p.fill()
}

func (p *Pad) fill() {
	p.raster.Draw(p.canvas, p.canvas.Bounds(), p.ink, image.Point{})
}

func (p *Pad) moveTo(x, y float64) {
	p.raster.MoveTo(float32(clampF(x, p.width)), float32(clampF(y, p.height)))
}

func (p *Pad) lineTo(x, y float64) {
	p.raster.LineTo(float32(clampF(x, p.width)), float32(clampF(y, p.height)))
}

func (p *Pad) clamp(pt Point) Point {
	return Point{X: clampF(pt.X, p.width), Y: clampF(pt.Y, p.height)}
}

func clampF(v float64, limit int) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > float64(limit) {
		return float64(limit)
	}
	return v
}
