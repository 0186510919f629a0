package headless

import (
	"image"
	"image/color"
	"math"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/webview/engine"
)

const (
	pageMargin  = 8
	barPadding  = 5
	menuWidth   = 140
	headingRate = 1.4
)

var (
	barColor     = color.NRGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	borderColor  = color.NRGBA{R: 0xbb, G: 0xbb, B: 0xbb, A: 0xff}
	textColor    = color.NRGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff}
	dimColor     = color.NRGBA{R: 0x90, G: 0x90, B: 0x90, A: 0xff}
	linkColor    = color.NRGBA{R: 0x1a, G: 0x0d, B: 0xab, A: 0xff}
	menuColor    = color.NRGBA{R: 0xfa, G: 0xfa, B: 0xfa, A: 0xff}
	hoverColor   = color.NRGBA{R: 0xd0, G: 0xe0, B: 0xff, A: 0xff}
	loadingColor = color.NRGBA{R: 0x42, G: 0x85, B: 0xf4, A: 0xff}
)

// linkArea is the clickable rectangle of a link in view coordinates.
type linkArea struct {
	rect engine.Rect
	href string
}

func (a linkArea) contains(x, y int) bool {
	return x >= a.rect.X && x < a.rect.X+a.rect.Width && y >= a.rect.Y && y < a.rect.Y+a.rect.Height
}

// menuAction is an entry of the context menu.
type menuAction int

const (
	menuBack menuAction = iota
	menuForward
	menuReload
)

type menuItem struct {
	label   string
	action  menuAction
	enabled bool
}

// pageView is everything paintPage needs to draw one frame.
type pageView struct {
	width, height int
	background    color.NRGBA
	url, title    string
	blocks        []block
	scroll        int
	input         string
	progress      float64
}

// pageLayout is what paintPage learned while drawing.
type pageLayout struct {
	links []linkArea
	// contentHeight is the height of all blocks, unscrolled.
	contentHeight int
}

// painter draws pages and menus with gg. A painter is used from the engine
// thread only.
type painter struct {
	body    text.Face
	heading text.Face

	lineHeight    float64
	headingHeight float64
}

func loadDefaultFont() (*text.FontSource, error) {
	return text.NewFontSource(goregular.TTF)
}

func newPainter(src *text.FontSource, size float64) *painter {
	p := &painter{
		body:    src.Face(size),
		heading: src.Face(size * headingRate),
	}
	p.lineHeight = lineHeight(p.body)
	p.headingHeight = lineHeight(p.heading)
	return p
}

func lineHeight(f text.Face) float64 {
	m := f.Metrics()
	return math.Ceil(m.Ascent + m.Descent + m.LineGap)
}

func ascent(f text.Face) float64 {
	return math.Ceil(f.Metrics().Ascent)
}

// barHeight is the height of the address bar and of the input line.
func (p *painter) barHeight() int {
	return int(p.lineHeight) + 2*barPadding
}

// inputRect is the input line at the bottom of the view.
func (p *painter) inputRect(width, height int) engine.Rect {
	h := p.barHeight()
	return engine.Rect{X: 0, Y: height - h, Width: width, Height: h}
}

// viewport is the scrollable content area.
func (p *painter) viewport(width, height int) engine.Rect {
	top := p.barHeight()
	return engine.Rect{X: 0, Y: top, Width: width, Height: max(0, height-2*top)}
}

func fillRect(dc *gg.Context, r engine.Rect, c color.Color) {
	dc.SetColor(c)
	dc.DrawRectangle(float64(r.X), float64(r.Y), float64(r.Width), float64(r.Height))
	_ = dc.Fill()
}

// paintPage draws v into dc, which must be v.width by v.height.
func (p *painter) paintPage(dc *gg.Context, v *pageView) pageLayout {
	var layout pageLayout
	fillRect(dc, engine.Rect{Width: v.width, Height: v.height}, v.background)

	// Page content first so the bars paint over overflow.
	vp := p.viewport(v.width, v.height)
	y := float64(vp.Y + pageMargin - v.scroll)
	maxWidth := float64(v.width - 2*pageMargin)
	for _, b := range v.blocks {
		face, lh := p.body, p.lineHeight
		col := color.Color(textColor)
		switch b.kind {
		case blockHeading:
			face, lh = p.heading, p.headingHeight
		case blockLink:
			col = linkColor
		}
		dc.SetFont(face)
		dc.SetColor(col)

		lines := []text.WrapResult{{Text: b.text}}
		if b.kind != blockPre {
			lines = text.WrapText(b.text, face, maxWidth, text.WrapWordChar)
		}
		for _, line := range lines {
			if y+lh > float64(vp.Y) && y < float64(vp.Y+vp.Height) {
				dc.DrawString(line.Text, pageMargin, y+ascent(face))
				if b.kind == blockLink {
					w := face.Advance(line.Text)
					layout.links = append(layout.links, linkArea{
						rect: engine.Rect{X: pageMargin, Y: int(y), Width: int(math.Ceil(w)), Height: int(lh)},
						href: b.href,
					})
				}
			}
			y += lh
		}
		y += p.lineHeight / 2
	}
	layout.contentHeight = int(y) + v.scroll - vp.Y

	p.paintBar(dc, v)
	p.paintInput(dc, v)
	return layout
}

func (p *painter) paintBar(dc *gg.Context, v *pageView) {
	h := p.barHeight()
	fillRect(dc, engine.Rect{Width: v.width, Height: h}, barColor)
	fillRect(dc, engine.Rect{Y: h - 1, Width: v.width, Height: 1}, borderColor)
	if v.progress > 0 && v.progress < 1 {
		fillRect(dc, engine.Rect{Y: h - 2, Width: int(float64(v.width) * v.progress), Height: 2}, loadingColor)
	}

	label := v.url
	if v.title != "" {
		label = v.title + "  " + v.url
	}
	dc.SetFont(p.body)
	dc.SetColor(textColor)
	dc.DrawString(label, pageMargin, barPadding+ascent(p.body))
}

func (p *painter) paintInput(dc *gg.Context, v *pageView) {
	r := p.inputRect(v.width, v.height)
	fillRect(dc, r, barColor)
	fillRect(dc, engine.Rect{Y: r.Y, Width: r.Width, Height: 1}, borderColor)

	dc.SetFont(p.body)
	baseline := float64(r.Y+barPadding) + ascent(p.body)
	if v.input == "" {
		dc.SetColor(dimColor)
		dc.DrawString("Type here", pageMargin, baseline)
		return
	}
	dc.SetColor(textColor)
	dc.DrawString(v.input+"|", pageMargin, baseline)
}

// menuSize returns the size of the context menu for n items.
func (p *painter) menuSize(n int) (int, int) {
	return menuWidth, n*p.barHeight() + 2
}

// menuItemAt returns the index of the item under (x, y) relative to the
// menu origin, or -1.
func (p *painter) menuItemAt(x, y, n int) int {
	if x < 0 || x >= menuWidth || y < 1 {
		return -1
	}
	i := (y - 1) / p.barHeight()
	if i >= n {
		return -1
	}
	return i
}

// paintMenu draws the context menu into dc, which must be menuSize large.
func (p *painter) paintMenu(dc *gg.Context, items []menuItem, hover int) {
	w, h := p.menuSize(len(items))
	fillRect(dc, engine.Rect{Width: w, Height: h}, borderColor)
	fillRect(dc, engine.Rect{X: 1, Y: 1, Width: w - 2, Height: h - 2}, menuColor)

	dc.SetFont(p.body)
	ih := p.barHeight()
	for i, it := range items {
		y := 1 + i*ih
		if i == hover && it.enabled {
			fillRect(dc, engine.Rect{X: 1, Y: y, Width: w - 2, Height: ih}, hoverColor)
		}
		if it.enabled {
			dc.SetColor(textColor)
		} else {
			dc.SetColor(dimColor)
		}
		dc.DrawString(it.label, pageMargin, float64(y+barPadding)+ascent(p.body))
	}
}

// frameBGRA converts img into a tightly packed BGRA buffer, reusing dst
// when it is large enough.
func frameBGRA(img image.Image, dst []byte) []byte {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != b.Dx()*4 {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	n := b.Dx() * b.Dy() * engine.BytesPerPixel
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	src := rgba.Pix[:n]
	for i := 0; i < n; i += 4 {
		dst[i+0] = src[i+2]
		dst[i+1] = src[i+1]
		dst[i+2] = src[i+0]
		dst[i+3] = src[i+3]
	}
	return dst
}
