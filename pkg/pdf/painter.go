package pdf

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg" // DCTDecode images
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/vector"
)

// maxFormDepth bounds nested form XObjects.
const maxFormDepth = 8

// GraphicsState tracks the parameters the painter honours.
type GraphicsState struct {
	CTM       Matrix // Current Transformation Matrix
	Fill      color.Color
	Stroke    color.Color
	LineWidth float64
}

// Font holds the metrics needed to advance and box glyphs.
type Font struct {
	BaseFont   string
	Widths     map[int]float64 // Map char code -> width (1/1000 units)
	MissingW   float64         // Default width
	SpaceWidth float64         // Width of a space character
	IsCID      bool            // Two-byte codes
}

// TextState tracks text-specific parameters.
type TextState struct {
	Font        *Font
	FontSize    float64
	CharSpacing float64
	WordSpacing float64
	Scale       float64
	Leading     float64
	Rise        float64
	Render      int

	TM  Matrix // Text Matrix
	TLM Matrix // Text Line Matrix
}

func NewTextState() TextState {
	return TextState{
		TM:    IdentityMatrix(),
		TLM:   IdentityMatrix(),
		Scale: 100.0,
	}
}

type segment struct {
	op  byte // 'm', 'l', 'c' or 'h'
	pts [3][2]float64
}

// Painter interprets a page's content stream onto a raster image. Paths,
// colours and images are drawn; text is drawn as one box per glyph sized
// from the font's widths, since glyph outlines are not loaded. Clipping
// paths are ignored.
type Painter struct {
	reader    *Reader
	page      DictionaryObject
	resources DictionaryObject
	dst       draw.Image
	raster    *vector.Rasterizer
	device    Matrix

	// State
	gState    GraphicsState
	gStack    []GraphicsState
	textState TextState
	path      []segment
	cur       [2]float64
	start     [2]float64
	depth     int

	// Resources
	fonts map[string]*Font
}

// NewPainter prepares to paint page onto dst. device maps user space to
// dst pixels (see ViewportTransform).
func NewPainter(r *Reader, page DictionaryObject, dst draw.Image, device Matrix) *Painter {
	size := dst.Bounds().Size()
	res, _ := r.Resolve(page["/Resources"]).(DictionaryObject)
	return &Painter{
		reader:    r,
		page:      page,
		resources: res,
		dst:       dst,
		raster:    vector.NewRasterizer(size.X, size.Y),
		device:    device,
		gState: GraphicsState{
			CTM:       IdentityMatrix(),
			Fill:      color.Black,
			Stroke:    color.Black,
			LineWidth: 1,
		},
		textState: NewTextState(),
		fonts:     make(map[string]*Font),
	}
}

// Paint runs the page's content streams. It checks ctx between batches of
// operations.
func (p *Painter) Paint(ctx context.Context) error {
	if p.dst.Bounds().Empty() {
		return nil
	}
	data, err := p.reader.PageContents(p.page)
	if err != nil {
		return err
	}
	return p.run(ctx, data)
}

func (p *Painter) run(ctx context.Context, data []byte) error {
	ops, err := NewContentStreamParser(data).Parse()
	if err != nil && len(ops) == 0 {
		return err
	}
	for i, op := range ops {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := p.processOp(ctx, op); err != nil {
			return err
		}
	}
	return nil
}

// processOp applies one operator. Only a failed nested form, cancellation
// included, is reported; malformed operands are skipped.
func (p *Painter) processOp(ctx context.Context, op Operation) error {
	args := op.Operands
	nums := func(n int) ([]float64, bool) {
		if len(args) < n {
			return nil, false
		}
		out := make([]float64, n)
		for i := range out {
			out[i] = number(args[len(args)-n+i])
		}
		return out, true
	}

	switch op.Operator {
	// General graphics state
	case "q":
		p.gStack = append(p.gStack, p.gState)
	case "Q":
		if len(p.gStack) > 0 {
			p.gState = p.gStack[len(p.gStack)-1]
			p.gStack = p.gStack[:len(p.gStack)-1]
		}
	case "cm":
		if v, ok := nums(6); ok {
			m := Matrix{v[0], v[1], v[2], v[3], v[4], v[5]}
			p.gState.CTM = m.Mult(p.gState.CTM)
		}
	case "w":
		if v, ok := nums(1); ok {
			p.gState.LineWidth = v[0]
		}

	// Colour
	case "g":
		if v, ok := nums(1); ok {
			p.gState.Fill = gray(v[0])
		}
	case "G":
		if v, ok := nums(1); ok {
			p.gState.Stroke = gray(v[0])
		}
	case "rg":
		if v, ok := nums(3); ok {
			p.gState.Fill = rgb(v[0], v[1], v[2])
		}
	case "RG":
		if v, ok := nums(3); ok {
			p.gState.Stroke = rgb(v[0], v[1], v[2])
		}
	case "k":
		if v, ok := nums(4); ok {
			p.gState.Fill = cmyk(v[0], v[1], v[2], v[3])
		}
	case "K":
		if v, ok := nums(4); ok {
			p.gState.Stroke = cmyk(v[0], v[1], v[2], v[3])
		}
	case "cs":
		p.gState.Fill = color.Black
	case "CS":
		p.gState.Stroke = color.Black
	case "sc", "scn":
		if c, ok := componentColor(args); ok {
			p.gState.Fill = c
		}
	case "SC", "SCN":
		if c, ok := componentColor(args); ok {
			p.gState.Stroke = c
		}

	// Path construction
	case "m":
		if v, ok := nums(2); ok {
			p.moveTo(v[0], v[1])
		}
	case "l":
		if v, ok := nums(2); ok {
			p.lineTo(v[0], v[1])
		}
	case "c":
		if v, ok := nums(6); ok {
			p.curveTo(v[0], v[1], v[2], v[3], v[4], v[5])
		}
	case "v":
		if v, ok := nums(4); ok {
			p.curveTo(p.cur[0], p.cur[1], v[0], v[1], v[2], v[3])
		}
	case "y":
		if v, ok := nums(4); ok {
			p.curveTo(v[0], v[1], v[2], v[3], v[2], v[3])
		}
	case "h":
		p.closePath()
	case "re":
		if v, ok := nums(4); ok {
			x, y, w, h := v[0], v[1], v[2], v[3]
			p.moveTo(x, y)
			p.lineTo(x+w, y)
			p.lineTo(x+w, y+h)
			p.lineTo(x, y+h)
			p.closePath()
		}

	// Path painting
	case "f", "F", "f*":
		p.fill(p.gState.Fill)
		p.path = nil
	case "S":
		p.stroke()
		p.path = nil
	case "s":
		p.closePath()
		p.stroke()
		p.path = nil
	case "B", "B*":
		p.fill(p.gState.Fill)
		p.stroke()
		p.path = nil
	case "b", "b*":
		p.closePath()
		p.fill(p.gState.Fill)
		p.stroke()
		p.path = nil
	case "n":
		p.path = nil

	// XObjects and inline images
	case "Do":
		if len(args) > 0 {
			if name, ok := args[0].(NameObject); ok {
				return p.drawXObject(ctx, string(name))
			}
		}
	case "EI":
		if len(args) > 0 {
			if s, ok := args[0].(StreamObject); ok {
				p.drawInlineImage(s)
			}
		}

	// Text
	case "BT":
		p.textState.TM = IdentityMatrix()
		p.textState.TLM = IdentityMatrix()
	case "Tc":
		if v, ok := nums(1); ok {
			p.textState.CharSpacing = v[0]
		}
	case "Tw":
		if v, ok := nums(1); ok {
			p.textState.WordSpacing = v[0]
		}
	case "Tz":
		if v, ok := nums(1); ok {
			p.textState.Scale = v[0]
		}
	case "TL":
		if v, ok := nums(1); ok {
			p.textState.Leading = v[0]
		}
	case "Ts":
		if v, ok := nums(1); ok {
			p.textState.Rise = v[0]
		}
	case "Tr":
		if v, ok := nums(1); ok {
			p.textState.Render = int(v[0])
		}
	case "Tf":
		if len(args) >= 2 {
			if name, ok := args[0].(NameObject); ok {
				p.textState.Font = p.font(string(name))
			}
			p.textState.FontSize = number(args[1])
		}
	case "Td":
		if v, ok := nums(2); ok {
			p.newLine(v[0], v[1])
		}
	case "TD":
		if v, ok := nums(2); ok {
			p.textState.Leading = -v[1]
			p.newLine(v[0], v[1])
		}
	case "Tm":
		if v, ok := nums(6); ok {
			p.textState.TM = Matrix{v[0], v[1], v[2], v[3], v[4], v[5]}
			p.textState.TLM = p.textState.TM
		}
	case "T*":
		p.newLine(0, -p.textState.Leading)
	case "Tj":
		if len(args) > 0 {
			p.showText(args[0])
		}
	case "TJ":
		if len(args) == 0 {
			return nil
		}
		if arr, ok := args[0].(ArrayObject); ok {
			for _, obj := range arr {
				if numObj, ok := obj.(NumberObject); ok {
					// Adjustment: -num/1000 * fontsize * scale
					p.advance(-float64(numObj) / 1000.0 * p.textState.FontSize * (p.textState.Scale / 100.0))
				} else {
					p.showText(obj)
				}
			}
		}
	case "'":
		p.processOp(ctx, Operation{Operator: "T*"})
		p.processOp(ctx, Operation{Operator: "Tj", Operands: args})
	case "\"":
		if len(args) >= 3 {
			p.textState.WordSpacing = number(args[0])
			p.textState.CharSpacing = number(args[1])
			p.processOp(ctx, Operation{Operator: "T*"})
			p.processOp(ctx, Operation{Operator: "Tj", Operands: args[2:]})
		}
	}
	return nil
}

func (p *Painter) moveTo(x, y float64) {
	p.path = append(p.path, segment{op: 'm', pts: [3][2]float64{{x, y}}})
	p.cur = [2]float64{x, y}
	p.start = p.cur
}

func (p *Painter) lineTo(x, y float64) {
	p.path = append(p.path, segment{op: 'l', pts: [3][2]float64{{x, y}}})
	p.cur = [2]float64{x, y}
}

func (p *Painter) curveTo(x1, y1, x2, y2, x3, y3 float64) {
	p.path = append(p.path, segment{op: 'c', pts: [3][2]float64{{x1, y1}, {x2, y2}, {x3, y3}}})
	p.cur = [2]float64{x3, y3}
}

func (p *Painter) closePath() {
	p.path = append(p.path, segment{op: 'h'})
	p.cur = p.start
}

func (p *Painter) toDevice() Matrix {
	return p.gState.CTM.Mult(p.device)
}

func (p *Painter) resetRaster() bool {
	size := p.dst.Bounds().Size()
	if size.X <= 0 || size.Y <= 0 {
		return false
	}
	p.raster.Reset(size.X, size.Y)
	return true
}

func (p *Painter) draw(c color.Color) {
	p.raster.ClosePath()
	p.raster.Draw(p.dst, p.dst.Bounds(), image.NewUniform(c), image.Point{})
}

func (p *Painter) fill(c color.Color) {
	if len(p.path) == 0 || !p.resetRaster() {
		return
	}
	m := p.toDevice()
	for _, s := range p.path {
		switch s.op {
		case 'm':
			x, y := m.Apply(s.pts[0][0], s.pts[0][1])
			p.raster.MoveTo(float32(x), float32(y))
		case 'l':
			x, y := m.Apply(s.pts[0][0], s.pts[0][1])
			p.raster.LineTo(float32(x), float32(y))
		case 'c':
			x1, y1 := m.Apply(s.pts[0][0], s.pts[0][1])
			x2, y2 := m.Apply(s.pts[1][0], s.pts[1][1])
			x3, y3 := m.Apply(s.pts[2][0], s.pts[2][1])
			p.raster.CubeTo(float32(x1), float32(y1), float32(x2), float32(y2), float32(x3), float32(y3))
		case 'h':
			p.raster.ClosePath()
		}
	}
	p.draw(c)
}

// stroke draws every segment as a quad of the current line width. Curves
// are flattened first.
func (p *Painter) stroke() {
	if len(p.path) == 0 || !p.resetRaster() {
		return
	}
	m := p.toDevice()
	half := max(p.gState.LineWidth*m.scaleFactor()/2, 0.5)

	var cur, start [2]float64
	line := func(to [2]float64) {
		vx, vy := to[0]-cur[0], to[1]-cur[1]
		vl := math.Hypot(vx, vy)
		if vl > 0 {
			nx, ny := -vy/vl*half, vx/vl*half
			p.raster.MoveTo(float32(cur[0]+nx), float32(cur[1]+ny))
			p.raster.LineTo(float32(to[0]+nx), float32(to[1]+ny))
			p.raster.LineTo(float32(to[0]-nx), float32(to[1]-ny))
			p.raster.LineTo(float32(cur[0]-nx), float32(cur[1]-ny))
			p.raster.ClosePath()
		}
		cur = to
	}

	for _, s := range p.path {
		switch s.op {
		case 'm':
			x, y := m.Apply(s.pts[0][0], s.pts[0][1])
			cur = [2]float64{x, y}
			start = cur
		case 'l':
			x, y := m.Apply(s.pts[0][0], s.pts[0][1])
			line([2]float64{x, y})
		case 'c':
			x0, y0 := cur[0], cur[1]
			x1, y1 := m.Apply(s.pts[0][0], s.pts[0][1])
			x2, y2 := m.Apply(s.pts[1][0], s.pts[1][1])
			x3, y3 := m.Apply(s.pts[2][0], s.pts[2][1])
			const steps = 12
			for i := 1; i <= steps; i++ {
				t := float64(i) / steps
				u := 1 - t
				x := u*u*u*x0 + 3*u*u*t*x1 + 3*u*t*t*x2 + t*t*t*x3
				y := u*u*u*y0 + 3*u*u*t*y1 + 3*u*t*t*y2 + t*t*t*y3
				line([2]float64{x, y})
			}
		case 'h':
			line(start)
		}
	}
	p.draw(p.gState.Stroke)
}

// placeholder fills the unit square (the image space of the current CTM)
// with light grey, standing in for image data that cannot be decoded.
func (p *Painter) placeholder() {
	saved := p.path
	p.path = nil
	p.moveTo(0, 0)
	p.lineTo(1, 0)
	p.lineTo(1, 1)
	p.lineTo(0, 1)
	p.closePath()
	p.fill(color.Gray{Y: 0xd0})
	p.path = saved
}

func (p *Painter) drawXObject(ctx context.Context, name string) error {
	xobjects, _ := p.reader.Resolve(p.resources["/XObject"]).(DictionaryObject)
	stream, ok := p.reader.Resolve(xobjects[name]).(StreamObject)
	if !ok {
		return nil
	}

	switch stream.Dictionary["/Subtype"] {
	case NameObject("/Form"):
		if p.depth >= maxFormDepth || !stream.Decoded {
			return nil
		}
		savedState, savedRes, savedStack := p.gState, p.resources, len(p.gStack)
		if arr, ok := p.reader.Resolve(stream.Dictionary["/Matrix"]).(ArrayObject); ok && len(arr) == 6 {
			var fm Matrix
			for i, e := range arr {
				fm[i] = number(p.reader.Resolve(e))
			}
			p.gState.CTM = fm.Mult(p.gState.CTM)
		}
		if res, ok := p.reader.Resolve(stream.Dictionary["/Resources"]).(DictionaryObject); ok {
			p.resources = res
		}
		p.depth++
		err := p.run(ctx, stream.Data)
		p.depth--
		p.gState, p.resources = savedState, savedRes
		if len(p.gStack) > savedStack {
			p.gStack = p.gStack[:savedStack]
		}
		if err != nil {
			return fmt.Errorf("form %s: %w", name, err)
		}
	case NameObject("/Image"):
		p.drawImage(p.decodeImage(stream))
	}
	return nil
}

func (p *Painter) drawInlineImage(s StreamObject) {
	filters, _ := filterChain(s.Dictionary, p.reader.Resolve)
	if len(filters) == 1 && filters[0] == "/DCTDecode" {
		p.drawImage(p.decodeImage(s))
		return
	}
	data, err := decodeStream(s.Dictionary, s.Data, p.reader.Resolve)
	if err != nil {
		p.placeholder()
		return
	}
	p.drawImage(p.decodeImage(StreamObject{Dictionary: s.Dictionary, Data: data, Decoded: true}))
}

// drawImage maps img onto the unit square of the current CTM, or paints a
// placeholder when img is nil.
func (p *Painter) drawImage(img image.Image) {
	if img == nil {
		p.placeholder()
		return
	}
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	if w == 0 || h == 0 {
		return
	}
	m := p.toDevice()
	// Image space (0,0) is the top-left sample and maps to user (0,1).
	s2d := f64.Aff3{
		m[0] / w, -m[2] / h, m[2] + m[4],
		m[1] / w, -m[3] / h, m[3] + m[5],
	}
	xdraw.ApproxBiLinear.Transform(p.dst, s2d, img, b, draw.Over, nil)
}

func (p *Painter) decodeImage(s StreamObject) image.Image {
	filters, _ := filterChain(s.Dictionary, p.reader.Resolve)
	if len(filters) == 1 && (filters[0] == "/DCTDecode" || filters[0] == "/DCT") {
		img, _, err := image.Decode(bytes.NewReader(s.Data))
		if err != nil {
			return nil
		}
		return img
	}
	if !s.Decoded {
		return nil
	}

	w, _ := integer(p.reader.Resolve(s.Dictionary["/Width"]))
	h, _ := integer(p.reader.Resolve(s.Dictionary["/Height"]))
	bpc, _ := integer(p.reader.Resolve(s.Dictionary["/BitsPerComponent"]))
	if w <= 0 || h <= 0 || bpc != 8 {
		return nil
	}

	switch p.components(s.Dictionary["/ColorSpace"]) {
	case 1:
		if len(s.Data) < w*h {
			return nil
		}
		img := image.NewGray(image.Rect(0, 0, w, h))
		copy(img.Pix, s.Data)
		return img
	case 3:
		if len(s.Data) < w*h*3 {
			return nil
		}
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for i := 0; i < w*h; i++ {
			img.Pix[4*i] = s.Data[3*i]
			img.Pix[4*i+1] = s.Data[3*i+1]
			img.Pix[4*i+2] = s.Data[3*i+2]
			img.Pix[4*i+3] = 0xff
		}
		return img
	}
	return nil
}

// components returns the number of colour components of a colour space,
// or 0 when unsupported.
func (p *Painter) components(cs Object) int {
	switch v := p.reader.Resolve(cs).(type) {
	case NameObject:
		switch v {
		case "/DeviceGray", "/G", "/CalGray":
			return 1
		case "/DeviceRGB", "/RGB", "/CalRGB":
			return 3
		}
	case ArrayObject:
		if len(v) == 2 && p.reader.Resolve(v[0]) == NameObject("/ICCBased") {
			if icc, ok := p.reader.Resolve(v[1]).(StreamObject); ok {
				n, _ := integer(p.reader.Resolve(icc.Dictionary["/N"]))
				if n == 1 || n == 3 {
					return n
				}
			}
		}
	}
	return 0
}

func (p *Painter) newLine(tx, ty float64) {
	m := Matrix{1, 0, 0, 1, tx, ty}
	p.textState.TLM = m.Mult(p.textState.TLM)
	p.textState.TM = p.textState.TLM
}

// advance moves the text matrix by tx unscaled text space units.
func (p *Painter) advance(tx float64) {
	p.textState.TM = Matrix{1, 0, 0, 1, tx, 0}.Mult(p.textState.TM)
}

// font resolves and caches a font resource by name.
func (p *Painter) font(name string) *Font {
	if f, ok := p.fonts[name]; ok {
		return f
	}
	fonts, _ := p.reader.Resolve(p.resources["/Font"]).(DictionaryObject)
	obj, ok := p.reader.Resolve(fonts[name]).(DictionaryObject)
	if !ok {
		return nil
	}
	f := loadFont(p.reader, obj)
	p.fonts[name] = f
	return f
}

// loadFont parses glyph widths for simple fonts (/FirstChar, /Widths) and
// composite fonts (/DescendantFonts with /W and /DW).
func loadFont(r *Reader, obj DictionaryObject) *Font {
	f := &Font{
		Widths:   make(map[int]float64),
		MissingW: 500,
	}
	if bf, ok := r.Resolve(obj["/BaseFont"]).(NameObject); ok {
		f.BaseFont = string(bf)
	}

	if obj["/Subtype"] == NameObject("/Type0") {
		f.IsCID = true
		f.MissingW = 1000
		desc, _ := r.Resolve(obj["/DescendantFonts"]).(ArrayObject)
		if len(desc) > 0 {
			if cid, ok := r.Resolve(desc[0]).(DictionaryObject); ok {
				if dw, ok := r.Resolve(cid["/DW"]).(NumberObject); ok {
					f.MissingW = float64(dw)
				}
				parseCIDWidths(r, r.Resolve(cid["/W"]), f.Widths)
			}
		}
	} else if first, ok := integer(r.Resolve(obj["/FirstChar"])); ok {
		// PDF defines widths for range FirstChar to LastChar
		if widths, ok := r.Resolve(obj["/Widths"]).(ArrayObject); ok {
			for i, wObj := range widths {
				if w, ok := r.Resolve(wObj).(NumberObject); ok {
					f.Widths[first+i] = float64(w)
				}
			}
		}
		if fd, ok := r.Resolve(obj["/FontDescriptor"]).(DictionaryObject); ok {
			if mw, ok := r.Resolve(fd["/MissingWidth"]).(NumberObject); ok && mw > 0 {
				f.MissingW = float64(mw)
			}
		}
	}

	// Try char 32, else 250 default
	if w, ok := f.Widths[32]; ok {
		f.SpaceWidth = w
	} else {
		f.SpaceWidth = 250.0
	}
	return f
}

// parseCIDWidths reads a /W array: "c [w1 w2 ...]" or "cfirst clast w".
func parseCIDWidths(r *Reader, o Object, out map[int]float64) {
	arr, ok := o.(ArrayObject)
	if !ok {
		return
	}
	for i := 0; i < len(arr); {
		first, ok := integer(r.Resolve(arr[i]))
		if !ok || i+1 >= len(arr) {
			return
		}
		if ws, ok := r.Resolve(arr[i+1]).(ArrayObject); ok {
			for k, w := range ws {
				out[first+k] = number(r.Resolve(w))
			}
			i += 2
			continue
		}
		if i+2 >= len(arr) {
			return
		}
		last, _ := integer(r.Resolve(arr[i+1]))
		w := number(r.Resolve(arr[i+2]))
		for c := first; c <= last && c-first < 65536; c++ {
			out[c] = w
		}
		i += 3
	}
}

// showText boxes each glyph of a string and advances the text matrix.
func (p *Painter) showText(obj Object) {
	var rawBytes []byte
	switch o := obj.(type) {
	case StringObject:
		rawBytes = []byte(o)
	case HexStringObject:
		rawBytes = []byte(o)
	default:
		return
	}

	ts := &p.textState
	f := ts.Font
	if f == nil {
		f = &Font{Widths: map[int]float64{}, MissingW: 500, SpaceWidth: 250}
	}
	th := ts.Scale / 100.0
	visible := ts.Render != 3 && ts.FontSize != 0

	saved := p.path
	p.path = nil

	step := 1
	if f.IsCID {
		step = 2
	}
	for i := 0; i+step <= len(rawBytes); i += step {
		code := int(rawBytes[i])
		if step == 2 {
			code = code<<8 | int(rawBytes[i+1])
		}
		w, ok := f.Widths[code]
		if !ok {
			w = f.MissingW
		}

		if visible && !(step == 1 && code == 32) {
			// Glyph box in glyph space, mapped by the text rendering matrix.
			trm := Matrix{ts.FontSize * th, 0, 0, ts.FontSize, 0, ts.Rise}.Mult(ts.TM)
			x0, x1 := 0.1*w/1000, 0.9*w/1000
			pts := [4][2]float64{{x0, 0}, {x1, 0}, {x1, 0.66}, {x0, 0.66}}
			for k, pt := range pts {
				x, y := trm.Apply(pt[0], pt[1])
				if k == 0 {
					p.moveTo(x, y)
				} else {
					p.lineTo(x, y)
				}
			}
			p.closePath()
		}

		tx := w / 1000 * ts.FontSize
		tx += ts.CharSpacing
		if step == 1 && code == 32 {
			tx += ts.WordSpacing
		}
		p.advance(tx * th)
	}

	if len(p.path) > 0 {
		r, g, b, _ := p.gState.Fill.RGBA()
		p.fill(color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 0x66})
	}
	p.path = saved
}

func clamp01(v float64) float64 { return max(0, min(1, v)) }

func gray(v float64) color.Color {
	return color.Gray{Y: uint8(math.Round(clamp01(v) * 255))}
}

func rgb(r, g, b float64) color.Color {
	return color.RGBA{
		R: uint8(math.Round(clamp01(r) * 255)),
		G: uint8(math.Round(clamp01(g) * 255)),
		B: uint8(math.Round(clamp01(b) * 255)),
		A: 0xff,
	}
}

func cmyk(c, m, y, k float64) color.Color {
	return rgb((1-c)*(1-k), (1-m)*(1-k), (1-y)*(1-k))
}

// componentColor interprets sc/scn operands by count. Pattern names are
// ignored.
func componentColor(args []Object) (color.Color, bool) {
	var v []float64
	for _, a := range args {
		if n, ok := a.(NumberObject); ok {
			v = append(v, float64(n))
		}
	}
	switch len(v) {
	case 1:
		return gray(v[0]), true
	case 3:
		return rgb(v[0], v[1], v[2]), true
	case 4:
		return cmyk(v[0], v[1], v[2], v[3]), true
	}
	return nil, false
}
