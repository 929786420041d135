// Package pdftest builds small PDF files in memory for tests.
package pdftest

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"sort"
	"strings"
)

// Page describes one page. A zero MediaBox inherits US Letter from the page
// tree root.
type Page struct {
	MediaBox [4]float64
	CropBox  [4]float64
	Rotate   int
	// Content is the raw content stream. Resources always provide the
	// font /F1 and, when Image is set, the image XObject /Im1.
	Content string
	Image   bool
	// Form, when set, is the content of a form XObject named /Fm1.
	Form string
}

// Doc describes a whole file.
type Doc struct {
	Pages []Page
	Info  map[string]string
	// Compress stores content streams with FlateDecode.
	Compress bool
	// Encrypt adds an /Encrypt entry to the trailer.
	Encrypt bool
	// BreakXref writes wrong offsets into the cross-reference table.
	BreakXref bool
}

type builder struct {
	buf     bytes.Buffer
	offsets []int
}

func (b *builder) object(num int, body string) {
	for len(b.offsets) <= num {
		b.offsets = append(b.offsets, 0)
	}
	b.offsets[num] = b.buf.Len()
	fmt.Fprintf(&b.buf, "%d 0 obj\n%s\nendobj\n", num, body)
}

func (b *builder) stream(num int, dict string, data []byte) {
	for len(b.offsets) <= num {
		b.offsets = append(b.offsets, 0)
	}
	b.offsets[num] = b.buf.Len()
	fmt.Fprintf(&b.buf, "%d 0 obj\n<< %s /Length %d >>\nstream\n", num, dict, len(data))
	b.buf.Write(data)
	b.buf.WriteString("\nendstream\nendobj\n")
}

// Bytes renders d as a PDF file with a classic cross-reference table.
func (d Doc) Bytes() []byte {
	b := &builder{}
	b.buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	const (
		catalog = 1
		pages   = 2
		font    = 3
		img     = 4
		first   = 5
	)
	b.object(catalog, "<< /Type /Catalog /Pages 2 0 R >>")

	var kids []string
	for i := range d.Pages {
		kids = append(kids, fmt.Sprintf("%d 0 R", first+2*i))
	}
	b.object(pages, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] >>",
		strings.Join(kids, " "), len(d.Pages)))

	widths := strings.TrimSpace(strings.Repeat("500 ", 95))
	b.object(font, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /FirstChar 32 /LastChar 126 /Widths ["+widths+"] >>")

	// 2x2 RGB image: red, green / blue, white.
	b.stream(img, "/Type /XObject /Subtype /Image /Width 2 /Height 2 /ColorSpace /DeviceRGB /BitsPerComponent 8",
		[]byte{255, 0, 0, 0, 255, 0, 0, 0, 255, 255, 255, 255})

	nextForm := first + 2*len(d.Pages)
	forms := map[int]int{}
	for i, p := range d.Pages {
		if p.Form != "" {
			forms[i] = nextForm
			nextForm++
		}
	}

	for i, p := range d.Pages {
		num := first + 2*i
		var attrs strings.Builder
		if p.MediaBox != [4]float64{} {
			fmt.Fprintf(&attrs, " /MediaBox %s", box(p.MediaBox))
		}
		if p.CropBox != [4]float64{} {
			fmt.Fprintf(&attrs, " /CropBox %s", box(p.CropBox))
		}
		if p.Rotate != 0 {
			fmt.Fprintf(&attrs, " /Rotate %d", p.Rotate)
		}
		res := "/Font << /F1 3 0 R >>"
		var xobjects string
		if p.Image {
			xobjects += " /Im1 4 0 R"
		}
		if form, ok := forms[i]; ok {
			xobjects += fmt.Sprintf(" /Fm1 %d 0 R", form)
		}
		if xobjects != "" {
			res += " /XObject <<" + xobjects + " >>"
		}
		b.object(num, fmt.Sprintf("<< /Type /Page /Parent 2 0 R%s /Resources << %s >> /Contents %d 0 R >>",
			attrs.String(), res, num+1))

		content := []byte(p.Content)
		if d.Compress {
			var z bytes.Buffer
			w := zlib.NewWriter(&z)
			w.Write(content)
			w.Close()
			b.stream(num+1, "/Filter /FlateDecode", z.Bytes())
		} else {
			b.stream(num+1, "", content)
		}
	}
	for i, p := range d.Pages {
		if form, ok := forms[i]; ok {
			b.stream(form, "/Type /XObject /Subtype /Form /BBox [0 0 612 792]", []byte(p.Form))
		}
	}

	trailer := fmt.Sprintf("/Size %d /Root 1 0 R", len(b.offsets)+boolInt(len(d.Info) > 0))
	if len(d.Info) > 0 {
		keys := make([]string, 0, len(d.Info))
		for k := range d.Info {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var info strings.Builder
		info.WriteString("<<")
		for _, k := range keys {
			fmt.Fprintf(&info, " /%s (%s)", k, d.Info[k])
		}
		info.WriteString(" >>")
		num := len(b.offsets)
		b.object(num, info.String())
		trailer += fmt.Sprintf(" /Info %d 0 R", num)
	}
	if d.Encrypt {
		trailer += " /Encrypt << /Filter /Standard /V 1 /R 2 >>"
	}

	xref := b.buf.Len()
	fmt.Fprintf(&b.buf, "xref\n0 %d\n0000000000 65535 f \n", len(b.offsets))
	for _, off := range b.offsets[1:] {
		if d.BreakXref {
			off += 7
		}
		fmt.Fprintf(&b.buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b.buf, "trailer\n<< %s >>\nstartxref\n%d\n%%%%EOF\n", trailer, xref)
	return b.buf.Bytes()
}

func box(r [4]float64) string {
	return fmt.Sprintf("[%g %g %g %g]", r[0], r[1], r[2], r[3])
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
