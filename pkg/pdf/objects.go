package pdf

import (
	"fmt"
	"sort"
	"strings"
)

// Object is the generic interface for all PDF objects.
type Object interface {
	String() string
}

// NullObject represents the PDF 'null' value.
type NullObject struct{}

func (n NullObject) String() string { return "null" }

// BooleanObject represents PDF 'true' or 'false'.
type BooleanObject bool

func (b BooleanObject) String() string {
	if b {
		return "true"
	}
	return "false"
}

// NumberObject represents integer or float values.
type NumberObject float64

func (n NumberObject) String() string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", n), "0"), ".")
}

// NameObject represents PDF names including the leading slash (e.g., /Type).
type NameObject string

func (n NameObject) String() string { return string(n) }

// StringObject represents literal strings (e.g., (Hello World)).
type StringObject string

func (s StringObject) String() string { return fmt.Sprintf("(%s)", string(s)) }

// HexStringObject represents hex strings (e.g., <AABB>).
type HexStringObject []byte

func (h HexStringObject) String() string { return fmt.Sprintf("<%X>", []byte(h)) }

// ArrayObject represents PDF arrays (e.g., [1 2 R]).
type ArrayObject []Object

func (a ArrayObject) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, obj := range a {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(obj.String())
	}
	sb.WriteString("]")
	return sb.String()
}

// DictionaryObject represents PDF dictionaries (e.g., << /Type /Page >>).
// Keys keep their leading slash.
type DictionaryObject map[string]Object

func (d DictionaryObject) String() string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("<<")
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s %s", k, d[k].String())
	}
	sb.WriteString(" >>")
	return sb.String()
}

// Clone returns a shallow copy of d.
func (d DictionaryObject) Clone() DictionaryObject {
	out := make(DictionaryObject, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// IndirectObject represents a reference (e.g., 12 0 R).
type IndirectObject struct {
	ObjectNumber int
	Generation   int
}

func (i IndirectObject) String() string {
	return fmt.Sprintf("%d %d R", i.ObjectNumber, i.Generation)
}

// StreamObject represents a dictionary followed by stream data. Data holds
// the decoded bytes when every filter in the chain is supported, the raw
// bytes otherwise (Decoded reports which).
type StreamObject struct {
	Dictionary DictionaryObject
	Data       []byte
	Decoded    bool
}

func (s StreamObject) String() string {
	return fmt.Sprintf("Stream(len=%d)", len(s.Data))
}

// KeywordObject represents raw keywords (e.g., obj, stream, Tj).
type KeywordObject string

func (k KeywordObject) String() string { return string(k) }

// Rectangle is a normalised PDF rectangle [llx lly urx ury].
type Rectangle struct {
	LLx, LLy, URx, URy float64
}

func (r Rectangle) Width() float64  { return r.URx - r.LLx }
func (r Rectangle) Height() float64 { return r.URy - r.LLy }

// Empty reports whether the rectangle has no area.
func (r Rectangle) Empty() bool { return r.Width() <= 0 || r.Height() <= 0 }

// LetterBox is used when a page carries no usable /MediaBox.
var LetterBox = Rectangle{0, 0, 612, 792}

func rectangleFrom(o Object) (Rectangle, bool) {
	arr, ok := o.(ArrayObject)
	if !ok || len(arr) != 4 {
		return Rectangle{}, false
	}
	var v [4]float64
	for i, e := range arr {
		n, ok := e.(NumberObject)
		if !ok {
			return Rectangle{}, false
		}
		v[i] = float64(n)
	}
	r := Rectangle{
		LLx: min(v[0], v[2]), LLy: min(v[1], v[3]),
		URx: max(v[0], v[2]), URy: max(v[1], v[3]),
	}
	return r, !r.Empty()
}

func number(o Object) float64 {
	if n, ok := o.(NumberObject); ok {
		return float64(n)
	}
	return 0
}

func integer(o Object) (int, bool) {
	n, ok := o.(NumberObject)
	if !ok {
		return 0, false
	}
	return int(n), float64(int(n)) == float64(n)
}
