package pdf

import (
	"fmt"
)

// Operation is one content stream operator with its operands. An inline
// image (BI ... ID <bytes> EI) becomes a single "EI" operation whose only
// operand is a StreamObject holding the image dictionary (abbreviations
// expanded) and the undecoded samples.
type Operation struct {
	Operator string
	Operands []Object
}

// ContentStreamParser splits a content stream into operations.
type ContentStreamParser struct {
	lexer *Lexer
}

func NewContentStreamParser(data []byte) *ContentStreamParser {
	return &ContentStreamParser{lexer: NewLexer(data)}
}

// Parse reads operations until the end of the stream. On a syntax error it
// returns the operations read so far together with the error.
func (p *ContentStreamParser) Parse() ([]Operation, error) {
	var ops []Operation
	var operands []Object
	inImage := false

	for !p.lexer.AtEOF() {
		obj, err := p.lexer.ReadObject()
		if err != nil {
			return ops, fmt.Errorf("content stream at offset %d: %w", p.lexer.Pos(), err)
		}
		kw, isOp := obj.(KeywordObject)
		if !isOp {
			operands = append(operands, obj)
			continue
		}

		switch {
		case kw == "BI":
			inImage = true
		case kw == "ID" && inImage:
			data := p.lexer.inlineImageData()
			ops = append(ops, Operation{
				Operator: "EI",
				Operands: []Object{StreamObject{Dictionary: inlineImageDict(operands), Data: data}},
			})
			inImage = false
		default:
			ops = append(ops, Operation{
				Operator: string(kw),
				Operands: append([]Object(nil), operands...),
			})
		}
		operands = nil
	}
	return ops, nil
}

var inlineImageKeys = map[NameObject]NameObject{
	"/W":   "/Width",
	"/H":   "/Height",
	"/BPC": "/BitsPerComponent",
	"/CS":  "/ColorSpace",
	"/F":   "/Filter",
	"/DP":  "/DecodeParms",
	"/IM":  "/ImageMask",
	"/D":   "/Decode",
	"/I":   "/Interpolate",
}

var inlineImageValues = map[NameObject]NameObject{
	"/G":    "/DeviceGray",
	"/RGB":  "/DeviceRGB",
	"/CMYK": "/DeviceCMYK",
	"/AHx":  "/ASCIIHexDecode",
	"/A85":  "/ASCII85Decode",
	"/Fl":   "/FlateDecode",
	"/DCT":  "/DCTDecode",
}

// inlineImageDict pairs up the key/value operands between BI and ID.
func inlineImageDict(operands []Object) DictionaryObject {
	dict := DictionaryObject{"/Subtype": NameObject("/Image")}
	for i := 0; i+1 < len(operands); i += 2 {
		key, ok := operands[i].(NameObject)
		if !ok {
			continue
		}
		if long, ok := inlineImageKeys[key]; ok {
			key = long
		}
		val := operands[i+1]
		switch v := val.(type) {
		case NameObject:
			if long, ok := inlineImageValues[v]; ok {
				val = long
			}
		case ArrayObject:
			expanded := make(ArrayObject, len(v))
			for j, e := range v {
				if n, ok := e.(NameObject); ok {
					if long, ok := inlineImageValues[n]; ok {
						e = long
					}
				}
				expanded[j] = e
			}
			val = expanded
		}
		dict[string(key)] = val
	}
	return dict
}
