package pdf

import (
	"bytes"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// TextString decodes a PDF text string (document info values, outline
// titles). Strings starting with a UTF-16BE byte order mark are decoded as
// UTF-16, UTF-8 marked strings are returned as is, everything else is read
// as PDFDocEncoding, approximated by Latin-1.
func TextString(o Object) string {
	var raw []byte
	switch s := o.(type) {
	case StringObject:
		raw = []byte(s)
	case HexStringObject:
		raw = []byte(s)
	default:
		return ""
	}

	switch {
	case bytes.HasPrefix(raw, []byte{0xfe, 0xff}):
		out, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(raw)
		if err == nil {
			return string(out)
		}
	case bytes.HasPrefix(raw, []byte{0xef, 0xbb, 0xbf}):
		return string(raw[3:])
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}
