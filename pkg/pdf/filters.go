package pdf

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"encoding/ascii85"
	"errors"
	"fmt"
	"io"
)

// ErrUnsupportedFilter is returned for stream filters this package does not
// decode (image codecs mostly).
var ErrUnsupportedFilter = errors.New("unsupported filter")

// decodeStream applies the /Filter chain of dict to data.
func decodeStream(dict DictionaryObject, data []byte, resolve func(Object) Object) ([]byte, error) {
	filters, params := filterChain(dict, resolve)
	for i, name := range filters {
		var parms DictionaryObject
		if i < len(params) {
			parms = params[i]
		}
		var err error
		data, err = applyFilter(name, data, parms)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return data, nil
}

func filterChain(dict DictionaryObject, resolve func(Object) Object) ([]string, []DictionaryObject) {
	var names []string
	var params []DictionaryObject

	switch f := resolve(dict["/Filter"]).(type) {
	case NameObject:
		names = []string{string(f)}
	case ArrayObject:
		for _, e := range f {
			if n, ok := resolve(e).(NameObject); ok {
				names = append(names, string(n))
			}
		}
	}

	switch p := resolve(dict["/DecodeParms"]).(type) {
	case DictionaryObject:
		params = []DictionaryObject{p}
	case ArrayObject:
		for _, e := range p {
			d, _ := resolve(e).(DictionaryObject)
			params = append(params, d)
		}
	}
	return names, params
}

func applyFilter(name string, data []byte, parms DictionaryObject) ([]byte, error) {
	switch name {
	case "/FlateDecode", "/Fl":
		out, err := inflate(data)
		if err != nil {
			return nil, err
		}
		return applyPredictor(out, parms)
	case "/ASCIIHexDecode", "/AHx":
		return asciiHexDecode(data), nil
	case "/ASCII85Decode", "/A85":
		return ascii85Decode(data)
	}
	return nil, ErrUnsupportedFilter
}

// inflate decodes zlib data, falling back to raw deflate for streams written
// without a zlib header. Truncated streams keep whatever was decoded.
func inflate(data []byte) ([]byte, error) {
	var r io.ReadCloser
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err == nil {
		r = zr
	} else {
		r = flate.NewReader(bytes.NewReader(data))
	}
	defer r.Close()

	var out bytes.Buffer
	if _, err := io.Copy(&out, r); err != nil {
		if out.Len() > 0 && (errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, zlib.ErrChecksum)) {
			return out.Bytes(), nil
		}
		return nil, err
	}
	return out.Bytes(), nil
}

func asciiHexDecode(data []byte) []byte {
	out := make([]byte, 0, len(data)/2)
	var hi byte
	half := false
	for _, c := range data {
		if c == '>' {
			break
		}
		v, ok := unhex(c)
		if !ok {
			continue
		}
		if half {
			out = append(out, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	if half {
		out = append(out, hi<<4)
	}
	return out
}

func ascii85Decode(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(bytes.TrimSpace(data), []byte("<~"))
	if i := bytes.Index(data, []byte("~>")); i >= 0 {
		data = data[:i]
	}
	out := make([]byte, 4*len(data)+4)
	n, _, err := ascii85.Decode(out, data, true)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// applyPredictor undoes PNG row predictors (Predictor >= 10). TIFF
// predictor 2 is rare in practice and left as is.
func applyPredictor(data []byte, parms DictionaryObject) ([]byte, error) {
	if parms == nil {
		return data, nil
	}
	predictor, _ := integer(parms["/Predictor"])
	if predictor < 10 {
		return data, nil
	}
	colors, ok := integer(parms["/Colors"])
	if !ok || colors < 1 {
		colors = 1
	}
	bpc, ok := integer(parms["/BitsPerComponent"])
	if !ok || bpc < 1 {
		bpc = 8
	}
	columns, ok := integer(parms["/Columns"])
	if !ok || columns < 1 {
		columns = 1
	}

	bpp := max(1, colors*bpc/8)
	rowLen := (colors*bpc*columns + 7) / 8
	stride := rowLen + 1

	out := make([]byte, 0, len(data)/stride*rowLen)
	prev := make([]byte, rowLen)
	for off := 0; off+stride <= len(data); off += stride {
		kind := data[off]
		row := append([]byte(nil), data[off+1:off+stride]...)
		for i := range row {
			var left, upLeft byte
			if i >= bpp {
				left = row[i-bpp]
				upLeft = prev[i-bpp]
			}
			up := prev[i]
			switch kind {
			case 0:
			case 1:
				row[i] += left
			case 2:
				row[i] += up
			case 3:
				row[i] += byte((int(left) + int(up)) / 2)
			case 4:
				row[i] += paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("invalid png predictor %d", kind)
			}
		}
		out = append(out, row...)
		prev = row
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
