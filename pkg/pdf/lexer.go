package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

var errUnexpectedDelimiter = errors.New("unexpected delimiter")

// Lexer reads PDF objects from an in-memory buffer. It is used both for the
// file body and for page content streams.
type Lexer struct {
	data []byte
	pos  int
}

func NewLexer(data []byte) *Lexer {
	return &Lexer{data: data}
}

// Pos returns the offset of the next unread byte.
func (l *Lexer) Pos() int { return l.pos }

// Seek moves the read position to off.
func (l *Lexer) Seek(off int) {
	l.pos = max(0, min(off, len(l.data)))
}

// AtEOF skips whitespace and comments and reports whether input is exhausted.
func (l *Lexer) AtEOF() bool {
	l.skipWhitespace()
	return l.pos >= len(l.data)
}

func isWhitespace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(c byte) bool { return !isWhitespace(c) && !isDelimiter(c) }

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if c == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		if !isWhitespace(c) {
			return
		}
		l.pos++
	}
}

func (l *Lexer) readRegular() []byte {
	start := l.pos
	for l.pos < len(l.data) && isRegular(l.data[l.pos]) {
		l.pos++
	}
	return l.data[start:l.pos]
}

// ReadObject reads the next object. Operators and other bare words are
// returned as KeywordObject; true, false and null map to their object types.
func (l *Lexer) ReadObject() (Object, error) {
	l.skipWhitespace()
	if l.pos >= len(l.data) {
		return nil, io.EOF
	}

	c := l.data[l.pos]
	switch {
	case c == '/':
		l.pos++
		return l.readName(), nil
	case c == '(':
		l.pos++
		return l.readLiteralString()
	case c == '<':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
			l.pos += 2
			return l.readDictionary()
		}
		l.pos++
		return l.readHexString()
	case c == '[':
		l.pos++
		return l.readArray()
	case c == '{' || c == '}':
		l.pos++
		return KeywordObject(string(c)), nil
	case c == ']' || c == '>' || c == ')':
		return nil, fmt.Errorf("%w %q at offset %d", errUnexpectedDelimiter, c, l.pos)
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return l.readNumberOrReference()
	}

	word := l.readRegular()
	if len(word) == 0 {
		// Stray delimiter such as a lone '>'; skip it so callers make progress.
		l.pos++
		return nil, fmt.Errorf("%w %q at offset %d", errUnexpectedDelimiter, c, l.pos-1)
	}
	switch string(word) {
	case "true":
		return BooleanObject(true), nil
	case "false":
		return BooleanObject(false), nil
	case "null":
		return NullObject{}, nil
	}
	return KeywordObject(string(word)), nil
}

func (l *Lexer) readName() NameObject {
	raw := l.readRegular()
	if bytes.IndexByte(raw, '#') < 0 {
		return NameObject("/" + string(raw))
	}
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] == '#' && i+2 < len(raw) {
			if v, err := strconv.ParseUint(string(raw[i+1:i+3]), 16, 8); err == nil {
				out = append(out, byte(v))
				i += 2
				continue
			}
		}
		out = append(out, raw[i])
	}
	return NameObject("/" + string(out))
}

func (l *Lexer) readNumber() (NumberObject, error) {
	raw := l.readRegular()
	// Tolerate malformed numbers like "--5" or "1.2.3" the way readers do.
	for len(raw) > 1 && (raw[0] == '-' || raw[0] == '+') && (raw[1] == '-' || raw[1] == '+') {
		raw = raw[1:]
	}
	if i := bytes.IndexByte(raw, '.'); i >= 0 {
		if j := bytes.IndexByte(raw[i+1:], '.'); j >= 0 {
			raw = raw[:i+1+j]
		}
	}
	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		if len(raw) == 1 {
			return 0, nil
		}
		return 0, fmt.Errorf("invalid number %q: %w", raw, err)
	}
	return NumberObject(v), nil
}

// readNumberOrReference reads a number and, if it is followed by
// "<gen> R", collapses the three tokens into an IndirectObject.
func (l *Lexer) readNumberOrReference() (Object, error) {
	n, err := l.readNumber()
	if err != nil {
		return nil, err
	}
	num, isInt := integer(n)
	if !isInt || num < 0 {
		return n, nil
	}

	save := l.pos
	l.skipWhitespace()
	genRaw := l.readRegular()
	gen, err := strconv.Atoi(string(genRaw))
	if err != nil || len(genRaw) == 0 {
		l.pos = save
		return n, nil
	}
	l.skipWhitespace()
	if l.pos < len(l.data) && l.data[l.pos] == 'R' &&
		(l.pos+1 == len(l.data) || !isRegular(l.data[l.pos+1])) {
		l.pos++
		return IndirectObject{ObjectNumber: num, Generation: gen}, nil
	}
	l.pos = save
	return n, nil
}

func (l *Lexer) readLiteralString() (StringObject, error) {
	var buf []byte
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return StringObject(buf), nil
			}
		case '\\':
			if l.pos >= len(l.data) {
				continue
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				buf = append(buf, '\n')
			case 'r':
				buf = append(buf, '\r')
			case 't':
				buf = append(buf, '\t')
			case 'b':
				buf = append(buf, '\b')
			case 'f':
				buf = append(buf, '\f')
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for k := 0; k < 2 && l.pos < len(l.data); k++ {
						d := l.data[l.pos]
						if d < '0' || d > '7' {
							break
						}
						v = v*8 + int(d-'0')
						l.pos++
					}
					buf = append(buf, byte(v))
				} else {
					buf = append(buf, e)
				}
			}
			continue
		}
		buf = append(buf, c)
	}
	return "", fmt.Errorf("unterminated string")
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func (l *Lexer) readHexString() (HexStringObject, error) {
	var out []byte
	var hi byte
	half := false
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		if c == '>' {
			if half {
				out = append(out, hi<<4)
			}
			return HexStringObject(out), nil
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
	return nil, fmt.Errorf("unterminated hex string")
}

func (l *Lexer) readArray() (ArrayObject, error) {
	arr := ArrayObject{}
	for {
		l.skipWhitespace()
		if l.pos >= len(l.data) {
			return nil, fmt.Errorf("unterminated array")
		}
		if l.data[l.pos] == ']' {
			l.pos++
			return arr, nil
		}
		obj, err := l.ReadObject()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

func (l *Lexer) readDictionary() (DictionaryObject, error) {
	dict := DictionaryObject{}
	for {
		l.skipWhitespace()
		if l.pos >= len(l.data) {
			return nil, fmt.Errorf("unterminated dictionary")
		}
		if l.data[l.pos] == '>' {
			if l.pos+1 < len(l.data) && l.data[l.pos+1] == '>' {
				l.pos += 2
				return dict, nil
			}
			l.pos++
			continue
		}
		key, err := l.ReadObject()
		if err != nil {
			return nil, err
		}
		name, ok := key.(NameObject)
		if !ok {
			// Skip junk keys rather than failing the whole dictionary.
			continue
		}
		l.skipWhitespace()
		if l.pos+1 < len(l.data) && l.data[l.pos] == '>' && l.data[l.pos+1] == '>' {
			dict[string(name)] = NullObject{}
			continue
		}
		val, err := l.ReadObject()
		if err != nil {
			return nil, err
		}
		dict[string(name)] = val
	}
}

// inlineImageData returns the raw samples that follow an ID operator and
// advances past the closing EI.
func (l *Lexer) inlineImageData() []byte {
	if l.pos < len(l.data) && isWhitespace(l.data[l.pos]) {
		l.pos++
	}
	start := l.pos
	for i := l.pos; i+2 <= len(l.data); i++ {
		if l.data[i] != 'E' || l.data[i+1] != 'I' {
			continue
		}
		before := i == 0 || isWhitespace(l.data[i-1])
		after := i+2 == len(l.data) || isWhitespace(l.data[i+2])
		if before && after {
			l.pos = i + 2
			end := i
			if end > start && isWhitespace(l.data[end-1]) {
				end--
			}
			return l.data[start:end]
		}
	}
	l.pos = len(l.data)
	return l.data[start:]
}
