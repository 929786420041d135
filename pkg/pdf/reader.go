package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
)

var (
	// ErrNotPDF is returned when the input has no PDF header.
	ErrNotPDF = errors.New("not a PDF file")
	// ErrNoPages is returned when the page tree holds no pages.
	ErrNoPages = errors.New("document has no pages")
)

// inheritable page attributes (PDF 32000-1, 7.7.3.4).
var inheritable = []string{"/Resources", "/MediaBox", "/CropBox", "/Rotate"}

type xrefEntry struct {
	offset     int
	stream     int
	index      int
	compressed bool
	free       bool
}

type objectStream struct {
	data    []byte
	offsets map[int]int
}

// Reader gives random access to the objects and pages of a PDF held in
// memory. A Reader is not safe for concurrent use.
type Reader struct {
	data    []byte
	xref    map[int]xrefEntry
	trailer DictionaryObject

	cache     map[int]Object
	resolving map[int]bool
	objStms   map[int]*objectStream

	pages []DictionaryObject
}

// NewReader reads the whole input and indexes its objects and pages.
func NewReader(r io.Reader) (*Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf: %w", err)
	}
	return NewReaderBytes(data)
}

// NewReaderBytes is NewReader for data already in memory.
func NewReaderBytes(data []byte) (*Reader, error) {
	head := data[:min(len(data), 1024)]
	if !bytes.Contains(head, []byte("%PDF-")) {
		return nil, ErrNotPDF
	}

	rd := &Reader{
		data:      data,
		xref:      make(map[int]xrefEntry),
		cache:     make(map[int]Object),
		resolving: make(map[int]bool),
		objStms:   make(map[int]*objectStream),
	}

	if err := rd.readXref(); err != nil || rd.catalog() == nil {
		// Broken or missing cross-reference data: index by scanning.
		rd.xref = make(map[int]xrefEntry)
		rd.cache = make(map[int]Object)
		rd.trailer = nil
		if err := rd.rebuildXref(); err != nil {
			return nil, err
		}
	}

	if err := rd.loadPages(); err != nil {
		return nil, err
	}
	return rd, nil
}

// Trailer returns the document trailer dictionary.
func (r *Reader) Trailer() DictionaryObject { return r.trailer }

// Encrypted reports whether the trailer names an encryption dictionary.
func (r *Reader) Encrypted() bool {
	_, ok := r.trailer["/Encrypt"]
	return ok
}

// NumPages returns the number of leaf pages.
func (r *Reader) NumPages() int { return len(r.pages) }

// GetPage returns the page dictionary at the zero-based index i with
// inherited attributes filled in.
func (r *Reader) GetPage(i int) (DictionaryObject, error) {
	if i < 0 || i >= len(r.pages) {
		return nil, fmt.Errorf("page index %d out of range [0, %d)", i, len(r.pages))
	}
	return r.pages[i], nil
}

// GetInfo returns the document information dictionary, or nil if absent.
func (r *Reader) GetInfo() (DictionaryObject, error) {
	info := r.Resolve(r.trailer["/Info"])
	if info == nil {
		return nil, nil
	}
	d, ok := info.(DictionaryObject)
	if !ok {
		return nil, fmt.Errorf("info is %T, not a dictionary", info)
	}
	return d, nil
}

// PageBox returns the visible region of page: the CropBox clipped to the
// MediaBox, or US Letter when neither is usable.
func (r *Reader) PageBox(page DictionaryObject) Rectangle {
	media, ok := rectangleFrom(r.resolveArray(page["/MediaBox"]))
	if !ok {
		media = LetterBox
	}
	crop, ok := rectangleFrom(r.resolveArray(page["/CropBox"]))
	if !ok {
		return media
	}
	clipped := Rectangle{
		LLx: max(crop.LLx, media.LLx), LLy: max(crop.LLy, media.LLy),
		URx: min(crop.URx, media.URx), URy: min(crop.URy, media.URy),
	}
	if clipped.Empty() {
		return media
	}
	return clipped
}

// PageRotate returns the page's /Rotate normalised into [0, 360).
func (r *Reader) PageRotate(page DictionaryObject) int {
	deg, ok := integer(r.Resolve(page["/Rotate"]))
	if !ok || deg%90 != 0 {
		return 0
	}
	return ((deg % 360) + 360) % 360
}

// PageContents returns the decoded content streams of page joined by
// newlines.
func (r *Reader) PageContents(page DictionaryObject) ([]byte, error) {
	var streams []StreamObject
	switch c := r.Resolve(page["/Contents"]).(type) {
	case StreamObject:
		streams = append(streams, c)
	case ArrayObject:
		for _, ref := range c {
			if s, ok := r.Resolve(ref).(StreamObject); ok {
				streams = append(streams, s)
			}
		}
	}

	var buf bytes.Buffer
	for _, s := range streams {
		if !s.Decoded {
			return nil, fmt.Errorf("content stream: %w", ErrUnsupportedFilter)
		}
		buf.Write(s.Data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func (r *Reader) resolveArray(o Object) Object {
	arr, ok := r.Resolve(o).(ArrayObject)
	if !ok {
		return nil
	}
	out := make(ArrayObject, len(arr))
	for i, e := range arr {
		out[i] = r.Resolve(e)
	}
	return out
}

// Resolve follows indirect references. Unknown references resolve to nil.
func (r *Reader) Resolve(o Object) Object {
	for range 32 {
		ref, ok := o.(IndirectObject)
		if !ok {
			return o
		}
		o = r.getObject(ref.ObjectNumber)
	}
	return nil
}

func (r *Reader) catalog() DictionaryObject {
	if r.trailer == nil {
		return nil
	}
	root, _ := r.Resolve(r.trailer["/Root"]).(DictionaryObject)
	return root
}

func (r *Reader) getObject(num int) Object {
	if obj, ok := r.cache[num]; ok {
		return obj
	}
	if r.resolving[num] {
		return nil
	}
	entry, ok := r.xref[num]
	if !ok || entry.free {
		return nil
	}

	r.resolving[num] = true
	defer delete(r.resolving, num)

	var obj Object
	if entry.compressed {
		obj = r.compressedObject(entry)
	} else {
		_, _, o, err := r.parseIndirectAt(entry.offset)
		if err != nil {
			return nil
		}
		obj = o
	}
	r.cache[num] = obj
	return obj
}

func (r *Reader) compressedObject(entry xrefEntry) Object {
	stm := r.objectStream(entry.stream)
	if stm == nil {
		return nil
	}
	off, ok := stm.offsets[entry.index]
	if !ok {
		return nil
	}
	l := NewLexer(stm.data)
	l.Seek(off)
	obj, err := l.ReadObject()
	if err != nil {
		return nil
	}
	return obj
}

// objectStream loads and indexes the object stream num. Offsets are keyed
// by object number.
func (r *Reader) objectStream(num int) *objectStream {
	if stm, ok := r.objStms[num]; ok {
		return stm
	}
	s, ok := r.getObject(num).(StreamObject)
	if !ok || !s.Decoded {
		return nil
	}
	n, _ := integer(r.Resolve(s.Dictionary["/N"]))
	first, _ := integer(r.Resolve(s.Dictionary["/First"]))
	if first < 0 || first > len(s.Data) {
		return nil
	}

	stm := &objectStream{data: s.Data, offsets: make(map[int]int, n)}
	l := NewLexer(s.Data[:first])
	for i := 0; i < n; i++ {
		a, err1 := l.ReadObject()
		b, err2 := l.ReadObject()
		if err1 != nil || err2 != nil {
			break
		}
		objNum, ok1 := integer(a)
		off, ok2 := integer(b)
		if !ok1 || !ok2 {
			break
		}
		stm.offsets[objNum] = first + off
	}
	r.objStms[num] = stm
	return stm
}

// parseIndirectAt parses "num gen obj ... endobj" starting at off.
func (r *Reader) parseIndirectAt(off int) (int, int, Object, error) {
	if off < 0 || off >= len(r.data) {
		return 0, 0, nil, fmt.Errorf("object offset %d out of range", off)
	}
	l := NewLexer(r.data)
	l.Seek(off)

	numObj, err := l.ReadObject()
	if err != nil {
		return 0, 0, nil, err
	}
	genObj, err := l.ReadObject()
	if err != nil {
		return 0, 0, nil, err
	}
	kw, err := l.ReadObject()
	if err != nil {
		return 0, 0, nil, err
	}
	num, ok1 := integer(numObj)
	gen, ok2 := integer(genObj)
	if !ok1 || !ok2 || kw != KeywordObject("obj") {
		return 0, 0, nil, fmt.Errorf("no object header at offset %d", off)
	}

	obj, err := l.ReadObject()
	if err != nil {
		return 0, 0, nil, fmt.Errorf("object %d: %w", num, err)
	}
	dict, isDict := obj.(DictionaryObject)
	if !isDict {
		return num, gen, obj, nil
	}

	save := l.Pos()
	next, err := l.ReadObject()
	if err != nil || next != KeywordObject("stream") {
		l.Seek(save)
		return num, gen, dict, nil
	}
	return num, gen, r.readStream(l, dict), nil
}

var endstream = []byte("endstream")

func (r *Reader) readStream(l *Lexer, dict DictionaryObject) StreamObject {
	start := l.Pos()
	if start < len(r.data) && r.data[start] == '\r' {
		start++
	}
	if start < len(r.data) && r.data[start] == '\n' {
		start++
	}

	end := -1
	if length, ok := integer(r.Resolve(dict["/Length"])); ok && length >= 0 && start+length <= len(r.data) {
		rest := bytes.TrimLeft(r.data[start+length:], "\r\n \t")
		if bytes.HasPrefix(rest, endstream) {
			end = start + length
		}
	}
	if end < 0 {
		// Missing or wrong /Length: trust the endstream keyword instead.
		i := bytes.Index(r.data[start:], endstream)
		if i < 0 {
			end = len(r.data)
		} else {
			end = start + i
			for end > start && (r.data[end-1] == '\n' || r.data[end-1] == '\r') {
				end--
			}
		}
	}

	raw := r.data[start:end]
	s := StreamObject{Dictionary: dict, Data: raw}
	if decoded, err := decodeStream(dict, raw, r.Resolve); err == nil {
		s.Data = decoded
		s.Decoded = true
	}
	return s
}

func (r *Reader) findStartXref() (int, error) {
	tail := r.data[max(0, len(r.data)-2048):]
	i := bytes.LastIndex(tail, []byte("startxref"))
	if i < 0 {
		return 0, errors.New("startxref not found")
	}
	l := NewLexer(tail[i+len("startxref"):])
	obj, err := l.ReadObject()
	if err != nil {
		return 0, fmt.Errorf("startxref: %w", err)
	}
	off, ok := integer(obj)
	if !ok {
		return 0, fmt.Errorf("startxref: invalid offset %v", obj)
	}
	return off, nil
}

// readXref follows the startxref chain from the newest section to the
// oldest. Entries seen first win, so later updates shadow older ones.
func (r *Reader) readXref() error {
	off, err := r.findStartXref()
	if err != nil {
		return err
	}
	seen := make(map[int]bool)
	for !seen[off] {
		seen[off] = true
		trailer, err := r.readXrefSection(off)
		if err != nil {
			return err
		}
		if r.trailer == nil {
			r.trailer = trailer
		}
		if hybrid, ok := integer(trailer["/XRefStm"]); ok && !seen[hybrid] {
			seen[hybrid] = true
			if _, err := r.readXrefStream(hybrid); err != nil {
				return err
			}
		}
		prev, ok := integer(trailer["/Prev"])
		if !ok {
			break
		}
		off = prev
	}
	if r.trailer == nil {
		return errors.New("no trailer")
	}
	return nil
}

func (r *Reader) addEntry(num int, e xrefEntry) {
	if _, ok := r.xref[num]; !ok {
		r.xref[num] = e
	}
}

func (r *Reader) readXrefSection(off int) (DictionaryObject, error) {
	if off < 0 || off >= len(r.data) {
		return nil, fmt.Errorf("xref offset %d out of range", off)
	}
	l := NewLexer(r.data)
	l.Seek(off)
	first, err := l.ReadObject()
	if err != nil {
		return nil, err
	}
	if first != KeywordObject("xref") {
		return r.readXrefStream(off)
	}

	for {
		obj, err := l.ReadObject()
		if err != nil {
			return nil, fmt.Errorf("xref table: %w", err)
		}
		if obj == KeywordObject("trailer") {
			t, err := l.ReadObject()
			if err != nil {
				return nil, fmt.Errorf("trailer: %w", err)
			}
			trailer, ok := t.(DictionaryObject)
			if !ok {
				return nil, errors.New("trailer is not a dictionary")
			}
			return trailer, nil
		}

		start, ok1 := integer(obj)
		countObj, err := l.ReadObject()
		if err != nil {
			return nil, fmt.Errorf("xref table: %w", err)
		}
		count, ok2 := integer(countObj)
		if !ok1 || !ok2 || count < 0 {
			return nil, fmt.Errorf("bad xref subsection header at offset %d", l.Pos())
		}
		for i := 0; i < count; i++ {
			offObj, err1 := l.ReadObject()
			_, err2 := l.ReadObject()
			kind, err3 := l.ReadObject()
			if err := errors.Join(err1, err2, err3); err != nil {
				return nil, fmt.Errorf("xref entry: %w", err)
			}
			objOff, _ := integer(offObj)
			switch kind {
			case KeywordObject("n"):
				r.addEntry(start+i, xrefEntry{offset: objOff})
			case KeywordObject("f"):
				r.addEntry(start+i, xrefEntry{free: true})
			default:
				return nil, fmt.Errorf("bad xref entry type %v", kind)
			}
		}
	}
}

func (r *Reader) readXrefStream(off int) (DictionaryObject, error) {
	_, _, obj, err := r.parseIndirectAt(off)
	if err != nil {
		return nil, fmt.Errorf("xref stream: %w", err)
	}
	s, ok := obj.(StreamObject)
	if !ok || s.Dictionary["/Type"] != NameObject("/XRef") || !s.Decoded {
		return nil, fmt.Errorf("no usable xref stream at offset %d", off)
	}

	wArr, _ := s.Dictionary["/W"].(ArrayObject)
	if len(wArr) != 3 {
		return nil, errors.New("xref stream: bad /W")
	}
	var w [3]int
	for i, e := range wArr {
		w[i], _ = integer(e)
	}
	rowLen := w[0] + w[1] + w[2]
	if rowLen == 0 {
		return nil, errors.New("xref stream: empty rows")
	}

	size, _ := integer(s.Dictionary["/Size"])
	index := []int{0, size}
	if idx, ok := s.Dictionary["/Index"].(ArrayObject); ok && len(idx)%2 == 0 {
		index = index[:0]
		for _, e := range idx {
			v, _ := integer(e)
			index = append(index, v)
		}
	}

	field := func(b []byte) int {
		v := 0
		for _, c := range b {
			v = v<<8 | int(c)
		}
		return v
	}

	pos := 0
	for k := 0; k+1 < len(index); k += 2 {
		start, count := index[k], index[k+1]
		for i := 0; i < count && pos+rowLen <= len(s.Data); i++ {
			row := s.Data[pos : pos+rowLen]
			pos += rowLen
			typ := 1
			if w[0] > 0 {
				typ = field(row[:w[0]])
			}
			f2 := field(row[w[0] : w[0]+w[1]])
			switch typ {
			case 0:
				r.addEntry(start+i, xrefEntry{free: true})
			case 1:
				r.addEntry(start+i, xrefEntry{offset: f2})
			case 2:
				r.addEntry(start+i, xrefEntry{stream: f2, index: start + i, compressed: true})
			}
		}
	}
	return s.Dictionary, nil
}

var objHeader = regexp.MustCompile(`(\d+)[ \t\r\n\f\x00]+(\d+)[ \t\r\n\f\x00]+obj\b`)

// rebuildXref indexes the file by scanning for object headers, the way
// viewers recover damaged files.
func (r *Reader) rebuildXref() error {
	for _, m := range objHeader.FindAllSubmatchIndex(r.data, -1) {
		if m[0] > 0 && isRegular(r.data[m[0]-1]) {
			continue
		}
		num, err := strconv.Atoi(string(r.data[m[2]:m[3]]))
		if err != nil {
			continue
		}
		// Later definitions belong to incremental updates and win.
		r.xref[num] = xrefEntry{offset: m[0]}
	}
	if len(r.xref) == 0 {
		return errors.New("no objects found")
	}

	var streams []int
	for num := range r.xref {
		s, ok := r.getObject(num).(StreamObject)
		if !ok {
			continue
		}
		switch s.Dictionary["/Type"] {
		case NameObject("/ObjStm"):
			streams = append(streams, num)
		case NameObject("/XRef"):
			if _, ok := s.Dictionary["/Root"]; ok && r.trailer == nil {
				r.trailer = s.Dictionary
			}
		}
	}
	for _, num := range streams {
		stm := r.objectStream(num)
		if stm == nil {
			continue
		}
		for objNum := range stm.offsets {
			if _, ok := r.xref[objNum]; !ok {
				r.xref[objNum] = xrefEntry{stream: num, index: objNum, compressed: true}
			}
		}
	}

	if t := r.lastTrailer(); t != nil {
		r.trailer = t
	}
	if r.catalog() == nil {
		for num := range r.xref {
			if d, ok := r.getObject(num).(DictionaryObject); ok && d["/Type"] == NameObject("/Catalog") {
				r.trailer = DictionaryObject{"/Root": IndirectObject{ObjectNumber: num}}
				break
			}
		}
	}
	if r.catalog() == nil {
		return errors.New("document catalog not found")
	}
	return nil
}

func (r *Reader) lastTrailer() DictionaryObject {
	rest := r.data
	var found DictionaryObject
	for {
		i := bytes.Index(rest, []byte("trailer"))
		if i < 0 {
			return found
		}
		rest = rest[i+len("trailer"):]
		l := NewLexer(rest)
		obj, err := l.ReadObject()
		if err != nil {
			continue
		}
		if d, ok := obj.(DictionaryObject); ok {
			if _, ok := d["/Root"]; ok {
				found = d
			}
		}
	}
}

func (r *Reader) loadPages() error {
	root := r.catalog()
	if root == nil {
		return errors.New("document catalog not found")
	}
	r.walkPages(root["/Pages"], DictionaryObject{}, make(map[int]bool), 0)
	if len(r.pages) == 0 {
		return ErrNoPages
	}
	return nil
}

func (r *Reader) walkPages(ref Object, inherited DictionaryObject, visited map[int]bool, depth int) {
	if depth > 64 {
		return
	}
	if ind, ok := ref.(IndirectObject); ok {
		if visited[ind.ObjectNumber] {
			return
		}
		visited[ind.ObjectNumber] = true
	}
	node, ok := r.Resolve(ref).(DictionaryObject)
	if !ok {
		return
	}

	attrs := inherited.Clone()
	for _, key := range inheritable {
		if v, ok := node[key]; ok {
			attrs[key] = v
		}
	}

	kids, hasKids := r.Resolve(node["/Kids"]).(ArrayObject)
	if node["/Type"] == NameObject("/Pages") || (node["/Type"] != NameObject("/Page") && hasKids) {
		for _, kid := range kids {
			r.walkPages(kid, attrs, visited, depth+1)
		}
		return
	}

	page := node.Clone()
	for k, v := range attrs {
		page[k] = v
	}
	r.pages = append(r.pages, page)
}
