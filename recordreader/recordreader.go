// Package recordreader parses vowpal wabbit text lines into record buffers
package recordreader

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/neurlang/fwlearn/feature"
	"github.com/neurlang/fwlearn/hash"
	"github.com/neurlang/fwlearn/vwmap"
)

// ParseError reports a malformed input line
type ParseError struct {
	Line  int
	Msg   string
	cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("input line %d: %s", e.Line, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.cause }

// Reader turns lines of the form
//
//	label [extra...] |A tok tok |B tok ...
//
// into feature.Record buffers laid out for the namespaces of a map. The
// returned record is reused by the next call to Parse.
type Reader struct {
	vw     *vwmap.NamespaceMap
	line   int
	hashes [][]uint32
	output feature.Record
}

// New creates a reader for the namespaces of vw
func New(vw *vwmap.NamespaceMap) *Reader {
	return &Reader{
		vw:     vw,
		hashes: make([][]uint32, vw.Len()),
		output: make(feature.Record, 0, 1024),
	}
}

// Line returns the number of lines parsed so far
func (r *Reader) Line() int {
	return r.line
}

// Parse converts one input line. Blank lines yield a nil record and no error.
func (r *Reader) Parse(text string) (feature.Record, error) {
	r.line++
	text = strings.TrimRight(text, "\r\n")
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	for i := range r.hashes {
		r.hashes[i] = r.hashes[i][:0]
	}

	var sections = strings.Split(text, "|")
	label, err := parseLabel(sections[0])
	if err != nil {
		return nil, r.errorf(err, "%v", err)
	}
	for _, section := range sections[1:] {
		if err := r.parseNamespace(section); err != nil {
			return nil, err
		}
	}
	return r.layout(label), nil
}

func parseLabel(section string) (float32, error) {
	var fields = strings.Fields(section)
	if len(fields) == 0 {
		return 0, fmt.Errorf("missing label")
	}
	// importance and tag fields are ignored
	switch fields[0] {
	case "1", "1.0":
		return 1, nil
	case "0", "-1", "0.0", "-1.0":
		return 0, nil
	}
	return 0, fmt.Errorf("label must be 1, 0 or -1: %q", fields[0])
}

func (r *Reader) parseNamespace(section string) error {
	if section == "" || section[0] == ' ' || section[0] == '\t' {
		return r.errorf(nil, "namespace without a name")
	}
	var fields = strings.Fields(section)
	var word = fields[0]
	if strings.ContainsRune(word, ':') {
		return r.errorf(nil, "namespace weights are not supported: %q", word)
	}
	var letter, _ = utf8.DecodeRuneInString(word)
	ns, ok := r.vw.ByChar(letter)
	if !ok {
		return r.errorf(nil, "namespace %q is not in the namespace map", letter)
	}
	var seed = hash.VWString(word, 0)
	for _, tok := range fields[1:] {
		if strings.ContainsRune(tok, ':') {
			return r.errorf(nil, "feature values are not supported: %q", tok)
		}
		r.hashes[ns.Index] = append(r.hashes[ns.Index], hash.VWString(tok, seed))
	}
	return nil
}

// layout writes the header, the offset table and the concatenated hashes
func (r *Reader) layout(label float32) feature.Record {
	var namespaces = len(r.hashes)
	var tail = feature.HeaderLen + 2*namespaces
	var out = r.output[:0]
	out = append(out, 0, uint32(feature.FloatToBits(label)))
	var pos = uint32(tail)
	for _, hs := range r.hashes {
		out = append(out, pos, pos+uint32(len(hs)))
		pos += uint32(len(hs))
	}
	for _, hs := range r.hashes {
		out = append(out, hs...)
	}
	out[0] = uint32(len(out))
	r.output = out
	return out
}

func (r *Reader) errorf(cause error, format string, args ...any) *ParseError {
	return &ParseError{Line: r.line, Msg: fmt.Sprintf(format, args...), cause: cause}
}
