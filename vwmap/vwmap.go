// Package vwmap maps vowpal wabbit namespace letters and names to namespace indices
package vwmap

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultFile is the conventional name of the namespace map file
const DefaultFile = "vw_namespace_map.csv"

// FormatError reports a malformed namespace map line
type FormatError struct {
	Line  int
	Msg   string
	cause error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("namespace map line %d: %s", e.Line, e.Msg)
}

func (e *FormatError) Unwrap() error { return e.cause }

// Namespace is one entry of the map
type Namespace struct {
	Char   rune    // letter used after '|' in input lines and in --keep/--interactions
	Name   string  // name as written in the map, including any weight suffix
	Base   string  // name without the weight suffix
	Weight float32 // weight suffix, 1.0 when absent
	Index  int     // position in the map and in the record buffer header
}

// NamespaceMap is the ordered set of namespaces known to a model
type NamespaceMap struct {
	namespaces []Namespace
	byChar     map[rune]int
	byName     map[string]int
}

// New reads a namespace map. Every non-empty line is "<letter>,<name>" and
// lines starting with '#' are comments. The name may end in ":<weight>".
func New(r io.Reader) (*NamespaceMap, error) {
	var cr = csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var m = &NamespaceMap{
		byChar: make(map[rune]int),
		byName: make(map[string]int),
	}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var line int
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.Line
			}
			return nil, &FormatError{Line: line, Msg: err.Error(), cause: err}
		}
		line, _ := cr.FieldPos(0)
		if len(record) != 2 {
			return nil, &FormatError{Line: line, Msg: fmt.Sprintf("expected 2 fields, got %d", len(record))}
		}
		var letter, name = record[0], strings.TrimSpace(record[1])
		if utf8.RuneCountInString(letter) != 1 {
			return nil, &FormatError{Line: line, Msg: fmt.Sprintf("namespace letter must be a single character: %q", letter)}
		}
		if name == "" {
			return nil, &FormatError{Line: line, Msg: "empty namespace name"}
		}
		ns, err := parseName(name)
		if err != nil {
			return nil, &FormatError{Line: line, Msg: err.Error(), cause: err}
		}
		ns.Char, _ = utf8.DecodeRuneInString(letter)
		ns.Index = len(m.namespaces)
		if _, dup := m.byChar[ns.Char]; dup {
			return nil, &FormatError{Line: line, Msg: fmt.Sprintf("duplicate namespace letter %q", ns.Char)}
		}
		if _, dup := m.byName[ns.Base]; dup {
			return nil, &FormatError{Line: line, Msg: fmt.Sprintf("duplicate namespace name %q", ns.Base)}
		}
		m.byChar[ns.Char] = ns.Index
		m.byName[ns.Base] = ns.Index
		m.byName[ns.Name] = ns.Index
		m.namespaces = append(m.namespaces, ns)
	}
	return m, nil
}

// NewFromFile reads the namespace map stored in path
func NewFromFile(path string) (*NamespaceMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := New(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// parseName splits an optional ":weight" suffix off a namespace name
func parseName(name string) (ns Namespace, err error) {
	var parts = strings.Split(name, ":")
	ns.Name = name
	ns.Base = parts[0]
	ns.Weight = 1.0
	switch len(parts) {
	case 1:
	case 2:
		weight, err := strconv.ParseFloat(parts[1], 32)
		if err != nil {
			return ns, fmt.Errorf("bad weight in namespace name %q: %w", name, err)
		}
		ns.Weight = float32(weight)
	default:
		return ns, fmt.Errorf("namespace name has multiple weights separated by colon: %q", name)
	}
	return ns, nil
}

// Len returns the number of namespaces
func (m *NamespaceMap) Len() int {
	return len(m.namespaces)
}

// At returns the namespace with index i
func (m *NamespaceMap) At(i int) Namespace {
	return m.namespaces[i]
}

// ByChar looks a namespace up by its letter
func (m *NamespaceMap) ByChar(c rune) (Namespace, bool) {
	i, ok := m.byChar[c]
	if !ok {
		return Namespace{}, false
	}
	return m.namespaces[i], true
}

// ByName looks a namespace up by its name, with or without the weight suffix
func (m *NamespaceMap) ByName(name string) (Namespace, bool) {
	i, ok := m.byName[name]
	if !ok {
		return Namespace{}, false
	}
	return m.namespaces[i], true
}
