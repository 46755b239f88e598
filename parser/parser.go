// Package parser reads natvis markup into visualization rules.
package parser

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/effectus/natvis-go/ast"
)

// Namespace is the natvis XML namespace.
const Namespace = "http://schemas.microsoft.com/vstudio/debugger/natvis/2010"

var (
	ErrNotNatvis        = errors.New("document root is not AutoVisualizer")
	ErrMissingName      = errors.New("missing Name attribute")
	ErrUnknownPriority  = errors.New("unknown priority")
	ErrInvalidBool      = errors.New("invalid boolean value")
	ErrNodeCount        = errors.New("unexpected number of child nodes")
	ErrBreakOutsideLoop = errors.New("Break outside of Loop")
)

// Error describes a Type element that could not be turned into a rule. The
// element is skipped; the rest of the document is unaffected.
type Error struct {
	Rule  string
	Index int
	Err   error
}

func (e *Error) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("type #%d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("type #%d %q: %v", e.Index, e.Rule, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// File is the result of parsing one natvis document.
type File struct {
	Path   string
	Rules  []*ast.Rule
	Errors []error
}

// Parser turns natvis documents into rules.
type Parser struct {
	logger *zap.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used to report skipped rules.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a parser.
func New(opts ...Option) *Parser {
	p := &Parser{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ReadDocument parses natvis XML and checks its root element.
func ReadDocument(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("read natvis document: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "AutoVisualizer" {
		return nil, ErrNotNatvis
	}
	return doc, nil
}

// Rules lazily yields one rule per Type element. A Type that fails to parse
// yields a nil rule and an *Error, and iteration continues.
func (p *Parser) Rules(doc *etree.Document) iter.Seq2[*ast.Rule, error] {
	return func(yield func(*ast.Rule, error) bool) {
		root := doc.Root()
		if root == nil {
			return
		}
		for i, el := range elements(root, "Type") {
			rule, err := p.parseType(el)
			if err != nil {
				perr := &Error{Rule: el.SelectAttrValue("Name", ""), Index: i, Err: err}
				p.logger.Warn("skipping visualizer",
					zap.String("type", perr.Rule),
					zap.Int("index", i),
					zap.Error(err))
				if !yield(nil, perr) {
					return
				}
				continue
			}
			if !yield(rule, nil) {
				return
			}
		}
	}
}

// ParseBytes parses a whole document, collecting rules and per-rule errors.
// The returned error is set only when the document itself is unreadable.
func (p *Parser) ParseBytes(data []byte) (*File, error) {
	doc, err := ReadDocument(data)
	if err != nil {
		return nil, err
	}
	file := &File{}
	for rule, err := range p.Rules(doc) {
		if err != nil {
			file.Errors = append(file.Errors, err)
			continue
		}
		file.Rules = append(file.Rules, rule)
	}
	return file, nil
}

// ParseFile reads and parses a natvis file.
func (p *Parser) ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	file, err := p.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	file.Path = path
	return file, nil
}

func inNamespace(el *etree.Element) bool {
	ns := el.NamespaceURI()
	return ns == "" || ns == Namespace
}

// elements returns the direct children of el with the given local name.
func elements(el *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	for _, child := range el.ChildElements() {
		if child.Tag == tag && inNamespace(child) {
			out = append(out, child)
		}
	}
	return out
}

func element(el *etree.Element, tag string) *etree.Element {
	for _, child := range el.ChildElements() {
		if child.Tag == tag && inNamespace(child) {
			return child
		}
	}
	return nil
}

func exactlyOne(el *etree.Element, tag string) (*etree.Element, error) {
	found := elements(el, tag)
	if len(found) != 1 {
		return nil, fmt.Errorf("%w: %s expects exactly one %s, found %d", ErrNodeCount, el.Tag, tag, len(found))
	}
	return found[0], nil
}

func parseBool(value string) (bool, error) {
	switch strings.TrimSpace(value) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q", ErrInvalidBool, value)
}

func optional(el *etree.Element) bool {
	v := el.SelectAttrValue("Optional", "")
	return v == "true" || v == "1"
}

func requiredAttr(el *etree.Element, name string) (string, error) {
	attr := el.SelectAttr(name)
	if attr == nil || attr.Value == "" {
		if name == "Name" {
			return "", fmt.Errorf("%s: %w", el.Tag, ErrMissingName)
		}
		return "", fmt.Errorf("%s: missing %s attribute", el.Tag, name)
	}
	return attr.Value, nil
}
