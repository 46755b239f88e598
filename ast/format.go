package ast

import (
	"fmt"
	"strings"
)

// FormatSpec selects how a value is rendered. The zero value means no
// explicit format.
type FormatSpec int

const (
	SpecNone FormatSpec = iota
	SpecDecimal
	SpecOctal
	SpecHex
	SpecHexUpper
	SpecHexNoPrefix
	SpecHexUpperNoPrefix
	SpecBinary
	SpecBinaryNoPrefix
	SpecScientific
	SpecScientificMin
	SpecCharacter
	SpecString
	SpecStringNoQuotes
	SpecUTF8String
	SpecUTF8StringNoQuotes
	SpecWideString
	SpecWideStringNoQuotes
	SpecUTF32String
	SpecUTF32StringNoQuotes
	SpecEnum
	SpecHeapArray
	SpecIgnored
)

var specNames = map[FormatSpec]string{
	SpecDecimal:             "DECIMAL",
	SpecOctal:               "OCTAL",
	SpecHex:                 "HEX",
	SpecHexUpper:            "HEX_UPPERCASE",
	SpecHexNoPrefix:         "HEX_NO_PREFIX",
	SpecHexUpperNoPrefix:    "HEX_UPPERCASE_NO_PREFIX",
	SpecBinary:              "BINARY",
	SpecBinaryNoPrefix:      "BINARY_NO_PREFIX",
	SpecScientific:          "SCIENTIFIC",
	SpecScientificMin:       "SCIENTIFIC_MIN",
	SpecCharacter:           "CHARACTER",
	SpecString:              "STRING",
	SpecStringNoQuotes:      "STRING_NO_QUOTES",
	SpecUTF8String:          "UTF8_STRING",
	SpecUTF8StringNoQuotes:  "UTF8_STRING_NO_QUOTES",
	SpecWideString:          "WIDE_STRING",
	SpecWideStringNoQuotes:  "WIDE_STRING_NO_QUOTES",
	SpecUTF32String:         "UTF32_STRING",
	SpecUTF32StringNoQuotes: "UTF32_STRING_NO_QUOTES",
	SpecEnum:                "ENUM",
	SpecHeapArray:           "HEAP_ARRAY",
	SpecIgnored:             "IGNORED",
}

func (s FormatSpec) String() string {
	if name, ok := specNames[s]; ok {
		return name
	}
	return "NONE"
}

// specTokens maps the suffix tokens accepted after an expression's comma to
// format specs.
var specTokens = map[string]FormatSpec{
	"d":    SpecDecimal,
	"o":    SpecOctal,
	"x":    SpecHex,
	"h":    SpecHex,
	"X":    SpecHexUpper,
	"H":    SpecHexUpper,
	"xb":   SpecHexNoPrefix,
	"hb":   SpecHexNoPrefix,
	"Xb":   SpecHexUpperNoPrefix,
	"Hb":   SpecHexUpperNoPrefix,
	"b":    SpecBinary,
	"bb":   SpecBinaryNoPrefix,
	"e":    SpecScientific,
	"g":    SpecScientificMin,
	"c":    SpecCharacter,
	"s":    SpecString,
	"sb":   SpecStringNoQuotes,
	"s8":   SpecUTF8String,
	"s8b":  SpecUTF8StringNoQuotes,
	"su":   SpecWideString,
	"sub":  SpecWideStringNoQuotes,
	"bstr": SpecWideString,
	"s32":  SpecUTF32String,
	"s32b": SpecUTF32StringNoQuotes,
	"en":   SpecEnum,
	"hv":   SpecHeapArray,
	"hr":   SpecIgnored,
	"wc":   SpecIgnored,
	"wm":   SpecIgnored,
}

// LookupSpec returns the format spec for a suffix token.
func LookupSpec(token string) (FormatSpec, bool) {
	s, ok := specTokens[token]
	return s, ok
}

// FormatFlags is a bit set of rendering modifiers.
type FormatFlags uint

const (
	FlagNoAddress FormatFlags = 1 << iota
	FlagNoDerived
	FlagNoRawView
	FlagNumericRawView
	// FlagRawFormat renders the value without applying any rules.
	FlagRawFormat
)

// InheritedFlags are the flags a child value takes over from its parent.
const InheritedFlags = ^FlagRawFormat

// flagTokens is ordered; tokens are matched as prefixes in this order.
var flagTokens = []struct {
	token string
	flag  FormatFlags
}{
	{"na", FlagNoAddress},
	{"nd", FlagNoDerived},
	{"nr", FlagNoRawView},
	{"nvo", FlagNumericRawView},
	{"!", FlagRawFormat},
}

// Has reports whether all bits of f are set.
func (fl FormatFlags) Has(f FormatFlags) bool {
	return fl&f == f
}

func (fl FormatFlags) String() string {
	var names []string
	for _, ft := range flagTokens {
		if fl.Has(ft.flag) {
			names = append(names, ft.token)
		}
	}
	return strings.Join(names, "|")
}

// FormattedExpression is an expression together with the formatting options
// written after its last top-level comma.
type FormattedExpression struct {
	Text      string
	ArraySize string
	Spec      FormatSpec
	Flags     FormatFlags
	View      string
	ViewID    int
}

// Plain returns an expression without formatting options.
func Plain(text string) *FormattedExpression {
	return &FormattedExpression{Text: text}
}

// HasOptions reports whether any formatting option is present.
func (e *FormattedExpression) HasOptions() bool {
	return e.ArraySize != "" || e.Spec != SpecNone || e.Flags != 0 || e.View != ""
}

// Equal compares two expressions structurally.
func (e *FormattedExpression) Equal(other *FormattedExpression) bool {
	if e == nil || other == nil {
		return e == other
	}
	return *e == *other
}

func (e *FormattedExpression) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "'%s'", e.Text)
	if e.ArraySize != "" {
		fmt.Fprintf(&b, " as array[%s]", e.ArraySize)
	}
	if e.Spec != SpecNone {
		fmt.Fprintf(&b, " as %s", e.Spec)
	}
	if e.View != "" {
		fmt.Fprintf(&b, " using view %s", e.View)
	}
	if e.Flags != 0 {
		fmt.Fprintf(&b, " with %s", e.Flags)
	}
	return b.String()
}
