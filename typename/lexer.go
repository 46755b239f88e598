package typename

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Lexer tokenizes C++-style type names.
var Lexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{Name: "Whitespace", Pattern: `\s+`, Action: nil},
		{Name: "Scope", Pattern: `::`, Action: nil},
		{Name: "Ident", Pattern: `[a-zA-Z_$~][a-zA-Z0-9_$]*`, Action: nil},
		{Name: "Number", Pattern: `\d[a-zA-Z0-9_.]*`, Action: nil},
		{Name: "Angle", Pattern: `[<>]`, Action: nil},
		{Name: "Comma", Pattern: `,`, Action: nil},
		{Name: "Punct", Pattern: `[*&()\[\]:.+\-'"{}!=|^%/?;@#]`, Action: nil},
	},
})

// grammar nodes

type name struct {
	Parts []*part `parser:"@@*"`
}

type part struct {
	Args  *argList `parser:"  '<' @@ '>'"`
	Token string   `parser:"| @(Ident | Number | Scope | Punct)"`
}

type argList struct {
	Args []*name `parser:"(@@ (',' @@)*)?"`
}

var nameParser = participle.MustBuild[name](
	participle.Lexer(Lexer),
	participle.Elide("Whitespace"),
)
