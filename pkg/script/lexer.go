package script

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// ScriptLexer tokenizes sequence scripts. Rule order matters: durations and
// hex literals must be tried before plain integers.
var ScriptLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `[\s\t\n\r]+`},

	{Name: "Keyword", Pattern: `\b(sequence|reset|write|sleep)\b`},

	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"`},
	{Name: "Duration", Pattern: `(?:[0-9]+(?:\.[0-9]+)?(?:ns|us|µs|ms|s|m|h))+\b`},
	{Name: "Hex", Pattern: `0[xX][0-9A-Fa-f]+`},
	{Name: "Int", Pattern: `[0-9]+`},

	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Punct", Pattern: `[{};]`},
})
