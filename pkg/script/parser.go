package script

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/participle/v2"
)

// Parser parses sequence scripts.
type Parser struct {
	parser *participle.Parser[File]
}

// NewParser creates a new script parser instance
func NewParser() (*Parser, error) {
	parser, err := participle.Build[File](
		participle.Lexer(ScriptLexer),
		participle.Elide("Comment", "Whitespace"),
		participle.Unquote("String"),
	)
	if err != nil {
		return nil, fmt.Errorf("script: failed to build parser: %w", err)
	}

	return &Parser{parser: parser}, nil
}

// Parse parses a script from a reader
func (p *Parser) Parse(r io.Reader) ([]Sequence, error) {
	return p.parseNamed("", r)
}

func (p *Parser) parseNamed(name string, r io.Reader) ([]Sequence, error) {
	file, err := p.parser.Parse(name, r)
	if err != nil {
		return nil, fmt.Errorf("script: parse error: %w", err)
	}
	return lower(file)
}

// ParseString parses a script from a string
func (p *Parser) ParseString(input string) ([]Sequence, error) {
	file, err := p.parser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("script: parse error: %w", err)
	}
	return lower(file)
}

// ParseFile parses a script from a file path
func (p *Parser) ParseFile(filename string) ([]Sequence, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("script: failed to open file: %w", err)
	}
	defer file.Close()

	return p.parseNamed(filename, file)
}

var defaultParser = func() *Parser {
	p, err := NewParser()
	if err != nil {
		panic(err)
	}
	return p
}()

// Parse parses a script from r with the shared parser.
func Parse(r io.Reader) ([]Sequence, error) { return defaultParser.Parse(r) }

// ParseString parses a script held in a string with the shared parser.
func ParseString(input string) ([]Sequence, error) { return defaultParser.ParseString(input) }

// ParseFile parses the script at filename with the shared parser.
func ParseFile(filename string) ([]Sequence, error) { return defaultParser.ParseFile(filename) }
