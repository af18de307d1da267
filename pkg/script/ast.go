package script

import "github.com/alecthomas/participle/v2/lexer"

// File is the parse tree of a whole script.
type File struct {
	Sequences []*SequenceDecl `@@*`
}

// SequenceDecl is one named block of statements.
// Example: sequence "wake then enable" { write 0x36 1; write 0x01 1 }
type SequenceDecl struct {
	Pos lexer.Position

	Name       string       `"sequence" @String`
	Statements []*Statement `"{" ( @@ ";"? )* "}"`
}

// Statement is one step inside a sequence.
type Statement struct {
	Pos lexer.Position

	Reset bool       `  @"reset"`
	Write *WriteStmt `| @@`
	Sleep *SleepStmt `| @@`
}

// WriteStmt is a vendor control write: write <register> <value>.
type WriteStmt struct {
	Register string `"write" @( Hex | Int )`
	Value    string `@( Hex | Int )`
}

// SleepStmt pauses the sequence: sleep <duration>.
type SleepStmt struct {
	Duration string `"sleep" @Duration`
}
