package command

import (
	"regexp"
	"strings"

	"github.com/SnowriterMYX/PPTAgent/internal/errinfo"
)

// LineClass is the classification of one raw line of model output.
type LineClass int

const (
	LineBlank LineClass = iota
	LineComment
	LineDefinition
	LineCall
	LineProse
)

// callShape matches the operation-call form the model is told to emit:
// lowercase snake_case name followed by a parenthesized argument list.
var callShape = regexp.MustCompile(`^[a-z]+_[a-z_]+\(.+\)`)

// Classify assigns a raw line to its class. Classification is on the raw
// text: an indented call is stray prose, not a command.
func Classify(line string) LineClass {
	if strings.TrimSpace(line) == "" {
		return LineBlank
	}
	if strings.HasPrefix(line, "#") {
		return LineComment
	}
	if strings.HasPrefix(line, "def") {
		return LineDefinition
	}
	if callShape.MatchString(line) {
		return LineCall
	}
	return LineProse
}

// Parse validates a LineCall line and binds it to a typed command. Unknown
// operation names, non-literal arguments, and signature mismatches all come
// back as recoverable edit errors with messages the model can correct from.
func Parse(line string) (Command, error) {
	open := strings.Index(line, "(")
	if open < 0 {
		return nil, errinfo.Editf(errinfo.CodeArgumentInvalid, "malformed call: %s", line)
	}
	name := line[:open]
	if !Registered(name) {
		return nil, errinfo.Editf(errinfo.CodeUnknownOperation, "The function %s is not defined.", name)
	}
	p := &literalParser{input: line, pos: open + 1}
	args, err := p.parseSeq(')')
	if err != nil {
		return nil, errinfo.Editf(errinfo.CodeArgumentInvalid,
			"%s: invalid arguments (%v). Signature: %s", name, err, signatureOf(name))
	}
	rest := strings.TrimSpace(line[p.pos:])
	if strings.HasPrefix(rest, "#") {
		// Inline comment after the closing paren. A hash inside a string
		// argument is consumed by the literal parser and never reaches here.
		rest = ""
	}
	if rest != "" {
		return nil, errinfo.Editf(errinfo.CodeArgumentInvalid,
			"%s: unexpected trailing input %q after the call", name, rest)
	}
	return bind(name, args)
}
