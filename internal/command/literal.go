package command

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// The argument evaluator accepts Python literal syntax only: numbers,
// strings, booleans, None, and (possibly nested) lists and tuples. There are
// no identifiers, no attribute access and no calls, which removes the
// sandboxing problem a general evaluator would bring.

// ValueKind names a parsed literal's type in error messages.
type ValueKind string

const (
	ValInt   ValueKind = "int"
	ValFloat ValueKind = "float"
	ValStr   ValueKind = "str"
	ValBool  ValueKind = "bool"
	ValNone  ValueKind = "None"
	ValList  ValueKind = "list"
)

// Value is one parsed literal argument.
type Value struct {
	Kind  ValueKind
	Int   int64
	Float float64
	Str   string
	Bool  bool
	List  []Value
}

// AsInt returns the value as an int when it is an integer or an integral
// float (models occasionally emit 2.0 for an index).
func (v Value) AsInt() (int, bool) {
	switch v.Kind {
	case ValInt:
		return int(v.Int), true
	case ValFloat:
		if v.Float == float64(int64(v.Float)) {
			return int(v.Float), true
		}
	}
	return 0, false
}

type literalParser struct {
	input string
	pos   int
}

func (p *literalParser) errf(format string, args ...any) error {
	return fmt.Errorf("at offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c != ' ' && c != '\t' {
			return
		}
		p.pos++
	}
}

func (p *literalParser) peek() (byte, bool) {
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

// parseSeq parses a comma-separated literal sequence up to the closing rune.
func (p *literalParser) parseSeq(close byte) ([]Value, error) {
	var values []Value
	p.skipSpace()
	if c, ok := p.peek(); ok && c == close {
		p.pos++
		return values, nil
	}
	for {
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		p.skipSpace()
		c, ok := p.peek()
		if !ok {
			return nil, p.errf("unterminated sequence, expected %q", string(close))
		}
		switch c {
		case ',':
			p.pos++
			p.skipSpace()
			// trailing comma before the closing rune is valid Python
			if c2, ok := p.peek(); ok && c2 == close {
				p.pos++
				return values, nil
			}
		case close:
			p.pos++
			return values, nil
		default:
			return nil, p.errf("unexpected character %q, expected %q or %q", string(c), ",", string(close))
		}
	}
}

func (p *literalParser) parseValue() (Value, error) {
	p.skipSpace()
	c, ok := p.peek()
	if !ok {
		return Value{}, p.errf("unexpected end of arguments")
	}
	switch {
	case c == '\'' || c == '"':
		s, err := p.parseString()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValStr, Str: s}, nil
	case c == '[':
		p.pos++
		list, err := p.parseSeq(']')
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValList, List: list}, nil
	case c == '(':
		p.pos++
		list, err := p.parseSeq(')')
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValList, List: list}, nil
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	case isIdentStart(rune(c)):
		return p.parseWord()
	default:
		return Value{}, p.errf("unexpected character %q, only literal arguments are allowed", string(c))
	}
}

func (p *literalParser) parseString() (string, error) {
	quote := p.input[p.pos]
	p.pos++
	var b strings.Builder
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		switch c {
		case quote:
			p.pos++
			return b.String(), nil
		case '\\':
			p.pos++
			if p.pos >= len(p.input) {
				return "", p.errf("unterminated escape in string")
			}
			switch esc := p.input[p.pos]; esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\', '\'', '"':
				b.WriteByte(esc)
			default:
				// Python keeps unknown escapes verbatim
				b.WriteByte('\\')
				b.WriteByte(esc)
			}
			p.pos++
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return "", p.errf("unterminated string literal")
}

func (p *literalParser) parseNumber() (Value, error) {
	start := p.pos
	if c, ok := p.peek(); ok && (c == '-' || c == '+') {
		p.pos++
	}
	isFloat := false
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		if c == '.' && !isFloat {
			isFloat = true
			p.pos++
			continue
		}
		if (c == 'e' || c == 'E') && p.pos > start {
			isFloat = true
			p.pos++
			if c2, ok := p.peek(); ok && (c2 == '-' || c2 == '+') {
				p.pos++
			}
			continue
		}
		break
	}
	token := p.input[start:p.pos]
	if isFloat {
		f, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return Value{}, p.errf("invalid number %q", token)
		}
		return Value{Kind: ValFloat, Float: f}, nil
	}
	n, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return Value{}, p.errf("invalid number %q", token)
	}
	return Value{Kind: ValInt, Int: n}, nil
}

func (p *literalParser) parseWord() (Value, error) {
	start := p.pos
	for p.pos < len(p.input) && isIdentPart(rune(p.input[p.pos])) {
		p.pos++
	}
	switch word := p.input[start:p.pos]; word {
	case "True":
		return Value{Kind: ValBool, Bool: true}, nil
	case "False":
		return Value{Kind: ValBool, Bool: false}, nil
	case "None":
		return Value{Kind: ValNone}, nil
	default:
		return Value{}, fmt.Errorf("at offset %d: identifier %q is not allowed, only literal arguments are accepted", start, word)
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
