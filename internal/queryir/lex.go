package queryir

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokInt
	tokOp // == != < <= > >=
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokComma
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of expression"
	case tokIdent:
		return "name"
	case tokString:
		return "string"
	case tokInt:
		return "integer"
	case tokOp:
		return "operator"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokLBracket:
		return "'['"
	case tokRBracket:
		return "']'"
	case tokComma:
		return "','"
	}
	return fmt.Sprintf("token(%d)", int(k))
}

type token struct {
	kind tokenKind
	pos  int // byte offset in the input
	text string

	// Decoded payload for tokString and tokInt.
	str string
	num int64
}

// isKeyword reports whether the token is the given reserved word.
func (t token) isKeyword(word string) bool {
	return t.kind == tokIdent && t.text == word
}

func (t token) describe() string {
	if t.kind == tokEOF {
		return t.kind.String()
	}
	return fmt.Sprintf("%q", t.text)
}

var keywords = map[string]bool{
	"and": true, "or": true, "not": true, "in": true, "is": true,
	"True": true, "False": true, "None": true,
}

// lex splits the input into tokens, ending with tokEOF.
func lex(input string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(input) {
		r, size := utf8.DecodeRuneInString(input[i:])
		if r == utf8.RuneError && size == 1 {
			return nil, &SyntaxError{Pos: i, Message: "invalid UTF-8"}
		}

		switch {
		case unicode.IsSpace(r):
			i += size

		case r == '_' || unicode.IsLetter(r):
			start := i
			for i < len(input) {
				r, size := utf8.DecodeRuneInString(input[i:])
				if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r) {
					break
				}
				i += size
			}
			tokens = append(tokens, token{kind: tokIdent, pos: start, text: norm.NFC.String(input[start:i])})

		case isDigit(r) || (r == '-' && i+1 < len(input) && isDigit(rune(input[i+1]))):
			start := i
			i++
			for i < len(input) && isDigit(rune(input[i])) {
				i++
			}
			text := input[start:i]
			if i < len(input) && (input[i] == '.' || input[i] == 'e' || input[i] == 'E') {
				return nil, &SyntaxError{Pos: start, Message: "floating point literals are not supported"}
			}
			n, err := strconv.ParseInt(text, 10, 64)
			if err != nil {
				return nil, &SyntaxError{Pos: start, Message: fmt.Sprintf("integer literal %s out of range", text)}
			}
			tokens = append(tokens, token{kind: tokInt, pos: start, text: text, num: n})

		case r == '\'' || r == '"':
			tok, next, err := lexString(input, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			i = next

		case r == '=' || r == '!' || r == '<' || r == '>':
			start := i
			i++
			if i < len(input) && input[i] == '=' {
				i++
			}
			op := input[start:i]
			if op == "=" || op == "!" {
				return nil, &SyntaxError{Pos: start, Message: fmt.Sprintf("unexpected %q", op)}
			}
			tokens = append(tokens, token{kind: tokOp, pos: start, text: op})

		default:
			kind, ok := punctuation[r]
			if !ok {
				return nil, &SyntaxError{Pos: i, Message: fmt.Sprintf("unexpected character %q", r)}
			}
			tokens = append(tokens, token{kind: kind, pos: i, text: string(r)})
			i += size
		}
	}
	return append(tokens, token{kind: tokEOF, pos: len(input)}), nil
}

var punctuation = map[rune]tokenKind{
	'(': tokLParen,
	')': tokRParen,
	'[': tokLBracket,
	']': tokRBracket,
	',': tokComma,
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// lexString decodes a quoted string starting at input[start].
// Unknown escape sequences are kept verbatim, backslash included.
func lexString(input string, start int) (token, int, error) {
	quote := input[start]
	var sb strings.Builder
	i := start + 1
	for i < len(input) {
		c := input[i]
		switch {
		case c == quote:
			return token{kind: tokString, pos: start, text: input[start : i+1], str: sb.String()}, i + 1, nil
		case c == '\\' && i+1 < len(input):
			switch e := input[i+1]; e {
			case '\\', '\'', '"':
				sb.WriteByte(e)
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				sb.WriteByte('\\')
				sb.WriteByte(e)
			}
			i += 2
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return token{}, 0, &SyntaxError{Pos: start, Message: "unterminated string literal"}
}
