package contentstream

import (
	"bytes"
	"strconv"
)

// Lexer tokenizes a decoded page content stream. Unlike a file-level PDF
// lexer it knows about inline images: the bytes between ID and EI are
// returned as one opaque token and never interpreted.
type Lexer struct {
	data         []byte
	pos          int
	afterImageID bool
}

// NewLexer creates a lexer over data. The slice is not copied or modified.
func NewLexer(data []byte) *Lexer {
	return &Lexer{data: data}
}

// Position returns the offset of the next unread byte
func (l *Lexer) Position() int {
	return l.pos
}

func (l *Lexer) hasNext() bool {
	return l.pos < len(l.data)
}

func (l *Lexer) current() byte {
	return l.data[l.pos]
}

func (l *Lexer) peek() byte {
	if l.pos+1 >= len(l.data) {
		return 0
	}
	return l.data[l.pos+1]
}

// skipWhitespace skips all whitespace characters
func (l *Lexer) skipWhitespace() {
	for l.hasNext() && IsWhitespace(l.current()) {
		l.pos++
	}
}

// skipComment skips a comment running to the end of the line
func (l *Lexer) skipComment() {
	for l.hasNext() && l.current() != LineFeedChar && l.current() != CarriageReturnChar {
		l.pos++
	}
}

// NextToken returns the next token. At the end of input it returns a token
// of type TokenEOF and a nil error.
func (l *Lexer) NextToken() (Token, error) {
	if l.afterImageID {
		l.afterImageID = false
		return l.readInlineImageData()
	}

	for l.hasNext() {
		if IsWhitespace(l.current()) {
			l.skipWhitespace()
		} else if l.current() == PercentSign {
			l.skipComment()
		} else {
			break
		}
	}

	if !l.hasNext() {
		return Token{Type: TokenEOF, Start: l.pos, End: l.pos}, nil
	}

	start := l.pos

	switch l.current() {
	case LeftParen:
		return l.readLiteralString()
	case LeftAngle:
		if l.peek() == LeftAngle {
			l.pos += 2
			return Token{Type: TokenDictStart, Value: "<<", Start: start, End: l.pos}, nil
		}
		return l.readHexString()
	case RightAngle:
		if l.peek() == RightAngle {
			l.pos += 2
			return Token{Type: TokenDictEnd, Value: ">>", Start: start, End: l.pos}, nil
		}
		return Token{}, &SyntaxError{Message: "unexpected '>'", Position: start}
	case LeftSquare:
		l.pos++
		return Token{Type: TokenArrayStart, Value: "[", Start: start, End: l.pos}, nil
	case RightSquare:
		l.pos++
		return Token{Type: TokenArrayEnd, Value: "]", Start: start, End: l.pos}, nil
	case LeftCurly:
		l.pos++
		return Token{Type: TokenProcStart, Value: "{", Start: start, End: l.pos}, nil
	case RightCurly:
		l.pos++
		return Token{Type: TokenProcEnd, Value: "}", Start: start, End: l.pos}, nil
	case RightParen:
		return Token{}, &SyntaxError{Message: "unbalanced ')'", Position: start}
	case Solidus:
		return l.readName()
	default:
		tok := l.readRegular()
		if tok.Type == TokenOperator && tok.Value == "ID" {
			l.afterImageID = true
		}
		return tok, nil
	}
}

// readLiteralString reads a literal string enclosed in parentheses
func (l *Lexer) readLiteralString() (Token, error) {
	start := l.pos
	var buffer bytes.Buffer

	l.pos++ // opening parenthesis
	depth := 1

	for l.hasNext() {
		ch := l.current()
		switch ch {
		case LeftParen:
			depth++
			buffer.WriteByte(ch)
		case RightParen:
			depth--
			if depth == 0 {
				l.pos++
				return Token{Type: TokenString, Value: buffer.String(), Start: start, End: l.pos}, nil
			}
			buffer.WriteByte(ch)
		case '\\':
			l.pos++
			if !l.hasNext() {
				continue
			}
			l.readEscape(&buffer)
		default:
			buffer.WriteByte(ch)
		}
		l.pos++
	}

	return Token{}, &SyntaxError{Message: "unterminated literal string", Position: start}
}

// readEscape decodes the escape sequence at the current position. On return
// the lexer sits on the last byte of the sequence.
func (l *Lexer) readEscape(buffer *bytes.Buffer) {
	switch l.current() {
	case 'n':
		buffer.WriteByte('\n')
	case 'r':
		buffer.WriteByte('\r')
	case 't':
		buffer.WriteByte('\t')
	case 'b':
		buffer.WriteByte('\b')
	case 'f':
		buffer.WriteByte('\f')
	case LineFeedChar:
	case CarriageReturnChar:
		if l.peek() == LineFeedChar {
			l.pos++
		}
	default:
		if isOctal(l.current()) {
			octal := []byte{l.current()}
			for i := 0; i < 2 && isOctal(l.peek()); i++ {
				l.pos++
				octal = append(octal, l.current())
			}
			if val, err := strconv.ParseUint(string(octal), 8, 8); err == nil {
				buffer.WriteByte(byte(val))
			}
			return
		}
		buffer.WriteByte(l.current())
	}
}

// readHexString reads a hexadecimal string enclosed in angle brackets
func (l *Lexer) readHexString() (Token, error) {
	start := l.pos
	var buffer bytes.Buffer

	l.pos++ // opening angle bracket

	for l.hasNext() && l.current() != RightAngle {
		ch := l.current()
		if !IsWhitespace(ch) {
			if !isHex(ch) {
				return Token{}, &SyntaxError{Message: "invalid hex digit in hex string", Position: l.pos}
			}
			buffer.WriteByte(ch)
		}
		l.pos++
	}

	if !l.hasNext() {
		return Token{}, &SyntaxError{Message: "unterminated hex string", Position: start}
	}
	l.pos++ // closing angle bracket

	hexStr := buffer.String()
	if len(hexStr)%2 == 1 {
		hexStr += "0"
	}

	return Token{Type: TokenHexString, Value: hexStr, Start: start, End: l.pos}, nil
}

// readName reads a name object starting with /
func (l *Lexer) readName() (Token, error) {
	start := l.pos
	var buffer bytes.Buffer

	l.pos++ // solidus

	for l.hasNext() && IsRegular(l.current()) {
		ch := l.current()
		if ch == '#' && l.pos+2 < len(l.data) && isHex(l.data[l.pos+1]) && isHex(l.data[l.pos+2]) {
			if val, err := strconv.ParseUint(string(l.data[l.pos+1:l.pos+3]), 16, 8); err == nil {
				buffer.WriteByte(byte(val))
				l.pos += 3
				continue
			}
		}
		buffer.WriteByte(ch)
		l.pos++
	}

	return Token{Type: TokenName, Value: buffer.String(), Start: start, End: l.pos}, nil
}

// readRegular reads a run of regular characters and classifies it as a
// number, a boolean, null, or an operator.
func (l *Lexer) readRegular() Token {
	start := l.pos
	for l.hasNext() && IsRegular(l.current()) {
		l.pos++
	}
	word := string(l.data[start:l.pos])

	switch {
	case isNumber(word):
		return Token{Type: TokenNumber, Value: word, Start: start, End: l.pos}
	case word == "true" || word == "false":
		return Token{Type: TokenBool, Value: word, Start: start, End: l.pos}
	case word == "null":
		return Token{Type: TokenNull, Value: word, Start: start, End: l.pos}
	default:
		return Token{Type: TokenOperator, Value: word, Start: start, End: l.pos}
	}
}

// readInlineImageData consumes the binary payload following an ID operator.
// The payload ends right before a whitespace byte followed by EI and then
// whitespace or end of data.
func (l *Lexer) readInlineImageData() (Token, error) {
	// exactly one whitespace byte separates ID from the data
	if l.hasNext() && IsWhitespace(l.current()) {
		l.pos++
	}
	start := l.pos

	for i := start; i+2 < len(l.data); i++ {
		if !IsWhitespace(l.data[i]) || l.data[i+1] != 'E' || l.data[i+2] != 'I' {
			continue
		}
		if i+3 < len(l.data) && !IsWhitespace(l.data[i+3]) && !IsDelimiter(l.data[i+3]) {
			continue
		}
		l.pos = i
		return Token{Type: TokenInlineImageData, Start: start, End: i}, nil
	}

	return Token{}, &SyntaxError{Message: "inline image without EI", Position: start}
}

func isNumber(word string) bool {
	if word == "" {
		return false
	}
	i := 0
	if word[0] == '+' || word[0] == '-' {
		i++
	}
	digits, dots := 0, 0
	for ; i < len(word); i++ {
		switch c := word[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

func isHex(ch byte) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isOctal(ch byte) bool {
	return ch >= '0' && ch <= '7'
}
