package contentstream

import "fmt"

// Token is one lexical unit of a content stream. Start and End are byte
// offsets into the scanned data, End exclusive, so callers can splice the
// original bytes without re-serializing anything.
type Token struct {
	Type  TokenType
	Value string
	Start int
	End   int
}

// TokenType represents the type of a lexical token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenNumber
	TokenString
	TokenHexString
	TokenName
	TokenOperator
	TokenBool
	TokenNull
	TokenArrayStart
	TokenArrayEnd
	TokenDictStart
	TokenDictEnd
	TokenProcStart
	TokenProcEnd
	TokenInlineImageData
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenNumber:
		return "NUMBER"
	case TokenString:
		return "STRING"
	case TokenHexString:
		return "HEXSTRING"
	case TokenName:
		return "NAME"
	case TokenOperator:
		return "OPERATOR"
	case TokenBool:
		return "BOOL"
	case TokenNull:
		return "NULL"
	case TokenArrayStart:
		return "ARRAY_START"
	case TokenArrayEnd:
		return "ARRAY_END"
	case TokenDictStart:
		return "DICT_START"
	case TokenDictEnd:
		return "DICT_END"
	case TokenProcStart:
		return "PROC_START"
	case TokenProcEnd:
		return "PROC_END"
	case TokenInlineImageData:
		return "INLINE_IMAGE_DATA"
	default:
		return "UNKNOWN"
	}
}

// IsOperand reports whether the token can appear as an operand at the top level.
func (t TokenType) IsOperand() bool {
	switch t {
	case TokenNumber, TokenString, TokenHexString, TokenName, TokenBool, TokenNull:
		return true
	default:
		return false
	}
}

// SyntaxError reports content that cannot be tokenized.
type SyntaxError struct {
	Message  string
	Position int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("content stream syntax error at offset %d: %s", e.Position, e.Message)
}

const (
	NullChar           = '\000'
	TabChar            = '\t'
	LineFeedChar       = '\n'
	FormFeedChar       = '\f'
	CarriageReturnChar = '\r'
	SpaceChar          = ' '

	LeftParen   = '('
	RightParen  = ')'
	LeftAngle   = '<'
	RightAngle  = '>'
	LeftSquare  = '['
	RightSquare = ']'
	LeftCurly   = '{'
	RightCurly  = '}'
	Solidus     = '/'
	PercentSign = '%'
)

// IsWhitespace checks if a character is PDF whitespace
func IsWhitespace(ch byte) bool {
	return ch == NullChar || ch == TabChar || ch == LineFeedChar ||
		ch == FormFeedChar || ch == CarriageReturnChar || ch == SpaceChar
}

// IsDelimiter checks if a character is a PDF delimiter
func IsDelimiter(ch byte) bool {
	return ch == LeftParen || ch == RightParen || ch == LeftAngle || ch == RightAngle ||
		ch == LeftSquare || ch == RightSquare || ch == LeftCurly || ch == RightCurly ||
		ch == Solidus || ch == PercentSign
}

// IsRegular checks if a character is a regular character (not whitespace or delimiter)
func IsRegular(ch byte) bool {
	return !IsWhitespace(ch) && !IsDelimiter(ch)
}
