package contentstream

// Operation is one operator together with the operands that precede it.
// Arrays and dictionaries appear as a single composite operand whose Type is
// TokenArrayStart or TokenDictStart and whose Start and End span the whole
// bracketed value.
type Operation struct {
	Operator Token
	Operands []Token
}

// NumberOperands reports whether every operand is a number and there are
// exactly n of them.
func (op Operation) NumberOperands(n int) bool {
	if len(op.Operands) != n {
		return false
	}
	for _, o := range op.Operands {
		if o.Type != TokenNumber {
			return false
		}
	}
	return true
}

// Scan tokenizes data and calls fn for every operator in stream order.
// Inline image payloads are skipped. Scanning stops at the first lexer
// error or the first error returned by fn.
func Scan(data []byte, fn func(Operation) error) error {
	_, err := ScanTrailing(data, fn)
	return err
}

// ScanTrailing is Scan that also returns the operands left over after the
// last operator. A page's content streams form one logical stream, so those
// operands belong to the first operator of the page's next stream.
func ScanTrailing(data []byte, fn func(Operation) error) ([]Token, error) {
	lexer := NewLexer(data)
	var operands []Token

	for {
		tok, err := lexer.NextToken()
		if err != nil {
			return nil, err
		}

		switch tok.Type {
		case TokenEOF:
			return operands, nil
		case TokenOperator:
			if err := fn(Operation{Operator: tok, Operands: operands}); err != nil {
				return nil, err
			}
			operands = nil
		case TokenInlineImageData:
			operands = nil
		case TokenArrayStart, TokenDictStart, TokenProcStart:
			composite, err := readComposite(lexer, tok)
			if err != nil {
				return nil, err
			}
			operands = append(operands, composite)
		case TokenArrayEnd, TokenDictEnd, TokenProcEnd:
			return nil, &SyntaxError{Message: "unbalanced " + tok.Value, Position: tok.Start}
		default:
			operands = append(operands, tok)
		}
	}
}

// readComposite consumes tokens up to the delimiter closing open and returns
// one token spanning the whole value.
func readComposite(lexer *Lexer, open Token) (Token, error) {
	var stack []TokenType
	stack = append(stack, closerFor(open.Type))

	for len(stack) > 0 {
		tok, err := lexer.NextToken()
		if err != nil {
			return Token{}, err
		}
		switch tok.Type {
		case TokenEOF:
			return Token{}, &SyntaxError{Message: "unterminated " + open.Value, Position: open.Start}
		case TokenArrayStart, TokenDictStart, TokenProcStart:
			stack = append(stack, closerFor(tok.Type))
		case TokenArrayEnd, TokenDictEnd, TokenProcEnd:
			if stack[len(stack)-1] != tok.Type {
				return Token{}, &SyntaxError{Message: "mismatched " + tok.Value, Position: tok.Start}
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return Token{Type: open.Type, Value: open.Value, Start: open.Start, End: tok.End}, nil
			}
		}
	}
	return Token{}, &SyntaxError{Message: "unterminated " + open.Value, Position: open.Start}
}

func closerFor(t TokenType) TokenType {
	switch t {
	case TokenArrayStart:
		return TokenArrayEnd
	case TokenDictStart:
		return TokenDictEnd
	default:
		return TokenProcEnd
	}
}
