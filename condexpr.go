package litmus

// Condition expression parsing for 'if (...)' sources. The grammar is small
// and the input may be partial or garbled, so parsing is total: unknown
// characters are skipped and missing operands default to a zero literal.

// CondExpr represents a node in a parsed condition expression.
type CondExpr interface {
	condExpr()
}

func (*IdentExpr) condExpr()      {}
func (*NumberExpr) condExpr()     {}
func (*NotCondExpr) condExpr()    {}
func (*BinaryCondExpr) condExpr() {}

// IdentExpr represents an identifier reference.
type IdentExpr struct {
	Name string
}

// NumberExpr represents an integer literal. Text preserves the source
// spelling (decimal or hex, optional leading minus).
type NumberExpr struct {
	Text string
}

// NotCondExpr represents a unary logical negation.
type NotCondExpr struct {
	X CondExpr
}

// BinaryCondExpr represents either a comparison or a logical connective.
// Exactly one of Cmp/Log is meaningful, selected by IsLogic.
type BinaryCondExpr struct {
	IsLogic bool
	Cmp     CmpOp
	Log     LogicOp
	LHS     CondExpr
	RHS     CondExpr
}

// Logic reports whether the node is a logical connective.
func (e *BinaryCondExpr) Logic() bool { return e.IsLogic }

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
}

// tokenizeCond splits a condition string into tokens, skipping any character
// it does not recognize.
func tokenizeCond(s string) []token {
	var toks []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case isIdentStart(c):
			j := i + 1
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			toks = append(toks, token{tokIdent, s[i:j]})
			i = j
		case isDigit(c) || (c == '-' && i+1 < len(s) && isDigit(s[i+1])):
			j := i + 1
			for j < len(s) && (isDigit(s[j]) || isHexPart(s[j])) {
				j++
			}
			toks = append(toks, token{tokNumber, s[i:j]})
			i = j
		case c == '&' && i+1 < len(s) && s[i+1] == '&':
			toks = append(toks, token{tokOp, "&&"})
			i += 2
		case c == '|' && i+1 < len(s) && s[i+1] == '|':
			toks = append(toks, token{tokOp, "||"})
			i += 2
		case c == '=' && i+1 < len(s) && s[i+1] == '=':
			toks = append(toks, token{tokOp, "=="})
			i += 2
		case c == '!' && i+1 < len(s) && s[i+1] == '=':
			toks = append(toks, token{tokOp, "!="})
			i += 2
		case c == '<' || c == '>':
			if i+1 < len(s) && s[i+1] == '=' {
				toks = append(toks, token{tokOp, s[i : i+2]})
				i += 2
			} else {
				toks = append(toks, token{tokOp, s[i : i+1]})
				i++
			}
		case c == '!':
			toks = append(toks, token{tokOp, "!"})
			i++
		default:
			i++ // permissive: skip unrecognized characters
		}
	}
	return toks
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexPart(c byte) bool {
	return c == 'x' || c == 'X' || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// ParseCondExpr parses a condition string with precedence
// '||' < '&&' < comparison < unary. Parsing never fails; a missing operand
// becomes a zero literal.
func ParseCondExpr(s string) CondExpr {
	p := &condParser{toks: tokenizeCond(s)}
	return p.parseOr()
}

type condParser struct {
	toks []token
	pos  int
}

func (p *condParser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *condParser) acceptOp(texts ...string) (string, bool) {
	tok, ok := p.peek()
	if !ok || tok.kind != tokOp {
		return "", false
	}
	for _, t := range texts {
		if tok.text == t {
			p.pos++
			return t, true
		}
	}
	return "", false
}

func (p *condParser) parseOr() CondExpr {
	expr := p.parseAnd()
	for {
		if _, ok := p.acceptOp("||"); !ok {
			return expr
		}
		expr = &BinaryCondExpr{IsLogic: true, Log: LogicOr, LHS: expr, RHS: p.parseAnd()}
	}
}

func (p *condParser) parseAnd() CondExpr {
	expr := p.parseCmp()
	for {
		if _, ok := p.acceptOp("&&"); !ok {
			return expr
		}
		expr = &BinaryCondExpr{IsLogic: true, Log: LogicAnd, LHS: expr, RHS: p.parseCmp()}
	}
}

var cmpOpByText = map[string]CmpOp{
	"==": CmpEQ,
	"!=": CmpNE,
	"<":  CmpLT,
	"<=": CmpLE,
	">":  CmpGT,
	">=": CmpGE,
}

func (p *condParser) parseCmp() CondExpr {
	expr := p.parseUnary()
	for {
		text, ok := p.acceptOp("==", "!=", "<", "<=", ">", ">=")
		if !ok {
			return expr
		}
		expr = &BinaryCondExpr{Cmp: cmpOpByText[text], LHS: expr, RHS: p.parseUnary()}
	}
}

func (p *condParser) parseUnary() CondExpr {
	if _, ok := p.acceptOp("!"); ok {
		return &NotCondExpr{X: p.parseUnary()}
	}
	return p.parsePrimary()
}

func (p *condParser) parsePrimary() CondExpr {
	tok, ok := p.peek()
	if !ok {
		return &NumberExpr{Text: "0"}
	}
	switch tok.kind {
	case tokIdent:
		p.pos++
		return &IdentExpr{Name: tok.text}
	case tokNumber:
		p.pos++
		return &NumberExpr{Text: tok.text}
	case tokLParen:
		p.pos++
		expr := p.parseOr()
		if tok, ok := p.peek(); ok && tok.kind == tokRParen {
			p.pos++
		}
		return expr
	default:
		// Stray operator; consume it so parsing makes progress.
		p.pos++
		return p.parsePrimary()
	}
}
