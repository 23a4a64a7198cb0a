package symbolic

import (
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

// RelOp is a relational operator connecting two expressions.
type RelOp string

const (
	OpNone RelOp = ""
	OpEq   RelOp = "="
	OpLt   RelOp = "<"
	OpLe   RelOp = "<="
	OpGt   RelOp = ">"
	OpGe   RelOp = ">="
)

// Relation is a parsed statement: Lhs Op Rhs, or a bare expression when
// Op is OpNone (Rhs nil).
type Relation struct {
	Lhs Expr
	Op  RelOp
	Rhs Expr
}

// knownFuncs are the function names the engine understands.
var knownFuncs = map[string]struct{}{
	"sin": {}, "cos": {}, "tan": {}, "exp": {}, "ln": {}, "log": {}, "sqrt": {},
}

// Parse parses a bare expression. It is an error for the input to contain a
// relational operator; use ParseRelation for statements like "x + 1 = 0".
func Parse(input string) (Expr, error) {
	rel, err := ParseRelation(input)
	if err != nil {
		return nil, err
	}
	if rel.Op != OpNone {
		return nil, fmt.Errorf("unexpected relational operator %q", rel.Op)
	}
	return rel.Lhs, nil
}

// ParseRelation parses "lhs", "lhs = rhs", or an inequality between two
// expressions. Implicit multiplication ("2x", "3(x+1)") is supported.
func ParseRelation(input string) (Relation, error) {
	toks, err := lex(input)
	if err != nil {
		return Relation{}, err
	}
	p := &parser{toks: toks}
	lhs, err := p.parseExpr()
	if err != nil {
		return Relation{}, err
	}
	if p.eof() {
		return Relation{Lhs: lhs, Op: OpNone}, nil
	}
	t := p.next()
	var op RelOp
	switch t.kind {
	case tokEq:
		op = OpEq
	case tokLt:
		op = OpLt
	case tokLe:
		op = OpLe
	case tokGt:
		op = OpGt
	case tokGe:
		op = OpGe
	default:
		return Relation{}, fmt.Errorf("unexpected token %q at position %d", t.text, t.pos)
	}
	rhs, err := p.parseExpr()
	if err != nil {
		return Relation{}, err
	}
	if !p.eof() {
		t := p.peek()
		return Relation{}, fmt.Errorf("unexpected trailing input %q at position %d", t.text, t.pos)
	}
	return Relation{Lhs: lhs, Op: op, Rhs: rhs}, nil
}

type tokKind int

const (
	tokNum tokKind = iota
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokCaret
	tokLParen
	tokRParen
	tokComma
	tokEq
	tokLt
	tokLe
	tokGt
	tokGe
)

type token struct {
	kind tokKind
	text string
	pos  int
}

func lex(input string) ([]token, error) {
	var toks []token
	rs := []rune(input)
	i := 0
	for i < len(rs) {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.IsDigit(r) || (r == '.' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			start := i
			seenDot := false
			for i < len(rs) && (unicode.IsDigit(rs[i]) || (rs[i] == '.' && !seenDot)) {
				if rs[i] == '.' {
					seenDot = true
				}
				i++
			}
			toks = append(toks, token{tokNum, string(rs[start:i]), start})
		case unicode.IsLetter(r):
			start := i
			for i < len(rs) && (unicode.IsLetter(rs[i]) || unicode.IsDigit(rs[i]) || rs[i] == '_') {
				i++
			}
			toks = append(toks, token{tokIdent, string(rs[start:i]), start})
		default:
			pos := i
			switch r {
			case '+':
				toks = append(toks, token{tokPlus, "+", pos})
			case '-', '−':
				toks = append(toks, token{tokMinus, "-", pos})
			case '*', '×', '·':
				toks = append(toks, token{tokStar, "*", pos})
			case '/', '÷':
				toks = append(toks, token{tokSlash, "/", pos})
			case '^':
				toks = append(toks, token{tokCaret, "^", pos})
			case '(':
				toks = append(toks, token{tokLParen, "(", pos})
			case ')':
				toks = append(toks, token{tokRParen, ")", pos})
			case ',':
				toks = append(toks, token{tokComma, ",", pos})
			case '=':
				// tolerate "==" from machine-generated statements
				if i+1 < len(rs) && rs[i+1] == '=' {
					i++
				}
				toks = append(toks, token{tokEq, "=", pos})
			case '<':
				if i+1 < len(rs) && rs[i+1] == '=' {
					i++
					toks = append(toks, token{tokLe, "<=", pos})
				} else {
					toks = append(toks, token{tokLt, "<", pos})
				}
			case '>':
				if i+1 < len(rs) && rs[i+1] == '=' {
					i++
					toks = append(toks, token{tokGe, ">=", pos})
				} else {
					toks = append(toks, token{tokGt, ">", pos})
				}
			case '≤':
				toks = append(toks, token{tokLe, "<=", pos})
			case '≥':
				toks = append(toks, token{tokGe, ">=", pos})
			default:
				return nil, fmt.Errorf("unexpected character %q at position %d", r, pos)
			}
			i++
		}
	}
	if len(toks) == 0 {
		return nil, fmt.Errorf("empty expression")
	}
	return toks, nil
}

type parser struct {
	toks []token
	i    int
}

func (p *parser) eof() bool    { return p.i >= len(p.toks) }
func (p *parser) peek() token  { return p.toks[p.i] }
func (p *parser) next() token  { t := p.toks[p.i]; p.i++; return t }

func (p *parser) parseExpr() (Expr, error) {
	lhs, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for !p.eof() {
		switch p.peek().kind {
		case tokPlus:
			p.next()
			rhs, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			lhs = NewAdd(lhs, rhs)
		case tokMinus:
			p.next()
			rhs, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			lhs = Sub(lhs, rhs)
		default:
			return lhs, nil
		}
	}
	return lhs, nil
}

func (p *parser) parseTerm() (Expr, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for !p.eof() {
		switch p.peek().kind {
		case tokStar:
			p.next()
			rhs, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			lhs = NewMul(lhs, rhs)
		case tokSlash:
			p.next()
			rhs, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			lhs = Div(lhs, rhs)
		case tokIdent, tokLParen:
			// implicit multiplication: "2x", "2(x+1)", "x sin(x)"
			rhs, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			lhs = NewMul(lhs, rhs)
		default:
			return lhs, nil
		}
	}
	return lhs, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if !p.eof() && p.peek().kind == tokMinus {
		p.next()
		e, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Neg(e), nil
	}
	if !p.eof() && p.peek().kind == tokPlus {
		p.next()
		return p.parseUnary()
	}
	return p.parsePower()
}

func (p *parser) parsePower() (Expr, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if !p.eof() && p.peek().kind == tokCaret {
		p.next()
		// right-associative; exponent may carry a unary minus: x^-2
		exp, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return NewPow(base, exp), nil
	}
	return base, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	if p.eof() {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	t := p.next()
	switch t.kind {
	case tokNum:
		r, ok := new(big.Rat).SetString(t.text)
		if !ok {
			return nil, fmt.Errorf("invalid number %q at position %d", t.text, t.pos)
		}
		return NewNum(r), nil
	case tokIdent:
		name := strings.ToLower(t.text)
		if _, isFn := knownFuncs[name]; isFn {
			if p.eof() || p.peek().kind != tokLParen {
				return nil, fmt.Errorf("function %q requires an argument at position %d", name, t.pos)
			}
			p.next() // consume '('
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if p.eof() || p.next().kind != tokRParen {
				return nil, fmt.Errorf("missing closing parenthesis for %q", name)
			}
			if name == "log" {
				name = "ln"
			}
			return Fn(name, arg), nil
		}
		return Var(t.text), nil
	case tokLParen:
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.eof() || p.next().kind != tokRParen {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unexpected token %q at position %d", t.text, t.pos)
	}
}
