package tex2img

import (
	"fmt"
	"math"
	"strconv"
)

// Sandboxed evaluator for the arithmetic subset used by TikZ plot
// expressions. The expression is parsed into a private syntax tree and
// walked against an explicit allow-list: binary + - * / // % ^ (also
// **), unary + -, the constants pi and e, and a fixed set of one-argument
// functions. Everything else is rejected. Expressions originate from
// LLM-generated or user-supplied text, so a general-purpose interpreter
// is off the table; rejection surfaces as NaN rather than an error so
// that batch point sampling can filter invalid points without per-point
// error handling.

// evalFuncs is the allow-list of callable functions. All take exactly
// one argument.
var evalFuncs = map[string]func(float64) float64{
	"sqrt":  math.Sqrt,
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
	"exp":   math.Exp,
	"log":   math.Log,
	"log10": math.Log10,
	"abs":   math.Abs,
	"ceil":  math.Ceil,
	"floor": math.Floor,
}

// evalConsts is the allow-list of named constants.
var evalConsts = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

// EvalExpr evaluates a restricted arithmetic expression and returns the
// result. On a parse error or any construct outside the allow-list it
// returns NaN and never panics.
//
//	EvalExpr("2 + 3 * sqrt(16)") // 14
//	EvalExpr("sin(pi / 2)")      // 1
//	EvalExpr("import(\"os\")")   // NaN
func EvalExpr(expr string) float64 {
	node, err := parseExpr(expr)
	if err != nil {
		return math.NaN()
	}
	v, err := evalNode(node)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Syntax tree node kinds. evalNode rejects anything it does not know.

type exprNode interface{ isExprNode() }

type numLit struct{ value float64 }

type constRef struct{ name string }

type unaryExpr struct {
	op      byte // '+' or '-'
	operand exprNode
}

type binExpr struct {
	op    binOp
	left  exprNode
	right exprNode
}

type callExpr struct {
	name string
	args []exprNode
}

func (numLit) isExprNode()    {}
func (constRef) isExprNode()  {}
func (unaryExpr) isExprNode() {}
func (binExpr) isExprNode()   {}
func (callExpr) isExprNode()  {}

// binOp identifies an allow-listed binary operator.
type binOp int

const (
	opAdd binOp = iota
	opSub
	opMul
	opDiv
	opFloorDiv
	opMod
	opPow
)

// evalNode walks the syntax tree. Unknown node kinds, identifiers, and
// functions are rejected with an error that EvalExpr maps to NaN.
func evalNode(n exprNode) (float64, error) {
	switch node := n.(type) {
	case numLit:
		return node.value, nil
	case constRef:
		v, ok := evalConsts[node.name]
		if !ok {
			return 0, fmt.Errorf("unsupported identifier: %s", node.name)
		}
		return v, nil
	case unaryExpr:
		v, err := evalNode(node.operand)
		if err != nil {
			return 0, err
		}
		if node.op == '-' {
			return -v, nil
		}
		return v, nil
	case binExpr:
		left, err := evalNode(node.left)
		if err != nil {
			return 0, err
		}
		right, err := evalNode(node.right)
		if err != nil {
			return 0, err
		}
		return applyBinOp(node.op, left, right), nil
	case callExpr:
		fn, ok := evalFuncs[node.name]
		if !ok {
			return 0, fmt.Errorf("unsupported function: %s", node.name)
		}
		if len(node.args) != 1 {
			return 0, fmt.Errorf("function %s takes exactly one argument", node.name)
		}
		arg, err := evalNode(node.args[0])
		if err != nil {
			return 0, err
		}
		return fn(arg), nil
	default:
		return 0, fmt.Errorf("unsupported syntax node %T", n)
	}
}

// applyBinOp computes an allow-listed binary operation. Arithmetic
// follows IEEE-754 (division by zero yields an infinity that the plot
// converter's finite-point filter drops); floor division and modulo use
// the floored convention.
func applyBinOp(op binOp, x, y float64) float64 {
	switch op {
	case opAdd:
		return x + y
	case opSub:
		return x - y
	case opMul:
		return x * y
	case opDiv:
		return x / y
	case opFloorDiv:
		return math.Floor(x / y)
	case opMod:
		return x - y*math.Floor(x/y)
	case opPow:
		return math.Pow(x, y)
	}
	return math.NaN()
}

// Lexer.

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNum
	tokIdent
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokFloorDiv // //
	tokPercent
	tokPow // ^ or **
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind  tokenKind
	text  string
	value float64
}

func lexExpr(input string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c >= '0' && c <= '9' || c == '.':
			start := i
			for i < len(input) && (input[i] >= '0' && input[i] <= '9' || input[i] == '.') {
				i++
			}
			// Exponent part, e.g. 1e-05 produced by float formatting.
			if i < len(input) && (input[i] == 'e' || input[i] == 'E') {
				j := i + 1
				if j < len(input) && (input[j] == '+' || input[j] == '-') {
					j++
				}
				if j < len(input) && input[j] >= '0' && input[j] <= '9' {
					for j < len(input) && input[j] >= '0' && input[j] <= '9' {
						j++
					}
					i = j
				}
			}
			v, err := strconv.ParseFloat(input[start:i], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q", input[start:i])
			}
			tokens = append(tokens, token{kind: tokNum, value: v})
		case isIdentByte(c):
			start := i
			for i < len(input) && (isIdentByte(input[i]) || input[i] >= '0' && input[i] <= '9') {
				i++
			}
			tokens = append(tokens, token{kind: tokIdent, text: input[start:i]})
		case c == '+':
			tokens = append(tokens, token{kind: tokPlus})
			i++
		case c == '-':
			tokens = append(tokens, token{kind: tokMinus})
			i++
		case c == '*':
			if i+1 < len(input) && input[i+1] == '*' {
				tokens = append(tokens, token{kind: tokPow})
				i += 2
			} else {
				tokens = append(tokens, token{kind: tokStar})
				i++
			}
		case c == '/':
			if i+1 < len(input) && input[i+1] == '/' {
				tokens = append(tokens, token{kind: tokFloorDiv})
				i += 2
			} else {
				tokens = append(tokens, token{kind: tokSlash})
				i++
			}
		case c == '%':
			tokens = append(tokens, token{kind: tokPercent})
			i++
		case c == '^':
			tokens = append(tokens, token{kind: tokPow})
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokLParen})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokRParen})
			i++
		case c == ',':
			tokens = append(tokens, token{kind: tokComma})
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q", c)
		}
	}
	tokens = append(tokens, token{kind: tokEOF})
	return tokens, nil
}

func isIdentByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

// Parser: recursive descent with power binding tighter than unary minus
// (so -x^2 means -(x^2)) and a right-associative exponent.

type exprParser struct {
	tokens []token
	pos    int
}

func parseExpr(input string) (exprNode, error) {
	tokens, err := lexExpr(input)
	if err != nil {
		return nil, err
	}
	p := &exprParser{tokens: tokens}
	node, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("unexpected trailing input")
	}
	return node, nil
}

func (p *exprParser) peek() token { return p.tokens[p.pos] }

func (p *exprParser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *exprParser) parseSum() (exprNode, error) {
	left, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().kind {
		case tokPlus:
			p.next()
			right, err := p.parseProduct()
			if err != nil {
				return nil, err
			}
			left = binExpr{op: opAdd, left: left, right: right}
		case tokMinus:
			p.next()
			right, err := p.parseProduct()
			if err != nil {
				return nil, err
			}
			left = binExpr{op: opSub, left: left, right: right}
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseProduct() (exprNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op binOp
		switch p.peek().kind {
		case tokStar:
			op = opMul
		case tokSlash:
			op = opDiv
		case tokFloorDiv:
			op = opFloorDiv
		case tokPercent:
			op = opMod
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binExpr{op: op, left: left, right: right}
	}
}

func (p *exprParser) parseUnary() (exprNode, error) {
	switch p.peek().kind {
	case tokPlus:
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryExpr{op: '+', operand: operand}, nil
	case tokMinus:
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryExpr{op: '-', operand: operand}, nil
	}
	return p.parsePower()
}

func (p *exprParser) parsePower() (exprNode, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokPow {
		return base, nil
	}
	p.next()
	// The exponent may carry its own sign: 2^-3.
	exponent, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return binExpr{op: opPow, left: base, right: exponent}, nil
}

func (p *exprParser) parsePrimary() (exprNode, error) {
	switch t := p.next(); t.kind {
	case tokNum:
		return numLit{value: t.value}, nil
	case tokIdent:
		if p.peek().kind != tokLParen {
			return constRef{name: t.text}, nil
		}
		p.next()
		var args []exprNode
		if p.peek().kind != tokRParen {
			for {
				arg, err := p.parseSum()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.peek().kind != tokComma {
					break
				}
				p.next()
			}
		}
		if p.next().kind != tokRParen {
			return nil, fmt.Errorf("missing closing parenthesis in call to %s", t.text)
		}
		return callExpr{name: t.text, args: args}, nil
	case tokLParen:
		node, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		if p.next().kind != tokRParen {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		return node, nil
	default:
		return nil, fmt.Errorf("unexpected token")
	}
}
