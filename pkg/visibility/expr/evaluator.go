// Package expr implements a small boolean rule language for field visibility.
//
//	`Marital Status` == "Married"
//	Hobbies == "Music" && !(`Sibling Count` == 0)
//	extras.program != "MBA"
//
// Identifiers name form fields; names containing spaces are wrapped in
// backticks. The extras. prefix reads session facts. Comparing a checkbox
// group against a string tests membership.
package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-admission/pkg/visibility"
)

// Evaluator parses and evaluates rules. It holds no state.
type Evaluator struct{}

func New() *Evaluator { return &Evaluator{} }

// Eval implements visibility.Evaluator. An empty rule is always visible.
func (e *Evaluator) Eval(field, rule string, ctx visibility.Context) (bool, error) {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return true, nil
	}
	node, err := Parse(rule)
	if err != nil {
		return false, fmt.Errorf("visibility/expr: field %q: %w", field, err)
	}
	return node.eval(ctx)
}

// Node is a parsed rule.
type Node interface {
	eval(ctx visibility.Context) (bool, error)
}

// Parse compiles a rule without evaluating it, for load-time checks.
func Parse(rule string) (Node, error) {
	tokens, err := tokenize(rule)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, errors.New("empty expression")
	}
	stream := &tokenStream{tokens: tokens}
	node, err := parseOr(stream)
	if err != nil {
		return nil, err
	}
	if stream.pos < len(stream.tokens) {
		return nil, fmt.Errorf("unexpected token %q", stream.tokens[stream.pos].raw)
	}
	return node, nil
}

type tokenKind int

const (
	tokenIdentifier tokenKind = iota
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenEq
	tokenNeq
	tokenAnd
	tokenOr
	tokenNot
	tokenLParen
	tokenRParen
)

type token struct {
	kind tokenKind
	raw  string
}

type lexer struct {
	input  string
	pos    int
	tokens []token
}

func tokenize(input string) ([]token, error) {
	lx := &lexer{input: input}
	for lx.pos < len(lx.input) {
		if err := lx.step(); err != nil {
			return nil, err
		}
	}
	return lx.tokens, nil
}

func (lx *lexer) emit(kind tokenKind, raw string) {
	lx.tokens = append(lx.tokens, token{kind: kind, raw: raw})
}

func (lx *lexer) peek(offset int) byte {
	if lx.pos+offset >= len(lx.input) {
		return 0
	}
	return lx.input[lx.pos+offset]
}

func (lx *lexer) pair(second byte, kind tokenKind, raw string) error {
	if lx.peek(1) != second {
		return fmt.Errorf("unexpected %q; use %q", lx.input[lx.pos], raw)
	}
	lx.pos += 2
	lx.emit(kind, raw)
	return nil
}

func (lx *lexer) step() error {
	ch := lx.input[lx.pos]
	switch {
	case isSpace(ch):
		lx.pos++
		return nil
	case ch == '(':
		lx.pos++
		lx.emit(tokenLParen, "(")
		return nil
	case ch == ')':
		lx.pos++
		lx.emit(tokenRParen, ")")
		return nil
	case ch == '!' && lx.peek(1) == '=':
		lx.pos += 2
		lx.emit(tokenNeq, "!=")
		return nil
	case ch == '!':
		lx.pos++
		lx.emit(tokenNot, "!")
		return nil
	case ch == '=':
		return lx.pair('=', tokenEq, "==")
	case ch == '&':
		return lx.pair('&', tokenAnd, "&&")
	case ch == '|':
		return lx.pair('|', tokenOr, "||")
	case ch == '`':
		end := strings.IndexByte(lx.input[lx.pos+1:], '`')
		if end < 0 {
			return errors.New("unterminated quoted identifier")
		}
		name := strings.TrimSpace(lx.input[lx.pos+1 : lx.pos+1+end])
		if name == "" {
			return errors.New("empty quoted identifier")
		}
		lx.pos += end + 2
		lx.emit(tokenIdentifier, name)
		return nil
	case ch == '"' || ch == '\'':
		return lx.quoted(ch)
	default:
		lx.word()
		return nil
	}
}

func (lx *lexer) quoted(quote byte) error {
	start := lx.pos
	lx.pos++
	escaped := false
	for lx.pos < len(lx.input) {
		c := lx.input[lx.pos]
		lx.pos++
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == quote:
			body := lx.input[start+1 : lx.pos-1]
			if quote == '\'' {
				body = strings.ReplaceAll(body, `\'`, `'`)
				body = strings.ReplaceAll(body, `"`, `\"`)
			}
			value, err := strconv.Unquote(`"` + body + `"`)
			if err != nil {
				return fmt.Errorf("invalid string literal: %w", err)
			}
			lx.emit(tokenString, value)
			return nil
		}
	}
	return errors.New("unterminated string literal")
}

func (lx *lexer) word() {
	start := lx.pos
	for lx.pos < len(lx.input) && !isDelimiter(lx.input[lx.pos]) {
		lx.pos++
	}
	raw := lx.input[start:lx.pos]
	switch strings.ToLower(raw) {
	case "true", "false":
		lx.emit(tokenBool, strings.ToLower(raw))
	case "null", "nil":
		lx.emit(tokenNull, "null")
	default:
		if looksLikeNumber(raw) {
			lx.emit(tokenNumber, raw)
			return
		}
		lx.emit(tokenIdentifier, raw)
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDelimiter(c byte) bool {
	return isSpace(c) || strings.IndexByte("()!=&|`\"'", c) >= 0
}

func looksLikeNumber(raw string) bool {
	_, err := strconv.ParseFloat(raw, 64)
	return err == nil
}

type exprOr struct{ left, right Node }

func (n exprOr) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || ok {
		return ok, err
	}
	return n.right.eval(ctx)
}

type exprAnd struct{ left, right Node }

func (n exprAnd) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || !ok {
		return false, err
	}
	return n.right.eval(ctx)
}

type exprNot struct{ inner Node }

func (n exprNot) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.inner.eval(ctx)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

type exprTruthy struct{ identifier string }

func (n exprTruthy) eval(ctx visibility.Context) (bool, error) {
	value, _ := lookup(ctx, n.identifier)
	return truthy(value), nil
}

type exprCompare struct {
	identifier string
	negate     bool
	literal    token
}

func (n exprCompare) eval(ctx visibility.Context) (bool, error) {
	value, _ := lookup(ctx, n.identifier)
	equal, err := matches(value, n.literal)
	if err != nil {
		return false, err
	}
	return equal != n.negate, nil
}

// matches compares a looked-up value against a literal. Lists match when any
// item does.
func matches(value any, lit token) (bool, error) {
	if items, ok := value.([]string); ok {
		if lit.kind == tokenNull {
			return len(items) == 0, nil
		}
		for _, item := range items {
			ok, err := matches(item, lit)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}

	text := coerceString(value)
	switch lit.kind {
	case tokenNull:
		return strings.TrimSpace(text) == "", nil
	case tokenBool:
		got, err := strconv.ParseBool(strings.TrimSpace(text))
		if err != nil {
			got = truthy(value)
		}
		return got == (lit.raw == "true"), nil
	case tokenNumber:
		want, err := strconv.ParseFloat(lit.raw, 64)
		if err != nil {
			return false, fmt.Errorf("invalid number literal %q", lit.raw)
		}
		got, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			got = 0
		}
		return got == want, nil
	default:
		return text == lit.raw, nil
	}
}

type tokenStream struct {
	tokens []token
	pos    int
}

func parseOr(stream *tokenStream) (Node, error) {
	left, err := parseAnd(stream)
	if err != nil {
		return nil, err
	}
	for stream.match(tokenOr) {
		right, err := parseAnd(stream)
		if err != nil {
			return nil, err
		}
		left = exprOr{left: left, right: right}
	}
	return left, nil
}

func parseAnd(stream *tokenStream) (Node, error) {
	left, err := parseUnary(stream)
	if err != nil {
		return nil, err
	}
	for stream.match(tokenAnd) {
		right, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		left = exprAnd{left: left, right: right}
	}
	return left, nil
}

func parseUnary(stream *tokenStream) (Node, error) {
	if stream.match(tokenNot) {
		inner, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		return exprNot{inner: inner}, nil
	}
	return parsePrimary(stream)
}

func parsePrimary(stream *tokenStream) (Node, error) {
	if stream.match(tokenLParen) {
		inner, err := parseOr(stream)
		if err != nil {
			return nil, err
		}
		if !stream.match(tokenRParen) {
			return nil, errors.New("missing closing ')'")
		}
		return inner, nil
	}

	ident, ok := stream.next()
	if !ok {
		return nil, errors.New("unexpected end of expression")
	}
	if ident.kind != tokenIdentifier {
		return nil, fmt.Errorf("expected field name, got %q", ident.raw)
	}

	switch {
	case stream.match(tokenEq):
		lit, err := stream.literal()
		if err != nil {
			return nil, err
		}
		return exprCompare{identifier: ident.raw, literal: lit}, nil
	case stream.match(tokenNeq):
		lit, err := stream.literal()
		if err != nil {
			return nil, err
		}
		return exprCompare{identifier: ident.raw, negate: true, literal: lit}, nil
	default:
		return exprTruthy{identifier: ident.raw}, nil
	}
}

func (s *tokenStream) match(kind tokenKind) bool {
	if s.pos >= len(s.tokens) || s.tokens[s.pos].kind != kind {
		return false
	}
	s.pos++
	return true
}

func (s *tokenStream) next() (token, bool) {
	if s.pos >= len(s.tokens) {
		return token{}, false
	}
	tok := s.tokens[s.pos]
	s.pos++
	return tok, true
}

func (s *tokenStream) literal() (token, error) {
	tok, ok := s.next()
	if !ok {
		return token{}, errors.New("missing literal")
	}
	switch tok.kind {
	case tokenString, tokenNumber, tokenBool, tokenNull:
		return tok, nil
	case tokenIdentifier:
		// bare words compare as strings
		return token{kind: tokenString, raw: tok.raw}, nil
	default:
		return token{}, fmt.Errorf("expected literal, got %q", tok.raw)
	}
}

func lookup(ctx visibility.Context, key string) (any, bool) {
	if rest, ok := cutPrefixFold(key, "extras."); ok {
		v, ok := ctx.Extras[strings.TrimSpace(rest)]
		return v, ok
	}
	v, ok := ctx.Values[key]
	return v, ok
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		v = strings.TrimSpace(v)
		return v != "" && v != "0" && !strings.EqualFold(v, "false")
	case []string:
		return len(v) > 0
	default:
		return true
	}
}

func coerceString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(value)
	}
}
