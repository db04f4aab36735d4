package validator

import (
	"fmt"
	"strings"
	"unicode"
)

// Matchers understood by the engine's rule syntax, with their exact argument count.
// Multi-value forms such as Host(`a`, `b`) must be written as Host(`a`) || Host(`b`).
var knownMatchers = map[string]int{
	"Host":         1,
	"HostRegexp":   1,
	"Path":         1,
	"PathPrefix":   1,
	"PathRegexp":   1,
	"Method":       1,
	"Header":       2,
	"HeaderRegexp": 2,
	"Query":        1,
	"QueryRegexp":  1,
	"ClientIP":     1,
}

// ParseRule checks a router rule expression. It returns the matchers used, in order,
// or the first syntax error found.
//
//	expr    = and { "||" and }
//	and     = unary { "&&" unary }
//	unary   = "!" unary | "(" expr ")" | matcher
//	matcher = Name "(" arg { "," arg } ")"
func ParseRule(rule string) ([]string, error) {
	if strings.TrimSpace(rule) == "" {
		return nil, fmt.Errorf("is required")
	}
	p := &ruleParser{src: rule}
	if err := p.expr(); err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, p.errorf("unexpected %q", p.rest())
	}
	if len(p.matchers) == 0 {
		return nil, fmt.Errorf("must contain at least one matcher")
	}
	return p.matchers, nil
}

type ruleParser struct {
	src      string
	pos      int
	matchers []string
}

func (p *ruleParser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("invalid rule at position %d: %s", p.pos+1, fmt.Sprintf(format, args...))
}

func (p *ruleParser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *ruleParser) rest() string {
	r := p.src[p.pos:]
	if len(r) > 20 {
		r = r[:20] + "..."
	}
	return r
}

func (p *ruleParser) skipSpace() {
	for !p.eof() && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *ruleParser) consume(tok string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *ruleParser) expr() error {
	if err := p.and(); err != nil {
		return err
	}
	for p.consume("||") {
		if err := p.and(); err != nil {
			return err
		}
	}
	return nil
}

func (p *ruleParser) and() error {
	if err := p.unary(); err != nil {
		return err
	}
	for p.consume("&&") {
		if err := p.unary(); err != nil {
			return err
		}
	}
	return nil
}

func (p *ruleParser) unary() error {
	p.skipSpace()
	if p.eof() {
		return p.errorf("missing operand")
	}
	switch {
	case p.consume("!"):
		return p.unary()
	case p.consume("("):
		if err := p.expr(); err != nil {
			return err
		}
		if !p.consume(")") {
			return p.errorf("unbalanced parentheses")
		}
		return nil
	}
	return p.matcher()
}

func (p *ruleParser) matcher() error {
	start := p.pos
	for !p.eof() && isIdentChar(p.src[p.pos]) {
		p.pos++
	}
	name := p.src[start:p.pos]
	if name == "" {
		if strings.HasPrefix(p.src[p.pos:], "&&") || strings.HasPrefix(p.src[p.pos:], "||") || p.src[p.pos] == ')' {
			return p.errorf("missing operand")
		}
		return p.errorf("expected matcher, found %q", p.rest())
	}
	arity, ok := knownMatchers[name]
	if !ok {
		p.pos = start
		return p.errorf("unknown matcher %q", name)
	}
	if !p.consume("(") {
		return p.errorf("expected '(' after %s", name)
	}

	args := 0
	for {
		if err := p.arg(name); err != nil {
			return err
		}
		args++
		if p.consume(",") {
			continue
		}
		if p.consume(")") {
			break
		}
		return p.errorf("unbalanced parentheses in %s", name)
	}
	if args < arity {
		return p.errorf("%s requires %d arguments", name, arity)
	}
	if args > arity {
		return p.errorf("%s accepts %d argument(s), got %d", name, arity, args)
	}
	p.matchers = append(p.matchers, name)
	return nil
}

// arg accepts a backtick or double-quoted string, or a bare value such as example.com
func (p *ruleParser) arg(matcher string) error {
	p.skipSpace()
	if p.eof() {
		return p.errorf("unterminated %s", matcher)
	}
	switch quote := p.src[p.pos]; quote {
	case '`', '"':
		end := strings.IndexByte(p.src[p.pos+1:], quote)
		if end < 0 {
			return p.errorf("unbalanced quote in %s", matcher)
		}
		if end == 0 {
			return p.errorf("empty argument in %s", matcher)
		}
		p.pos += end + 2
		return nil
	}
	start := p.pos
	for !p.eof() {
		c := p.src[p.pos]
		if c == ',' || c == ')' {
			break
		}
		if c == '(' || c == '`' || c == '"' {
			return p.errorf("unexpected %q in %s argument", c, matcher)
		}
		p.pos++
	}
	if strings.TrimSpace(p.src[start:p.pos]) == "" {
		return p.errorf("empty argument in %s", matcher)
	}
	return nil
}

func isIdentChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
