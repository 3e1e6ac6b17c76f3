package asm

import (
	"fmt"
	"strconv"
	"strings"
)

// ppFrame is one level of the conditional-assembly stack. active means
// output is enabled at this level; seenTrue locks out later #elif/#else
// branches once one sibling has matched.
type ppFrame struct {
	active   bool
	seenTrue bool
}

// preprocessor evaluates #define and the #if family. Its state is rebuilt
// every pass because the source is re-scanned from the top.
type preprocessor struct {
	defines map[string]int
	stack   []ppFrame
}

func (p *preprocessor) reset() {
	p.defines = make(map[string]int)
	p.stack = p.stack[:0]
}

// active reports whether output is currently enabled: every open frame
// must be active.
func (p *preprocessor) active() bool {
	for _, f := range p.stack {
		if !f.active {
			return false
		}
	}
	return true
}

// parentActive is the activity of the stack excluding the top frame; it
// decides whether #elif/#else branches are eligible at all.
func (p *preprocessor) parentActive() bool {
	for _, f := range p.stack[:len(p.stack)-1] {
		if !f.active {
			return false
		}
	}
	return true
}

// directive handles one #-line. tokens[0] is the directive itself; a
// trailing "#" or "//" token starts a comment.
func (p *preprocessor) directive(tokens []string) error {
	args := cutComment(tokens[1:])
	switch tokens[0] {
	case "#define":
		if !p.active() {
			return nil
		}
		if len(args) != 2 {
			return fmt.Errorf("#define needs a name and a value")
		}
		if _, dup := p.defines[args[0]]; dup {
			return fmt.Errorf("#define %s: already defined", args[0])
		}
		v, err := strconv.ParseInt(args[1], 0, 64)
		if err != nil {
			return fmt.Errorf("#define %s: bad value %q", args[0], args[1])
		}
		p.defines[args[0]] = int(v)
	case "#if":
		cond := false
		if p.active() {
			v, err := p.evalExpr(args)
			if err != nil {
				return err
			}
			cond = v
		}
		p.stack = append(p.stack, ppFrame{active: cond, seenTrue: cond})
	case "#ifdef", "#ifndef":
		if len(args) != 1 {
			return fmt.Errorf("%s needs a single name", tokens[0])
		}
		cond := false
		if p.active() {
			_, defined := p.defines[args[0]]
			cond = defined == (tokens[0] == "#ifdef")
		}
		p.stack = append(p.stack, ppFrame{active: cond, seenTrue: cond})
	case "#elif":
		if len(p.stack) == 0 {
			return fmt.Errorf("#elif without #if")
		}
		top := &p.stack[len(p.stack)-1]
		top.active = false
		if p.parentActive() && !top.seenTrue {
			v, err := p.evalExpr(args)
			if err != nil {
				return err
			}
			if v {
				top.active = true
				top.seenTrue = true
			}
		}
	case "#else":
		if len(p.stack) == 0 {
			return fmt.Errorf("#else without #if")
		}
		top := &p.stack[len(p.stack)-1]
		top.active = p.parentActive() && !top.seenTrue
		top.seenTrue = true
	case "#endif":
		if len(p.stack) == 0 {
			return fmt.Errorf("#endif without #if")
		}
		p.stack = p.stack[:len(p.stack)-1]
	case "#error":
		if !p.active() {
			return nil
		}
		return fmt.Errorf("#error %s", strings.Join(args, " "))
	default:
		return fmt.Errorf("unknown directive %s", tokens[0])
	}
	return nil
}

// term resolves an expression term: an integer literal or a defined name.
// Undefined names evaluate to 0.
func (p *preprocessor) term(tok string) (int, error) {
	if v, err := strconv.ParseInt(tok, 0, 64); err == nil {
		return int(v), nil
	}
	if !isName(tok) {
		return 0, fmt.Errorf("bad term %q", tok)
	}
	return p.defines[tok], nil
}

// evalExpr evaluates the single-operator expression grammar:
// TERM, or TERM OP TERM with OP in == != > >= < <= && ||.
// A single term is truthy when > 0; && and || are bitwise AND/OR
// followed by the same > 0 test.
func (p *preprocessor) evalExpr(tokens []string) (bool, error) {
	switch len(tokens) {
	case 1:
		v, err := p.term(tokens[0])
		if err != nil {
			return false, err
		}
		return v > 0, nil
	case 3:
		a, err := p.term(tokens[0])
		if err != nil {
			return false, err
		}
		b, err := p.term(tokens[2])
		if err != nil {
			return false, err
		}
		switch tokens[1] {
		case "==":
			return a == b, nil
		case "!=":
			return a != b, nil
		case ">":
			return a > b, nil
		case ">=":
			return a >= b, nil
		case "<":
			return a < b, nil
		case "<=":
			return a <= b, nil
		case "&&":
			return a&b > 0, nil
		case "||":
			return a|b > 0, nil
		default:
			return false, fmt.Errorf("bad operator %q", tokens[1])
		}
	default:
		return false, fmt.Errorf("bad conditional expression %q", strings.Join(tokens, " "))
	}
}

// cutComment drops everything from the first comment token on.
func cutComment(tokens []string) []string {
	for i, t := range tokens {
		if strings.HasPrefix(t, "#") || strings.HasPrefix(t, "//") {
			return tokens[:i]
		}
	}
	return tokens
}

func isName(tok string) bool {
	for i, r := range tok {
		switch {
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '_' || r == '.':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return len(tok) > 0
}
