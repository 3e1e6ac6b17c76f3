package asm

import (
	"strings"
	"testing"
)

func runDirectives(t *testing.T, lines ...string) (*preprocessor, error) {
	t.Helper()
	p := &preprocessor{}
	p.reset()
	for _, l := range lines {
		if err := p.directive(strings.Fields(l)); err != nil {
			return p, err
		}
	}
	return p, nil
}

// TestDefine verifies insertion and the fatal redefine.
func TestDefine(t *testing.T) {
	p, err := runDirectives(t, "#define A 1", "#define B 0x10")
	if err != nil {
		t.Fatal(err)
	}
	if p.defines["A"] != 1 || p.defines["B"] != 16 {
		t.Errorf("defines = %v", p.defines)
	}
	if _, err := runDirectives(t, "#define A 1", "#define A 2"); err == nil {
		t.Error("redefine not rejected")
	}
}

// TestDefineInactive verifies #define is skipped inside a dead branch.
func TestDefineInactive(t *testing.T) {
	p, err := runDirectives(t, "#if 0", "#define A 1", "#endif", "#define A 2")
	if err != nil {
		t.Fatal(err)
	}
	if p.defines["A"] != 2 {
		t.Errorf("A = %d, want 2", p.defines["A"])
	}
}

// TestIfElifElse verifies first-true-wins across a full chain.
func TestIfElifElse(t *testing.T) {
	tests := []struct {
		name   string
		lines  []string
		active bool
	}{
		{"if taken", []string{"#define A 1", "#if A == 1"}, true},
		{"if not taken", []string{"#define A 1", "#if A == 2"}, false},
		{"elif taken", []string{"#define A 2", "#if A == 1", "#elif A == 2"}, true},
		{"elif locked out", []string{"#define A 1", "#if A == 1", "#elif 1"}, false},
		{"else taken", []string{"#if 0", "#elif 0", "#else"}, true},
		{"else locked out", []string{"#if 1", "#else"}, false},
	}
	for _, tc := range tests {
		p, err := runDirectives(t, tc.lines...)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if p.active() != tc.active {
			t.Errorf("%s: active = %v, want %v", tc.name, p.active(), tc.active)
		}
	}
}

// TestNestedConditionals verifies an inactive parent kills every nested
// branch, including #else.
func TestNestedConditionals(t *testing.T) {
	p, err := runDirectives(t, "#if 0", "#if 1", "#else")
	if err != nil {
		t.Fatal(err)
	}
	if p.active() {
		t.Error("nested #else active under a dead parent")
	}
	p, err = runDirectives(t, "#if 1", "#if 1")
	if err != nil {
		t.Fatal(err)
	}
	if !p.active() {
		t.Error("nested active chain reported inactive")
	}
}

// TestIfdefIfndef verifies membership tests against the define table.
func TestIfdefIfndef(t *testing.T) {
	p, _ := runDirectives(t, "#define A 0", "#ifdef A")
	if !p.active() {
		t.Error("#ifdef of a defined name (even 0) should be active")
	}
	p, _ = runDirectives(t, "#ifndef A")
	if !p.active() {
		t.Error("#ifndef of an undefined name should be active")
	}
	p, _ = runDirectives(t, "#define A 0", "#ifndef A")
	if p.active() {
		t.Error("#ifndef of a defined name should be inactive")
	}
}

// TestEvalExpr covers the single-operator grammar.
func TestEvalExpr(t *testing.T) {
	p := &preprocessor{}
	p.reset()
	p.defines["A"] = 5
	p.defines["Z"] = 0

	tests := []struct {
		expr string
		want bool
	}{
		{"A", true},
		{"Z", false},
		{"UNDEFINED", false}, // undefined resolves to 0
		{"A == 5", true},
		{"A != 5", false},
		{"A > 4", true},
		{"A >= 6", false},
		{"A < 6", true},
		{"A <= 4", false},
		{"A && 3", true},  // 5 & 3 = 1 > 0
		{"4 && 3", false}, // bitwise: 4 & 3 = 0
		{"Z || 0", false},
		{"Z || 2", true},
		{"A == 5 # trailing comment", true},
		{"A == 5 // trailing comment", true},
	}
	for _, tc := range tests {
		got, err := p.evalExpr(cutComment(strings.Fields(tc.expr)))
		if err != nil {
			t.Errorf("%q: %v", tc.expr, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%q = %v, want %v", tc.expr, got, tc.want)
		}
	}

	if _, err := p.evalExpr(strings.Fields("1 + 1")); err == nil {
		t.Error("unknown operator accepted")
	}
	if _, err := p.evalExpr(strings.Fields("1 == 1 == 1")); err == nil {
		t.Error("multi-operator expression accepted")
	}
}

// TestDirectiveErrors verifies the fatal directive forms.
func TestDirectiveErrors(t *testing.T) {
	bad := [][]string{
		{"#elif 1"},
		{"#else"},
		{"#endif"},
		{"#error something broke"},
		{"#pragma once"},
		{"#define A"},
		{"#define A notanumber"},
	}
	for _, lines := range bad {
		if _, err := runDirectives(t, lines...); err == nil {
			t.Errorf("%v: no error", lines)
		}
	}
	// #error inside a dead branch is inert
	if _, err := runDirectives(t, "#if 0", "#error dead"); err != nil {
		t.Errorf("#error in dead branch: %v", err)
	}
}
