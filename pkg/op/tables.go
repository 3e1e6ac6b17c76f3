package op

import (
	"fmt"
	"strings"
)

// miscTable is one ordered mnemonic table for a single 4-bit line of the
// misc class. Several lines carry two tables (verbose and terse spellings)
// that encode identically; attempt order over miscTables resolves the
// overlaps between them.
type miscTable struct {
	line    int
	ifThen  bool // every op in this table is an "if" conditional
	phrases [16]string
}

// The p-register set/test encodings are scrambled and contain duplicates.
// First-wins: assembling picks the earlier column, the later one is only
// reachable by decoding a pre-existing word.
var (
	pSetMap  = [16]int{14, 4, 7, 8, 11, 2, 10, 12, 1, 3, 13, 6, 0, 9, 5, 14}
	pTestMap = [16]int{4, 8, 12, 2, 9, 1, 6, 3, 1, 13, 5, 0, 11, 10, 7, 4}
)

// miscTables holds every misc table in attempt order. The order is load
// bearing: "data register n -> c" and "c -> data register n" must be tried
// before the line-C tables so that "c -> data register 5" is not consumed
// as "c -> data" with garbage left over, and verbose spellings come before
// their terse aliases.
var miscTables []miscTable

// miscGroup0 and friends are the op-per-column lines.
var miscGroup0Verbose = miscTable{line: 0x0, phrases: [16]string{
	0:  "nop",
	1:  "return",
	13: "hi i'm woodstock",
}}

var miscGroup0Terse = miscTable{line: 0x0, phrases: [16]string{
	1: "rtn",
}}

var miscGroup5 = miscTable{line: 0x5, phrases: [16]string{
	0:  "c -> stack",
	1:  "stack -> a",
	2:  "down rotate",
	3:  "m1 -> c",
	4:  "c -> m1",
	5:  "m1 exchange c",
	6:  "m2 -> c",
	7:  "c -> m2",
	8:  "m2 exchange c",
	9:  "f -> a",
	10: "f exchange a",
	11: "clear registers",
	12: "clear status",
	13: "y -> a",
}}

var miscGroup6 = miscTable{line: 0x6, phrases: [16]string{
	0:  "display off",
	1:  "display toggle",
	2:  "binary",
	3:  "decimal",
	4:  "rotate a left",
	5:  "p - 1 -> p",
	6:  "p + 1 -> p",
	7:  "keys -> rom address",
	8:  "keys -> a",
	9:  "a -> rom address",
	10: "display reset twf",
}}

var miscGroupCVerbose = miscTable{line: 0xC, phrases: [16]string{
	0: "clear data registers",
	1: "c -> data address",
	4: "rom checksum",
	8: "bank switch",
}}

var miscGroupCTerse = miscTable{line: 0xC, phrases: [16]string{
	1: "c -> dadd",
	2: "c -> data",
	3: "data -> c",
}}

// numbered builds a 16-column table whose mnemonics embed the column value
// through format, e.g. "1 -> s %d".
func numbered(line int, ifThen bool, format string) miscTable {
	t := miscTable{line: line, ifThen: ifThen}
	for n := 0; n < 16; n++ {
		t.phrases[n] = fmt.Sprintf(format, n)
	}
	return t
}

// mapped builds a 16-column table whose embedded value comes from a
// scrambled column map.
func mapped(line int, ifThen bool, format string, m [16]int) miscTable {
	t := miscTable{line: line, ifThen: ifThen}
	for n := 0; n < 16; n++ {
		t.phrases[n] = fmt.Sprintf(format, m[n])
	}
	return t
}

func init() {
	miscTables = []miscTable{
		numbered(0xE, false, "data register %d -> c"),
		numbered(0xA, false, "c -> data register %d"),
		miscGroupCVerbose,
		miscGroupCTerse,
		miscGroup0Verbose,
		miscGroup0Terse,
		numbered(0x1, false, "1 -> s %d"),
		numbered(0x2, true, "if 1 = s %d"),
		numbered(0x3, false, "0 -> s %d"),
		numbered(0x4, true, "if 0 = s %d"),
		miscGroup5,
		miscGroup6,
		numbered(0x7, false, "load constant %d"),
		numbered(LineSelRom, false, "select rom %d"),
		numbered(LineSelRom, false, "sel rom %d"),
		mapped(0x9, true, "if p # %d", pTestMap),
		mapped(0xB, true, "if p = %d", pTestMap),
		numbered(LineDelSelRom, false, "delayed select rom %d"),
		numbered(LineDelSelRom, false, "del sel rom %d"),
		mapped(0xF, false, "%d -> p", pSetMap),
	}
}

// arithOp is one row of the arithmetic skeleton. The "[f]" marker in the
// phrase sits on the token that carries the field selector in source text,
// e.g. "a + c -> c[w]". carry marks templates whose result can borrow or
// carry, arming "if n/c go to".
type arithOp struct {
	phrase string
	carry  bool
}

// arithSkeleton lists the 32 templates in encoding order (the index is the
// 5-bit column field). Columns 22..27 are the "if" conditionals.
var arithSkeleton = [32]arithOp{
	{"0 -> a[f]", false},
	{"0 -> b[f]", false},
	{"a <-> b[f]", false},
	{"a -> b[f]", false},
	{"a <-> c[f]", false},
	{"c -> a[f]", false},
	{"b -> c[f]", false},
	{"b <-> c[f]", false},
	{"0 -> c[f]", false},
	{"a + b -> a[f]", true},
	{"a + c -> a[f]", true},
	{"c + c -> c[f]", true},
	{"a + c -> c[f]", true},
	{"a + 1 -> a[f]", true},
	{"shift left a[f]", false},
	{"c + 1 -> c[f]", true},
	{"a - b -> a[f]", true},
	{"a - c -> c[f]", true},
	{"a - 1 -> a[f]", true},
	{"c - 1 -> c[f]", true},
	{"0 - c -> c[f]", true},
	{"0 - c - 1 -> c[f]", true},
	{"if b[f] = 0", true},
	{"if c[f] = 0", true},
	{"if a >= c[f]", true},
	{"if a >= b[f]", true},
	{"if a[f] # 0", true},
	{"if c[f] # 0", true},
	{"a - c -> a[f]", true},
	{"shift right a[f]", false},
	{"shift right b[f]", false},
	{"shift right c[f]", false},
}

// expandArith substitutes a concrete field selector into a skeleton phrase.
func expandArith(phrase, tef string) string {
	return strings.Replace(phrase, "[f]", "["+tef+"]", 1)
}

// BranchKind distinguishes the five branch mnemonics.
type BranchKind int

const (
	BranchThenGoto BranchKind = iota
	BranchIfNC
	BranchGoto
	BranchJsb
	BranchIfNoCarry // spelling alias of "if n/c go to" without the cy check
)

// branchTable lists the five branch spellings. Phrases are matched from the
// first token, and no spelling is a prefix of another, so "go to" never
// matches a "then go to" line.
var branchTable = []struct {
	phrase string
	kind   BranchKind
}{
	{"then go to", BranchThenGoto},
	{"if n/c go to", BranchIfNC},
	{"go to", BranchGoto},
	{"jsb", BranchJsb},
	{"if no carry go to", BranchIfNoCarry},
}
