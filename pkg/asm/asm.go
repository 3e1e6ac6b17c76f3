package asm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kjellc/asm67/pkg/rom"
)

// Options selects the optional output streams of one assembly run.
type Options struct {
	Listing io.Writer // assembly listing, written on the final pass
	Publics io.Writer // #define export for "public" directives
	Diag    io.Writer // warnings and info notes; defaults to os.Stdout
}

// passKind threads the per-pass behavior through one encoder: the
// discovery pass tolerates unresolved labels, fixpoint passes re-encode
// until label addresses stop moving, and the final pass reports every
// error and writes the artifacts.
type passKind int

const (
	passDiscover passKind = iota
	passFixpoint
	passFinal
)

// maxFixpointPasses bounds the label-address iteration. Prefix insertion
// only ever grows addresses, so a run that has not converged by then is an
// internal error, not a slow input.
const maxFixpointPasses = 8

// Assembler holds the source and all state of one assembly run. The
// per-pass fields are reset at the start of every pass.
type Assembler struct {
	lines []string
	opt   Options
	syms  *symTab
	pre   preprocessor
	img   *rom.Image
	list  *rom.Listing

	pass     passKind
	lineNo   int
	lineText string

	pc         int
	bank       int
	lastGlobal string

	ifthen bool // a conditional's outcome awaits "then go to"
	cy     bool // a carry-producing op awaits "if n/c go to"

	delRomForce    int // 0 none, 1 manual prefix present, 2 auto armed
	delRomForceRom int

	deltaLabels bool
}

// New reads the whole source up front; passes re-scan it from memory.
func New(src io.Reader, opt Options) (*Assembler, error) {
	if opt.Diag == nil {
		opt.Diag = os.Stdout
	}
	a := &Assembler{opt: opt, syms: newSymTab(), img: &rom.Image{}}
	sc := bufio.NewScanner(src)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)
	for sc.Scan() {
		a.lines = append(a.lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}
	return a, nil
}

// resetPass clears everything §3 lists as per-pass state.
func (a *Assembler) resetPass(pass passKind) {
	a.pass = pass
	a.pc = 0
	a.bank = 0
	a.lastGlobal = ""
	a.ifthen = false
	a.cy = false
	a.delRomForce = 0
	a.delRomForceRom = 0
	a.deltaLabels = false
	a.pre.reset()
	a.list = nil
	if pass == passFinal && a.opt.Listing != nil {
		a.list = rom.NewListing(a.opt.Listing)
	}
}

func (a *Assembler) final() bool { return a.pass == passFinal }

// infof prints an informational note; these never abort.
func (a *Assembler) infof(format string, args ...any) {
	fmt.Fprintf(a.opt.Diag, "%X%03X: info: %s\n", a.bank, a.pc&0xFFF, fmt.Sprintf(format, args...))
}

// warnf prints a warning; these never abort.
func (a *Assembler) warnf(format string, args ...any) {
	fmt.Fprintf(a.opt.Diag, "%X%03X: warning: %s\n", a.bank, a.pc&0xFFF, fmt.Sprintf(format, args...))
}

// isCommentTok reports whether a token opens a comment. Comment cutting
// must wait until after mnemonic matching: "#" is also the not-equal
// operator inside "if … # 0" and "if p # n" phrases, where the tables
// consume it.
func isCommentTok(tok string) bool {
	return strings.HasPrefix(tok, "#") || strings.HasPrefix(tok, "//")
}

// parseNumber accepts $-prefixed hex plus everything strconv takes with
// base 0 (decimal, 0x hex, 0o/leading-zero octal).
func parseNumber(tok string) (int, bool) {
	if rest, ok := strings.CutPrefix(tok, "$"); ok {
		v, err := strconv.ParseInt(rest, 16, 32)
		return int(v), err == nil
	}
	v, err := strconv.ParseInt(tok, 0, 32)
	return int(v), err == nil
}

// isHexHint recognizes the 3-digit opcode tokens hand-copied from prior
// listings; they are stripped and ignored.
func isHexHint(tok string) bool {
	if len(tok) != 3 || tok[0] < '0' || tok[0] > '3' {
		return false
	}
	for i := 1; i < 3; i++ {
		c := tok[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}
