package asm

import (
	"strings"

	"github.com/golang/glog"
	"github.com/kjellc/asm67/pkg/op"
	"github.com/kjellc/asm67/pkg/rom"
)

// Pass-0 placeholder words for branches whose target is not yet known.
const (
	defaultGotoWord = 0x003
	defaultJsbWord  = 0x001
)

func (a *Assembler) advance(n int) {
	a.pc = (a.pc + n) & 0xFFF
}

// emit writes the line's word (and optional delayed-select-rom prefix) to
// the ROM and listing on the final pass, and advances the PC on every
// pass. prefix is -1 when the line emits a single word.
func (a *Assembler) emit(label string, prefix int, word uint16, mnemonic, comment string) {
	if a.final() {
		if prefix >= 0 {
			a.img.Set(a.bank, a.pc, uint16(prefix))
			a.img.Set(a.bank, (a.pc+1)&0xFFF, word)
		} else {
			a.img.Set(a.bank, a.pc, word)
		}
		a.list.Code(a.bank, a.pc, label, prefix, word, mnemonic, comment)
	}
	if prefix >= 0 {
		a.advance(2)
	} else {
		a.advance(1)
	}
}

// encodeLine handles one active, non-preprocessor source line.
func (a *Assembler) encodeLine(raw string) error {
	tokens := strings.Fields(raw)
	if len(tokens) == 0 || isCommentTok(tokens[0]) {
		if a.final() {
			a.list.Comment(raw)
		}
		return nil
	}

	// Opcode hints hand-copied from an old listing: up to two 3-digit hex
	// tokens (prefix word plus main word), ignored.
	for i := 0; i < 2 && len(tokens) > 0 && isHexHint(tokens[0]); i++ {
		tokens = tokens[1:]
	}

	label := ""
	if len(tokens) > 0 && strings.HasSuffix(tokens[0], ":") {
		label = tokens[0]
		if err := a.defineLabel(label); err != nil {
			return err
		}
		tokens = tokens[1:]
	}
	if len(tokens) == 0 || isCommentTok(tokens[0]) {
		if a.final() {
			if label != "" {
				a.list.Label(a.bank, a.pc, label, strings.Join(tokens, " "))
			} else {
				a.list.Comment(raw)
			}
		}
		return nil
	}

	head := strings.ToLower(tokens[0])
	if head == "org" {
		return a.doOrg(tokens, raw)
	}
	if head == "bank" && len(tokens) >= 2 {
		if v, ok := parseNumber(tokens[1]); ok {
			a.bank = 0
			if v != 0 {
				a.bank = 1
			}
			if a.final() {
				a.list.Comment(raw)
			}
			return nil
		}
	}
	if head == "public" {
		return a.doPublic(tokens, raw)
	}
	if matchWords(tokens, "delayed select rom auto") {
		a.delRomForce = 2
		if a.final() {
			a.list.Comment(raw)
		}
		return nil
	}

	if kind, consumed, ok := op.MatchBranch(tokens); ok {
		return a.encodeBranch(kind, tokens, consumed, label)
	}
	if hit, ok := op.MatchMisc(tokens); ok {
		return a.encodeMisc(hit, tokens, label)
	}
	arithToks := tokens
	if len(tokens) > 1 && strings.EqualFold(tokens[1], "exchange") {
		arithToks = append([]string{tokens[0], "<->"}, tokens[2:]...)
	}
	if hit, ok := op.MatchArith(arithToks); ok {
		a.cy = hit.Carry
		if hit.IfThen {
			a.ifthen = true
		}
		a.emit(label, -1, hit.Word,
			strings.Join(tokens[:hit.Consumed], " "),
			strings.Join(tokens[hit.Consumed:], " "))
		return nil
	}

	if a.final() {
		return a.fatalf("unknown mnemonic %q", strings.Join(tokens, " "))
	}
	a.advance(1)
	return nil
}

// matchWords reports whether the phrase exactly covers the leading tokens.
func matchWords(tokens []string, phrase string) bool {
	words := strings.Fields(phrase)
	if len(tokens) < len(words) {
		return false
	}
	for i, w := range words {
		if !strings.EqualFold(tokens[i], w) {
			return false
		}
	}
	return true
}

// defineLabel records or corrects a label at the current PC and updates
// the local-label scope.
func (a *Assembler) defineLabel(label string) error {
	if a.pass == passDiscover {
		if err := a.syms.add(label, a.pc, a.bank, a.lastGlobal); err != nil {
			return a.fatalf("%v", err)
		}
	} else {
		changed, err := a.syms.correct(label, a.pc, a.bank, a.lastGlobal)
		if err != nil {
			return a.fatalf("%v", err)
		}
		if changed {
			a.deltaLabels = true
			glog.V(2).Infof("label %s moved to %X%03X", label, a.bank, a.pc)
		}
	}
	name := strings.TrimSuffix(label, ":")
	if !strings.HasPrefix(name, ".") {
		a.lastGlobal = name
	}
	return nil
}

func (a *Assembler) doOrg(tokens []string, raw string) error {
	if len(tokens) < 2 {
		return a.fatalf("org needs an address")
	}
	addr, ok := parseNumber(tokens[1])
	if !ok {
		return a.fatalf("org: bad address %q", tokens[1])
	}
	if (addr>>12)&1 != a.bank {
		return a.fatalf("org 0x%04X does not match bank %d", addr, a.bank)
	}
	target := addr & 0xFFF
	if a.final() {
		if a.pc > target {
			return a.fatalf("org 0x%03X is behind the current pc 0x%03X", target, a.pc)
		}
		if a.pc < target && !(a.bank == 1 && target == 0x400) {
			a.infof("%d empty words before org 0x%03X", target-a.pc, target)
		}
		a.list.Comment(raw)
	}
	a.pc = target
	return nil
}

func (a *Assembler) doPublic(tokens []string, raw string) error {
	if len(tokens) < 2 {
		return a.fatalf("public needs a label")
	}
	if a.final() {
		full, ok := a.syms.findFull(tokens[1], a.lastGlobal)
		if !ok {
			return a.fatalf("public label %q not defined", tokens[1])
		}
		if a.opt.Publics != nil {
			if err := rom.WritePublic(a.opt.Publics, tokens[1], full>>12, full&0xFFF); err != nil {
				return a.fatalf("writing publics: %v", err)
			}
		}
		a.list.Comment(raw)
	}
	return nil
}

// encodeMisc emits a misc-class word and applies its side effects: the
// conditional flag, the manual delayed-select-rom prefix, and the
// final-pass continuation checks behind "bank switch" and "select rom".
func (a *Assembler) encodeMisc(hit op.MiscHit, tokens []string, label string) error {
	if hit.IfThen {
		a.ifthen = true
	}

	// The operand slot after the phrase holds the continuation label of
	// "bank switch" and "select rom"; anything opening a comment is not
	// an operand.
	labelArg := ""
	if rest := tokens[hit.Consumed:]; len(rest) > 0 && !isCommentTok(rest[0]) {
		labelArg = rest[0]
	}

	stmtEnd := hit.Consumed
	if hit.Word == op.OpBankSwitch {
		if labelArg != "" {
			stmtEnd++
		}
		if a.final() {
			if labelArg == "" {
				a.warnf("bank switch without a following label")
			} else {
				dest, ok := a.syms.find(labelArg, a.lastGlobal)
				if !ok {
					return a.fatalf("label %q not defined", labelArg)
				}
				if dest != (a.pc+1)&0xFFF {
					return a.fatalf("bank switch continues at 0x%03X but %q is 0x%03X",
						(a.pc+1)&0xFFF, labelArg, dest)
				}
			}
		}
	} else if n, ok := op.IsDelSelRom(hit.Word); ok {
		a.delRomForce = 1
		a.delRomForceRom = n
	} else if n, ok := op.IsSelRom(hit.Word); ok {
		if labelArg != "" {
			stmtEnd++
		}
		if a.final() {
			if labelArg == "" {
				a.warnf("select rom %d without a following label", n)
			} else {
				dest, ok := a.syms.find(labelArg, a.lastGlobal)
				if !ok {
					return a.fatalf("label %q not defined", labelArg)
				}
				want := n<<8 | (a.pc&0xFF + 1)
				if dest != want {
					return a.fatalf("select rom %d continues at 0x%03X but %q is 0x%03X",
						n, want, labelArg, dest)
				}
			}
		}
	}

	a.emit(label, -1, hit.Word,
		strings.Join(tokens[:stmtEnd], " "),
		strings.Join(tokens[stmtEnd:], " "))
	return nil
}

// branchTarget resolves a branch operand to a 12-bit in-bank address.
// "$" operands are literal: their low byte lands in the current ROM group,
// or in the forced group when a delayed-select-rom prefix is in effect.
// A label that is still unknown is tolerated (known=false) on every pass
// but the final one, where it is fatal.
func (a *Assembler) branchTarget(operand string) (int, bool, error) {
	if strings.HasPrefix(operand, "$") {
		v, ok := parseNumber(operand)
		if !ok {
			return 0, false, a.fatalf("bad direct offset %q", operand)
		}
		if a.delRomForce != 0 {
			return a.delRomForceRom<<8 | v&0xFF, true, nil
		}
		return a.pc&0xF00 | v&0xFF, true, nil
	}
	dest, ok := a.syms.find(operand, a.lastGlobal)
	if !ok {
		if a.final() {
			return 0, false, a.fatalf("label %q not defined", operand)
		}
		return 0, false, nil
	}
	return dest, true, nil
}

func (a *Assembler) encodeBranch(kind op.BranchKind, tokens []string, consumed int, label string) error {
	if len(tokens) <= consumed || isCommentTok(tokens[consumed]) {
		return a.fatalf("%s needs a target", strings.Join(tokens[:consumed], " "))
	}
	operand := tokens[consumed]
	mnem := strings.Join(tokens[:consumed+1], " ")
	comment := strings.Join(tokens[consumed+1:], " ")

	switch kind {
	case op.BranchThenGoto:
		if a.final() && !a.ifthen {
			return a.fatalf("then go to without if")
		}
		a.ifthen = false
		dest, known, err := a.branchTarget(operand)
		if err != nil {
			return err
		}
		if !known {
			a.emit(label, -1, 0x000, mnem, comment)
			return nil
		}
		dist := dest - a.pc&0xC00
		if dist < 0 || dist > 0x3FF {
			if a.final() {
				return a.fatalf("then go to target 0x%03X out of reach", dest)
			}
			dist &= 0x3FF
		}
		a.emit(label, -1, uint16(dist), mnem, comment)
		return nil

	case op.BranchIfNC, op.BranchIfNoCarry:
		if kind == op.BranchIfNC && a.final() && !a.cy {
			return a.fatalf("if n/c go to without CY operation")
		}
		a.cy = false
		dest, known, err := a.branchTarget(operand)
		if err != nil {
			return err
		}
		if !known {
			a.emit(label, -1, defaultGotoWord, mnem, comment)
			return nil
		}
		if a.final() && a.pc&0xFF == 0xFF && a.delRomForce == 0 {
			return a.fatalf("if n/c go to not allowed on last word in ROM")
		}
		var dist int
		if a.delRomForce == 1 {
			if a.final() && a.delRomForceRom != dest>>8 {
				return a.fatalf("del sel rom %d does not match target 0x%03X", a.delRomForceRom, dest)
			}
			dist = dest & 0xFF
		} else {
			dist = dest - a.pc&0xF00
			if dist < 0 || dist > 0xFF {
				if a.final() {
					return a.fatalf("%s target 0x%03X outside ROM group", mnem, dest)
				}
				dist &= 0xFF
			}
		}
		a.emit(label, -1, op.GotoWord(dist), mnem, comment)
		return nil

	default: // go to, jsb
		name := "go to"
		word := op.GotoWord
		dflt := uint16(defaultGotoWord)
		if kind == op.BranchJsb {
			name = "jsb"
			word = op.JsbWord
			dflt = defaultJsbWord
		}
		a.cy = false
		dest, known, err := a.branchTarget(operand)
		if err != nil {
			return err
		}
		force, forceRom := a.delRomForce, a.delRomForceRom
		a.delRomForce = 0
		if !known {
			a.emit(label, -1, dflt, mnem, comment)
			return nil
		}
		if a.final() && a.pc&0xFF == 0xFF && force == 0 {
			return a.fatalf("%s not allowed on last word in ROM", name)
		}
		switch {
		case force == 1:
			if a.final() && forceRom != dest>>8 {
				return a.fatalf("del sel rom %d does not match %s target 0x%03X", forceRom, name, dest)
			}
			a.emit(label, -1, word(dest&0xFF), mnem, comment)
		case dest&0xF00 == a.pc&0xF00:
			a.emit(label, -1, word(dest-a.pc&0xF00), mnem, comment)
		default:
			if force == 0 && a.final() {
				a.infof("inserted del sel rom %d for %s %s", dest>>8, name, operand)
			}
			a.emit(label, int(op.DelSelRomWord(dest>>8)), word(dest&0xFF), mnem, comment)
		}
		return nil
	}
}
