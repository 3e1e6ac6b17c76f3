package asm

import (
	"strings"

	"github.com/golang/glog"
	"github.com/kjellc/asm67/pkg/rom"
)

// Assemble runs the discovery pass, iterates fixpoint passes until label
// addresses stop moving, then runs the final pass that reports every
// error and writes the ROM, listing and publics.
func (a *Assembler) Assemble() (*rom.Image, error) {
	if err := a.runPass(passDiscover); err != nil {
		return nil, err
	}
	for i := 1; ; i++ {
		if i > maxFixpointPasses {
			return nil, a.fatalf("internal error: label addresses still moving after %d passes", maxFixpointPasses)
		}
		if err := a.runPass(passFixpoint); err != nil {
			return nil, err
		}
		glog.V(1).Infof("pass %d: labels moved = %v", i, a.deltaLabels)
		if !a.deltaLabels {
			break
		}
	}
	if err := a.runPass(passFinal); err != nil {
		return nil, err
	}
	return a.img, nil
}

func (a *Assembler) runPass(pass passKind) error {
	a.resetPass(pass)
	for i, line := range a.lines {
		a.lineNo = i + 1
		a.lineText = line
		if err := a.processLine(line); err != nil {
			return err
		}
	}
	if len(a.pre.stack) != 0 {
		return a.fatalf("missing #endif at end of input")
	}
	return nil
}

// processLine routes one source line: column-0 "#" lines go to the
// preprocessor, inactive regions and comments are only echoed, everything
// else reaches the encoder.
func (a *Assembler) processLine(line string) error {
	if strings.HasPrefix(line, "#") {
		tokens := strings.Fields(line)
		if tokens[0] == "#" {
			// bare "#" opens a full-line comment, not a directive
			if a.final() {
				a.list.Comment(line)
			}
			return nil
		}
		if err := a.pre.directive(tokens); err != nil {
			return a.fatalf("%v", err)
		}
		if a.final() {
			a.list.Comment(line)
		}
		return nil
	}
	if strings.HasPrefix(line, "//") {
		if a.final() {
			a.list.Comment(line)
		}
		return nil
	}
	if !a.pre.active() {
		if a.final() {
			a.list.Comment(line)
		}
		return nil
	}
	return a.encodeLine(line)
}
