package rom

import (
	"bytes"
	"strings"
	"testing"
)

// TestImageIndexing verifies bank<<12|pc addressing and the zero default.
func TestImageIndexing(t *testing.T) {
	var img Image
	img.Set(0, 0x123, 0x19A)
	img.Set(1, 0x456, 0x003)
	if img.At(0, 0x123) != 0x19A {
		t.Errorf("bank 0: got 0x%03X", img.At(0, 0x123))
	}
	if img.At(1, 0x456) != 0x003 {
		t.Errorf("bank 1: got 0x%03X", img.At(1, 0x456))
	}
	if img.Word(0x1456) != 0x003 {
		t.Errorf("flat index: got 0x%03X", img.Word(0x1456))
	}
	if img.At(1, 0x123) != 0 {
		t.Error("unwritten word not zero")
	}
}

// TestWriteBankLittleEndian verifies byte order and size of the binary
// bank output.
func TestWriteBankLittleEndian(t *testing.T) {
	var img Image
	img.Set(0, 0, 0x19A)
	img.Set(0, 0xFFF, 0x230)

	var buf bytes.Buffer
	if err := img.WriteBank(&buf, 0); err != nil {
		t.Fatal(err)
	}
	b := buf.Bytes()
	if len(b) != 2*BankWords {
		t.Fatalf("bank size %d, want %d", len(b), 2*BankWords)
	}
	if b[0] != 0x9A || b[1] != 0x01 {
		t.Errorf("word 0 bytes = %02X %02X, want 9A 01", b[0], b[1])
	}
	if b[2*0xFFF] != 0x30 || b[2*0xFFF+1] != 0x02 {
		t.Errorf("word FFF bytes = %02X %02X, want 30 02", b[2*0xFFF], b[2*0xFFF+1])
	}
}

// TestWriteROMText verifies the octal address:word line format.
func TestWriteROMText(t *testing.T) {
	var img Image
	img.Set(0, 8, 0o1234)

	var buf bytes.Buffer
	if err := img.WriteROMText(&buf); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != Words {
		t.Fatalf("%d lines, want %d", len(lines), Words)
	}
	if lines[0] != "00000:00000" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[8] != "00010:01234" {
		t.Errorf("line 8 = %q", lines[8])
	}
}

// TestWriteCHeader verifies the declaration shape, group headers, line
// grouping and the missing trailing comma.
func TestWriteCHeader(t *testing.T) {
	var img Image
	var buf bytes.Buffer
	if err := img.WriteCHeader(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "int fw_rom[] = {\n") {
		t.Error("missing declaration head")
	}
	if !strings.HasSuffix(out, "};\n") {
		t.Error("missing declaration tail")
	}
	if n := strings.Count(out, "// bank"); n != 8 {
		t.Errorf("%d group headers, want 8", n)
	}
	if strings.Contains(out, "00000,\n};") {
		t.Error("trailing comma on last value")
	}
	if !strings.Contains(out, "00000, 00000, 00000, 00000, 00000, 00000, 00000, 00000,\n") {
		t.Error("missing 8-word line grouping")
	}
}

// TestMirror verifies shadow-region copying and the non-empty check.
func TestMirror(t *testing.T) {
	var img Image
	img.Set(0, 0x010, 0x0AA)
	img.Set(0, 0x900, 0x0BB)
	img.Set(1, 0x500, 0x0CC) // real bank-1 region, untouched

	if err := img.Mirror(); err != nil {
		t.Fatal(err)
	}
	if img.At(1, 0x010) != 0x0AA || img.At(1, 0x900) != 0x0BB {
		t.Error("shadow regions not copied from bank 0")
	}
	if img.At(1, 0x500) != 0x0CC {
		t.Error("real bank-1 region clobbered")
	}

	var bad Image
	bad.Set(1, 0x200, 1)
	if err := bad.Mirror(); err == nil {
		t.Error("non-empty shadow region not rejected")
	}
}

// TestListingFormat spot-checks the listing field layout.
func TestListingFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewListing(&buf)
	l.Code(0, 0, "", -1, 0, "nop", "")
	l.Code(0, 0x050, "start:", 0x0F4, 0x003, "go to far", "# long jump")
	l.Label(1, 0x400, "entry:", "")
	l.Comment("# pure comment")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if !strings.HasPrefix(lines[0], "0000 ") || !strings.Contains(lines[0], "000 nop") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.Contains(lines[1], "0050 start:") ||
		!strings.Contains(lines[1], "0F4 003 go to far") ||
		!strings.Contains(lines[1], "# long jump") {
		t.Errorf("line 1 = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "1400 entry:") {
		t.Errorf("line 2 = %q", lines[2])
	}
	if lines[3] != "# pure comment" {
		t.Errorf("line 3 = %q", lines[3])
	}
}
