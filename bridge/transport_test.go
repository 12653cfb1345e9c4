package bridge

import (
	"testing"

	"picobridge/protocol"
)

func TestLineAssembler(t *testing.T) {
	l := lineAssembler{echo: true}

	var lines []string
	var echoed []byte
	for _, c := range []byte("ab\x7fc\r\nxy\r") {
		echo, line, done := l.feed(c)
		echoed = append(echoed, echo...)
		if done {
			lines = append(lines, string(line))
		}
	}

	if len(lines) != 2 || lines[0] != "ac" || lines[1] != "xy" {
		t.Errorf("Expected lines [ac xy], got %q", lines)
	}
	if string(echoed) != "ab\b \bc\r\nxy\r\n" {
		t.Errorf("Unexpected echo %q", echoed)
	}
}

func TestLineAssemblerNoEcho(t *testing.T) {
	l := lineAssembler{}
	for _, c := range []byte("abc") {
		if echo, _, _ := l.feed(c); echo != nil {
			t.Errorf("Expected no echo, got %q", echo)
		}
	}
	// Backspace on an empty line echoes nothing even with echo on
	l = lineAssembler{echo: true}
	if echo, _, _ := l.feed(keyBackspace); echo != nil {
		t.Errorf("Expected no echo for backspace on empty line, got %q", echo)
	}
}

func TestLineAssemblerOverflow(t *testing.T) {
	l := lineAssembler{}
	for i := 0; i < protocol.ConsoleLine; i++ {
		l.feed('a')
	}
	// The next byte finds the buffer full and discards the line
	l.feed('b')
	_, line, done := l.feed('\r')
	if !done || len(line) != 0 {
		t.Errorf("Expected an empty line after overflow, got %q", line)
	}
}

func TestFrameWords(t *testing.T) {
	raw := []byte{0x12, 0x34, 0x56, 0x78}

	w8 := frameWords(raw, protocol.Width8, make([]uint16, 0, 4))
	if len(w8) != 4 || w8[0] != 0x12 || w8[3] != 0x78 {
		t.Errorf("Unexpected 8-bit words %v", w8)
	}

	w16 := frameWords(raw, protocol.Width16, make([]uint16, 0, 4))
	if len(w16) != 2 || w16[0] != 0x1234 || w16[1] != 0x5678 {
		t.Errorf("Unexpected 16-bit words %X", w16)
	}
}

func TestIsIdleFrame(t *testing.T) {
	if !isIdleFrame(make([]byte, 18)) {
		t.Error("Expected zero frame to be idle")
	}
	if isIdleFrame([]byte{0, 0, 1}) {
		t.Error("Expected nonzero frame not to be idle")
	}
}
