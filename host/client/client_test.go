package client

import (
	"bytes"
	"errors"
	"testing"
)

// fakePort answers every write with a scripted reply, delivered in small
// chunks to exercise collect.
type fakePort struct {
	written bytes.Buffer
	replies map[string]string
	pending []byte
	readErr error
	closed  bool
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.written.Write(b)
	line := string(bytes.TrimSuffix(b, []byte("\r")))
	p.pending = append(p.pending, []byte(line+"\r\n")...)
	p.pending = append(p.pending, []byte(p.replies[line])...)
	return len(b), nil
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.readErr != nil {
		return 0, p.readErr
	}
	n := copy(b[:min(len(b), 5)], p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func (p *fakePort) Flush() error {
	p.pending = nil
	return nil
}

func TestCommandStripsEcho(t *testing.T) {
	port := &fakePort{replies: map[string]string{
		"smi r 1 2": "0: 0x0000BEEF\r\n",
	}}
	c := New(port, true)

	got, err := c.ReadRegister(1, 2)
	if err != nil {
		t.Fatalf("ReadRegister failed: %v", err)
	}
	if got != "0: 0x0000BEEF\r\n" {
		t.Errorf("Expected reply line, got %q", got)
	}
	if port.written.String() != "smi r 1 2\r" {
		t.Errorf("Expected command with CR, got %q", port.written.String())
	}
}

func TestCommandKeepsEchoWhenDisabled(t *testing.T) {
	port := &fakePort{replies: map[string]string{}}
	c := New(port, false)

	got, err := c.WriteRegister(1, 2, 0xBEEF)
	if err != nil {
		t.Fatalf("WriteRegister failed: %v", err)
	}
	if got != "smi w 1 2 0xbeef\r\n" {
		t.Errorf("Expected raw output, got %q", got)
	}
}

func TestCommandEmptyReply(t *testing.T) {
	port := &fakePort{replies: map[string]string{}}
	c := New(port, true)

	got, err := c.Command("gpio 1")
	if err != nil {
		t.Fatalf("Command failed: %v", err)
	}
	if got != "" {
		t.Errorf("Expected empty reply, got %q", got)
	}
}

func TestCommandReadError(t *testing.T) {
	port := &fakePort{readErr: errors.New("unplugged")}
	c := New(port, true)

	if _, err := c.Stats(); err == nil {
		t.Error("Expected read error")
	}
}

func TestClosedClient(t *testing.T) {
	port := &fakePort{}
	c := New(port, true)
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !port.closed {
		t.Error("Expected port closed")
	}
	if _, err := c.Command("stat"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Expected second Close to be a no-op, got %v", err)
	}
}
