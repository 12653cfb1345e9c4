package protocol

import "testing"

func TestFifoBuffer(t *testing.T) {
	fifo := NewFifoBuffer(10)

	if !fifo.IsEmpty() {
		t.Error("New FIFO should be empty")
	}

	if fifo.Available() != 0 {
		t.Errorf("Empty FIFO should have 0 available, got %d", fifo.Available())
	}

	written := fifo.Write([]byte("smi r"))
	if written != 5 {
		t.Errorf("Expected to write 5 bytes, wrote %d", written)
	}
	if fifo.Free() != 4 {
		t.Errorf("Expected 4 bytes free, got %d", fifo.Free())
	}

	readBuf := make([]byte, 3)
	read := fifo.Read(readBuf)
	if read != 3 {
		t.Errorf("Expected to read 3 bytes, read %d", read)
	}
	if string(readBuf) != "smi" {
		t.Errorf("Read data mismatch: got %q", readBuf)
	}
	if fifo.Available() != 2 {
		t.Errorf("After reading 3, expected 2 available, got %d", fifo.Available())
	}

	fifo.Reset()
	bigData := make([]byte, 12)
	written = fifo.Write(bigData)
	if written != 9 { // one slot is reserved
		t.Errorf("Expected to write 9 bytes to size-10 FIFO, wrote %d", written)
	}
}

func TestFifoBufferWrapAround(t *testing.T) {
	fifo := NewFifoBuffer(5)

	fifo.Write([]byte{1, 2, 3, 4})

	readBuf := make([]byte, 2)
	fifo.Read(readBuf)

	written := fifo.Write([]byte{5, 6})
	if written != 2 {
		t.Errorf("Expected to write 2 bytes, wrote %d", written)
	}
	if fifo.Available() != 4 {
		t.Errorf("Expected 4 bytes available after wrap, got %d", fifo.Available())
	}

	allData := make([]byte, 8)
	read := fifo.Read(allData)
	if read != 4 {
		t.Errorf("Expected to read 4 bytes, read %d", read)
	}
	if allData[0] != 3 || allData[1] != 4 || allData[2] != 5 || allData[3] != 6 {
		t.Errorf("Wrap-around data mismatch: got %v", allData[:read])
	}
	if !fifo.IsEmpty() {
		t.Error("FIFO should be empty after draining")
	}
}

func TestLineBuffer(t *testing.T) {
	var line LineBuffer

	for _, b := range []byte("smi r 0 3") {
		if !line.Append(b) {
			t.Fatalf("Append failed at %d bytes", line.Len())
		}
	}
	if !line.Backspace() {
		t.Error("Backspace on non-empty line should succeed")
	}
	line.Append('2')
	if got := string(line.Bytes()); got != "smi r 0 2" {
		t.Errorf("Expected %q, got %q", "smi r 0 2", got)
	}

	line.Reset()
	if line.Backspace() {
		t.Error("Backspace on empty line should fail")
	}
}

func TestLineBufferOverflowClears(t *testing.T) {
	var line LineBuffer
	for i := 0; i < ConsoleLine; i++ {
		line.Append('a')
	}
	if line.Len() != ConsoleLine {
		t.Fatalf("Expected full line of %d, got %d", ConsoleLine, line.Len())
	}
	if line.Append('b') {
		t.Error("Append to a full line should report false")
	}
	if line.Len() != 0 {
		t.Errorf("Full line should be cleared on overflow, has %d bytes", line.Len())
	}
}
