package protocol

import "sync/atomic"

// FifoBuffer is a single-producer, single-consumer byte ring used between a
// transport's receive interrupt (Write) and the task that assembles command
// lines (Read). One slot is kept empty to tell full from empty.
type FifoBuffer struct {
	buf   []byte
	read  atomic.Uint32
	write atomic.Uint32
	size  uint32
}

// NewFifoBuffer creates a new FifoBuffer holding up to capacity-1 bytes
func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{
		buf:  make([]byte, capacity),
		size: uint32(capacity),
	}
}

// Write appends data and returns how many bytes fit. Producer side only.
func (f *FifoBuffer) Write(data []byte) int {
	wr := f.write.Load()
	rd := f.read.Load()
	written := 0
	for _, b := range data {
		next := (wr + 1) % f.size
		if next == rd {
			// Buffer full
			break
		}
		f.buf[wr] = b
		wr = next
		written++
	}
	f.write.Store(wr)
	return written
}

// Read copies up to len(data) bytes out. Consumer side only.
func (f *FifoBuffer) Read(data []byte) int {
	rd := f.read.Load()
	wr := f.write.Load()
	read := 0
	for i := range data {
		if rd == wr {
			break
		}
		data[i] = f.buf[rd]
		rd = (rd + 1) % f.size
		read++
	}
	f.read.Store(rd)
	return read
}

// Available returns the number of bytes available for reading
func (f *FifoBuffer) Available() int {
	rd := f.read.Load()
	wr := f.write.Load()
	if wr >= rd {
		return int(wr - rd)
	}
	return int(f.size - rd + wr)
}

// Free returns the number of bytes available for writing
func (f *FifoBuffer) Free() int {
	return int(f.size) - f.Available() - 1
}

// IsEmpty returns true if the buffer is empty
func (f *FifoBuffer) IsEmpty() bool {
	return f.read.Load() == f.write.Load()
}

// Reset clears the buffer. Only safe while the producer is quiet.
func (f *FifoBuffer) Reset() {
	f.read.Store(0)
	f.write.Store(0)
}

// LineBuffer is the fixed scratch buffer a console command is typed into.
type LineBuffer struct {
	buf [ConsoleLine]byte
	pos int
}

// Append adds a byte. When the buffer is already full it is cleared instead
// and Append returns false; the partial command is lost.
func (l *LineBuffer) Append(b byte) bool {
	if l.pos >= len(l.buf) {
		l.Reset()
		return false
	}
	l.buf[l.pos] = b
	l.pos++
	return true
}

// Backspace drops the last byte, reporting whether there was one.
func (l *LineBuffer) Backspace() bool {
	if l.pos == 0 {
		return false
	}
	l.pos--
	return true
}

// Bytes returns the line typed so far. The slice is only valid until the
// next Append or Reset.
func (l *LineBuffer) Bytes() []byte {
	return l.buf[:l.pos]
}

// Len returns the number of buffered bytes
func (l *LineBuffer) Len() int {
	return l.pos
}

// Reset clears the buffer
func (l *LineBuffer) Reset() {
	l.pos = 0
}
