package bridge

import "picobridge/protocol"

// Port is the transmit side of a transport. machine.Serial and the uartx
// UARTs satisfy it on the target; tests use a bytes.Buffer.
type Port interface {
	Write(p []byte) (n int, err error)
}

const (
	keyBackspace = 0x08
	keyDelete    = 0x7f
)

var (
	echoNewline   = []byte("\r\n")
	echoBackspace = []byte("\b \b")
)

// lineAssembler turns a byte stream into console lines. Lines end at '\r';
// '\n' is ignored so CRLF terminals work. A line longer than the scratch
// buffer is discarded.
type lineAssembler struct {
	buf  protocol.LineBuffer
	echo bool
}

// feed consumes one byte. It returns the echo to send back (nil for none)
// and, when b terminated a line, the completed line. The line is only valid
// until the next call.
func (l *lineAssembler) feed(b byte) (echo []byte, line []byte, done bool) {
	switch b {
	case '\r':
		line = l.buf.Bytes()
		l.buf.Reset()
		if l.echo {
			echo = echoNewline
		}
		return echo, line, true
	case '\n':
		return nil, nil, false
	case keyBackspace, keyDelete:
		if l.buf.Backspace() && l.echo {
			echo = echoBackspace
		}
		return echo, nil, false
	}
	if !l.buf.Append(b) {
		return nil, nil, false
	}
	if l.echo {
		echo = []byte{b}
	}
	return echo, nil, false
}

// frameWords converts the raw bytes clocked in during one SPI exchange into
// transport words. In 16-bit mode each word arrives most significant byte
// first.
func frameWords(raw []byte, width protocol.WordWidth, out []uint16) []uint16 {
	out = out[:0]
	if width == protocol.Width16 {
		for i := 0; i+1 < len(raw); i += 2 {
			out = append(out, uint16(raw[i])<<8|uint16(raw[i+1]))
		}
		return out
	}
	for _, b := range raw {
		out = append(out, uint16(b))
	}
	return out
}

// isIdleFrame reports whether the master clocked in nothing but zeros,
// which it does to collect a queued reply.
func isIdleFrame(raw []byte) bool {
	for _, b := range raw {
		if b != 0 {
			return false
		}
	}
	return true
}

func writeString(p Port, s string) {
	if p == nil {
		return
	}
	p.Write([]byte(s))
}
