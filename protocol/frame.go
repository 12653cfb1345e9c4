package protocol

// SPI request frame header layout (16 bits; in 8-bit mode bytes 0 and 1
// form the header, most significant first):
//
//	15..13 interface   12..10 operation   9..8 size-1   7..0 checksum
const (
	headerIfaceShift = 13
	headerOpShift    = 10
	headerSizeShift  = 8
	headerFieldMask  = 0x7
	headerSizeMask   = 0x3
	headerSumMask    = 0xFF
)

// FrameLen returns the number of transport words in a request frame.
func FrameLen(width WordWidth) int {
	if width == Width16 {
		return FrameWords16
	}
	return FrameBytes8
}

// DecodeFrame turns an SPI request frame into an Unclean request. Undefined
// interface or operation codes fail here, before validation is attempted.
// The payload checksum is returned alongside so the caller can decide what to
// do with a mismatch.
func DecodeFrame(words []uint16, width WordWidth) (req *HostRequest, computed uint8, err error) {
	headerWords := 1
	if width == Width8 {
		headerWords = 2
	}
	if len(words) < headerWords {
		return nil, 0, InvalidArguments
	}
	var header uint16
	if width == Width8 {
		header = (words[0]&0xFF)<<8 | words[1]&0xFF
	} else {
		header = words[0]
	}

	iface, err := ParseInterface(uint8(header>>headerIfaceShift) & headerFieldMask)
	if err != nil {
		return nil, 0, err
	}
	op, err := ParseOperation(uint8(header>>headerOpShift) & headerFieldMask)
	if err != nil {
		return nil, 0, err
	}
	size := uint8(header>>headerSizeShift)&headerSizeMask + 1

	body := words[headerWords:]
	payload, _ := PackWords(body, width)

	req = NewHostRequest()
	req.SetInterface(iface)
	req.SetOperation(op)
	req.SetSize(size)
	req.SetPayload(payload)
	req.SetChecksum(uint8(header & headerSumMask))
	return req, frameChecksum(body, width), nil
}

// HeaderChecksum returns the checksum the sender put in the frame header.
func HeaderChecksum(words []uint16, width WordWidth) uint8 {
	if width == Width8 {
		if len(words) < 2 {
			return 0
		}
		return uint8(words[1])
	}
	if len(words) < 1 {
		return 0
	}
	return uint8(words[0] & headerSumMask)
}

// EncodeFrameHeader builds the 16-bit header word for a request frame.
func EncodeFrameHeader(iface Interface, op Operation, size uint8, checksum uint8) uint16 {
	size = Clamp(size, 1, PayloadWords)
	return uint16(iface&headerFieldMask)<<headerIfaceShift |
		uint16(op&headerFieldMask)<<headerOpShift |
		uint16(size-1)<<headerSizeShift |
		uint16(checksum)
}

// EncodeFrame builds a complete request frame the way an SPI master sends
// it, with the checksum computed over the payload bytes.
func EncodeFrame(iface Interface, op Operation, payload []uint32, width WordWidth) []uint16 {
	frame := make([]uint16, FrameLen(width))
	headerWords := 1
	if width == Width8 {
		headerWords = 2
	}
	perSlot := 32 / int(width)
	mask := uint32(1)<<width - 1
	body := frame[headerWords:]
	for i, p := range payload {
		if i >= PayloadWords {
			break
		}
		for j := 0; j < perSlot; j++ {
			body[i*perSlot+j] = uint16(p >> (uint(j) * uint(width)) & mask)
		}
	}
	header := EncodeFrameHeader(iface, op, uint8(len(payload)), frameChecksum(body, width))
	if width == Width8 {
		frame[0] = header >> 8
		frame[1] = header & 0xFF
	} else {
		frame[0] = header
	}
	return frame
}

// frameChecksum sums the payload bytes of a frame body, low byte first for
// 16-bit words.
func frameChecksum(body []uint16, width WordWidth) uint8 {
	var buf [2 * FrameBytes8]byte
	n := 0
	for _, w := range body {
		if n >= len(buf)-1 {
			break
		}
		buf[n] = byte(w)
		n++
		if width == Width16 {
			buf[n] = byte(w >> 8)
			n++
		}
	}
	return SumChecksum(buf[:n])
}

// EncodeReplyFrame builds the SPI reply: byte 0 is the proc id and bytes 1-4
// hold the first payload word, most significant byte first.
func EncodeReplyFrame(r ReadyResponse) [ReplyBytes]byte {
	var buf [ReplyBytes]byte
	w := r.Word()
	buf[0] = r.ProcID()
	buf[1] = byte(w >> 24)
	buf[2] = byte(w >> 16)
	buf[3] = byte(w >> 8)
	buf[4] = byte(w)
	return buf
}

// FormatReply renders a response for a text transport as
// "<proc id>: 0x<8 hex digits>\r\n".
func FormatReply(r ReadyResponse) string {
	return Utoa(uint32(r.ProcID())) + ": " + Hex32(r.Word()) + "\r\n"
}
