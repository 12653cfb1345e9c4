package protocol

import "golang.org/x/exp/constraints"

// WordWidth is the width in bits of one transport word.
type WordWidth uint8

const (
	Width8  WordWidth = 8
	Width16 WordWidth = 16
)

// SMI opcodes as they sit in bits 0-1 of the device-channel word. The PIO
// program shifts the word out LSB first, so the clause-22 wire opcodes
// (read = 10, write = 01) appear bit-swapped here.
const (
	SMIOpRead  uint32 = 0b01
	SMIOpWrite uint32 = 0b10

	smiPhyShift   = 2
	smiRegShift   = 7
	smiWriteFlag  = 1 << 12
	smiDataShift  = 13
	smiFieldMask  = 0x1F
	smiMaxAddress = 31
)

// PackWords concatenates consecutive narrow transport words into 32-bit
// payload words. Word i occupies the low bits of a slot and word i+1 the next
// higher bits, so four bytes or two half-words fill one slot. It returns the
// packed payload and the number of slots that received at least one word.
func PackWords(words []uint16, width WordWidth) (payload [PayloadWords]uint32, n uint8) {
	perSlot := 32 / int(width)
	mask := uint32(1)<<width - 1
	for i, w := range words {
		slot := i / perSlot
		if slot >= PayloadWords {
			break
		}
		payload[slot] |= (uint32(w) & mask) << (uint(i%perSlot) * uint(width))
		n = uint8(slot + 1)
	}
	return payload, n
}

// SumChecksum is the wrapping byte sum used as the transport checksum.
func SumChecksum(data []byte) uint8 {
	var sum uint8
	for _, b := range data {
		sum += b
	}
	return sum
}

// EncodeSMIRead builds the device-channel word for a clause-22 register read.
func EncodeSMIRead(phy, reg uint8) uint32 {
	return SMIOpRead |
		uint32(reverseBits(uint32(phy&smiFieldMask), 5))<<smiPhyShift |
		uint32(reverseBits(uint32(reg&smiFieldMask), 5))<<smiRegShift
}

// EncodeSMIWrite builds the device-channel word for a clause-22 register
// write. Bit 12 tells the PIO program a data phase follows; the 16 data bits
// are reversed into bits 13-28 for the same LSB-first shift reason as the
// address fields.
func EncodeSMIWrite(phy, reg uint8, data uint16) uint32 {
	return SMIOpWrite |
		uint32(reverseBits(uint32(phy&smiFieldMask), 5))<<smiPhyShift |
		uint32(reverseBits(uint32(reg&smiFieldMask), 5))<<smiRegShift |
		smiWriteFlag |
		reverseBits(uint32(data), 16)<<smiDataShift
}

// DecodeSMI recovers the fields packed by EncodeSMIRead or EncodeSMIWrite.
// data is zero for read words.
func DecodeSMI(word uint32) (op uint32, phy, reg uint8, data uint16) {
	op = word & 0b11
	phy = uint8(reverseBits((word>>smiPhyShift)&smiFieldMask, 5))
	reg = uint8(reverseBits((word>>smiRegShift)&smiFieldMask, 5))
	if word&smiWriteFlag != 0 {
		data = uint16(reverseBits((word>>smiDataShift)&0xFFFF, 16))
	}
	return op, phy, reg, data
}

// SMIReadData extracts the register value from a word the PIO program pushed
// after a read transaction.
func SMIReadData(word uint32) uint16 {
	return uint16(word & 0xFFFF)
}

// reverseBits reverses the low n bits of v.
func reverseBits(v uint32, n uint) uint32 {
	var r uint32
	for i := uint(0); i < n; i++ {
		r = r<<1 | (v>>i)&1
	}
	return r
}

// Clamp bounds v to [lo, hi]
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
