package protocol

import "testing"

func TestDecodeFrame8(t *testing.T) {
	frame := EncodeFrame(InterfaceSMI, OpRead, []uint32{0, 2}, Width8)
	if len(frame) != FrameBytes8 {
		t.Fatalf("Expected %d byte frame, got %d", FrameBytes8, len(frame))
	}

	req, computed, err := DecodeFrame(frame, Width8)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	if computed != uint8(frame[1]) {
		t.Errorf("Expected computed checksum %d to match header %d", computed, frame[1])
	}
	clean, err := req.InitClean()
	if err != nil {
		t.Fatalf("InitClean failed: %v", err)
	}
	if clean.Payload()[0] != EncodeSMIRead(0, 2) {
		t.Errorf("Expected SMI read word, got 0x%08X", clean.Payload()[0])
	}
}

func TestDecodeFrame16(t *testing.T) {
	frame := EncodeFrame(InterfaceSMI, OpWrite, []uint32{3, 4, 0xBEEF}, Width16)
	if len(frame) != FrameWords16 {
		t.Fatalf("Expected %d word frame, got %d", FrameWords16, len(frame))
	}
	if frame[1] != 3 || frame[2] != 0 || frame[5] != 0xBEEF {
		t.Errorf("Unexpected 16-bit payload layout: %v", frame)
	}

	req, _, err := DecodeFrame(frame, Width16)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	clean, err := req.InitClean()
	if err != nil {
		t.Fatalf("InitClean failed: %v", err)
	}
	_, phy, reg, data := DecodeSMI(clean.Payload()[0])
	if phy != 3 || reg != 4 || data != 0xBEEF {
		t.Errorf("Expected 3/4/0xBEEF, got %d/%d/0x%X", phy, reg, data)
	}
}

func TestDecodeFrameUndefinedInterface(t *testing.T) {
	frame := make([]uint16, FrameBytes8)
	frame[0] = 0b111_001_01 // interface 7, read, size 2
	_, _, err := DecodeFrame(frame, Width8)
	if err != InvalidInterface {
		t.Errorf("Expected InvalidInterface, got %v", err)
	}
}

func TestDecodeFrameUndefinedOperation(t *testing.T) {
	frame := make([]uint16, FrameWords16)
	frame[0] = uint16(InterfaceSMI)<<13 | 6<<10
	_, _, err := DecodeFrame(frame, Width16)
	if err != InvalidOperation {
		t.Errorf("Expected InvalidOperation, got %v", err)
	}
}

func TestDecodeFrameShort(t *testing.T) {
	if _, _, err := DecodeFrame([]uint16{0x20}, Width8); CodeOf(err) != InvalidArguments {
		t.Errorf("Expected InvalidArguments for a truncated header, got %v", err)
	}
}

func TestEncodeReplyFrame(t *testing.T) {
	pending := PendingResponse{procID: 9, host: HostSPI}
	ready, _ := pending.InitReady(0xA1B2C3D4)

	buf := EncodeReplyFrame(ready)
	want := []byte{9, 0xA1, 0xB2, 0xC3, 0xD4}
	for i, b := range want {
		if buf[i] != b {
			t.Errorf("Byte %d: expected 0x%02X, got 0x%02X", i, b, buf[i])
		}
	}
	for i := len(want); i < len(buf); i++ {
		if buf[i] != 0 {
			t.Errorf("Byte %d should be zero, got 0x%02X", i, buf[i])
		}
	}
}

func TestFormatReply(t *testing.T) {
	pending := PendingResponse{procID: 12}
	ready, _ := pending.InitReady(0x796D)
	if got := FormatReply(ready); got != "12: 0x0000796D\r\n" {
		t.Errorf("Unexpected reply text %q", got)
	}
}
