package protocol

// requestFields is the storage shared by both request states.
type requestFields struct {
	procID    uint8
	iface     Interface
	operation Operation
	size      uint8
	payload   [PayloadWords]uint32
	checksum  uint8
	host      HostConfig
}

// HostRequest is a request in the Unclean state: all fields are settable and
// nothing has been validated. It becomes a CleanRequest exactly once, through
// InitClean.
type HostRequest struct {
	f        requestFields
	consumed bool
}

// NewHostRequest creates an empty Unclean request
func NewHostRequest() *HostRequest {
	return &HostRequest{}
}

func (r *HostRequest) SetProcID(id uint8) { r.f.procID = id }
func (r *HostRequest) SetInterface(i Interface) { r.f.iface = i }
func (r *HostRequest) SetOperation(op Operation) { r.f.operation = op }
func (r *HostRequest) SetChecksum(sum uint8) { r.f.checksum = sum }
func (r *HostRequest) SetHostConfig(h HostConfig) { r.f.host = h }
func (r *HostRequest) SetPayload(p [PayloadWords]uint32) { r.f.payload = p }

// SetSize sets the number of valid payload words, clamped to PayloadWords.
func (r *HostRequest) SetSize(size uint8) {
	r.f.size = Clamp(size, 0, PayloadWords)
}

// SetWord sets a single payload word; out of range indexes are ignored.
func (r *HostRequest) SetWord(i int, v uint32) {
	if i >= 0 && i < PayloadWords {
		r.f.payload[i] = v
	}
}

// InitClean validates the request for its interface and, on success, moves
// its contents into a CleanRequest. The HostRequest is spent afterwards
// whether or not validation succeeded; calling InitClean again returns
// Consumed.
func (r *HostRequest) InitClean() (CleanRequest, error) {
	if r.consumed {
		return CleanRequest{}, Consumed
	}
	f := r.f
	r.f = requestFields{}
	r.consumed = true

	switch f.iface {
	case InterfaceNone:
		return CleanRequest{}, NoInterfaceSelected
	case InterfaceSMI:
		if err := cleanSMI(&f); err != nil {
			return CleanRequest{}, err
		}
	case InterfaceConfig:
		// Only Set exists; the code must map to a divisor the PIO accepts
		if f.operation != OpSet {
			return CleanRequest{}, InvalidOperation
		}
		if f.size == 0 {
			return CleanRequest{}, invalidArguments(f.iface, f.operation)
		}
		if _, ok := ClockDivisorFor(f.payload[0]); !ok {
			return CleanRequest{}, invalidArguments(f.iface, f.operation)
		}
	case InterfaceGPIO:
		if f.size != 1 {
			return CleanRequest{}, invalidArguments(f.iface, f.operation)
		}
	default:
		// JTAG, I2C and SPI device channels are reserved.
		return CleanRequest{}, InvalidInterface
	}
	return CleanRequest{f: f}, nil
}

// cleanSMI collapses the PHY/register(/data) words into the single
// device-channel word.
func cleanSMI(f *requestFields) error {
	switch f.operation {
	case OpRead:
		if f.size != 2 || f.payload[0] > smiMaxAddress || f.payload[1] > smiMaxAddress {
			return invalidArguments(f.iface, f.operation)
		}
		f.payload = [PayloadWords]uint32{EncodeSMIRead(uint8(f.payload[0]), uint8(f.payload[1]))}
	case OpWrite:
		if f.size != 3 || f.payload[0] > smiMaxAddress || f.payload[1] > smiMaxAddress || f.payload[2] > 0xFFFF {
			return invalidArguments(f.iface, f.operation)
		}
		f.payload = [PayloadWords]uint32{EncodeSMIWrite(uint8(f.payload[0]), uint8(f.payload[1]), uint16(f.payload[2]))}
	default:
		return InvalidOperation
	}
	f.size = 1
	return nil
}

// CleanRequest is a validated, read-only request. Only InitClean produces a
// meaningful value; it is handed to a device channel once and then dropped.
type CleanRequest struct {
	f requestFields
}

func (c CleanRequest) ProcID() uint8 { return c.f.procID }
func (c CleanRequest) Interface() Interface { return c.f.iface }
func (c CleanRequest) Operation() Operation { return c.f.operation }
func (c CleanRequest) Size() uint8 { return c.f.size }
func (c CleanRequest) Payload() [PayloadWords]uint32 { return c.f.payload }
func (c CleanRequest) Checksum() uint8 { return c.f.checksum }
func (c CleanRequest) HostConfig() HostConfig { return c.f.host }

// ExpectsReply reports whether dispatching the request produces a device
// reply that must be collected and routed back.
func (c CleanRequest) ExpectsReply() bool {
	return c.f.iface == InterfaceSMI && c.f.operation == OpRead
}
