// Package protocol implements the host-facing request/response protocol of the
// bridge: console and SPI frame parsing, request validation, response
// collection and the SMI word codec.
package protocol

// Version represents the bridge firmware version
const Version = "0.1.0"

// Protocol constants
const (
	PayloadWords = 4  // Maximum number of 32-bit payload words in a request
	ConsoleLine  = 64 // Console scratch line size (bytes)
	ConsoleArgs  = 6  // Maximum whitespace-separated console tokens

	FrameBytes8  = 18 // SPI request frame length in 8-bit word mode
	FrameWords16 = 9  // SPI request frame length in 16-bit word mode
	ReplyBytes   = 18 // SPI reply frame buffer length
)

// Interface selects the device channel a request is routed to.
type Interface uint8

const (
	InterfaceNone Interface = iota
	InterfaceSMI
	InterfaceJTAG
	InterfaceI2C
	InterfaceSPI
	InterfaceConfig
	InterfaceGPIO
)

var interfaceNames = [...]string{"None", "SMI", "JTAG", "I2C", "SPI", "Config", "GPIO"}

func (i Interface) String() string {
	if int(i) < len(interfaceNames) {
		return interfaceNames[i]
	}
	return "Unknown"
}

// Operation is the action requested on the selected interface.
type Operation uint8

const (
	OpNone Operation = iota
	OpRead
	OpWrite
	OpSet
	OpGet
)

var operationNames = [...]string{"None", "Read", "Write", "Set", "Get"}

func (o Operation) String() string {
	if int(o) < len(operationNames) {
		return operationNames[o]
	}
	return "Unknown"
}

// HostConfig records which transport a request arrived on, so the reply can
// be routed back to it.
type HostConfig uint8

const (
	HostNone HostConfig = iota
	HostSerial
	HostUART
	HostSPI
)

func (h HostConfig) String() string {
	switch h {
	case HostSerial:
		return "Serial"
	case HostUART:
		return "UART"
	case HostSPI:
		return "SPI"
	default:
		return "None"
	}
}

// ParseInterface decodes the 3-bit interface field of an SPI frame header.
func ParseInterface(v uint8) (Interface, error) {
	if v > uint8(InterfaceGPIO) {
		return InterfaceNone, InvalidInterface
	}
	return Interface(v), nil
}

// ParseOperation decodes the 3-bit operation field of an SPI frame header.
func ParseOperation(v uint8) (Operation, error) {
	if v > uint8(OpGet) {
		return OpNone, InvalidOperation
	}
	return Operation(v), nil
}
