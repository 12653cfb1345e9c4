package protocol

// Code is a short diagnostic identifier. It is comparable, allocation-free,
// implements error, and its text is what gets written back to the host.
type Code string

func (c Code) Error() string { return string(c) }

const (
	OK                  Code = "Ok"
	InvalidInterface    Code = "Invalid interface"
	InvalidOperation    Code = "Invalid operation"
	InvalidArguments    Code = "Invalid arguments"
	NoInterfaceSelected Code = "No interface selected"
	TooManyArguments    Code = "Too many arguments"
	QueueFull           Code = "Queue full"
	Consumed            Code = "Already consumed"
	ChecksumMismatch    Code = "Checksum mismatch"
	UnknownCommand      Code = "Unknown command"
	SpuriousCompletion  Code = "Spurious completion"
	ReplyDropped        Code = "Reply dropped"
	NoDeviceData        Code = "No device data"
)

// ArgumentError is InvalidArguments with the "<interface>: <op>" context that
// was being validated.
type ArgumentError struct {
	Context string
}

func (e *ArgumentError) Error() string {
	return string(InvalidArguments) + "(" + e.Context + ")"
}

func (e *ArgumentError) Code() Code { return InvalidArguments }
func (e *ArgumentError) Unwrap() error { return InvalidArguments }

func invalidArguments(iface Interface, op Operation) error {
	return &ArgumentError{Context: iface.String() + ": " + op.String()}
}

// CodeOf extracts a Code from an error. Unrecognized errors map to
// UnknownCommand; nil maps to OK.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return UnknownCommand
}
