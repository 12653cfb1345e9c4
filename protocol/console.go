package protocol

import (
	"bytes"

	"github.com/google/shlex"
)

// CommandKind tells the caller what a console line asked for.
type CommandKind uint8

const (
	KindEmpty   CommandKind = iota // Blank line, nothing to do
	KindMenu                       // Print MenuBanner
	KindStats                      // Print pipeline counters
	KindRequest                    // Request holds an Unclean request
)

// MenuBanner is printed in response to menu/m/M.
const MenuBanner = "\r\n" +
	"pico-bridge " + Version + "\r\n" +
	"  smi r <phy> <reg>         read a PHY register\r\n" +
	"  smi w <phy> <reg> <data>  write a PHY register\r\n" +
	"  clk <code>                set MDC clock (2500=2.5MHz, 10000=10MHz, else raw divisor)\r\n" +
	"  gpio <0|1>                drive the GPIO output pin\r\n" +
	"  stat                      pipeline counters\r\n" +
	"  menu                      this text\r\n" +
	"numbers are decimal or 0x-prefixed hex\r\n"

// ConsoleCommand is the result of parsing one console line.
type ConsoleCommand struct {
	Kind    CommandKind
	Request *HostRequest
}

// ParseConsole tokenizes a console line of the form
// "<interface> <op> [args...]" and builds an Unclean request from it. The
// request still has to pass InitClean; argument counts are checked there.
func ParseConsole(line []byte) (ConsoleCommand, error) {
	words := bytes.Fields(line)
	if len(words) == 0 {
		return ConsoleCommand{Kind: KindEmpty}, nil
	}
	if len(words) > ConsoleArgs {
		return ConsoleCommand{}, TooManyArguments
	}
	tokens := consoleTokens(line, words)

	var (
		iface Interface
		op    Operation
		args  []string
	)
	switch tokens[0] {
	case "menu", "m", "M":
		return ConsoleCommand{Kind: KindMenu}, nil
	case "stat", "STAT":
		return ConsoleCommand{Kind: KindStats}, nil
	case "smi", "SMI":
		iface = InterfaceSMI
		if len(tokens) < 2 {
			return ConsoleCommand{}, InvalidOperation
		}
		switch tokens[1] {
		case "r", "R":
			op = OpRead
		case "w", "W":
			op = OpWrite
		default:
			return ConsoleCommand{}, InvalidOperation
		}
		args = tokens[2:]
	case "clk", "CLK":
		iface, op = InterfaceConfig, OpSet
		args = tokens[1:]
	case "gpio", "GPIO":
		iface, op = InterfaceGPIO, OpWrite
		args = tokens[1:]
	default:
		return ConsoleCommand{}, InvalidInterface
	}

	if len(args) > PayloadWords {
		return ConsoleCommand{}, invalidArguments(iface, op)
	}
	req := NewHostRequest()
	req.SetInterface(iface)
	req.SetOperation(op)
	for i, a := range args {
		v, ok := ParseNumber(a)
		if !ok {
			return ConsoleCommand{}, invalidArguments(iface, op)
		}
		req.SetWord(i, v)
	}
	req.SetSize(uint8(len(args)))
	req.SetChecksum(SumChecksum(line))
	return ConsoleCommand{Kind: KindRequest, Request: req}, nil
}

// consoleTokens splits a line into its whitespace-separated words. Quotes,
// '#' and backslashes have no meaning on the console, so if shlex would group,
// drop or escape anything the raw words are returned instead.
func consoleTokens(line []byte, words [][]byte) []string {
	tokens, err := shlex.Split(string(line))
	if err == nil && len(tokens) == len(words) {
		same := true
		for i, w := range words {
			if tokens[i] != string(w) {
				same = false
				break
			}
		}
		if same {
			return tokens
		}
	}
	tokens = make([]string, len(words))
	for i, w := range words {
		tokens[i] = string(w)
	}
	return tokens
}

// ParseNumber parses a decimal or 0x-prefixed hexadecimal 32-bit value.
func ParseNumber(s string) (uint32, bool) {
	base := uint64(10)
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base = 16
		s = s[2:]
	}
	if len(s) == 0 {
		return 0, false
	}
	var v uint64
	for i := 0; i < len(s); i++ {
		d, ok := digitValue(s[i])
		if !ok || uint64(d) >= base {
			return 0, false
		}
		v = v*base + uint64(d)
		if v > 0xFFFFFFFF {
			return 0, false
		}
	}
	return uint32(v), true
}

func digitValue(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
