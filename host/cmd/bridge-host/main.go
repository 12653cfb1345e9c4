package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/shlex"

	"picobridge/host/client"
	"picobridge/host/serial"
	"picobridge/protocol"
)

var (
	device  = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud    = flag.Int("baud", 115200, "Baud rate (ignored for USB CDC)")
	echo    = flag.Bool("echo", true, "Firmware echoes typed characters")
	frame   = flag.Bool("frame", false, "Print SPI frames instead of talking to a device")
	width   = flag.Int("width", 8, "SPI word width for -frame (8 or 16)")
	verbose = flag.Bool("verbose", false, "Enable verbose output")
)

func main() {
	flag.Parse()

	fmt.Println("pico-bridge host " + protocol.Version)
	fmt.Println("=====================")
	fmt.Println()

	if *frame {
		w := protocol.WordWidth(*width)
		if w != protocol.Width8 && w != protocol.Width16 {
			fmt.Fprintf(os.Stderr, "Error: -width must be 8 or 16, got %d\n", *width)
			os.Exit(2)
		}
		repl(func(line string) error { return printFrame(line, w) })
		return
	}

	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud
	fmt.Printf("Connecting to bridge on %s...\n", *device)
	conn, err := client.ConnectWithConfig(cfg, *echo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()
	fmt.Println("Connected successfully!")

	repl(func(line string) error {
		reply, err := conn.Command(line)
		if err != nil {
			return err
		}
		if *verbose {
			fmt.Printf("(%d bytes)\n", len(reply))
		}
		fmt.Print(strings.ReplaceAll(reply, "\r\n", "\n"))
		return nil
	})
}

// repl feeds stdin lines to handle until quit or EOF.
func repl(handle func(line string) error) {
	fmt.Println("Enter commands (type 'menu' for the command list, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch line {
		case "quit", "exit", "q":
			fmt.Println("Goodbye!")
			return
		}
		if err := handle(line); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

// printFrame validates a console command the way the firmware does and
// prints the SPI frame an SPI master would clock in for it.
func printFrame(line string, w protocol.WordWidth) error {
	cmd, err := protocol.ParseConsole([]byte(line))
	if err != nil {
		return err
	}
	if cmd.Kind != protocol.KindRequest {
		return fmt.Errorf("%q has no SPI frame form", line)
	}
	clean, err := cmd.Request.InitClean()
	if err != nil {
		return err
	}

	tokens, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("failed to split %q: %w", line, err)
	}
	args := tokens[1:]
	if clean.Interface() == protocol.InterfaceSMI {
		args = tokens[2:]
	}
	payload := make([]uint32, 0, len(args))
	for _, a := range args {
		v, _ := protocol.ParseNumber(a)
		payload = append(payload, v)
	}

	words := protocol.EncodeFrame(clean.Interface(), clean.Operation(), payload, w)
	var sb strings.Builder
	for i, word := range words {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if w == protocol.Width16 {
			fmt.Fprintf(&sb, "%04x", word)
		} else {
			fmt.Fprintf(&sb, "%02x", word)
		}
	}
	fmt.Println(sb.String())
	return nil
}
