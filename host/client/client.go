package client

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"picobridge/host/serial"
)

// maxReply bounds how much output one command may collect
const maxReply = 4096

// ErrNotConnected is returned by commands issued before Connect
var ErrNotConnected = errors.New("not connected to bridge")

// Client drives the bridge's text console. Every command is a line
// terminated by '\r'; the reply is whatever the bridge prints until the
// port stays quiet for one read timeout.
type Client struct {
	port serial.Port
	echo bool
}

// New wraps an already open port. echo tells the client whether the
// firmware echoes typed characters so it can strip them from replies.
func New(port serial.Port, echo bool) *Client {
	return &Client{port: port, echo: echo}
}

// Connect opens device with the default console settings.
func Connect(device string, echo bool) (*Client, error) {
	return ConnectWithConfig(serial.DefaultConfig(device), echo)
}

// ConnectWithConfig opens a port with a custom serial config
func ConnectWithConfig(cfg *serial.Config, echo bool) (*Client, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	c := New(port, echo)

	// Drop any banner or stale output
	time.Sleep(100 * time.Millisecond)
	if err := port.Flush(); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to flush %s: %w", cfg.Device, err)
	}
	return c, nil
}

// Close closes the port
func (c *Client) Close() error {
	if c.port == nil {
		return nil
	}
	err := c.port.Close()
	c.port = nil
	return err
}

// Command sends one console line and returns the bridge's output with the
// echo removed. SMI writes, clock and GPIO commands print nothing on
// success, so an empty reply is normal.
func (c *Client) Command(line string) (string, error) {
	if c.port == nil {
		return "", ErrNotConnected
	}
	if _, err := c.port.Write([]byte(line + "\r")); err != nil {
		return "", fmt.Errorf("failed to send %q: %w", line, err)
	}
	out, err := c.collect()
	if err != nil {
		return "", fmt.Errorf("failed to read reply to %q: %w", line, err)
	}
	if c.echo {
		out = bytes.TrimPrefix(out, []byte(line+"\r\n"))
	}
	return string(out), nil
}

// ReadRegister issues "smi r" and returns the raw reply line
func (c *Client) ReadRegister(phy, reg uint8) (string, error) {
	return c.Command(fmt.Sprintf("smi r %d %d", phy, reg))
}

// WriteRegister issues "smi w"
func (c *Client) WriteRegister(phy, reg uint8, data uint16) (string, error) {
	return c.Command(fmt.Sprintf("smi w %d %d 0x%04x", phy, reg, data))
}

// Stats returns the bridge's pipeline counters line
func (c *Client) Stats() (string, error) {
	return c.Command("stat")
}

// collect reads until a read returns nothing or the reply cap is reached.
func (c *Client) collect() ([]byte, error) {
	var out bytes.Buffer
	buf := make([]byte, 256)
	for out.Len() < maxReply {
		n, err := c.port.Read(buf)
		out.Write(buf[:n])
		if err == io.EOF || (err == nil && n == 0) {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return out.Bytes(), nil
}
