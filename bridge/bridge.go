// Package bridge wires the transports, the request pipeline and the device
// channel together. Every handler is a core.Task on one arbiter:
//
//	completion (5) > console (4) > spi (3) > uart (2) > dispatch = reply (1)
//
// Transport tasks validate and queue requests, dispatch hands them to the
// device channel one at a time, completion collects the device reply and
// reply routes it back to the transport that asked.
package bridge

import (
	"tinygo.org/x/drivers"

	"picobridge/config"
	"picobridge/core"
	"picobridge/protocol"
)

// Task priorities
const (
	PrioDispatch core.Priority = 1
	PrioReply    core.Priority = 1
	PrioUART     core.Priority = 2
	PrioSPI      core.Priority = 3
	PrioConsole  core.Priority = 4
	PrioComplete core.Priority = 5
)

// rxBufferSize is the depth of the interrupt-to-task byte rings
const rxBufferSize = 256

// maxDrain bounds how many stale words a spurious completion discards
const maxDrain = 8

// Options supplies the hardware a Bridge runs on. Nil Device and GPIO fall
// back to the drivers registered with core.SetDeviceChannel and
// core.SetGPIODriver. Nil ports disable that transport.
type Options struct {
	Config  *config.BridgeConfig
	Console Port
	UART    Port
	SPI     drivers.SPI
	Device  core.DeviceChannel
	GPIO    core.GPIODriver
}

// Stats counts what happened to requests
type Stats struct {
	Validated      uint32
	Rejected       uint32
	Dispatched     uint32
	Completed      uint32
	Routed         uint32
	Dropped        uint32
	Spurious       uint32
	MissingWords   uint32
	ChecksumErrors uint32
}

// requestSide is the producer half of the request queue together with the
// proc id counter. Every transport task produces, so both live behind one
// resource.
type requestSide struct {
	producer *core.Producer[protocol.CleanRequest]
	nextID   uint8
}

// Bridge is the request/response engine
type Bridge struct {
	cfg   *config.BridgeConfig
	arb   *core.Arbiter
	width protocol.WordWidth

	consoleTask  *core.Task
	uartTask     *core.Task
	spiTask      *core.Task
	completeTask *core.Task
	dispatchTask *core.Task
	replyTask    *core.Task

	// Interrupt-to-task byte rings
	consoleRx *protocol.FifoBuffer
	uartRx    *protocol.FifoBuffer

	// Shared resources
	console  *core.Resource[Port]
	uart     *core.Resource[Port]
	requests *core.Resource[requestSide]
	pin      *core.Resource[*core.DigitalOut]
	deviceTx *core.Resource[core.DeviceChannel]
	inFlight *core.Resource[bool]
	stats    *core.Resource[Stats]

	// Queue halves, each owned by exactly one task
	reqQ      core.Queue[protocol.CleanRequest]
	reqCons   *core.Consumer[protocol.CleanRequest] // dispatch
	pendQ     core.Queue[protocol.PendingResponse]
	pendProd  *core.Producer[protocol.PendingResponse] // dispatch
	pendCons  *core.Consumer[protocol.PendingResponse] // completion
	readyQ    core.Queue[protocol.ReadyResponse]
	readyProd *core.Producer[protocol.ReadyResponse] // completion
	readyCons *core.Consumer[protocol.ReadyResponse] // reply
	spiTxQ    core.Queue[[protocol.ReplyBytes]byte]
	spiTxProd *core.Producer[[protocol.ReplyBytes]byte] // reply
	spiTxCons *core.Consumer[[protocol.ReplyBytes]byte] // spi

	// Task-local state
	consoleLine lineAssembler
	uartLine    lineAssembler
	spi         drivers.SPI
	spiTx       [protocol.FrameBytes8]byte
	spiRx       [protocol.FrameBytes8]byte
	spiWords    [protocol.FrameBytes8]uint16
	deviceRx    core.DeviceChannel // completion
	gpio        core.GPIODriver    // dispatch, under pin
}

// New builds a bridge and its task table. The returned bridge does nothing
// until the target feeds it input and calls Poll.
func New(opts Options) (*Bridge, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	device := opts.Device
	if device == nil {
		device = core.MustDevice()
	}
	gpio := opts.GPIO
	if gpio == nil {
		gpio = core.MustGPIO()
	}

	b := &Bridge{
		cfg:       cfg,
		arb:       core.NewArbiter(),
		width:     cfg.Width(),
		consoleRx: protocol.NewFifoBuffer(rxBufferSize),
		uartRx:    protocol.NewFifoBuffer(rxBufferSize),
		spi:       opts.SPI,
		deviceRx:  device,
		gpio:      gpio,
	}
	b.consoleLine.echo = cfg.EchoEnabled()
	b.arb.OnFault = b.onFault

	b.completeTask = b.arb.Bind("completion", PrioComplete, b.complete)
	b.consoleTask = b.arb.Bind("console", PrioConsole, b.consoleRxTask)
	b.spiTask = b.arb.Bind("spi", PrioSPI, b.spiExchange)
	b.uartTask = b.arb.Bind("uart", PrioUART, b.uartRxTask)
	b.dispatchTask = b.arb.Bind("dispatch", PrioDispatch, b.dispatch)
	b.replyTask = b.arb.Bind("reply", PrioReply, b.reply)

	producer, consumer := b.reqQ.Split()
	b.reqCons = consumer
	b.pendProd, b.pendCons = b.pendQ.Split()
	b.readyProd, b.readyCons = b.readyQ.Split()
	b.spiTxProd, b.spiTxCons = b.spiTxQ.Split()

	all := []*core.Task{b.completeTask, b.consoleTask, b.spiTask, b.uartTask, b.dispatchTask, b.replyTask}
	b.console = core.NewResource(b.arb, "console", opts.Console, all...)
	b.stats = core.NewResource(b.arb, "stats", Stats{}, all...)
	b.uart = core.NewResource(b.arb, "uart", opts.UART, b.completeTask, b.uartTask, b.dispatchTask, b.replyTask)
	b.requests = core.NewResource(b.arb, "requests", requestSide{producer: producer},
		b.consoleTask, b.spiTask, b.uartTask)
	b.pin = core.NewResource(b.arb, "gpio", core.NewDigitalOut(core.GPIOPin(cfg.GPIO.Pin)), b.dispatchTask)

	// Only dispatch sends to the device and only dispatch and reply touch
	// the in-flight flag; both run at PrioDispatch.
	b.deviceTx = core.NewLockFreeResource(b.arb, "device_tx", device, b.dispatchTask)
	b.inFlight = core.NewLockFreeResource(b.arb, "in_flight", false, b.dispatchTask, b.replyTask)

	var err error
	b.pin.Lock(func(d **core.DigitalOut) {
		err = (*d).Configure(gpio)
	})
	if err != nil {
		return nil, err
	}
	b.deviceTx.Lock(func(d *core.DeviceChannel) {
		(*d).SetClockDivisor(cfg.ClockDivisor())
	})
	return b, nil
}

// FeedConsole queues bytes received on the USB console and schedules the
// console task. Safe from interrupt context. Returns how many bytes fit.
func (b *Bridge) FeedConsole(data []byte) int {
	n := b.consoleRx.Write(data)
	b.arb.PendFromISR(b.consoleTask)
	return n
}

// FeedUART queues bytes received on the UART and schedules the UART task.
// Safe from interrupt context.
func (b *Bridge) FeedUART(data []byte) int {
	n := b.uartRx.Write(data)
	b.arb.PendFromISR(b.uartTask)
	return n
}

// SPISelected schedules one SPI frame exchange. Call it when the master
// asserts chip select.
func (b *Bridge) SPISelected() {
	b.arb.PendFromISR(b.spiTask)
}

// DeviceComplete schedules reply collection. Call it from the device
// channel's completion interrupt after acknowledging it.
func (b *Bridge) DeviceComplete() {
	b.arb.PendFromISR(b.completeTask)
}

// Poll runs pending tasks. The target main loop calls it continuously.
func (b *Bridge) Poll() bool {
	return b.arb.Poll()
}

// Stats returns a snapshot of the counters
func (b *Bridge) Stats() Stats {
	var s Stats
	b.stats.Lock(func(v *Stats) { s = *v })
	return s
}

// InFlight reports whether a device transaction is awaiting its reply
func (b *Bridge) InFlight() bool {
	var busy bool
	b.inFlight.Lock(func(v *bool) { busy = *v })
	return busy
}

// Faults returns how many task panics were recovered
func (b *Bridge) Faults() uint32 {
	return b.arb.Faults()
}

// PinState returns the last level written to the GPIO output
func (b *Bridge) PinState() bool {
	var level bool
	b.pin.Lock(func(d **core.DigitalOut) { level = (*d).State() })
	return level
}

func (b *Bridge) count(fn func(s *Stats)) {
	b.stats.Lock(fn)
}

func (b *Bridge) writeConsole(s string) {
	b.console.Lock(func(p *Port) { writeString(*p, s) })
}

// report writes a diagnostic to the port a request came from. SPI has no
// text channel, so its diagnostics go to the console.
func (b *Bridge) report(host protocol.HostConfig, msg string) {
	if host == protocol.HostUART {
		b.uart.Lock(func(p *Port) { writeString(*p, msg+"\r\n") })
		return
	}
	b.writeConsole(msg + "\r\n")
}

func (b *Bridge) onFault(t *core.Task, reason interface{}) {
	core.DebugPrintln("[BRIDGE] task " + t.Name() + " panicked")
}

// consoleRxTask assembles console lines, echoing as it goes.
func (b *Bridge) consoleRxTask() {
	var chunk [32]byte
	for {
		n := b.consoleRx.Read(chunk[:])
		if n == 0 {
			return
		}
		for _, c := range chunk[:n] {
			echo, line, done := b.consoleLine.feed(c)
			if echo != nil {
				b.console.Lock(func(p *Port) {
					if *p != nil {
						(*p).Write(echo)
					}
				})
			}
			if done {
				b.consoleCommand(line)
			}
		}
	}
}

func (b *Bridge) consoleCommand(line []byte) {
	cmd, err := protocol.ParseConsole(line)
	if err != nil {
		b.count(func(s *Stats) { s.Rejected++ })
		core.RecordEvent(core.EvtRejected, uint8(protocol.HostSerial), 0, 0)
		b.report(protocol.HostSerial, err.Error())
		return
	}
	switch cmd.Kind {
	case protocol.KindMenu:
		b.writeConsole(protocol.MenuBanner)
	case protocol.KindStats:
		b.writeConsole(b.formatStats())
	case protocol.KindRequest:
		b.submit(cmd.Request, protocol.HostSerial)
	}
}

// uartRxTask assembles UART lines. The UART speaks the console grammar
// without echo.
func (b *Bridge) uartRxTask() {
	var chunk [32]byte
	for {
		n := b.uartRx.Read(chunk[:])
		if n == 0 {
			return
		}
		for _, c := range chunk[:n] {
			_, line, done := b.uartLine.feed(c)
			if !done {
				continue
			}
			cmd, err := protocol.ParseConsole(line)
			if err != nil {
				b.count(func(s *Stats) { s.Rejected++ })
				core.RecordEvent(core.EvtRejected, uint8(protocol.HostUART), 0, 0)
				b.report(protocol.HostUART, err.Error())
				continue
			}
			switch cmd.Kind {
			case protocol.KindMenu:
				b.uart.Lock(func(p *Port) { writeString(*p, protocol.MenuBanner) })
			case protocol.KindStats:
				s := b.formatStats()
				b.uart.Lock(func(p *Port) { writeString(*p, s) })
			case protocol.KindRequest:
				b.submit(cmd.Request, protocol.HostUART)
			}
		}
	}
}

// spiExchange clocks one frame: the oldest queued reply (or zeros) goes out
// while the next request comes in.
func (b *Bridge) spiExchange() {
	if b.spi == nil {
		return
	}
	n := protocol.FrameLen(b.width)
	if b.width == protocol.Width16 {
		n *= 2
	}
	tx := b.spiTx[:n]
	rx := b.spiRx[:n]
	if reply, ok := b.spiTxCons.Dequeue(); ok {
		copy(tx, reply[:])
	} else {
		for i := range tx {
			tx[i] = 0
		}
	}
	if err := b.spi.Tx(tx, rx); err != nil {
		core.DebugPrintln("[BRIDGE] spi: " + err.Error())
		return
	}

	if isIdleFrame(rx) {
		// Master is only clocking out a reply
		return
	}
	words := frameWords(rx, b.width, b.spiWords[:])
	req, computed, err := protocol.DecodeFrame(words, b.width)
	if err != nil {
		b.count(func(s *Stats) { s.Rejected++ })
		core.RecordEvent(core.EvtRejected, uint8(protocol.HostSPI), 0, 0)
		b.report(protocol.HostSPI, err.Error())
		return
	}
	if sum := protocol.HeaderChecksum(words, b.width); sum != computed {
		b.count(func(s *Stats) { s.ChecksumErrors++ })
		core.DebugPrintln("[BRIDGE] spi checksum " + protocol.Utoa(uint32(sum)) +
			" != " + protocol.Utoa(uint32(computed)))
		if b.cfg.Checksum.Strict {
			b.count(func(s *Stats) { s.Rejected++ })
			core.RecordEvent(core.EvtRejected, uint8(protocol.HostSPI), 0, uint32(computed))
			b.report(protocol.HostSPI, protocol.ChecksumMismatch.Error())
			return
		}
	}
	b.submit(req, protocol.HostSPI)
}

// submit stamps a request with its origin and proc id, validates it and
// queues it for dispatch.
func (b *Bridge) submit(req *protocol.HostRequest, host protocol.HostConfig) {
	req.SetHostConfig(host)

	var (
		err    error
		procID uint8
		iface  protocol.Interface
	)
	b.requests.Lock(func(rs *requestSide) {
		req.SetProcID(rs.nextID)
		clean, cerr := req.InitClean()
		if cerr != nil {
			err = cerr
			return
		}
		if !rs.producer.Enqueue(clean) {
			err = protocol.QueueFull
			return
		}
		procID, iface = clean.ProcID(), clean.Interface()
		rs.nextID++
	})

	if err == protocol.QueueFull {
		// Overflow is a console diagnostic whatever the origin
		b.count(func(s *Stats) { s.Dropped++ })
		core.RecordEvent(core.EvtDropped, uint8(host), 0, 0)
		b.writeConsole(err.Error() + "\r\n")
		return
	}
	if err != nil {
		b.count(func(s *Stats) { s.Rejected++ })
		core.RecordEvent(core.EvtRejected, uint8(host), 0, 0)
		b.report(host, err.Error())
		return
	}

	b.count(func(s *Stats) { s.Validated++ })
	core.RecordEvent(core.EvtValidated, uint8(iface), uint32(procID), uint32(host))
	b.arb.Pend(b.dispatchTask)
}

// dispatch hands queued requests to their device channel until the queue is
// empty or a transaction is waiting for its reply.
func (b *Bridge) dispatch() {
	for {
		var busy bool
		b.inFlight.Lock(func(v *bool) { busy = *v })
		if busy {
			return
		}
		req, ok := b.reqCons.Dequeue()
		if !ok {
			return
		}
		b.execute(req)
	}
}

func (b *Bridge) execute(req protocol.CleanRequest) {
	payload := req.Payload()
	switch req.Interface() {
	case protocol.InterfaceSMI:
		if req.ExpectsReply() {
			if !b.pendProd.Enqueue(protocol.NewPendingResponse(req)) {
				b.count(func(s *Stats) { s.Dropped++ })
				core.RecordEvent(core.EvtDropped, uint8(req.Interface()), uint32(req.ProcID()), 0)
				b.writeConsole(protocol.QueueFull.Error() + "\r\n")
				return
			}
			b.inFlight.Lock(func(v *bool) { *v = true })
		}
		b.deviceTx.Lock(func(d *core.DeviceChannel) { (*d).Send(payload[0]) })

	case protocol.InterfaceConfig:
		div, _ := protocol.ClockDivisorFor(payload[0])
		b.deviceTx.Lock(func(d *core.DeviceChannel) { (*d).SetClockDivisor(div) })
		core.RecordEvent(core.EvtClockSet, 0, uint32(div.Whole), uint32(div.Frac))

	case protocol.InterfaceGPIO:
		var err error
		b.pin.Lock(func(d **core.DigitalOut) {
			err = (*d).Set(b.gpio, payload[0])
		})
		if err != nil {
			b.report(req.HostConfig(), err.Error())
		}
	}

	b.count(func(s *Stats) { s.Dispatched++ })
	core.RecordEvent(core.EvtDispatched, uint8(req.Interface()), uint32(req.ProcID()), payload[0])
}

// complete collects the device reply for the oldest outstanding request.
func (b *Bridge) complete() {
	pending, ok := b.pendCons.Dequeue()
	if !ok {
		// Nothing outstanding; discard whatever the device pushed
		for i := 0; i < maxDrain; i++ {
			if _, ok := b.deviceRx.Recv(); !ok {
				break
			}
		}
		b.count(func(s *Stats) { s.Spurious++ })
		core.RecordEvent(core.EvtSpurious, 0, 0, 0)
		b.writeConsole(protocol.SpuriousCompletion.Error() + "\r\n")
		return
	}

	word, ok := b.deviceRx.Recv()
	if !ok {
		// A zero reply still follows and frees the device
		b.count(func(s *Stats) { s.MissingWords++ })
		b.report(pending.HostConfig(), protocol.NoDeviceData.Error()+" (proc "+protocol.Utoa(uint32(pending.ProcID()))+")")
	}
	ready, err := pending.InitReady(uint32(protocol.SMIReadData(word)))
	if err != nil {
		b.writeConsole(err.Error() + "\r\n")
		return
	}
	b.count(func(s *Stats) { s.Completed++ })
	core.RecordEvent(core.EvtCompleted, uint8(ready.HostConfig()), uint32(ready.ProcID()), ready.Word())

	if !b.readyProd.Enqueue(ready) {
		b.count(func(s *Stats) { s.Dropped++ })
		core.RecordEvent(core.EvtDropped, uint8(ready.HostConfig()), uint32(ready.ProcID()), 0)
		b.writeConsole(protocol.ReplyDropped.Error() + "\r\n")
	}
	b.arb.Pend(b.replyTask)
}

// reply routes finished responses to their origin and frees the device for
// the next request.
func (b *Bridge) reply() {
	for {
		r, ok := b.readyCons.Dequeue()
		if !ok {
			break
		}
		switch r.HostConfig() {
		case protocol.HostSerial:
			b.writeConsole(protocol.FormatReply(r))
		case protocol.HostUART:
			msg := protocol.FormatReply(r)
			b.uart.Lock(func(p *Port) { writeString(*p, msg) })
		case protocol.HostSPI:
			if !b.spiTxProd.Enqueue(protocol.EncodeReplyFrame(r)) {
				b.count(func(s *Stats) { s.Dropped++ })
				core.RecordEvent(core.EvtDropped, uint8(protocol.HostSPI), uint32(r.ProcID()), 0)
				b.writeConsole(protocol.ReplyDropped.Error() + "\r\n")
			}
		}
		b.inFlight.Lock(func(v *bool) { *v = false })
		b.count(func(s *Stats) { s.Routed++ })
		core.RecordEvent(core.EvtRouted, uint8(r.HostConfig()), uint32(r.ProcID()), r.Word())
	}
	b.arb.Pend(b.dispatchTask)
}

func (b *Bridge) formatStats() string {
	s := b.Stats()
	return "validated=" + protocol.Utoa(s.Validated) +
		" rejected=" + protocol.Utoa(s.Rejected) +
		" dispatched=" + protocol.Utoa(s.Dispatched) +
		" completed=" + protocol.Utoa(s.Completed) +
		" routed=" + protocol.Utoa(s.Routed) +
		" dropped=" + protocol.Utoa(s.Dropped) +
		" spurious=" + protocol.Utoa(s.Spurious) +
		" checksum=" + protocol.Utoa(s.ChecksumErrors) +
		" faults=" + protocol.Utoa(b.arb.Faults()) + "\r\n"
}
