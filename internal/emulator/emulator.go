// Package emulator provides the driver loop that ties together the CPU,
// memory bus, PPU, timer, joypad and cartridge.
//
// Every instruction advances the PPU and then the timer by exactly the
// cycles it took, before the next fetch. RunFrame runs instructions until a
// frame's worth of cycles has elapsed and carries any overshoot into the
// next frame.
package emulator

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/richardwooding/dotmatrix/internal/apu"
	"github.com/richardwooding/dotmatrix/internal/cartridge"
	"github.com/richardwooding/dotmatrix/internal/cpu"
	"github.com/richardwooding/dotmatrix/internal/input"
	"github.com/richardwooding/dotmatrix/internal/memory"
	"github.com/richardwooding/dotmatrix/internal/ppu"
	"github.com/richardwooding/dotmatrix/internal/timer"
)

// CyclesPerFrame is the number of clock cycles in one 59.7 Hz frame
// (154 lines of 456 dots).
const CyclesPerFrame = 70224

var (
	// ErrTimeout indicates the operation timed out.
	ErrTimeout = errors.New("timeout waiting for serial output")
)

// Options configures a new emulator.
type Options struct {
	// BootROM is an optional 256-byte DMG boot ROM. Without one the
	// machine starts in the state the boot ROM would leave it in.
	BootROM []byte

	// Logger receives lifecycle events. Nil discards them.
	Logger *slog.Logger
}

// Emulator represents a Game Boy emulator instance.
type Emulator struct {
	CPU    *cpu.CPU
	Memory *memory.Bus
	PPU    *ppu.PPU
	Timer  *timer.Timer
	Joypad *input.Joypad
	APU    *apu.APU
	Cart   cartridge.Cartridge

	logger *slog.Logger

	// Cycles run past the end of the previous frame
	frameCycles int

	// Serial output buffer for test ROMs
	serialOutput []byte
}

// clock steps the PPU and then the timer for every CPU instruction.
type clock struct {
	ppu   *ppu.PPU
	timer *timer.Timer
}

func (c clock) Advance(cycles uint8) {
	c.ppu.Step(cycles)
	c.timer.Update(uint16(cycles))
}

// New creates a new emulator instance with the given ROM data.
func New(romData []byte, opts Options) (*Emulator, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	cart, err := cartridge.New(romData)
	if err != nil {
		return nil, fmt.Errorf("failed to load cartridge: %w", err)
	}
	header := cart.Header()
	logger.Info("cartridge loaded",
		"title", header.TitleString(),
		"type", cartridge.CartridgeType(header.CartridgeType).String(),
		"rom_banks", header.ROMBanks(),
		"ram_banks", header.RAMBanks(),
		"size", len(romData),
	)
	if !header.ChecksumValid {
		logger.Warn("header checksum mismatch",
			"stored", fmt.Sprintf("0x%02X", header.HeaderChecksum),
			"computed", fmt.Sprintf("0x%02X", cartridge.ComputeHeaderChecksum(romData)),
		)
	}

	bus := memory.NewBus()
	bus.SetLogger(logger)
	bus.SetCartridge(cart)

	e := &Emulator{
		Memory:       bus,
		Cart:         cart,
		logger:       logger,
		serialOutput: make([]byte, 0, 1024),
	}

	e.PPU = ppu.New(bus.RequestInterrupt)
	e.PPU.SetLogger(logger)
	e.Timer = timer.New(func() { bus.RequestInterrupt(memory.InterruptTimer) })
	e.Joypad = input.New(bus.RequestInterrupt)
	e.APU = apu.New()

	bus.SetPPU(e.PPU)
	bus.SetTimer(e.Timer)
	bus.SetJoypad(e.Joypad)
	bus.SetAPU(e.APU)
	bus.SetSerialHandler(func(b uint8) {
		e.serialOutput = append(e.serialOutput, b)
	})

	if opts.BootROM != nil {
		if err := bus.SetBootROM(opts.BootROM); err != nil {
			return nil, fmt.Errorf("failed to map boot ROM: %w", err)
		}
		logger.Info("boot ROM mapped")
	}

	e.CPU = cpu.New(bus, clock{ppu: e.PPU, timer: e.Timer})
	e.CPU.SetStopWake(e.Joypad.AnyPressed)
	e.powerOn()

	return e, nil
}

// powerOn sets the register state for the first instruction. With the boot
// ROM mapped everything starts cleared at 0x0000 and the LCD off; otherwise
// the machine starts at 0x0100 as the boot ROM leaves it.
func (e *Emulator) powerOn() {
	if e.Memory.BootROMMapped() {
		*e.CPU.Registers = cpu.Registers{}
		e.Memory.Write(memory.AddrLCDC, 0x00)
		e.APU.Write(apu.NR52, 0x00)
		return
	}
	*e.CPU.Registers = *cpu.NewRegisters()
	e.Memory.Write(memory.AddrIF, 0x01)
}

// Step executes one CPU instruction and returns the number of cycles taken.
// A decode failure or a bus fault is returned as an error and leaves the
// machine state untouched for inspection.
func (e *Emulator) Step() (cycles uint8, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		var unmapped *memory.UnmappedAddressError
		if rerr, ok := r.(error); ok && errors.As(rerr, &unmapped) {
			err = fmt.Errorf("bus fault at PC=0x%04X [%s]: %w", e.CPU.Registers.PC, e.CPU.State(), unmapped)
			return
		}
		panic(r)
	}()
	return e.CPU.Step()
}

// SetInput hands the current button state to the joypad. Both masks are
// active low: a cleared bit is a held button.
func (e *Emulator) SetInput(directions, actions uint8) {
	e.Joypad.SetState(directions, actions)
}

// RunFrame runs instructions until one frame's worth of cycles has elapsed.
func (e *Emulator) RunFrame() error {
	for e.frameCycles < CyclesPerFrame {
		cycles, err := e.Step()
		if err != nil {
			return err
		}
		e.frameCycles += int(cycles)
	}
	e.frameCycles -= CyclesPerFrame
	return nil
}

// RunCycles runs the emulator for at least the specified number of cycles.
func (e *Emulator) RunCycles(cycles uint64) error {
	targetCycles := e.CPU.Cycles + cycles
	for e.CPU.Cycles < targetCycles {
		if _, err := e.Step(); err != nil {
			return err
		}
	}
	return nil
}

// RunUntilOutput runs the emulator until serial output reports a result or
// the timeout passes without new output. Blargg's test ROMs print "Passed"
// or "Failed" when they finish.
func (e *Emulator) RunUntilOutput(timeout time.Duration) (string, error) {
	startTime := time.Now()
	lastOutputLen := 0

	for {
		if time.Since(startTime) > timeout {
			if len(e.serialOutput) > 0 {
				return string(e.serialOutput), nil
			}
			return "", ErrTimeout
		}

		if err := e.RunCycles(10000); err != nil {
			return string(e.serialOutput), err
		}

		// Reset timeout on new output
		if len(e.serialOutput) > lastOutputLen {
			lastOutputLen = len(e.serialOutput)
			startTime = time.Now()
		}

		output := string(e.serialOutput)
		if strings.Contains(output, "Passed") || strings.Contains(output, "Failed") {
			return output, nil
		}
	}
}

// SerialOutput returns the accumulated serial output.
func (e *Emulator) SerialOutput() string {
	return string(e.serialOutput)
}

// Framebuffer returns the most recent frame as palette shades 0-3.
func (e *Emulator) Framebuffer() *[ppu.ScreenWidth * ppu.ScreenHeight]uint8 {
	return e.PPU.Framebuffer()
}

// SaveRAM returns the external RAM when the cartridge keeps it on a battery.
func (e *Emulator) SaveRAM() ([]byte, bool) {
	if !e.Cart.HasBattery() {
		return nil, false
	}
	return e.Cart.RAM(), true
}

// LoadRAM restores external RAM from a save file.
func (e *Emulator) LoadRAM(data []byte) {
	e.Cart.LoadRAM(data)
	e.logger.Info("save RAM loaded", "bytes", len(data))
}

// Reset restarts the machine with the same cartridge. External RAM is kept.
func (e *Emulator) Reset() {
	e.Memory.Reset()
	e.PPU.Reset()
	e.Timer.Reset()
	e.APU.Reset()
	e.Joypad.Write(0x30)
	e.Joypad.SetState(input.Released, input.Released)

	e.CPU.Reset()
	e.frameCycles = 0
	e.serialOutput = e.serialOutput[:0]
	e.powerOn()
	e.logger.Debug("emulator reset")
}
