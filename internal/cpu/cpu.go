// Package cpu implements the Sharp SM83 CPU emulation for the Game Boy.
//
// Step runs one instruction through the dispatch tables, advances the clock
// by the cycles it took, then services at most one pending interrupt. Cycle
// counts are in T-cycles, four per machine cycle.
package cpu

import (
	"errors"
	"fmt"
)

// Memory interface for CPU to access memory bus.
type Memory interface {
	Read(addr uint16) uint8
	Write(addr uint16, value uint8)
}

// Clock is advanced by the cycles of every instruction before the next fetch.
// The emulator uses it to step the PPU and timer in lockstep with the CPU.
type Clock interface {
	Advance(cycles uint8)
}

const (
	addrDIV = 0xFF04
	addrIF  = 0xFF0F
	addrIE  = 0xFFFF

	// interruptCycles is the cost of dispatching to an interrupt vector.
	interruptCycles = 20

	joypadBit = 1 << 4
)

// ErrIllegalOpcode reports an opcode with no defined behavior.
var ErrIllegalOpcode = errors.New("illegal opcode")

// FatalError is returned by Step when the CPU reaches an opcode it cannot
// execute. State is the machine state at the faulting instruction.
type FatalError struct {
	Opcode   uint8
	Prefixed bool
	PC       uint16
	State    State
}

func (e *FatalError) Error() string {
	prefix := ""
	if e.Prefixed {
		prefix = "CB "
	}
	return fmt.Sprintf("%s: %s0x%02X at PC=0x%04X [%s]", ErrIllegalOpcode, prefix, e.Opcode, e.PC, e.State)
}

func (e *FatalError) Unwrap() error {
	return ErrIllegalOpcode
}

// State is a snapshot of the CPU for debugging and fatal error reports.
type State struct {
	A, F, B, C, D, E, H, L uint8
	SP, PC                 uint16
	IME                    bool
	Halted                 bool
	Stopped                bool
	Cycles                 uint64
}

func (s State) String() string {
	flags := []byte("----")
	for i, f := range []struct {
		mask uint8
		name byte
	}{{FlagZ, 'Z'}, {FlagN, 'N'}, {FlagH, 'H'}, {FlagC, 'C'}} {
		if s.F&f.mask != 0 {
			flags[i] = f.name
		}
	}
	return fmt.Sprintf("AF=%02X%02X BC=%02X%02X DE=%02X%02X HL=%02X%02X SP=%04X PC=%04X %s IME=%t",
		s.A, s.F, s.B, s.C, s.D, s.E, s.H, s.L, s.SP, s.PC, flags, s.IME)
}

// CPU represents the Sharp SM83 CPU.
type CPU struct {
	Registers *Registers
	Memory    Memory
	clock     Clock

	// Interrupt master enable flag
	IME bool

	// EI and DI take effect at the start of the following Step
	imePending bool
	imeNext    bool

	// Halt and stop states
	halted  bool
	stopped bool
	haltBug bool

	// stopWake reports whether a button is held, ending STOP
	stopWake func() bool

	// Cycle counter
	Cycles uint64
}

// New creates a new CPU instance. The clock may be nil.
func New(mem Memory, clock Clock) *CPU {
	return &CPU{
		Registers: NewRegisters(),
		Memory:    mem,
		clock:     clock,
	}
}

// Reset returns the CPU to its post-boot state. The memory, clock and stop
// wake condition are kept.
func (c *CPU) Reset() {
	*c.Registers = *NewRegisters()
	c.IME = false
	c.imePending = false
	c.halted = false
	c.stopped = false
	c.haltBug = false
	c.Cycles = 0
}

// SetStopWake installs the condition that ends STOP mode. Without one, STOP
// ends when the joypad interrupt is requested.
func (c *CPU) SetStopWake(fn func() bool) {
	c.stopWake = fn
}

// Halted reports whether the CPU is waiting in HALT.
func (c *CPU) Halted() bool {
	return c.halted
}

// Stopped reports whether the CPU is waiting in STOP.
func (c *CPU) Stopped() bool {
	return c.stopped
}

// State returns a snapshot of the registers and execution state.
func (c *CPU) State() State {
	r := c.Registers
	return State{
		A: r.A, F: r.F, B: r.B, C: r.C, D: r.D, E: r.E, H: r.H, L: r.L,
		SP: r.SP, PC: r.PC,
		IME:     c.IME,
		Halted:  c.halted,
		Stopped: c.stopped,
		Cycles:  c.Cycles,
	}
}

// Step executes one instruction and returns cycles taken, including any
// interrupt dispatch that followed it. A *FatalError leaves PC on the
// faulting opcode.
func (c *CPU) Step() (uint8, error) {
	if c.imePending {
		c.IME = c.imeNext
		c.imePending = false
	}

	var cycles uint8
	switch {
	case c.stopped:
		cycles = 4
		if c.stopReleased() {
			c.stopped = false
		}

	case c.halted:
		cycles = 4
		if c.pendingInterrupts() != 0 {
			c.halted = false
		}

	default:
		var err error
		cycles, err = c.execute()
		if err != nil {
			return 0, err
		}
	}

	c.advance(cycles)
	if c.IME {
		cycles += c.serviceInterrupt()
	}
	return cycles, nil
}

// execute fetches, decodes and runs the instruction at PC.
func (c *CPU) execute() (uint8, error) {
	pc := c.Registers.PC
	opcode := c.fetchByte()

	if opcode == 0xCB {
		cb := c.fetchByte()
		inst := cbOpcodes[cb]
		if inst.exec == nil {
			return 0, c.fatal(pc, cb, true)
		}
		return inst.exec(c), nil
	}

	inst := opcodes[opcode]
	if inst.exec == nil {
		return 0, c.fatal(pc, opcode, false)
	}
	return inst.exec(c), nil
}

func (c *CPU) fatal(pc uint16, opcode uint8, prefixed bool) error {
	c.Registers.PC = pc
	return &FatalError{
		Opcode:   opcode,
		Prefixed: prefixed,
		PC:       pc,
		State:    c.State(),
	}
}

func (c *CPU) advance(cycles uint8) {
	c.Cycles += uint64(cycles)
	if c.clock != nil {
		c.clock.Advance(cycles)
	}
}

// pendingInterrupts returns the requested interrupts that are also enabled.
func (c *CPU) pendingInterrupts() uint8 {
	return c.Memory.Read(addrIF) & c.Memory.Read(addrIE) & 0x1F
}

// serviceInterrupt dispatches the highest priority pending interrupt. Bit 0
// (V-Blank) has the highest priority.
func (c *CPU) serviceInterrupt() uint8 {
	pending := c.pendingInterrupts()
	if pending == 0 {
		return 0
	}

	for bit := range uint8(5) {
		mask := uint8(1) << bit
		if pending&mask == 0 {
			continue
		}
		c.IME = false
		c.halted = false
		c.Memory.Write(addrIF, c.Memory.Read(addrIF)&^mask)
		c.push(c.Registers.PC)
		c.Registers.PC = 0x0040 + uint16(bit)*8
		c.advance(interruptCycles)
		return interruptCycles
	}
	return 0
}

// halt enters low-power mode until an interrupt is pending. With IME clear
// and an interrupt already pending the CPU does not halt; instead the next
// opcode fetch fails to advance PC (the halt bug).
func (c *CPU) halt() {
	if !c.IME && c.pendingInterrupts() != 0 {
		c.haltBug = true
		return
	}
	c.halted = true
}

// stop enters STOP mode and resets the divider.
func (c *CPU) stop() {
	c.Memory.Write(addrDIV, 0)
	c.stopped = true
}

func (c *CPU) stopReleased() bool {
	if c.stopWake != nil {
		return c.stopWake()
	}
	return c.Memory.Read(addrIF)&joypadBit != 0
}

// scheduleIME records an EI or DI to take effect at the next Step.
func (c *CPU) scheduleIME(enable bool) {
	c.imePending = true
	c.imeNext = enable
}

// fetchByte fetches the next byte from memory and increments PC.
func (c *CPU) fetchByte() uint8 {
	value := c.Memory.Read(c.Registers.PC)
	if c.haltBug {
		c.haltBug = false
		return value
	}
	c.Registers.PC++
	return value
}

// fetchWord fetches the next word (16-bit) from memory and increments PC.
func (c *CPU) fetchWord() uint16 {
	low := uint16(c.fetchByte())
	high := uint16(c.fetchByte())
	return high<<8 | low
}

// push pushes a 16-bit value onto the stack.
func (c *CPU) push(value uint16) {
	c.Registers.SP -= 2
	c.Memory.Write(c.Registers.SP, uint8(value))      //nolint:gosec // G115: Intentional byte extraction from 16-bit value
	c.Memory.Write(c.Registers.SP+1, uint8(value>>8)) //nolint:gosec // G115: Intentional byte extraction from 16-bit value
}

// pop pops a 16-bit value from the stack.
func (c *CPU) pop() uint16 {
	low := uint16(c.Memory.Read(c.Registers.SP))
	high := uint16(c.Memory.Read(c.Registers.SP + 1))
	c.Registers.SP += 2
	return high<<8 | low
}

// reg8 reads operand r in the 3-bit encoding B, C, D, E, H, L, (HL), A.
func (c *CPU) reg8(r uint8) uint8 {
	switch r & 0x07 {
	case 0:
		return c.Registers.B
	case 1:
		return c.Registers.C
	case 2:
		return c.Registers.D
	case 3:
		return c.Registers.E
	case 4:
		return c.Registers.H
	case 5:
		return c.Registers.L
	case 6:
		return c.Memory.Read(c.Registers.HL())
	default:
		return c.Registers.A
	}
}

// setReg8 writes operand r in the 3-bit encoding.
func (c *CPU) setReg8(r uint8, value uint8) {
	switch r & 0x07 {
	case 0:
		c.Registers.B = value
	case 1:
		c.Registers.C = value
	case 2:
		c.Registers.D = value
	case 3:
		c.Registers.E = value
	case 4:
		c.Registers.H = value
	case 5:
		c.Registers.L = value
	case 6:
		c.Memory.Write(c.Registers.HL(), value)
	default:
		c.Registers.A = value
	}
}

// checkCondition checks jump/call conditions.
func (c *CPU) checkCondition(cond uint8) bool {
	switch cond & 0x03 {
	case 0: // NZ - Not Zero
		return !c.Registers.ZeroFlag()
	case 1: // Z - Zero
		return c.Registers.ZeroFlag()
	case 2: // NC - Not Carry
		return !c.Registers.CarryFlag()
	default: // C - Carry
		return c.Registers.CarryFlag()
	}
}
