package emulator

import (
	"fmt"
	"strings"

	"github.com/richardwooding/dotmatrix/internal/cartridge"
	"github.com/richardwooding/dotmatrix/internal/cpu"
	"github.com/richardwooding/dotmatrix/internal/memory"
	"github.com/richardwooding/dotmatrix/internal/ppu"
	"github.com/richardwooding/dotmatrix/internal/timer"
)

// Snapshot is a read-only view of the machine for debug overlays and
// headless reports.
type Snapshot struct {
	CPU  cpu.State
	Next string // mnemonic of the instruction at PC

	PPU    ppu.Registers
	Mode   uint8
	Dots   uint16
	Frames uint64

	IF, IE              uint8
	DIV, TIMA, TMA, TAC uint8

	Banks         cartridge.BankState
	BootROMMapped bool

	Directions, Actions uint8
}

// Snapshot captures the current machine state. Reading it has no side
// effects on the emulation.
func (e *Emulator) Snapshot() Snapshot {
	s := Snapshot{
		CPU:           e.CPU.State(),
		PPU:           e.PPU.Registers(),
		Mode:          e.PPU.Mode(),
		Dots:          e.PPU.Dots(),
		Frames:        e.PPU.Frames(),
		IF:            e.Memory.Read(memory.AddrIF),
		IE:            e.Memory.Read(memory.AddrIE),
		DIV:           e.Timer.Read(timer.DIV),
		TIMA:          e.Timer.Read(timer.TIMA),
		TMA:           e.Timer.Read(timer.TMA),
		TAC:           e.Timer.Read(timer.TAC),
		Banks:         e.Cart.Banks(),
		BootROMMapped: e.Memory.BootROMMapped(),
	}
	s.Directions, s.Actions = e.Joypad.State()

	pc := s.CPU.PC
	switch opcode := e.Memory.Read(pc); {
	case !cpu.Legal(opcode):
		s.Next = fmt.Sprintf("ILLEGAL 0x%02X", opcode)
	case opcode == 0xCB:
		s.Next = cpu.Mnemonic(e.Memory.Read(pc+1), true)
	default:
		s.Next = cpu.Mnemonic(opcode, false)
	}
	return s
}

var modeNames = [4]string{"HBLANK", "VBLANK", "OAM", "DRAW"}

// String formats the snapshot as one field group per line.
func (s Snapshot) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", s.CPU)
	fmt.Fprintf(&b, "next: %s  cycles: %d  halted: %t  stopped: %t\n",
		s.Next, s.CPU.Cycles, s.CPU.Halted, s.CPU.Stopped)
	fmt.Fprintf(&b, "LCDC=%02X STAT=%02X LY=%02X LYC=%02X SCY=%02X SCX=%02X WY=%02X WX=%02X\n",
		s.PPU.LCDC, s.PPU.STAT, s.PPU.LY, s.PPU.LYC, s.PPU.SCY, s.PPU.SCX, s.PPU.WY, s.PPU.WX)
	fmt.Fprintf(&b, "BGP=%02X OBP0=%02X OBP1=%02X mode=%s dots=%d frames=%d\n",
		s.PPU.BGP, s.PPU.OBP0, s.PPU.OBP1, modeNames[s.Mode&0x03], s.Dots, s.Frames)
	fmt.Fprintf(&b, "IF=%02X IE=%02X DIV=%02X TIMA=%02X TMA=%02X TAC=%02X\n",
		s.IF, s.IE, s.DIV, s.TIMA, s.TMA, s.TAC)
	fmt.Fprintf(&b, "ROM=%d/%d RAM=%d ram_enabled=%t mode=%d boot=%t\n",
		s.Banks.LowROMBank, s.Banks.ROMBank, s.Banks.RAMBank, s.Banks.RAMEnabled, s.Banks.Mode, s.BootROMMapped)
	fmt.Fprintf(&b, "joypad dirs=%04b actions=%04b", s.Directions, s.Actions)
	return b.String()
}
