// Package memory implements the Game Boy memory bus and address space mapping.
//
// The Bus is the only way to reach memory. Cartridge space is delegated to the
// cartridge, VRAM and OAM to the PPU, and the I/O page to the timer, joypad,
// PPU and APU register files. Everything else is owned here.
package memory

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/richardwooding/dotmatrix/internal/cartridge"
)

// PPU is an interface for the Picture Processing Unit. VRAM and OAM offsets are
// relative to 0x8000 and 0xFE00.
type PPU interface {
	ReadVRAM(offset uint16) uint8
	WriteVRAM(offset uint16, value uint8)
	ReadOAM(offset uint16) uint8
	WriteOAM(offset uint16, value uint8)
	VRAMLocked() bool
	OAMLocked() bool
	ReadRegister(addr uint16) uint8
	WriteRegister(addr uint16, value uint8)
}

// Joypad is an interface for joypad input handling.
type Joypad interface {
	Read() uint8
	Write(value uint8)
}

// Registers is a block of memory-mapped registers addressed by absolute address.
type Registers interface {
	Read(addr uint16) uint8
	Write(addr uint16, value uint8)
}

// I/O register addresses with bus-level side effects.
const (
	AddrP1   = 0xFF00
	AddrSB   = 0xFF01
	AddrSC   = 0xFF02
	AddrIF   = 0xFF0F
	AddrLCDC = 0xFF40
	AddrSTAT = 0xFF41
	AddrSCY  = 0xFF42
	AddrSCX  = 0xFF43
	AddrLY   = 0xFF44
	AddrLYC  = 0xFF45
	AddrDMA  = 0xFF46
	AddrBGP  = 0xFF47
	AddrOBP0 = 0xFF48
	AddrOBP1 = 0xFF49
	AddrWY   = 0xFF4A
	AddrWX   = 0xFF4B
	AddrBoot = 0xFF50
	AddrIE   = 0xFFFF
)

// Interrupt bits in IF and IE.
const (
	InterruptVBlank = 0
	InterruptSTAT   = 1
	InterruptTimer  = 2
	InterruptSerial = 3
	InterruptJoypad = 4
)

// BootROMSize is the size of the DMG boot ROM overlay.
const BootROMSize = 0x100

// DMALength is the number of bytes an OAM DMA transfer copies.
const DMALength = 0xA0

// ErrBootROMSize indicates a boot ROM image of the wrong length.
var ErrBootROMSize = errors.New("boot ROM must be 256 bytes")

// UnmappedAddressError reports an access that fell outside every region of the
// address map. The decode covers all 65536 addresses, so this is an assertion.
type UnmappedAddressError struct {
	Addr  uint16
	Write bool
}

func (e *UnmappedAddressError) Error() string {
	op := "read"
	if e.Write {
		op = "write"
	}
	return fmt.Sprintf("unmapped %s at 0x%04X", op, e.Addr)
}

// Bus represents the Game Boy memory bus.
type Bus struct {
	cartridge cartridge.Cartridge
	ppu       PPU
	joypad    Joypad
	timer     Registers
	apu       Registers

	// Boot ROM overlay, mapped at 0x0000-0x00FF until 0xFF50 is written
	bootROM    []byte
	bootMapped bool

	wram [0x2000]uint8 // C000-DFFF, mirrored at E000-FDFF
	io   [0x80]uint8   // FF00-FF7F registers without a dedicated owner
	hram [0x7F]uint8   // FF80-FFFE

	intFlag   uint8 // FF0F
	intEnable uint8 // FFFF

	onSerial func(uint8)
	logger   *slog.Logger
}

// NewBus creates a new memory bus.
func NewBus() *Bus {
	return &Bus{
		logger: slog.New(slog.DiscardHandler),
	}
}

// SetCartridge sets the cartridge for the memory bus.
func (b *Bus) SetCartridge(cart cartridge.Cartridge) {
	b.cartridge = cart
}

// Cartridge returns the currently loaded cartridge.
func (b *Bus) Cartridge() cartridge.Cartridge {
	return b.cartridge
}

// SetPPU sets the PPU for the memory bus.
func (b *Bus) SetPPU(ppu PPU) {
	b.ppu = ppu
}

// SetJoypad sets the joypad for the memory bus.
func (b *Bus) SetJoypad(joypad Joypad) {
	b.joypad = joypad
}

// SetTimer sets the timer register block (0xFF04-0xFF07).
func (b *Bus) SetTimer(t Registers) {
	b.timer = t
}

// SetAPU sets the audio register block (0xFF10-0xFF3F).
func (b *Bus) SetAPU(apu Registers) {
	b.apu = apu
}

// SetSerialHandler installs a callback that receives every byte sent over the
// serial port.
func (b *Bus) SetSerialHandler(fn func(uint8)) {
	b.onSerial = fn
}

// SetLogger sets the logger for lifecycle events.
func (b *Bus) SetLogger(logger *slog.Logger) {
	if logger != nil {
		b.logger = logger
	}
}

// SetBootROM maps a boot ROM image over 0x0000-0x00FF.
func (b *Bus) SetBootROM(rom []byte) error {
	if len(rom) != BootROMSize {
		return fmt.Errorf("%w: got %d bytes", ErrBootROMSize, len(rom))
	}
	b.bootROM = rom
	b.bootMapped = true
	return nil
}

// BootROMMapped reports whether the boot ROM overlay is still active.
func (b *Bus) BootROMMapped() bool {
	return b.bootMapped
}

// RequestInterrupt sets bit n of IF.
func (b *Bus) RequestInterrupt(n uint8) {
	b.intFlag |= 1 << n
}

// Read reads a byte from the memory bus.
func (b *Bus) Read(addr uint16) uint8 {
	switch {
	// Boot ROM overlay
	case addr < BootROMSize && b.bootMapped:
		return b.bootROM[addr]

	// ROM Bank 00 (0000-3FFF) and switchable ROM bank (4000-7FFF)
	case addr < 0x8000:
		if b.cartridge != nil {
			return b.cartridge.Read(addr)
		}
		return 0xFF

	// VRAM (8000-9FFF)
	case addr < 0xA000:
		if b.ppu == nil || b.ppu.VRAMLocked() {
			return 0xFF
		}
		return b.ppu.ReadVRAM(addr - 0x8000)

	// External RAM (A000-BFFF)
	case addr < 0xC000:
		if b.cartridge != nil {
			return b.cartridge.Read(addr)
		}
		return 0xFF

	// Work RAM (C000-DFFF)
	case addr < 0xE000:
		return b.wram[addr-0xC000]

	// Echo RAM (E000-FDFF) - Mirror of C000-DDFF
	case addr < 0xFE00:
		return b.wram[addr-0xE000]

	// OAM (FE00-FE9F)
	case addr < 0xFEA0:
		if b.ppu == nil || b.ppu.OAMLocked() {
			return 0xFF
		}
		return b.ppu.ReadOAM(addr - 0xFE00)

	// Not Usable (FEA0-FEFF)
	case addr < 0xFF00:
		return 0xFF

	// I/O Registers (FF00-FF7F)
	case addr < 0xFF80:
		return b.readIO(addr)

	// High RAM (FF80-FFFE)
	case addr < 0xFFFF:
		return b.hram[addr-0xFF80]

	// Interrupt Enable Register (FFFF)
	case addr == AddrIE:
		return b.intEnable

	default:
		panic(&UnmappedAddressError{Addr: addr})
	}
}

// Write writes a byte to the memory bus.
func (b *Bus) Write(addr uint16, value uint8) {
	switch {
	// The overlay is read-only
	case addr < BootROMSize && b.bootMapped:

	// ROM area: only the MBC registers are reachable
	case addr < 0x8000:
		if b.cartridge != nil {
			b.cartridge.Write(addr, value)
		}

	case addr < 0xA000:
		if b.ppu != nil && !b.ppu.VRAMLocked() {
			b.ppu.WriteVRAM(addr-0x8000, value)
		}

	case addr < 0xC000:
		if b.cartridge != nil {
			b.cartridge.Write(addr, value)
		}

	case addr < 0xE000:
		b.wram[addr-0xC000] = value

	case addr < 0xFE00:
		b.wram[addr-0xE000] = value

	case addr < 0xFEA0:
		if b.ppu != nil && !b.ppu.OAMLocked() {
			b.ppu.WriteOAM(addr-0xFE00, value)
		}

	case addr < 0xFF00:
		// Ignore writes to unusable memory

	case addr < 0xFF80:
		b.writeIO(addr, value)

	case addr < 0xFFFF:
		b.hram[addr-0xFF80] = value

	case addr == AddrIE:
		b.intEnable = value

	default:
		panic(&UnmappedAddressError{Addr: addr, Write: true})
	}
}

func isPPURegister(addr uint16) bool {
	return addr >= AddrLCDC && addr <= AddrWX && addr != AddrDMA
}

// readIO reads from I/O registers.
func (b *Bus) readIO(addr uint16) uint8 {
	switch {
	case addr == AddrP1:
		if b.joypad != nil {
			return b.joypad.Read()
		}
		return 0xFF
	case addr == AddrSC:
		return b.io[addr-0xFF00] | 0x7E
	case addr >= 0xFF04 && addr <= 0xFF07:
		if b.timer != nil {
			return b.timer.Read(addr)
		}
		return 0xFF
	case addr == AddrIF:
		return b.intFlag | 0xE0
	case addr >= 0xFF10 && addr <= 0xFF3F:
		if b.apu != nil {
			return b.apu.Read(addr)
		}
		return 0xFF
	case isPPURegister(addr):
		if b.ppu != nil {
			return b.ppu.ReadRegister(addr)
		}
		return 0xFF
	case addr == AddrBoot:
		return 0xFF
	default:
		return b.io[addr-0xFF00]
	}
}

// writeIO writes to I/O registers.
func (b *Bus) writeIO(addr uint16, value uint8) {
	switch {
	case addr == AddrP1:
		if b.joypad != nil {
			b.joypad.Write(value)
		}
	case addr == AddrSC:
		b.writeSerialControl(value)
	case addr >= 0xFF04 && addr <= 0xFF07:
		if b.timer != nil {
			b.timer.Write(addr, value)
		}
	case addr == AddrIF:
		b.intFlag = value & 0x1F
	case addr >= 0xFF10 && addr <= 0xFF3F:
		if b.apu != nil {
			b.apu.Write(addr, value)
		}
	case addr == AddrDMA:
		b.io[addr-0xFF00] = value
		b.dma(value)
	case isPPURegister(addr):
		// STAT mode bits and LY are owned by the PPU
		if b.ppu != nil {
			b.ppu.WriteRegister(addr, value)
		}
	case addr == AddrBoot:
		if value != 0 && b.bootMapped {
			b.bootMapped = false
			b.logger.Info("boot ROM unmapped")
		}
	default:
		b.io[addr-0xFF00] = value
	}
}

// writeSerialControl completes a transfer immediately when bit 7 is set. No
// link partner exists, so the received byte is never stored back into SB.
func (b *Bus) writeSerialControl(value uint8) {
	if value&0x80 == 0 {
		b.io[AddrSC-0xFF00] = value & 0x01
		return
	}
	if b.onSerial != nil {
		b.onSerial(b.io[AddrSB-0xFF00])
	}
	b.io[AddrSC-0xFF00] = value & 0x01
	b.RequestInterrupt(InterruptSerial)
}

// dma copies 0xA0 bytes from page*0x100 into OAM. The source goes through the
// normal read path; OAM is written directly since the DMA unit owns it for
// the duration of the transfer.
func (b *Bus) dma(page uint8) {
	if b.ppu == nil {
		return
	}
	src := uint16(page) << 8
	for i := uint16(0); i < DMALength; i++ {
		b.ppu.WriteOAM(i, b.Read(src+i))
	}
}

// Reset clears all RAM while keeping the cartridge and PPU loaded.
// Cartridge RAM is not cleared as it may be battery-backed. The boot ROM
// latch survives: once 0xFF50 unmaps the overlay it stays gone.
func (b *Bus) Reset() {
	clear(b.wram[:])
	clear(b.io[:])
	clear(b.hram[:])
	b.intEnable = 0
	b.intFlag = 0
}
