package cartridge

import (
	"errors"
	"fmt"
)

// Size limits for a ROM image.
const (
	// BankSize is the size of one switchable ROM bank.
	BankSize = 0x4000
	// RAMBankSize is the size of one external RAM bank.
	RAMBankSize = 0x2000
	// MinROMSize is the smallest accepted ROM image (one bank).
	MinROMSize = BankSize
	// MaxROMSize is the largest accepted ROM image (8 MiB).
	MaxROMSize = 8 * 1024 * 1024
)

// Cartridge represents a Game Boy cartridge with ROM and optional RAM.
type Cartridge interface {
	// Read reads a byte from the cartridge address space (0x0000-0x7FFF for ROM, 0xA000-0xBFFF for RAM)
	Read(addr uint16) uint8

	// Write writes a byte to the cartridge address space (bank registers or RAM)
	Write(addr uint16, value uint8)

	// Header returns the parsed cartridge header
	Header() *Header

	// HasBattery returns true if the cartridge has battery-backed RAM
	HasBattery() bool

	// RAM returns a copy of the external RAM for saving
	RAM() []byte

	// LoadRAM loads save data into the external RAM
	LoadRAM(data []byte)

	// Banks reports the current banking state for introspection
	Banks() BankState
}

// BankState is a read-only snapshot of the bank-select registers.
type BankState struct {
	ROMBank    int  // Bank mapped at 0x4000-0x7FFF
	LowROMBank int  // Bank mapped at 0x0000-0x3FFF
	RAMBank    int  // Bank mapped at 0xA000-0xBFFF
	RAMEnabled bool // RAM enable latch
	Mode       uint8
}

var (
	// ErrInvalidCartridgeType indicates an unsupported or unknown cartridge type.
	ErrInvalidCartridgeType = errors.New("invalid or unsupported cartridge type")

	// ErrROMTooSmall indicates the ROM is smaller than a single 16 KiB bank.
	ErrROMTooSmall = errors.New("ROM size below minimum of 16 KiB")

	// ErrROMTooLarge indicates the ROM size exceeds the maximum allowed size.
	ErrROMTooLarge = errors.New("ROM size exceeds maximum allowed size of 8 MiB")
)

// ValidateSize checks the ROM image against the accepted 16 KiB - 8 MiB range.
func ValidateSize(rom []byte) error {
	switch {
	case len(rom) < MinROMSize:
		return fmt.Errorf("%w: got %d bytes", ErrROMTooSmall, len(rom))
	case len(rom) > MaxROMSize:
		return fmt.Errorf("%w: got %d bytes", ErrROMTooLarge, len(rom))
	}
	return nil
}

// New creates a new cartridge from ROM data. Byte 0 of rom maps to 0x0000 and
// bank n starts at n*0x4000. The ROM slice is retained, not copied.
func New(rom []byte) (Cartridge, error) {
	if err := ValidateSize(rom); err != nil {
		return nil, err
	}

	header, err := ParseHeader(rom)
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	cartType := CartridgeType(header.CartridgeType)
	if !cartType.Supported() {
		return nil, fmt.Errorf("%w: type 0x%02X (%s)",
			ErrInvalidCartridgeType, byte(cartType), cartType.String())
	}

	return newMBC1(rom, header), nil
}
