// Package cartridge implements Game Boy cartridge loading and the MBC1 memory bank controller.
package cartridge

import (
	"errors"
	"fmt"
)

// Header represents the Game Boy cartridge header (0x0100-0x014F).
type Header struct {
	// Entry point (0x0100-0x0103)
	EntryPoint [4]byte

	// Title (0x0134-0x0143), NUL padded
	Title [16]byte

	// CGB flag (0x0143)
	// 0x80 = Game supports CGB functions, but works on old Game Boy
	// 0xC0 = Game works on CGB only
	CGBFlag byte

	// SGB flag (0x0146)
	SGBFlag byte

	// Cartridge type (0x0147)
	CartridgeType byte

	// ROM size code (0x0148): 32 KiB << ROMSize
	ROMSize byte

	// RAM size code (0x0149)
	RAMSize byte

	// Destination code (0x014A)
	DestinationCode byte

	// Mask ROM version (0x014C)
	MaskROMVersion byte

	// Header checksum (0x014D)
	HeaderChecksum byte

	// Global checksum (0x014E-0x014F), big endian
	GlobalChecksum [2]byte

	// ChecksumValid reports whether HeaderChecksum matches bytes 0x0134-0x014C.
	ChecksumValid bool
}

// CartridgeType represents the type of cartridge and MBC.
//
//nolint:revive // CartridgeType is intentionally explicit for clarity
type CartridgeType byte

// Cartridge types as defined in the header at 0x0147.
const (
	TypeROMOnly              CartridgeType = 0x00
	TypeMBC1                 CartridgeType = 0x01
	TypeMBC1RAM              CartridgeType = 0x02
	TypeMBC1RAMBattery       CartridgeType = 0x03
	TypeMBC2                 CartridgeType = 0x05
	TypeMBC2Battery          CartridgeType = 0x06
	TypeROMRAM               CartridgeType = 0x08
	TypeROMRAMBattery        CartridgeType = 0x09
	TypeMBC3TimerBattery     CartridgeType = 0x0F
	TypeMBC3TimerRAMBattery  CartridgeType = 0x10
	TypeMBC3                 CartridgeType = 0x11
	TypeMBC3RAM              CartridgeType = 0x12
	TypeMBC3RAMBattery       CartridgeType = 0x13
	TypeMBC5                 CartridgeType = 0x19
	TypeMBC5RAM              CartridgeType = 0x1A
	TypeMBC5RAMBattery       CartridgeType = 0x1B
	TypeMBC5Rumble           CartridgeType = 0x1C
	TypeMBC5RumbleRAM        CartridgeType = 0x1D
	TypeMBC5RumbleRAMBattery CartridgeType = 0x1E
	TypePocketCamera         CartridgeType = 0xFC
	TypeHuC3                 CartridgeType = 0xFE
	TypeHuC1RAMBattery       CartridgeType = 0xFF
)

var typeNames = map[CartridgeType]string{
	TypeROMOnly:              "ROM ONLY",
	TypeMBC1:                 "MBC1",
	TypeMBC1RAM:              "MBC1+RAM",
	TypeMBC1RAMBattery:       "MBC1+RAM+BATTERY",
	TypeMBC2:                 "MBC2",
	TypeMBC2Battery:          "MBC2+BATTERY",
	TypeROMRAM:               "ROM+RAM",
	TypeROMRAMBattery:        "ROM+RAM+BATTERY",
	TypeMBC3TimerBattery:     "MBC3+TIMER+BATTERY",
	TypeMBC3TimerRAMBattery:  "MBC3+TIMER+RAM+BATTERY",
	TypeMBC3:                 "MBC3",
	TypeMBC3RAM:              "MBC3+RAM",
	TypeMBC3RAMBattery:       "MBC3+RAM+BATTERY",
	TypeMBC5:                 "MBC5",
	TypeMBC5RAM:              "MBC5+RAM",
	TypeMBC5RAMBattery:       "MBC5+RAM+BATTERY",
	TypeMBC5Rumble:           "MBC5+RUMBLE",
	TypeMBC5RumbleRAM:        "MBC5+RUMBLE+RAM",
	TypeMBC5RumbleRAMBattery: "MBC5+RUMBLE+RAM+BATTERY",
	TypePocketCamera:         "POCKET CAMERA",
	TypeHuC3:                 "HuC3",
	TypeHuC1RAMBattery:       "HuC1+RAM+BATTERY",
}

// String returns a human-readable name for the cartridge type.
func (t CartridgeType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN (0x%02X)", byte(t))
}

// Supported reports whether the type is served by this package's controller.
// ROM-only boards behave as an MBC1 whose bank register never leaves bank 1.
func (t CartridgeType) Supported() bool {
	switch t {
	case TypeROMOnly, TypeROMRAM, TypeROMRAMBattery,
		TypeMBC1, TypeMBC1RAM, TypeMBC1RAMBattery:
		return true
	default:
		return false
	}
}

// HasBattery returns true if the cartridge type includes a battery for save data.
func (t CartridgeType) HasBattery() bool {
	switch t {
	case TypeMBC1RAMBattery, TypeMBC2Battery, TypeROMRAMBattery,
		TypeMBC3TimerBattery, TypeMBC3TimerRAMBattery, TypeMBC3RAMBattery,
		TypeMBC5RAMBattery, TypeMBC5RumbleRAMBattery, TypeHuC1RAMBattery:
		return true
	default:
		return false
	}
}

// ROMBanks returns the number of 16 KiB ROM banks declared by the header.
func (h *Header) ROMBanks() int {
	if h.ROMSize <= 0x08 {
		return 2 << h.ROMSize
	}
	return 0
}

// RAMBanks returns the number of 8 KiB RAM banks declared by the header.
func (h *Header) RAMBanks() int {
	switch h.RAMSize {
	case 0x02:
		return 1
	case 0x03:
		return 4
	case 0x04:
		return 16
	case 0x05:
		return 8
	default:
		return 0
	}
}

// TitleString returns the cartridge title trimmed at the first NUL byte.
func (h *Header) TitleString() string {
	for i, b := range h.Title {
		if b == 0 {
			return string(h.Title[:i])
		}
	}
	return string(h.Title[:])
}

// ErrHeaderTruncated indicates the ROM data is too small to contain a header.
var ErrHeaderTruncated = errors.New("ROM too small to contain a cartridge header")

// ParseHeader parses the cartridge header from ROM data. A checksum mismatch is
// recorded in ChecksumValid rather than returned: homebrew and test images
// routinely ship without a valid header.
func ParseHeader(rom []byte) (*Header, error) {
	if len(rom) < 0x0150 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrHeaderTruncated, len(rom))
	}

	h := &Header{
		CGBFlag:         rom[0x0143],
		SGBFlag:         rom[0x0146],
		CartridgeType:   rom[0x0147],
		ROMSize:         rom[0x0148],
		RAMSize:         rom[0x0149],
		DestinationCode: rom[0x014A],
		MaskROMVersion:  rom[0x014C],
		HeaderChecksum:  rom[0x014D],
	}
	copy(h.EntryPoint[:], rom[0x0100:0x0104])
	copy(h.Title[:], rom[0x0134:0x0144])
	copy(h.GlobalChecksum[:], rom[0x014E:0x0150])

	h.ChecksumValid = ComputeHeaderChecksum(rom) == h.HeaderChecksum

	return h, nil
}

// ComputeHeaderChecksum computes the checksum over bytes 0x0134-0x014C.
// Formula: checksum = 0; for each byte: checksum = checksum - byte - 1.
func ComputeHeaderChecksum(rom []byte) byte {
	checksum := byte(0)
	for addr := 0x0134; addr <= 0x014C; addr++ {
		checksum = checksum - rom[addr] - 1
	}
	return checksum
}
