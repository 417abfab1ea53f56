package cartridge

import (
	"errors"
	"testing"
)

// newTestROM builds a ROM image of the given size with a valid header.
func newTestROM(size int, cartType, romSize, ramSize byte) []byte {
	rom := make([]byte, size)
	copy(rom[0x0134:], "DOTMATRIX")
	rom[0x0147] = cartType
	rom[0x0148] = romSize
	rom[0x0149] = ramSize
	rom[0x014D] = ComputeHeaderChecksum(rom)
	return rom
}

func TestParseHeader(t *testing.T) {
	rom := newTestROM(0x8000, byte(TypeMBC1RAMBattery), 0x00, 0x03)
	rom[0x0100] = 0x00 // NOP
	rom[0x0101] = 0xC3 // JP 0x0150
	rom[0x0102] = 0x50
	rom[0x0103] = 0x01
	rom[0x014D] = ComputeHeaderChecksum(rom)

	header, err := ParseHeader(rom)
	if err != nil {
		t.Fatalf("ParseHeader() error = %v", err)
	}

	if got := header.TitleString(); got != "DOTMATRIX" {
		t.Errorf("TitleString() = %q, want %q", got, "DOTMATRIX")
	}
	if header.EntryPoint != [4]byte{0x00, 0xC3, 0x50, 0x01} {
		t.Errorf("EntryPoint = % X", header.EntryPoint)
	}
	if CartridgeType(header.CartridgeType) != TypeMBC1RAMBattery {
		t.Errorf("CartridgeType = 0x%02X, want 0x03", header.CartridgeType)
	}
	if header.RAMBanks() != 4 {
		t.Errorf("RAMBanks() = %d, want 4", header.RAMBanks())
	}
	if !header.ChecksumValid {
		t.Error("ChecksumValid = false, want true")
	}
}

func TestParseHeaderTruncated(t *testing.T) {
	_, err := ParseHeader(make([]byte, 0x014F))
	if !errors.Is(err, ErrHeaderTruncated) {
		t.Errorf("ParseHeader() error = %v, want ErrHeaderTruncated", err)
	}
}

func TestParseHeaderBadChecksumIsNotFatal(t *testing.T) {
	rom := newTestROM(0x8000, 0x00, 0x00, 0x00)
	rom[0x014D]++

	header, err := ParseHeader(rom)
	if err != nil {
		t.Fatalf("ParseHeader() error = %v, want nil", err)
	}
	if header.ChecksumValid {
		t.Error("ChecksumValid = true for corrupted checksum")
	}
}

func TestHeaderROMBanks(t *testing.T) {
	tests := []struct {
		code byte
		want int
	}{
		{0x00, 2},
		{0x01, 4},
		{0x05, 64},
		{0x08, 512},
		{0x09, 0},
	}

	for _, tt := range tests {
		h := &Header{ROMSize: tt.code}
		if got := h.ROMBanks(); got != tt.want {
			t.Errorf("ROMBanks() for 0x%02X = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestHeaderRAMBanks(t *testing.T) {
	tests := []struct {
		code byte
		want int
	}{
		{0x00, 0},
		{0x01, 0},
		{0x02, 1},
		{0x03, 4},
		{0x04, 16},
		{0x05, 8},
	}

	for _, tt := range tests {
		h := &Header{RAMSize: tt.code}
		if got := h.RAMBanks(); got != tt.want {
			t.Errorf("RAMBanks() for 0x%02X = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestCartridgeTypeString(t *testing.T) {
	tests := []struct {
		t    CartridgeType
		want string
	}{
		{TypeROMOnly, "ROM ONLY"},
		{TypeMBC1RAMBattery, "MBC1+RAM+BATTERY"},
		{TypeMBC5, "MBC5"},
		{CartridgeType(0x42), "UNKNOWN (0x42)"},
	}

	for _, tt := range tests {
		if got := tt.t.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestCartridgeTypeHasBattery(t *testing.T) {
	if !TypeMBC1RAMBattery.HasBattery() {
		t.Error("MBC1+RAM+BATTERY should have battery")
	}
	if TypeMBC1RAM.HasBattery() {
		t.Error("MBC1+RAM should not have battery")
	}
}

func TestTitleStringFullWidth(t *testing.T) {
	h := &Header{}
	copy(h.Title[:], "ABCDEFGHIJKLMNOP")
	if got := h.TitleString(); got != "ABCDEFGHIJKLMNOP" {
		t.Errorf("TitleString() = %q", got)
	}
}
