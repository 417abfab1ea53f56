package cartridge

// MBC1 represents a cartridge with MBC1 (Memory Bank Controller 1).
// MBC1 supports up to 2 MiB of ROM and 32 KiB of RAM; larger images keep
// wrapping the bank number over the banks actually present.
//
// Memory Map:
// - 0x0000-0x3FFF: ROM Bank 00 (fixed, or bank 0x00/0x20/0x40/0x60 in mode 1)
// - 0x4000-0x7FFF: ROM Bank 01-7F (switchable)
// - 0xA000-0xBFFF: RAM Bank 00-03 (switchable)
//
// Control Registers (write-only):
// - 0x0000-0x1FFF: RAM Enable (exactly 0x0A enables, anything else disables)
// - 0x2000-0x3FFF: ROM Bank Number (lower 5 bits, 0 reads as 1)
// - 0x4000-0x5FFF: RAM Bank Number / ROM Bank Number (upper 2 bits)
// - 0x6000-0x7FFF: Banking Mode Select (0 = simple ROM, 1 = advanced RAM/ROM)
type MBC1 struct {
	header *Header
	rom    []byte
	ram    []byte

	ramEnabled  bool
	romBank     uint8 // 5-bit register, never 0
	upperBits   uint8 // 2-bit secondary register
	bankingMode uint8

	numROMBanks int
	numRAMBanks int
	romMask     int
}

// newMBC1 creates a new MBC1 cartridge. The bank count comes from the image
// length so truncated or header-less images still bank correctly. At least
// one RAM bank is always present.
func newMBC1(rom []byte, header *Header) *MBC1 {
	numROMBanks := (len(rom) + BankSize - 1) / BankSize
	numRAMBanks := header.RAMBanks()
	if numRAMBanks == 0 {
		numRAMBanks = 1
	}

	// Bank lines beyond the chip size are not connected, so bank numbers
	// are masked to the next power of two.
	romMask := 1
	for romMask < numROMBanks {
		romMask <<= 1
	}

	return &MBC1{
		header:      header,
		rom:         rom,
		ram:         make([]byte, numRAMBanks*RAMBankSize),
		romBank:     1,
		numROMBanks: numROMBanks,
		numRAMBanks: numRAMBanks,
		romMask:     romMask - 1,
	}
}

// lowBank returns the bank mapped at 0x0000-0x3FFF.
func (c *MBC1) lowBank() int {
	if c.bankingMode == 0 {
		return 0
	}
	return (int(c.upperBits) << 5) & c.romMask
}

// highBank returns the bank mapped at 0x4000-0x7FFF. The low register is
// never 0, so 0x00/0x20/0x40/0x60 resolve to 0x01/0x21/0x41/0x61, and a
// selection that masks down to bank 0 on a small image also lands on bank 1.
func (c *MBC1) highBank() int {
	bank := (int(c.upperBits)<<5 | int(c.romBank)) & c.romMask
	if bank == 0 {
		bank = 1
	}
	return bank
}

func (c *MBC1) ramBank() int {
	if c.bankingMode == 0 {
		return 0
	}
	return int(c.upperBits) % c.numRAMBanks
}

func (c *MBC1) romAt(bank int, offset uint16) uint8 {
	index := bank*BankSize + int(offset)
	if index < len(c.rom) {
		return c.rom[index]
	}
	return 0xFF
}

// Read reads a byte from the cartridge.
func (c *MBC1) Read(addr uint16) uint8 {
	switch {
	case addr < 0x4000:
		return c.romAt(c.lowBank(), addr)
	case addr < 0x8000:
		return c.romAt(c.highBank(), addr-0x4000)
	case addr >= 0xA000 && addr < 0xC000:
		if !c.ramEnabled {
			return 0xFF
		}
		return c.ram[c.ramBank()*RAMBankSize+int(addr-0xA000)]
	default:
		return 0xFF
	}
}

// Write writes a byte to the cartridge. Writes into 0x0000-0x7FFF only ever
// reach the bank registers; ROM contents are never modified.
func (c *MBC1) Write(addr uint16, value uint8) {
	switch {
	case addr < 0x2000:
		c.ramEnabled = value == 0x0A

	case addr < 0x4000:
		c.romBank = value & 0x1F
		if c.romBank == 0 {
			c.romBank = 1
		}

	case addr < 0x6000:
		c.upperBits = value & 0x03

	case addr < 0x8000:
		c.bankingMode = value & 0x01

	case addr >= 0xA000 && addr < 0xC000:
		if !c.ramEnabled {
			return
		}
		c.ram[c.ramBank()*RAMBankSize+int(addr-0xA000)] = value
	}
}

// Header returns the cartridge header.
func (c *MBC1) Header() *Header {
	return c.header
}

// HasBattery returns true if the cartridge has battery-backed RAM.
func (c *MBC1) HasBattery() bool {
	return CartridgeType(c.header.CartridgeType).HasBattery()
}

// RAM returns a copy of the external RAM.
func (c *MBC1) RAM() []byte {
	ramCopy := make([]byte, len(c.ram))
	copy(ramCopy, c.ram)
	return ramCopy
}

// LoadRAM copies save data into the external RAM, truncating to its size.
func (c *MBC1) LoadRAM(data []byte) {
	copy(c.ram, data)
}

// Banks reports the current banking state.
func (c *MBC1) Banks() BankState {
	return BankState{
		ROMBank:    c.highBank(),
		LowROMBank: c.lowBank(),
		RAMBank:    c.ramBank(),
		RAMEnabled: c.ramEnabled,
		Mode:       c.bankingMode,
	}
}
