// Package apu implements the Game Boy audio register file (0xFF10-0xFF3F).
//
// No sound is synthesized. The registers hold what software writes, read back
// through the hardware's unused-bit masks, and follow the NR52 power switch:
// powering off clears every register except wave RAM and ignores writes
// until power returns. The channel status bits in NR52 latch on trigger.
package apu

// Register addresses.
const (
	NR10 = 0xFF10
	NR14 = 0xFF14
	NR24 = 0xFF19
	NR30 = 0xFF1A
	NR34 = 0xFF1E
	NR44 = 0xFF23
	NR50 = 0xFF24
	NR51 = 0xFF25
	NR52 = 0xFF26

	// WaveRAMStart is the first byte of the 16-byte wave pattern.
	WaveRAMStart = 0xFF30
)

const (
	base     = 0xFF10
	fileSize = 0x30
	powerBit = 0x80
)

// readMasks holds the bits that always read as 1, indexed from 0xFF10.
var readMasks = [fileSize]uint8{
	0x80, 0x3F, 0x00, 0xFF, 0xBF, // NR10-NR14
	0xFF, 0x3F, 0x00, 0xFF, 0xBF, // unused, NR21-NR24
	0x7F, 0xFF, 0x9F, 0xFF, 0xBF, // NR30-NR34
	0xFF, 0xFF, 0x00, 0x00, 0xBF, // unused, NR41-NR44
	0x00, 0x00, 0x70, // NR50-NR52
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, // 0xFF27-0xFF2F
}

// triggerChannels maps each NRx4 register to its NR52 status bit.
var triggerChannels = map[uint16]uint8{
	NR14: 0x01,
	NR24: 0x02,
	NR34: 0x04,
	NR44: 0x08,
}

// APU represents the Game Boy audio register file.
type APU struct {
	enabled  bool
	regs     [fileSize]uint8
	channels uint8 // NR52 bits 0-3
}

// New creates a new APU instance, powered on as the boot ROM leaves it.
func New() *APU {
	a := &APU{}
	a.Reset()
	return a
}

func inRange(addr uint16) bool {
	return addr >= base && addr < base+fileSize
}

// Enabled reports the NR52 master power state.
func (a *APU) Enabled() bool {
	return a.enabled
}

// Read reads an APU register.
func (a *APU) Read(addr uint16) uint8 {
	if !inRange(addr) {
		return 0xFF
	}
	if addr == NR52 {
		value := readMasks[NR52-base] | a.channels
		if a.enabled {
			value |= powerBit
		}
		return value
	}
	i := addr - base
	return a.regs[i] | readMasks[i]
}

// Write writes to an APU register.
func (a *APU) Write(addr uint16, value uint8) {
	switch {
	case !inRange(addr):
		return
	case addr == NR52:
		a.writeNR52(value)
		return
	case addr >= WaveRAMStart:
		// Wave RAM stays writable with the power off
		a.regs[addr-base] = value
		return
	case !a.enabled:
		return
	}

	a.regs[addr-base] = value
	if bit, ok := triggerChannels[addr]; ok && value&0x80 != 0 {
		a.channels |= bit
	}
	// Clearing the wave DAC silences channel 3
	if addr == NR30 && value&0x80 == 0 {
		a.channels &^= 0x04
	}
}

// writeNR52 switches the master power.
func (a *APU) writeNR52(value uint8) {
	wasEnabled := a.enabled
	a.enabled = value&powerBit != 0

	if wasEnabled && !a.enabled {
		clear(a.regs[:WaveRAMStart-base])
		a.channels = 0
	}
}

// Reset restores the post-boot register state.
func (a *APU) Reset() {
	clear(a.regs[:])
	a.enabled = true
	a.channels = 0x01
	a.regs[NR50-base] = 0x77
	a.regs[NR51-base] = 0xF3
}
