package cpu

// add8 performs 8-bit addition and sets flags. With carry set, the carry
// flag is added in and takes part in both the half-carry and carry results.
func (c *CPU) add8(a, b uint8, carry bool) uint8 {
	carryVal := uint8(0)
	if carry && c.Registers.CarryFlag() {
		carryVal = 1
	}

	result := a + b + carryVal

	c.Registers.SetFlagTo(FlagZ, result == 0)
	c.Registers.ClearFlag(FlagN)
	c.Registers.SetFlagTo(FlagH, (a&0x0F)+(b&0x0F)+carryVal > 0x0F)
	c.Registers.SetFlagTo(FlagC, uint16(a)+uint16(b)+uint16(carryVal) > 0xFF)

	return result
}

// sub8 performs 8-bit subtraction and sets flags. Borrows are computed
// against the subtrahend including the carry-in.
func (c *CPU) sub8(a, b uint8, carry bool) uint8 {
	carryVal := uint8(0)
	if carry && c.Registers.CarryFlag() {
		carryVal = 1
	}

	result := a - b - carryVal

	c.Registers.SetFlagTo(FlagZ, result == 0)
	c.Registers.SetFlag(FlagN)
	c.Registers.SetFlagTo(FlagH, (a&0x0F) < (b&0x0F)+carryVal)
	c.Registers.SetFlagTo(FlagC, uint16(a) < uint16(b)+uint16(carryVal))

	return result
}

// add16 performs 16-bit addition for ADD HL,rr. Z is not affected.
func (c *CPU) add16(a, b uint16) uint16 {
	result := a + b

	c.Registers.ClearFlag(FlagN)
	c.Registers.SetFlagTo(FlagH, (a&0x0FFF)+(b&0x0FFF) > 0x0FFF)
	c.Registers.SetFlagTo(FlagC, uint32(a)+uint32(b) > 0xFFFF)

	return result
}

// addSPSigned returns SP plus a signed 8-bit offset, as used by ADD SP,e and
// LD HL,SP+e. H and C come from the unsigned add of the low byte; Z and N
// are cleared.
func (c *CPU) addSPSigned(offset uint8) uint16 {
	sp := c.Registers.SP
	result := uint16(int32(sp) + int32(int8(offset))) //nolint:gosec // G115: Intentional signed offset with 16-bit wraparound

	c.Registers.ClearFlag(FlagZ)
	c.Registers.ClearFlag(FlagN)
	c.Registers.SetFlagTo(FlagH, (sp&0x0F)+uint16(offset&0x0F) > 0x0F)
	c.Registers.SetFlagTo(FlagC, (sp&0xFF)+uint16(offset) > 0xFF)

	return result
}

// and performs bitwise AND and sets flags.
func (c *CPU) and(value uint8) uint8 {
	result := c.Registers.A & value

	c.Registers.SetFlagTo(FlagZ, result == 0)
	c.Registers.ClearFlag(FlagN)
	c.Registers.SetFlag(FlagH)
	c.Registers.ClearFlag(FlagC)

	return result
}

// or performs bitwise OR and sets flags.
func (c *CPU) or(value uint8) uint8 {
	result := c.Registers.A | value
	c.setLogicFlags(result)
	return result
}

// xor performs bitwise XOR and sets flags.
func (c *CPU) xor(value uint8) uint8 {
	result := c.Registers.A ^ value
	c.setLogicFlags(result)
	return result
}

func (c *CPU) setLogicFlags(result uint8) {
	c.Registers.SetFlagTo(FlagZ, result == 0)
	c.Registers.ClearFlag(FlagN)
	c.Registers.ClearFlag(FlagH)
	c.Registers.ClearFlag(FlagC)
}

// cp performs compare (subtraction without storing result) and sets flags.
func (c *CPU) cp(value uint8) {
	c.sub8(c.Registers.A, value, false)
}

// alu runs operation op (ADD, ADC, SUB, SBC, AND, XOR, OR, CP) on A.
func (c *CPU) alu(op, value uint8) {
	switch op & 0x07 {
	case 0:
		c.Registers.A = c.add8(c.Registers.A, value, false)
	case 1:
		c.Registers.A = c.add8(c.Registers.A, value, true)
	case 2:
		c.Registers.A = c.sub8(c.Registers.A, value, false)
	case 3:
		c.Registers.A = c.sub8(c.Registers.A, value, true)
	case 4:
		c.Registers.A = c.and(value)
	case 5:
		c.Registers.A = c.xor(value)
	case 6:
		c.Registers.A = c.or(value)
	default:
		c.cp(value)
	}
}

// inc8 increments an 8-bit value and sets flags. Carry is not affected.
func (c *CPU) inc8(value uint8) uint8 {
	result := value + 1

	c.Registers.SetFlagTo(FlagZ, result == 0)
	c.Registers.ClearFlag(FlagN)
	c.Registers.SetFlagTo(FlagH, (value&0x0F) == 0x0F)

	return result
}

// dec8 decrements an 8-bit value and sets flags. Carry is not affected.
func (c *CPU) dec8(value uint8) uint8 {
	result := value - 1

	c.Registers.SetFlagTo(FlagZ, result == 0)
	c.Registers.SetFlag(FlagN)
	c.Registers.SetFlagTo(FlagH, (value&0x0F) == 0)

	return result
}

// daa adjusts A to packed BCD after an addition or subtraction.
func (c *CPU) daa() {
	a := c.Registers.A
	carry := c.Registers.CarryFlag()
	var adjust uint8

	if c.Registers.SubtractFlag() {
		if c.Registers.HalfCarryFlag() {
			adjust |= 0x06
		}
		if carry {
			adjust |= 0x60
		}
		a -= adjust
	} else {
		if c.Registers.HalfCarryFlag() || a&0x0F > 0x09 {
			adjust |= 0x06
		}
		if carry || a > 0x99 {
			adjust |= 0x60
			carry = true
		}
		a += adjust
	}

	c.Registers.A = a
	c.Registers.SetFlagTo(FlagZ, a == 0)
	c.Registers.ClearFlag(FlagH)
	c.Registers.SetFlagTo(FlagC, carry)
}

// Rotate and shift helpers. Each sets Z from the result; the accumulator
// forms clear Z afterwards.

func (c *CPU) setShiftFlags(result uint8, carry bool) {
	c.Registers.SetFlagTo(FlagZ, result == 0)
	c.Registers.ClearFlag(FlagN)
	c.Registers.ClearFlag(FlagH)
	c.Registers.SetFlagTo(FlagC, carry)
}

// rlc rotates left, bit 7 goes to both carry and bit 0.
func (c *CPU) rlc(value uint8) uint8 {
	result := value<<1 | value>>7
	c.setShiftFlags(result, value&0x80 != 0)
	return result
}

// rl rotates left through carry.
func (c *CPU) rl(value uint8) uint8 {
	carry := uint8(0)
	if c.Registers.CarryFlag() {
		carry = 1
	}
	result := value<<1 | carry
	c.setShiftFlags(result, value&0x80 != 0)
	return result
}

// rrc rotates right, bit 0 goes to both carry and bit 7.
func (c *CPU) rrc(value uint8) uint8 {
	result := value>>1 | value<<7
	c.setShiftFlags(result, value&0x01 != 0)
	return result
}

// rr rotates right through carry.
func (c *CPU) rr(value uint8) uint8 {
	carry := uint8(0)
	if c.Registers.CarryFlag() {
		carry = 0x80
	}
	result := value>>1 | carry
	c.setShiftFlags(result, value&0x01 != 0)
	return result
}

// sla shifts left arithmetic.
func (c *CPU) sla(value uint8) uint8 {
	result := value << 1
	c.setShiftFlags(result, value&0x80 != 0)
	return result
}

// sra shifts right arithmetic (preserves sign bit).
func (c *CPU) sra(value uint8) uint8 {
	result := value>>1 | value&0x80
	c.setShiftFlags(result, value&0x01 != 0)
	return result
}

// srl shifts right logical.
func (c *CPU) srl(value uint8) uint8 {
	result := value >> 1
	c.setShiftFlags(result, value&0x01 != 0)
	return result
}

// swap swaps upper and lower nibbles.
func (c *CPU) swap(value uint8) uint8 {
	result := value<<4 | value>>4
	c.setShiftFlags(result, false)
	return result
}

// bit tests a bit. Carry is not affected.
func (c *CPU) bit(value uint8, bit uint8) {
	c.Registers.SetFlagTo(FlagZ, value&(1<<bit) == 0)
	c.Registers.ClearFlag(FlagN)
	c.Registers.SetFlag(FlagH)
}
