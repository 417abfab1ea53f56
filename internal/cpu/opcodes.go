package cpu

import "fmt"

// instruction is one entry of a dispatch table. exec runs the instruction
// with PC already past the opcode byte and returns the cycles taken.
type instruction struct {
	name string
	exec func(c *CPU) uint8
}

// opcodes is the unprefixed dispatch table. Entries with a nil exec are
// illegal opcodes; 0xCB is decoded by Step itself.
var opcodes [256]instruction

// Operand names in the encodings used by the opcode bit fields.
var (
	r8Names       = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
	r16Names      = [4]string{"BC", "DE", "HL", "SP"}
	stackNames    = [4]string{"BC", "DE", "HL", "AF"}
	indirectNames = [4]string{"(BC)", "(DE)", "(HL+)", "(HL-)"}
	condNames     = [4]string{"NZ", "Z", "NC", "C"}
	aluNames      = [8]string{"ADD A,", "ADC A,", "SUB ", "SBC A,", "AND ", "XOR ", "OR ", "CP "}
)

func init() {
	buildOpcodes()
	buildCBOpcodes()
}

// Mnemonic returns the assembler name of an opcode. Illegal opcodes return
// an empty string.
func Mnemonic(opcode uint8, prefixed bool) string {
	if prefixed {
		return cbOpcodes[opcode].name
	}
	return opcodes[opcode].name
}

// Legal reports whether an unprefixed opcode has defined behavior.
func Legal(opcode uint8) bool {
	return opcode == 0xCB || opcodes[opcode].exec != nil
}

// cost returns base, or withHL when operand r is (HL).
func cost(r, base, withHL uint8) uint8 {
	if r == 6 {
		return withHL
	}
	return base
}

//nolint:gocognit,gocyclo // One block per opcode family
func buildOpcodes() {
	op := func(code uint8, name string, exec func(c *CPU) uint8) {
		opcodes[code] = instruction{name: name, exec: exec}
	}

	// Misc and control
	op(0x00, "NOP", func(*CPU) uint8 { return 4 })
	op(0x10, "STOP", func(c *CPU) uint8 {
		c.fetchByte() // STOP is 2 bytes
		c.stop()
		return 4
	})
	op(0x76, "HALT", func(c *CPU) uint8 {
		c.halt()
		return 4
	})
	op(0xF3, "DI", func(c *CPU) uint8 {
		c.scheduleIME(false)
		return 4
	})
	op(0xFB, "EI", func(c *CPU) uint8 {
		c.scheduleIME(true)
		return 4
	})
	opcodes[0xCB].name = "PREFIX CB"

	// 16-bit loads and arithmetic, one block per register pair
	for p := range uint8(4) {
		op(0x01|p<<4, "LD "+r16Names[p]+",nn", func(c *CPU) uint8 {
			c.Registers.setPair(p, c.fetchWord())
			return 12
		})
		op(0x03|p<<4, "INC "+r16Names[p], func(c *CPU) uint8 {
			c.Registers.setPair(p, c.Registers.pair(p)+1)
			return 8
		})
		op(0x09|p<<4, "ADD HL,"+r16Names[p], func(c *CPU) uint8 {
			c.Registers.SetHL(c.add16(c.Registers.HL(), c.Registers.pair(p)))
			return 8
		})
		op(0x0B|p<<4, "DEC "+r16Names[p], func(c *CPU) uint8 {
			c.Registers.setPair(p, c.Registers.pair(p)-1)
			return 8
		})
		op(0xC1|p<<4, "POP "+stackNames[p], func(c *CPU) uint8 {
			c.Registers.setStackPair(p, c.pop())
			return 12
		})
		op(0xC5|p<<4, "PUSH "+stackNames[p], func(c *CPU) uint8 {
			c.push(c.Registers.stackPair(p))
			return 16
		})
		op(0x02|p<<4, "LD "+indirectNames[p]+",A", func(c *CPU) uint8 {
			c.Memory.Write(c.indirectAddr(p), c.Registers.A)
			return 8
		})
		op(0x0A|p<<4, "LD A,"+indirectNames[p], func(c *CPU) uint8 {
			c.Registers.A = c.Memory.Read(c.indirectAddr(p))
			return 8
		})
	}
	op(0x08, "LD (nn),SP", func(c *CPU) uint8 {
		addr := c.fetchWord()
		c.Memory.Write(addr, uint8(c.Registers.SP))      //nolint:gosec // G115: Intentional byte extraction
		c.Memory.Write(addr+1, uint8(c.Registers.SP>>8)) //nolint:gosec // G115: Intentional byte extraction
		return 20
	})
	op(0xE8, "ADD SP,e", func(c *CPU) uint8 {
		c.Registers.SP = c.addSPSigned(c.fetchByte())
		return 16
	})
	op(0xF8, "LD HL,SP+e", func(c *CPU) uint8 {
		c.Registers.SetHL(c.addSPSigned(c.fetchByte()))
		return 12
	})
	op(0xF9, "LD SP,HL", func(c *CPU) uint8 {
		c.Registers.SP = c.Registers.HL()
		return 8
	})

	// 8-bit INC/DEC and immediate loads
	for r := range uint8(8) {
		op(0x04|r<<3, "INC "+r8Names[r], func(c *CPU) uint8 {
			c.setReg8(r, c.inc8(c.reg8(r)))
			return cost(r, 4, 12)
		})
		op(0x05|r<<3, "DEC "+r8Names[r], func(c *CPU) uint8 {
			c.setReg8(r, c.dec8(c.reg8(r)))
			return cost(r, 4, 12)
		})
		op(0x06|r<<3, "LD "+r8Names[r]+",n", func(c *CPU) uint8 {
			c.setReg8(r, c.fetchByte())
			return cost(r, 8, 12)
		})
	}

	// Accumulator rotates always clear Z
	accRotates := []struct {
		code uint8
		name string
		fn   func(*CPU, uint8) uint8
	}{
		{0x07, "RLCA", (*CPU).rlc},
		{0x0F, "RRCA", (*CPU).rrc},
		{0x17, "RLA", (*CPU).rl},
		{0x1F, "RRA", (*CPU).rr},
	}
	for _, rot := range accRotates {
		op(rot.code, rot.name, func(c *CPU) uint8 {
			c.Registers.A = rot.fn(c, c.Registers.A)
			c.Registers.ClearFlag(FlagZ)
			return 4
		})
	}

	op(0x27, "DAA", func(c *CPU) uint8 {
		c.daa()
		return 4
	})
	op(0x2F, "CPL", func(c *CPU) uint8 {
		c.Registers.A = ^c.Registers.A
		c.Registers.SetFlag(FlagN)
		c.Registers.SetFlag(FlagH)
		return 4
	})
	op(0x37, "SCF", func(c *CPU) uint8 {
		c.Registers.ClearFlag(FlagN)
		c.Registers.ClearFlag(FlagH)
		c.Registers.SetFlag(FlagC)
		return 4
	})
	op(0x3F, "CCF", func(c *CPU) uint8 {
		c.Registers.ClearFlag(FlagN)
		c.Registers.ClearFlag(FlagH)
		c.Registers.SetFlagTo(FlagC, !c.Registers.CarryFlag())
		return 4
	})

	// LD r,r' (0x76 is HALT)
	for dst := range uint8(8) {
		for src := range uint8(8) {
			code := 0x40 | dst<<3 | src
			if code == 0x76 {
				continue
			}
			cycles := cost(dst, cost(src, 4, 8), 8)
			op(code, "LD "+r8Names[dst]+","+r8Names[src], func(c *CPU) uint8 {
				c.setReg8(dst, c.reg8(src))
				return cycles
			})
		}
	}

	// ALU A,r / ALU A,n / RST
	for k := range uint8(8) {
		for r := range uint8(8) {
			op(0x80|k<<3|r, aluNames[k]+r8Names[r], func(c *CPU) uint8 {
				c.alu(k, c.reg8(r))
				return cost(r, 4, 8)
			})
		}
		op(0xC6|k<<3, aluNames[k]+"n", func(c *CPU) uint8 {
			c.alu(k, c.fetchByte())
			return 8
		})
		op(0xC7|k<<3, fmt.Sprintf("RST %02XH", k*8), func(c *CPU) uint8 {
			c.push(c.Registers.PC)
			c.Registers.PC = uint16(k) * 8
			return 16
		})
	}

	// Jumps, calls and returns
	op(0x18, "JR e", func(c *CPU) uint8 {
		return c.jr(true)
	})
	op(0xC3, "JP nn", func(c *CPU) uint8 {
		c.Registers.PC = c.fetchWord()
		return 16
	})
	op(0xE9, "JP HL", func(c *CPU) uint8 {
		c.Registers.PC = c.Registers.HL()
		return 4
	})
	op(0xCD, "CALL nn", func(c *CPU) uint8 {
		addr := c.fetchWord()
		c.push(c.Registers.PC)
		c.Registers.PC = addr
		return 24
	})
	op(0xC9, "RET", func(c *CPU) uint8 {
		c.Registers.PC = c.pop()
		return 16
	})
	op(0xD9, "RETI", func(c *CPU) uint8 {
		c.Registers.PC = c.pop()
		c.IME = true
		return 16
	})
	for cc := range uint8(4) {
		op(0x20|cc<<3, "JR "+condNames[cc]+",e", func(c *CPU) uint8 {
			return c.jr(c.checkCondition(cc))
		})
		op(0xC0|cc<<3, "RET "+condNames[cc], func(c *CPU) uint8 {
			if !c.checkCondition(cc) {
				return 8
			}
			c.Registers.PC = c.pop()
			return 20
		})
		op(0xC2|cc<<3, "JP "+condNames[cc]+",nn", func(c *CPU) uint8 {
			addr := c.fetchWord()
			if !c.checkCondition(cc) {
				return 12
			}
			c.Registers.PC = addr
			return 16
		})
		op(0xC4|cc<<3, "CALL "+condNames[cc]+",nn", func(c *CPU) uint8 {
			addr := c.fetchWord()
			if !c.checkCondition(cc) {
				return 12
			}
			c.push(c.Registers.PC)
			c.Registers.PC = addr
			return 24
		})
	}

	// High page and absolute loads
	op(0xE0, "LDH (n),A", func(c *CPU) uint8 {
		c.Memory.Write(0xFF00|uint16(c.fetchByte()), c.Registers.A)
		return 12
	})
	op(0xF0, "LDH A,(n)", func(c *CPU) uint8 {
		c.Registers.A = c.Memory.Read(0xFF00 | uint16(c.fetchByte()))
		return 12
	})
	op(0xE2, "LD (C),A", func(c *CPU) uint8 {
		c.Memory.Write(0xFF00|uint16(c.Registers.C), c.Registers.A)
		return 8
	})
	op(0xF2, "LD A,(C)", func(c *CPU) uint8 {
		c.Registers.A = c.Memory.Read(0xFF00 | uint16(c.Registers.C))
		return 8
	})
	op(0xEA, "LD (nn),A", func(c *CPU) uint8 {
		c.Memory.Write(c.fetchWord(), c.Registers.A)
		return 16
	})
	op(0xFA, "LD A,(nn)", func(c *CPU) uint8 {
		c.Registers.A = c.Memory.Read(c.fetchWord())
		return 16
	})
}

// jr reads the signed offset and jumps when taken.
func (c *CPU) jr(taken bool) uint8 {
	offset := int8(c.fetchByte()) //nolint:gosec // G115: Intentional signed conversion
	if !taken {
		return 8
	}
	c.Registers.PC = uint16(int32(c.Registers.PC) + int32(offset)) //nolint:gosec // G115: 16-bit wraparound
	return 12
}

// indirectAddr returns the address for LD (rr),A and LD A,(rr). HL+ and HL-
// adjust HL after use.
func (c *CPU) indirectAddr(p uint8) uint16 {
	switch p & 0x03 {
	case 0:
		return c.Registers.BC()
	case 1:
		return c.Registers.DE()
	case 2:
		hl := c.Registers.HL()
		c.Registers.SetHL(hl + 1)
		return hl
	default:
		hl := c.Registers.HL()
		c.Registers.SetHL(hl - 1)
		return hl
	}
}
