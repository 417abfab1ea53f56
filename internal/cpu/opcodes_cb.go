package cpu

import "strconv"

// cbOpcodes is the 0xCB-prefixed dispatch table. Cycle counts include the
// prefix byte.
var cbOpcodes [256]instruction

func buildCBOpcodes() {
	shifts := [8]struct {
		name string
		fn   func(*CPU, uint8) uint8
	}{
		{"RLC", (*CPU).rlc},
		{"RRC", (*CPU).rrc},
		{"RL", (*CPU).rl},
		{"RR", (*CPU).rr},
		{"SLA", (*CPU).sla},
		{"SRA", (*CPU).sra},
		{"SWAP", (*CPU).swap},
		{"SRL", (*CPU).srl},
	}

	for k, sh := range shifts {
		for r := range uint8(8) {
			code := uint8(k)<<3 | r //nolint:gosec // G115: k < 8
			cbOpcodes[code] = instruction{
				name: sh.name + " " + r8Names[r],
				exec: func(c *CPU) uint8 {
					c.setReg8(r, sh.fn(c, c.reg8(r)))
					return cost(r, 8, 16)
				},
			}
		}
	}

	for b := range uint8(8) {
		for r := range uint8(8) {
			operand := strconv.Itoa(int(b)) + "," + r8Names[r]
			cbOpcodes[0x40|b<<3|r] = instruction{
				name: "BIT " + operand,
				exec: func(c *CPU) uint8 {
					c.bit(c.reg8(r), b)
					return cost(r, 8, 12)
				},
			}
			cbOpcodes[0x80|b<<3|r] = instruction{
				name: "RES " + operand,
				exec: func(c *CPU) uint8 {
					c.setReg8(r, c.reg8(r)&^(1<<b))
					return cost(r, 8, 16)
				},
			}
			cbOpcodes[0xC0|b<<3|r] = instruction{
				name: "SET " + operand,
				exec: func(c *CPU) uint8 {
					c.setReg8(r, c.reg8(r)|1<<b)
					return cost(r, 8, 16)
				},
			}
		}
	}
}
