// Package timer implements the Game Boy timer system.
//
// The timer system consists of:
//   - DIV: Divider register (upper 8 bits of a free-running 16-bit counter)
//   - TIMA: Timer counter (increments at configurable rate)
//   - TMA: Timer modulo (value to reload into TIMA on overflow)
//   - TAC: Timer control (enable and clock select)
//
// TIMA increments on the falling edge of one bit of the internal counter,
// selected by TAC. Overflow reloads TMA and requests the timer interrupt.
package timer

// InterruptCallback is the function type for timer interrupt requests.
type InterruptCallback func()

// Register addresses.
const (
	DIV  = 0xFF04
	TIMA = 0xFF05
	TMA  = 0xFF06
	TAC  = 0xFF07
)

const (
	tacEnableBit = 0x04
	tacClockMask = 0x03
)

// clockBits maps TAC clock select to the counter bit whose falling edge
// clocks TIMA: 4096 Hz, 262144 Hz, 65536 Hz, 16384 Hz.
var clockBits = [4]uint{9, 3, 5, 7}

// Timer represents the Game Boy timer system.
type Timer struct {
	counter uint16 // DIV is the upper byte
	tima    uint8
	tma     uint8
	tac     uint8

	requestInterrupt InterruptCallback
}

// New creates a new Timer with the given interrupt callback.
func New(requestInterrupt InterruptCallback) *Timer {
	return &Timer{
		requestInterrupt: requestInterrupt,
	}
}

func (t *Timer) enabled() bool {
	return t.tac&tacEnableBit != 0
}

// selectedBit reports the level of the TAC-selected counter bit, gated by the
// enable bit. TIMA ticks on a 1->0 transition of this signal.
func (t *Timer) selectedBit(counter uint16, tac uint8) bool {
	if tac&tacEnableBit == 0 {
		return false
	}
	return counter&(1<<clockBits[tac&tacClockMask]) != 0
}

// Read reads a timer register.
func (t *Timer) Read(addr uint16) uint8 {
	switch addr {
	case DIV:
		return uint8(t.counter >> 8) //nolint:gosec // DIV is upper 8 bits
	case TIMA:
		return t.tima
	case TMA:
		return t.tma
	case TAC:
		return t.tac | 0xF8 // Upper 5 bits read as 1
	}
	return 0xFF
}

// Write writes to a timer register.
func (t *Timer) Write(addr uint16, value uint8) {
	switch addr {
	case DIV:
		// Resetting the counter can itself produce a falling edge.
		if t.selectedBit(t.counter, t.tac) {
			t.incrementTIMA()
		}
		t.counter = 0

	case TIMA:
		t.tima = value

	case TMA:
		t.tma = value

	case TAC:
		oldBit := t.selectedBit(t.counter, t.tac)
		t.tac = value & 0x07
		if oldBit && !t.selectedBit(t.counter, t.tac) {
			t.incrementTIMA()
		}
	}
}

// Update advances the timer by the given number of clock cycles.
// The counter wraps at 65536, matching hardware.
func (t *Timer) Update(cycles uint16) {
	start := t.counter
	t.counter += cycles

	if !t.enabled() {
		return
	}

	edges := countFallingEdges(start, cycles, clockBits[t.tac&tacClockMask])
	for i := uint32(0); i < edges; i++ {
		t.incrementTIMA()
	}
}

// countFallingEdges counts 1->0 transitions of counter bit n while the counter
// advances from start by cycles steps. Bit n falls at every multiple of
// 2^(n+1), so this is the number of such multiples in (start, start+cycles].
// 32-bit arithmetic keeps the uint16 wraparound out of the way.
func countFallingEdges(start, cycles uint16, bit uint) uint32 {
	period := uint32(1) << (bit + 1)
	from := uint32(start)
	to := from + uint32(cycles)
	return to/period - from/period
}

// incrementTIMA increments the timer counter and handles overflow.
func (t *Timer) incrementTIMA() {
	t.tima++

	if t.tima == 0 {
		t.tima = t.tma
		if t.requestInterrupt != nil {
			t.requestInterrupt()
		}
	}
}

// Reset resets the timer to initial state.
func (t *Timer) Reset() {
	t.counter = 0
	t.tima = 0
	t.tma = 0
	t.tac = 0
}
