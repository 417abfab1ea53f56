// Package input implements the Game Boy joypad register (P1/JOYP, 0xFF00).
//
// The front end polls its keyboard and hands the joypad two active-low
// nibbles per step: one for the direction pad and one for the action buttons.
// A cleared bit means the button is held.
package input

// Button identifies one of the eight Game Boy buttons.
type Button uint8

// Buttons. The first four map to the direction nibble, the last four to the
// action nibble, both in hardware bit order.
const (
	ButtonRight Button = iota
	ButtonLeft
	ButtonUp
	ButtonDown
	ButtonA
	ButtonB
	ButtonSelect
	ButtonStart
)

var buttonNames = [8]string{"Right", "Left", "Up", "Down", "A", "B", "Select", "Start"}

func (b Button) String() string {
	if int(b) < len(buttonNames) {
		return buttonNames[b]
	}
	return "Unknown"
}

// Released is the nibble value with no button held.
const Released = 0x0F

// InterruptJoypad is the IF bit raised when a selected line goes low.
const InterruptJoypad = 4

const (
	selectDirectionBit = 0x10 // P14
	selectActionBit    = 0x20 // P15
)

// Masks converts a set of held buttons into the direction and action nibbles.
func Masks(held ...Button) (directions, actions uint8) {
	directions, actions = Released, Released
	for _, b := range held {
		switch {
		case b <= ButtonDown:
			directions &^= 1 << b
		case b <= ButtonStart:
			actions &^= 1 << (b - ButtonA)
		}
	}
	return directions, actions
}

// Joypad represents the Game Boy joypad state and P1/JOYP register.
type Joypad struct {
	// Selection bits as written by the CPU (0 = selected)
	selectBits uint8

	directions uint8
	actions    uint8

	// Interrupt callback
	requestInterrupt func(uint8)
}

// New creates a new Joypad instance with nothing selected and nothing held.
func New(requestInterrupt func(uint8)) *Joypad {
	return &Joypad{
		selectBits:       selectActionBit | selectDirectionBit,
		directions:       Released,
		actions:          Released,
		requestInterrupt: requestInterrupt,
	}
}

// lines returns the low nibble as seen through the current selection.
func (j *Joypad) lines() uint8 {
	result := uint8(Released)
	if j.selectBits&selectDirectionBit == 0 {
		result &= j.directions
	}
	if j.selectBits&selectActionBit == 0 {
		result &= j.actions
	}
	return result
}

// Read returns the P1/JOYP register value (0xFF00).
func (j *Joypad) Read() uint8 {
	return 0xC0 | j.selectBits | j.lines()
}

// Write updates the P1/JOYP register. Only bits 4-5 are writable; the low
// nibble is driven by the buttons.
func (j *Joypad) Write(value uint8) {
	before := j.lines()
	j.selectBits = value & (selectActionBit | selectDirectionBit)
	j.checkFalling(before)
}

// SetState replaces the held buttons. Holding both buttons of an opposing
// pair keeps whichever was already held and drops the other.
func (j *Joypad) SetState(directions, actions uint8) {
	before := j.lines()
	j.directions = filterOpposites(j.directions, directions&Released)
	j.actions = actions & Released
	j.checkFalling(before)
}

// State returns the held buttons as active-low direction and action nibbles.
func (j *Joypad) State() (directions, actions uint8) {
	return j.directions, j.actions
}

// AnyPressed reports whether any button is held, regardless of selection.
func (j *Joypad) AnyPressed() bool {
	return j.directions != Released || j.actions != Released
}

// checkFalling requests the joypad interrupt when a selected line went from
// high to low.
func (j *Joypad) checkFalling(before uint8) {
	if before&^j.lines() != 0 && j.requestInterrupt != nil {
		j.requestInterrupt(InterruptJoypad)
	}
}

func filterOpposites(prev, next uint8) uint8 {
	for _, pair := range [2]uint8{0x03, 0x0C} { // Right|Left, Up|Down
		if next&pair != 0 {
			continue
		}
		held := ^prev & pair
		if held == pair || held == 0 {
			next |= pair
		} else {
			next |= pair &^ held
		}
	}
	return next
}
