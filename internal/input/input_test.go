package input

import "testing"

func TestJoypadRead_NoButtonsPressed(t *testing.T) {
	j := New(nil)

	// Default state: nothing selected, no buttons pressed
	if got := j.Read(); got != 0xFF {
		t.Errorf("Read() = 0x%02X, want 0xFF", got)
	}
}

func TestJoypadRead_ActionButtonsSelected(t *testing.T) {
	j := New(nil)
	j.Write(0xDF) // P15=0, P14=1

	j.SetState(Masks(ButtonA))

	// 11011110: A pressed clears bit 0
	if got := j.Read(); got != 0xDE {
		t.Errorf("Read() = 0x%02X, want 0xDE", got)
	}
}

func TestJoypadRead_DirectionButtonsSelected(t *testing.T) {
	j := New(nil)
	j.Write(0xEF) // P15=1, P14=0

	j.SetState(Masks(ButtonUp))

	// 11101011: Up pressed clears bit 2
	if got := j.Read(); got != 0xEB {
		t.Errorf("Read() = 0x%02X, want 0xEB", got)
	}
}

func TestJoypadRead_MultipleActionButtons(t *testing.T) {
	j := New(nil)
	j.Write(0xDF)

	j.SetState(Masks(ButtonA, ButtonB, ButtonStart))

	if got := j.Read(); got != 0xD4 {
		t.Errorf("Read() = 0x%02X, want 0xD4", got)
	}
}

func TestJoypadRead_BothGroupsSelected(t *testing.T) {
	j := New(nil)
	j.Write(0xCF)

	// Right (bit 0) from directions, B (bit 1) from actions
	j.SetState(Masks(ButtonRight, ButtonB))

	if got := j.Read(); got != 0xCC {
		t.Errorf("Read() = 0x%02X, want 0xCC", got)
	}
}

func TestJoypadRead_NoSelectionHidesButtons(t *testing.T) {
	j := New(nil)
	j.Write(0xF0) // lower nibble writes are ignored
	j.SetState(Masks(ButtonA, ButtonDown))

	if got := j.Read(); got != 0xFF {
		t.Errorf("Read() = 0x%02X, want 0xFF", got)
	}
}

func TestJoypadWrite_SelectionBits(t *testing.T) {
	tests := []struct {
		value uint8
		want  uint8
	}{
		{0x00, 0xC0 | Released},
		{0x10, 0xD0 | Released},
		{0x20, 0xE0 | Released},
		{0x30, 0xF0 | Released},
		{0xFF, 0xF0 | Released},
	}

	for _, tt := range tests {
		j := New(nil)
		j.Write(tt.value)
		if got := j.Read(); got != tt.want {
			t.Errorf("Write(0x%02X): Read() = 0x%02X, want 0x%02X", tt.value, got, tt.want)
		}
	}
}

func TestMasks(t *testing.T) {
	tests := []struct {
		name     string
		held     []Button
		wantDirs uint8
		wantActs uint8
	}{
		{"nothing", nil, 0x0F, 0x0F},
		{"right", []Button{ButtonRight}, 0x0E, 0x0F},
		{"down", []Button{ButtonDown}, 0x07, 0x0F},
		{"a", []Button{ButtonA}, 0x0F, 0x0E},
		{"start", []Button{ButtonStart}, 0x0F, 0x07},
		{"left+select", []Button{ButtonLeft, ButtonSelect}, 0x0D, 0x0B},
		{"unknown ignored", []Button{Button(9)}, 0x0F, 0x0F},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dirs, acts := Masks(tt.held...)
			if dirs != tt.wantDirs || acts != tt.wantActs {
				t.Errorf("Masks() = (0x%X, 0x%X), want (0x%X, 0x%X)", dirs, acts, tt.wantDirs, tt.wantActs)
			}
		})
	}
}

func TestOppositeDirectionBlocking_UpDown(t *testing.T) {
	j := New(nil)

	j.SetState(Masks(ButtonDown))
	j.SetState(Masks(ButtonDown, ButtonUp))

	dirs, _ := j.State()
	if dirs != 0x07 {
		t.Errorf("directions = 0x%X, want 0x7 (Down kept, Up dropped)", dirs)
	}

	// Release Down, then Up registers
	j.SetState(Masks(ButtonUp))
	dirs, _ = j.State()
	if dirs != 0x0B {
		t.Errorf("directions = 0x%X, want 0xB", dirs)
	}
}

func TestOppositeDirectionBlocking_LeftRight(t *testing.T) {
	j := New(nil)

	j.SetState(Masks(ButtonRight))
	j.SetState(Masks(ButtonRight, ButtonLeft))

	dirs, _ := j.State()
	if dirs != 0x0E {
		t.Errorf("directions = 0x%X, want 0xE (Right kept, Left dropped)", dirs)
	}
}

func TestOppositeDirectionsBothNew(t *testing.T) {
	j := New(nil)

	j.SetState(Masks(ButtonLeft, ButtonRight, ButtonUp))

	dirs, _ := j.State()
	if dirs != 0x0B {
		t.Errorf("directions = 0x%X, want 0xB (pair dropped, Up kept)", dirs)
	}
}

func TestJoypadInterrupt(t *testing.T) {
	var requests []uint8
	j := New(func(bit uint8) { requests = append(requests, bit) })
	j.Write(0x10) // select actions

	j.SetState(Masks(ButtonA))

	if len(requests) != 1 || requests[0] != InterruptJoypad {
		t.Fatalf("interrupt requests = %v, want [%d]", requests, InterruptJoypad)
	}
}

func TestJoypadInterrupt_OnlyOnPress(t *testing.T) {
	count := 0
	j := New(func(uint8) { count++ })
	j.Write(0x10)

	j.SetState(Masks(ButtonA))
	j.SetState(Masks(ButtonA)) // still held
	if count != 1 {
		t.Errorf("interrupt count after hold = %d, want 1", count)
	}

	j.SetState(Masks()) // release
	if count != 1 {
		t.Errorf("interrupt count after release = %d, want 1", count)
	}

	j.SetState(Masks(ButtonA))
	if count != 2 {
		t.Errorf("interrupt count after second press = %d, want 2", count)
	}
}

func TestJoypadInterrupt_UnselectedGroup(t *testing.T) {
	count := 0
	j := New(func(uint8) { count++ })
	j.Write(0x20) // directions selected only

	j.SetState(Masks(ButtonStart))
	if count != 0 {
		t.Errorf("interrupt for unselected group, count = %d", count)
	}

	// Selecting the group with the button held pulls the line low
	j.Write(0x10)
	if count != 1 {
		t.Errorf("interrupt on selection change, count = %d, want 1", count)
	}
}

func TestAnyPressed(t *testing.T) {
	j := New(nil)
	if j.AnyPressed() {
		t.Error("AnyPressed() = true with nothing held")
	}
	j.SetState(Masks(ButtonSelect))
	if !j.AnyPressed() {
		t.Error("AnyPressed() = false with Select held")
	}
}

func TestButtonString(t *testing.T) {
	for b := ButtonRight; b <= ButtonStart; b++ {
		if b.String() == "Unknown" {
			t.Errorf("Button(%d) has no name", b)
		}
	}
	if Button(42).String() != "Unknown" {
		t.Error("out of range button should be Unknown")
	}
}
