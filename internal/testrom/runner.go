// Package testrom runs test ROMs that report a verdict on their own, in the
// style of Blargg's suites.
//
// Two reporting channels are watched: text sent over the serial port, and the
// cartridge RAM protocol where 0xA001-0xA003 hold the signature DE B0 61,
// 0xA000 holds the status (0x80 while running, 0 on success) and a
// zero-terminated message starts at 0xA004.
package testrom

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/richardwooding/dotmatrix/internal/emulator"
)

// Cartridge RAM reporting protocol.
const (
	statusAddr    = 0xA000
	signatureAddr = 0xA001
	textAddr      = 0xA004
	textLimit     = 0x1000

	statusRunning = 0x80
)

var signature = [3]uint8{0xDE, 0xB0, 0x61}

// Verdict is the outcome of a test ROM run.
type Verdict int

// Verdicts.
const (
	Unknown Verdict = iota
	Passed
	Failed
	TimedOut
	Errored
)

var verdictNames = [...]string{"UNKNOWN", "PASSED", "FAILED", "TIMEOUT", "ERROR"}

func (v Verdict) String() string {
	if v < 0 || int(v) >= len(verdictNames) {
		return "UNKNOWN"
	}
	return verdictNames[v]
}

// Result is what a test ROM reported, plus how long it took to say it.
type Result struct {
	Verdict Verdict
	Output  string
	Frames  int
	Err     error
}

// Run loads a ROM and runs it frame by frame until it reports a verdict.
// The timeout restarts whenever new serial output appears, so long suites
// that keep printing progress are not cut off. The logger may be nil.
func Run(romPath string, timeout time.Duration, logger *slog.Logger) *Result {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// #nosec G304 - romPath is provided by the user via CLI argument
	data, err := os.ReadFile(romPath)
	if err != nil {
		return &Result{Verdict: Errored, Err: fmt.Errorf("failed to read ROM: %w", err)}
	}

	emu, err := emulator.New(data, emulator.Options{Logger: logger})
	if err != nil {
		return &Result{Verdict: Errored, Err: fmt.Errorf("failed to create emulator: %w", err)}
	}

	result := watch(emu, timeout)
	logger.Info("test ROM finished",
		"rom", filepath.Base(romPath),
		"verdict", result.Verdict.String(),
		"frames", result.Frames)
	return result
}

func watch(emu *emulator.Emulator, timeout time.Duration) *Result {
	r := &Result{}
	deadline := time.Now().Add(timeout)

	for {
		err := emu.RunFrame()
		r.Frames++

		if out := emu.SerialOutput(); len(out) > len(r.Output) {
			r.Output = out
			deadline = time.Now().Add(timeout)
		}
		if err != nil {
			r.Verdict, r.Err = Errored, err
			return r
		}

		if v := serialVerdict(r.Output); v != Unknown {
			r.Verdict = v
			return r
		}
		if v, text := memoryVerdict(emu); v != Unknown {
			r.Verdict = v
			if r.Output == "" {
				r.Output = text
			}
			return r
		}

		if time.Now().After(deadline) {
			r.Verdict, r.Err = TimedOut, emulator.ErrTimeout
			return r
		}
	}
}

// serialVerdict looks for the final word of a Blargg report. "Failed" wins
// when both appear.
func serialVerdict(output string) Verdict {
	switch {
	case strings.Contains(output, "Failed"):
		return Failed
	case strings.Contains(output, "Passed"):
		return Passed
	}
	return Unknown
}

// memoryVerdict reads the cartridge RAM report, if the ROM has written one.
// Reads go through the bus, so nothing is visible while the ROM keeps its
// RAM disabled.
func memoryVerdict(emu *emulator.Emulator) (Verdict, string) {
	for i, b := range signature {
		if emu.Memory.Read(signatureAddr+uint16(i)) != b { //nolint:gosec // G115: i < 3
			return Unknown, ""
		}
	}

	status := emu.Memory.Read(statusAddr)
	if status == statusRunning {
		return Unknown, ""
	}

	var text strings.Builder
	for addr := uint16(textAddr); addr < textAddr+textLimit; addr++ {
		c := emu.Memory.Read(addr)
		if c == 0 {
			break
		}
		text.WriteByte(c)
	}

	if status == 0 {
		return Passed, text.String()
	}
	return Failed, text.String()
}

// String returns a human-readable representation of the result.
func (r *Result) String() string {
	if r.Verdict == Errored {
		return fmt.Sprintf("ERROR: %v", r.Err)
	}
	return r.Verdict.String()
}

// IsSuccess returns true if the test passed.
func (r *Result) IsSuccess() bool {
	return r.Verdict == Passed
}
