// Package main provides the dotmatrix CLI application.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/richardwooding/dotmatrix/internal/cartridge"
	"github.com/richardwooding/dotmatrix/internal/emulator"
	"github.com/richardwooding/dotmatrix/internal/testrom"
)

var (
	// ErrTestFailed indicates a test ROM failed.
	ErrTestFailed = errors.New("test failed")

	// ErrInvalidScale indicates the scale factor is out of valid range.
	ErrInvalidScale = errors.New("scale must be between 1 and 10")

	// ErrInvalidPalette indicates an unknown palette number.
	ErrInvalidPalette = errors.New("palette must be between 1 and 5")
)

// configPaths are searched in order for a JSON configuration file.
var configPaths = []string{"./dotmatrix.json", "~/.config/dotmatrix/config.json"}

// CLI represents the command-line interface structure.
type CLI struct {
	Config    kong.ConfigFlag `help:"Load configuration from a JSON file."`
	LogLevel  string          `help:"Log level." enum:"debug,info,warn,error" default:"info"`
	LogFormat string          `help:"Log format; auto picks text on a terminal and JSON otherwise." enum:"auto,text,json" default:"auto"`

	Info InfoCmd `cmd:"" help:"Display cartridge information."`
	Run  RunCmd  `cmd:"" help:"Run a Game Boy ROM."`
	Test TestCmd `cmd:"" help:"Run a test ROM and report results."`
}

// InfoCmd displays cartridge header information.
type InfoCmd struct {
	ROM string `arg:"" type:"existingfile" help:"Path to ROM file."`
}

// Run executes the info command.
func (c *InfoCmd) Run() error {
	// #nosec G304 - ROM path is provided by the user via CLI argument
	data, err := os.ReadFile(c.ROM)
	if err != nil {
		return fmt.Errorf("failed to read ROM: %w", err)
	}

	cart, err := cartridge.New(data)
	if err != nil {
		return fmt.Errorf("failed to load cartridge: %w", err)
	}

	header := cart.Header()
	checksum := "OK"
	if !header.ChecksumValid {
		checksum = fmt.Sprintf("MISMATCH (computed 0x%02X)", cartridge.ComputeHeaderChecksum(data))
	}

	fmt.Printf("ROM Information:\n")
	fmt.Printf("  Title:          %s\n", header.TitleString())
	fmt.Printf("  Cartridge Type: %s (0x%02X)\n", cartridge.CartridgeType(header.CartridgeType), header.CartridgeType)
	fmt.Printf("  ROM Size:       %d KiB (%d banks)\n", len(data)/1024, header.ROMBanks())
	fmt.Printf("  RAM Size:       %d KiB (%d banks)\n", header.RAMBanks()*cartridge.RAMBankSize/1024, header.RAMBanks())
	fmt.Printf("  Has Battery:    %v\n", cart.HasBattery())
	fmt.Printf("  CGB Flag:       0x%02X\n", header.CGBFlag)
	fmt.Printf("  SGB Flag:       0x%02X\n", header.SGBFlag)
	fmt.Printf("  Header Check:   0x%02X %s\n", header.HeaderChecksum, checksum)

	return nil
}

// RunCmd runs a Game Boy ROM.
type RunCmd struct {
	ROM       string `arg:"" type:"existingfile" help:"Path to ROM file."`
	Scale     int    `help:"Display scale factor (1-10)." default:"3"`
	Palette   int    `help:"Colour palette (1-5)." default:"1"`
	BootROM   string `help:"Path to a 256-byte DMG boot ROM." type:"existingfile"`
	Paused    bool   `help:"Start paused."`
	Debug     bool   `help:"Start with the debug overlay and tile viewer."`
	Statsview bool   `help:"Serve runtime statistics on ${statsview_addr}."`
	Headless  bool   `help:"Run without a window and print the final machine state."`
	Frames    int    `help:"Frames to run in headless mode." default:"600"`
}

// Validate checks flag ranges before the command runs.
func (c *RunCmd) Validate() error {
	if c.Scale < 1 || c.Scale > 10 {
		return fmt.Errorf("%w: got %d", ErrInvalidScale, c.Scale)
	}
	if c.Palette < 1 || c.Palette > len(palettes) {
		return fmt.Errorf("%w: got %d", ErrInvalidPalette, c.Palette)
	}
	return nil
}

// Run executes the run command.
func (c *RunCmd) Run(logger *slog.Logger) error {
	// #nosec G304 - ROM path is provided by the user via CLI argument
	data, err := os.ReadFile(c.ROM)
	if err != nil {
		return fmt.Errorf("failed to read ROM: %w", err)
	}

	opts := emulator.Options{Logger: logger}
	if c.BootROM != "" {
		// #nosec G304 - boot ROM path is provided by the user via CLI flag
		opts.BootROM, err = os.ReadFile(c.BootROM)
		if err != nil {
			return fmt.Errorf("failed to read boot ROM: %w", err)
		}
	}

	emu, err := emulator.New(data, opts)
	if err != nil {
		return fmt.Errorf("failed to create emulator: %w", err)
	}

	savePath := savePathFor(c.ROM)
	if err := loadSave(emu, savePath); err != nil {
		return err
	}

	if c.Statsview {
		launchStatsview(logger)
	}

	if c.Headless {
		err = c.runHeadless(emu)
	} else {
		err = c.runWindow(emu, logger)
	}

	if saveErr := writeSave(emu, savePath, logger); saveErr != nil && err == nil {
		err = saveErr
	}
	return err
}

func (c *RunCmd) runHeadless(emu *emulator.Emulator) error {
	for range c.Frames {
		if err := emu.RunFrame(); err != nil {
			return fmt.Errorf("emulator error: %w", err)
		}
	}

	fmt.Println(emu.Snapshot())
	if out := emu.SerialOutput(); out != "" {
		fmt.Printf("\nSerial output:\n%s\n", out)
	}
	return nil
}

func (c *RunCmd) runWindow(emu *emulator.Emulator, logger *slog.Logger) error {
	display := NewDisplay(emu, DisplayOptions{
		Palette: c.Palette - 1,
		Paused:  c.Paused,
		Debug:   c.Debug,
		Scale:   c.Scale,
		Logger:  logger,
	})

	ebiten.SetWindowTitle("dotmatrix - " + emu.Cart.Header().TitleString())
	w, h := display.Layout(0, 0)
	ebiten.SetWindowSize(w*c.Scale, h*c.Scale)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(60) // Game Boy runs at ~59.73 Hz

	if err := ebiten.RunGame(display); err != nil && !errors.Is(err, ebiten.Termination) {
		return fmt.Errorf("emulator error: %w", err)
	}
	return nil
}

// savePathFor returns the battery save file next to the ROM.
func savePathFor(romPath string) string {
	return strings.TrimSuffix(romPath, filepath.Ext(romPath)) + ".sav"
}

func loadSave(emu *emulator.Emulator, path string) error {
	if !emu.Cart.HasBattery() {
		return nil
	}
	// #nosec G304 - save path is derived from the ROM path
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read save file: %w", err)
	}
	emu.LoadRAM(data)
	return nil
}

func writeSave(emu *emulator.Emulator, path string, logger *slog.Logger) error {
	ram, ok := emu.SaveRAM()
	if !ok {
		return nil
	}
	if err := os.WriteFile(path, ram, 0o600); err != nil {
		return fmt.Errorf("failed to write save file: %w", err)
	}
	logger.Info("save RAM written", "path", path, "bytes", len(ram))
	return nil
}

// TestCmd runs a test ROM and reports results.
type TestCmd struct {
	ROM     string `arg:"" type:"existingfile" help:"Path to test ROM file."`
	Timeout int    `default:"30" help:"Timeout in seconds."`
	Verbose bool   `short:"v" help:"Show detailed output."`
}

// Run executes the test command.
func (c *TestCmd) Run(logger *slog.Logger) error {
	fmt.Printf("Running test ROM: %s\n", c.ROM)

	timeout := time.Duration(c.Timeout) * time.Second
	result := testrom.Run(c.ROM, timeout, logger)

	fmt.Printf("Result: %s\n", result.String())

	if c.Verbose || !result.IsSuccess() {
		fmt.Printf("\nOutput:\n%s\n", result.Output)
	}

	if !result.IsSuccess() {
		return ErrTestFailed
	}

	return nil
}

func newParser(cli *CLI, options ...kong.Option) (*kong.Kong, error) {
	options = append([]kong.Option{
		kong.Name("dotmatrix"),
		kong.Description("A Game Boy (DMG) emulator written in Go."),
		kong.UsageOnError(),
		kong.Configuration(kong.JSON, configPaths...),
		kong.Vars{"statsview_addr": statsviewAddr},
	}, options...)
	return kong.New(cli, options...)
}

func main() {
	cli := &CLI{}
	parser, err := newParser(cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	logger := newLogger(os.Stderr, cli.LogLevel, cli.LogFormat)
	slog.SetDefault(logger)

	if err := ctx.Run(logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
