package main

import (
	"image/color"
	"log/slog"
	"strings"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/richardwooding/dotmatrix/internal/emulator"
	"github.com/richardwooding/dotmatrix/internal/input"
	"github.com/richardwooding/dotmatrix/internal/ppu"
	"golang.design/x/clipboard"
	"golang.org/x/image/font/basicfont"
)

// Palette maps the four PPU shades, lightest first.
type Palette [4]color.RGBA

// palettes are selected with the 1-5 keys.
var palettes = []Palette{
	{ // DMG green
		{0xE0, 0xF8, 0xD0, 0xFF},
		{0x88, 0xC0, 0x70, 0xFF},
		{0x34, 0x68, 0x56, 0xFF},
		{0x08, 0x18, 0x20, 0xFF},
	},
	{ // Grayscale
		{0xFF, 0xFF, 0xFF, 0xFF},
		{0xAA, 0xAA, 0xAA, 0xFF},
		{0x55, 0x55, 0x55, 0xFF},
		{0x00, 0x00, 0x00, 0xFF},
	},
	{ // Pocket
		{0xC4, 0xCF, 0xA1, 0xFF},
		{0x8B, 0x95, 0x6D, 0xFF},
		{0x4D, 0x53, 0x3C, 0xFF},
		{0x1F, 0x1F, 0x1F, 0xFF},
	},
	{ // Sepia
		{0xF8, 0xE8, 0xC8, 0xFF},
		{0xC8, 0xA0, 0x70, 0xFF},
		{0x80, 0x58, 0x38, 0xFF},
		{0x30, 0x20, 0x10, 0xFF},
	},
	{ // Ice
		{0xE8, 0xF4, 0xFF, 0xFF},
		{0x90, 0xB8, 0xE0, 0xFF},
		{0x40, 0x68, 0xA0, 0xFF},
		{0x10, 0x18, 0x38, 0xFF},
	},
}

// Debug layout: the screen at the top left, the tile sheet to its right and
// the register panel underneath.
const (
	tileColumns  = 16
	tileRows     = ppu.TileCount / tileColumns
	tileSheetX   = ppu.ScreenWidth + 8
	debugWidth   = 480
	debugHeight  = 336
	panelY       = tileRows*8 + 16
	lineHeight   = 14
	stepsPerKeyM = 100
)

// keyMap maps keyboard keys to Game Boy buttons.
var keyMap = map[ebiten.Key]input.Button{
	ebiten.KeyArrowUp:    input.ButtonUp,
	ebiten.KeyArrowDown:  input.ButtonDown,
	ebiten.KeyArrowLeft:  input.ButtonLeft,
	ebiten.KeyArrowRight: input.ButtonRight,
	ebiten.KeyZ:          input.ButtonA,
	ebiten.KeyX:          input.ButtonB,
	ebiten.KeyEnter:      input.ButtonStart,
	ebiten.KeyShift:      input.ButtonSelect,
}

var paletteKeys = []ebiten.Key{ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4, ebiten.Key5}

// DisplayOptions configures the window front end.
type DisplayOptions struct {
	Palette int // index into palettes
	Paused  bool
	Debug   bool
	Scale   int
	Logger  *slog.Logger
}

// Display implements the Ebiten game interface for the Game Boy emulator.
type Display struct {
	emulator *emulator.Emulator
	logger   *slog.Logger
	scale    int

	screen *ebiten.Image
	pixels []byte // Pre-allocated pixel buffer to avoid GC pressure
	tiles  *ebiten.Image
	tilePx []byte

	palette  int
	paused   bool
	debug    bool // debug layout with tile sheet and register panel
	overlay  bool // register panel inside the debug layout
	lastCopy string

	clipboardOnce sync.Once
	clipboardOK   bool
}

// NewDisplay creates a new display for the emulator.
func NewDisplay(emu *emulator.Emulator, opts DisplayOptions) *Display {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Display{
		emulator: emu,
		logger:   logger,
		scale:    opts.Scale,
		screen:   ebiten.NewImage(ppu.ScreenWidth, ppu.ScreenHeight),
		pixels:   make([]byte, ppu.ScreenWidth*ppu.ScreenHeight*4), // RGBA format
		tiles:    ebiten.NewImage(tileColumns*8, tileRows*8),
		tilePx:   make([]byte, tileColumns*8*tileRows*8*4),
		palette:  opts.Palette,
		paused:   opts.Paused,
		debug:    opts.Debug,
		overlay:  true,
	}
}

// Update runs one frame of emulation unless paused. This is called 60 times
// per second by Ebiten.
func (d *Display) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	d.handleDebugKeys()
	d.emulator.SetInput(d.buttons())

	if d.paused {
		return d.handleStepKeys()
	}
	return d.emulator.RunFrame()
}

// buttons reads the keyboard into active-low joypad masks.
func (d *Display) buttons() (directions, actions uint8) {
	held := make([]input.Button, 0, len(keyMap))
	for key, button := range keyMap {
		if ebiten.IsKeyPressed(key) {
			held = append(held, button)
		}
	}
	return input.Masks(held...)
}

func (d *Display) handleDebugKeys() {
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		d.paused = !d.paused
		d.logger.Debug("pause toggled", "paused", d.paused)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		d.overlay = !d.overlay
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		d.debug = !d.debug
		w, h := d.Layout(0, 0)
		ebiten.SetWindowSize(w*d.scale, h*d.scale)
	}
	for i, key := range paletteKeys {
		if inpututil.IsKeyJustPressed(key) {
			d.palette = i
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		d.copyState()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		d.emulator.Reset()
	}
}

// handleStepKeys advances a paused machine: N one instruction, M a batch of
// instructions, F one frame.
func (d *Display) handleStepKeys() error {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyN):
		_, err := d.emulator.Step()
		return err
	case inpututil.IsKeyJustPressed(ebiten.KeyM):
		for range stepsPerKeyM {
			if _, err := d.emulator.Step(); err != nil {
				return err
			}
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyF):
		return d.emulator.RunFrame()
	}
	return nil
}

// copyState puts the current machine state on the system clipboard.
func (d *Display) copyState() {
	d.clipboardOnce.Do(func() {
		d.clipboardOK = clipboard.Init() == nil
		if !d.clipboardOK {
			d.logger.Warn("clipboard unavailable")
		}
	})
	if !d.clipboardOK {
		return
	}
	d.lastCopy = d.emulator.Snapshot().String()
	clipboard.Write(clipboard.FmtText, []byte(d.lastCopy))
	d.logger.Info("state copied to clipboard")
}

// Draw draws the game screen and, in the debug layout, the tile sheet and
// register panel.
func (d *Display) Draw(screen *ebiten.Image) {
	pal := &palettes[d.palette]

	fillPixels(d.pixels, d.emulator.Framebuffer()[:], pal)
	d.screen.WritePixels(d.pixels)
	screen.DrawImage(d.screen, nil)

	if !d.debug {
		return
	}

	d.drawTiles(screen, pal)
	if d.overlay {
		d.drawPanel(screen)
	}
}

func (d *Display) drawTiles(screen *ebiten.Image, pal *Palette) {
	fillTileSheet(d.tilePx, d.emulator.PPU, pal)
	d.tiles.WritePixels(d.tilePx)

	opts := &ebiten.DrawImageOptions{}
	opts.GeoM.Translate(tileSheetX, 0)
	screen.DrawImage(d.tiles, opts)
}

func (d *Display) drawPanel(screen *ebiten.Image) {
	face := basicfont.Face7x13
	textColor := color.RGBA{0xE0, 0xE0, 0xE0, 0xFF}

	status := "running"
	if d.paused {
		status = "paused  N=step M=x100 F=frame"
	}
	lines := append([]string{status}, strings.Split(d.emulator.Snapshot().String(), "\n")...)

	y := panelY
	for _, line := range lines {
		text.Draw(screen, line, face, 4, y, textColor)
		y += lineHeight
	}
}

// Layout returns the logical screen size.
func (d *Display) Layout(_, _ int) (int, int) {
	if d.debug {
		return debugWidth, debugHeight
	}
	return ppu.ScreenWidth, ppu.ScreenHeight
}

// fillPixels converts PPU shades to RGBA through a palette.
func fillPixels(dst []byte, shades []uint8, pal *Palette) {
	for i, shade := range shades {
		c := pal[shade&0x03]
		offset := i * 4
		dst[offset] = c.R
		dst[offset+1] = c.G
		dst[offset+2] = c.B
		dst[offset+3] = c.A
	}
}

// tileSource provides decoded tiles.
type tileSource interface {
	Tile(n int) [64]uint8
}

// fillTileSheet renders all VRAM tiles in a 16-column grid, colour index 0
// as the lightest shade.
func fillTileSheet(dst []byte, src tileSource, pal *Palette) {
	const sheetWidth = tileColumns * 8
	for n := range ppu.TileCount {
		tile := src.Tile(n)
		originX := (n % tileColumns) * 8
		originY := (n / tileColumns) * 8
		for i, index := range tile {
			x := originX + i%8
			y := originY + i/8
			c := pal[index&0x03]
			offset := (y*sheetWidth + x) * 4
			dst[offset] = c.R
			dst[offset+1] = c.G
			dst[offset+2] = c.B
			dst[offset+3] = c.A
		}
	}
}
