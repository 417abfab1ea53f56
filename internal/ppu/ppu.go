// Package ppu implements the Game Boy Picture Processing Unit (PPU).
//
// The PPU advances one dot per Tick. Each visible scanline spends 80 dots
// searching OAM, 172 dots transferring pixels (one pixel per dot for the
// first 160) and the remaining 204 dots in H-Blank. Lines 144-153 are V-Blank.
package ppu

import "log/slog"

const (
	// ScreenWidth is the Game Boy screen width in pixels.
	ScreenWidth = 160
	// ScreenHeight is the Game Boy screen height in pixels.
	ScreenHeight = 144
)

const (
	// ModeHBlank is the PPU mode for H-Blank (end of scanline).
	ModeHBlank = 0
	// ModeVBlank is the PPU mode for V-Blank (vertical blank period).
	ModeVBlank = 1
	// ModeOAMScan is the PPU mode for OAM Scan (searching for sprites).
	ModeOAMScan = 2
	// ModeDrawing is the PPU mode for drawing pixels.
	ModeDrawing = 3
)

const (
	// DotsPerScanline is the total number of dots per scanline.
	DotsPerScanline = 456
	// DotsOAMScan is the duration of Mode 2 (OAM Scan) in dots.
	DotsOAMScan = 80
	// DotsDrawing is the duration of Mode 3 (Drawing) in dots.
	DotsDrawing = 172
	// DotsHBlank is the duration of Mode 0 (H-Blank) in dots.
	DotsHBlank = 204
	// ScanlinesVisible is the number of visible scanlines.
	ScanlinesVisible = 144
	// ScanlinesVBlank is the number of V-Blank scanlines.
	ScanlinesVBlank = 10
	// ScanlinesTotal is the total number of scanlines per frame.
	ScanlinesTotal = 154
	// DotsPerFrame is the total number of dots per frame.
	DotsPerFrame = 70224
)

const (
	// VRAMSize is the size of VRAM in bytes (8KB).
	VRAMSize = 0x2000
	// OAMSize is the size of OAM in bytes (160 bytes).
	OAMSize = 0xA0
	// MaxSpritesPerLine is the size of the per-line sprite buffer.
	MaxSpritesPerLine = 10
	// TileCount is the number of tiles in the 0x8000-0x97FF tile data area.
	TileCount = 384
)

const (
	// LCDCLCDEnable is the LCDC bit for LCD Display Enable.
	LCDCLCDEnable = 1 << 7
	// LCDCWindowTileMap is the LCDC bit for Window Tile Map select.
	LCDCWindowTileMap = 1 << 6
	// LCDCWindowEnable is the LCDC bit for Window Display Enable.
	LCDCWindowEnable = 1 << 5
	// LCDCBGTileData is the LCDC bit for BG & Window Tile Data select.
	LCDCBGTileData = 1 << 4
	// LCDCBGTileMap is the LCDC bit for BG Tile Map select.
	LCDCBGTileMap = 1 << 3
	// LCDCOBJSize is the LCDC bit for OBJ (sprite) size (0=8x8, 1=8x16).
	LCDCOBJSize = 1 << 2
	// LCDCOBJEnable is the LCDC bit for OBJ (sprite) Display Enable.
	LCDCOBJEnable = 1 << 1
	// LCDCBGWindowEnable is the LCDC bit for BG & Window Display Enable.
	LCDCBGWindowEnable = 1 << 0
)

const (
	// STATLYCInterrupt is the STAT bit for LYC=LY Interrupt.
	STATLYCInterrupt = 1 << 6
	// STATMode2Interrupt is the STAT bit for Mode 2 OAM Interrupt.
	STATMode2Interrupt = 1 << 5
	// STATMode1Interrupt is the STAT bit for Mode 1 V-Blank Interrupt.
	STATMode1Interrupt = 1 << 4
	// STATMode0Interrupt is the STAT bit for Mode 0 H-Blank Interrupt.
	STATMode0Interrupt = 1 << 3
	// STATLYCFlag is the STAT bit for LYC=LY Flag.
	STATLYCFlag = 1 << 2
	// STATModeMask is the mask for STAT mode bits.
	STATModeMask = 0x03

	statWritable = 0x78
)

const (
	// SpriteAttrPriority is the sprite attribute bit for priority (0=Above BG, 1=Behind BG colors 1-3).
	SpriteAttrPriority = 1 << 7
	// SpriteAttrYFlip is the sprite attribute bit for vertical flip.
	SpriteAttrYFlip = 1 << 6
	// SpriteAttrXFlip is the sprite attribute bit for horizontal flip.
	SpriteAttrXFlip = 1 << 5
	// SpriteAttrPalette is the sprite attribute bit for palette number (0=OBP0, 1=OBP1).
	SpriteAttrPalette = 1 << 4
)

const (
	// InterruptVBlank is the V-Blank interrupt bit.
	InterruptVBlank = 0
	// InterruptSTAT is the LCD STAT interrupt bit.
	InterruptSTAT = 1
)

// Registers is a snapshot of the PPU register file.
type Registers struct {
	LCDC, STAT, SCY, SCX, LY, LYC uint8
	BGP, OBP0, OBP1, WY, WX       uint8
}

// PPU represents the Game Boy Picture Processing Unit.
type PPU struct {
	vram [VRAMSize]uint8 // 0x8000-0x9FFF
	oam  [OAMSize]uint8  // 0xFE00-0xFE9F

	lcdc      uint8
	statFlags uint8 // interrupt enable bits 3-6 of STAT
	scy       uint8
	scx       uint8
	ly        uint8
	lyc       uint8
	bgp       uint8
	obp0      uint8
	obp1      uint8
	wy        uint8
	wx        uint8

	mode uint8
	dots uint16

	// Per-line state rebuilt during OAM search and pixel transfer
	sprites     [MaxSpritesPerLine]sprite
	spriteCount int
	bg          fetcher
	inWindow    bool
	windowDrawn bool
	windowLine  uint8

	// Level of the combined STAT interrupt line; the interrupt fires on a
	// rising edge only.
	statLine bool

	frames uint64

	// Framebuffer: 160x144 pixels, 2-bit shade per pixel after palette mapping
	framebuffer [ScreenWidth * ScreenHeight]uint8

	requestInterrupt func(interrupt uint8)
	logger           *slog.Logger
}

// New creates a new PPU instance in the state the boot ROM leaves behind.
func New(requestInterrupt func(uint8)) *PPU {
	p := &PPU{
		requestInterrupt: requestInterrupt,
		logger:           slog.New(slog.DiscardHandler),
	}
	p.Reset()
	return p
}

// SetLogger sets the logger used for LCD power events.
func (p *PPU) SetLogger(logger *slog.Logger) {
	if logger != nil {
		p.logger = logger
	}
}

func (p *PPU) lcdOn() bool {
	return p.lcdc&LCDCLCDEnable != 0
}

func (p *PPU) visible() bool {
	return p.ly < ScanlinesVisible
}

// Step advances the PPU by the specified number of dots (T-cycles).
func (p *PPU) Step(cycles uint8) {
	for range cycles {
		p.Tick()
	}
}

// Tick advances the PPU by one dot.
func (p *PPU) Tick() {
	if !p.lcdOn() {
		return
	}

	if p.visible() {
		switch {
		case p.dots < DotsOAMScan:
			if p.dots&1 == 0 {
				p.scanOAMEntry(int(p.dots / 2))
			}
		case p.dots < DotsOAMScan+ScreenWidth:
			p.drawPixel(int(p.dots - DotsOAMScan))
		}
	}

	p.dots++

	switch p.dots {
	case DotsOAMScan:
		if p.visible() {
			p.setMode(ModeDrawing)
			p.startLine()
		}
	case DotsOAMScan + DotsDrawing:
		if p.visible() {
			p.setMode(ModeHBlank)
			if p.windowDrawn {
				p.windowLine++
			}
		}
	case DotsPerScanline:
		p.nextLine()
	}

	p.updateSTATLine()
}

// nextLine moves to the next scanline.
func (p *PPU) nextLine() {
	p.dots = 0
	p.ly++

	switch {
	case p.ly == ScanlinesVisible:
		p.setMode(ModeVBlank)
		p.frames++
		if p.requestInterrupt != nil {
			p.requestInterrupt(InterruptVBlank)
		}
	case p.ly == ScanlinesTotal:
		p.ly = 0
		p.windowLine = 0
		p.beginOAMScan()
	case p.visible():
		p.beginOAMScan()
	}
}

func (p *PPU) beginOAMScan() {
	p.setMode(ModeOAMScan)
	p.spriteCount = 0
}

func (p *PPU) setMode(mode uint8) {
	p.mode = mode
}

// statLevel computes the combined STAT interrupt line.
func (p *PPU) statLevel() bool {
	if !p.lcdOn() {
		return false
	}
	if p.statFlags&STATLYCInterrupt != 0 && p.ly == p.lyc {
		return true
	}
	switch p.mode {
	case ModeHBlank:
		return p.statFlags&STATMode0Interrupt != 0
	case ModeVBlank:
		return p.statFlags&STATMode1Interrupt != 0
	case ModeOAMScan:
		return p.statFlags&STATMode2Interrupt != 0
	}
	return false
}

func (p *PPU) updateSTATLine() {
	level := p.statLevel()
	if level && !p.statLine && p.requestInterrupt != nil {
		p.requestInterrupt(InterruptSTAT)
	}
	p.statLine = level
}

// VRAMLocked reports whether the CPU is locked out of VRAM.
func (p *PPU) VRAMLocked() bool {
	return p.lcdOn() && p.mode == ModeDrawing
}

// OAMLocked reports whether the CPU is locked out of OAM.
func (p *PPU) OAMLocked() bool {
	return p.lcdOn() && (p.mode == ModeOAMScan || p.mode == ModeDrawing)
}

// ReadVRAM reads a byte from VRAM. Access locking is the bus's concern.
func (p *PPU) ReadVRAM(offset uint16) uint8 {
	if offset < VRAMSize {
		return p.vram[offset]
	}
	return 0xFF
}

// WriteVRAM writes a byte to VRAM.
func (p *PPU) WriteVRAM(offset uint16, value uint8) {
	if offset < VRAMSize {
		p.vram[offset] = value
	}
}

// ReadOAM reads a byte from OAM.
func (p *PPU) ReadOAM(offset uint16) uint8 {
	if offset < OAMSize {
		return p.oam[offset]
	}
	return 0xFF
}

// WriteOAM writes a byte to OAM.
func (p *PPU) WriteOAM(offset uint16, value uint8) {
	if offset < OAMSize {
		p.oam[offset] = value
	}
}

// stat composes the STAT register.
func (p *PPU) stat() uint8 {
	value := 0x80 | p.statFlags | p.mode
	if p.ly == p.lyc {
		value |= STATLYCFlag
	}
	return value
}

// ReadRegister reads a PPU register.
func (p *PPU) ReadRegister(addr uint16) uint8 {
	switch addr {
	case 0xFF40:
		return p.lcdc
	case 0xFF41:
		return p.stat()
	case 0xFF42:
		return p.scy
	case 0xFF43:
		return p.scx
	case 0xFF44:
		return p.ly
	case 0xFF45:
		return p.lyc
	case 0xFF47:
		return p.bgp
	case 0xFF48:
		return p.obp0
	case 0xFF49:
		return p.obp1
	case 0xFF4A:
		return p.wy
	case 0xFF4B:
		return p.wx
	default:
		return 0xFF
	}
}

// WriteRegister writes to a PPU register.
func (p *PPU) WriteRegister(addr uint16, value uint8) {
	switch addr {
	case 0xFF40:
		p.writeLCDC(value)
	case 0xFF41:
		// Mode and coincidence bits are read-only
		p.statFlags = value & statWritable
	case 0xFF42:
		p.scy = value
	case 0xFF43:
		p.scx = value
	case 0xFF44:
		// LY is read-only
	case 0xFF45:
		p.lyc = value
	case 0xFF47:
		p.bgp = value
	case 0xFF48:
		p.obp0 = value
	case 0xFF49:
		p.obp1 = value
	case 0xFF4A:
		p.wy = value
	case 0xFF4B:
		p.wx = value
	}
	p.updateSTATLine()
}

func (p *PPU) writeLCDC(value uint8) {
	wasOn := p.lcdOn()
	p.lcdc = value

	switch {
	case wasOn && !p.lcdOn():
		// The display goes idle: line 0, H-Blank, clock stopped
		p.ly = 0
		p.dots = 0
		p.mode = ModeHBlank
		p.logger.Debug("LCD disabled")
	case !wasOn && p.lcdOn():
		p.ly = 0
		p.dots = 0
		p.windowLine = 0
		p.beginOAMScan()
		p.logger.Debug("LCD enabled")
	}
}

// Registers returns a snapshot of the register file.
func (p *PPU) Registers() Registers {
	return Registers{
		LCDC: p.lcdc, STAT: p.stat(), SCY: p.scy, SCX: p.scx, LY: p.ly, LYC: p.lyc,
		BGP: p.bgp, OBP0: p.obp0, OBP1: p.obp1, WY: p.wy, WX: p.wx,
	}
}

// Mode returns the current PPU mode.
func (p *PPU) Mode() uint8 {
	return p.mode
}

// LY returns the current scanline.
func (p *PPU) LY() uint8 {
	return p.ly
}

// Dots returns the dot position within the current scanline.
func (p *PPU) Dots() uint16 {
	return p.dots
}

// Frames returns the number of V-Blank periods entered so far.
func (p *PPU) Frames() uint64 {
	return p.frames
}

// Framebuffer returns a pointer to the framebuffer.
func (p *PPU) Framebuffer() *[ScreenWidth * ScreenHeight]uint8 {
	return &p.framebuffer
}

// Tile decodes tile n (0-383) of the 0x8000-0x97FF area into 2-bit colour
// indices, row-major. It reads VRAM directly and is meant for debug viewers.
func (p *PPU) Tile(n int) [64]uint8 {
	var out [64]uint8
	if n < 0 || n >= TileCount {
		return out
	}
	base := uint16(n) * 16 //nolint:gosec // G115: n is bounded by TileCount
	for row := uint16(0); row < 8; row++ {
		for col := uint16(0); col < 8; col++ {
			out[row*8+col] = p.tilePixel(base, col, row)
		}
	}
	return out
}

// Reset resets the PPU to the post-boot state.
func (p *PPU) Reset() {
	p.vram = [VRAMSize]uint8{}
	p.oam = [OAMSize]uint8{}
	p.lcdc = 0x91 // LCD on, BG on
	p.statFlags = 0
	p.scy = 0
	p.scx = 0
	p.ly = 0
	p.lyc = 0
	p.bgp = 0xFC // 11 11 11 00
	p.obp0 = 0xFF
	p.obp1 = 0xFF
	p.wy = 0
	p.wx = 0
	p.dots = 0
	p.windowLine = 0
	p.statLine = false
	p.frames = 0
	p.beginOAMScan()
	p.framebuffer = [ScreenWidth * ScreenHeight]uint8{}
}
