package ppu

// sprite is one OAM entry selected for the current line.
type sprite struct {
	y, x      int // screen coordinates of the top-left corner
	height    int // 8 or 16, latched when the sprite was selected
	tileIndex uint8
	attrs     uint8
}

// fetcher is the background/window pixel source: a tile-map cursor feeding
// a pair of 8-bit shift registers, one bit plane each.
type fetcher struct {
	mapBase uint16 // VRAM offset of the current tile-map row
	tileCol uint8  // next tile-map column to fetch
	row     uint16 // pixel row within the tile
	lo, hi  uint8
	count   int // pixels left in the shift registers
}

// shift pops the leftmost pixel.
func (f *fetcher) shift() uint8 {
	c := (f.hi>>7)<<1 | f.lo>>7
	f.lo <<= 1
	f.hi <<= 1
	f.count--
	return c
}

// load fills the shift registers with the next tile row.
func (p *PPU) load(f *fetcher) {
	tileIndex := p.vram[f.mapBase+uint16(f.tileCol&31)]
	addr := p.bgTileAddr(tileIndex) + f.row*2
	f.lo = p.vram[addr]
	f.hi = p.vram[addr+1]
	f.tileCol++
	f.count = 8
}

func (p *PPU) nextBGPixel() uint8 {
	if p.bg.count == 0 {
		p.load(&p.bg)
	}
	return p.bg.shift()
}

// scanOAMEntry checks one of the 40 OAM entries against the current line.
// The buffer keeps selected sprites in OAM order.
func (p *PPU) scanOAMEntry(i int) {
	if p.spriteCount == MaxSpritesPerLine {
		return
	}
	height := 8
	if p.lcdc&LCDCOBJSize != 0 {
		height = 16
	}

	entry := p.oam[i*4 : i*4+4]
	top := int(entry[0]) - 16
	line := int(p.ly)
	if line < top || line >= top+height {
		return
	}
	p.sprites[p.spriteCount] = sprite{
		y:         top,
		x:         int(entry[1]) - 8,
		height:    height,
		tileIndex: entry[2],
		attrs:     entry[3],
	}
	p.spriteCount++
}

// startLine primes the background fetcher at the start of pixel transfer.
// The SCX fine scroll is applied by discarding pixels from the first tile.
func (p *PPU) startLine() {
	mapBase := uint16(0x1800) // 0x9800
	if p.lcdc&LCDCBGTileMap != 0 {
		mapBase = 0x1C00 // 0x9C00
	}

	y := uint16(p.ly) + uint16(p.scy)
	p.bg = fetcher{
		mapBase: mapBase + ((y/8)%32)*32,
		tileCol: p.scx / 8,
		row:     y % 8,
	}
	for range p.scx & 7 {
		p.nextBGPixel()
	}
	p.inWindow = false
	p.windowDrawn = false
}

// enterWindow switches the fetcher to the window tile map.
func (p *PPU) enterWindow() {
	mapBase := uint16(0x1800)
	if p.lcdc&LCDCWindowTileMap != 0 {
		mapBase = 0x1C00
	}
	p.bg = fetcher{
		mapBase: mapBase + uint16(p.windowLine/8)*32,
		row:     uint16(p.windowLine % 8),
	}
	// WX below 7 starts the window partially off screen
	if p.wx < 7 {
		for range 7 - p.wx {
			p.nextBGPixel()
		}
	}
	p.inWindow = true
	p.windowDrawn = true
}

func (p *PPU) windowStartsAt(x int) bool {
	return !p.inWindow &&
		p.lcdc&LCDCWindowEnable != 0 &&
		p.ly >= p.wy &&
		x >= int(p.wx)-7
}

// drawPixel produces the finished pixel at column x of the current line.
func (p *PPU) drawPixel(x int) {
	var bgIndex uint8
	if p.lcdc&LCDCBGWindowEnable != 0 {
		if p.windowStartsAt(x) {
			p.enterWindow()
		}
		bgIndex = p.nextBGPixel()
	}

	shade := p.applyPalette(bgIndex, p.bgp)
	if p.lcdc&LCDCOBJEnable != 0 {
		if color, attrs, ok := p.spritePixel(x); ok {
			if attrs&SpriteAttrPriority == 0 || bgIndex == 0 {
				palette := p.obp0
				if attrs&SpriteAttrPalette != 0 {
					palette = p.obp1
				}
				shade = p.applyPalette(color, palette)
			}
		}
	}

	p.framebuffer[int(p.ly)*ScreenWidth+x] = shade
}

// spritePixel finds the opaque sprite pixel with the highest priority at x.
// The sprite with the smaller X wins; the buffer is in OAM order, so equal X
// resolves to the lower OAM index. Each sprite keeps the height it was
// selected with, even if LCDC changes mid-line.
func (p *PPU) spritePixel(x int) (color, attrs uint8, ok bool) {
	bestX := 0
	for i := range p.spriteCount {
		spr := &p.sprites[i]
		if x < spr.x || x >= spr.x+8 {
			continue
		}
		if ok && spr.x >= bestX {
			continue
		}

		col := x - spr.x
		if spr.attrs&SpriteAttrXFlip != 0 {
			col = 7 - col
		}
		line := int(p.ly) - spr.y
		if spr.attrs&SpriteAttrYFlip != 0 {
			line = spr.height - 1 - line
		}

		tile := spr.tileIndex
		if spr.height == 16 {
			tile &= 0xFE
			if line >= 8 {
				tile |= 0x01
				line -= 8
			}
		}

		// Sprites always use 0x8000 unsigned addressing
		c := p.tilePixel(uint16(tile)*16, uint16(col), uint16(line)) //nolint:gosec // G115: col and line are within 0-7
		if c == 0 {
			continue
		}
		color, attrs, ok = c, spr.attrs, true
		bestX = spr.x
	}
	return color, attrs, ok
}

// bgTileAddr returns the VRAM offset of a background/window tile. LCDC bit 4
// selects unsigned indexing from 0x8000 or signed indexing from 0x9000.
func (p *PPU) bgTileAddr(tileIndex uint8) uint16 {
	if p.lcdc&LCDCBGTileData != 0 {
		return uint16(tileIndex) * 16
	}
	signedIndex := int32(int8(tileIndex))  //nolint:gosec // G115: Intentional signed conversion
	return uint16(0x1000 + signedIndex*16) //nolint:gosec // G115: result is within 0x0800-0x17F0
}

// tilePixel gets a pixel from a tile.
// Tiles are 8x8 pixels, 2 bits per pixel, stored as 16 bytes.
func (p *PPU) tilePixel(tileAddr, x, y uint16) uint8 {
	x &= 7
	y &= 7
	lineAddr := tileAddr + y*2
	lo := p.vram[lineAddr]
	hi := p.vram[lineAddr+1]

	// Bit 7 is the leftmost pixel
	bitPos := 7 - x
	return ((hi>>bitPos)&1)<<1 | (lo>>bitPos)&1
}

// applyPalette maps a color index (0-3) to a shade (0-3).
func (p *PPU) applyPalette(colorIndex, palette uint8) uint8 {
	return (palette >> (colorIndex * 2)) & 0x03
}
