package imaging

import (
	"image"
	"image/color"
)

const (
	glyphWidth  = 3
	glyphHeight = 5
)

// glyphs is a 3x5 pixel font covering the characters used in sign labels.
var glyphs = map[rune][glyphHeight]string{
	'0': {"111", "101", "101", "101", "111"},
	'1': {"010", "110", "010", "010", "111"},
	'2': {"111", "001", "111", "100", "111"},
	'3': {"111", "001", "111", "001", "111"},
	'4': {"101", "101", "111", "001", "001"},
	'5': {"111", "100", "111", "001", "111"},
	'6': {"111", "100", "111", "101", "111"},
	'7': {"111", "001", "001", "001", "001"},
	'8': {"111", "101", "111", "101", "111"},
	'9': {"111", "101", "111", "001", "111"},
	'A': {"010", "101", "111", "101", "101"},
	'B': {"110", "101", "110", "101", "110"},
	'C': {"011", "100", "100", "100", "011"},
	'D': {"110", "101", "101", "101", "110"},
	'E': {"111", "100", "110", "100", "111"},
	'F': {"111", "100", "110", "100", "100"},
	'G': {"011", "100", "101", "101", "011"},
	'H': {"101", "101", "111", "101", "101"},
	'I': {"111", "010", "010", "010", "111"},
	'J': {"001", "001", "001", "101", "010"},
	'K': {"101", "101", "110", "101", "101"},
	'L': {"100", "100", "100", "100", "111"},
	'M': {"101", "111", "111", "101", "101"},
	'N': {"110", "101", "101", "101", "101"},
	'O': {"010", "101", "101", "101", "010"},
	'P': {"110", "101", "110", "100", "100"},
	'Q': {"010", "101", "101", "110", "011"},
	'R': {"110", "101", "110", "101", "101"},
	'S': {"011", "100", "010", "001", "110"},
	'T': {"111", "010", "010", "010", "010"},
	'U': {"101", "101", "101", "101", "111"},
	'V': {"101", "101", "101", "101", "010"},
	'W': {"101", "101", "111", "111", "101"},
	'X': {"101", "101", "010", "101", "101"},
	'Y': {"101", "101", "010", "010", "010"},
	'Z': {"111", "001", "010", "100", "111"},
	',': {"000", "000", "000", "010", "010"},
	'.': {"000", "000", "000", "000", "010"},
	'-': {"000", "000", "111", "000", "000"},
	'%': {"101", "001", "010", "100", "101"},
}

// labelWidth returns the pixel width drawLabel uses for text.
func labelWidth(text string, scale int) int {
	return len([]rune(text)) * (glyphWidth + 1) * scale
}

// drawLabel draws text on a filled background with its top-left corner at
// (x, y). Unknown characters render as blanks. Pixels outside img are skipped.
func drawLabel(img *image.NRGBA, x, y int, text string, fg, bg color.RGBA, scale int) {
	bounds := img.Bounds()
	set := func(px, py int, c color.RGBA) {
		if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
			img.Set(px, py, c)
		}
	}

	width := labelWidth(text, scale)
	height := (glyphHeight + 2) * scale
	for dy := -1; dy < height; dy++ {
		for dx := -1; dx < width; dx++ {
			set(x+dx, y+dy, bg)
		}
	}

	cx := x + scale/2
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if ok {
			for row, line := range glyph {
				for col, pixel := range line {
					if pixel != '1' {
						continue
					}
					for sy := 0; sy < scale; sy++ {
						for sx := 0; sx < scale; sx++ {
							set(cx+col*scale+sx, y+scale+row*scale+sy, fg)
						}
					}
				}
			}
		}
		cx += (glyphWidth + 1) * scale
	}
}
