// Package tiler partitions a frame into rectangular tiles in row-major
// order for parallel rendering.
package tiler

// Tile is a rectangular region of a frame, in pixel coordinates.
type Tile struct {
	X, Y          int
	Width, Height int
}

// Layout holds the tiles for a given frame size and the grid dimensions
// they were cut from.
type Layout struct {
	Tiles  []Tile
	TilesX int
	TilesY int
	FrameW int
	FrameH int
}

// New divides a W x H frame into tiles of at most tileW x tileH, emitted in
// row-major order. The last column and row may be narrower or shorter than
// the requested tile size.
func New(width, height, tileW, tileH int) Layout {
	if width <= 0 || height <= 0 || tileW <= 0 || tileH <= 0 {
		return Layout{}
	}

	tilesX := (width + tileW - 1) / tileW
	tilesY := (height + tileH - 1) / tileH

	l := Layout{
		Tiles:  make([]Tile, 0, tilesX*tilesY),
		TilesX: tilesX,
		TilesY: tilesY,
		FrameW: width,
		FrameH: height,
	}

	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			x := tx * tileW
			y := ty * tileH
			w := min(tileW, width-x)
			h := min(tileH, height-y)
			l.Tiles = append(l.Tiles, Tile{X: x, Y: y, Width: w, Height: h})
		}
	}
	return l
}

// Index returns the row-major tile index for grid coordinates (tx, ty).
func (l Layout) Index(tx, ty int) int {
	return ty*l.TilesX + tx
}
