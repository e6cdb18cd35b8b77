// Package maptile converts GPS coordinates to slippy-map tile coordinates.
// Checkpoints claim exclusive ownership of one tile at the fixed zoom level,
// so two checkpoints can never occupy the same map square.
package maptile

import (
	"fmt"
	"math"

	"DiamondLedger/internal/errs"
)

// Zoom is the fixed zoom level for checkpoint tiles.
const Zoom = 17

const tilesPerAxis = 1 << Zoom

// Tile is a slippy-map tile coordinate pair at Zoom.
type Tile struct {
	X int64
	Y int64
}

// FromGPS validates a coordinate pair and returns its tile. A coordinate of
// exactly zero on either axis is treated as a parse failure upstream and
// rejected.
func FromGPS(lat, lon float64) (Tile, error) {
	if lat == 0 || lon == 0 || lat > 90 || lat < -90 || lon > 180 || lon < -180 {
		return Tile{}, fmt.Errorf("%w: invalid gps coordinate (%v, %v)", errs.ErrBounds, lat, lon)
	}
	x := int64(math.Floor((lon + 180) / 360 * tilesPerAxis))
	latRad := lat * math.Pi / 180
	y := int64(math.Floor((1 - math.Asinh(math.Tan(latRad))/math.Pi) / 2 * tilesPerAxis))
	return Tile{X: x, Y: y}, nil
}

// Key packs the tile into a single uint64 suitable for index lookups.
func (t Tile) Key() uint64 {
	return uint64(t.X)<<32 | uint64(t.Y)
}

// String renders the tile as "x/y" at the fixed zoom.
func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", Zoom, t.X, t.Y)
}
