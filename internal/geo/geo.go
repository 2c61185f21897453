// Package geo anchors the simulation's local metre frame to the globe so
// recordings can be stored as geometry and replayed on a map.
package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/skyward/combat-core/pkg/core"
	"github.com/wroge/wgs84"
)

// GEO POINTS
// Everything is stored as EPSG:3857 because SQLite has no spatial awareness and
// points must round-trip through their WKB encoding. Elevation goes in Z.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// ParseLonLat parses "lon,lat" as given on the command line.
func ParseLonLat(s string) (lon, lat float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, ErrInvalidCoordinates
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, ErrInvalidCoordinates
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, ErrInvalidCoordinates
	}
	if !validLonLat(lon, lat) {
		return 0, 0, ErrInvalidCoordinates
	}
	return lon, lat, nil
}

func validLonLat(lon, lat float64) bool {
	return lon >= -180 && lon <= 180 && lat > -85 && lat < 85
}

// Coords3857From4326 creates a web mercator point from a longitude and latitude
func Coords3857From4326(longitude, latitude float64) geom.Point {
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ := f(longitude, latitude, 0)
	return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: x, Y: y}})
}

// Origin maps simulation metres (X east, Y up, -Z north) onto EPSG:3857
// around a geodetic anchor. Offsets are scaled by the mercator factor at the
// anchor latitude so ground distances survive the projection.
type Origin struct {
	Lon, Lat float64

	x0, y0 float64
	scale  float64
	to4326 wgs84.Func
}

// NewOrigin anchors simulation (0,0,0) at lon/lat.
func NewOrigin(lon, lat float64) (Origin, error) {
	if !validLonLat(lon, lat) || math.IsNaN(lon) || math.IsNaN(lat) {
		return Origin{}, ErrInvalidCoordinates
	}
	epsg := wgs84.EPSG()
	x0, y0, _ := epsg.Transform(4326, 3857)(lon, lat, 0)
	return Origin{
		Lon:    lon,
		Lat:    lat,
		x0:     x0,
		y0:     y0,
		scale:  1 / math.Cos(lat*math.Pi/180),
		to4326: epsg.Transform(3857, 4326),
	}, nil
}

// Location is the anchor as a 3857 point.
func (o Origin) Location() geom.Point {
	return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: o.x0, Y: o.y0}})
}

// Mercator returns the 3857 coordinates of a simulation position.
func (o Origin) Mercator(p core.Position3D) geom.XY {
	return geom.XY{X: o.x0 + p.X*o.scale, Y: o.y0 - p.Z*o.scale}
}

// Point converts a simulation position to a 3857 point with altitude in Z.
func (o Origin) Point(p core.Position3D) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   o.Mercator(p),
		Z:    p.Y,
		Type: geom.DimXYZ,
	})
}

// Local is the inverse of Point: 3857 coordinates back to simulation metres.
func (o Origin) Local(xy geom.XY, altitude float64) core.Position3D {
	return core.Position3D{
		X: (xy.X - o.x0) / o.scale,
		Y: altitude,
		Z: -(xy.Y - o.y0) / o.scale,
	}
}

// LonLat converts a simulation position to WGS84 degrees.
func (o Origin) LonLat(p core.Position3D) (lon, lat float64) {
	xy := o.Mercator(p)
	lon, lat, _ = o.to4326(xy.X, xy.Y, 0)
	return lon, lat
}

// Track builds a 3D line string from consecutive positions, for example a
// flight path sampled by the recorder. At least two points are required.
func (o Origin) Track(points []core.Position3D) (geom.LineString, error) {
	if len(points) < 2 {
		return geom.LineString{}, errors.New("track needs at least 2 points")
	}
	flat := make([]float64, 0, len(points)*3)
	for _, p := range points {
		xy := o.Mercator(p)
		flat = append(flat, xy.X, xy.Y, p.Y)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXYZ)), nil
}
