package gocog

import (
	"context"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// PolygonFromBounds closes bound into a single-ring polygon, traversed
// counter-clockwise from the bottom-left corner.
func PolygonFromBounds(bound orb.Bound) orb.Polygon {
	if bound.IsEmpty() {
		return orb.Polygon{}
	}

	ring := orb.Ring{
		{bound.Min[0], bound.Min[1]}, // bottom-left
		{bound.Max[0], bound.Min[1]}, // bottom-right
		{bound.Max[0], bound.Max[1]}, // top-right
		{bound.Min[0], bound.Max[1]}, // top-left
		{bound.Min[0], bound.Min[1]}, // close ring
	}
	return orb.Polygon{ring}
}

// PointFromPixel converts a pixel coordinate within img to a
// world-space point, via img's origin/resolution.
func PointFromPixel(ctx context.Context, img *Image, x, y int) (orb.Point, error) {
	origin, err := img.origin(ctx)
	if err != nil {
		return orb.Point{}, err
	}
	res, err := img.resolution(ctx)
	if err != nil {
		return orb.Point{}, err
	}
	return orb.Point{
		origin[0] + float64(x)*res[0],
		origin[1] + float64(y)*res[1],
	}, nil
}

// PixelFromPoint converts a world-space point to the pixel coordinate
// it falls within in img, the inverse of PointFromPixel.
func PixelFromPoint(ctx context.Context, img *Image, point orb.Point) (x, y int, err error) {
	origin, err := img.origin(ctx)
	if err != nil {
		return 0, 0, err
	}
	res, err := img.resolution(ctx)
	if err != nil {
		return 0, 0, err
	}
	if res[0] == 0 || res[1] == 0 {
		return 0, 0, newErr(KindNoGeoTransform, "zero resolution", nil)
	}
	x = int((point[0] - origin[0]) / res[0])
	y = int((point[1] - origin[1]) / res[1])
	return x, y, nil
}

// GetImagePolygon returns img's bounding box as a closed polygon.
func GetImagePolygon(ctx context.Context, img *Image) (orb.Polygon, error) {
	bound, err := img.bbox(ctx)
	if err != nil {
		return nil, err
	}
	return PolygonFromBounds(bound), nil
}

// GetCornerPoints returns img's four corners in world space, starting
// top-left and proceeding clockwise.
func GetCornerPoints(ctx context.Context, img *Image) ([4]orb.Point, error) {
	w, h, err := img.size(ctx)
	if err != nil {
		return [4]orb.Point{}, err
	}
	topLeft, err := PointFromPixel(ctx, img, 0, 0)
	if err != nil {
		return [4]orb.Point{}, err
	}
	topRight, err := PointFromPixel(ctx, img, w, 0)
	if err != nil {
		return [4]orb.Point{}, err
	}
	bottomRight, err := PointFromPixel(ctx, img, w, h)
	if err != nil {
		return [4]orb.Point{}, err
	}
	bottomLeft, err := PointFromPixel(ctx, img, 0, h)
	if err != nil {
		return [4]orb.Point{}, err
	}
	return [4]orb.Point{topLeft, topRight, bottomRight, bottomLeft}, nil
}

// maxMercator is the half-circumference of the Web Mercator projection
// of the WGS84 ellipsoid, in meters.
const maxMercator = 20037508.342789244

// MercatorToWGS84 converts a Web Mercator (EPSG:3857) bound to WGS84
// (EPSG:4326) degrees.
func MercatorToWGS84(bound orb.Bound) orb.Bound {
	minLon := bound.Min[0] / maxMercator * 180.0
	maxLon := bound.Max[0] / maxMercator * 180.0
	minLat := math.Atan(math.Exp(bound.Min[1]*math.Pi/maxMercator))*360.0/math.Pi - 90.0
	maxLat := math.Atan(math.Exp(bound.Max[1]*math.Pi/maxMercator))*360.0/math.Pi - 90.0
	return orb.Bound{Min: orb.Point{minLon, minLat}, Max: orb.Point{maxLon, maxLat}}
}

// WGS84ToMercator converts a WGS84 (EPSG:4326) bound to Web Mercator
// (EPSG:3857) meters.
func WGS84ToMercator(bound orb.Bound) orb.Bound {
	minX := bound.Min[0] / 180.0 * maxMercator
	maxX := bound.Max[0] / 180.0 * maxMercator
	minY := math.Log(math.Tan((90.0+bound.Min[1])*math.Pi/360.0)) / math.Pi * maxMercator
	maxY := math.Log(math.Tan((90.0+bound.Max[1])*math.Pi/360.0)) / math.Pi * maxMercator
	return orb.Bound{Min: orb.Point{minX, minY}, Max: orb.Point{maxX, maxY}}
}

// MapTileForPoint locates the XYZ map tile containing point at zoom,
// for callers bridging GetImageByResolution's pyramid selection to a
// web-mercator tile scheme. point must be WGS84 (maptile.At's
// contract); project Web Mercator images with MercatorToWGS84 first.
func MapTileForPoint(point orb.Point, zoom maptile.Zoom) maptile.Tile {
	return maptile.At(point, zoom)
}

// ImageBoundForMapTile returns the portion of img's pixel grid that
// tile covers, expressed in img's own pixel coordinates, clamped to
// the image. crs names img's projection ("EPSG:4326" or "EPSG:3857");
// any other value is an error since no further reprojection is in
// scope here.
func ImageBoundForMapTile(ctx context.Context, img *Image, tile maptile.Tile, crs string) (TileBounds, error) {
	tileBound := tile.Bound()
	switch crs {
	case "EPSG:4326":
	case "EPSG:3857":
		tileBound = WGS84ToMercator(tileBound)
	default:
		return TileBounds{}, newErr(KindNoGeoTransform, "unsupported CRS for map tile lookup: "+crs, nil)
	}

	minX, minY, err := PixelFromPoint(ctx, img, orb.Point{tileBound.Min[0], tileBound.Max[1]})
	if err != nil {
		return TileBounds{}, err
	}
	maxX, maxY, err := PixelFromPoint(ctx, img, orb.Point{tileBound.Max[0], tileBound.Min[1]})
	if err != nil {
		return TileBounds{}, err
	}

	w, h, err := img.size(ctx)
	if err != nil {
		return TileBounds{}, err
	}
	minX = clampInt(minX, 0, w)
	maxX = clampInt(maxX, 0, w)
	minY = clampInt(minY, 0, h)
	maxY = clampInt(maxY, 0, h)

	return TileBounds{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
