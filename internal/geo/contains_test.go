package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// square returns a closed ring covering (lat0,lon0)..(lat1,lon1).
func square(lat0, lon0, lat1, lon1 float64) Ring {
	return Ring{
		{Lat: lat0, Lon: lon0},
		{Lat: lat0, Lon: lon1},
		{Lat: lat1, Lon: lon1},
		{Lat: lat1, Lon: lon0},
		{Lat: lat0, Lon: lon0},
	}
}

func TestContains(t *testing.T) {
	unit := &Geometry{Polygons: []Polygon{{Rings: []Ring{square(0, 0, 10, 10)}}}}

	t.Run("point inside square", func(t *testing.T) {
		assert.True(t, Contains(Point{Lat: 5, Lon: 5}, unit))
	})

	t.Run("point outside square", func(t *testing.T) {
		assert.False(t, Contains(Point{Lat: 5, Lon: 15}, unit))
		assert.False(t, Contains(Point{Lat: 15, Lon: 5}, unit))
		assert.False(t, Contains(Point{Lat: -1, Lon: -1}, unit))
	})

	t.Run("nil geometry passes every point through", func(t *testing.T) {
		assert.True(t, Contains(Point{Lat: 5, Lon: 5}, nil))
		assert.True(t, Contains(Point{Lat: 89, Lon: 179}, nil))
	})

	t.Run("multi-part geometry contains a point in any part", func(t *testing.T) {
		g := &Geometry{Polygons: []Polygon{
			{Rings: []Ring{square(0, 0, 1, 1)}},
			{Rings: []Ring{square(20, 20, 21, 21)}},
		}}
		assert.True(t, Contains(Point{Lat: 0.5, Lon: 0.5}, g))
		assert.True(t, Contains(Point{Lat: 20.5, Lon: 20.5}, g))
		assert.False(t, Contains(Point{Lat: 10, Lon: 10}, g))
	})

	t.Run("unclosed ring works the same as closed", func(t *testing.T) {
		open := &Geometry{Polygons: []Polygon{{Rings: []Ring{{
			{Lat: 0, Lon: 0}, {Lat: 0, Lon: 10}, {Lat: 10, Lon: 10}, {Lat: 10, Lon: 0},
		}}}}}
		assert.True(t, Contains(Point{Lat: 5, Lon: 5}, open))
		assert.False(t, Contains(Point{Lat: 5, Lon: 15}, open))
	})

	t.Run("concave polygon", func(t *testing.T) {
		// A "U" shape: the notch between the arms is outside.
		u := &Geometry{Polygons: []Polygon{{Rings: []Ring{{
			{Lat: 0, Lon: 0}, {Lat: 0, Lon: 10}, {Lat: 10, Lon: 10},
			{Lat: 10, Lon: 7}, {Lat: 3, Lon: 7}, {Lat: 3, Lon: 3},
			{Lat: 10, Lon: 3}, {Lat: 10, Lon: 0}, {Lat: 0, Lon: 0},
		}}}}}
		assert.True(t, Contains(Point{Lat: 1, Lon: 5}, u))   // bottom of the U
		assert.False(t, Contains(Point{Lat: 8, Lon: 5}, u))  // inside the notch
		assert.True(t, Contains(Point{Lat: 8, Lon: 1.5}, u)) // left arm
	})

	t.Run("degenerate ring contains nothing", func(t *testing.T) {
		g := &Geometry{Polygons: []Polygon{{Rings: []Ring{{
			{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1},
		}}}}}
		assert.False(t, Contains(Point{Lat: 0.5, Lon: 0.5}, g))
	})
}

func TestGeometryEmpty(t *testing.T) {
	var nilG *Geometry
	assert.True(t, nilG.Empty())
	assert.True(t, (&Geometry{}).Empty())
	assert.True(t, (&Geometry{Polygons: []Polygon{{}}}).Empty())
	assert.True(t, (&Geometry{Polygons: []Polygon{{Rings: []Ring{{{Lat: 1, Lon: 1}}}}}}).Empty())
	assert.False(t, (&Geometry{Polygons: []Polygon{{Rings: []Ring{square(0, 0, 1, 1)}}}}).Empty())
}
