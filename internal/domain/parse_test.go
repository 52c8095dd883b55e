package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testIngestTime = time.Date(2024, 4, 26, 18, 0, 0, 0, time.UTC)

func withFakeClock(t *testing.T) {
	t.Helper()
	SetClock(clockwork.NewFakeClockAt(testIngestTime))
	t.Cleanup(func() { SetClock(nil) })
}

func TestParseFeedAlert(t *testing.T) {
	withFakeClock(t)

	t.Run("full document", func(t *testing.T) {
		data := []byte(`{
			"id": "urn:oid:2.49.0.1.840.0.abc",
			"event": "Flash Flood Warning",
			"status": "Actual",
			"severity": "Severe",
			"certainty": "Likely",
			"urgency": "Immediate",
			"headline": "Flash Flood Warning for Los Angeles",
			"description": "Heavy rain.",
			"instruction": "Move to higher ground.",
			"areaDesc": "Los Angeles County",
			"sent": "2024-04-26T15:10:00Z",
			"effective": "2024-04-26T15:10:00Z",
			"expires": "2024-04-26T19:10:00Z",
			"messageType": "Alert",
			"geocode": {"SAME": ["006037", "006059"]},
			"geometry": {"type": "Polygon", "coordinates": [[[-118.5,33.9],[-117.9,33.9],[-117.9,34.3],[-118.5,34.3],[-118.5,33.9]]]}
		}`)
		rec, err := ParseFeedAlert(RawMessage{Value: data})

		require.NoError(t, err)
		assert.Equal(t, "urn:oid:2.49.0.1.840.0.abc", rec.ID)
		assert.Equal(t, "Flash Flood Warning", rec.Event)
		assert.Equal(t, MessageAlert, rec.MessageType)
		assert.Equal(t, []string{"06037", "06059"}, rec.RegionCodes)
		assert.Equal(t, time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC), rec.Sent)
		assert.Equal(t, time.Date(2024, 4, 26, 19, 10, 0, 0, time.UTC), rec.Expires)
		assert.True(t, rec.IsCurrent)
		assert.Empty(t, rec.References)
		assert.Equal(t, testIngestTime, rec.IngestedAt)

		require.NotNil(t, rec.Geometry)
		require.Len(t, rec.Geometry.Polygons, 1)
		ring := rec.Geometry.Polygons[0].Rings[0]
		require.Len(t, ring, 5)
		// GeoJSON positions are [lon, lat]; the parser must swap them.
		assert.Equal(t, 33.9, ring[0].Lat)
		assert.Equal(t, -118.5, ring[0].Lon)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := ParseFeedAlert(RawMessage{Value: []byte(`{"event":"Tornado Warning"}`)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing id")
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := ParseFeedAlert(RawMessage{Value: []byte("{not json")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse feed alert")
	})

	t.Run("malformed geometry keeps the record", func(t *testing.T) {
		data := []byte(`{"id":"a1","event":"Tornado Warning","geometry":{"type":"Point","coordinates":[1,2]}}`)
		rec, err := ParseFeedAlert(RawMessage{Value: data})

		require.ErrorIs(t, err, ErrMalformedGeometry)
		assert.Equal(t, "a1", rec.ID)
		assert.Nil(t, rec.Geometry)
	})

	t.Run("null geometry means absent", func(t *testing.T) {
		rec, err := ParseFeedAlert(RawMessage{Value: []byte(`{"id":"a1","geometry":null}`)})
		require.NoError(t, err)
		assert.Nil(t, rec.Geometry)
	})

	t.Run("multipolygon geometry", func(t *testing.T) {
		data := []byte(`{"id":"a1","geometry":{"type":"MultiPolygon","coordinates":[
			[[[0,0],[1,0],[1,1],[0,0]]],
			[[[5,5],[6,5],[6,6],[5,5]]]
		]}}`)
		rec, err := ParseFeedAlert(RawMessage{Value: data})
		require.NoError(t, err)
		require.NotNil(t, rec.Geometry)
		assert.Len(t, rec.Geometry.Polygons, 2)
	})

	t.Run("unparseable timestamps become zero", func(t *testing.T) {
		rec, err := ParseFeedAlert(RawMessage{Value: []byte(`{"id":"a1","sent":"yesterday","expires":""}`)})
		require.NoError(t, err)
		assert.True(t, rec.Sent.IsZero())
		assert.True(t, rec.Expires.IsZero())
	})

	t.Run("region codes deduplicate and drop junk", func(t *testing.T) {
		data := []byte(`{"id":"a1","geocode":{"SAME":["006037","06037","6037","TX123",""]}}`)
		rec, err := ParseFeedAlert(RawMessage{Value: data})
		require.NoError(t, err)
		assert.Equal(t, []string{"06037"}, rec.RegionCodes)
	})
}

func TestNormalizeRegionCode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"six-digit SAME", "048113", "48113"},
		{"five-digit FIPS", "48113", "48113"},
		{"short code zero-padded", "6037", "06037"},
		{"six digits without leading zero", "148113", ""},
		{"non-numeric", "TX113", ""},
		{"empty", "", ""},
		{"too long", "0481131", ""},
		{"whitespace trimmed", " 06037 ", "06037"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeRegionCode(tt.in))
		})
	}
}

func TestNormalizeReferences(t *testing.T) {
	withFakeClock(t)

	parse := func(t *testing.T, refs string) []string {
		t.Helper()
		rec, err := ParseFeedAlert(RawMessage{Value: []byte(`{"id":"self","references":` + refs + `}`)})
		require.NoError(t, err)
		return rec.References
	}

	t.Run("bare id strings", func(t *testing.T) {
		assert.Equal(t, []string{"a1", "a2"}, parse(t, `["a1","a2"]`))
	})

	t.Run("CAP comma triple takes the identifier field", func(t *testing.T) {
		assert.Equal(t, []string{"a1"}, parse(t, `["w-nws.webmaster@noaa.gov,a1,2024-04-26T15:10:00Z"]`))
	})

	t.Run("structured objects", func(t *testing.T) {
		assert.Equal(t, []string{"a1", "a2"}, parse(t, `[{"identifier":"a1"},{"id":"a2"}]`))
	})

	t.Run("self-references and junk are dropped", func(t *testing.T) {
		assert.Nil(t, parse(t, `["self", 42, {}, ""]`))
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		assert.Equal(t, []string{"a1"}, parse(t, `["a1",{"identifier":"a1"}]`))
	})
}

func TestFreeText(t *testing.T) {
	a := AlertRecord{
		Headline:    "Flash Flood Warning for Los Angeles",
		Description: "Heavy rain.",
		AreaDesc:    "Los Angeles County",
	}
	assert.Equal(t, "Flash Flood Warning for Los Angeles; Heavy rain.; Los Angeles County", a.FreeText())

	empty := AlertRecord{}
	assert.Equal(t, "", empty.FreeText())

	descOnly := AlertRecord{Description: "Heavy rain."}
	assert.Equal(t, "Heavy rain.", descOnly.FreeText())
}
