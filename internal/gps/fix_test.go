package gps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/qibla_compass/internal/geo"
)

const (
	rmcValid    = "$GPRMC,220516,A,5133.82,N,00042.24,W,173.8,231.8,130694,004.2,W*70"
	rmcVoid     = "$GPRMC,220516,V,5133.82,N,00042.24,W,173.8,231.8,130694,004.2,W*67"
	rmcIstanbul = "$GPRMC,081836,A,4100.492,N,02858.704,E,000.0,360.0,150926,,*1B"
	gga         = "$GPGGA,092750.000,5321.6802,N,00630.3372,W,1,8,1.03,61.7,M,55.2,M,,*76"
)

func TestParseFix(t *testing.T) {
	fix, err := ParseFix(rmcValid + "\r\n")
	require.NoError(t, err)

	assert.True(t, fix.Valid())
	assert.Equal(t, "A", fix.Validity)
	assert.InDelta(t, 51.5636667, fix.Latitude, 1e-6)
	assert.InDelta(t, -0.704, fix.Longitude, 1e-6)
	assert.InDelta(t, 173.8, fix.SpeedKnots, 1e-9)
	assert.InDelta(t, 231.8, fix.CourseDeg, 1e-9)
	assert.NotEmpty(t, fix.Time)
	assert.NotEmpty(t, fix.Date)
}

func TestParseFixPoint(t *testing.T) {
	fix, err := ParseFix(rmcIstanbul)
	require.NoError(t, err)

	p := fix.Point()
	assert.InDelta(t, 41.0082, p.Latitude, 1e-6)
	assert.InDelta(t, 28.9784, p.Longitude, 1e-6)
	assert.NoError(t, p.Validate())
	assert.Equal(t, geo.Point{Latitude: fix.Latitude, Longitude: fix.Longitude}, p)
}

func TestParseFixVoid(t *testing.T) {
	fix, err := ParseFix(rmcVoid)

	assert.ErrorIs(t, err, ErrNoFix)
	assert.False(t, fix.Valid())
	assert.Equal(t, "V", fix.Validity)
}

func TestParseFixErrors(t *testing.T) {
	t.Run("other sentence type", func(t *testing.T) {
		_, err := ParseFix(gga)
		assert.ErrorIs(t, err, ErrUnsupportedSentence)
	})

	t.Run("bad checksum", func(t *testing.T) {
		_, err := ParseFix("$GPRMC,220516,A,5133.82,N,00042.24,W,173.8,231.8,130694,004.2,W*00")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnsupportedSentence)
		assert.NotErrorIs(t, err, ErrNoFix)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseFix("not nmea at all")
		assert.Error(t, err)
	})
}
