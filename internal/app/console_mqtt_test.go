package app

import (
	"bytes"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/qibla_compass/internal/gps"
	"github.com/relabs-tech/qibla_compass/internal/qibla"
)

func newTestPrinter() (*consolePrinter, *bytes.Buffer, *logtest.Hook) {
	log, hook := logtest.NewNullLogger()
	var buf bytes.Buffer
	return &consolePrinter{out: &buf, log: log}, &buf, hook
}

func TestConsolePrintsResult(t *testing.T) {
	p, buf, _ := newTestPrinter()

	p.handleResult(nil, jsonMessage(t, "qibla/result", testResult))

	assert.Equal(t,
		"[QIBLA] lat=41.008200 lon=28.978400 bearing=151.62° (SE) distance=2405km declination=+5.00°\n",
		buf.String())
}

func TestConsolePrintsOrientation(t *testing.T) {
	p, buf, _ := newTestPrinter()

	p.handleOrientation(nil, jsonMessage(t, "qibla/orientation",
		qibla.Orientation{MagneticHeading: 90, TrueHeading: 95.5, TurnAngle: 56.12, IsCalibrated: true}))
	assert.Equal(t, "[HEAD ] magnetic= 90.00° true= 95.50° turn= 56.12°\n", buf.String())

	buf.Reset()
	p.handleOrientation(nil, jsonMessage(t, "qibla/orientation", qibla.Orientation{}))
	assert.Contains(t, buf.String(), "calibration needed")
}

func TestConsolePrintsFix(t *testing.T) {
	p, buf, _ := newTestPrinter()

	p.handleFix(nil, jsonMessage(t, "qibla/gps", gps.Fix{Latitude: 41.0082, Longitude: 28.9784, Validity: "A"}))

	assert.Contains(t, buf.String(), "lat=41.008200 lon=28.978400")
	assert.Contains(t, buf.String(), "validity=A")
}

func TestConsoleLogsMalformedPayload(t *testing.T) {
	p, buf, hook := newTestPrinter()

	p.handleResult(nil, &fakeMessage{payload: []byte("x")})
	p.handleOrientation(nil, &fakeMessage{payload: []byte("x")})
	p.handleFix(nil, &fakeMessage{payload: []byte("x")})

	assert.Empty(t, buf.String())
	require.Len(t, hook.AllEntries(), 3)
}
