package classifier

import (
	"context"
	"testing"

	"github.com/couchcryptid/radar-ppi-etl/internal/radar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleBased_Classify(t *testing.T) {
	vol := testVolume()
	dbzh := vol.Scans[0].Params[radar.ParamDBZH]
	rhohv := vol.Scans[0].Params[radar.ParamRHOHV]

	dbzh[1] = -12         // weak echo: below reflectivity cut
	rhohv[2] = 0.7        // depolarized: biology
	dbzh[3] = radar.NoData // missing input

	out, err := NewRuleBased().Classify(context.Background(), vol)
	require.NoError(t, err)
	require.NoError(t, radar.ValidateClassification(vol, out))

	weather := out.Scans[0].Params[radar.ParamWeather]
	require.Len(t, weather, 8)
	assert.Equal(t, 1.0, weather[0], "high RHOHV and DBZH is precipitation")
	assert.Equal(t, 0.0, weather[1])
	assert.Equal(t, 0.0, weather[2])
	assert.True(t, radar.IsNoData(weather[3]), "missing inputs stay missing")

	// Input volume untouched.
	assert.NotContains(t, vol.Scans[0].Params, radar.ParamWeather)
}

func TestRuleBased_SkipsScansWithoutDualPol(t *testing.T) {
	vol := testVolume()
	delete(vol.Scans[0].Params, radar.ParamRHOHV)

	out, err := NewRuleBased().Classify(context.Background(), vol)
	require.NoError(t, err)

	assert.NotContains(t, out.Scans[0].Params, radar.ParamWeather)
	assert.Contains(t, out.Scans[0].Params, radar.ParamDBZH)
}

func TestRuleBased_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRuleBased().Classify(ctx, testVolume())
	require.ErrorIs(t, err, context.Canceled)
}
