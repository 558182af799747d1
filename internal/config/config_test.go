package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tradepulse/engine/internal/domain"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 15, cfg.Cutovers[domain.NSE].Hour())
	assert.Equal(t, 30, cfg.Cutovers[domain.NSE].Minute())
	assert.Equal(t, 23, cfg.Cutovers[domain.MCX].Hour())
}

func TestValidate_UnknownExchange(t *testing.T) {
	cfg := Default()
	cfg.Cutovers[domain.Exchange("LSE")] = Cutover(600)
	assert.Error(t, cfg.Validate())
}

func TestValidate_CutoverOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.Cutovers[domain.NSE] = Cutover(24 * 60)
	assert.Error(t, cfg.Validate())
}

func TestValidate_EmptyCutovers(t *testing.T) {
	cfg := Default()
	cfg.Cutovers = nil
	assert.Error(t, cfg.Validate())
}

func TestParseCutovers(t *testing.T) {
	got, err := parseCutovers("NSE=15:30, MCX=23:30")
	require.NoError(t, err)
	assert.Equal(t, Cutover(15*60+30), got[domain.NSE])
	assert.Equal(t, Cutover(23*60+30), got[domain.MCX])

	_, err = parseCutovers("NSE")
	assert.Error(t, err)

	_, err = parseCutovers("NSE=half past three")
	assert.Error(t, err)
}

func TestParseCutovers_RejectsOutOfRangeComponents(t *testing.T) {
	// 1:99 would otherwise fold into a valid minute-of-day (02:39).
	_, err := parseCutovers("NSE=1:99")
	assert.Error(t, err)

	_, err = parseCutovers("NSE=25:00")
	assert.Error(t, err)

	_, err = parseCutovers("NSE=-1:30")
	assert.Error(t, err)
}

func TestLoadFromEnv_Intervals(t *testing.T) {
	t.Setenv("ENGINE_INTERVAL", "500ms")
	t.Setenv("SWEEPER_INTERVAL", "30s")
	t.Setenv("THROTTLE_WINDOW", "250ms")

	cfg, err := LoadFromEnv("")
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.EngineInterval)
	assert.Equal(t, 30*time.Second, cfg.SweeperInterval)
	assert.Equal(t, 250*time.Millisecond, cfg.ThrottleWindow)
}

func TestLoadFromEnv_BadSweeperInterval(t *testing.T) {
	t.Setenv("SWEEPER_INTERVAL", "often")
	_, err := LoadFromEnv("")
	assert.Error(t, err)
}
