package config

import (
	"testing"
	"time"

	"github.com/mohamedkhairy/market-intel/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 300*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 20, cfg.Cache.BreadthSeriesLen)
	assert.Equal(t, 5, cfg.Cache.TopN)
	assert.Equal(t, 30*time.Second, cfg.Cache.TopMoversTTL)
	assert.Equal(t, []models.AssetClass{models.AssetClassForex, models.AssetClassStocks, models.AssetClassCrypto}, cfg.Intel.AssetClasses)
	assert.Equal(t, []string{"EURUSD", "GBPUSD", "USDJPY", "AUDUSD"}, cfg.Intel.Symbols[models.AssetClassForex])
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, 50, cfg.Intel.APIRateLimit)
	assert.Equal(t, 30*time.Second, cfg.WSGateway.PingInterval)
	assert.Empty(t, cfg.WSGateway.JWTSecret)
}

func TestValidate_GatewayTimeouts(t *testing.T) {
	t.Setenv("WS_GATEWAY_PING_INTERVAL", "2m")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("INTEL_ASSET_CLASSES", "crypto")
	t.Setenv("INTEL_CRYPTO_SYMBOLS", "BTC/USD, ETH/USD")
	t.Setenv("CACHE_BREADTH_SERIES_LEN", "10")
	t.Setenv("INTEL_RUN_ONCE", "true")
	t.Setenv("NEWS_CACHE_TTL", "1m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []models.AssetClass{models.AssetClassCrypto}, cfg.Intel.AssetClasses)
	assert.Equal(t, []string{"BTC/USD", "ETH/USD"}, cfg.Intel.Symbols[models.AssetClassCrypto])
	assert.Equal(t, 10, cfg.Cache.BreadthSeriesLen)
	assert.True(t, cfg.Intel.RunOnce)
	assert.Equal(t, time.Minute, cfg.News.CacheTTL)
}

func TestLoad_CanonicalizesSymbols(t *testing.T) {
	t.Setenv("INTEL_FOREX_SYMBOLS", " eur/usd ,gbpusd")
	t.Setenv("INTEL_STOCK_SYMBOLS", "aapl")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"EUR/USD", "GBPUSD"}, cfg.Intel.Symbols[models.AssetClassForex])
	assert.Equal(t, []string{"AAPL"}, cfg.Intel.Symbols[models.AssetClassStocks])
}

func TestLoad_UnknownAssetClass(t *testing.T) {
	t.Setenv("INTEL_ASSET_CLASSES", "forex,bonds")

	_, err := Load()
	assert.ErrorIs(t, err, models.ErrUnknownAssetClass)
}

func TestValidate(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Cache.TopN = 0
	assert.Error(t, cfg.Validate())

	cfg.Cache.TopN = 5
	cfg.Intel.Symbols[models.AssetClassStocks] = nil
	assert.Error(t, cfg.Validate())
}

func TestGetEnvAsStringSlice(t *testing.T) {
	t.Setenv("TEST_SLICE", " a, ,b ,")
	assert.Equal(t, []string{"a", "b"}, getEnvAsStringSlice("TEST_SLICE", nil))

	t.Setenv("TEST_SLICE", " , ")
	assert.Equal(t, []string{"x"}, getEnvAsStringSlice("TEST_SLICE", []string{"x"}))
}
