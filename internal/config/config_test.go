package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.HTTPPort)
	require.Equal(t, "edupay", cfg.JWTIssuer)
	require.Equal(t, "payment.events", cfg.KafkaTopic)
	require.Empty(t, cfg.KafkaBrokers)
	require.Equal(t, time.Minute, cfg.ReconcileInterval)
	require.Equal(t, 15*time.Second, cfg.UpstreamTimeout)
	require.Contains(t, cfg.CallbackURL, "/api/v1/payments/callback")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PAYU_KEY", "pk")
	t.Setenv("PAYU_SALT", "ps")
	t.Setenv("VEGAAH_MERCHANT_KEY", "vk")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092,broker-2:9092")
	t.Setenv("RECONCILE_AFTER", "10m")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "pk", cfg.PayU.Key)
	require.Equal(t, "ps", cfg.PayU.Salt)
	require.Equal(t, "vk", cfg.Vegaah.MerchantKey)
	require.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 10*time.Minute, cfg.ReconcileAfter)
}
