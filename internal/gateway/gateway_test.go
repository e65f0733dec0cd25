package gateway

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eduhub/edupay/internal/config"
	"github.com/eduhub/edupay/internal/errs"
	"github.com/eduhub/edupay/internal/models"
)

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "1499.00", FormatAmount(149900))
	require.Equal(t, "0.99", FormatAmount(99))
	require.Equal(t, "0.05", FormatAmount(5))
	require.Equal(t, "10.00", FormatAmount(1000))
}

func TestReference(t *testing.T) {
	payload := map[string]string{"txnid": "", "order_id": "O-1", "orderId": "O-2"}

	ref, ok := Reference(payload, []string{"txnid", "order_id", "orderId"})
	require.True(t, ok)
	require.Equal(t, "O-1", ref, "empty values are skipped, order decides ties")

	_, ok = Reference(payload, []string{"mihpayid"})
	require.False(t, ok)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(NewPayU(config.PayUConfig{Key: "k", Salt: "s"}, "cb"))

	a, err := r.Get(models.GatewayPayU)
	require.NoError(t, err)
	require.Equal(t, models.GatewayPayU, a.Name())

	_, err = r.Get(models.GatewayVegaah)
	require.True(t, errs.Is(err, errs.KindValidation))
}
