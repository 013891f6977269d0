package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/payments/balance", "200"))

	RecordHTTPRequest("GET", "/payments/balance", "200", 0.01)

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/payments/balance", "200"))
	assert.Equal(t, before+1, after)
}

func TestRecordReconciliation(t *testing.T) {
	before := testutil.ToFloat64(ReconciliationsTotal.WithLabelValues("deposit", "paid"))

	RecordReconciliation("deposit", "paid")
	RecordReconciliation("deposit", "paid")

	after := testutil.ToFloat64(ReconciliationsTotal.WithLabelValues("deposit", "paid"))
	assert.Equal(t, before+2, after)
}

func TestRecordWebhook(t *testing.T) {
	before := testutil.ToFloat64(WebhooksTotal.WithLabelValues("unauthorized"))

	RecordWebhook("unauthorized")

	after := testutil.ToFloat64(WebhooksTotal.WithLabelValues("unauthorized"))
	assert.Equal(t, before+1, after)
}
