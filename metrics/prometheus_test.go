package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	cases := map[int]string{200: "2xx", 201: "2xx", 302: "3xx", 404: "4xx", 503: "5xx", 42: "unknown", 700: "unknown"}
	for code, want := range cases {
		assert.Equal(t, want, classifyStatus(code), code)
	}
}

func TestRecordListing(t *testing.T) {
	before := testutil.ToFloat64(listingsTotal.WithLabelValues("metrics_test", OutcomePersisted))
	RecordListing("metrics_test", OutcomePersisted)
	RecordListing("metrics_test", OutcomePersisted)
	after := testutil.ToFloat64(listingsTotal.WithLabelValues("metrics_test", OutcomePersisted))
	assert.Equal(t, before+2, after)
}
