package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserversAreSafeBeforeInit(t *testing.T) {
	// Must not panic when collectors are not yet registered.
	ObserveTrigger("loaded")
	ObserveAudit("homepage", "mobile")
	ObserveDebounce("homepage")
	ObservePublish("ok")
}

func TestInitAndObserve(t *testing.T) {
	Init()
	Init() // second call is a no-op

	before := testutil.ToFloat64(triggersTotal.WithLabelValues("loaded"))
	ObserveTrigger("loaded")
	assert.Equal(t, before+1, testutil.ToFloat64(triggersTotal.WithLabelValues("loaded")))

	before = testutil.ToFloat64(debounceSuppressedTotal.WithLabelValues("homepage"))
	ObserveDebounce("homepage")
	assert.Equal(t, before+1, testutil.ToFloat64(debounceSuppressedTotal.WithLabelValues("homepage")))
}
