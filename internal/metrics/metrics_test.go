package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"medialib/pkg/search"
)

func TestObserveSearch(t *testing.T) {
	before := testutil.ToFloat64(SearchFiltersTotal.WithLabelValues("characters", "appearances"))
	beforeReq := testutil.ToFloat64(SearchRequestsTotal.WithLabelValues("characters", "true"))

	ObserveSearch("characters", []search.Key{search.KeyName, search.KeyAppearances})

	assert.Equal(t, before+1, testutil.ToFloat64(SearchFiltersTotal.WithLabelValues("characters", "appearances")))
	assert.Equal(t, beforeReq+1, testutil.ToFloat64(SearchRequestsTotal.WithLabelValues("characters", "true")))
}

func TestObserveSearchUnfiltered(t *testing.T) {
	before := testutil.ToFloat64(SearchRequestsTotal.WithLabelValues("media", "false"))
	ObserveSearch("media", nil)
	assert.Equal(t, before+1, testutil.ToFloat64(SearchRequestsTotal.WithLabelValues("media", "false")))
}
