package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordSearch(t *testing.T) {
	before := testutil.ToFloat64(SearchRequestsTotal.WithLabelValues("text", "ok"))
	beforeErr := testutil.ToFloat64(SearchRequestsTotal.WithLabelValues("text", "error"))

	RecordSearch("text", 5*time.Millisecond, 3, nil)
	RecordSearch("text", time.Millisecond, 0, errors.New("boom"))

	if got := testutil.ToFloat64(SearchRequestsTotal.WithLabelValues("text", "ok")); got != before+1 {
		t.Errorf("ok counter = %v, want %v", got, before+1)
	}
	if got := testutil.ToFloat64(SearchRequestsTotal.WithLabelValues("text", "error")); got != beforeErr+1 {
		t.Errorf("error counter = %v, want %v", got, beforeErr+1)
	}
}

func TestRecordDegraded(t *testing.T) {
	before := testutil.ToFloat64(DegradedTotal.WithLabelValues(FeatureSales))
	RecordDegraded(FeatureSales)
	if got := testutil.ToFloat64(DegradedTotal.WithLabelValues(FeatureSales)); got != before+1 {
		t.Errorf("degraded counter = %v, want %v", got, before+1)
	}
}

func TestRecordCacheBuild(t *testing.T) {
	beforeErr := testutil.ToFloat64(CacheBuildsTotal.WithLabelValues(CacheSynonyms, "error"))

	RecordCacheBuild(CacheSynonyms, 12, nil)
	if got := testutil.ToFloat64(CacheEntries.WithLabelValues(CacheSynonyms)); got != 12 {
		t.Errorf("entries gauge = %v, want 12", got)
	}

	RecordCacheBuild(CacheSynonyms, 0, errors.New("read failed"))
	if got := testutil.ToFloat64(CacheEntries.WithLabelValues(CacheSynonyms)); got != 12 {
		t.Errorf("failed build changed entries gauge to %v", got)
	}
	if got := testutil.ToFloat64(CacheBuildsTotal.WithLabelValues(CacheSynonyms, "error")); got != beforeErr+1 {
		t.Errorf("error builds = %v, want %v", got, beforeErr+1)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/search", "200"))
	RecordAPIRequest("GET", "/api/v1/search", 200, 10*time.Millisecond)
	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/search", "200")); got != before+1 {
		t.Errorf("api counter = %v, want %v", got, before+1)
	}
}
