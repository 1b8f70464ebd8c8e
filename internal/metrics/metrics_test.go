package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_ExposesRecordedCollectors(t *testing.T) {
	RecordProviderAttempt("openai", "success", 1200*time.Millisecond)
	RecordResultServed("template")
	RecordTopicOutcome("bulk", "failed")
	RecordClusterRun("completed")
	RecordReconcileMatch("title_substring")
	RecordPlatformSync("synced")

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	for _, want := range []string{
		`content_provider_attempts_total{outcome="success",provider="openai"}`,
		`content_generation_results_total{provider="template"}`,
		`content_batch_topic_outcomes_total{mode="bulk",status="failed"}`,
		`content_cluster_runs_total{state="completed"}`,
		`content_cluster_reconcile_matches_total{rule="title_substring"}`,
		`content_platform_sync_total{outcome="synced"}`,
		"go_goroutines",
	} {
		assert.Contains(t, string(body), want)
	}
}
