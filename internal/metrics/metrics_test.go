package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesLedgerEvents(t *testing.T) {
	LedgerEvents.WithLabelValues("attendance.marked", "Udbhav").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `tutorhub_ledger_events_consumed_total{batch="Udbhav",kind="attendance.marked"}`)
}
