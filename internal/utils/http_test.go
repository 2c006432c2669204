package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobert/halfremembered-launcher/models"
)

var recordedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// ── WriteJSON ────────────────────────────────────────────────────────────────

func TestWriteJSON_StatusPayloads(t *testing.T) {
	tests := []struct {
		name     string
		data     any
		status   int
		wantBody string
	}{
		{
			name: "server status",
			data: models.ServerStatus{
				Hostname: "hub",
				Version:  "1.4.0",
				Uptime:   90 * time.Second,
				Clients:  []models.ClientInfo{{SessionID: "s-1", Hostname: "node-1", State: "active", ConnectedAt: recordedAt, LastHeartbeat: recordedAt}},
			},
			status: http.StatusOK,
			wantBody: `{"hostname":"hub","version":"1.4.0","uptime":90000000000,"clients":[` +
				`{"session_id":"s-1","hostname":"node-1","state":"active",` +
				`"connected_at":"2026-03-01T12:00:00Z","last_heartbeat":"2026-03-01T12:00:00Z"}]}`,
		},
		{
			name: "sync history flattens the outcome",
			data: []models.SyncRecord{{
				ID:          7,
				RequestID:   "r-1",
				Path:        "model.bin",
				Destination: "models/model.bin",
				SyncOutcome: models.SyncOutcome{Hostname: "gpu-1", Success: true, BytesTransferred: 42, Duration: time.Millisecond},
				RecordedAt:  recordedAt,
			}},
			status: http.StatusOK,
			wantBody: `[{"id":7,"request_id":"r-1","path":"model.bin","destination":"models/model.bin",` +
				`"hostname":"gpu-1","success":true,"bytes_transferred":42,"duration":1000000,` +
				`"recorded_at":"2026-03-01T12:00:00Z"}]`,
		},
		{
			name:     "no watches is an empty array",
			data:     []models.Watch{},
			status:   http.StatusOK,
			wantBody: `[]`,
		},
		{
			name:     "missing client",
			data:     ErrorBody{Error: "session not found"},
			status:   http.StatusNotFound,
			wantBody: `{"error":"session not found"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			n, err := WriteJSON(rec, tt.data, tt.status)
			require.NoError(t, err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, rec.Body.Len(), n)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestWriteJSON_UnencodablePayload(t *testing.T) {
	rec := httptest.NewRecorder()

	_, err := WriteJSON(rec, struct {
		Events chan string `json:"events"`
	}{}, http.StatusOK)

	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEqual(t, "application/json", rec.Header().Get("Content-Type"))
}

// ── WriteError ───────────────────────────────────────────────────────────────

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteError(rec, "storage is disabled", http.StatusServiceUnavailable)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "storage is disabled", body.Error)
}
