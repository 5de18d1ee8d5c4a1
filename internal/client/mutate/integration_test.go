package mutate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/brigade/internal/client/reconcile"
	"github.com/Additional-Code/brigade/internal/client/rest"
	"github.com/Additional-Code/brigade/internal/dto"
	"github.com/Additional-Code/brigade/internal/status"
)

// Drives the coordinator through a real HTTP round trip: the optimistic
// change shows immediately, the server confirms, and a server rejection rolls
// the collection back with the server's message surfaced verbatim.
func TestCoordinatorOverHTTP(t *testing.T) {
	base := time.Now().UTC().Truncate(time.Second)
	held := dto.Order{ID: 5, TableNumber: 2, ServerName: "dana", Status: status.Pending,
		CreatedAt: base, UpdatedAt: base}

	reject := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/orders/5/status", r.URL.Path)

		if reject {
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "order was already completed"})
			return
		}

		var body struct {
			Status status.Status `json:"status"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		confirmed := held
		confirmed.Status = body.Status
		confirmed.UpdatedAt = base.Add(time.Minute)
		_ = json.NewEncoder(w).Encode(map[string]any{"data": confirmed})
	}))
	defer srv.Close()

	engine := reconcile.NewEngine([]dto.Order{held})
	coord := NewCoordinator(rest.NewClient(srv.URL, time.Second), engine, zap.NewNop())

	require.NoError(t, coord.ChangeStatus(context.Background(), 5, status.InProgress))
	got, ok := engine.Get(5)
	require.True(t, ok)
	assert.Equal(t, status.InProgress, got.Status)

	// Server-side rejection reverts the optimistic change.
	reject = true
	err := coord.ChangeStatus(context.Background(), 5, status.Halted)
	require.Error(t, err)
	assert.EqualError(t, err, "order was already completed")

	got, _ = engine.Get(5)
	assert.Equal(t, status.InProgress, got.Status, "rejected change must be rolled back")
}
