package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvelope(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestListSendsFilterAndReadsMeta(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/attendance", r.URL.Path)
		assert.Equal(t, "is.null", r.URL.Query().Get("check_out_time"))
		assert.Equal(t, "in.(2026-10-18,2026-10-19)", r.URL.Query().Get("date"))
		writeEnvelope(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    []map[string]any{{"id": "a1", "check_in_time": "09:00:00", "shift_type": "warehouse"}},
			"meta":    map[string]any{"limit": 50, "offset": 0, "total_items": 1},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	f := query.New().In("date", "2026-10-18", "2026-10-19").IsNull("check_out_time")
	rows, meta, err := c.Attendance.List(context.Background(), f)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a1", rows[0].ID)
	assert.Equal(t, attendance.ShiftWarehouse, rows[0].ShiftType)
	require.NotNil(t, meta)
	assert.EqualValues(t, 1, meta.TotalItems)
}

func TestAPIErrorCarriesEnvelopeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusConflict, map[string]any{
			"success": false,
			"error":   map[string]any{"code": "ALREADY_CHECKED_IN", "message": "already checked in"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	_, err := c.Attendance.CheckIn(context.Background(), attendance.CheckInRequest{ShiftType: attendance.ShiftExtra})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.True(t, HasCode(err, "ALREADY_CHECKED_IN"))
	assert.False(t, IsOffline(err))
}

func TestUnreachableServerIsOffline(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, nil)
	_, err := c.Warehouses.List(context.Background())
	assert.True(t, IsOffline(err))
	assert.True(t, IsOffline(c.Transport.Ping(context.Background())))
}

func TestGatewayErrorIsOffline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, srv.Client()).Notifications.MarkRead(context.Background(), "n1")
	assert.True(t, IsOffline(err))
}

func TestCheckOutPathAndRPCBody(t *testing.T) {
	var paths []string
	var rpcBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/api/v1/rpc/delete_notification" {
			_ = json.NewDecoder(r.Body).Decode(&rpcBody)
		}
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"id": "a1"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	_, err := c.Attendance.CheckOut(context.Background(), attendance.CheckOutRequest{AttendanceID: "a1"})
	require.NoError(t, err)
	require.NoError(t, c.Notifications.Delete(context.Background(), "n9"))

	assert.Equal(t, []string{"/api/v1/attendance/a1/check-out", "/api/v1/rpc/delete_notification"}, paths)
	assert.Equal(t, "n9", rpcBody["p_id"])
}

func TestLoginPasswordGrant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case tokenPath:
			require.NoError(t, r.ParseForm())
			if r.PostForm.Get("password") != "secret" {
				writeEnvelope(w, http.StatusUnauthorized, map[string]any{
					"success": false,
					"error":   map[string]any{"code": "UNAUTHORIZED", "message": "invalid credentials"},
				})
				return
			}
			assert.Equal(t, "password", r.PostForm.Get("grant_type"))
			assert.Equal(t, "crew-app", r.PostForm.Get("client_id"))
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "access-1",
				"token_type":    "Bearer",
				"expires_in":    3600,
				"refresh_token": "refresh-1",
				"crew_id":       "crew-7",
				"role":          "crew",
			})
		case "/api/v1/warehouses":
			assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
			writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "data": []any{}})
		}
	}))
	defer srv.Close()

	cfg := OAuthConfig(srv.URL, "crew-app")

	_, err := Login(context.Background(), cfg, "ada@example.com", "wrong")
	assert.True(t, HasCode(err, "UNAUTHORIZED"))

	s, err := Login(context.Background(), cfg, "ada@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "crew-7", s.CrewID)
	assert.Equal(t, "crew", s.Role)

	_, err = NewClient(srv.URL, s.Client).Warehouses.List(context.Background())
	assert.NoError(t, err)
}
