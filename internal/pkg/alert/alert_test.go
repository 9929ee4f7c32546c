package alert

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutTokenIsNoop(t *testing.T) {
	n := New("", "C123")
	_, ok := n.(Noop)
	assert.True(t, ok)
	assert.NoError(t, n.Send(context.Background(), Alert{Title: "ignored"}))
}

func TestSlackSend(t *testing.T) {
	var gotChannel, gotText string
	var gotAttachments []slack.Attachment

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotChannel = r.Form.Get("channel")
		gotText = r.Form.Get("text")
		_ = json.Unmarshal([]byte(r.Form.Get("attachments")), &gotAttachments)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1700000000.000100"}`))
	}))
	defer srv.Close()

	n := New("xoxb-test", "C123", slack.OptionAPIURL(srv.URL+"/"))
	err := n.Send(context.Background(), Alert{
		Level:   LevelWarning,
		Title:   "Forced check-in",
		Message: "Mario Rossi checked in without GPS",
		Fields:  map[string]string{"warehouse": "Milano Nord", "reason": "no signal"},
	})
	require.NoError(t, err)

	assert.Equal(t, "C123", gotChannel)
	assert.Equal(t, "Forced check-in", gotText)
	require.Len(t, gotAttachments, 1)
	assert.Equal(t, "warning", gotAttachments[0].Color)
	require.Len(t, gotAttachments[0].Fields, 2)
	assert.Equal(t, "reason", gotAttachments[0].Fields[0].Title)
}

func TestSlackSendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	}))
	defer srv.Close()

	err := NewSlack("xoxb-test", "C404", slack.OptionAPIURL(srv.URL+"/")).Send(context.Background(), Alert{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}
