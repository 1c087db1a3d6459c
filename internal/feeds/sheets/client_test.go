package sheets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citizenship/pkg/platform/sentinel"
)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL)
}

func TestValues(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sheet-id/values/Citizens!D3:D", r.URL.Path)
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		assert.Equal(t, "columns", r.URL.Query().Get("majorDimension"))
		_, _ = w.Write([]byte(`{"range":"Citizens!D3:D100","majorDimension":"COLUMNS","values":[["Testlandia","Otherland"]]}`))
	})

	vr, err := c.Values(context.Background(), "k", "sheet-id", "Citizens!D3:D", "columns")
	require.NoError(t, err)
	assert.Equal(t, "Citizens", vr.SheetTitle())
	assert.Equal(t, [][]string{{"Testlandia", "Otherland"}}, vr.Values)
}

func TestErrorEnvelope(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	})

	_, err := c.Values(context.Background(), "k", "id", "A!A1:A", "rows")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Quota exceeded", apiErr.Message)
}

func TestEnvelopeOn200IsStillAnError(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"code":500,"message":"backend"}}`))
	})
	_, err := c.Metadata(context.Background(), "k", "id")
	var apiErr *APIError
	assert.True(t, errors.As(err, &apiErr))
}

func TestTransportError(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	})
	_, err := c.Metadata(context.Background(), "k", "id")
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestBatchGet(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gov/values:batchGet", r.URL.Path)
		assert.Equal(t, []string{"Cabinet!A2:C", "'Bob''s'!A2:C"}, r.URL.Query()["ranges"])
		_, _ = w.Write([]byte(`{"valueRanges":[
			{"range":"Cabinet!A2:C9","values":[["Delegate","","Testlandia"]]},
			{"range":"'Bob''s'!A2:C9","values":[]}
		]}`))
	})

	got, err := c.BatchGet(context.Background(), "k", "gov", []string{"Cabinet!A2:C", "'Bob''s'!A2:C"}, "rows")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Cabinet", got[0].SheetTitle())
	assert.Equal(t, "Bob's", got[1].SheetTitle())
}

func TestSheetTitle(t *testing.T) {
	assert.Equal(t, "Roster", ValueRange{Range: "Roster!B4:B"}.SheetTitle())
	assert.Equal(t, "Bob's Sheet", ValueRange{Range: "'Bob''s Sheet'!A1"}.SheetTitle())
}
