package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/agency-portal/internal/common/errors"
	"github.com/dumeirei/agency-portal/pkg/apiclient"
)

func newUpstream(t *testing.T, handler http.HandlerFunc) *apiclient.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := apiclient.New(apiclient.Config{BaseURL: srv.URL + "/api"},
		apiclient.WithTokenStore(apiclient.NewMemoryTokenStore(apiclient.Tokens{Access: "t"})))
	require.NoError(t, err)
	return c
}

func TestScreens_AddPoints(t *testing.T) {
	var calls atomic.Int32
	client := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/admin/users":
			_, _ = w.Write([]byte(`{"success":true,"data":{"items":[{"id":7,"username":"bob","total_points":10}],"total":1}}`))
		case "/api/admin/users/7/points":
			calls.Add(1)
			var body apiclient.PointsRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, 25, body.Points)
			assert.Equal(t, "Parrainage", body.Description)
			_, _ = w.Write([]byte(`{"success":true,"data":{"id":7,"username":"bob","total_points":35,"available_points":35}}`))
		default:
			http.NotFound(w, r)
		}
	})

	screens := NewScreens(client.Admin, Options{PerPage: 10})
	_, err := screens.Users.Refresh(context.Background())
	require.NoError(t, err)

	_, err = screens.AddPoints(context.Background(), 7, apiclient.PointsRequest{Points: 0, Description: "x"})
	assert.True(t, errors.Is(err, errors.ErrInvalidPoints))
	_, err = screens.AddPoints(context.Background(), 7, apiclient.PointsRequest{Points: -5, Description: "x"})
	assert.True(t, errors.Is(err, errors.ErrInvalidPoints))
	_, err = screens.AddPoints(context.Background(), 7, apiclient.PointsRequest{Points: 5, Description: " "})
	assert.True(t, errors.Is(err, errors.ErrValidation))
	assert.Equal(t, int32(0), calls.Load())

	user, err := screens.AddPoints(context.Background(), 7, apiclient.PointsRequest{Points: 25, Description: "Parrainage"})
	require.NoError(t, err)
	assert.Equal(t, 35, user.TotalPoints)

	row := screens.Users.View().State.Records[0]
	assert.True(t, row.Pending)
	assert.Equal(t, 35, row.Record.TotalPoints)
}

func TestScreens_AddTicketMessage(t *testing.T) {
	client := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/admin/support-tickets/3/messages":
			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, true, body["is_admin"])
			_, _ = w.Write([]byte(`{"id":3,"status":"waiting_response","messages":[{"id":1,"is_admin":false,"message":"help"},{"id":2,"is_admin":true,"message":"on it"}]}`))
		case "/api/admin/support-tickets/9/messages":
			w.WriteHeader(http.StatusNotFound)
		}
	})
	screens := NewScreens(client.Admin, Options{})

	_, err := screens.AddTicketMessage(context.Background(), 3, "")
	assert.True(t, errors.Is(err, errors.ErrValidation))

	ticket, err := screens.AddTicketMessage(context.Background(), 3, "on it")
	require.NoError(t, err)
	require.Len(t, ticket.Messages, 2)
	assert.True(t, ticket.Messages[1].IsAdmin)
	assert.Equal(t, apiclient.TicketWaitingResponse, ticket.Status)

	_, err = screens.AddTicketMessage(context.Background(), 9, "x")
	assert.True(t, errors.Is(err, errors.ErrTicketNotFound))
}

func TestScreens_QuoteStatusAnyToAny(t *testing.T) {
	client := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"id":1,"status":"` + body["status"].(string) + `"}`))
	})
	screens := NewScreens(client.Admin, Options{})

	for _, st := range []apiclient.QuoteStatus{apiclient.QuoteCompleted, apiclient.QuotePending, apiclient.QuoteRejected, apiclient.QuoteInReview} {
		q, err := screens.Quotes.Update(context.Background(), 1, Fields{"status": string(st)})
		require.NoError(t, err)
		assert.Equal(t, st, q.Status)
	}

	_, err := screens.Quotes.Update(context.Background(), 1, Fields{"status": "done"})
	assert.True(t, errors.Is(err, errors.ErrInvalidStatus))
	_, err = screens.Quotes.Create(context.Background(), Fields{"title": "x"})
	assert.True(t, errors.Is(err, errors.ErrPermissionDenied))
}

func TestScreens_Dashboard(t *testing.T) {
	client := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/dashboard", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"data":{"total_users":97,"open_tickets":4}}`))
	})
	stats, err := NewScreens(client.Admin, Options{}).Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 97, stats.TotalUsers)
	assert.Equal(t, 4, stats.OpenTickets)
}
