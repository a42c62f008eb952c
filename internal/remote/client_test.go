package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/roamledger/roamledger/errors"
	"github.com/roamledger/roamledger/types"
)

func testTrip() *types.Trip {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	return &types.Trip{
		Name:          "Client visit Porto",
		StartDate:     &start,
		EndDate:       &end,
		IdentityValue: "12345678901",
	}
}

func testExpense() *types.Expense {
	return &types.Expense{
		TripID:        4,
		Date:          time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		Destination:   "Porto",
		Justification: "Customer onboarding",
		Breakfast:     decimal.RequireFromString("12.50"),
		Lunch:         decimal.RequireFromString("25.00"),
		Mileage:       120,
		MileageValue:  decimal.RequireFromString("130.80"),
		Receipt:       "data:image/png;base64,aGk=",
		Total:         decimal.RequireFromString("168.30"),
		MealTotal:     decimal.RequireFromString("37.50"),
	}
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{name: "valid", baseURL: "http://localhost:8080", wantErr: false},
		{name: "trailing slash", baseURL: "http://localhost:8080/", wantErr: false},
		{name: "missing scheme", baseURL: "localhost:8080", wantErr: true},
		{name: "empty", baseURL: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.baseURL)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ValidationError))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "http://localhost:8080", client.baseURL)
			assert.NotNil(t, client.httpClient.Jar)
		})
	}
}

func TestOpenSession_CookiePersistsAcrossRequests(t *testing.T) {
	var tripRequestCookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/session":
			require.Equal(t, http.MethodPost, r.Method)
			http.SetCookie(w, &http.Cookie{Name: "roam_session", Value: "tok-123", Path: "/"})
			json.NewEncoder(w).Encode(types.SessionResponse{
				DeviceID:  "dev-1",
				ExpiresAt: "2026-09-23T00:00:00Z",
			})
		case "/v1/trips":
			if cookie, err := r.Cookie("roam_session"); err == nil {
				tripRequestCookie = cookie.Value
			}
			json.NewEncoder(w).Encode(tripPayload{ID: 1, Name: "x", IdentityValue: "12345678901"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	session, err := client.OpenSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dev-1", session.DeviceID)

	_, err = client.CreateTrip(context.Background(), testTrip())
	require.NoError(t, err)
	assert.Equal(t, "tok-123", tripRequestCookie, "session cookie should ride along on later requests")
}

func TestCreateTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/trips", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.NotContains(t, string(body), "syncStatus", "sync state must not cross the wire")

		var payload tripPayload
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "Client visit Porto", payload.Name)
		assert.Equal(t, "2024-05-01T00:00:00Z", payload.StartDate)
		assert.Equal(t, "12345678901", payload.IdentityValue)

		payload.ID = 42
		payload.CreatedAt = "2024-05-01T10:30:00Z"
		json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	created, err := client.CreateTrip(context.Background(), testTrip())
	require.NoError(t, err)
	assert.Equal(t, int64(42), created.ID)
	require.NotNil(t, created.StartDate)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), *created.StartDate)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC), created.CreatedAt)
}

func TestUpdateTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/v1/trips/42", r.URL.Path)
		var payload tripPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	trip := testTrip()
	trip.ID = 42
	updated, err := client.UpdateTrip(context.Background(), trip)
	require.NoError(t, err)
	assert.Equal(t, int64(42), updated.ID)
	assert.Equal(t, trip.Name, updated.Name)
}

func TestTripsByIdentity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/v1/trips/by-identity/12345678901", r.URL.Path)
		json.NewEncoder(w).Encode([]tripPayload{
			{ID: 1, Name: "First", IdentityValue: "12345678901", StartDate: "2024-05-01T00:00:00Z"},
			{ID: 2, Name: "Second", IdentityValue: "12345678901"},
		})
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	trips, err := client.TripsByIdentity(context.Background(), "12345678901")
	require.NoError(t, err)
	require.Len(t, trips, 2)
	assert.Equal(t, int64(1), trips[0].ID)
	require.NotNil(t, trips[0].StartDate)
	assert.Nil(t, trips[1].StartDate)
}

func TestCreateExpense_AmountsAsDecimalStrings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/trips/4/expenses", r.URL.Path)

		var raw map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Equal(t, "12.5", raw["breakfast"], "amounts travel as decimal strings")
		assert.Equal(t, "168.3", raw["total"])
		assert.Equal(t, "2024-05-02T00:00:00Z", raw["date"])

		var payload expensePayload
		data, _ := json.Marshal(raw)
		require.NoError(t, json.Unmarshal(data, &payload))
		payload.ID = 9
		json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	created, err := client.CreateExpense(context.Background(), testExpense())
	require.NoError(t, err)
	assert.Equal(t, int64(9), created.ID)
	assert.True(t, created.Breakfast.Equal(decimal.RequireFromString("12.50")))
	assert.True(t, created.Total.Equal(decimal.RequireFromString("168.30")))
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), created.Date)
}

func TestUpdateExpense(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/v1/expenses/9", r.URL.Path)
		require.Equal(t, "12345678901", r.URL.Query().Get("identity"))
		var payload expensePayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	expense := testExpense()
	expense.ID = 9
	updated, err := client.UpdateExpense(context.Background(), expense, "12345678901")
	require.NoError(t, err)
	assert.Equal(t, int64(9), updated.ID)
	assert.Equal(t, "Porto", updated.Destination)
}

func TestExpensesByTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/expenses/by-trip/4", r.URL.Path)
		fmt.Fprint(w, `[{"id":9,"tripId":4,"date":"2024-05-02T00:00:00Z","destination":"Porto",
			"justification":"x","breakfast":"12.50","lunch":"0","dinner":"0","transport":"0",
			"parking":"0","other":"0","mileage":0,"mileageValue":"0","receipt":"r",
			"total":"12.50","mealTotal":"12.50"}]`)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	expenses, err := client.ExpensesByTrip(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, int64(9), expenses[0].ID)
	assert.True(t, expenses[0].Breakfast.Equal(decimal.RequireFromString("12.5")))
}

func TestDeleteOperations(t *testing.T) {
	var gotPath, gotMethod, gotIdentity string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		gotIdentity = r.URL.Query().Get("identity")
		json.NewEncoder(w).Encode(types.DeleteResponse{ID: 7, Deleted: true})
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	require.NoError(t, client.DeleteTrip(context.Background(), 7, "12345678901"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/v1/trips/7", gotPath)
	assert.Equal(t, "12345678901", gotIdentity)

	require.NoError(t, client.DeleteExpense(context.Background(), 8, "12345678901"))
	assert.Equal(t, "/v1/expenses/8", gotPath)
	assert.Equal(t, "12345678901", gotIdentity)
}

func TestErrorMapping(t *testing.T) {
	t.Run("non-success status becomes RemoteRequestFailed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":"RECORD_NOT_FOUND","message":"Trip not found"}`)
		}))
		defer server.Close()

		client, err := NewClient(server.URL)
		require.NoError(t, err)

		_, err = client.UpdateTrip(context.Background(), &types.Trip{ID: 99, Name: "x", IdentityValue: "12345678901"})
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.RemoteRequestFailedError))

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, http.StatusNotFound, appErr.RemoteStatus)
		assert.Contains(t, appErr.Detail, "Trip not found")
	})

	t.Run("unreachable server becomes RemoteUnreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		serverURL := server.URL
		server.Close()

		client, err := NewClient(serverURL)
		require.NoError(t, err)

		_, err = client.CreateTrip(context.Background(), testTrip())
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.RemoteUnreachableError))
		assert.True(t, apperrors.IsRemoteFailure(err))
	})

	t.Run("malformed success body becomes RemoteRequestFailed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{not json`)
		}))
		defer server.Close()

		client, err := NewClient(server.URL)
		require.NoError(t, err)

		_, err = client.CreateTrip(context.Background(), testTrip())
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.RemoteRequestFailedError))
	})

	t.Run("malformed date in body is rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(tripPayload{ID: 1, Name: "x", StartDate: "05/01/2024"})
		}))
		defer server.Close()

		client, err := NewClient(server.URL)
		require.NoError(t, err)

		_, err = client.CreateTrip(context.Background(), testTrip())
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.RemoteRequestFailedError))
	})
}

func TestWithTimeout(t *testing.T) {
	client, err := NewClient("http://localhost:8080", WithTimeout(3*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, client.httpClient.Timeout)
}
