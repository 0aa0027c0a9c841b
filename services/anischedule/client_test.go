package anischedule

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const weekBody = `{
  "schedule": {
    "MONDAY": [
      {"schedule_id": 42, "airing_at": 1741622400, "episode": 5, "anime_id": 154587,
       "title": "Frieren", "cover_image": null, "total_episodes": 28, "score": 91,
       "airs_in_human": "in 2 days", "airing_status": "upcoming"}
    ],
    "TUESDAY": []
  },
  "week_start": "2025-03-10",
  "week_end": "2025-03-16",
  "weeks_offset": 1,
  "timezone": "UTC"
}`

func testClient(url string) *Client {
	return NewClient(Config{BaseURL: url + "/", RetryAttempts: 3, RetryDelay: time.Millisecond})
}

func TestFetchWeek(t *testing.T) {
	var gotPath, gotOffset string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotOffset = r.URL.Query().Get("weeks_offset")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(weekBody))
	}))
	defer srv.Close()

	week, err := testClient(srv.URL).FetchWeek(context.Background(), -2)
	require.NoError(t, err)

	assert.Equal(t, "/anime/schedule/weekly", gotPath)
	assert.Equal(t, "-2", gotOffset)
	require.Len(t, week.Schedule["MONDAY"], 1)
	e := week.Schedule["MONDAY"][0]
	assert.Equal(t, int64(42), e.ScheduleID)
	assert.Equal(t, "Frieren", e.Title)
	assert.Nil(t, e.CoverImage)
	require.NotNil(t, e.TotalEpisodes)
	assert.Equal(t, 28, *e.TotalEpisodes)
	assert.NotNil(t, week.Schedule["TUESDAY"])
}

func TestFetchWeekRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(weekBody))
	}))
	defer srv.Close()

	week, err := testClient(srv.URL).FetchWeek(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, week.Schedule["MONDAY"], 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchWeekGivesUpAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchWeek(context.Background(), 0)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchWeekPermanentFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr func(t *testing.T, err error)
	}{
		{
			name:   "not found",
			status: http.StatusNotFound,
			body:   `{"detail":"no such week"}`,
			wantErr: func(t *testing.T, err error) {
				var statusErr *StatusError
				require.ErrorAs(t, err, &statusErr)
				assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
				assert.Contains(t, statusErr.Body, "no such week")
			},
		},
		{
			name:   "missing schedule",
			status: http.StatusOK,
			body:   `{"week_start":"2025-03-10"}`,
			wantErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMalformedPayload)
			},
		},
		{
			name:   "invalid json",
			status: http.StatusOK,
			body:   `{"schedule": nope}`,
			wantErr: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "decode response")
			},
		},
		{
			name:   "wrong shape",
			status: http.StatusOK,
			body:   `{"schedule": {"MONDAY": "soon"}}`,
			wantErr: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "decode response")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := testClient(srv.URL).FetchWeek(context.Background(), 0)
			require.Error(t, err)
			tt.wantErr(t, err)
			assert.Equal(t, int32(1), calls.Load(), "permanent failures are not retried")
		})
	}
}

func TestFetchWeekHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := testClient(srv.URL).FetchWeek(ctx, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestFetchWeekRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(weekBody))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, RateLimit: 20, RateBurst: 1})
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.FetchWeek(context.Background(), i)
		require.NoError(t, err)
	}
	// One token up front, then one every 50ms.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(errors.New("connection reset")))
	assert.True(t, isRetryable(&StatusError{StatusCode: 502}))
	assert.True(t, isRetryable(&StatusError{StatusCode: 429}))
	assert.False(t, isRetryable(&StatusError{StatusCode: 400}))
	assert.False(t, isRetryable(ErrMalformedPayload))
	assert.False(t, isRetryable(context.Canceled))
}
