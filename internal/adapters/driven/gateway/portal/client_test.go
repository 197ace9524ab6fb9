package portal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
)

var testCreds = domain.Credentials{UserID: "21BCE1001", Secret: "hunter2"}

// fakePortal is a minimal portal server issuing one token per login.
type fakePortal struct {
	logins   atomic.Int32
	rejectN  atomic.Int32 // reject the next N authorised requests with 401
	payloads map[string]string
	server   *httptest.Server
}

func newFakePortal(t *testing.T, overrides ...map[string]string) *fakePortal {
	t.Helper()

	p := &fakePortal{payloads: map[string]string{
		pathAttendance: `{"data": [["CS101", "Data Structures", 40, 36, 4, 90.0], ["MA102", "Linear Algebra", "30", "21", "", ""]]}`,
		pathExams:      `{"data": [["CS101", "Data Structures", "2026-03-11", "FN", "Hall A"], ["MA102", "Linear Algebra", "12-03-2026"]]}`,
		pathInternals:  `{"data": [["CS101", "Data Structures", "CAT1", 42, 50]]}`,
		pathCGPA:       `{"data": {"cgpa": 8.71, "credits": 96, "semesters": [[1, 8.5, 24], [2, "8.9", 24]]}}`,
		pathUser:       `{"data": {"name": "Asha", "message": "Welcome back"}}`,
	}}
	for _, o := range overrides {
		for path, body := range o {
			p.payloads[path] = body
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc(pathLogin, func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password != testCreds.Secret {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		n := p.logins.Add(1)
		_ = json.NewEncoder(w).Encode(loginResponse{Token: tokenFor(n)})
	})
	for path := range p.payloads {
		path := path
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+tokenFor(p.logins.Load()) {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if p.rejectN.Load() > 0 {
				p.rejectN.Add(-1)
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(p.payloads[path]))
		})
	}

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func tokenFor(n int32) string {
	return "token-" + string(rune('a'+n))
}

func (p *fakePortal) client() *Client {
	return NewClient(p.server.URL, WithRateLimiter(NewRateLimiter(1000)))
}

func TestClient_FetchAttendance(t *testing.T) {
	portal := newFakePortal(t)

	courses, err := portal.client().FetchAttendance(context.Background(), testCreds)
	require.NoError(t, err)
	require.Len(t, courses, 2)

	assert.Equal(t, domain.Course{
		Code: "CS101", Name: "Data Structures", Total: 40, Present: 36, Absent: 4, Percentage: 90,
	}, courses[0])

	// Missing absent and percentage are derived
	assert.Equal(t, 9, courses[1].Absent)
	assert.InDelta(t, 70.0, courses[1].Percentage, 0.001)
}

func TestClient_FetchExamSchedule(t *testing.T) {
	portal := newFakePortal(t)

	exams, err := portal.client().FetchExamSchedule(context.Background(), testCreds)
	require.NoError(t, err)
	require.Len(t, exams, 2)

	assert.Equal(t, domain.Date("2026-03-11"), exams[0].Date)
	assert.Equal(t, "Hall A", exams[0].Venue)
	assert.Equal(t, domain.Date("2026-03-12"), exams[1].Date)
	assert.Empty(t, exams[1].Venue)
}

func TestClient_FetchInternalsCGPAGreeting(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client()
	ctx := context.Background()

	marks, err := client.FetchInternals(ctx, testCreds)
	require.NoError(t, err)
	assert.Equal(t, []domain.InternalMark{
		{CourseCode: "CS101", CourseName: "Data Structures", Component: "CAT1", Obtained: 42, Maximum: 50},
	}, marks)

	cgpa, err := client.FetchCGPA(ctx, testCreds)
	require.NoError(t, err)
	assert.InDelta(t, 8.71, cgpa.Value, 0.0001)
	assert.Equal(t, 96, cgpa.Credits)
	require.Len(t, cgpa.Semesters, 2)
	assert.InDelta(t, 8.9, cgpa.Semesters[1].SGPA, 0.0001)

	greeting, err := client.FetchGreeting(ctx, testCreds)
	require.NoError(t, err)
	assert.Equal(t, &domain.Greeting{Name: "Asha", Message: "Welcome back"}, greeting)

	// One login serves every call
	assert.Equal(t, int32(1), portal.logins.Load())
}

func TestClient_ConcurrentFetchesShareOneLogin(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client()
	ctx := context.Background()

	fetches := []func() error{
		func() error { _, err := client.FetchAttendance(ctx, testCreds); return err },
		func() error { _, err := client.FetchExamSchedule(ctx, testCreds); return err },
		func() error { _, err := client.FetchInternals(ctx, testCreds); return err },
		func() error { _, err := client.FetchCGPA(ctx, testCreds); return err },
		func() error { _, err := client.FetchGreeting(ctx, testCreds); return err },
	}

	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make([]error, len(fetches))
	for i, fetch := range fetches {
		wg.Add(1)
		go func(i int, fetch func() error) {
			defer wg.Done()
			<-start
			errs[i] = fetch()
		}(i, fetch)
	}
	close(start)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), portal.logins.Load())
}

func TestClient_RelogsInOnceOnUnauthorised(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client()
	ctx := context.Background()

	_, err := client.FetchGreeting(ctx, testCreds)
	require.NoError(t, err)

	portal.rejectN.Store(1)
	_, err = client.FetchGreeting(ctx, testCreds)
	require.NoError(t, err)
	assert.Equal(t, int32(2), portal.logins.Load())
}

func TestClient_UnauthorisedTwiceFails(t *testing.T) {
	portal := newFakePortal(t)
	portal.rejectN.Store(2)

	_, err := portal.client().FetchGreeting(context.Background(), testCreds)

	var statusErr *domain.HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.True(t, statusErr.IsUnauthorised())
	assert.Equal(t, pathUser, statusErr.Endpoint)
	assert.Equal(t, int32(2), portal.logins.Load())
}

func TestClient_WrongPassword(t *testing.T) {
	portal := newFakePortal(t)

	_, err := portal.client().FetchAttendance(context.Background(), domain.Credentials{UserID: "x", Secret: "nope"})

	var statusErr *domain.HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
	assert.Equal(t, pathLogin, statusErr.Endpoint)
}

func TestClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == pathLogin {
			_, _ = w.Write([]byte(`{"token":"t"}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).FetchCGPA(context.Background(), testCreds)

	var statusErr *domain.HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
}

func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(url).FetchAttendance(context.Background(), testCreds)
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestClient_ContextTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient(server.URL).FetchAttendance(ctx, testCreds)
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_MalformedPayload(t *testing.T) {
	portal := newFakePortal(t, map[string]string{
		pathExams:      `{"data": [["CS101", "Data Structures", "next tuesday"]]}`,
		pathAttendance: `<html>maintenance</html>`,
	})

	client := portal.client()

	_, err := client.FetchExamSchedule(context.Background(), testCreds)
	assert.ErrorIs(t, err, domain.ErrDecodePayload)

	_, err = client.FetchAttendance(context.Background(), testCreds)
	assert.ErrorIs(t, err, domain.ErrDecodePayload)
}

func TestClient_Forget(t *testing.T) {
	portal := newFakePortal(t)
	client := portal.client()

	_, err := client.FetchGreeting(context.Background(), testCreds)
	require.NoError(t, err)

	client.Forget(testCreds.UserID)
	_, err = client.FetchGreeting(context.Background(), testCreds)
	require.NoError(t, err)
	assert.Equal(t, int32(2), portal.logins.Load())
}
