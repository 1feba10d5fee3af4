package remote_test

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todolist/internal/remote"
)

const seedBody = `{
	"todos": [
		{"id": 1, "todo": "Test todo 1", "completed": false, "userId": 68},
		{"id": 2, "todo": "Test todo 2", "completed": true, "userId": 68}
	],
	"total": 2, "skip": 0, "limit": 30
}`

var fixedNow = time.Date(2025, 5, 26, 12, 0, 0, 0, time.UTC)

func serve(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.RawQuery != "" {
			t.Errorf("expected no query, got %q", r.URL.RawQuery)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newClient(srv *httptest.Server) *remote.Client {
	return remote.New(srv.URL+"/todos",
		remote.WithHTTPClient(srv.Client()),
		remote.WithClock(func() time.Time { return fixedNow }))
}

func TestFetchSeedTasks_MapsTodos(t *testing.T) {
	srv, calls := serve(t, http.StatusOK, seedBody)

	tasks, err := newClient(srv).FetchSeedTasks(t.Context())

	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())
	require.Len(t, tasks, 2)

	assert.Equal(t, 1, tasks[0].ID)
	assert.Equal(t, "Test todo 1", tasks[0].Title)
	assert.False(t, tasks[0].Completed)
	assert.False(t, tasks[0].Description.Valid)
	assert.Equal(t, fixedNow, tasks[0].CreatedAt)

	assert.Equal(t, 2, tasks[1].ID)
	assert.Equal(t, "Test todo 2", tasks[1].Title)
	assert.True(t, tasks[1].Completed)
	assert.False(t, tasks[1].Description.Valid)
}

func TestFetchSeedTasks_EmptyList(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, `{"todos": []}`)

	tasks, err := newClient(srv).FetchSeedTasks(t.Context())

	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestFetchSeedTasks_EmptyBody(t *testing.T) {
	for _, body := range []string{"", " \n\t"} {
		srv, _ := serve(t, http.StatusOK, body)

		_, err := newClient(srv).FetchSeedTasks(t.Context())

		require.ErrorIs(t, err, remote.ErrEmptyResponse)
	}
}

func TestFetchSeedTasks_DecodeErrors(t *testing.T) {
	cases := map[string]string{
		"wrong key":     `{"wrong_key": [{"invalid": "data"}]}`,
		"not json":      `<html>oops</html>`,
		"wrong type":    `{"todos": [{"id": "one", "todo": "x", "completed": false}]}`,
		"missing field": `{"todos": [{"id": 1, "todo": "x"}]}`,
		"todos null":    `{"todos": null}`,
		"array body":    `[]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv, _ := serve(t, http.StatusOK, body)

			_, err := newClient(srv).FetchSeedTasks(t.Context())

			require.ErrorIs(t, err, remote.ErrDecode)
		})
	}
}

func TestFetchSeedTasks_TransportError(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, seedBody)
	client := newClient(srv)
	srv.Close()

	_, err := client.FetchSeedTasks(t.Context())

	require.ErrorIs(t, err, remote.ErrTransport)
}

func TestFetchSeedTasks_ServerErrorStatus(t *testing.T) {
	srv, calls := serve(t, http.StatusInternalServerError, `{"message":"boom"}`)

	_, err := newClient(srv).FetchSeedTasks(t.Context())

	require.ErrorIs(t, err, remote.ErrTransport)
	assert.EqualValues(t, 1, calls.Load(), "no retry expected")
}

func TestFetchSeedTasks_InvalidEndpoint(t *testing.T) {
	for _, endpoint := range []string{"", "://nope", "dummyjson.com/todos", "ftp://example.com/todos", "http:///todos"} {
		_, err := remote.New(endpoint).FetchSeedTasks(t.Context())

		require.ErrorIs(t, err, remote.ErrInvalidEndpoint, "endpoint %q", endpoint)
	}
}
