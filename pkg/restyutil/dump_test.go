package restyutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type memoryOutput struct {
	mutex    sync.Mutex
	messages map[string]string
}

func (o *memoryOutput) Write(id string, contents string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.messages[id] = contents
}

func newServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "MoodleSession", Value: "secret-cookie"})
		w.Write([]byte("<h1>hello</h1>"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDumpMessages(t *testing.T) {
	srv := newServer(t)
	output := &memoryOutput{messages: map[string]string{}}

	client := resty.New().SetBaseURL(srv.URL)
	DumpMessages(client, "login", output)

	_, err := client.R().
		SetQueryParam("sesskey", "secret-sesskey").
		Get("/my/")
	require.NoError(t, err)
	_, err = client.R().
		SetFormData(map[string]string{
			"username": "student",
			"password": "hunter2",
		}).
		Post("/login/index.php")
	require.NoError(t, err)

	require.Len(t, output.messages, 2)
	get := output.messages["login-0001"]
	require.Contains(t, get, "---- REQUEST ----")
	require.Contains(t, get, "GET ")
	require.Contains(t, get, "<h1>hello</h1>")
	require.NotContains(t, get, "secret-sesskey")
	require.NotContains(t, get, "secret-cookie")

	post := output.messages["login-0002"]
	require.Contains(t, post, "username=student")
	require.NotContains(t, post, "hunter2")
}

func TestDumpMessagesBodilessGet(t *testing.T) {
	srv := newServer(t)
	output := &memoryOutput{messages: map[string]string{}}

	client := resty.New()
	DumpMessages(client, "session1", output)

	require.NotPanics(t, func() {
		res, err := client.R().Get(srv.URL + "/login/index.php")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, res.StatusCode())
	})

	dump := output.messages["session1-0001"]
	require.Contains(t, dump, "GET "+srv.URL+"/login/index.php")
	require.Contains(t, dump, "---- RESPONSE ----")
}

func TestFormatRequestBody(t *testing.T) {
	get, err := http.NewRequest(http.MethodGet, "https://elms.test/my/", nil)
	require.NoError(t, err)
	require.Equal(t, "", formatRequestBody(get))

	get.GetBody = func() (io.ReadCloser, error) { return nil, nil }
	require.Equal(t, "", formatRequestBody(get))

	post, err := http.NewRequest(
		http.MethodPost,
		"https://elms.test/login/index.php",
		strings.NewReader("username=student&password=hunter2&logintoken=abc"),
	)
	require.NoError(t, err)
	post.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	body := formatRequestBody(post)
	require.Contains(t, body, "username=student")
	require.NotContains(t, body, "hunter2")
	require.NotContains(t, body, "logintoken=abc")
}

func TestDumpMessagesNilOutput(t *testing.T) {
	srv := newServer(t)
	client := resty.New().SetBaseURL(srv.URL)
	DumpMessages(client, "x", nil)

	_, err := client.R().Get("/")
	require.NoError(t, err)
}

func TestFilesystemOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dump")
	require.NoError(t, os.MkdirAll(dir, 0700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale.txt"), []byte("old"), 0600))

	output, err := NewFilesystemOutput(dir)
	require.NoError(t, err)
	output.Write("roster-0001", "contents")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	content, err := os.ReadFile(filepath.Join(dir, "roster-0001.txt"))
	require.NoError(t, err)
	require.Equal(t, "contents", string(content))
}
