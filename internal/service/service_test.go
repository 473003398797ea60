package service

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"elms-extractor/internal/components/chrono"
	"elms-extractor/internal/components/telemetry"
	"elms-extractor/internal/scrapers/elms"
	"elms-extractor/internal/scrapers/elms/elmstest"
	"elms-extractor/internal/sessioncache"
	"elms-extractor/pkg/serviceutil"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	portal *elmstest.Server
	cache  *sessioncache.Cache[*elms.Session]
	clock  *chrono.ManualClock
	client Client
	server *httptest.Server
}

func setup(t *testing.T, fixture elmstest.Fixture) testEnv {
	t.Helper()

	portal := elmstest.NewServer(fixture)
	t.Cleanup(portal.Close)

	tel := telemetry.NewRecorder()
	elmsClient, err := elms.NewClient(elms.Options{
		BaseUrl: portal.URL,
		Timeout: time.Second * 5,
	}, tel)
	require.NoError(t, err)

	clock := chrono.NewManualClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	cache := sessioncache.New[*elms.Session](time.Minute*30, clock, tel)

	server := httptest.NewServer(NewMux(NewService(elmsClient, cache, tel)))
	t.Cleanup(server.Close)

	return testEnv{
		portal: portal,
		cache:  cache,
		clock:  clock,
		client: NewClient(server.Client(), server.URL),
		server: server,
	}
}

func authorized[T any](token string, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set("Authorization", "Bearer "+token)
	return req
}

func (env testEnv) login(t *testing.T) string {
	t.Helper()
	res, err := env.client.Login(context.Background(), connect.NewRequest(&LoginRequest{
		Username: "student",
		Password: "hunter2",
	}))
	require.NoError(t, err)
	return res.Msg.Token
}

func TestLogin(t *testing.T) {
	env := setup(t, elmstest.DefaultFixture())

	res, err := env.client.Login(context.Background(), connect.NewRequest(&LoginRequest{
		Username: "student",
		Password: "hunter2",
	}))
	require.NoError(t, err)
	require.NotEmpty(t, res.Msg.Token)
	require.Equal(t, int64(1800), res.Msg.ExpiresIn)
	require.Equal(t, []Course{
		{Id: 102, Name: "Capstone Project!!"},
		{Id: 101, Name: "Data Structures"},
		{Id: 103, Name: "Removed Course"},
	}, res.Msg.Courses)
	require.Equal(t, 1, env.cache.Len())
}

func TestLoginRejected(t *testing.T) {
	env := setup(t, elmstest.DefaultFixture())

	_, err := env.client.Login(context.Background(), connect.NewRequest(&LoginRequest{
		Username: "student",
		Password: "wrong",
	}))
	require.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	_, err = env.client.Login(context.Background(), connect.NewRequest(&LoginRequest{
		Username: "student",
	}))
	require.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	require.Equal(t, 0, env.cache.Len())
}

func TestLoginDirectoryFailure(t *testing.T) {
	fixture := elmstest.DefaultFixture()
	fixture.MalformedDirectory = true
	env := setup(t, fixture)

	_, err := env.client.Login(context.Background(), connect.NewRequest(&LoginRequest{
		Username: "student",
		Password: "hunter2",
	}))
	require.Equal(t, connect.CodeInternal, connect.CodeOf(err))
	require.Equal(t, 0, env.cache.Len())
}

func TestListCourses(t *testing.T) {
	env := setup(t, elmstest.DefaultFixture())
	ctx := context.Background()

	_, err := env.client.ListCourses(ctx, connect.NewRequest(&ListCoursesRequest{}))
	require.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	_, err = env.client.ListCourses(ctx, authorized("nope", &ListCoursesRequest{}))
	require.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	token := env.login(t)
	res, err := env.client.ListCourses(ctx, authorized(token, &ListCoursesRequest{}))
	require.NoError(t, err)
	require.Len(t, res.Msg.Courses, 3)
}

func TestSessionTouch(t *testing.T) {
	env := setup(t, elmstest.DefaultFixture())
	ctx := context.Background()
	token := env.login(t)

	env.clock.Advance(time.Minute * 20)
	_, err := env.client.ListCourses(ctx, authorized(token, &ListCoursesRequest{}))
	require.NoError(t, err)

	// still valid since the last call refreshed the ttl
	env.clock.Advance(time.Minute * 20)
	_, err = env.client.ListCourses(ctx, authorized(token, &ListCoursesRequest{}))
	require.NoError(t, err)

	env.clock.Advance(time.Minute * 31)
	_, err = env.client.ListCourses(ctx, authorized(token, &ListCoursesRequest{}))
	require.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	require.Equal(t, 0, env.cache.Len())
}

func TestExtract(t *testing.T) {
	env := setup(t, elmstest.DefaultFixture())
	ctx := context.Background()
	token := env.login(t)

	res, err := env.client.Extract(ctx, authorized(token, &ExtractRequest{CourseId: "101"}))
	require.NoError(t, err)
	require.Equal(t, "101", res.Msg.CourseId)
	require.Equal(t, "Spring 2024 Data Structures: Section 3", res.Msg.CourseName)
	require.Equal(t, "Data_Structures", res.Msg.CourseCode)
	require.Equal(t, 2, res.Msg.ParticipantCount)
	require.Equal(t, "Data_Structures_users.csv", res.Msg.CsvFilename)
	require.Equal(t, "Data_Structures_emails.txt", res.Msg.EmailListFilename)

	emails, err := base64.StdEncoding.DecodeString(res.Msg.EmailListBase64)
	require.NoError(t, err)
	require.Equal(t, "jane.doe@bscse.uiu.ac.bd\njohn.smith@uiu.ac.bd\n", string(emails))

	csv, err := base64.StdEncoding.DecodeString(res.Msg.CsvBase64)
	require.NoError(t, err)
	require.Contains(t, string(csv), "\"Smith, John\",john.smith@uiu.ac.bd")
}

func TestExtractFailures(t *testing.T) {
	env := setup(t, elmstest.DefaultFixture())
	ctx := context.Background()
	token := env.login(t)

	_, err := env.client.Extract(ctx, authorized(token, &ExtractRequest{CourseId: "abc"}))
	require.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	// a missing course does not invalidate the session
	_, err = env.client.Extract(ctx, authorized(token, &ExtractRequest{CourseId: "103"}))
	require.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	require.Equal(t, 1, env.cache.Len())

	env.portal.ExpireSessions()
	_, err = env.client.Extract(ctx, authorized(token, &ExtractRequest{CourseId: "101"}))
	require.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	require.Equal(t, 0, env.cache.Len())
}

func TestExtractAll(t *testing.T) {
	env := setup(t, elmstest.DefaultFixture())
	token := env.login(t)

	res, err := env.client.ExtractAll(context.Background(), authorized(token, &ExtractAllRequest{}))
	require.NoError(t, err)
	require.Equal(t, "elms_courses_export.zip", res.Msg.Filename)
	require.Equal(t, 3, res.Msg.CourseCount)
	require.Equal(t, 2, res.Msg.ExtractedCount)
	require.Equal(t, []string{"103"}, res.Msg.FailedCourseIds)

	data, err := base64.StdEncoding.DecodeString(res.Msg.Base64)
	require.NoError(t, err)
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	names := []string{}
	for _, f := range archive.File {
		names = append(names, f.Name)
	}
	require.ElementsMatch(t, []string{
		"Data_Structures_users.csv",
		"Data_Structures_emails.txt",
		"Capstone_Project_users.csv",
		"Capstone_Project_emails.txt",
	}, names)
}

func TestExtractAllSessionExpired(t *testing.T) {
	env := setup(t, elmstest.DefaultFixture())
	token := env.login(t)

	env.portal.ExpireSessions()
	_, err := env.client.ExtractAll(context.Background(), authorized(token, &ExtractAllRequest{}))
	require.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	require.Equal(t, 0, env.cache.Len())
}

func TestLogout(t *testing.T) {
	env := setup(t, elmstest.DefaultFixture())
	ctx := context.Background()
	token := env.login(t)

	_, err := env.client.Logout(ctx, authorized(token, &LogoutRequest{}))
	require.NoError(t, err)
	require.Equal(t, 0, env.cache.Len())

	_, err = env.client.ListCourses(ctx, authorized(token, &ListCoursesRequest{}))
	require.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}

func TestHealth(t *testing.T) {
	env := setup(t, elmstest.DefaultFixture())

	res, err := env.server.Client().Get(env.server.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.Equal(t, map[string]string{"status": "ok"}, body)
}

func TestListCoursesDedup(t *testing.T) {
	courses := listCourses([]elms.CourseSummary{
		{Id: 1, DisplayName: "Spring 2024: Physics"},
		{Id: 2, DisplayName: "Algebra"},
		{Id: 3, DisplayName: "Fall 2024: Physics"},
	})
	require.Equal(t, []Course{
		{Id: 2, Name: "Algebra"},
		{Id: 3, Name: "Physics"},
	}, courses)
}

func TestConnectCode(t *testing.T) {
	table := []struct {
		err      error
		expected connect.Code
	}{
		{elms.ErrInvalidCredentials, connect.CodeUnauthenticated},
		{sessioncache.ErrSessionExpired, connect.CodeUnauthenticated},
		{fmt.Errorf("%w: %w", elms.ErrDirectory, elms.ErrSessionExpired), connect.CodeUnauthenticated},
		{fmt.Errorf("wrapped: %w", elms.ErrCourseNotFound), connect.CodeNotFound},
		{fmt.Errorf("%w: status 500", elms.ErrExtraction), connect.CodeFailedPrecondition},
		{elms.ErrDirectory, connect.CodeInternal},
		{context.Canceled, connect.CodeCanceled},
		{context.DeadlineExceeded, connect.CodeDeadlineExceeded},
		{errors.New("connection refused"), connect.CodeUnavailable},
	}

	for _, test := range table {
		t.Run(test.err.Error(), func(t *testing.T) {
			require.Equal(t, test.expected, connectCode(test.err))
		})
	}
}

func TestNormalizeUsername(t *testing.T) {
	table := []struct {
		input    string
		expected string
	}{
		{input: "011221001", expected: "011221001"},
		{input: " 011221001", expected: "011221001"},
		{input: "011221001\t\n", expected: "011221001"},
		{input: "   ", expected: ""},
	}

	for _, row := range table {
		result := NormalizeUsername(row.input)
		require.Equal(t, row.expected, result)
	}
}

func TestLoginTrimsUsername(t *testing.T) {
	env := setup(t, elmstest.DefaultFixture())

	res, err := env.client.Login(context.Background(), connect.NewRequest(&LoginRequest{
		Username: "  student\n",
		Password: "hunter2",
	}))
	require.NoError(t, err)
	require.NotEmpty(t, res.Msg.Token)
}

func TestAccessTokenClient(t *testing.T) {
	env := setup(t, elmstest.DefaultFixture())
	token := env.login(t)

	client := NewClient(
		env.server.Client(),
		env.server.URL,
		connect.WithInterceptors(serviceutil.BearerToken(token)),
	)
	res, err := client.ListCourses(context.Background(), connect.NewRequest(&ListCoursesRequest{}))
	require.NoError(t, err)
	require.Len(t, res.Msg.Courses, 3)
}
