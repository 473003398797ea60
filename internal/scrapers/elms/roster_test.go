package elms

import (
	"context"
	"testing"
	"time"

	"elms-extractor/internal/scrapers/elms/elmstest"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func TestExtractCourse(t *testing.T) {
	srv, session, rec := loginFixture(t, elmstest.DefaultFixture(), Options{})

	data, err := session.ExtractCourse(context.Background(), "101")
	require.NoError(t, err)
	require.Equal(t, "101", data.CourseId)
	require.Equal(t, "Spring 2024 Data Structures: Section 3", data.CourseName)
	require.Equal(t, "Data_Structures", data.CourseCode)

	// user 3 has no profile page
	expected := []UserRecord{
		{Name: "Smith, John", Email: "john.smith@uiu.ac.bd"},
		{Name: "Jane Doe", Email: "jane.doe@bscse.uiu.ac.bd"},
	}
	diff := cmp.Diff(expected, data.Users, cmpopts.SortSlices(func(a, b UserRecord) bool {
		return a.Email < b.Email
	}))
	require.Empty(t, diff)
	require.Equal(t, "jane.doe@bscse.uiu.ac.bd", data.Users[0].Email)

	require.Len(t, rec.WarningsWithSuffix(report_session_profile), 1)
	count, ok := rec.Count(report_session_roster_users)
	require.True(t, ok)
	require.Equal(t, int64(2), count)

	// every participant is linked twice on the page
	require.Equal(t, 1, srv.Hits("/user/view.php?id=1&course=101"))
	require.Equal(t, 1, srv.Hits("/user/view.php?id=2&course=101"))
	require.Equal(t, 1, srv.Hits("/user/view.php?id=3&course=101"))
}

func TestExtractCourseIncompleteProfile(t *testing.T) {
	_, session, _ := loginFixture(t, elmstest.DefaultFixture(), Options{})

	data, err := session.ExtractCourse(context.Background(), "102")
	require.NoError(t, err)
	require.Equal(t, "Capstone_Project", data.CourseCode)
	require.Equal(t, []UserRecord{{Name: "Jane Doe", Email: "jane.doe@bscse.uiu.ac.bd"}}, data.Users)
}

func TestExtractCourseNotFound(t *testing.T) {
	_, session, _ := loginFixture(t, elmstest.DefaultFixture(), Options{})

	for _, id := range []string{"103", "999"} {
		_, err := session.ExtractCourse(context.Background(), id)
		require.ErrorIs(t, err, ErrCourseNotFound)
		require.ErrorIs(t, err, ErrExtraction)
	}
}

func TestExtractCourseStatus(t *testing.T) {
	fixture := elmstest.DefaultFixture()
	fixture.Courses[0].Status = 503
	_, session, _ := loginFixture(t, fixture, Options{})

	_, err := session.ExtractCourse(context.Background(), "101")
	require.ErrorIs(t, err, ErrExtraction)
	require.NotErrorIs(t, err, ErrCourseNotFound)
}

func TestExtractCourseSessionExpired(t *testing.T) {
	srv, session, _ := loginFixture(t, elmstest.DefaultFixture(), Options{})
	srv.ExpireSessions()

	_, err := session.ExtractCourse(context.Background(), "101")
	require.ErrorIs(t, err, ErrExtraction)
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestExtractCourseSlowProfile(t *testing.T) {
	fixture := elmstest.DefaultFixture()
	fixture.Profiles[2] = elmstest.Profile{
		Name:  "Slow Poke",
		Email: "slow@uiu.ac.bd",
		Delay: time.Second * 10,
	}
	_, session, rec := loginFixture(t, fixture, Options{Timeout: time.Second, ProfileWorkers: 2})

	start := time.Now()
	data, err := session.ExtractCourse(context.Background(), "101")
	require.NoError(t, err)
	require.Less(t, time.Since(start), time.Second*5)
	require.Equal(t, []UserRecord{{Name: "Jane Doe", Email: "jane.doe@bscse.uiu.ac.bd"}}, data.Users)
	require.Len(t, rec.WarningsWithSuffix(report_session_profile), 2)
}

func TestExtractCourseCanceled(t *testing.T) {
	_, session, _ := loginFixture(t, elmstest.DefaultFixture(), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := session.ExtractCourse(ctx, "101")
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, ErrExtraction)
}
