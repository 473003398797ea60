package elms

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ExtractCourse reads the participants page of a course and then every
// profile it links to. Profiles that cannot be read are skipped and reported
// as warnings, only failures of the participants page are returned.
func (s *Session) ExtractCourse(ctx context.Context, courseId string) (CourseData, error) {
	extractError := func(err error) error {
		return fmt.Errorf("elms: extract course %s: %w", courseId, err)
	}

	res, err := s.Http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"page":      "0",
			"perpage":   strconv.Itoa(s.opts.RosterPageSize),
			"contextid": "0",
			"id":        courseId,
			"newcourse": "",
		}).
		Get("/user/index.php")
	if err != nil {
		s.tel.ReportBroken(report_session_extract, fmt.Errorf("fetch roster: %w", err), courseId)
		return CourseData{}, extractError(err)
	}

	pageUrl := s.BaseUrl
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		pageUrl = res.RawResponse.Request.URL
	}
	if isLoginPage(pageUrl) {
		return CourseData{}, extractError(fmt.Errorf("%w: %w", ErrExtraction, ErrSessionExpired))
	}
	if res.StatusCode() != http.StatusOK {
		s.tel.ReportWarning(report_session_extract, res.StatusCode(), courseId)
		return CourseData{}, extractError(fmt.Errorf("%w: status %d", ErrExtraction, res.StatusCode()))
	}

	doc, err := ParseDocument(bytes.NewReader(res.Body()))
	if err != nil {
		return CourseData{}, extractError(fmt.Errorf("%w: %w", ErrExtraction, err))
	}

	title, ok := ExtractCourseTitle(doc)
	if !ok {
		return CourseData{}, extractError(ErrCourseNotFound)
	}

	links := ExtractProfileLinks(doc, pageUrl)
	users, err := s.fetchProfiles(ctx, links)
	if err != nil {
		return CourseData{}, extractError(err)
	}
	s.tel.ReportCount(report_session_roster_users, int64(len(users)))

	return CourseData{
		CourseId:   courseId,
		CourseName: title,
		CourseCode: DeriveCourseCode(title),
		Users:      users,
	}, nil
}

func isLoginPage(u *url.URL) bool {
	return u != nil && strings.HasPrefix(u.Path, "/login/")
}

var errIncompleteProfile = errors.New("incomplete profile")

// fetchProfiles fetches every profile with at most ProfileWorkers requests
// in flight, the result is sorted by (email, name).
func (s *Session) fetchProfiles(ctx context.Context, links []string) ([]UserRecord, error) {
	results := make([]*UserRecord, len(links))

	group := errgroup.Group{}
	group.SetLimit(s.opts.ProfileWorkers)
	for i, link := range links {
		group.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			user, ok := s.fetchProfile(ctx, link)
			if ok {
				results[i] = &user
			}
			return nil
		})
	}
	group.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	users := make([]UserRecord, 0, len(results))
	for _, u := range results {
		if u != nil {
			users = append(users, *u)
		}
	}
	slices.SortFunc(users, func(a, b UserRecord) int {
		return cmp.Or(
			strings.Compare(a.Email, b.Email),
			strings.Compare(a.Name, b.Name),
		)
	})
	return users, nil
}

func (s *Session) fetchProfile(ctx context.Context, link string) (UserRecord, bool) {
	res, err := s.Http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		s.tel.ReportWarning(report_session_profile, fmt.Errorf("fetch: %w", err), link)
		return UserRecord{}, false
	}
	if res.StatusCode() != http.StatusOK {
		s.tel.ReportWarning(report_session_profile, fmt.Errorf("status %d", res.StatusCode()), link)
		return UserRecord{}, false
	}

	doc, err := ParseDocument(bytes.NewReader(res.Body()))
	if err != nil {
		s.tel.ReportWarning(report_session_profile, fmt.Errorf("parse: %w", err), link)
		return UserRecord{}, false
	}
	user, ok := ExtractProfile(doc)
	if !ok {
		s.tel.ReportWarning(report_session_profile, errIncompleteProfile, link)
		return UserRecord{}, false
	}
	return user, true
}
