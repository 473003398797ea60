// Package service exposes the extraction pipeline over connect, sessions
// are handed to callers as bearer tokens.
package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"elms-extractor/internal/artifact"
	"elms-extractor/internal/components/assert"
	"elms-extractor/internal/components/telemetry"
	"elms-extractor/internal/scrapers/elms"
	"elms-extractor/internal/sessioncache"

	"connectrpc.com/connect"
)

const (
	report_login        = "login"
	report_extract_all  = "extract-all.course"
	report_evict        = "evict"
	report_extract_size = "extract.participants"
)

type Service struct {
	client *elms.Client
	cache  *sessioncache.Cache[*elms.Session]
	tel    telemetry.API
}

func NewService(client *elms.Client, cache *sessioncache.Cache[*elms.Session], tel telemetry.API) Service {
	assert.NotNil(client)
	assert.NotNil(cache)
	assert.NotNil(tel)

	return Service{
		client: client,
		cache:  cache,
		tel:    telemetry.NewScopedAPI("service", tel),
	}
}

// evictOnFailure removes the session unless the failure was specific to one
// course or the caller went away.
func (s Service) evictOnFailure(token string, err error) {
	expired := errors.Is(err, elms.ErrSessionExpired)
	if !expired && errors.Is(err, elms.ErrExtraction) {
		return
	}
	if !expired && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return
	}
	s.tel.ReportDebug(report_evict, err)
	s.cache.Remove(token)
}

// listCourses strips the category prefix off every name, courses with the
// same stripped name keep the one listed last.
func listCourses(courses []elms.CourseSummary) []Course {
	byName := map[string]int64{}
	for _, c := range courses {
		byName[c.Name()] = c.Id
	}

	out := make([]Course, 0, len(byName))
	for name, id := range byName {
		out = append(out, Course{Id: id, Name: name})
	}
	slices.SortFunc(out, func(a, b Course) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// NormalizeUsername removes the whitespace that is often pasted along with
// a student id.
func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

func (s Service) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error) {
	username := NormalizeUsername(req.Msg.Username)
	if username == "" || req.Msg.Password == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("username and password are required"))
	}

	session, err := s.client.Login(ctx, username, req.Msg.Password)
	if err != nil {
		if !errors.Is(err, elms.ErrAuthentication) {
			s.tel.ReportBroken(report_login, err)
		}
		return nil, connectError(err)
	}

	token, err := s.cache.Create(session)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	courses, err := session.Courses(ctx)
	if err != nil {
		s.cache.Remove(token)
		return nil, connectError(err)
	}

	return connect.NewResponse(&LoginResponse{
		Token:     token,
		ExpiresIn: int64(s.cache.TTL().Seconds()),
		Courses:   listCourses(courses),
	}), nil
}

func (s Service) ListCourses(ctx context.Context, req *connect.Request[ListCoursesRequest]) (*connect.Response[ListCoursesResponse], error) {
	authed, err := sessionFromContext(ctx)
	if err != nil {
		return nil, err
	}
	token, session := authed.token, authed.session

	courses, err := session.Courses(ctx)
	if err != nil {
		s.evictOnFailure(token, err)
		return nil, connectError(err)
	}
	return connect.NewResponse(&ListCoursesResponse{
		Courses: listCourses(courses),
	}), nil
}

func (s Service) Extract(ctx context.Context, req *connect.Request[ExtractRequest]) (*connect.Response[ExtractResponse], error) {
	authed, err := sessionFromContext(ctx)
	if err != nil {
		return nil, err
	}
	token, session := authed.token, authed.session
	if _, err := strconv.ParseInt(req.Msg.CourseId, 10, 64); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("course id '%s' is not a number", req.Msg.CourseId))
	}

	course, err := session.ExtractCourse(ctx, req.Msg.CourseId)
	if err != nil {
		s.evictOnFailure(token, err)
		return nil, connectError(err)
	}
	s.tel.ReportCount(report_extract_size, int64(len(course.Users)))

	artifacts, err := artifact.Render(course)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&ExtractResponse{
		CourseId:          course.CourseId,
		CourseName:        course.CourseName,
		CourseCode:        course.CourseCode,
		ParticipantCount:  len(course.Users),
		CsvFilename:       artifact.CsvFilename(course.CourseCode),
		CsvBase64:         base64.StdEncoding.EncodeToString(artifacts.Csv),
		EmailListFilename: artifact.EmailsFilename(course.CourseCode),
		EmailListBase64:   base64.StdEncoding.EncodeToString(artifacts.Emails),
	}), nil
}

// ExtractAll extracts every enrolled course into one zip archive, courses
// that fail to extract are left out and listed in FailedCourseIds.
func (s Service) ExtractAll(ctx context.Context, req *connect.Request[ExtractAllRequest]) (*connect.Response[ExtractAllResponse], error) {
	authed, err := sessionFromContext(ctx)
	if err != nil {
		return nil, err
	}
	token, session := authed.token, authed.session

	courses, err := session.Courses(ctx)
	if err != nil {
		s.evictOnFailure(token, err)
		return nil, connectError(err)
	}

	var extracted []elms.CourseData
	failed := []string{}
	for _, c := range courses {
		courseId := strconv.FormatInt(c.Id, 10)
		data, err := session.ExtractCourse(ctx, courseId)
		if err != nil {
			if errors.Is(err, elms.ErrExtraction) && !errors.Is(err, elms.ErrSessionExpired) {
				s.tel.ReportWarning(report_extract_all, err, courseId)
				failed = append(failed, courseId)
				continue
			}
			s.evictOnFailure(token, err)
			return nil, connectError(err)
		}
		extracted = append(extracted, data)
	}

	bundle, err := artifact.Bundle(extracted)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&ExtractAllResponse{
		Filename:        artifact.BundleFilename,
		Base64:          base64.StdEncoding.EncodeToString(bundle),
		CourseCount:     len(courses),
		ExtractedCount:  len(extracted),
		FailedCourseIds: failed,
	}), nil
}

func (s Service) Logout(ctx context.Context, req *connect.Request[LogoutRequest]) (*connect.Response[LogoutResponse], error) {
	authed, err := sessionFromContext(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Remove(authed.token)
	return connect.NewResponse(&LogoutResponse{}), nil
}
