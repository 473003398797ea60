package elms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
)

const enrolledCoursesMethod = "core_course_get_enrolled_courses_by_timeline_classification"

type ajaxCall struct {
	Index      int    `json:"index"`
	Methodname string `json:"methodname"`
	Args       any    `json:"args"`
}

type timelineArgs struct {
	Offset           int      `json:"offset"`
	Limit            int      `json:"limit"`
	Classification   string   `json:"classification"`
	Sort             string   `json:"sort"`
	Customfieldname  string   `json:"customfieldname"`
	Customfieldvalue string   `json:"customfieldvalue"`
	Requiredfields   []string `json:"requiredfields"`
}

type ajaxException struct {
	Message   string `json:"message"`
	Errorcode string `json:"errorcode"`
}

type ajaxResponse struct {
	Error     bool            `json:"error"`
	Data      json.RawMessage `json:"data"`
	Exception *ajaxException  `json:"exception"`
}

type enrolledCourse struct {
	Id       int64  `json:"id"`
	Fullname string `json:"fullname"`
}

type timelineData struct {
	Courses *[]enrolledCourse `json:"courses"`
}

// errorcodes moodle answers with when the sesskey or login is no longer valid
var expiredSessionErrorcodes = []string{
	"invalidsesskey",
	"servicerequireslogin",
	"requireloginerror",
}

func (s *Session) coursesPayload() []ajaxCall {
	return []ajaxCall{{
		Index:      0,
		Methodname: enrolledCoursesMethod,
		Args: timelineArgs{
			Offset:         0,
			Limit:          s.opts.CourseLimit,
			Classification: "all",
			Sort:           "fullname",
			Requiredfields: []string{
				"id",
				"fullname",
				"shortname",
				"showcoursecategory",
				"showshortname",
				"visible",
				"enddate",
			},
		},
	}}
}

// Courses lists every course the session's user is enrolled in (up to
// Options.CourseLimit) in the order the portal returns them.
func (s *Session) Courses(ctx context.Context) ([]CourseSummary, error) {
	directoryError := func(err error) error {
		return fmt.Errorf("elms: courses: %w", err)
	}

	res, err := s.Http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"sesskey": s.Sesskey,
			"info":    enrolledCoursesMethod,
		}).
		SetBody(s.coursesPayload()).
		Post("/lib/ajax/service.php")
	if err != nil {
		s.tel.ReportBroken(report_session_courses, fmt.Errorf("fetch: %w", err))
		return nil, directoryError(err)
	}
	if res.StatusCode() != http.StatusOK {
		err := fmt.Errorf("%w: status %d", ErrDirectory, res.StatusCode())
		s.tel.ReportBroken(report_session_courses, err)
		return nil, directoryError(err)
	}

	courses, err := decodeCourses(res.Body())
	if err != nil {
		s.tel.ReportBroken(report_session_courses, err)
		return nil, directoryError(err)
	}
	return courses, nil
}

func decodeCourses(body []byte) ([]CourseSummary, error) {
	var envelope []ajaxResponse
	err := json.Unmarshal(body, &envelope)
	if err != nil {
		return nil, fmt.Errorf("%w: decode envelope: %w", ErrDirectory, err)
	}
	if len(envelope) == 0 {
		return nil, fmt.Errorf("%w: empty envelope", ErrDirectory)
	}

	first := envelope[0]
	if first.Error {
		if first.Exception == nil {
			return nil, fmt.Errorf("%w: unknown error", ErrDirectory)
		}
		if slices.Contains(expiredSessionErrorcodes, first.Exception.Errorcode) {
			return nil, fmt.Errorf("%w: %w: %s", ErrDirectory, ErrSessionExpired, first.Exception.Errorcode)
		}
		return nil, fmt.Errorf(
			"%w: %s: %s",
			ErrDirectory,
			first.Exception.Errorcode,
			first.Exception.Message,
		)
	}

	var data timelineData
	err = json.Unmarshal(first.Data, &data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode data: %w", ErrDirectory, err)
	}
	if data.Courses == nil {
		return nil, fmt.Errorf("%w: no course array in response", ErrDirectory)
	}

	courses := make([]CourseSummary, len(*data.Courses))
	for i, c := range *data.Courses {
		courses[i] = CourseSummary{
			Id:          c.Id,
			DisplayName: c.Fullname,
		}
	}
	return courses, nil
}
