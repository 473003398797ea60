package elms

import (
	"regexp"
	"strings"
)

// FallbackCourseCode is used when nothing filename-safe can be derived from a title.
const FallbackCourseCode = "course"

var termSubjectRegex = regexp.MustCompile(`(Spring|Fall|Summer)\s\d{2,4}\s([^:]+)`)
var nonAlphanumericRegex = regexp.MustCompile(`[^A-Za-z0-9]+`)

var pathSeparatorReplacer = strings.NewReplacer(
	" ", "_",
	"/", "_",
	`\`, "_",
)

// DeriveCourseCode turns a course title into a short filename-safe code.
//
// "Spring 2024 Data Structures: Section 3" -> "Data_Structures"
// "Capstone Project!!" -> "Capstone_Project"
// "!!!" -> FallbackCourseCode
func DeriveCourseCode(courseName string) string {
	fallback := strings.Trim(nonAlphanumericRegex.ReplaceAllString(courseName, "_"), "_")
	if fallback == "" {
		fallback = FallbackCourseCode
	}

	groups := termSubjectRegex.FindStringSubmatch(courseName)
	if len(groups) < 3 {
		return fallback
	}
	code := pathSeparatorReplacer.Replace(strings.TrimSpace(groups[2]))
	if code == "" {
		return fallback
	}
	return code
}
