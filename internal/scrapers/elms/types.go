package elms

import (
	"strings"
)

type CourseSummary struct {
	Id          int64
	DisplayName string
}

// Name is the display name without the term/category prefix, ex.
// "241_CSE_2217: Data Structures" becomes "Data Structures".
func (c CourseSummary) Name() string {
	_, after, found := strings.Cut(c.DisplayName, ":")
	if !found {
		return strings.TrimSpace(c.DisplayName)
	}
	return strings.TrimSpace(after)
}

type UserRecord struct {
	Name  string
	Email string
}

type CourseData struct {
	CourseId   string
	CourseName string
	CourseCode string
	Users      []UserRecord
}

// Emails returns the email of every user, in order.
func (c CourseData) Emails() []string {
	emails := make([]string, 0, len(c.Users))
	for _, u := range c.Users {
		if u.Email == "" {
			continue
		}
		emails = append(emails, u.Email)
	}
	return emails
}
