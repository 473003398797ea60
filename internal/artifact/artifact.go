// Package artifact renders extracted rosters into the files handed to users.
package artifact

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"elms-extractor/internal/scrapers/elms"
)

const BundleFilename = "elms_courses_export.zip"

type Artifacts struct {
	Csv    []byte
	Emails []byte
}

func CsvFilename(courseCode string) string {
	return fmt.Sprintf("%s_users.csv", courseCode)
}

func EmailsFilename(courseCode string) string {
	return fmt.Sprintf("%s_emails.txt", courseCode)
}

// Render writes the roster as a `Name,Email` csv (CRLF terminated rows) and
// as a newline terminated list of emails, both in the order of course.Users.
func Render(course elms.CourseData) (Artifacts, error) {
	csvBuf := bytes.NewBuffer(nil)
	writer := csv.NewWriter(csvBuf)
	writer.UseCRLF = true

	err := writer.Write([]string{"Name", "Email"})
	if err != nil {
		return Artifacts{}, err
	}
	for _, user := range course.Users {
		err = writer.Write([]string{user.Name, user.Email})
		if err != nil {
			return Artifacts{}, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return Artifacts{}, err
	}

	emailsBuf := bytes.NewBuffer(nil)
	for _, email := range course.Emails() {
		emailsBuf.WriteString(email)
		emailsBuf.WriteByte('\n')
	}

	return Artifacts{
		Csv:    csvBuf.Bytes(),
		Emails: emailsBuf.Bytes(),
	}, nil
}

// Namer hands out the file name stem of each course written to the same
// place. A course whose code is already taken gets its id appended.
type Namer struct {
	used map[string]struct{}
}

func NewNamer() *Namer {
	return &Namer{used: map[string]struct{}{}}
}

func (n *Namer) Stem(course elms.CourseData) string {
	stem := course.CourseCode
	if _, taken := n.used[stem]; taken {
		stem = fmt.Sprintf("%s_%s", stem, course.CourseId)
	}
	n.used[stem] = struct{}{}
	return stem
}

// Bundle renders every course into a single zip archive.
func Bundle(courses []elms.CourseData) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	archive := zip.NewWriter(buf)

	names := NewNamer()
	for _, course := range courses {
		code := names.Stem(course)

		artifacts, err := Render(course)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", course.CourseId, err)
		}
		err = writeZipFile(archive, CsvFilename(code), artifacts.Csv)
		if err != nil {
			return nil, err
		}
		err = writeZipFile(archive, EmailsFilename(code), artifacts.Emails)
		if err != nil {
			return nil, err
		}
	}

	err := archive.Close()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeZipFile(archive *zip.Writer, name string, content []byte) error {
	w, err := archive.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	_, err = w.Write(content)
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// WriteFiles renders the course into dir under the given stem, creating dir
// if needed, and returns the paths of the csv and the email list.
func WriteFiles(dir, stem string, course elms.CourseData) (csvPath, emailsPath string, err error) {
	artifacts, err := Render(course)
	if err != nil {
		return "", "", err
	}

	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return "", "", err
	}

	csvPath = filepath.Join(dir, CsvFilename(stem))
	err = os.WriteFile(csvPath, artifacts.Csv, 0644)
	if err != nil {
		return "", "", err
	}
	emailsPath = filepath.Join(dir, EmailsFilename(stem))
	err = os.WriteFile(emailsPath, artifacts.Emails, 0644)
	if err != nil {
		return "", "", err
	}
	return csvPath, emailsPath, nil
}
