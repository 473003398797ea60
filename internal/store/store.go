// Package store records extracted rosters in a local sqlite database.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"elms-extractor/internal/scrapers/elms"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

var ErrCourseNotStored = errors.New("course not stored")

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path, ":memory:" is allowed.
func Open(path string) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return Store{}, err
	}
	// sqlite only allows one writer
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			db.Close()
			return Store{}, err
		}
	}
	_, err = db.Exec(Schema)
	if err != nil {
		db.Close()
		return Store{}, fmt.Errorf("apply schema: %w", err)
	}
	return Store{db: db}, nil
}

func (s Store) Close() error {
	return s.db.Close()
}

// SaveCourse replaces whatever was stored for the course with the given
// roster.
func (s Store) SaveCourse(ctx context.Context, course elms.CourseData, extractedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "delete from participant where course_id = ?", course.CourseId)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(
		ctx,
		`insert into course(id, name, code, extracted_at) values (?, ?, ?, ?)
		on conflict (id) do update set
			name = excluded.name,
			code = excluded.code,
			extracted_at = excluded.extracted_at`,
		course.CourseId,
		course.CourseName,
		course.CourseCode,
		extractedAt.Unix(),
	)
	if err != nil {
		return err
	}

	for i, user := range course.Users {
		_, err = tx.ExecContext(
			ctx,
			"insert into participant(course_id, position, name, email) values (?, ?, ?, ?)",
			course.CourseId,
			i,
			user.Name,
			user.Email,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Course returns the last stored roster of a course.
func (s Store) Course(ctx context.Context, courseId string) (elms.CourseData, error) {
	course := elms.CourseData{CourseId: courseId}
	err := s.db.QueryRowContext(
		ctx,
		"select name, code from course where id = ?",
		courseId,
	).Scan(&course.CourseName, &course.CourseCode)
	if errors.Is(err, sql.ErrNoRows) {
		return elms.CourseData{}, fmt.Errorf("%w: %s", ErrCourseNotStored, courseId)
	}
	if err != nil {
		return elms.CourseData{}, err
	}

	course.Users, err = s.Users(ctx, courseId)
	if err != nil {
		return elms.CourseData{}, err
	}
	return course, nil
}

// Users returns the stored participants of a course in extraction order.
func (s Store) Users(ctx context.Context, courseId string) ([]elms.UserRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		"select name, email from participant where course_id = ? order by position",
		courseId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []elms.UserRecord{}
	for rows.Next() {
		var user elms.UserRecord
		err = rows.Scan(&user.Name, &user.Email)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
