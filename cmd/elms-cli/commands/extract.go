package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"elms-extractor/internal/artifact"
	"elms-extractor/internal/scrapers/elms"
	"elms-extractor/internal/store"

	"github.com/antzucaro/matchr"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// courses whose name is less similar than this to --name are not considered
const minNameSimilarity = 0.7

var courseName *string

func init() {
	courseName = extractCmd.Flags().String("name", "", "Pick the course whose name is closest to this instead of giving an id.")
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(extractAllCmd)
}

// matchCourse returns the course whose prefix-stripped name is the most
// similar to name.
func matchCourse(courses []elms.CourseSummary, name string) (elms.CourseSummary, error) {
	target := strings.ToLower(strings.TrimSpace(name))

	var best elms.CourseSummary
	var bestSimilarity float64
	for _, c := range courses {
		similarity := matchr.JaroWinkler(strings.ToLower(c.Name()), target, false)
		if similarity > bestSimilarity {
			best = c
			bestSimilarity = similarity
		}
	}
	if bestSimilarity < minNameSimilarity {
		return elms.CourseSummary{}, fmt.Errorf("no course name is similar to '%s'", name)
	}
	return best, nil
}

type extracted struct {
	course     elms.CourseData
	csvPath    string
	emailsPath string
}

// extractOne writes the course to the output directory, names keeps courses
// extracted in the same run from overwriting each other.
func extractOne(ctx context.Context, session *elms.Session, db *store.Store, names *artifact.Namer, courseId string) (extracted, error) {
	course, err := session.ExtractCourse(ctx, courseId)
	if err != nil {
		return extracted{}, err
	}
	csvPath, emailsPath, err := artifact.WriteFiles(*outDir, names.Stem(course), course)
	if err != nil {
		return extracted{}, err
	}
	if db != nil {
		err = db.SaveCourse(ctx, course, time.Now())
		if err != nil {
			return extracted{}, fmt.Errorf("save %s: %w", courseId, err)
		}
	}
	return extracted{course: course, csvPath: csvPath, emailsPath: emailsPath}, nil
}

func renderExtracted(results []extracted) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Id", "Course", "Participants", "Csv", "Emails"})
	for _, r := range results {
		t.AppendRow(table.Row{
			r.course.CourseId,
			r.course.CourseName,
			len(r.course.Users),
			r.csvPath,
			r.emailsPath,
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

var extractCmd = &cobra.Command{
	Use:   "extract [course id]",
	Short: "Extracts the participants of a single course.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if len(args) == 0 && *courseName == "" {
			return fmt.Errorf("either a course id or --name must be given")
		}
		if len(args) == 1 {
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("course id '%s' is not a number", args[0])
			}
		}

		session, err := login(ctx)
		if err != nil {
			return err
		}

		courseId := ""
		if len(args) == 1 {
			courseId = args[0]
		} else {
			courses, err := session.Courses(ctx)
			if err != nil {
				return err
			}
			match, err := matchCourse(courses, *courseName)
			if err != nil {
				return err
			}
			slog.Info("matched course", "id", match.Id, "name", match.DisplayName)
			courseId = strconv.FormatInt(match.Id, 10)
		}

		db, err := openStore()
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}

		result, err := extractOne(ctx, session, db, artifact.NewNamer(), courseId)
		if err != nil {
			return err
		}
		renderExtracted([]extracted{result})
		return nil
	},
}

var extractAllCmd = &cobra.Command{
	Use:   "extract-all",
	Short: "Extracts the participants of every course you are enrolled in, courses that fail are skipped.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		session, err := login(ctx)
		if err != nil {
			return err
		}
		courses, err := session.Courses(ctx)
		if err != nil {
			return err
		}

		db, err := openStore()
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}

		var results []extracted
		names := artifact.NewNamer()
		for _, c := range courses {
			courseId := strconv.FormatInt(c.Id, 10)
			result, err := extractOne(ctx, session, db, names, courseId)
			if errors.Is(err, elms.ErrExtraction) && !errors.Is(err, elms.ErrSessionExpired) {
				slog.Warn("skipping course", "id", courseId, "name", c.DisplayName, "err", err)
				continue
			}
			if err != nil {
				return err
			}
			results = append(results, result)
		}

		renderExtracted(results)
		slog.Info("extracted courses", "extracted", len(results), "enrolled", len(courses))
		return nil
	},
}
