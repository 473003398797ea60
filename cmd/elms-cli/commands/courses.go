package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(coursesCmd)
}

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "Lists the courses you are enrolled in.",
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := login(cmd.Context())
		if err != nil {
			return err
		}
		courses, err := session.Courses(cmd.Context())
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Id", "Name", "Listed as"})
		for _, c := range courses {
			t.AppendRow(table.Row{c.Id, c.Name(), c.DisplayName})
		}
		t.AppendFooter(table.Row{"", fmt.Sprintf("%d courses", len(courses)), ""})
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
