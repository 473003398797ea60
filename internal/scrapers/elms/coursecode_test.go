package elms

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveCourseCode(t *testing.T) {
	table := []struct {
		input    string
		expected string
	}{
		{input: "Spring 2024 Data Structures: Section 3", expected: "Data_Structures"},
		{input: "Fall 24 Operating Systems Lab: B", expected: "Operating_Systems_Lab"},
		{input: "Summer 2023 CSE 1111/CSE 1112: Section A", expected: "CSE_1111_CSE_1112"},
		{input: "Spring 2024 Data Structures", expected: "Data_Structures"},
		{input: "Capstone Project!!", expected: "Capstone_Project"},
		{input: "  Thesis / Project (Part 1) ", expected: "Thesis_Project_Part_1"},
		{input: "!!!", expected: FallbackCourseCode},
		{input: "", expected: FallbackCourseCode},
	}

	for _, row := range table {
		result := DeriveCourseCode(row.input)
		require.Equal(t, row.expected, result, row.input)
		require.NotEmpty(t, result)
		require.False(t, strings.ContainsAny(result, `/\`), result)
	}
}

func TestCourseSummaryName(t *testing.T) {
	table := []struct {
		input    string
		expected string
	}{
		{input: "241_CSE_2217: Data Structures", expected: "Data Structures"},
		{input: "Spring 2024: Capstone: Part 1", expected: "Capstone: Part 1"},
		{input: "No Prefix Course ", expected: "No Prefix Course"},
	}

	for _, row := range table {
		course := CourseSummary{Id: 7, DisplayName: row.input}
		require.Equal(t, row.expected, course.Name())
		require.Equal(t, int64(7), course.Id)
	}
}
