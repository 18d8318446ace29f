package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Column layouts for generated sheets. The Duration column only exists on
// the first section sheet.
var (
	baseHeader     = []interface{}{"Question", "Option A", "Option B", "Option C", "Option D", "Correct Answer"}
	durationHeader = []interface{}{"Duration", "Question", "Option A", "Option B", "Option C", "Option D", "Correct Answer"}
)

// suggestedQuestions suggests how many questions a section should hold:
// the first section covers basics, the second carries the core material,
// later sections are shorter.
func suggestedQuestions(courseNum int) int {
	switch courseNum {
	case 1:
		return 50
	case 2:
		return 60
	default:
		return 30
	}
}

func main() {
	var path string
	flag.StringVar(&path, "path", "exam_questions.xlsx", "Path to the question workbook")
	flag.Parse()

	if _, err := os.Stat(path); err == nil {
		appendCourse(path)
		return
	}
	createWorkbook(path)
}

// createWorkbook writes a fresh workbook with a Course 1 template sheet and
// an empty TotalQuestions override sheet.
func createWorkbook(path string) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Course 1"); err != nil {
		log.Fatalf("Rename sheet failed: %v", err)
	}
	if err := f.SetSheetRow("Course 1", "A1", &durationHeader); err != nil {
		log.Fatalf("Write header failed: %v", err)
	}
	_ = f.SetColWidth("Course 1", "A", "G", 24)

	if _, err := f.NewSheet("TotalQuestions"); err != nil {
		log.Fatalf("Create TotalQuestions sheet failed: %v", err)
	}
	if err := f.SetSheetRow("TotalQuestions", "A1", &[]interface{}{"Total"}); err != nil {
		log.Fatalf("Write TotalQuestions header failed: %v", err)
	}

	if err := f.SaveAs(path); err != nil {
		log.Fatalf("Save workbook failed: %v", err)
	}

	fmt.Printf("Created Course 1 (suggested %d questions)\n", suggestedQuestions(1))
	fmt.Println("NOTE: Enter the total exam duration (in minutes) in the 'Duration' column of Course 1")
	fmt.Println("For 'Correct Answer', enter A, B, C, or D (the option letter)")
	fmt.Printf("Workbook %q has been created successfully\n", path)
}

// appendCourse adds the next Course N sheet to an existing workbook.
func appendCourse(path string) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		log.Fatalf("Open workbook failed: %v", err)
	}
	defer f.Close()

	next := nextCourseNumber(f.GetSheetList())
	name := fmt.Sprintf("Course %d", next)

	if _, err := f.NewSheet(name); err != nil {
		log.Fatalf("Create sheet failed: %v", err)
	}
	header := baseHeader
	lastCol := "F"
	if next == 1 {
		header = durationHeader
		lastCol = "G"
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		log.Fatalf("Write header failed: %v", err)
	}
	_ = f.SetColWidth(name, "A", lastCol, 24)

	if err := f.Save(); err != nil {
		log.Fatalf("Save workbook failed: %v", err)
	}

	fmt.Printf("Created %s (suggested %d questions)\n", name, suggestedQuestions(next))
	fmt.Println("For 'Correct Answer', enter A, B, C, or D (the option letter)")
	fmt.Printf("Workbook %q has been updated successfully\n", path)
}

// nextCourseNumber finds the highest existing "Course N" sheet and returns N+1.
func nextCourseNumber(sheets []string) int {
	highest := 0
	for _, sheet := range sheets {
		rest, ok := strings.CutPrefix(sheet, "Course ")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest + 1
}
