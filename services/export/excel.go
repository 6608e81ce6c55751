// Package exportsvc builds downloadable report workbooks.
package exportsvc

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/BruceGoodGuy/moodle/core/quiz"
	"github.com/BruceGoodGuy/moodle/core/user"
)

const sheetName = "Grading worksheet"

// GradingWorksheet builds an .xlsx grading worksheet for a quiz: one row per
// participant, one mark column per grade item. Returns the workbook bytes and
// a unique download filename.
func GradingWorksheet(payload quiz.EditorPayload, users []user.User) (*bytes.Buffer, string, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", errors.Wrap(err, "creating sheet")
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headers := []interface{}{"First name", "Last name", "Username", "Email"}
	for _, gi := range payload.GradeItems {
		headers = append(headers, fmt.Sprintf("%s (out of %g)", gi.Name, gi.SummedMarks))
	}
	headers = append(headers, "Total")
	if err = f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return nil, "", errors.Wrap(err, "writing header row")
	}

	for i, usr := range users {
		row := []interface{}{usr.FirstName, usr.LastName, usr.Username, usr.Email}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, "", errors.Wrap(err, "computing cell name")
		}
		if err = f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, "", errors.Wrap(err, "writing user row")
		}
	}

	buff, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", errors.Wrap(err, "writing workbook")
	}

	fname := fmt.Sprintf("%s-grading-%s.xlsx", sanitize(payload.Quiz.Name), uuid.New().String()[:8])
	return buff, fname, nil
}

func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		case r == ' ', r == '-', r == '_':
			out = append(out, '-')
		}
	}
	if len(out) == 0 {
		return "quiz"
	}
	return string(out)
}
