package quiz

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/BruceGoodGuy/moodle/core"
)

// FeedbackBand is the overall feedback shown for one grade item when the
// learner's grade falls within [MinGrade, MaxGrade).
type FeedbackBand struct {
	ID          int64   `json:"id"`
	QuizID      int64   `json:"quiz_id"`
	GradeItemID int64   `json:"grade_item_id"`
	MinGrade    float64 `json:"min_grade"`
	MaxGrade    float64 `json:"max_grade"`
	Text        string  `json:"text"`
	TextFormat  int     `json:"text_format"`
}

// BandTexts holds the feedback text of one band, keyed by grade item ID.
type BandTexts map[int64]string

// OverallFeedbackData is the submitted overall-feedback sub-form. Boundaries
// are raw strings: either a percentage of the maximum grade ("75%") or an
// absolute grade value. Texts has one entry per band, so one more than the
// number of boundaries in a fully filled form.
type OverallFeedbackData struct {
	Boundaries []string    `json:"feedbackboundaries"`
	Texts      []BandTexts `json:"feedbacktext"`
}

var errInvalidFeedback = errors.New("invalid overall feedback")

const (
	boundaryFormatText     = "the boundary must be a number or a percentage"
	boundaryOutOfRangeText = "the boundary must be between 0% and 100% of the maximum grade"
	boundaryOrderText      = "the boundary must be less than the boundary above it"
	junkBoundaryText       = "boundaries must be filled in without gaps"
	junkFeedbackText       = "feedback after the last boundary must be blank"
	unknownGradeItemText   = "unknown grade item"
)

// parseBoundary parses a raw boundary value. A trailing "%" marks a
// percentage; a comma is accepted as decimal separator.
func parseBoundary(raw string) (val float64, isPercent bool, err error) {
	s := strings.TrimSpace(raw)
	if strings.HasSuffix(s, "%") {
		isPercent = true
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	}
	s = strings.ReplaceAll(s, ",", ".")
	val, err = strconv.ParseFloat(s, 64)
	return val, isPercent, err
}

// ValidateBoundaries validates the submitted boundary values against the quiz
// maximum grade and returns the normalized absolute values of the valid
// prefix. Field errors use the submitted field naming: feedbackboundaries[n]
// and feedbacktext[n][gradeItemID].
//
// The valid prefix ends at the first blank boundary. Within it, each boundary
// must parse, lie strictly inside (0, maxGrade) and be strictly less than the
// boundary above it. Any non-blank value past the prefix is junk data.
func (d *OverallFeedbackData) ValidateBoundaries(maxGrade float64) ([]float64, []core.FieldError) {
	var fldErrs []core.FieldError
	addErr := func(field, text string) {
		fldErrs = append(fldErrs, core.FieldError{Field: field, Error: text})
	}

	boundaries := make([]float64, 0, len(d.Boundaries))
	var prev *float64

	i := 0
	for ; i < len(d.Boundaries) && strings.TrimSpace(d.Boundaries[i]) != ""; i++ {
		field := fmt.Sprintf("feedbackboundaries[%d]", i)

		val, isPercent, err := parseBoundary(d.Boundaries[i])
		if err != nil {
			addErr(field, boundaryFormatText)
			prev = nil
			continue
		}
		if isPercent {
			val = val * maxGrade / 100
		}
		if val <= 0 || val >= maxGrade {
			addErr(field, boundaryOutOfRangeText)
			prev = nil
			continue
		}
		if prev != nil && val >= *prev {
			addErr(field, boundaryOrderText)
			prev = nil
			continue
		}
		boundaries = append(boundaries, val)
		v := val
		prev = &v
	}
	numBoundaries := i

	// anything non-blank past the valid prefix is junk
	for ; i < len(d.Boundaries); i++ {
		if strings.TrimSpace(d.Boundaries[i]) != "" {
			addErr(fmt.Sprintf("feedbackboundaries[%d]", i), junkBoundaryText)
		}
	}
	for j := numBoundaries + 1; j < len(d.Texts); j++ {
		for itemID, text := range d.Texts[j] {
			if strings.TrimSpace(text) != "" {
				addErr(fmt.Sprintf("feedbacktext[%d][%d]", j, itemID), junkFeedbackText)
			}
		}
	}

	return boundaries, fldErrs
}

// bands assembles FeedbackBand records from validated absolute boundaries.
// Band n covers [boundaries[n], boundaries[n-1]) with maxGrade as the upper
// bound of the first band and 0 as the lower bound of the last.
func (d *OverallFeedbackData) bands(qz Quiz, boundaries []float64) []FeedbackBand {
	numBands := len(boundaries) + 1
	bands := make([]FeedbackBand, 0, numBands)
	for n := 0; n < numBands; n++ {
		upper := qz.MaxGrade
		if n > 0 {
			upper = boundaries[n-1]
		}
		var lower float64
		if n < len(boundaries) {
			lower = boundaries[n]
		}

		if n >= len(d.Texts) {
			break
		}
		for itemID, text := range d.Texts[n] {
			if strings.TrimSpace(text) == "" {
				continue
			}
			bands = append(bands, FeedbackBand{
				QuizID:      qz.ID,
				GradeItemID: itemID,
				MinGrade:    lower,
				MaxGrade:    upper,
				Text:        text,
			})
		}
	}
	return bands
}
