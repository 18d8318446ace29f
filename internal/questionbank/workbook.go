package questionbank

import (
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/prepsala/examhall-backend/internal/model"
	"github.com/prepsala/examhall-backend/internal/scoring"
)

const (
	// TotalSheetName is the reserved sheet carrying the declared total
	// question count. It is never enumerated as a section.
	TotalSheetName = "TotalQuestions"

	totalColumn    = "Total"
	questionColumn = "Question"
	correctColumn  = "Correct Answer"

	// durationColumn is matched exactly, case-sensitive. A sheet declaring
	// "duration" or "DURATION" is ignored on purpose.
	durationColumn = "Duration"

	maxDurationMinutes = 180
	optionDisplayRunes = 100
)

var optionColumns = [4]string{"Option A", "Option B", "Option C", "Option D"}

// Workbook reads the exam definition from an xlsx file. Every load opens the
// file fresh; nothing is cached between calls.
type Workbook struct {
	path string
	log  zerolog.Logger
}

// NewWorkbook creates a Workbook over the given xlsx path.
func NewWorkbook(path string, log zerolog.Logger) *Workbook {
	return &Workbook{
		path: path,
		log:  log.With().Str("component", "questionbank").Logger(),
	}
}

// Path returns the workbook file path.
func (w *Workbook) Path() string {
	return w.path
}

// LoadSchema reads the workbook and derives the question schema: section
// question counts, the optional duration and the declared total override.
//
// A missing or unreadable workbook degrades to an empty schema rather than an
// error; the exam simply has no sections until the file appears. Parse
// failures on the reserved totals sheet are non-fatal and leave the declared
// total at zero.
func (w *Workbook) LoadSchema() *model.QuestionSchema {
	schema := &model.QuestionSchema{Sections: make(map[string]int)}

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		w.log.Warn().Err(err).Str("path", w.path).Msg("Workbook unavailable, using empty schema")
		return schema
	}
	defer f.Close()

	schema.DeclaredTotal = w.readDeclaredTotal(f)

	for _, sheet := range f.GetSheetList() {
		if sheet == TotalSheetName {
			continue
		}

		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		header := headerIndex(rows[0])

		qCol, ok := header[questionColumn]
		if !ok {
			continue
		}

		count := 0
		for _, row := range rows[1:] {
			if cell(row, qCol) != "" {
				count++
			}
		}
		if count == 0 {
			// Zero-question sheets are omitted, not stored as zero.
			continue
		}
		schema.Sections[sheet] = count

		if schema.DurationMinutes == nil {
			schema.DurationMinutes = readDuration(rows, header)
		}
	}

	w.log.Debug().
		Int("sections", len(schema.Sections)).
		Int("declared_total", schema.DeclaredTotal).
		Msg("Schema loaded")
	return schema
}

// LoadQuestions reads every section sheet and returns its questions in a
// freshly randomized presentation order. Question ids are assigned from the
// original row positions before shuffling, so they are stable across loads;
// only DisplayIndex reflects the shuffle.
func (w *Workbook) LoadQuestions() map[string][]model.Question {
	questions := make(map[string][]model.Question)

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		w.log.Warn().Err(err).Str("path", w.path).Msg("Workbook unavailable, no questions")
		return questions
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		if sheet == TotalSheetName {
			continue
		}

		parsed := parseSheet(f, sheet)
		if len(parsed) == 0 {
			continue
		}

		rand.Shuffle(len(parsed), func(i, j int) {
			parsed[i], parsed[j] = parsed[j], parsed[i]
		})
		for i := range parsed {
			parsed[i].DisplayIndex = i + 1
		}
		questions[sheet] = parsed
	}
	return questions
}

// LoadAnswerKey reads every section sheet and returns the authoritative
// answer key in original row order. The key depends only on stable question
// ids and is therefore identical regardless of presentation shuffles.
func (w *Workbook) LoadAnswerKey() scoring.AnswerKey {
	key := make(scoring.AnswerKey)

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		w.log.Warn().Err(err).Str("path", w.path).Msg("Workbook unavailable, empty answer key")
		return key
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		if sheet == TotalSheetName {
			continue
		}

		parsed := parseSheet(f, sheet)
		if len(parsed) == 0 {
			continue
		}

		entries := make([]scoring.KeyEntry, 0, len(parsed))
		for _, q := range parsed {
			entries = append(entries, scoring.KeyEntry{
				QuestionID:    q.ID,
				QuestionText:  q.Text,
				CorrectAnswer: q.CorrectAnswer,
			})
		}
		key[sheet] = entries
	}
	return key
}

// readDeclaredTotal extracts the override total from the reserved sheet.
// Only the first data row of the Total column is consulted.
func (w *Workbook) readDeclaredTotal(f *excelize.File) int {
	rows, err := f.GetRows(TotalSheetName)
	if err != nil || len(rows) < 2 {
		return 0
	}

	col, ok := headerIndex(rows[0])[totalColumn]
	if !ok {
		return 0
	}

	total, err := strconv.Atoi(cell(rows[1], col))
	if err != nil || total < 0 {
		w.log.Warn().Str("sheet", TotalSheetName).Msg("Unparseable declared total, ignoring")
		return 0
	}
	return total
}

// readDuration scans columns named exactly "Duration" for the sheet's
// duration. Per column only the first numeric value is considered; it is
// accepted when 0 < value <= 180, otherwise the next Duration column is
// tried. Returns nil when no column yields an acceptable value.
func readDuration(rows [][]string, header map[string]int) *int {
	for name, col := range header {
		if name != durationColumn {
			continue
		}
		for _, row := range rows[1:] {
			raw := cell(row, col)
			if raw == "" {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			if v > 0 && v <= maxDurationMinutes {
				minutes := int(v)
				return &minutes
			}
			break
		}
	}
	return nil
}

// parseSheet reads one section sheet into questions in original row order.
// Fully-empty rows are stripped; remaining rows keep their position-derived
// id even when individual cells are blank. Option text is truncated for
// display, question text never is. Sheets without a valid (non-empty)
// question are skipped entirely.
func parseSheet(f *excelize.File, sheet string) []model.Question {
	rows, err := f.GetRows(sheet)
	if err != nil || len(rows) < 2 {
		return nil
	}
	header := headerIndex(rows[0])

	qCol, ok := header[questionColumn]
	if !ok {
		return nil
	}

	var questions []model.Question
	valid := 0
	for _, row := range rows[1:] {
		if emptyRow(row) {
			continue
		}

		q := model.Question{
			ID:            strconv.Itoa(len(questions)),
			Section:       sheet,
			Text:          cell(row, qCol),
			OptionA:       truncateOption(cellNamed(row, header, optionColumns[0])),
			OptionB:       truncateOption(cellNamed(row, header, optionColumns[1])),
			OptionC:       truncateOption(cellNamed(row, header, optionColumns[2])),
			OptionD:       truncateOption(cellNamed(row, header, optionColumns[3])),
			CorrectAnswer: cellNamed(row, header, correctColumn),
		}
		if q.Text != "" {
			valid++
		}
		questions = append(questions, q)
	}

	if valid == 0 {
		return nil
	}
	return questions
}

// headerIndex maps trimmed header names to their column positions.
func headerIndex(headerRow []string) map[string]int {
	index := make(map[string]int, len(headerRow))
	for i, name := range headerRow {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, exists := index[name]; !exists {
			index[name] = i
		}
	}
	return index
}

// cell returns the trimmed cell value, tolerating short rows. Missing cells
// normalize to the empty string so downstream comparisons stay total.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func cellNamed(row []string, header map[string]int, name string) string {
	idx, ok := header[name]
	if !ok {
		return ""
	}
	return cell(row, idx)
}

func emptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// truncateOption caps option text at the display limit with an ellipsis
// suffix. Counted in runes so multibyte options are not split mid-character.
func truncateOption(text string) string {
	runes := []rune(text)
	if len(runes) <= optionDisplayRunes {
		return text
	}
	return string(runes[:optionDisplayRunes]) + "..."
}
