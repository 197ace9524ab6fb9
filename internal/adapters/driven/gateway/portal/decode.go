package portal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/portal-sync/internal/core/domain"
)

// envelope wraps every portal response body.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// examDateLayouts are the date formats seen in the exam schedule.
var examDateLayouts = []string{
	domain.DateLayout,
	"02-01-2006",
	"02-Jan-2006",
	"02/01/2006",
}

// unwrap returns the data field of body, decoding numbers as json.Number.
func unwrap(body []byte, endpoint string, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrDecodePayload, endpoint, err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("%w: %s: missing data", domain.ErrDecodePayload, endpoint)
	}

	dec := json.NewDecoder(bytes.NewReader(env.Data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrDecodePayload, endpoint, err)
	}
	return nil
}

// row is one positional record.
type row []any

func (r row) need(n int) error {
	if len(r) < n {
		return fmt.Errorf("row has %d columns, want at least %d", len(r), n)
	}
	return nil
}

func (r row) str(i int) string {
	if i >= len(r) || r[i] == nil {
		return ""
	}
	switch v := r[i].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// float parses column i. Strings such as "82.5%" are accepted.
// ok is false if the cell is empty.
func (r row) float(i int) (float64, bool, error) {
	s := strings.TrimSuffix(r.str(i), "%")
	if s == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false, fmt.Errorf("column %d: %q is not a number", i, s)
	}
	return f, true, nil
}

func (r row) int(i int) (int, error) {
	f, ok, err := r.float(i)
	if err != nil || !ok {
		return 0, err
	}
	return int(math.Round(f)), nil
}

func decodeAttendance(body []byte) ([]domain.Course, error) {
	const endpoint = pathAttendance
	var rows []row
	if err := unwrap(body, endpoint, &rows); err != nil {
		return nil, err
	}

	courses := make([]domain.Course, 0, len(rows))
	for i, r := range rows {
		c, err := courseFromRow(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: %v", domain.ErrDecodePayload, endpoint, i, err)
		}
		courses = append(courses, c)
	}
	return courses, nil
}

// courseFromRow decodes [code, name, total, present, absent?, percentage?].
func courseFromRow(r row) (domain.Course, error) {
	if err := r.need(4); err != nil {
		return domain.Course{}, err
	}
	c := domain.Course{Code: r.str(0), Name: r.str(1)}
	if c.Code == "" {
		return c, fmt.Errorf("empty course code")
	}

	var err error
	if c.Total, err = r.int(2); err != nil {
		return c, err
	}
	if c.Present, err = r.int(3); err != nil {
		return c, err
	}
	if c.Absent, err = r.int(4); err != nil {
		return c, err
	}
	if c.Absent == 0 && c.Total > c.Present {
		c.Absent = c.Total - c.Present
	}

	pct, ok, err := r.float(5)
	if err != nil {
		return c, err
	}
	if !ok && c.Total > 0 {
		pct = math.Round(float64(c.Present)/float64(c.Total)*10000) / 100
	}
	c.Percentage = pct
	return c, nil
}

func decodeExams(body []byte) ([]domain.Exam, error) {
	const endpoint = pathExams
	var rows []row
	if err := unwrap(body, endpoint, &rows); err != nil {
		return nil, err
	}

	exams := make([]domain.Exam, 0, len(rows))
	for i, r := range rows {
		e, err := examFromRow(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: %v", domain.ErrDecodePayload, endpoint, i, err)
		}
		exams = append(exams, e)
	}
	return exams, nil
}

// examFromRow decodes [code, name, date, session?, venue?].
func examFromRow(r row) (domain.Exam, error) {
	if err := r.need(3); err != nil {
		return domain.Exam{}, err
	}
	date, err := parseExamDate(r.str(2))
	if err != nil {
		return domain.Exam{}, err
	}
	return domain.Exam{
		CourseCode: r.str(0),
		CourseName: r.str(1),
		Date:       date,
		Session:    r.str(3),
		Venue:      r.str(4),
	}, nil
}

func parseExamDate(s string) (domain.Date, error) {
	for _, layout := range examDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.DateOf(t), nil
		}
	}
	return "", fmt.Errorf("unrecognised exam date %q", s)
}

func decodeInternals(body []byte) ([]domain.InternalMark, error) {
	const endpoint = pathInternals
	var rows []row
	if err := unwrap(body, endpoint, &rows); err != nil {
		return nil, err
	}

	marks := make([]domain.InternalMark, 0, len(rows))
	for i, r := range rows {
		m, err := markFromRow(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: %v", domain.ErrDecodePayload, endpoint, i, err)
		}
		marks = append(marks, m)
	}
	return marks, nil
}

// markFromRow decodes [code, name, component, obtained, maximum].
func markFromRow(r row) (domain.InternalMark, error) {
	if err := r.need(5); err != nil {
		return domain.InternalMark{}, err
	}
	m := domain.InternalMark{CourseCode: r.str(0), CourseName: r.str(1), Component: r.str(2)}

	var err error
	if m.Obtained, _, err = r.float(3); err != nil {
		return m, err
	}
	if m.Maximum, _, err = r.float(4); err != nil {
		return m, err
	}
	return m, nil
}

// cgpaPayload is the data of GET /api/cgpa.
// Semesters are positional rows of [semester, gpa, credits].
type cgpaPayload struct {
	CGPA      json.Number `json:"cgpa"`
	Credits   json.Number `json:"credits"`
	Semesters []row       `json:"semesters"`
}

func decodeCGPA(body []byte) (*domain.CGPA, error) {
	const endpoint = pathCGPA
	var p cgpaPayload
	if err := unwrap(body, endpoint, &p); err != nil {
		return nil, err
	}

	value, err := p.CGPA.Float64()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: cgpa: %v", domain.ErrDecodePayload, endpoint, err)
	}
	credits, _ := p.Credits.Int64()

	out := &domain.CGPA{Value: value, Credits: int(credits)}
	for i, r := range p.Semesters {
		sem, err := semesterFromRow(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %s semester %d: %v", domain.ErrDecodePayload, endpoint, i, err)
		}
		out.Semesters = append(out.Semesters, sem)
	}
	return out, nil
}

func semesterFromRow(r row) (domain.SemesterGPA, error) {
	if err := r.need(2); err != nil {
		return domain.SemesterGPA{}, err
	}
	var (
		sem domain.SemesterGPA
		err error
	)
	if sem.Semester, err = r.int(0); err != nil {
		return sem, err
	}
	if sem.SGPA, _, err = r.float(1); err != nil {
		return sem, err
	}
	if sem.Credits, err = r.int(2); err != nil {
		return sem, err
	}
	return sem, nil
}

func decodeGreeting(body []byte) (*domain.Greeting, error) {
	var g domain.Greeting
	if err := unwrap(body, pathUser, &g); err != nil {
		return nil, err
	}
	return &g, nil
}
