package domain

// Course is one row of the attendance report.
type Course struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Total      int     `json:"total"`
	Present    int     `json:"present"`
	Absent     int     `json:"absent"`
	Percentage float64 `json:"percentage"`
}

// BelowThreshold reports whether attendance is strictly below threshold percent.
// A course that has not held any classes is never below.
func (c Course) BelowThreshold(threshold float64) bool {
	return c.Total > 0 && c.Percentage < threshold
}

// Exam is one row of the exam schedule.
type Exam struct {
	CourseCode string `json:"course_code"`
	CourseName string `json:"course_name"`
	Date       Date   `json:"date"`
	Session    string `json:"session,omitempty"`
	Venue      string `json:"venue,omitempty"`
}

// DisplayName returns the course name, falling back to the code.
func (e Exam) DisplayName() string {
	if e.CourseName != "" {
		return e.CourseName
	}
	return e.CourseCode
}

// InternalMark is one assessment component of a course.
type InternalMark struct {
	CourseCode string  `json:"course_code"`
	CourseName string  `json:"course_name"`
	Component  string  `json:"component"`
	Obtained   float64 `json:"obtained"`
	Maximum    float64 `json:"maximum"`
}

// SemesterGPA is the grade point average of one semester.
type SemesterGPA struct {
	Semester int     `json:"semester"`
	SGPA     float64 `json:"sgpa"`
	Credits  int     `json:"credits"`
}

// CGPA is the cumulative grade summary.
type CGPA struct {
	Value     float64       `json:"value"`
	Credits   int           `json:"credits"`
	Semesters []SemesterGPA `json:"semesters,omitempty"`
}

// Greeting is the user-info payload shown on the home screen.
type Greeting struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// FreshData carries the payloads of a refresh cycle that feed notifications.
// A nil field means that kind was not refreshed successfully.
type FreshData struct {
	Attendance []Course
	Exams      []Exam
}

// HasAny reports whether any notification-relevant payload is present.
func (f FreshData) HasAny() bool {
	return f.Attendance != nil || f.Exams != nil
}
