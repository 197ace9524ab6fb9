package domain

import "strings"

// NotificationCategory identifies an alert family.
type NotificationCategory string

// Available notification categories.
const (
	CategoryLowAttendance NotificationCategory = "low_attendance"
	CategoryExamReminder  NotificationCategory = "exam_reminder"
	CategoryExamDay       NotificationCategory = "exam_day"
)

// Priority is the delivery priority requested from the notification service.
type Priority string

// Available priorities.
const (
	PriorityLow     Priority = "low"
	PriorityDefault Priority = "default"
	PriorityHigh    Priority = "high"
)

// Notification is a local notification to deliver immediately.
type Notification struct {
	Category NotificationCategory
	Title    string
	Body     string
	Priority Priority
}

// DedupKeyPrefix prefixes every persisted notification marker.
const DedupKeyPrefix = "notify:"

// DedupKey identifies a notification that must be sent at most once.
//
// Low-attendance and exam-reminder keys are day-coarse: CourseCode is empty
// and Date is the day the alert fired. Exam-day keys are per exam: CourseCode
// and Date identify the exam.
type DedupKey struct {
	Category   NotificationCategory
	CourseCode string
	Date       Date
}

// LowAttendanceKey returns the day-coarse key for low attendance alerts.
func LowAttendanceKey(today Date) DedupKey {
	return DedupKey{Category: CategoryLowAttendance, Date: today}
}

// ExamReminderKey returns the day-coarse key for day-before exam reminders.
func ExamReminderKey(today Date) DedupKey {
	return DedupKey{Category: CategoryExamReminder, Date: today}
}

// ExamDayKey returns the per-exam key for exam-day alerts.
func ExamDayKey(courseCode string, examDate Date) DedupKey {
	return DedupKey{Category: CategoryExamDay, CourseCode: courseCode, Date: examDate}
}

// StorageKey renders the key used in the key-value store.
func (k DedupKey) StorageKey() string {
	var b strings.Builder
	b.WriteString(DedupKeyPrefix)
	b.WriteString(string(k.Category))
	if k.CourseCode != "" {
		b.WriteByte(':')
		b.WriteString(strings.ToUpper(strings.TrimSpace(k.CourseCode)))
	}
	b.WriteByte(':')
	b.WriteString(string(k.Date))
	return b.String()
}

// NotificationPreferences are the user's per-category switches.
type NotificationPreferences struct {
	AttendanceEnabled bool
	ExamEnabled       bool
	// AttendanceThreshold is the percentage below which a course qualifies.
	AttendanceThreshold float64
}

// DefaultAttendanceThreshold is the minimum attendance percentage.
const DefaultAttendanceThreshold = 80
