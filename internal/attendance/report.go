package attendance

import (
	"time"

	"hrm/internal/apperr"
	"hrm/internal/model"
)

// NoRecord is the status reported for a day without an attendance record.
const NoRecord = "No Record"

// Day is one calendar day of a monthly report.
type Day struct {
	Date      model.Date `json:"date"`
	Day       int        `json:"day"`
	Status    string     `json:"status"`
	Notes     string     `json:"notes"`
	HasRecord bool       `json:"has_record"`
}

// Summary reconciles one employee's records against a full month.
type Summary struct {
	TotalDays    int   `json:"total_days"`
	PresentDays  int   `json:"present_days"`
	AbsentDays   int   `json:"absent_days"`
	NoRecordDays int   `json:"no_record_days"`
	DailyData    []Day `json:"daily_data"`
}

// Report is a member's view of their own month.
type Report struct {
	Month int `json:"month"`
	Year  int `json:"year"`
	Summary
}

// EmployeeReport is one entry of a company report.
type EmployeeReport struct {
	EmployeeID   string `json:"employee_id"`
	EmployeeName string `json:"employee_name"`
	Department   string `json:"department"`
	Summary
}

// CompanyReport is an admin's view of every employee of their company.
type CompanyReport struct {
	Month               int              `json:"month"`
	Year                int              `json:"year"`
	TotalEmployees      int              `json:"total_employees"`
	EmployeesAttendance []EmployeeReport `json:"employees_attendance"`
}

// ValidatePeriod rejects months outside 1..12 and non-positive years.
func ValidatePeriod(year, month int) error {
	if month < 1 || month > 12 {
		return apperr.Validation("month must be between 1 and 12")
	}
	if year < 1 || year > 9999 {
		return apperr.Validation("year must be a positive number")
	}
	return nil
}

// DaysIn returns the number of days in month of year.
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Summarize builds the gapless per-day sequence for (year, month) from one
// employee's records. Records outside the month are ignored and at most one
// record per day is used.
func Summarize(year, month int, records []model.AttendanceRecord) Summary {
	total := DaysIn(year, month)
	byDay := make(map[int]model.AttendanceRecord, len(records))
	for _, r := range records {
		if r.Date.Year() != year || int(r.Date.Month()) != month {
			continue
		}
		if _, seen := byDay[r.Date.Day()]; !seen {
			byDay[r.Date.Day()] = r
		}
	}

	s := Summary{TotalDays: total, DailyData: make([]Day, 0, total)}
	for d := 1; d <= total; d++ {
		day := Day{Date: model.NewDate(year, time.Month(month), d), Day: d, Status: NoRecord}
		if r, ok := byDay[d]; ok {
			day.Status = string(r.Status)
			day.Notes = r.Notes
			day.HasRecord = true
			switch r.Status {
			case model.Present:
				s.PresentDays++
			case model.Absent:
				s.AbsentDays++
			}
		}
		s.DailyData = append(s.DailyData, day)
	}
	s.NoRecordDays = total - (s.PresentDays + s.AbsentDays)
	return s
}

// BuildCompanyReport fans records out to one summary per employee, in the
// order employees are given.
func BuildCompanyReport(year, month int, employees []model.Employee, records []model.AttendanceRecord) CompanyReport {
	byEmployee := make(map[int64][]model.AttendanceRecord, len(employees))
	for _, r := range records {
		byEmployee[r.EmployeeID] = append(byEmployee[r.EmployeeID], r)
	}
	rep := CompanyReport{
		Month:               month,
		Year:                year,
		TotalEmployees:      len(employees),
		EmployeesAttendance: make([]EmployeeReport, 0, len(employees)),
	}
	for _, e := range employees {
		rep.EmployeesAttendance = append(rep.EmployeesAttendance, EmployeeReport{
			EmployeeID:   e.EmployeeID,
			EmployeeName: e.FullName,
			Department:   e.Department,
			Summary:      Summarize(year, month, byEmployee[e.ID]),
		})
	}
	return rep
}
