package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrm/internal/apperr"
	"hrm/internal/model"
)

func TestDaysIn(t *testing.T) {
	assert.Equal(t, 29, DaysIn(2024, 2))
	assert.Equal(t, 28, DaysIn(2023, 2))
	assert.Equal(t, 28, DaysIn(1900, 2))
	assert.Equal(t, 29, DaysIn(2000, 2))
	assert.Equal(t, 31, DaysIn(2024, 12))
	assert.Equal(t, 30, DaysIn(2024, 4))
}

func TestSummarizeIsGaplessForEveryMonth(t *testing.T) {
	for year := 1900; year <= 2100; year++ {
		for month := 1; month <= 12; month++ {
			records := []model.AttendanceRecord{
				{EmployeeID: 1, Date: model.NewDate(year, time.Month(month), 1), Status: model.Present},
				{EmployeeID: 1, Date: model.NewDate(year, time.Month(month), 3), Status: model.Absent},
			}
			s := Summarize(year, month, records)
			want := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1).Day()

			require.Equal(t, want, s.TotalDays, "%d-%02d", year, month)
			require.Len(t, s.DailyData, want)
			for i, d := range s.DailyData {
				require.Equal(t, i+1, d.Day)
				require.Equal(t, model.NewDate(year, time.Month(month), i+1), d.Date)
			}
			require.Equal(t, s.TotalDays, s.PresentDays+s.AbsentDays+s.NoRecordDays)
		}
	}
}

func TestSummarizeWithoutRecords(t *testing.T) {
	s := Summarize(2023, 6, nil)
	assert.Equal(t, 30, s.TotalDays)
	assert.Equal(t, 0, s.PresentDays)
	assert.Equal(t, 0, s.AbsentDays)
	assert.Equal(t, 30, s.NoRecordDays)
	for _, d := range s.DailyData {
		assert.False(t, d.HasRecord)
		assert.Equal(t, NoRecord, d.Status)
		assert.Empty(t, d.Notes)
	}
}

func TestSummarizeUsesStoredStatusAndNotes(t *testing.T) {
	s := Summarize(2024, 3, []model.AttendanceRecord{
		{Date: model.NewDate(2024, 3, 5), Status: model.Present, Notes: "on site"},
		{Date: model.NewDate(2024, 3, 6), Status: model.Absent, Notes: "sick"},
		{Date: model.NewDate(2024, 4, 1), Status: model.Present},
	})
	assert.Equal(t, 1, s.PresentDays)
	assert.Equal(t, 1, s.AbsentDays)
	assert.Equal(t, 29, s.NoRecordDays)

	day5 := s.DailyData[4]
	assert.True(t, day5.HasRecord)
	assert.Equal(t, "Present", day5.Status)
	assert.Equal(t, "on site", day5.Notes)
	assert.Equal(t, "Absent", s.DailyData[5].Status)
}

func TestBuildCompanyReportFansOutPerEmployee(t *testing.T) {
	employees := []model.Employee{
		{ID: 1, EmployeeID: "EMP0001", FullName: "Ann", Department: "Ops"},
		{ID: 2, EmployeeID: "EMP0002", FullName: "Bob", Department: "Eng"},
	}
	records := []model.AttendanceRecord{
		{EmployeeID: 1, Date: model.NewDate(2024, 2, 29), Status: model.Present},
		{EmployeeID: 2, Date: model.NewDate(2024, 2, 1), Status: model.Absent},
		{EmployeeID: 2, Date: model.NewDate(2024, 2, 2), Status: model.Absent},
	}
	rep := BuildCompanyReport(2024, 2, employees, records)

	assert.Equal(t, 2, rep.TotalEmployees)
	require.Len(t, rep.EmployeesAttendance, 2)
	ann, bob := rep.EmployeesAttendance[0], rep.EmployeesAttendance[1]
	assert.Equal(t, "EMP0001", ann.EmployeeID)
	assert.Len(t, ann.DailyData, 29)
	assert.Equal(t, 1, ann.PresentDays)
	assert.True(t, ann.DailyData[28].HasRecord)
	assert.Equal(t, "Eng", bob.Department)
	assert.Len(t, bob.DailyData, 29)
	assert.Equal(t, 2, bob.AbsentDays)
	assert.Equal(t, 27, bob.NoRecordDays)
}

func TestValidatePeriod(t *testing.T) {
	assert.NoError(t, ValidatePeriod(2024, 1))
	for _, tc := range []struct{ year, month int }{{2024, 0}, {2024, 13}, {0, 5}, {-1, 5}} {
		err := ValidatePeriod(tc.year, tc.month)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), "%d/%d", tc.year, tc.month)
	}
}
