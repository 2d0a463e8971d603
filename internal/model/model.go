package model

import (
	"fmt"
	"time"
)

// Company is the tenant boundary.
type Company struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Employee is a person belonging to exactly one company. It is also the
// authenticated principal of a request.
type Employee struct {
	ID             int64     `json:"id"`
	CompanyID      int64     `json:"-"`
	CompanyName    string    `json:"-"`
	EmployeeID     string    `json:"employee_id"`
	FullName       string    `json:"full_name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Department     string    `json:"department"`
	Phone          string    `json:"phone"`
	Position       string    `json:"position"`
	ProfilePicture *string   `json:"profile_picture"`
	IsAdmin        bool      `json:"is_admin"`
	CreatedAt      time.Time `json:"created_at"`
}

// AttendanceStatus is the recorded presence of an employee on a day.
type AttendanceStatus string

const (
	Present AttendanceStatus = "Present"
	Absent  AttendanceStatus = "Absent"
)

// Valid reports whether s is one of the known statuses.
func (s AttendanceStatus) Valid() bool {
	return s == Present || s == Absent
}

// AttendanceRecord is one row per (employee, calendar date).
type AttendanceRecord struct {
	ID           int64            `json:"id"`
	EmployeeID   int64            `json:"employee"`
	EmployeeCode string           `json:"employee_id"`
	EmployeeName string           `json:"employee_name"`
	Date         Date             `json:"date"`
	Status       AttendanceStatus `json:"status"`
	Notes        string           `json:"notes"`
	CreatedAt    time.Time        `json:"created_at"`
}

// LeaveType classifies a leave request.
type LeaveType string

const (
	SickLeave   LeaveType = "Sick"
	CasualLeave LeaveType = "Casual"
	EarnedLeave LeaveType = "Earned"
)

// Valid reports whether t is one of the known leave types.
func (t LeaveType) Valid() bool {
	switch t {
	case SickLeave, CasualLeave, EarnedLeave:
		return true
	}
	return false
}

// LeaveStatus is the decision state of a leave request.
type LeaveStatus string

const (
	LeavePending  LeaveStatus = "Pending"
	LeaveApproved LeaveStatus = "Approved"
	LeaveRejected LeaveStatus = "Rejected"
)

// Leave is a leave request owned by one employee.
type Leave struct {
	ID           int64       `json:"id"`
	EmployeeID   int64       `json:"employee"`
	EmployeeCode string      `json:"employee_id"`
	EmployeeName string      `json:"employee_name"`
	LeaveType    LeaveType   `json:"leave_type"`
	StartDate    Date        `json:"start_date"`
	EndDate      Date        `json:"end_date"`
	Reason       string      `json:"reason"`
	Status       LeaveStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Invitation offers an email address a seat in a company.
type Invitation struct {
	ID            int64      `json:"id"`
	Email         string     `json:"email"`
	CompanyID     int64      `json:"company"`
	CompanyName   string     `json:"company_name"`
	InvitedBy     int64      `json:"invited_by"`
	InvitedByName string     `json:"invited_by_name"`
	CreatedAt     time.Time  `json:"created_date"`
	IsAccepted    bool       `json:"is_accepted"`
	AcceptedAt    *time.Time `json:"accepted_date"`
	IsExpired     bool       `json:"is_expired"`
	Token         string     `json:"invitation_token"`
}

// ResetCode is a single-use numeric password reset code.
type ResetCode struct {
	ID         int64
	EmployeeID int64
	Code       string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Used       bool
}

// ValidAt reports whether the code can still be redeemed at now.
func (r ResetCode) ValidAt(now time.Time) bool {
	return !r.Used && now.Before(r.ExpiresAt)
}

// EmployeeCode formats the tenant-scoped employee identifier for the n-th
// employee of a company.
func EmployeeCode(n int) string {
	return fmt.Sprintf("EMP%04d", n)
}
