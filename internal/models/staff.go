package models

import "time"

type Staff struct {
	ID           string `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	Phone        string `json:"phone" db:"phone"`
	Role         string `json:"role" db:"role"`
	PasswordHash string `json:"-" db:"password_hash"`
	Active       bool   `json:"active" db:"active"`
	Timestamps
	SoftDelete
}

// Attendance is one staff member's working day.
type Attendance struct {
	ID       string     `json:"id" db:"id"`
	StaffID  string     `json:"staff_id" db:"staff_id"`
	WorkDate string     `json:"work_date" db:"work_date"`
	ClockIn  time.Time  `json:"clock_in" db:"clock_in"`
	ClockOut *time.Time `json:"clock_out,omitempty" db:"clock_out"`
}
