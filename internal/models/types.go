package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Role is the account type. Stored values are "Graduate" or "Coordinator".
type Role string

const (
	RoleGraduate    Role = "Graduate"
	RoleCoordinator Role = "Coordinator"
)

// ParseRole normalizes a role name, case-insensitively. The Spanish names used by
// older stored data ("Egresado", "Coordinador") map to the same roles.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "graduate", "egresado":
		return RoleGraduate, true
	case "coordinator", "coordinador":
		return RoleCoordinator, true
	}
	return "", false
}

// Status is the approval state of an account.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Employment values for Employment.Employed.
const (
	EmployedYes   = "yes"
	EmployedNo    = "no"
	EmployedUnset = ""
)

// Experience is one entry of a graduate's work history.
type Experience struct {
	Company     string `json:"company"`
	Role        string `json:"role"`
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
	Description string `json:"description,omitempty"`
}

type Employment struct {
	Employed    string       `json:"employed"`
	Company     string       `json:"company,omitempty"`
	Position    string       `json:"position,omitempty"`
	Experiences []Experience `json:"experiences"`
}

// User is an account plus profile. Email is the key, compared case-insensitively.
type User struct {
	Email          string      `json:"email"`
	PasswordHash   string      `json:"passwordHash,omitempty"`
	Name           string      `json:"name"`
	Surname        string      `json:"surname"`
	NationalID     string      `json:"nationalId,omitempty"`
	Phone          string      `json:"phone,omitempty"`
	Program        string      `json:"program,omitempty"`
	GraduationYear int         `json:"graduationYear,omitempty"`
	BirthDate      string      `json:"birthDate,omitempty"`
	Gender         string      `json:"gender,omitempty"`
	LinkedInURL    string      `json:"linkedinUrl,omitempty"`
	Address        string      `json:"address,omitempty"`
	Role           Role        `json:"role"`
	Status         Status      `json:"status"`
	CreatedAt      time.Time   `json:"createdAt"`
	Employment     *Employment `json:"employment,omitempty"`
	Trainings      []string    `json:"trainings"`
}

// FullName joins name and surname.
func (u User) FullName() string {
	return strings.TrimSpace(u.Name + " " + u.Surname)
}

// TargetAll makes a survey visible to every graduate.
const TargetAll = "all"

type Survey struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Questions []string  `json:"questions"`
	CreatedAt time.Time `json:"createdAt"`
	Active    bool      `json:"active"`
	Target    string    `json:"target,omitempty"`
}

// UnmarshalJSON treats a missing "active" field as true.
func (s *Survey) UnmarshalJSON(b []byte) error {
	type plain Survey
	aux := struct {
		*plain
		Active *bool `json:"active"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	s.Active = aux.Active == nil || *aux.Active
	return nil
}

// VisibleToGraduates reports whether graduates may see and answer the survey.
func (s Survey) VisibleToGraduates() bool {
	return s.Active && s.Target == TargetAll
}

// Response is one submission; a graduate may answer the same survey repeatedly.
type Response struct {
	SurveyID    string    `json:"surveyId"`
	SurveyTitle string    `json:"surveyTitle,omitempty"`
	Email       string    `json:"email"`
	Answers     []string  `json:"answers"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Training is an announcement published by a coordinator.
type Training struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Session is the identity held for one tab or browser session.
type Session struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// Stats summarizes graduate accounts for the coordinator dashboard.
type Stats struct {
	TotalUsers  int       `json:"totalUsers"`
	Approved    int       `json:"approved"`
	Pending     int       `json:"pending"`
	Rejected    int       `json:"rejected"`
	Employed    int       `json:"employed"`
	EmployedPct int       `json:"employedPct"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
