package services

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/soaringjerry/gradtrack/internal/models"
)

// Table is one exported collection: a header row plus data rows.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// QuotedCSV renders rows with every cell quoted and embedded quotes doubled, one
// record per line. encoding/csv only quotes cells that need it, so it is not used here.
func QuotedCSV(rows [][]string) []byte {
	var buf bytes.Buffer
	for i, row := range rows {
		if i > 0 {
			buf.WriteByte('\n')
		}
		for j, cell := range row {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.WriteByte('"')
			buf.WriteString(strings.ReplaceAll(cell, `"`, `""`))
			buf.WriteByte('"')
		}
	}
	return buf.Bytes()
}

// CSV renders the table including its header.
func (t Table) CSV() []byte {
	all := make([][]string, 0, len(t.Rows)+1)
	all = append(all, t.Header)
	all = append(all, t.Rows...)
	return QuotedCSV(all)
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func UsersTable(users []models.User) Table {
	t := Table{
		Name: "users",
		Header: []string{"name", "surname", "email", "role", "status", "nationalId", "program",
			"graduationYear", "phone", "createdAt", "employed", "company", "position"},
	}
	for _, u := range users {
		year := ""
		if u.GraduationYear > 0 {
			year = strconv.Itoa(u.GraduationYear)
		}
		var employed, company, position string
		if u.Employment != nil {
			employed, company, position = u.Employment.Employed, u.Employment.Company, u.Employment.Position
		}
		t.Rows = append(t.Rows, []string{u.Name, u.Surname, u.Email, string(u.Role), string(u.Status),
			u.NationalID, u.Program, year, u.Phone, stamp(u.CreatedAt), employed, company, position})
	}
	return t
}

func SurveysTable(surveys []models.Survey) Table {
	t := Table{Name: "surveys", Header: []string{"id", "title", "createdAt", "active", "target", "questions"}}
	for _, s := range surveys {
		t.Rows = append(t.Rows, []string{s.ID, s.Title, stamp(s.CreatedAt), strconv.FormatBool(s.Active),
			s.Target, strings.Join(s.Questions, " | ")})
	}
	return t
}

// ResponsesTable fills a missing survey title from surveys when the survey still exists.
func ResponsesTable(responses []models.Response, surveys []models.Survey) Table {
	titles := make(map[string]string, len(surveys))
	for _, s := range surveys {
		titles[s.ID] = s.Title
	}
	t := Table{Name: "responses", Header: []string{"surveyId", "surveyTitle", "email", "answers", "submittedAt"}}
	for _, r := range responses {
		title := r.SurveyTitle
		if title == "" {
			title = titles[r.SurveyID]
		}
		t.Rows = append(t.Rows, []string{r.SurveyID, title, r.Email, strings.Join(r.Answers, " | "), stamp(r.SubmittedAt)})
	}
	return t
}

func SummaryTable(st models.Stats) Table {
	return Table{
		Name:   "summary_stats",
		Header: []string{"metric", "value"},
		Rows: [][]string{
			{"total_users", strconv.Itoa(st.TotalUsers)},
			{"approved", strconv.Itoa(st.Approved)},
			{"pending", strconv.Itoa(st.Pending)},
			{"employed", strconv.Itoa(st.Employed)},
			{"employed_pct", strconv.Itoa(st.EmployedPct)},
		},
	}
}
