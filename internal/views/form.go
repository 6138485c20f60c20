package views

import (
	"html/template"
	"io"
)

var surveyFormTemplate = template.Must(template.New("survey-form").Parse(
	`<form class="survey-form" method="post" action="/api/surveys/{{.SurveyID}}/responses" data-survey-id="{{.SurveyID}}">
<h3>{{.Title}}</h3>
{{range .Fields}}<label>{{.Label}} <input type="text" name="{{.Name}}"></label>
{{end}}<button type="submit">Enviar</button>
</form>
`))

// RenderSurveyForm writes the HTML form for f. Labels and titles are escaped.
func RenderSurveyForm(w io.Writer, f SurveyForm) error {
	return surveyFormTemplate.Execute(w, f)
}
