package emaildispatch

import (
	"bytes"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"creator-match/internal/models"
)

type reportData struct {
	Headline      string
	Summary       string
	Badge         string
	Compatibility int
	Reasons       []string
	ReasonsLabel  string
}

const textReport = `{{.Headline}}

Compatibility: {{.Compatibility}}%
{{.Summary}}

{{.ReasonsLabel}}:
{{range .Reasons}}  - {{.}}
{{end}}
{{.Badge}}
`

const htmlReport = `<html><body>
<h1>{{.Headline}}</h1>
<p><strong>{{.Compatibility}}%</strong> compatibility</p>
<p>{{.Summary}}</p>
<h2>{{.ReasonsLabel}}</h2>
<ul>{{range .Reasons}}<li>{{.}}</li>{{end}}</ul>
<p><em>{{.Badge}}</em></p>
</body></html>`

var (
	textTmpl = texttemplate.Must(texttemplate.New("report.txt").Parse(textReport))
	htmlTmpl = htmltemplate.Must(htmltemplate.New("report.html").Parse(htmlReport))
)

// RenderReport produces the plain-text and HTML bodies of the results email.
func RenderReport(result *models.MatchResult) (text, html string, err error) {
	rec := result.Recommendation
	label := "Why this could work"
	if !rec.Positive() {
		label = "Potential concerns"
	}
	data := reportData{
		Headline:      rec.Headline(),
		Summary:       rec.Summary(),
		Badge:         rec.Badge(),
		Compatibility: result.Compatibility,
		Reasons:       result.Reasons,
		ReasonsLabel:  label,
	}

	var tb, hb bytes.Buffer
	if err := textTmpl.Execute(&tb, data); err != nil {
		return "", "", err
	}
	if err := htmlTmpl.Execute(&hb, data); err != nil {
		return "", "", err
	}
	return strings.TrimSpace(tb.String()), hb.String(), nil
}
