package render

import (
	"bytes"
	"fmt"
	"html/template"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 16px; background: #ffffff; }
ul.feed { list-style: none; padding: 0; font-size: 13px; }
ul.feed li { margin: 2px 0; }
</style>
</head>
<body>
{{.SVG}}
{{if .Caption}}<ul class="feed">
{{range .Caption}}<li>{{.}}</li>
{{end}}</ul>{{end}}
</body>
</html>
`))

// HTML wraps the SVG in a page listing every feed annotation below it.
func (c *Chart) HTML() ([]byte, error) {
	var b bytes.Buffer
	err := pageTemplate.Execute(&b, struct {
		Title   string
		SVG     template.HTML
		Caption []string
	}{c.Title, template.HTML(c.SVG()), c.Caption})
	if err != nil {
		return nil, fmt.Errorf("rendering page: %w", err)
	}
	return b.Bytes(), nil
}
