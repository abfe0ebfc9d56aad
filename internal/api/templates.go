package api

import (
	"html/template"
)

// Inline page templates. The dashboard surface is deliberately plain HTML:
// a query form, one section per result, and a parameter form when any
// query declares placeholders.

const baseTemplates = `
{{define "login"}}<!DOCTYPE html>
<html><head><title>pgdash - Login</title></head><body>
<h1>pgdash</h1>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<form method="post" action="/login">
  <label>Username <input type="text" name="username"></label>
  <label>Password <input type="password" name="password"></label>
  <button type="submit">Log in</button>
</form>
</body></html>{{end}}

{{define "setup"}}<!DOCTYPE html>
<html><head><title>pgdash - Setup</title></head><body>
<h1>Create the first superuser</h1>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<form method="post" action="/setup">
  <label>Username <input type="text" name="username"></label>
  <label>Password <input type="password" name="password"></label>
  <button type="submit">Create</button>
</form>
</body></html>{{end}}

{{define "dashboard"}}<!DOCTYPE html>
<html><head><title>{{if .Title}}{{.Title}}{{else}}pgdash{{end}}</title></head><body>
<h1>{{if .Title}}{{.Title}}{{else}}pgdash{{end}}</h1>
{{if .Description}}<div class="description">{{.Description}}</div>{{end}}

{{if .ShowEditor}}
<form method="post" action="/dashboard">
  {{range .Queries}}<textarea name="sql" rows="4" cols="80">{{.SQL}}</textarea>
  {{end}}{{if not .Queries}}<textarea name="sql" rows="4" cols="80"></textarea>{{end}}
  <button type="submit">Run queries</button>
</form>
{{end}}

{{if .Parameters}}
<form method="get" action="{{.ParamAction}}">
  {{range $i, $p := .Parameters}}
  <label for="qp{{inc $i}}">{{$p.Name}}</label>
  <input type="text" id="qp{{inc $i}}" name="{{$p.Name}}" value="{{$p.Value}}">
  {{end}}
  {{range .SignedTokens}}<input type="hidden" name="sql" value="{{.}}">{{end}}
  <button type="submit">Apply parameters</button>
</form>
{{end}}

{{range $i, $q := .Queries}}
<section class="query {{$q.Widget}}">
  {{if $q.Title}}<h2>{{$q.Title}}</h2>{{end}}
  <pre class="sql">{{$q.SQL}}</pre>
  {{if not $q.Verified}}<p class="unverified">Unverified SQL: signature did not match, shown for review only.</p>{{end}}
  {{if $q.Error}}
  <pre class="error">{{$q.Error}}</pre>
  {{else}}
  <table>
    <tr>{{range $q.Columns}}<th>{{.}}</th>{{end}}</tr>
    {{range $q.Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}
  </table>
  {{if $q.Truncated}}<p class="truncated">Results were truncated.</p>{{end}}
  <p class="timing">{{$q.Duration}}</p>
  {{if $.ExportAllowed}}
  <form method="post" action="/dashboard">
    {{range $.RawSQLs}}<input type="hidden" name="sql" value="{{.}}">{{end}}
    <button type="submit" name="export_csv_{{$i}}" value="1">Export all as CSV</button>
    <button type="submit" name="export_tsv_{{$i}}" value="1">Export all as TSV</button>
  </form>
  {{end}}
  {{end}}
</section>
{{end}}

{{if .SaveAllowed}}
<form method="post" action="/dashboard">
  {{range .RawSQLs}}<input type="hidden" name="sql" value="{{.}}">{{end}}
  <label>Slug <input type="text" name="_save-slug"></label>
  <label>Title <input type="text" name="_save-title"></label>
  <label>View policy <select name="_save-view_policy">
    <option>private</option><option>public</option><option>unlisted</option>
    <option>loggedin</option><option>group</option><option>staff</option><option>superuser</option>
  </select></label>
  <label>Edit policy <select name="_save-edit_policy">
    <option>private</option><option>loggedin</option><option>group</option>
    <option>staff</option><option>superuser</option>
  </select></label>
  <button type="submit">Save as dashboard</button>
</form>
{{end}}

{{if .Dashboards}}
<h2>Your dashboards</h2>
<ul>
{{range .Dashboards}}<li><a href="/dashboard/{{.Slug}}/">{{if .Title}}{{.Title}}{{else}}{{.Slug}}{{end}}</a></li>
{{end}}
</ul>
{{end}}

{{if .Username}}<p><a href="/logout">Log out {{.Username}}</a></p>{{else}}<p><a href="/login">Log in</a></p>{{end}}
</body></html>{{end}}
`

// Templates parses the built-in page templates.
func Templates() *template.Template {
	funcMap := template.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}
	return template.Must(template.New("").Funcs(funcMap).Parse(baseTemplates))
}
