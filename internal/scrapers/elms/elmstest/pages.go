package elmstest

import (
	"html/template"
)

var loginPage = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html lang="en">
<head><title>eLMS: Log in to the site</title></head>
<body id="page-login-index">
{{if .Failed}}<div class="alert alert-danger" role="alert">Invalid login, please try again</div>{{end}}
<form class="login-form" action="/login/index.php" method="post" id="login">
	<input id="anchor" type="hidden" name="anchor" value="">
	{{if .Token}}<input type="hidden" name="logintoken" value="{{.Token}}">{{end}}
	<input type="text" name="username" id="username" value="">
	<input type="password" name="password" id="password" value="">
	<button class="btn btn-primary btn-lg" type="submit" id="loginbtn">Log in</button>
</form>
</body>
</html>`))

var dashboardPage = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<title>Dashboard | eLMS</title>
{{if .InScript}}<script>
//<![CDATA[
M.cfg = {"sesskey":"{{.Sesskey}}","themerev":"1712345678"};
//]]>
</script>{{end}}
</head>
<body id="page-my-index">
<div id="page-header"><h2>Dashboard</h2></div>
{{if .InForm}}<form action="/login/logout.php" method="post">
	<input type="hidden" name="sesskey" value="{{.Sesskey}}">
</form>{{end}}
</body>
</html>`))

type rosterLink struct {
	Href string
	Name string
}

var rosterPage = template.Must(template.New("roster").Parse(`<!DOCTYPE html>
<html lang="en">
<head><title>Participants | eLMS</title></head>
<body id="page-user-index">
{{if .Title}}<div id="page-header"><h1 class="h2">{{.Title}}</h1></div>{{end}}
<table id="participants" class="generaltable">
	<tbody>
	{{range .Links}}<tr>
		<th class="cell c1"><a href="{{.Href}}" class="d-inline-block aabtn">{{.Name}}</a></th>
		{{if $.Duplicate}}<td class="cell c2"><a href="{{.Href}}" class="d-inline-block aabtn"><span class="userinitials">U</span></a></td>{{end}}
	</tr>
	{{end}}</tbody>
</table>
</body>
</html>`))

var profilePage = template.Must(template.New("profile").Parse(`<!DOCTYPE html>
<html lang="en">
<head><title>{{.Name}}: Public profile | eLMS</title></head>
<body id="page-user-view">
<div class="card card-body card-profile">
	<h3>{{.Name}}</h3>
</div>
<section class="node_category card">
	<ul>
		<li class="contentnode"><dl><dt>Country</dt><dd>Bangladesh</dd></dl></li>
		{{if .Email}}<li class="contentnode"><dl><dt>Email address</dt><dd><a href="mailto:{{.Email}}">{{.Email}}</a></dd></dl></li>{{end}}
	</ul>
</section>
</body>
</html>`))
