package microblog

import "html/template"

// The views stay inline in the binary. Every page defines a "content" block
// rendered inside the shared layout.

const layoutTmpl = `<!doctype html>
<html>
<head>
	<title>{{if .Title}}{{.Title}} - {{end}}Microblog</title>
</head>
<body>
	<div>
		Microblog:
		<a href="/">Home</a>
		{{if .CurrentUsername}}
			<a href="/@{{.CurrentUsername}}">Profile</a>
			<form method="post" action="/logout" style="display:inline">
				<button type="submit">Logout</button>
			</form>
		{{else}}
			<a href="/login">Login</a>
			<a href="/signup">Register</a>
		{{end}}
	</div>
	<hr>
	{{if .Flash}}<p><em>{{.Flash}}</em></p>{{end}}
	{{template "content" .}}
</body>
</html>`

const postListTmpl = `{{define "posts"}}
	{{range .Timeline.Posts}}
	<p>
		<a href="/@{{.Author.Username}}">{{.Author.Username}}</a> said at {{.CreatedAt.Format "2006-01-02 15:04"}}:<br>
		{{.Body}}
	</p>
	{{else}}
	<p>No posts yet.</p>
	{{end}}
	{{if .Timeline.HasPrev}}<a href="?page={{dec .Timeline.Page}}">Newer posts</a>{{end}}
	{{if .Timeline.HasNext}}<a href="?page={{inc .Timeline.Page}}">Older posts</a>{{end}}
{{end}}`

const indexTmpl = `{{define "content"}}
	<h1>Hi, {{.CurrentUsername}}!</h1>
	<form method="post" action="/">
		<textarea name="post" maxlength="140" placeholder="Say something"></textarea>
		<input type="submit" value="Submit">
	</form>
	{{template "posts" .}}
{{end}}`

const loginTmpl = `{{define "content"}}
	<h1>Sign In</h1>
	<form method="post">
		<p><input type="text" name="username" placeholder="Username" value="{{.Username}}"></p>
		<p><input type="password" name="password" placeholder="Password"></p>
		<p><input type="submit" value="Sign In"></p>
	</form>
	<p>New user? <a href="/signup">Click to register!</a></p>
{{end}}`

const signupTmpl = `{{define "content"}}
	<h1>Register</h1>
	<form method="post">
		<p>
			<input type="text" name="username" placeholder="Username" value="{{.Username}}">
			{{with .Errors.username}}<span>{{.}}</span>{{end}}
		</p>
		<p>
			<input type="text" name="email" placeholder="Email" value="{{.Email}}">
			{{with .Errors.email}}<span>{{.}}</span>{{end}}
		</p>
		<p>
			<input type="password" name="password" placeholder="Password">
			{{with .Errors.password}}<span>{{.}}</span>{{end}}
		</p>
		<p>
			<input type="password" name="password2" placeholder="Repeat Password">
			{{with .Errors.password2}}<span>{{.}}</span>{{end}}
		</p>
		<p><input type="submit" value="Register"></p>
	</form>
{{end}}`

const profileTmpl = `{{define "content"}}
	<h1>{{.Profile.Account.Username}}</h1>
	{{with .Profile.Account.Bio}}<p>{{.}}</p>{{end}}
	{{with .Profile.Account.LastSeen}}<p>Last seen: {{.Format "2006-01-02 15:04"}}</p>{{end}}
	<p>{{.Profile.Followers}} followers, {{.Profile.Following}} following.</p>
	{{if .Profile.IsSelf}}
		<p><a href="/profile/edit">Edit your profile</a></p>
	{{else if .CurrentUsername}}
		{{if .Profile.IsFollowing}}
		<form method="post" action="/@{{.Profile.Account.Username}}/unfollow">
			<button type="submit">Unfollow</button>
		</form>
		{{else}}
		<form method="post" action="/@{{.Profile.Account.Username}}/follow">
			<button type="submit">Follow</button>
		</form>
		{{end}}
	{{end}}
	{{template "posts" .}}
{{end}}`

const editProfileTmpl = `{{define "content"}}
	<h1>Edit Profile</h1>
	<form method="post">
		<p><textarea name="bio" maxlength="140" placeholder="About me">{{.Bio}}</textarea></p>
		<p><input type="submit" value="Save"></p>
	</form>
{{end}}`

const notFoundTmpl = `{{define "content"}}
	<h1>Not Found</h1>
	<p><a href="/">Back</a></p>
{{end}}`

const serverErrorTmpl = `{{define "content"}}
	<h1>An unexpected error has occurred</h1>
	<p>The administrator has been notified. Sorry for the inconvenience!</p>
	<p><a href="/">Back</a></p>
{{end}}`

var templateFuncs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	"dec": func(i int) int { return i - 1 },
}

var pageTemplates = map[string]*template.Template{
	"index":   parsePage(indexTmpl),
	"login":   parsePage(loginTmpl),
	"signup":  parsePage(signupTmpl),
	"profile": parsePage(profileTmpl),
	"edit":    parsePage(editProfileTmpl),
	"404":     parsePage(notFoundTmpl),
	"500":     parsePage(serverErrorTmpl),
}

func parsePage(content string) *template.Template {
	t := template.New("layout").Funcs(templateFuncs)
	t = template.Must(t.Parse(layoutTmpl))
	t = template.Must(t.Parse(postListTmpl))
	return template.Must(t.Parse(content))
}
