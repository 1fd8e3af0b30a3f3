package authware

import (
	"html"
	"strings"
)

type loginPageData struct {
	AppName   string
	Action    string
	ReturnURL string
}

// renderLoginPage fills the embedded sign-in page. It exists so the
// package works without a view engine; host apps with templates will
// usually mount their own page and keep the POST endpoint.
func renderLoginPage(data loginPageData) string {
	if data.AppName == "" {
		data.AppName = "Auth"
	}
	if data.Action == "" {
		data.Action = "/auth/login"
	}

	r := strings.NewReplacer(
		"{{app_name}}", html.EscapeString(data.AppName),
		"{{action}}", html.EscapeString(data.Action),
		"{{return_url}}", html.EscapeString(data.ReturnURL),
	)

	return r.Replace(loginPageHTML)
}

const loginPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{app_name}} | Sign in</title>
  <style>
    body {
      margin: 0;
      font-family: -apple-system, "Segoe UI", Roboto, sans-serif;
      background: #f4f5f7;
      display: flex;
      align-items: center;
      justify-content: center;
      min-height: 100vh;
    }
    .card {
      background: #fff;
      border-radius: 8px;
      box-shadow: 0 2px 12px rgba(0, 0, 0, 0.08);
      padding: 2rem;
      width: 100%;
      max-width: 360px;
    }
    h1 {
      font-size: 1.25rem;
      margin: 0 0 1.5rem;
      text-align: center;
      color: #1f2933;
    }
    label {
      display: block;
      font-size: 0.85rem;
      color: #3e4c59;
      margin-bottom: 0.25rem;
    }
    input {
      width: 100%;
      box-sizing: border-box;
      padding: 0.6rem 0.75rem;
      margin-bottom: 1rem;
      border: 1px solid #cbd2d9;
      border-radius: 4px;
      font-size: 0.95rem;
    }
    button {
      width: 100%;
      padding: 0.65rem;
      border: 0;
      border-radius: 4px;
      background: #2563eb;
      color: #fff;
      font-size: 1rem;
      cursor: pointer;
    }
    button:hover {
      background: #1d4ed8;
    }
    .hint {
      margin-top: 1rem;
      font-size: 0.8rem;
      text-align: center;
      color: #7b8794;
    }
  </style>
</head>
<body>
  <div class="card">
    <h1>Sign in to {{app_name}}</h1>
    <form method="POST" action="{{action}}">
      <label for="email">Email</label>
      <input id="email" name="email" type="email" autocomplete="email" required>
      <label for="password">Password</label>
      <input id="password" name="password" type="password" autocomplete="current-password" required>
      <input type="hidden" name="returnUrl" value="{{return_url}}">
      <button type="submit">Sign in</button>
    </form>
    <p class="hint">Forgot your password? Request a reset link from your administrator.</p>
  </div>
</body>
</html>
`
