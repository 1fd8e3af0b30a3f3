package mail

import (
	"html"
	"strings"
)

type mailData struct {
	AppName      string
	Title        string
	Greeting     string
	Intro        string
	ActionLabel  string
	ActionURL    string
	Outro        string
	SupportEmail string
}

func renderMail(data mailData) string {
	action := ""
	if data.ActionURL != "" {
		action = strings.NewReplacer(
			"{{action_url}}", html.EscapeString(data.ActionURL),
			"{{action_label}}", html.EscapeString(data.ActionLabel),
		).Replace(actionHTML)
	}

	footer := ""
	if data.SupportEmail != "" {
		footer = strings.NewReplacer(
			"{{support_email}}", html.EscapeString(data.SupportEmail),
		).Replace(footerHTML)
	}

	return strings.NewReplacer(
		"{{app_name}}", html.EscapeString(data.AppName),
		"{{title}}", html.EscapeString(data.Title),
		"{{greeting}}", html.EscapeString(data.Greeting),
		"{{intro}}", html.EscapeString(data.Intro),
		"{{action}}", action,
		"{{outro}}", html.EscapeString(data.Outro),
		"{{footer}}", footer,
	).Replace(layoutHTML)
}

const actionHTML = `<p style="text-align:center;margin:28px 0;">
  <a href="{{action_url}}" style="background:#2563eb;color:#ffffff;text-decoration:none;padding:12px 28px;border-radius:4px;display:inline-block;font-weight:600;">{{action_label}}</a>
</p>
<p style="font-size:13px;color:#7b8794;">If the button does not work, copy this link into your browser:<br>{{action_url}}</p>`

const footerHTML = `<p style="font-size:12px;color:#9aa5b1;">Need help? Contact us at {{support_email}}.</p>`

const layoutHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{title}}</title>
</head>
<body style="margin:0;background:#f4f5f7;font-family:-apple-system,'Segoe UI',Roboto,sans-serif;">
  <table role="presentation" width="100%" cellpadding="0" cellspacing="0">
    <tr>
      <td align="center" style="padding:32px 16px;">
        <table role="presentation" width="100%" cellpadding="0" cellspacing="0" style="max-width:520px;background:#ffffff;border-radius:8px;padding:32px;">
          <tr>
            <td>
              <h2 style="margin:0 0 8px;color:#1f2933;font-size:18px;">{{app_name}}</h2>
              <h1 style="margin:0 0 24px;color:#1f2933;font-size:22px;">{{title}}</h1>
              <p style="color:#3e4c59;font-size:15px;">{{greeting}}</p>
              <p style="color:#3e4c59;font-size:15px;line-height:1.5;">{{intro}}</p>
              {{action}}
              <p style="color:#3e4c59;font-size:15px;line-height:1.5;">{{outro}}</p>
              {{footer}}
            </td>
          </tr>
        </table>
        <p style="font-size:12px;color:#9aa5b1;margin-top:16px;">This message was sent by {{app_name}}.</p>
      </td>
    </tr>
  </table>
</body>
</html>
`
