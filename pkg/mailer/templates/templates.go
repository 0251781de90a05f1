// Package templates renders the notification emails sent by the notify
// worker. Templates are compiled once at init.
package templates

import (
	"bytes"
	"fmt"
	htmltpl "html/template"
	texttpl "text/template"
)

const newFollowerText = `Hi {{.FolloweeName}},

{{.FollowerName}} (@{{.FollowerUsername}}) just started following you on Buddy-Bloom.

Open the app to see their profile and follow back.
`

const newFollowerHTML = `<!doctype html>
<html>
  <body style="font-family: Helvetica, Arial, sans-serif; color: #222;">
    <h2>You have a new follower</h2>
    <p>Hi {{.FolloweeName}},</p>
    <p><strong>{{.FollowerName}}</strong> (@{{.FollowerUsername}}) just started following you on Buddy-Bloom.</p>
    <p>Open the app to see their profile and follow back.</p>
  </body>
</html>
`

var (
	newFollowerTextTpl = texttpl.Must(texttpl.New("new_follower_text").Parse(newFollowerText))
	newFollowerHTMLTpl = htmltpl.Must(htmltpl.New("new_follower_html").Parse(newFollowerHTML))
)

// NewFollowerData feeds the new-follower templates.
type NewFollowerData struct {
	FolloweeName     string
	FollowerUsername string
	FollowerName     string
}

// RenderNewFollower returns subject, text and HTML bodies for the job.
func RenderNewFollower(data NewFollowerData) (subject, text, html string, err error) {
	var tb, hb bytes.Buffer
	if err = newFollowerTextTpl.Execute(&tb, data); err != nil {
		return "", "", "", fmt.Errorf("render text: %w", err)
	}
	if err = newFollowerHTMLTpl.Execute(&hb, data); err != nil {
		return "", "", "", fmt.Errorf("render html: %w", err)
	}
	subject = fmt.Sprintf("@%s is now following you", data.FollowerUsername)
	return subject, tb.String(), hb.String(), nil
}
