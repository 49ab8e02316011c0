package templates

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllTemplatesParse(t *testing.T) {
	assert.Equal(t, []string{
		"email_feedback.html",
		"email_password_changed.html",
		"email_password_reset.html",
		"email_verification.html",
	}, Names())
}

func TestMissingTemplate(t *testing.T) {
	_, err := GetTemplate("nope.html")
	assert.Error(t, err)
}

func TestRenderFeedback(t *testing.T) {
	tmpl, err := GetTemplate("email_feedback.html")
	require.NoError(t, err)

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, struct {
		From       string
		Location   string
		Content    string
		ReceivedAt time.Time
	}{
		From:       "Reader@Example.com",
		Location:   "Hanoi",
		Content:    "First <b>line</b>\nsecond line\n\nnew paragraph",
		ReceivedAt: time.Date(2024, 3, 1, 15, 4, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "New feedback from reader@example.com")
	assert.Contains(t, out, "<p>First &lt;b&gt;line&lt;/b&gt;<br>second line</p><p>new paragraph</p>")
	assert.Contains(t, out, "March 1, 2024, 3:04pm")
}

func TestRenderReset(t *testing.T) {
	tmpl, err := GetTemplate("email_password_reset.html")
	require.NoError(t, err)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, struct {
		Username string
		ResetUrl string
		Now      time.Time
		Expires  time.Time
	}{
		Username: "alice",
		ResetUrl: "http://localhost:3000/reset-password/abc?x=1&y=2",
		Now:      now,
		Expires:  now.Add(15 * time.Minute),
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Hi alice,")
	assert.Contains(t, out, `href="http://localhost:3000/reset-password/abc?x=1&amp;y=2"`)
	assert.Contains(t, out, "expires in 15 minutes")
}
