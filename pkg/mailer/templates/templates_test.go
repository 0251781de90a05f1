package templates_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buddybloom/buddybloom/pkg/mailer/templates"
)

func TestRenderNewFollower(t *testing.T) {
	subject, text, html, err := templates.RenderNewFollower(templates.NewFollowerData{
		FolloweeName:     "Alice",
		FollowerUsername: "bob",
		FollowerName:     "Bob B.",
	})
	require.NoError(t, err)
	assert.Equal(t, "@bob is now following you", subject)
	assert.Contains(t, text, "Hi Alice,")
	assert.Contains(t, text, "Bob B. (@bob)")
	assert.Contains(t, html, "<strong>Bob B.</strong>")
}

func TestRenderNewFollowerEscapesHTML(t *testing.T) {
	_, text, html, err := templates.RenderNewFollower(templates.NewFollowerData{
		FolloweeName:     "Alice",
		FollowerUsername: "eve",
		FollowerName:     "<script>alert(1)</script>",
	})
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, text, "<script>", "text body carries the raw name")
}
