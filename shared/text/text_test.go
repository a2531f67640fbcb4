package text

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tp := New()

	t.Run("strips disallowed tags", func(t *testing.T) {
		in := "<script>alert(1)</script><p>hi <b>there</b></p><iframe src=x></iframe>"
		assert.Equal(t, "<p>hi <b>there</b></p>", tp.Sanitize(in))
	})

	t.Run("keeps plain text", func(t *testing.T) {
		assert.Equal(t, "just words", tp.Sanitize("just words"))
	})

	t.Run("drops javascript links", func(t *testing.T) {
		out := tp.Sanitize(`<a href="javascript:alert(1)">x</a>`)
		assert.NotContains(t, out, "javascript")
	})
}

func TestFormat(t *testing.T) {
	tp := New()

	t.Run("recognises bare links", func(t *testing.T) {
		out := tp.Format("see https://goteo.org today")
		assert.Contains(t, out, `href="https://goteo.org"`)
		assert.Contains(t, out, ">https://goteo.org</a>")
	})

	t.Run("newlines become breaks", func(t *testing.T) {
		out := tp.Format("first line\nsecond line")
		assert.Contains(t, out, "first line<br")
		assert.Contains(t, out, "second line")
	})

	t.Run("allowed inline html survives", func(t *testing.T) {
		out := tp.Format("hello <b>world</b>")
		assert.Contains(t, out, "<b>world</b>")
	})

	t.Run("script never survives", func(t *testing.T) {
		out := tp.Format("hello <script>alert(1)</script>")
		assert.NotContains(t, out, "script")
	})

	t.Run("blank", func(t *testing.T) {
		assert.Equal(t, "", tp.Format("  \n "))
	})
}

func TestTimeAgo(t *testing.T) {
	assert.Equal(t, "", TimeAgo(time.Time{}))
	assert.Equal(t, "3 hours ago", TimeAgo(time.Now().Add(-3*time.Hour)))
}

func TestNormalizeLang(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"fr", "fr"},
		{"fr-FR", "fr"},
		{"pt_BR", "pt"},
		{"EN", "en"},
		{"", "es"},
		{"not a locale!", "es"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeLang(tt.in, "es"), tt.in)
	}
}
