package handler

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoryLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", defaultHistoryLimit},
		{"limit=25", 25},
		{"limit=0", defaultHistoryLimit},
		{"limit=-5", defaultHistoryLimit},
		{"limit=banana", defaultHistoryLimit},
		{"limit=100000", maxHistoryLimit},
	}

	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/api/groups/g1/messages?"+tt.query, nil)
		assert.Equal(t, tt.want, historyLimit(r), "query %q", tt.query)
	}
}

func TestAttachmentKeyNeverTrustsFileName(t *testing.T) {
	key := attachmentKey("user-1", "../../etc/passwd")
	assert.True(t, strings.HasPrefix(key, "attachments/user-1/"))
	assert.NotContains(t, key, "..")

	withExt := attachmentKey("user-1", "photo.JPG")
	assert.True(t, strings.HasSuffix(withExt, ".jpg"))

	// An absurd "extension" is dropped rather than propagated.
	weird := attachmentKey("user-1", "file."+strings.Repeat("x", 40))
	assert.True(t, strings.HasPrefix(weird, "attachments/user-1/"))
	assert.NotContains(t, weird, strings.Repeat("x", 40))

	// Two uploads of the same file never collide.
	assert.NotEqual(t, attachmentKey("user-1", "a.png"), attachmentKey("user-1", "a.png"))
}
