package services

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateAttachment(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		size        int64
		expectExt   string
		expectErr   bool
	}{
		{"png", "image/png", 1024, "png", false},
		{"jpeg", "image/jpeg", 1024, "jpg", false},
		{"gif", "image/gif", 1024, "gif", false},
		{"pdf", "application/pdf", 1024, "pdf", false},
		{"case insensitive", "IMAGE/PNG", 1024, "png", false},
		{"at the limit", "image/png", MaxAttachmentSize, "png", false},
		{"over the limit", "image/png", MaxAttachmentSize + 1, "", true},
		{"executable", "application/x-msdownload", 1024, "", true},
		{"svg not allowed", "image/svg+xml", 1024, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, err := ValidateAttachment(tt.contentType, tt.size)
			if tt.expectErr {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("expected ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ext != tt.expectExt {
				t.Errorf("ext = %q, expected %q", ext, tt.expectExt)
			}
		})
	}
}

func TestAttachmentKey(t *testing.T) {
	key := AttachmentKey("issue-42", "png")

	if !strings.HasPrefix(key, "issue_issue-42/") {
		t.Errorf("key %q should be prefixed by the issue directory", key)
	}
	if !strings.HasSuffix(key, ".png") {
		t.Errorf("key %q should carry the extension", key)
	}
	if key == AttachmentKey("issue-42", "png") {
		t.Error("consecutive keys for the same issue should differ")
	}
}

func TestObjectKeyFromPath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"bare key", "issue_1/123_abc.png", "issue_1/123_abc.png"},
		{"full url", "https://cdn.example.com/issue-attachments/issue_1/123_abc.png", "issue_1/123_abc.png"},
		{"leading slash", "/issue_1/123_abc.png", "issue_1/123_abc.png"},
		{"escaping path rejected", "issue_1/../../etc/passwd", ""},
		{"empty", "", ""},
		{"whitespace", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ObjectKeyFromPath(tt.input, "issue-attachments"); got != tt.expected {
				t.Errorf("ObjectKeyFromPath(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}
