package services

import (
	"testing"

	"github.com/jayeworks/circledesk/internal/models"
)

func TestClassifySegment(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		body     string
		expected models.Segment
	}{
		{"auth keyword in title", "Cannot sign in with Gmail", "It just spins forever", models.SegmentAuth},
		{"auth keyword in body", "Help needed", "My password reset never arrives", models.SegmentAuth},
		{"code keyword in title", "Crash in PaymentForm component", "Happens on submit", models.SegmentCode},
		{"code keyword in body", "Something broke", "Stack trace shows a null pointer exception", models.SegmentCode},
		{"tool keyword in title", "CLI script hangs", "Stuck at 50%", models.SegmentTool},
		{"tool keyword in body", "Question", "The automation workflow stopped running", models.SegmentTool},
		{"no keywords", "General question", "How do I change my display name color", models.SegmentMisc},
		{"empty input", "", "", models.SegmentMisc},
		{"case insensitive", "LOGIN BROKEN", "", models.SegmentAuth},
		{"keyword inside word", "My accounting report", "", models.SegmentAuth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifySegment(tt.title, tt.body)
			if got != tt.expected {
				t.Errorf("ClassifySegment(%q, %q) = %q, expected %q", tt.title, tt.body, got, tt.expected)
			}
		})
	}
}

func TestClassifySegment_PriorityOrder(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		body     string
		expected models.Segment
	}{
		{"auth beats code", "Bug report", "I found a bug in the login page", models.SegmentAuth},
		{"auth beats tool", "CLI auth", "The cli rejects my account token", models.SegmentAuth},
		{"code beats tool", "Script error", "The script throws an error on start", models.SegmentCode},
		{"all three present", "Crash", "cli crash after login", models.SegmentAuth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifySegment(tt.title, tt.body)
			if got != tt.expected {
				t.Errorf("ClassifySegment(%q, %q) = %q, expected %q", tt.title, tt.body, got, tt.expected)
			}
		})
	}
}

func TestClassifySegment_Deterministic(t *testing.T) {
	title, body := "Crash in PaymentForm component", "see above"
	first := ClassifySegment(title, body)
	for i := 0; i < 10; i++ {
		if got := ClassifySegment(title, body); got != first {
			t.Fatalf("run %d: ClassifySegment = %q, expected %q", i, got, first)
		}
	}
}
