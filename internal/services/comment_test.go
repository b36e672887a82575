package services

import (
	"errors"
	"testing"
)

func TestAddComment(t *testing.T) {
	db := setupTestDB(t)
	issueSvc := NewIssueService(db)
	svc := NewCommentService(db)

	issue := createTestIssue(t, issueSvc, "commented")

	comment, err := svc.Add(issue.ID, &CreateCommentRequest{AuthorName: "Ann", Body: "looks broken"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if comment.AuthorName != "Ann" || comment.Body != "looks broken" {
		t.Errorf("comment = %+v", comment)
	}

	anon, err := svc.Add(issue.ID, &CreateCommentRequest{Body: "me too"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if anon.AuthorName != "Anonymous" {
		t.Errorf("blank author = %q, expected Anonymous", anon.AuthorName)
	}

	comments, err := svc.ListByIssue(issue.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(comments) != 2 || comments[0].Body != "looks broken" {
		t.Errorf("comments out of order: %+v", comments)
	}
}

func TestAddCommentValidation(t *testing.T) {
	db := setupTestDB(t)
	issueSvc := NewIssueService(db)
	svc := NewCommentService(db)

	issue := createTestIssue(t, issueSvc, "strict")

	_, err := svc.Add(issue.ID, &CreateCommentRequest{Body: "   "})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("blank body should fail validation, got %v", err)
	}

	if _, err := svc.Add("no-such-issue", &CreateCommentRequest{Body: "hello"}); !IsNotFound(err) {
		t.Errorf("expected record-not-found, got %v", err)
	}
}
