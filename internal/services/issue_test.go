package services

import (
	"errors"
	"testing"

	"github.com/jayeworks/circledesk/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Issue{}, &models.IssueTag{}, &models.IssueStatusLog{},
		&models.Comment{}, &models.CircleMessage{}, &models.IssueImportLog{},
		&models.CircleSpace{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func createTestIssue(t *testing.T, svc *IssueService, title string) *models.Issue {
	t.Helper()
	issue, err := svc.Create(&CreateIssueRequest{
		Title:       title,
		Description: "test description",
		Segment:     "misc",
		SubmittedBy: "tester",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return issue
}

func TestCreateIssueValidation(t *testing.T) {
	svc := NewIssueService(setupTestDB(t))

	tests := []struct {
		name string
		req  CreateIssueRequest
	}{
		{"missing title", CreateIssueRequest{Description: "d", Segment: "misc", SubmittedBy: "t"}},
		{"missing description", CreateIssueRequest{Title: "t", Segment: "misc", SubmittedBy: "t"}},
		{"missing submitter", CreateIssueRequest{Title: "t", Description: "d", Segment: "misc"}},
		{"missing segment", CreateIssueRequest{Title: "t", Description: "d", SubmittedBy: "t"}},
		{"invalid segment", CreateIssueRequest{Title: "t", Description: "d", Segment: "nope", SubmittedBy: "t"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(&tt.req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestCreateIssueDefaults(t *testing.T) {
	svc := NewIssueService(setupTestDB(t))

	issue, err := svc.Create(&CreateIssueRequest{
		Title:       "First issue",
		Description: "something broke",
		Segment:     "code",
		SubmittedBy: "alice",
		Tags:        []string{"one", "two"},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if issue.ID == "" {
		t.Error("issue should get a generated id")
	}
	if issue.Status != models.StatusWaitingForHelp {
		t.Errorf("status = %q, expected waiting_for_help", issue.Status)
	}
	if issue.ResolvedBy != nil || issue.ResolvedAt != nil || issue.ArchivedAt != nil {
		t.Error("new issue should have no resolution fields")
	}
	if len(issue.Tags) != 2 || issue.Tags[0] != "one" {
		t.Errorf("tags = %v", issue.Tags)
	}
}

func TestUpdateStatusResolved(t *testing.T) {
	svc := NewIssueService(setupTestDB(t))
	issue := createTestIssue(t, svc, "resolve me")

	updated, err := svc.UpdateStatus(issue.ID, models.StatusResolved, "bob")
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	if updated.Status != models.StatusResolved {
		t.Errorf("status = %q", updated.Status)
	}
	if updated.ResolvedBy == nil || *updated.ResolvedBy != "bob" {
		t.Error("resolved_by not set to the acting profile")
	}
	if updated.ResolvedAt == nil {
		t.Error("resolved_at not set")
	}
	if updated.ArchivedAt != nil {
		t.Error("archived_at should stay unset on resolve")
	}
}

func TestUpdateStatusArchivedKeepsResolution(t *testing.T) {
	svc := NewIssueService(setupTestDB(t))
	issue := createTestIssue(t, svc, "archive me")

	if _, err := svc.UpdateStatus(issue.ID, models.StatusResolved, "bob"); err != nil {
		t.Fatal(err)
	}
	updated, err := svc.UpdateStatus(issue.ID, models.StatusArchived, "carol")
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	if updated.ArchivedAt == nil {
		t.Error("archived_at not set")
	}
	if updated.ResolvedBy == nil || *updated.ResolvedBy != "bob" {
		t.Error("archiving should not clear resolution fields")
	}
}

func TestUpdateStatusReopenClearsResolution(t *testing.T) {
	svc := NewIssueService(setupTestDB(t))
	issue := createTestIssue(t, svc, "reopen me")

	if _, err := svc.UpdateStatus(issue.ID, models.StatusResolved, "bob"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateStatus(issue.ID, models.StatusArchived, "bob"); err != nil {
		t.Fatal(err)
	}
	updated, err := svc.UpdateStatus(issue.ID, models.StatusInProgress, "dana")
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	if updated.ResolvedBy != nil || updated.ResolvedAt != nil || updated.ArchivedAt != nil {
		t.Errorf("reopening should clear lifecycle fields: %+v", updated)
	}
}

func TestUpdateStatusAnyTransitionAllowed(t *testing.T) {
	svc := NewIssueService(setupTestDB(t))
	issue := createTestIssue(t, svc, "bounce me")

	// Every ordering is legal, including repeating the current status.
	sequence := []models.IssueStatus{
		models.StatusArchived,
		models.StatusWaitingForHelp,
		models.StatusBlocked,
		models.StatusBlocked,
		models.StatusResolved,
	}
	for _, status := range sequence {
		if _, err := svc.UpdateStatus(issue.ID, status, "tester"); err != nil {
			t.Fatalf("transition to %s failed: %v", status, err)
		}
	}

	logs, err := svc.StatusLogs(issue.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != len(sequence) {
		t.Fatalf("expected %d log rows, got %d", len(sequence), len(logs))
	}
	// Repeated status still logs a row with old == new.
	if logs[3].OldStatus != models.StatusBlocked || logs[3].NewStatus != models.StatusBlocked {
		t.Errorf("repeat transition log = %+v", logs[3])
	}
}

func TestUpdateStatusUnknownIssue(t *testing.T) {
	svc := NewIssueService(setupTestDB(t))
	_, err := svc.UpdateStatus("no-such-id", models.StatusResolved, "tester")
	if !IsNotFound(err) {
		t.Errorf("expected record-not-found, got %v", err)
	}
}

func TestUpdateIssueFields(t *testing.T) {
	svc := NewIssueService(setupTestDB(t))
	issue := createTestIssue(t, svc, "old title")

	newTitle := "new title"
	updated, err := svc.Update(issue.ID, &UpdateIssueRequest{Title: &newTitle}, "tester")
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Title != "new title" {
		t.Errorf("title = %q", updated.Title)
	}
	if updated.Description != "test description" {
		t.Error("description should be untouched")
	}

	empty := "  "
	if _, err := svc.Update(issue.ID, &UpdateIssueRequest{Title: &empty}, "tester"); err == nil {
		t.Error("blank title should be rejected")
	}

	bad := "sideways"
	if _, err := svc.Update(issue.ID, &UpdateIssueRequest{Status: &bad}, "tester"); err == nil {
		t.Error("unknown status should be rejected")
	}
}

func TestUpdateIssueStatusViaFieldUpdateLogs(t *testing.T) {
	svc := NewIssueService(setupTestDB(t))
	issue := createTestIssue(t, svc, "status via update")

	status := string(models.StatusResolved)
	updated, err := svc.Update(issue.ID, &UpdateIssueRequest{Status: &status}, "erin")
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.ResolvedBy == nil || *updated.ResolvedBy != "erin" {
		t.Error("status edit through Update should run lifecycle bookkeeping")
	}

	logs, err := svc.StatusLogs(issue.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || logs[0].ChangedBy != "erin" {
		t.Errorf("logs = %+v", logs)
	}
}

func TestSetReadyForDelivery(t *testing.T) {
	svc := NewIssueService(setupTestDB(t))
	issue := createTestIssue(t, svc, "ship me")

	updated, err := svc.SetReadyForDelivery(issue.ID, true)
	if err != nil {
		t.Fatalf("SetReadyForDelivery failed: %v", err)
	}
	if !updated.ReadyForDelivery {
		t.Error("ready flag not set")
	}

	if _, err := svc.SetReadyForDelivery("missing", true); !IsNotFound(err) {
		t.Errorf("expected record-not-found, got %v", err)
	}
}

func TestListIssuesFilters(t *testing.T) {
	db := setupTestDB(t)
	svc := NewIssueService(db)

	createTestIssue(t, svc, "visible")
	resolved := createTestIssue(t, svc, "done")
	if _, err := svc.UpdateStatus(resolved.ID, models.StatusResolved, "t"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(&CreateIssueRequest{
		Title: "fixture", Description: "d", Segment: "misc", SubmittedBy: "t", IsTest: true,
	}); err != nil {
		t.Fatal(err)
	}

	all, err := svc.List(&IssueListRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if all.Total != 2 {
		t.Errorf("test rows should be hidden by default, total = %d", all.Total)
	}

	withTest, err := svc.List(&IssueListRequest{IncludeTest: true})
	if err != nil {
		t.Fatal(err)
	}
	if withTest.Total != 3 {
		t.Errorf("include_test total = %d, expected 3", withTest.Total)
	}

	byStatus, err := svc.List(&IssueListRequest{Status: "resolved"})
	if err != nil {
		t.Fatal(err)
	}
	if byStatus.Total != 1 || byStatus.Items[0].ID != resolved.ID {
		t.Errorf("status filter: %+v", byStatus)
	}
}

func TestPurgeTestData(t *testing.T) {
	db := setupTestDB(t)
	svc := NewIssueService(db)
	commentSvc := NewCommentService(db)

	keep := createTestIssue(t, svc, "keep me")
	fixture, err := svc.Create(&CreateIssueRequest{
		Title: "fixture", Description: "d", Segment: "misc", SubmittedBy: "t", IsTest: true,
		Tags: []string{"x"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := commentSvc.Add(fixture.ID, &CreateCommentRequest{Body: "on fixture"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateStatus(fixture.ID, models.StatusBlocked, "t"); err != nil {
		t.Fatal(err)
	}

	result, err := svc.PurgeTestData()
	if err != nil {
		t.Fatalf("PurgeTestData failed: %v", err)
	}
	if result.IssuesDeleted != 1 {
		t.Errorf("issues_deleted = %d, expected 1", result.IssuesDeleted)
	}
	if len(result.Errors) != 0 {
		t.Errorf("errors = %v", result.Errors)
	}

	if _, err := svc.GetByID(fixture.ID); !IsNotFound(err) {
		t.Error("fixture issue should be gone")
	}
	if _, err := svc.GetByID(keep.ID); err != nil {
		t.Errorf("real issue should survive: %v", err)
	}

	var orphans int64
	db.Model(&models.Comment{}).Where("issue_id = ?", fixture.ID).Count(&orphans)
	if orphans != 0 {
		t.Error("fixture comments should be deleted")
	}
	db.Model(&models.IssueStatusLog{}).Where("issue_id = ?", fixture.ID).Count(&orphans)
	if orphans != 0 {
		t.Error("fixture status logs should be deleted")
	}
}

func TestPurgeTestDataEmpty(t *testing.T) {
	svc := NewIssueService(setupTestDB(t))

	result, err := svc.PurgeTestData()
	if err != nil {
		t.Fatalf("PurgeTestData failed: %v", err)
	}
	if result.IssuesDeleted != 0 || len(result.Errors) != 0 {
		t.Errorf("result = %+v", result)
	}
}
