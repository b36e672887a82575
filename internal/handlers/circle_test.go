package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jayeworks/circledesk/internal/models"
	"github.com/jayeworks/circledesk/internal/services/circle"
	"gorm.io/gorm"
)

func setupCircleRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)

	h := NewCircleHandler(db)

	r := gin.New()
	r.POST("/api/circle/messages/:id/replies", h.AddReply)
	return r, db
}

func seedThread(t *testing.T, db *gorm.DB, messageID, threadID string) {
	t.Helper()
	svc := circle.NewService(db)
	raw := json.RawMessage(`{"message_id":"` + messageID + `","chat_thread_id":"` + threadID + `","body":"thread root","sender":"Ann"}`)
	msg, err := circle.Normalize(raw)
	if err != nil {
		t.Fatal(err)
	}
	record, err := circle.ToRecord(msg, raw)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpsertMessage(record); err != nil {
		t.Fatal(err)
	}
}

func postReply(r *gin.Engine, threadID, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", "/api/circle/messages/"+threadID+"/replies", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAddReplyEndpoint(t *testing.T) {
	r, db := setupCircleRouter(t)
	seedThread(t, db, "msg_r1", "thread_r1")

	reply := `{"message_id":"msg_r1_a","sender":"Bob","body":"same here","created_at":"2025-06-03T10:00:00Z"}`

	w := postReply(r, "thread_r1", reply)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	// Redelivery of the same reply is acknowledged but not appended again.
	w = postReply(r, "thread_r1", reply)
	if w.Code != http.StatusOK {
		t.Fatalf("redelivery status = %d, body = %s", w.Code, w.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	var result struct {
		Added bool `json:"added"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatal(err)
	}
	if result.Added {
		t.Error("duplicate reply should report added=false")
	}

	var msg models.CircleMessage
	if err := db.First(&msg, "message_id = ?", "msg_r1").Error; err != nil {
		t.Fatal(err)
	}
	if msg.RepliesCount != 1 {
		t.Errorf("replies_count = %d, expected 1", msg.RepliesCount)
	}
	if !msg.HasReplies {
		t.Error("has_replies should be set")
	}
}

func TestAddReplyEndpointByMessageID(t *testing.T) {
	r, db := setupCircleRouter(t)
	seedThread(t, db, "msg_r2", "thread_r2")

	w := postReply(r, "msg_r2", `{"sender":"Cara","body":"reply via root id","created_at":"2025-06-03T11:00:00Z"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestAddReplyEndpointUnknownThread(t *testing.T) {
	r, _ := setupCircleRouter(t)

	w := postReply(r, "thread_missing", `{"sender":"Dan","body":"lost"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, expected 404", w.Code)
	}
}

func TestAddReplyEndpointBadPayload(t *testing.T) {
	r, db := setupCircleRouter(t)
	seedThread(t, db, "msg_r3", "thread_r3")

	w := postReply(r, "thread_r3", `{"body":`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed reply status = %d, expected 400", w.Code)
	}

	w = postReply(r, "thread_r3", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty reply status = %d, expected 400", w.Code)
	}
}
