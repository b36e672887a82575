// Mock webhook server that plays the role of the upstream n8n workflow.
// Serves canned community messages for local development; pair it with
// webhook.url pointing at this server and POST /api/sync on the backend.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jayeworks/circledesk/pkg/logger"
)

var (
	addr     = flag.String("addr", ":8082", "listen address")
	dataFile = flag.String("file", "", "optional JSON file served instead of the built-in payloads")
)

// mockMessages mirrors the flat shape the older workflow revisions send,
// including the nested message.content triage block.
func mockMessages() []map[string]interface{} {
	id1 := freshID()
	id2 := freshID()
	return []map[string]interface{}{
		{
			"id": id1,
			"message": map[string]interface{}{
				"content": map[string]interface{}{
					"message_id":  id1,
					"issue_title": "Login process fails when email contains special characters",
					"is_issue":    true,
				},
			},
			"body":           "I'm consistently having trouble logging in when I use my work email that contains a plus sign (john+work@example.com). The system seems to reject it or lose the part after the plus. This happens on both mobile and desktop browsers.",
			"parent_body":    nil,
			"sender":         map[string]interface{}{"name": "John Developer", "email": "john@example.com"},
			"parent_sender":  nil,
			"chat_thread_id": nil,
			"space_id":       "space_12345",
			"space_name":     "Technical Support",
			"link":           "https://circle.so/c/technical-support/thread-12345",
			"created_at":     time.Now().UTC().Format(time.RFC3339),
		},
		{
			"id": id2,
			"message": map[string]interface{}{
				"content": map[string]interface{}{
					"message_id":  id2,
					"issue_title": "Thread discussion about component rendering issue",
					"is_issue":    true,
				},
			},
			"body":           "Has anyone else noticed the React components rendering twice in development mode?",
			"parent_body":    "We're seeing some strange behavior with our React components rendering twice in development mode. This seems to be causing performance issues and some weird state management bugs.",
			"sender":         map[string]interface{}{"name": "React Developer", "email": "dev@example.com"},
			"parent_sender":  "Sarah Tech Lead",
			"chat_thread_id": "thread_98765",
			"space_id":       "space_67890",
			"space_name":     "Frontend Discussions",
			"link":           "https://circle.so/c/frontend-discussions/thread-98765",
			"created_at":     time.Now().UTC().Format(time.RFC3339),
		},
	}
}

func freshID() string {
	return fmt.Sprintf("msg_%d%03d", time.Now().UnixMilli(), rand.Intn(1000))
}

func main() {
	flag.Parse()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(logger.GinLogger(), logger.GinRecovery())

	serve := func(c *gin.Context) {
		if *dataFile != "" {
			data, err := os.ReadFile(*dataFile)
			if err != nil {
				c.JSON(500, gin.H{"error": err.Error()})
				return
			}
			var payload interface{}
			if err := json.Unmarshal(data, &payload); err != nil {
				c.JSON(500, gin.H{"error": "data file is not valid JSON: " + err.Error()})
				return
			}
			c.JSON(200, payload)
			return
		}
		// Fresh ids per request so repeated syncs exercise the upsert path
		// with new rows rather than redeliveries.
		c.JSON(200, mockMessages())
	}

	r.GET("/webhook-test/issue-update", serve)
	r.POST("/webhook-test/issue-update", serve)

	r.OPTIONS("/webhook-test/issue-update", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(204)
	})

	r.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"error": "Not found"})
	})

	logger.Info().Str("addr", *addr).Msg("Mock webhook server starting")
	if err := r.Run(*addr); err != nil {
		logger.Fatalf("Failed to start mock webhook server: %v", err)
	}
}
