package handlers

import (
	"context"
	"log"

	"greendrake/realty/internal/tasks"
)

// notify schedules an email. Failures are logged and never reach the client.
func notify(ctx context.Context, client tasks.Enqueuer, queue, to, templateID string, data map[string]interface{}) {
	if to == "" {
		return
	}
	err := tasks.EnqueueEmail(ctx, client, queue, tasks.EmailTaskPayload{
		To:         to,
		TemplateID: templateID,
		Data:       data,
	})
	if err != nil {
		log.Printf("Failed to enqueue %s email for %s: %v", templateID, to, err)
	}
}
