package notification

import (
	"context"
	"log"

	"github.com/dimas1q/quick-estimate/internal/audit"
	"github.com/dimas1q/quick-estimate/internal/domain/estimate"
	"github.com/dimas1q/quick-estimate/internal/domain/user"
	"github.com/dimas1q/quick-estimate/internal/email"
)

// Handler watches the audit feed and emails estimate owners when an
// estimate moves to a new status. All other entries are ignored.
type Handler struct {
	emailService *email.Service
	estimates    estimate.Store
	users        user.Store
}

// NewHandler creates a new notification handler
func NewHandler(emailSvc *email.Service, estimates estimate.Store, users user.Store) *Handler {
	return &Handler{
		emailService: emailSvc,
		estimates:    estimates,
		users:        users,
	}
}

// HandleEntry processes one audit entry from the feed.
func (h *Handler) HandleEntry(ctx context.Context, entry audit.Entry) error {
	if entry.EstimateID == "" {
		return nil
	}
	if entry.Action != audit.ActionUpdate && entry.Action != audit.ActionRestore {
		return nil
	}

	newStatus := ""
	for _, d := range entry.Details {
		if d.Label == "Status changed" {
			newStatus = d.New
			break
		}
	}
	if newStatus == "" {
		return nil
	}

	log.Printf("[Notifier] Processing status change for estimate %s (actor %s)", entry.EstimateID, entry.ActorID)

	est, err := h.estimates.Get(ctx, entry.EstimateID)
	if err != nil {
		// The estimate may have been deleted since the entry was published.
		log.Printf("[Notifier] Error getting estimate %s: %v", entry.EstimateID, err)
		return nil
	}

	owner, err := h.users.GetByID(ctx, est.UserID)
	if err != nil {
		log.Printf("[Notifier] Error getting user %s: %v", est.UserID, err)
		return nil
	}

	if err := h.emailService.SendStatusNotification(owner.Email, est.Name, newStatus, entry); err != nil {
		log.Printf("[Notifier] Failed to send email to %s: %v", owner.Email, err)
		return err
	}

	log.Printf("[Notifier] Status notification sent to %s for estimate %s", owner.Email, entry.EstimateID)
	return nil
}
