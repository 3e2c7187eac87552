package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lysyi3m/paleo-digest/app/database"
)

// AdminLister is the part of the recipient registry the alerter needs.
type AdminLister interface {
	GetActiveAdmins(ctx context.Context) ([]database.Recipient, error)
}

// Alerter tells administrators about pipeline errors.
type Alerter struct {
	sender      Sender
	admins      AdminLister
	adminChatID string
}

func NewAlerter(sender Sender, admins AdminLister, adminChatID string) *Alerter {
	return &Alerter{sender: sender, admins: admins, adminChatID: adminChatID}
}

// Alert sends the error list to every active admin, or to the configured
// admin chat when there is none.
func (a *Alerter) Alert(ctx context.Context, errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	if a.sender == nil {
		return fmt.Errorf("no alert channel configured")
	}

	targets, err := a.targets(ctx)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("no alert recipients")
	}

	text := FormatAlert(errs)

	var sendErrs []error
	for _, to := range targets {
		if err := Deliver(ctx, a.sender, to, text); err != nil {
			sendErrs = append(sendErrs, err)
		}
	}
	return errors.Join(sendErrs...)
}

func (a *Alerter) targets(ctx context.Context) ([]string, error) {
	var targets []string
	if a.admins != nil {
		admins, err := a.admins.GetActiveAdmins(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list admins: %w", err)
		}
		for _, admin := range admins {
			targets = append(targets, admin.ExternalID)
		}
	}
	if len(targets) == 0 && a.adminChatID != "" {
		targets = append(targets, a.adminChatID)
	}
	return targets, nil
}

func FormatAlert(errs []string) string {
	var b strings.Builder
	b.WriteString("⚠️ Pipeline errors\n")
	for _, e := range errs {
		b.WriteString("\n• ")
		b.WriteString(e)
	}
	return b.String()
}
