package services

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/huangang/ideaforge/backend/pkg/logger"
)

// NotificationService turns notification tasks into emails.
type NotificationService struct {
	mailer  Mailer
	baseURL string
}

func NewNotificationService(mailer Mailer, baseURL string) *NotificationService {
	return &NotificationService{mailer: mailer, baseURL: strings.TrimRight(baseURL, "/")}
}

// Process delivers one task. It is the processor of both queue implementations.
func (s *NotificationService) Process(ctx context.Context, task *NotificationTask) error {
	if task.RecipientEmail == "" {
		notificationsSent.WithLabelValues(task.Type, "skipped").Inc()
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject, body := s.render(task)
	if err := s.mailer.Send([]string{task.RecipientEmail}, subject, body); err != nil {
		notificationsSent.WithLabelValues(task.Type, "failed").Inc()
		uid := task.RecipientID
		LogWarning("Collaboration", "Notify", fmt.Sprintf("failed to send %s notification", task.Type), &uid, "", "", map[string]interface{}{
			"project_id": task.ProjectID,
			"error":      err.Error(),
		})
		return err
	}

	notificationsSent.WithLabelValues(task.Type, "sent").Inc()
	logger.Module("notification").Info().
		Str("type", task.Type).
		Uint("project_id", task.ProjectID).
		Uint("recipient_id", task.RecipientID).
		Msg("notification delivered")
	return nil
}

func (s *NotificationService) render(task *NotificationTask) (string, string) {
	project := html.EscapeString(task.ProjectName)
	actor := html.EscapeString(task.ActorName)
	link := fmt.Sprintf("%s/projects/%d", s.baseURL, task.ProjectID)

	var subject, text string
	switch task.Type {
	case NotifyInvitation:
		subject = fmt.Sprintf("[IdeaForge] You were added to %s", task.ProjectName)
		text = fmt.Sprintf("%s added you to <b>%s</b> as <b>%s</b>.", actor, project, html.EscapeString(task.Role))
	case NotifyRoleChanged:
		subject = fmt.Sprintf("[IdeaForge] Your role on %s changed", task.ProjectName)
		text = fmt.Sprintf("%s changed your role on <b>%s</b> from %s to <b>%s</b>.",
			actor, project, html.EscapeString(task.PreviousRole), html.EscapeString(task.Role))
	case NotifyRemoved:
		subject = fmt.Sprintf("[IdeaForge] You were removed from %s", task.ProjectName)
		text = fmt.Sprintf("%s removed you from <b>%s</b>.", actor, project)
		link = ""
	default:
		subject = fmt.Sprintf("[IdeaForge] Update on %s", task.ProjectName)
		text = fmt.Sprintf("There is an update on <b>%s</b>.", project)
	}

	var b strings.Builder
	b.WriteString("<html><body style=\"font-family: Arial, sans-serif;\">")
	fmt.Fprintf(&b, "<p>Hi %s,</p>", html.EscapeString(task.RecipientName))
	fmt.Fprintf(&b, "<p>%s</p>", text)
	if link != "" {
		fmt.Fprintf(&b, "<p><a href=\"%s\">Open the project</a></p>", link)
	}
	b.WriteString("<hr><p style=\"color: #888; font-size: 12px;\">Sent by IdeaForge</p>")
	b.WriteString("</body></html>")
	return subject, b.String()
}
