// Package notify turns change events into user notifications: it stores
// them per recipient, pushes them to live subscribers and emails exhibitor
// advisors about meeting requests.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/expo-access/internal/metrics"
	"github.com/iliyamo/expo-access/internal/model"
	"github.com/iliyamo/expo-access/internal/queue"
)

// ExhibitorRecipient is the inbox of an exhibitor's staff.
func ExhibitorRecipient(id uint64) string { return "exhibitor:" + strconv.FormatUint(id, 10) }

// ExhibitorSource resolves the exhibitor a lead belongs to.
type ExhibitorSource interface {
	GetByID(ctx context.Context, id uint64) (*model.Exhibitor, error)
}

// Notifier consumes change events.  It implements queue.Handler.
type Notifier struct {
	store      *Store
	hub        *Hub
	mailer     Mailer
	exhibitors ExhibitorSource
	admin      string
	log        *zap.Logger
	seenTTL    time.Duration
}

func NewNotifier(store *Store, hub *Hub, mailer Mailer, exhibitors ExhibitorSource, admin string, log *zap.Logger) *Notifier {
	return &Notifier{
		store:      store,
		hub:        hub,
		mailer:     mailer,
		exhibitors: exhibitors,
		admin:      admin,
		log:        log,
		seenTTL:    24 * time.Hour,
	}
}

// HandleEvent processes one event.  Redelivered events (same id) are
// skipped so neither notifications nor emails are duplicated.
func (n *Notifier) HandleEvent(ctx context.Context, ev queue.ChangeEvent) error {
	if ev.ID != "" {
		first, err := n.store.FirstSeen(ctx, ev.ID, n.seenTTL)
		if err != nil {
			return fmt.Errorf("dedupe: %w", err)
		}
		if !first {
			n.log.Debug("notifier: duplicate event skipped", zap.String("event_id", ev.ID))
			return nil
		}
	}
	switch ev.Type {
	case queue.EventLeadCreated:
		if ev.Lead == nil {
			return fmt.Errorf("%s without lead payload", ev.Type)
		}
		return n.leadCreated(ctx, *ev.Lead)
	case queue.EventQRRedeemed:
		if ev.QRCode == nil {
			return fmt.Errorf("%s without qr payload", ev.Type)
		}
		if ev.WasUsed || !ev.QRCode.IsUsed {
			return nil
		}
		return n.qrRedeemed(ctx, *ev.QRCode)
	default:
		n.log.Debug("notifier: ignoring event", zap.String("type", ev.Type))
		return nil
	}
}

func (n *Notifier) leadCreated(ctx context.Context, l model.Lead) error {
	ex, err := n.exhibitors.GetByID(ctx, l.ExhibitorID)
	if err != nil {
		return fmt.Errorf("load exhibitor %d: %w", l.ExhibitorID, err)
	}

	kind, label, article := model.NotifyLead, "Beneficio", "un beneficio"
	if l.LeadType == model.LeadMeeting {
		kind, label, article = model.NotifyMeeting, "Reunión", "una reunión"
	}
	visitor := l.VisitorName
	if visitor == "" {
		visitor = "Un visitante"
	}
	data := map[string]string{
		"leadId":       strconv.FormatUint(l.ID, 10),
		"exhibitorId":  strconv.FormatUint(l.ExhibitorID, 10),
		"leadType":     string(l.LeadType),
		"visitorEmail": l.VisitorEmail,
		"visitorName":  l.VisitorName,
		"companyName":  ex.CompanyName,
		"advisorName":  ex.AdvisorName,
		"advisorEmail": ex.AdvisorEmail,
	}
	title := fmt.Sprintf("Nuevo %s Solicitado", label)
	msg := fmt.Sprintf("%s ha solicitado %s de %s", visitor, article, ex.CompanyName)

	for _, r := range []string{n.admin, ExhibitorRecipient(ex.ID)} {
		if err := n.deliver(ctx, newNotification(r, kind, title, msg, data)); err != nil {
			return err
		}
	}

	if l.LeadType == model.LeadMeeting && ex.AdvisorEmail != "" {
		n.emailAdvisor(ctx, l, ex)
	}
	return nil
}

func (n *Notifier) qrRedeemed(ctx context.Context, q model.QRCode) error {
	name := q.SubjectName
	if name == "" {
		name = "Usuario"
	}
	data := map[string]string{
		"qrId":      strconv.FormatUint(q.ID, 10),
		"userType":  string(q.SubjectType),
		"userName":  q.SubjectName,
		"userEmail": q.SubjectEmail,
	}
	if q.CompanyName != nil {
		data["companyName"] = *q.CompanyName
	}
	return n.deliver(ctx, newNotification(n.admin, model.NotifyAccess, "Nuevo Acceso al Evento",
		fmt.Sprintf("%s (%s) ha ingresado al evento", name, q.SubjectType), data))
}

// deliver persists the notification, then pushes it live.
func (n *Notifier) deliver(ctx context.Context, nt model.Notification) error {
	if err := n.store.Add(ctx, nt); err != nil {
		return err
	}
	n.hub.Broadcast(nt)
	return nil
}

// emailAdvisor makes exactly one send attempt.  Failure is logged and
// counted; the lead and its notifications stand regardless.
func (n *Notifier) emailAdvisor(ctx context.Context, l model.Lead, ex *model.Exhibitor) {
	err := n.mailer.Send(ctx, Email{
		To:      ex.AdvisorEmail,
		Subject: "Nueva Solicitud de Reunión - " + ex.CompanyName,
		Text:    meetingEmailText(l, ex),
	})
	if err != nil {
		metrics.EmailsSent.WithLabelValues("failed").Inc()
		n.log.Warn("notifier: advisor email failed",
			zap.Uint64("lead_id", l.ID), zap.String("to", ex.AdvisorEmail), zap.Error(err))
		return
	}
	metrics.EmailsSent.WithLabelValues("sent").Inc()
}

func meetingEmailText(l model.Lead, ex *model.Exhibitor) string {
	orDefault := func(v, def string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return v
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Estimado/a %s,\n\n", orDefault(ex.AdvisorName, "Asesor"))
	fmt.Fprintf(&b, "Ha recibido una nueva solicitud de reunión para %s.\n\n", ex.CompanyName)
	b.WriteString("Detalles del contacto:\n")
	fmt.Fprintf(&b, "- Nombre: %s\n", orDefault(l.VisitorName, "No especificado"))
	fmt.Fprintf(&b, "- Email: %s\n", l.VisitorEmail)
	fmt.Fprintf(&b, "- Teléfono: %s\n", orDefault(l.VisitorPhone, "No especificado"))
	if l.Notes != nil && *l.Notes != "" {
		fmt.Fprintf(&b, "\nMensaje: %s\n", *l.Notes)
	}
	b.WriteString("\nPor favor, póngase en contacto con el visitante lo antes posible.\n")
	return b.String()
}

func newNotification(recipient string, kind model.NotificationKind, title, msg string, data map[string]string) model.Notification {
	return model.Notification{
		ID:        uuid.NewString(),
		Recipient: recipient,
		Kind:      kind,
		Title:     title,
		Message:   msg,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
}
