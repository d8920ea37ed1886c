package mailer

import (
	"bytes"
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"grocery-orders/config"
	"grocery-orders/models"
	"grocery-orders/utils"
)

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer sends order emails over SMTP. Without an SMTP host it only logs.
type Mailer struct {
	dialer sender
	from   string
	shop   config.ShopConfig
	log    *zap.Logger
}

func New(cfg *config.Config, log *zap.Logger) *Mailer {
	m := &Mailer{shop: cfg.Shop, log: log}
	if cfg.SMTPHost == "" {
		return m
	}
	m.dialer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	m.from = cfg.SMTPFrom
	if m.from == "" {
		m.from = cfg.SMTPUser
	}
	return m
}

type emailData struct {
	Order     *models.Order
	AdminCopy bool
	Pickup    bool
	Shop      config.ShopConfig
}

func (m *Mailer) Subject(o *models.Order, isAdminCopy bool) string {
	if isAdminCopy {
		return fmt.Sprintf("New Order #%s - %s", o.OrderNumber, m.shop.Name)
	}
	return "Order Confirmation #" + o.OrderNumber
}

func (m *Mailer) Render(o *models.Order, isAdminCopy bool) (string, error) {
	var buf bytes.Buffer
	err := orderEmail.Execute(&buf, emailData{
		Order:     o,
		AdminCopy: isAdminCopy,
		Pickup:    o.FulfillmentType == models.FulfillmentPickup,
		Shop:      m.shop,
	})
	if err != nil {
		return "", fmt.Errorf("render order email: %w", err)
	}
	return buf.String(), nil
}

// Send implements services.Notifier. gomail has no context support; ctx is
// only checked before dialing.
func (m *Mailer) Send(ctx context.Context, o *models.Order, recipient string, isAdminCopy bool) error {
	if m.dialer == nil {
		m.log.Warn("no email service configured, skipping order email",
			zap.String("order_number", o.OrderNumber))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := m.Render(o, isAdminCopy)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", m.Subject(o, isAdminCopy))
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send order email: %w", err)
	}
	m.log.Info("order email sent",
		zap.String("order_number", o.OrderNumber),
		zap.Bool("admin_copy", isAdminCopy))
	return nil
}

func money(d decimal.Decimal) string {
	return utils.FormatCurrency(d)
}
