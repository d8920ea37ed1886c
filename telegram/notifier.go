package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"grocery-orders/models"
	"grocery-orders/utils"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier pushes new-order alerts to the shop's admin chat.
type Notifier struct {
	api    sender
	chatID int64
	log    *zap.Logger
}

func NewNotifier(token string, chatID int64, log *zap.Logger) (*Notifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Notifier{api: api, chatID: chatID, log: log}, nil
}

// Send implements services.Notifier. Only the admin copy goes to Telegram.
func (n *Notifier) Send(ctx context.Context, o *models.Order, _ string, isAdminCopy bool) error {
	if !isAdminCopy {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, Summary(o))
	msg.DisableWebPagePreview = true
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	n.log.Debug("telegram order alert sent", zap.String("order_number", o.OrderNumber))
	return nil
}

// Summary renders an order as a plain-text chat message.
func Summary(o *models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New order %s\n", o.OrderNumber)
	fmt.Fprintf(&b, "%s, %s\n", o.CustomerName, o.CustomerPhone)
	if o.FulfillmentType == models.FulfillmentDelivery {
		b.WriteString("Delivery")
		if o.ExpressDelivery {
			b.WriteString(" (express)")
		}
		if o.DeliveryAddress != nil {
			b.WriteString(": " + *o.DeliveryAddress)
		}
		if o.DeliveryDistanceKm != nil {
			fmt.Fprintf(&b, " [%.2f km]", *o.DeliveryDistanceKm)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("Pickup\n")
	}
	b.WriteString("\n")
	for _, it := range o.Items {
		fmt.Fprintf(&b, "%d x %s = %s\n", it.Quantity, it.ProductName, utils.FormatCurrency(it.Subtotal))
	}
	b.WriteString("\n")
	if o.DeliveryFee.IsPositive() {
		fmt.Fprintf(&b, "Delivery fee: %s\n", utils.FormatCurrency(o.DeliveryFee))
	}
	fmt.Fprintf(&b, "Total: %s", utils.FormatCurrency(o.Total))
	if o.CustomerNotes != nil {
		fmt.Fprintf(&b, "\nNotes: %s", *o.CustomerNotes)
	}
	return b.String()
}
