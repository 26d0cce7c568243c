package notify

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/rs/zerolog"

	"storefront/internal/events"
)

type mailTemplate struct {
	subject string
	body    *template.Template
}

var templates = map[events.Type]mailTemplate{
	events.OrderPlaced: {
		subject: "We received your order",
		body: template.Must(template.New("placed").Parse(
			`Hi {{.CustomerName}},

Your order {{.OrderID}} for {{printf "%.2f" .Amount}} has been placed ({{.PaymentMethod}}).
We will let you know when it ships.
`)),
	},
	events.OrderPaid: {
		subject: "Payment received",
		body: template.Must(template.New("paid").Parse(
			`Hi {{.CustomerName}},

We received your {{.PaymentMethod}} payment of {{printf "%.2f" .Amount}} for order {{.OrderID}}.
`)),
	},
	events.OrderStatusChanged: {
		subject: "Your order status changed",
		body: template.Must(template.New("status").Parse(
			`Hi {{.CustomerName}},

Order {{.OrderID}} is now: {{.Status}}.
`)),
	},
	events.OrderPaymentFailed: {
		subject: "Payment not completed",
		body: template.Must(template.New("failed").Parse(
			`Hi {{.CustomerName}},

The payment for order {{.OrderID}} was not completed and the order was discarded.
`)),
	},
}

// Notifier превращает события заказов в письма
type Notifier struct {
	mailer Mailer
	log    zerolog.Logger
}

func NewNotifier(mailer Mailer, log zerolog.Logger) *Notifier {
	return &Notifier{mailer: mailer, log: log}
}

// Handle is an events.Handler.
func (n *Notifier) Handle(ctx context.Context, ev events.Event) error {
	tpl, ok := templates[ev.Type]
	if !ok {
		n.log.Debug().Str("type", string(ev.Type)).Msg("no template for event")
		return nil
	}
	if ev.Email == "" {
		n.log.Warn().Str("order_id", ev.OrderID).Str("type", string(ev.Type)).Msg("event without recipient")
		return nil
	}
	msg, err := render(tpl, ev)
	if err != nil {
		return err
	}
	if err := n.mailer.Send(ctx, msg); err != nil {
		return err
	}
	n.log.Info().Str("order_id", ev.OrderID).Str("type", string(ev.Type)).Msg("notification sent")
	return nil
}

func render(tpl mailTemplate, ev events.Event) (Message, error) {
	if ev.CustomerName == "" {
		ev.CustomerName = "there"
	}
	var buf bytes.Buffer
	if err := tpl.body.Execute(&buf, ev); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", ev.Type, err)
	}
	return Message{To: ev.Email, Subject: tpl.subject, Body: buf.String()}, nil
}
