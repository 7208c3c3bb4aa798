package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/haul/entity"
	"github.com/Daphne-CPAdmin/PHHOrderingForm/internal/shared/telegram"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Notifier pushes order events to the admin Telegram chat. Sends run in the
// background and never affect the request that triggered them.
type Notifier struct {
	tg      *telegram.Client
	printer *message.Printer
	logger  *zap.Logger
}

func NewNotifier(tg *telegram.Client, logger *zap.Logger) *Notifier {
	return &Notifier{
		tg:      tg,
		printer: message.NewPrinter(language.English),
		logger:  logger,
	}
}

func (n *Notifier) peso(amount float64) string {
	return "₱" + n.printer.Sprint(number.Decimal(amount, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

func (n *Notifier) send(text string) {
	if !n.tg.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := n.tg.SendMessage(ctx, text); err != nil {
			n.logger.Warn("telegram notification failed", zap.Error(err))
		}
	}()
}

// OrderSubmitted announces a freshly placed order.
func (n *Notifier) OrderSubmitted(order *entity.Order) {
	var b strings.Builder
	fmt.Fprintf(&b, "🧾 <b>New order</b> %s\n", order.ID)
	fmt.Fprintf(&b, "Tab: %s\n", order.TabName)
	fmt.Fprintf(&b, "Customer: %s\n", order.CustomerName)
	if order.Telegram != "" {
		fmt.Fprintf(&b, "Telegram: @%s\n", strings.TrimPrefix(order.Telegram, "@"))
	}
	b.WriteString("\n")
	for _, item := range order.Items {
		fmt.Fprintf(&b, "• %s (%s) ×%d - $%.2f\n", item.ProductCode, item.OrderType, item.Quantity, item.LineTotalUSD)
	}
	fmt.Fprintf(&b, "\nSubtotal: $%.2f\nTotal: %s", order.SubtotalUSD, n.peso(order.GrandTotalPHP))
	n.send(b.String())
}

// PaymentUploaded announces payment proof waiting for confirmation.
func (n *Notifier) PaymentUploaded(order *entity.Order) {
	var b strings.Builder
	fmt.Fprintf(&b, "💸 <b>Payment proof uploaded</b> for %s\n", order.ID)
	fmt.Fprintf(&b, "Customer: %s\n", order.CustomerName)
	fmt.Fprintf(&b, "Amount due: %s\n", n.peso(order.GrandTotalPHP))
	b.WriteString("Status: waiting for confirmation")
	n.send(b.String())
}
