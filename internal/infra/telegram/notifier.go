// Package telegram pushes stock and cancellation alerts to the administrators' chat.
package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/tienda-pos/internal/domain/sales"
	"github.com/Spok95/tienda-pos/internal/events"
)

// Sender is satisfied by *tgbotapi.BotAPI.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Notifier struct {
	api   Sender
	chats []int64
}

// NewNotifier sends to every distinct non-zero chat id.
func NewNotifier(api Sender, chatIDs ...int64) *Notifier {
	seen := map[int64]struct{}{}
	n := &Notifier{api: api}
	for _, id := range chatIDs {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		n.chats = append(n.chats, id)
	}
	return n
}

func (n *Notifier) Name() string { return "telegram" }

func (n *Notifier) Deliver(ctx context.Context, e events.Event) error {
	text, ok := Text(e)
	if !ok {
		return nil
	}
	for _, chatID := range n.chats {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := n.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
			return fmt.Errorf("telegram: send to %d: %w", chatID, err)
		}
	}
	return nil
}

// Text renders the alert for e; ok is false for events nobody is alerted about.
func Text(e events.Event) (string, bool) {
	switch e.Type {
	case events.TypeLowStock:
		p := e.Product
		if p == nil {
			return "", false
		}
		var b strings.Builder
		b.WriteString("⚠️ Stock bajo\n")
		if p.Stock <= 0 {
			fmt.Fprintf(&b, "— %s: agotado", p.Name)
		} else {
			fmt.Fprintf(&b, "— %s: quedan %d (mínimo %d)", p.Name, p.Stock, p.StockMin)
		}
		if p.SKU != "" {
			fmt.Fprintf(&b, "\nSKU: %s", p.SKU)
		}
		return b.String(), true
	case events.TypeSaleUpdated:
		s := e.Sale
		if s == nil || s.Status != sales.StatusCancelled {
			return "", false
		}
		store := s.StoreName
		if store == "" {
			store = fmt.Sprintf("ID:%d", s.StoreID)
		}
		return fmt.Sprintf("❌ Venta cancelada\nTienda: %s\nFolio: %s\nTotal: %s",
			store, s.Folio, s.Total.StringFixed(2)), true
	}
	return "", false
}
