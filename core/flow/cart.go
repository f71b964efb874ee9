package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/tbaiguzhinov/pizza-bot/core/session"
)

// cartSummary re-reads the canonical cart and renders it as text plus
// per-item controls. The price figures always come from the catalog, so
// two renders without an intervening mutation are identical.
func (m *Machine) cartSummary(ctx context.Context, sess session.Session, token string) (body string, controls [][]Button, err error) {
	items, err := m.catalog.CartItems(ctx, sess.CartID(), token)
	if err != nil {
		return "", nil, err
	}
	cart, err := m.catalog.Cart(ctx, sess.CartID(), token)
	if err != nil {
		return "", nil, err
	}

	if len(items) == 0 {
		return "Your cart is empty.", [][]Button{{{Label: "Back to menu", Data: payloadBack}}}, nil
	}

	var b strings.Builder
	total := 0
	for _, item := range items {
		total += item.Quantity
		fmt.Fprintf(&b, "%s\n%s\n%d pcs\n\n", item.Name, item.Description, item.Quantity)
		controls = append(controls, []Button{
			{Label: "+1 " + item.Name, Data: "add:" + item.ProductID},
			{Label: "Remove " + item.Name, Data: "remove:" + item.ID},
		})
	}
	fmt.Fprintf(&b, "Total: %d items for %s", total, cart.GrandTotalFormatted)

	controls = append(controls,
		[]Button{{Label: "Back to menu", Data: payloadBack}},
		[]Button{{Label: "Checkout", Data: payloadPay}},
	)
	return b.String(), controls, nil
}

// cartView wraps cartSummary into the single outbound cart message.
func (m *Machine) cartView(ctx context.Context, sess session.Session, token string) (Text, error) {
	body, controls, err := m.cartSummary(ctx, sess, token)
	if err != nil {
		return Text{}, err
	}
	return Text{Body: body, Buttons: controls}, nil
}

func (m *Machine) handleCart(ctx context.Context, sess session.Session, ev Event, token string) (Result, error) {
	payload := strings.TrimSpace(ev.Payload)

	switch {
	case payload == payloadBack:
		menu, err := m.rootMenu(ctx, token)
		if err != nil {
			return Result{}, err
		}
		return advance(sess, session.StateMenu, menu), nil

	case payload == payloadPay:
		return advance(sess, session.StateEmail,
			Text{Body: "Please send your email to continue with the order."}), nil

	case strings.HasPrefix(payload, "add:"):
		productID := strings.TrimPrefix(payload, "add:")
		if err := m.catalog.AddCartItem(ctx, sess.CartID(), productID, 1, token); err != nil {
			return Result{}, err
		}

	case strings.HasPrefix(payload, "remove:"):
		itemID := strings.TrimPrefix(payload, "remove:")
		if err := m.catalog.RemoveCartItem(ctx, sess.CartID(), itemID, token); err != nil {
			return Result{}, err
		}
	}

	// Every path that stays in the cart re-renders it from the catalog.
	cart, err := m.cartView(ctx, sess, token)
	if err != nil {
		return Result{}, err
	}
	return stay(sess, cart), nil
}
