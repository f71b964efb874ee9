package flow

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tbaiguzhinov/pizza-bot/core/session"
)

const (
	payloadCart = "cart"
	payloadBack = "back"
	payloadPay  = "pay"
)

// rootMenu builds the category carousel shown on entry and on "back".
func (m *Machine) rootMenu(ctx context.Context, token string) (Carousel, error) {
	cats, err := m.categories(ctx, token)
	if err != nil {
		return Carousel{}, err
	}
	cards := make([]Card, 0, len(cats)+1)
	for _, cat := range cats {
		cards = append(cards, Card{
			Title:   cat.Name,
			Buttons: []Button{{Label: cat.Name, Data: cat.ID}},
		})
	}
	cards = append(cards, Card{
		Title:   "Cart",
		Buttons: []Button{{Label: "Cart", Data: payloadCart}},
	})
	return Carousel{Cards: cards}, nil
}

// categoryMenu builds the product carousel of one category, closed by a
// navigation card switching to the other categories and the cart.
func (m *Machine) categoryMenu(ctx context.Context, categoryID, token string) (Carousel, error) {
	products, err := m.categoryProducts(ctx, categoryID, token)
	if err != nil {
		return Carousel{}, err
	}
	cards := make([]Card, 0, len(products)+1)
	for _, p := range products {
		imageURL, err := m.fileURL(ctx, p.ImageFileID, token)
		if err != nil {
			return Carousel{}, err
		}
		cards = append(cards, Card{
			Title:       fmt.Sprintf("%s, %d rub", p.Name, p.Price),
			Description: p.Description,
			ImageURL:    imageURL,
			Buttons:     []Button{{Label: p.Name, Data: p.ID}},
		})
	}

	cats, err := m.categories(ctx, token)
	if err != nil {
		return Carousel{}, err
	}
	nav := Card{Title: "More"}
	for _, cat := range cats {
		if cat.ID == categoryID {
			continue
		}
		nav.Buttons = append(nav.Buttons, Button{Label: cat.Name, Data: cat.ID})
	}
	nav.Buttons = append(nav.Buttons, Button{Label: "Cart", Data: payloadCart})
	cards = append(cards, nav)

	return Carousel{Cards: cards}, nil
}

func (m *Machine) handleStart(ctx context.Context, sess session.Session, ev Event, token string) (Result, error) {
	menu, err := m.rootMenu(ctx, token)
	if err != nil {
		return Result{}, err
	}
	return advance(sess, session.StateMenu,
		Text{Body: "Welcome! Pick a category:"}, menu), nil
}

func (m *Machine) handleMenu(ctx context.Context, sess session.Session, ev Event, token string) (Result, error) {
	payload := strings.TrimSpace(ev.Payload)

	if payload == payloadCart {
		cart, err := m.cartView(ctx, sess, token)
		if err != nil {
			return Result{}, err
		}
		return advance(sess, session.StateCart, cart), nil
	}

	cats, err := m.categories(ctx, token)
	if err != nil {
		return Result{}, err
	}
	for _, cat := range cats {
		if cat.ID == payload {
			menu, err := m.categoryMenu(ctx, cat.ID, token)
			if err != nil {
				return Result{}, err
			}
			return stay(sess, menu), nil
		}
	}

	// Free text in the menu state re-renders the root menu; only button
	// payloads name products.
	if ev.Kind != KindButton {
		menu, err := m.rootMenu(ctx, token)
		if err != nil {
			return Result{}, err
		}
		return stay(sess, menu), nil
	}

	detail, err := m.productDetail(ctx, payload, token)
	if err != nil {
		return Result{}, err
	}
	return advance(sess, session.StateDescription, detail), nil
}

// productDetail builds the single-product photo card with quantity buttons.
func (m *Machine) productDetail(ctx context.Context, productID, token string) (Photo, error) {
	p, err := m.catalog.Product(ctx, productID, token)
	if err != nil {
		return Photo{}, err
	}
	imageURL, err := m.fileURL(ctx, p.ImageFileID, token)
	if err != nil {
		return Photo{}, err
	}
	return Photo{
		URL:     imageURL,
		Caption: fmt.Sprintf("%s, %d rub\n\n%s", p.Name, p.Price, p.Description),
		Buttons: [][]Button{
			{
				{Label: "1 pc", Data: "add,1," + p.ID},
				{Label: "3 pcs", Data: "add,3," + p.ID},
				{Label: "5 pcs", Data: "add,5," + p.ID},
			},
			{{Label: "Cart", Data: payloadCart}},
			{{Label: "Back", Data: payloadBack}},
		},
	}, nil
}

func (m *Machine) handleDescription(ctx context.Context, sess session.Session, ev Event, token string) (Result, error) {
	payload := strings.TrimSpace(ev.Payload)

	switch {
	case payload == payloadCart:
		cart, err := m.cartView(ctx, sess, token)
		if err != nil {
			return Result{}, err
		}
		return advance(sess, session.StateCart, cart), nil

	case payload == payloadBack:
		menu, err := m.rootMenu(ctx, token)
		if err != nil {
			return Result{}, err
		}
		return advance(sess, session.StateMenu, menu), nil

	case strings.HasPrefix(payload, "add,"):
		qty, productID, ok := parseAddPayload(payload)
		if !ok {
			return stay(sess, Text{Body: "That button payload did not parse, use the buttons under the product."}), nil
		}
		if err := m.catalog.AddCartItem(ctx, sess.CartID(), productID, qty, token); err != nil {
			return Result{}, err
		}
		return stay(sess, Text{Body: fmt.Sprintf("Added %d to your cart.", qty)}), nil
	}

	return stay(sess, Text{Body: "Use the buttons under the product to add it, open the cart, or go back."}), nil
}

// parseAddPayload splits "add,<qty>,<product_id>".
func parseAddPayload(payload string) (qty int, productID string, ok bool) {
	parts := strings.SplitN(payload, ",", 3)
	if len(parts) != 3 {
		return 0, "", false
	}
	qty, err := strconv.Atoi(parts[1])
	if err != nil || qty <= 0 {
		return 0, "", false
	}
	return qty, parts[2], true
}
