package flow

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tbaiguzhinov/pizza-bot/core/geo"
	"github.com/tbaiguzhinov/pizza-bot/core/session"
)

var validate = validator.New()

const (
	payloadPickup   = "pickup"
	payloadDelivery = "delivery"
)

func (m *Machine) handleEmail(ctx context.Context, sess session.Session, ev Event, token string) (Result, error) {
	email := strings.TrimSpace(ev.Payload)
	if validate.Var(email, "required,email") != nil {
		return stay(sess, Text{Body: "That does not look like an email address, please try again."}), nil
	}

	customerID, err := m.catalog.LookupOrCreateCustomer(ctx, email, token)
	if err != nil {
		return Result{}, err
	}
	sess.CustomerID = customerID

	return advance(sess, session.StateGeolocation,
		Text{Body: "Thanks! Now send your address as text or share your location."}), nil
}

func (m *Machine) handleGeolocation(ctx context.Context, sess session.Session, ev Event, token string) (Result, error) {
	var point geo.Point
	if ev.Kind == KindLocation {
		point = geo.Point{Lat: ev.Lat, Lon: ev.Lon}
	} else {
		resolved, found, err := m.geocoder.Resolve(ctx, strings.TrimSpace(ev.Payload))
		if err != nil {
			return Result{}, err
		}
		if !found {
			return stay(sess, Text{Body: "Could not find that address, please send it again or share your location."}), nil
		}
		point = resolved
	}

	pizzerias, err := m.catalog.Pizzerias(ctx, token)
	if err != nil {
		return Result{}, err
	}
	nearest, distance, ok := geo.ClosestPizzeria(pizzerias, point)
	if !ok {
		return Result{}, fmt.Errorf("flow: no pizzerias configured")
	}

	sess.Coordinates = &session.Coordinates{Lat: point.Lat, Lon: point.Lon}
	sess.Pizzeria = &session.Pizzeria{
		Address:    nearest.Address,
		DistanceKM: distance,
		CourierID:  nearest.CourierID,
	}

	return advance(sess, session.StateDelivery, deliveryOffer(nearest.Address, distance)), nil
}

// deliveryFee is the tiered pricing policy on the nearest-pizzeria
// distance in kilometers. offered is false at and beyond 20 km.
func deliveryFee(distanceKM float64) (fee int, offered bool) {
	switch {
	case distanceKM <= 0.5:
		return 0, true
	case distanceKM >= 20:
		return 0, false
	case distanceKM <= 5:
		return 100, true
	default:
		return 300, true
	}
}

// deliveryOffer renders the tier outcome with the matching choice buttons.
func deliveryOffer(address string, distanceKM float64) Text {
	fee, offered := deliveryFee(distanceKM)

	if !offered {
		return Text{
			Body: fmt.Sprintf(
				"You are %.1f km away from the nearest pizzeria, sorry, that is too far for delivery. You can still pick up your order at %s.",
				distanceKM, address),
			Buttons: [][]Button{{{Label: "Pickup", Data: payloadPickup}}},
		}
	}

	choice := [][]Button{{
		{Label: "Delivery", Data: payloadDelivery},
		{Label: "Pickup", Data: payloadPickup},
	}}

	if fee == 0 {
		meters := int(math.Round(distanceKM * 1000))
		return Text{
			Body: fmt.Sprintf(
				"The nearest pizzeria is just %d m away at %s. We can deliver for free, or you can pick the order up.",
				meters, address),
			Buttons: choice,
		}
	}
	return Text{
		Body: fmt.Sprintf(
			"The nearest pizzeria is at %s. Delivery costs %d rub, or you can pick the order up yourself.",
			address, fee),
		Buttons: choice,
	}
}

func (m *Machine) handleDelivery(ctx context.Context, sess session.Session, ev Event, token string) (Result, error) {
	if sess.Pizzeria == nil || sess.Coordinates == nil {
		// The choice arrived without a resolved location, restart cleanly.
		return m.handleStart(ctx, sess, ev, token)
	}

	switch strings.TrimSpace(ev.Payload) {
	case payloadPickup:
		return advance(sess, session.StateStart,
			Text{Body: fmt.Sprintf("Your order is waiting for you at %s. See you soon!", sess.Pizzeria.Address)}), nil

	case payloadDelivery:
		return m.dispatchDelivery(ctx, sess, token)
	}

	return stay(sess, deliveryOffer(sess.Pizzeria.Address, sess.Pizzeria.DistanceKM)), nil
}

// dispatchDelivery persists the delivery address, hands the order to the
// pizzeria's courier, and confirms to the customer.
func (m *Machine) dispatchDelivery(ctx context.Context, sess session.Session, token string) (Result, error) {
	err := m.catalog.CreateEntry(ctx, m.addressFlow, map[string]any{
		"latitude":    sess.Coordinates.Lat,
		"longitude":   sess.Coordinates.Lon,
		"customer_id": sess.CustomerID,
	}, token)
	if err != nil {
		return Result{}, err
	}

	summary, _, err := m.cartSummary(ctx, sess, token)
	if err != nil {
		return Result{}, err
	}

	return advance(sess, session.StateStart,
		Text{To: sess.Pizzeria.CourierID, Body: "New delivery order:\n\n" + summary},
		LocationPin{To: sess.Pizzeria.CourierID, Lat: sess.Coordinates.Lat, Lon: sess.Coordinates.Lon},
		Text{Body: "Your order is on its way! The courier will contact you shortly."},
	), nil
}
