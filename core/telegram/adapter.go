package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/tbaiguzhinov/pizza-bot/core/flow"
)

// Messenger renders the transport-agnostic outbound messages over the
// Telegram API. Carousels are rendered as a sequence of photo or text
// cards, each with its own inline keyboard.
type Messenger struct {
	bot *tele.Bot
}

// NewMessenger wraps a bot for outbound delivery.
func NewMessenger(bot *tele.Bot) *Messenger {
	return &Messenger{bot: bot}
}

func chatRecipient(to string) (tele.Recipient, error) {
	id, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram: bad recipient %q: %w", to, err)
	}
	return tele.ChatID(id), nil
}

// inlineMarkup builds a raw inline keyboard; callback data round-trips
// unchanged through button events.
func inlineMarkup(rows [][]flow.Button) *tele.ReplyMarkup {
	if len(rows) == 0 {
		return nil
	}
	keyboard := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		r := make([]tele.InlineButton, 0, len(row))
		for _, btn := range row {
			r = append(r, tele.InlineButton{Text: btn.Label, Data: btn.Data})
		}
		keyboard = append(keyboard, r)
	}
	return &tele.ReplyMarkup{InlineKeyboard: keyboard}
}

// SendText delivers a plain text message.
func (m *Messenger) SendText(_ context.Context, to string, msg flow.Text) error {
	rcp, err := chatRecipient(to)
	if err != nil {
		return err
	}
	if markup := inlineMarkup(msg.Buttons); markup != nil {
		_, err = m.bot.Send(rcp, msg.Body, markup)
	} else {
		_, err = m.bot.Send(rcp, msg.Body)
	}
	return err
}

// SendPhoto delivers an image with a caption. A photo without a URL
// degrades to a text message so the caption is never lost.
func (m *Messenger) SendPhoto(ctx context.Context, to string, msg flow.Photo) error {
	if msg.URL == "" {
		return m.SendText(ctx, to, flow.Text{Body: msg.Caption, Buttons: msg.Buttons})
	}
	rcp, err := chatRecipient(to)
	if err != nil {
		return err
	}
	photo := &tele.Photo{File: tele.FromURL(msg.URL), Caption: msg.Caption}
	if markup := inlineMarkup(msg.Buttons); markup != nil {
		_, err = m.bot.Send(rcp, photo, markup)
	} else {
		_, err = m.bot.Send(rcp, photo)
	}
	return err
}

// SendCarousel renders each card as one message with its buttons.
func (m *Messenger) SendCarousel(ctx context.Context, to string, msg flow.Carousel) error {
	for _, card := range msg.Cards {
		buttons := [][]flow.Button{card.Buttons}
		if len(card.Buttons) == 0 {
			buttons = nil
		}
		body := card.Title
		if card.Description != "" {
			body += "\n" + card.Description
		}
		var err error
		if card.ImageURL != "" {
			err = m.SendPhoto(ctx, to, flow.Photo{URL: card.ImageURL, Caption: body, Buttons: buttons})
		} else {
			err = m.SendText(ctx, to, flow.Text{Body: body, Buttons: buttons})
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// SendLocation delivers a map pin.
func (m *Messenger) SendLocation(_ context.Context, to string, msg flow.LocationPin) error {
	rcp, err := chatRecipient(to)
	if err != nil {
		return err
	}
	_, err = m.bot.Send(rcp, &tele.Location{
		Lat: float32(msg.Lat),
		Lng: float32(msg.Lon),
	})
	return err
}

// sessionKey derives the stable per-conversation key from the chat id.
func sessionKey(c tele.Context) string {
	if chat := c.Chat(); chat != nil {
		return strconv.FormatInt(chat.ID, 10)
	}
	if user := c.Sender(); user != nil {
		return strconv.FormatInt(user.ID, 10)
	}
	return ""
}

// eventFromText maps an inbound text message.
func eventFromText(c tele.Context) flow.Event {
	return flow.Event{
		SessionKey: sessionKey(c),
		Kind:       flow.KindText,
		Payload:    c.Text(),
	}
}

// eventFromCallback maps an inbound button press.
func eventFromCallback(c tele.Context) flow.Event {
	payload := ""
	if cb := c.Callback(); cb != nil {
		payload = strings.TrimSpace(strings.TrimPrefix(cb.Data, "\f"))
	}
	return flow.Event{
		SessionKey: sessionKey(c),
		Kind:       flow.KindButton,
		Payload:    payload,
	}
}

// eventFromLocation maps an inbound location share.
func eventFromLocation(c tele.Context) flow.Event {
	ev := flow.Event{
		SessionKey: sessionKey(c),
		Kind:       flow.KindLocation,
	}
	if msg := c.Message(); msg != nil && msg.Location != nil {
		ev.Lat = float64(msg.Location.Lat)
		ev.Lon = float64(msg.Location.Lng)
	}
	return ev
}
