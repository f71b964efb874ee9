package flow

// Message is one outbound message produced by a transition. The concrete
// types below are the only implementations. An empty To addresses the
// session's own user; a non-empty To targets another chat, used for
// courier dispatch.
type Message interface {
	recipient() string
}

// Button is one pressable control. Data is the callback payload delivered
// back as a button event.
type Button struct {
	Label string
	Data  string
}

// Text is a plain text message with optional inline keyboard rows.
type Text struct {
	To      string
	Body    string
	Buttons [][]Button
}

// Photo is an image with a caption and optional inline keyboard rows.
type Photo struct {
	To      string
	URL     string
	Caption string
	Buttons [][]Button
}

// Card is one element of a Carousel.
type Card struct {
	Title       string
	Description string
	ImageURL    string
	Buttons     []Button
}

// Carousel is an ordered sequence of cards rendered as a browsable list.
type Carousel struct {
	To    string
	Cards []Card
}

// LocationPin is a shared map point.
type LocationPin struct {
	To  string
	Lat float64
	Lon float64
}

func (m Text) recipient() string        { return m.To }
func (m Photo) recipient() string       { return m.To }
func (m Carousel) recipient() string    { return m.To }
func (m LocationPin) recipient() string { return m.To }
