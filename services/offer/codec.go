// Package offer maps negotiation actions to typed chat messages and back.
package offer

import (
	"fmt"
	"regexp"
	"strconv"

	"rentathing/models"
)

// Decoded is the negotiation-relevant content of a chat message.
type Decoded struct {
	Kind      models.MessageKind
	BookingID string
	Event     models.InfoEvent
	Terms     *models.Terms
	// FromBody is true when the terms were recovered from legacy body text.
	FromBody bool
}

// Info describes an info event to encode.
type Info struct {
	Event       models.InfoEvent
	BookingID   string
	Terms       *models.Terms
	Amount      float64
	RenteeEmail string
}

// EncodeOffer builds the offer message announcing new terms for a booking.
func EncodeOffer(sender, bookingID string, t models.Terms) models.Message {
	start, end, price := t.StartDate, t.EndDate, t.PricePerDay
	return models.Message{
		Sender:      sender,
		Kind:        models.KindOffer,
		BookingID:   bookingID,
		StartDate:   &start,
		EndDate:     &end,
		PricePerDay: &price,
		Text: fmt.Sprintf("📝 Booking offer sent from %s to %s at $%s/day",
			start, end, formatPrice(price)),
	}
}

// EncodeInfo builds an info message for accept/cancel/update/pay/complete events.
func EncodeInfo(sender string, info Info) models.Message {
	msg := models.Message{
		Sender:      sender,
		Kind:        models.KindInfo,
		BookingID:   info.BookingID,
		Event:       info.Event,
		RenteeEmail: info.RenteeEmail,
		Text:        infoText(info),
	}
	if info.Terms != nil && info.Event == models.EventUpdated {
		start, end, price := info.Terms.StartDate, info.Terms.EndDate, info.Terms.PricePerDay
		msg.StartDate, msg.EndDate, msg.PricePerDay = &start, &end, &price
	}
	return msg
}

func infoText(info Info) string {
	switch info.Event {
	case models.EventUpdated:
		if info.Terms == nil {
			return "✏️ Booking request updated."
		}
		return fmt.Sprintf("✏️ Booking request updated to %s → %s at $%s/day.",
			info.Terms.StartDate, info.Terms.EndDate, formatPrice(info.Terms.PricePerDay))
	case models.EventAccepted:
		if info.Terms == nil {
			return "✅ Offer accepted. Please proceed to complete the payment."
		}
		return fmt.Sprintf("✅ Offer accepted: %s to %s at $%s/day. Please proceed to complete the payment.",
			info.Terms.StartDate, info.Terms.EndDate, formatPrice(info.Terms.PricePerDay))
	case models.EventCancelled:
		return "❌ Booking request has been cancelled."
	case models.EventPaid:
		return fmt.Sprintf("💳 Payment of $%s completed.", formatPrice(info.Amount))
	case models.EventCompleted:
		return "🎉 Rental completed. You can now leave a review for each other."
	default:
		return ""
	}
}

// Decode classifies a message. Untagged messages are plain chat; structured
// fields always win over body text, which is only read for legacy offers.
func Decode(m models.Message) Decoded {
	switch m.Kind {
	case models.KindOffer:
		d := Decoded{Kind: models.KindOffer, BookingID: m.BookingID}
		if t, ok := structuredTerms(m); ok {
			d.Terms = &t
		} else if t, ok := termsFromBody(m.Text); ok {
			d.Terms, d.FromBody = &t, true
		}
		return d
	case models.KindInfo:
		d := Decoded{Kind: models.KindInfo, BookingID: m.BookingID, Event: m.Event}
		if d.Event == "" {
			d.Event = models.EventUnknown
		}
		if t, ok := structuredTerms(m); ok {
			d.Terms = &t
		}
		return d
	default:
		return Decoded{Kind: models.KindPlain}
	}
}

func structuredTerms(m models.Message) (models.Terms, bool) {
	if m.StartDate == nil || m.EndDate == nil || m.PricePerDay == nil {
		return models.Terms{}, false
	}
	return models.Terms{StartDate: *m.StartDate, EndDate: *m.EndDate, PricePerDay: *m.PricePerDay}, true
}

var legacyOfferBody = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})\s*(?:to|→)\s*(\d{4}-\d{2}-\d{2}) at \$([0-9]+(?:\.[0-9]+)?)/day`)

func termsFromBody(text string) (models.Terms, bool) {
	m := legacyOfferBody.FindStringSubmatch(text)
	if m == nil {
		return models.Terms{}, false
	}
	start, err := models.ParseDate(m[1])
	if err != nil {
		return models.Terms{}, false
	}
	end, err := models.ParseDate(m[2])
	if err != nil {
		return models.Terms{}, false
	}
	price, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return models.Terms{}, false
	}
	return models.Terms{StartDate: start, EndDate: end, PricePerDay: price}, true
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
