package mailer

import (
	"fmt"

	"github.com/nimasrn/inquiry-desk/internal/model"
)

// reasonCopy is the reason-specific wording of both notifications.
type reasonCopy struct {
	userSubject string
	headline    string
	nextSteps   []string
}

var reasonCopies = map[model.Reason]reasonCopy{
	model.ReasonGeneralEnquiry: {
		userSubject: "Thank you for contacting %s",
		headline:    "Thank you for your inquiry! Our team will get back to you within 24 hours.",
		nextSteps: []string{
			"A member of our team will review your message.",
			"We will reply by email or phone within 24 hours.",
		},
	},
	model.ReasonBuyBike: {
		userSubject: "Thank you for your interest in buying a bike - %s",
		headline:    "Thank you for your interest in buying a bike! Our sales team will contact you soon with available options.",
		nextSteps: []string{
			"Our sales team will shortlist bikes that match your request.",
			"We will share prices and arrange a test ride at your convenience.",
		},
	},
	model.ReasonSellBike: {
		userSubject: "Thank you for choosing %s to sell your bike",
		headline:    "Thank you for choosing us to sell your bike! We'll contact you within 24 hours for evaluation.",
		nextSteps: []string{
			"We will call you within 24 hours to schedule an evaluation.",
			"Please keep the RC book, insurance and service records ready.",
		},
	},
	model.ReasonExchangeBike: {
		userSubject: "Thank you for your bike exchange inquiry - %s",
		headline:    "Thank you for your exchange inquiry! We'll contact you soon to discuss exchange options.",
		nextSteps: []string{
			"We will evaluate your current bike and share an exchange value.",
			"Our team will suggest bikes you can upgrade to.",
		},
	},
	model.ReasonRTOService: {
		userSubject: "Thank you for your RTO service inquiry - %s",
		headline:    "Thank you for your RTO service inquiry! Our team will assist you with the documentation process.",
		nextSteps: []string{
			"Our documentation desk will list the papers required for your request.",
			"We will guide you through ownership transfer or registration.",
		},
	},
	model.ReasonOthers: {
		userSubject: "Thank you for contacting %s",
		headline:    "Thank you for contacting us! We'll respond to your inquiry as soon as possible.",
		nextSteps: []string{
			"A member of our team will review your message and respond soon.",
		},
	},
}

var fallbackCopy = reasonCopy{
	userSubject: "Thank you for contacting %s",
	headline:    "Thank you for contacting us! We will get back to you soon.",
	nextSteps: []string{
		"A member of our team will review your message and respond soon.",
	},
}

func copyFor(r model.Reason) (reasonCopy, bool) {
	c, ok := reasonCopies[r]
	if !ok {
		return fallbackCopy, false
	}
	return c, true
}

// OperatorSubject is the subject of the internal notification for reason r.
func OperatorSubject(site string, r model.Reason) string {
	if !r.Valid() {
		return "New Inquiry - " + site
	}
	return "New " + r.Label() + " Inquiry - " + site
}

// UserSubject is the subject of the confirmation sent to the submitter.
func UserSubject(site string, r model.Reason) string {
	c, _ := copyFor(r)
	return fmt.Sprintf(c.userSubject, site)
}

// Headline is the confirmation wording for reason r, shared with the web flow.
func Headline(r model.Reason) string {
	c, _ := copyFor(r)
	return c.headline
}
