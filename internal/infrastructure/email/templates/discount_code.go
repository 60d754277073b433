package templates

import (
	"fmt"
	"strings"
	"time"
)

type DiscountCodeEmailProps struct {
	Code           string
	PercentOff     int
	ExpiresAt      time.Time
	TicketsURL     string
	DiscountedFrom string // optional "CHF 249.00 → CHF 224.10" style preview
}

// GetDiscountCodeEmailContent builds the body of the "here is your code" email.
func GetDiscountCodeEmailContent(props DiscountCodeEmailProps) string {
	var b strings.Builder
	b.WriteString(GetParagraph("Here is your ZurichJS Conf ticket discount."))
	b.WriteString(GetCodeBlock(props.Code))
	b.WriteString(GetParagraph(fmt.Sprintf("It takes %d%% off your ticket and is valid until %s.",
		props.PercentOff, props.ExpiresAt.UTC().Format("Monday 2 January 2006, 15:04 MST"))))
	if props.DiscountedFrom != "" {
		b.WriteString(GetParagraph(props.DiscountedFrom))
	}
	b.WriteString(GetButton(ButtonProps{Text: "Get your ticket", URL: props.TicketsURL}))
	b.WriteString(GetParagraph("Enter the code at checkout. It can be used once."))
	return b.String()
}
