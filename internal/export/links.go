package export

import (
	"fmt"
	"net/url"
	"strings"

	"peopleconnect/internal/submission"
)

// DefaultMessage is the operator text prefilled for a record.
func DefaultMessage(id int64) string {
	return fmt.Sprintf("Regarding your submission #%d", id)
}

// WhatsAppLink builds a wa.me link. Only the digits of mobile are kept.
func WhatsAppLink(mobile, text string) string {
	return "https://wa.me/" + submission.MobileDigits(mobile) + "?text=" + queryText(text)
}

// SMSLink builds an sms: URI. The number keeps a leading + if present.
func SMSLink(mobile, text string) string {
	number := strings.TrimSpace(mobile)
	prefix := ""
	if strings.HasPrefix(number, "+") {
		prefix = "+"
	}
	return "sms:" + prefix + submission.MobileDigits(number) + "?body=" + queryText(text)
}

// queryText escapes text as a query value, spaces as %20.
func queryText(text string) string {
	return strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}
