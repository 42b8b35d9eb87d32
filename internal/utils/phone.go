package utils

import (
	"regexp"
	"strings"
)

var nonDigitRe = regexp.MustCompile(`[^\d+]`)

// NormalizePhone canonicalizes a WhatsApp sender into E.164. Channel prefixes
// are stripped and bare local numbers get the Cameroon country code.
func NormalizePhone(raw string) string {
	phone := strings.TrimPrefix(strings.TrimSpace(raw), "whatsapp:")
	phone = nonDigitRe.ReplaceAllString(phone, "")

	if phone == "" {
		return ""
	}
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	if strings.HasPrefix(phone, "00") {
		return "+" + phone[2:]
	}
	// Cameroon mobile numbers are 9 digits starting with 6
	if len(phone) == 9 && phone[0] == '6' {
		return "+237" + phone
	}
	return "+" + phone
}
