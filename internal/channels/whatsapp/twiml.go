// Package whatsapp adapts Twilio WhatsApp webhooks to the conversation
// engine: inbound form payloads in, inline TwiML replies out, plus a REST
// sender for human-initiated messages.
package whatsapp

import "strings"

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// escapeXML escapes the five XML special characters for TwiML bodies.
func escapeXML(text string) string {
	return xmlEscaper.Replace(text)
}

// MessageTwiML renders an inline reply the Twilio gateway delivers back to
// the sender.
func MessageTwiML(message string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<Response>
  <Message>` + escapeXML(message) + `</Message>
</Response>`
}

// EmptyTwiML acknowledges a webhook without sending a reply.
func EmptyTwiML() string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<Response></Response>`
}
