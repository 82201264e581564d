package whatsapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageTwiML_EscapesSpecialCharacters(t *testing.T) {
	twiml := MessageTwiML(`Deals on "cuts" & <color> at Tony's`)

	assert.Contains(t, twiml, "Deals on &quot;cuts&quot; &amp; &lt;color&gt; at Tony&apos;s")
	assert.Contains(t, twiml, "<Response>")
	assert.Contains(t, twiml, "<Message>")
	assert.NotContains(t, twiml, "<color>")
}

func TestMessageTwiML_PlainText(t *testing.T) {
	twiml := MessageTwiML("Hi there! We open at 9am.")
	assert.Contains(t, twiml, "<Message>Hi there! We open at 9am.</Message>")
}

func TestEmptyTwiML(t *testing.T) {
	assert.Equal(t, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<Response></Response>", EmptyTwiML())
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "whatsapp:+971501234567", FormatNumber("+971501234567"))
	assert.Equal(t, "whatsapp:+971501234567", FormatNumber("whatsapp:+971501234567"))
	assert.Equal(t, "whatsapp:+971501234567", FormatNumber("971501234567"))
}
