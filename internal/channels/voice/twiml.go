package voice

import (
	"fmt"
	"strings"
)

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(text string) string {
	return xmlEscaper.Replace(text)
}

// voiceFor maps a language to the Polly voice and locale Twilio speaks with.
func voiceFor(language string) (voice, sayLang, gatherLang string) {
	if language == "ar" {
		return "Polly.Zeina", "ar-XA", "ar-SA"
	}
	return "Polly.Joanna", "en-US", "en-US"
}

func noInputFarewell(language string) string {
	if language == "ar" {
		return "لم أسمع شيء. مع السلامة!"
	}
	return "I didn't hear anything. Goodbye!"
}

// GatherTwiML speaks the text then keeps listening for the caller's next
// utterance. The trailing farewell plays only when the gather times out.
func GatherTwiML(text, language, actionPath string, timeoutSec int) string {
	if timeoutSec <= 0 {
		timeoutSec = 5
	}
	voice, sayLang, gatherLang := voiceFor(language)
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<Response>
  <Gather input="speech" timeout="%d" speechTimeout="auto" action="%s" method="POST" language="%s">
    <Say voice="%s" language="%s">%s</Say>
  </Gather>
  <Say voice="%s" language="%s">%s</Say>
  <Hangup/>
</Response>`,
		timeoutSec, actionPath, gatherLang,
		voice, sayLang, escapeXML(text),
		voice, sayLang, escapeXML(noInputFarewell(language)))
}

// HangupTwiML speaks the text then ends the call.
func HangupTwiML(text, language string) string {
	voice, sayLang, _ := voiceFor(language)
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<Response>
  <Say voice="%s" language="%s">%s</Say>
  <Hangup/>
</Response>`, voice, sayLang, escapeXML(text))
}
