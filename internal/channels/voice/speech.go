// Package voice adapts Twilio telephony webhooks to the conversation
// engine. A phone call arrives as a sequence of independent webhook
// invocations correlated by call SID, so per-call state lives in the Redis
// session store between turns.
package voice

import (
	"regexp"
	"strings"
)

// ExitPhrases end a call when found in the reply or the caller's utterance.
// Substring match, case-insensitive. English and Arabic only; other
// languages never trigger end-of-call detection.
var ExitPhrases = []string{
	"goodbye",
	"bye",
	"مع السلامة",
	"شكراً",
	"thank you",
	"have a nice day",
	"see you",
	"thanks for calling",
}

var (
	emojiRe      = regexp.MustCompile(`[\x{1F300}-\x{1F9FF}\x{2600}-\x{26FF}\x{2700}-\x{27BF}]`)
	boldRe       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicRe     = regexp.MustCompile(`\*([^*]+)\*`)
	urlRe        = regexp.MustCompile(`https?://[^\s]+`)
	hashTokenRe  = regexp.MustCompile(`#+[^\s]*`)
	bulletRe     = regexp.MustCompile(`(?m)^[-*]\s+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	arabicRe     = regexp.MustCompile(`[\x{0600}-\x{06FF}]`)
)

// CleanForSpeech strips emoji, markdown emphasis, heading/hashtag tokens,
// list bullets, and URLs, then collapses whitespace. The speech engine
// renders none of those.
func CleanForSpeech(text string) string {
	text = emojiRe.ReplaceAllString(text, "")
	text = boldRe.ReplaceAllString(text, "$1")
	text = italicRe.ReplaceAllString(text, "$1")
	text = urlRe.ReplaceAllString(text, "")
	text = hashTokenRe.ReplaceAllString(text, "")
	text = bulletRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// ShouldEndCall reports whether the exchange signals end of call.
func ShouldEndCall(reply, userInput string) bool {
	lowerReply := strings.ToLower(reply)
	lowerInput := strings.ToLower(userInput)
	for _, phrase := range ExitPhrases {
		if strings.Contains(lowerReply, phrase) || strings.Contains(lowerInput, phrase) {
			return true
		}
	}
	return false
}

// DetectLanguage classifies text as Arabic or English by character ratio.
func DetectLanguage(text string) string {
	stripped := whitespaceRe.ReplaceAllString(text, "")
	if stripped == "" {
		return "en"
	}
	arabic := len(arabicRe.FindAllString(stripped, -1))
	total := len([]rune(stripped))
	if float64(arabic)/float64(total) > 0.3 {
		return "ar"
	}
	return "en"
}
