package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanForSpeech_Fixture(t *testing.T) {
	assert.Equal(t, "Book now! Visit", CleanForSpeech("**Book now!** 😊 Visit https://x.com #now"))
}

func TestCleanForSpeech(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"markdown emphasis", "We have **great** deals on *color*", "We have great deals on color"},
		{"headers", "# Services\nHaircut and more", "Services Haircut and more"},
		{"bullets", "- Haircut\n- Manicure", "Haircut Manicure"},
		{"urls", "Book at https://jawab.example.com/book today", "Book at today"},
		{"emoji", "See you soon! 💇 ☀ ✂", "See you soon!"},
		{"whitespace collapse", "Hello    there\n\nfriend", "Hello there friend"},
		{"arabic untouched", "أهلاً وسهلاً بك", "أهلاً وسهلاً بك"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanForSpeech(tt.in))
		})
	}
}

func TestShouldEndCall(t *testing.T) {
	assert.True(t, ShouldEndCall("", "Thank you, goodbye"))
	assert.True(t, ShouldEndCall("Have a nice day!", ""))
	assert.True(t, ShouldEndCall("", "THANK YOU"))
	assert.True(t, ShouldEndCall("مع السلامة", ""))
	assert.True(t, ShouldEndCall("", "شكراً جزيلاً"))
	assert.False(t, ShouldEndCall("We open at 9am. Anything else?", "what are your hours"))
	// non-listed languages never trigger hangup
	assert.False(t, ShouldEndCall("", "au revoir"))
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "ar", DetectLanguage("أهلاً وسهلاً! كيف أقدر أساعدك؟"))
	assert.Equal(t, "en", DetectLanguage("Hello! How can I help you?"))
	assert.Equal(t, "en", DetectLanguage(""))
	// mostly English with a single Arabic word stays English
	assert.Equal(t, "en", DetectLanguage("The word مرحبا means hello in this long English sentence"))
}
