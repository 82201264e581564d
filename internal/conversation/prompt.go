package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/jawab-ai/jawab-platform/internal/tenancy"
)

// BuildSystemPrompt renders a tenant's operating data into the receptionist
// system prompt. Pure: the same tenant, channel, and clock always produce the
// same string. Sections render neutral placeholders when tenant fields are
// absent so the prompt structure stays stable for the model.
func BuildSystemPrompt(tenant *tenancy.Tenant, channel string, now time.Time) string {
	name := tenant.Name
	if strings.TrimSpace(name) == "" {
		name = "the business"
	}
	location := tenant.Location
	if strings.TrimSpace(location) == "" {
		location = "the UAE"
	}
	tone := tenant.Tone
	if tone == "" {
		tone = tenancy.ToneFriendly
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are the AI receptionist and sales assistant for %s, located in %s.\n\n", name, location)

	b.WriteString("## Your Personality\n")
	b.WriteString("You are warm, welcoming, and genuinely happy to help every customer. Think of yourself as the friendliest, most helpful receptionist who makes everyone feel like a VIP.\n\n")

	b.WriteString("## Your Identity\n")
	fmt.Fprintf(&b, "- Name: \"I'm the virtual assistant for %s - think of me as your friendly guide!\"\n", name)
	b.WriteString("- Role: Receptionist, booking assistant, and helpful sales advisor\n")
	fmt.Fprintf(&b, "- Tone: %s - always warm, never pushy\n\n", tone)

	b.WriteString("## Languages\n")
	b.WriteString("CRITICAL: Match the customer's language immediately.\n")
	b.WriteString("- If they write in Arabic, respond in Arabic (Gulf dialect preferred)\n")
	b.WriteString("- If they write in French, respond in French\n")
	b.WriteString("- If they write in English, respond in English\n")
	b.WriteString("- If they mix languages, respond in their dominant language, naturally mixing as they do\n\n")

	b.WriteString("## Services & Prices\n")
	b.WriteString(servicesSection(tenant.Services))
	b.WriteString("\n\n")

	b.WriteString("## Working Hours\n")
	b.WriteString(hoursSection(tenant.Hours))
	b.WriteString("\n\n")

	b.WriteString("## Location\n")
	b.WriteString(locationSection(tenant))
	b.WriteString("\n\n")

	b.WriteString("## Your Sales Approach (Gentle & Helpful)\n")
	b.WriteString("1. Listen first and understand what they really need\n")
	b.WriteString("2. Recommend thoughtfully, suggesting services that genuinely help them\n")
	b.WriteString("3. Highlight value and explain benefits, not just features\n")
	b.WriteString("4. Create urgency gently: \"We have a few slots available this week!\"\n")
	b.WriteString("5. Make booking easy and guide them smoothly to confirm\n\n")

	b.WriteString("## Golden Rules\n")
	b.WriteString("- Make every customer feel valued and welcome\n")
	b.WriteString("- Never be pushy or aggressive with sales\n")
	b.WriteString("- Never discuss competitors\n")
	b.WriteString("- Never make up information\n")
	b.WriteString("- Never share other customers' information\n")
	b.WriteString("- If someone is upset, empathize first, then offer solutions\n")
	b.WriteString("- If asked something outside your knowledge, offer to have someone call them\n\n")

	b.WriteString("## Custom FAQs\n")
	b.WriteString(faqsSection(tenant.FAQs))
	b.WriteString("\n\n")

	b.WriteString("## Current Context\n")
	fmt.Fprintf(&b, "Today is %s.\n", now.Format("Monday, January 2, 2006"))
	fmt.Fprintf(&b, "Current time: %s.\n", now.Format("03:04 PM"))

	if addendum := channelAddendum(channel); addendum != "" {
		b.WriteString("\n## Channel Instructions\n")
		b.WriteString(addendum)
		b.WriteString("\n")
	}

	return b.String()
}

func servicesSection(services []tenancy.Service) string {
	if len(services) == 0 {
		return "No services configured yet."
	}
	lines := make([]string, 0, len(services))
	for _, s := range services {
		currency := s.Currency
		if currency == "" {
			currency = "AED"
		}
		line := fmt.Sprintf("- %s", s.Name)
		if s.NameAr != "" {
			line += fmt.Sprintf(" (%s)", s.NameAr)
		}
		line += fmt.Sprintf(": %s %s (%d min)", formatPrice(s.Price), currency, s.DurationMin)
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func formatPrice(price float64) string {
	if price == float64(int64(price)) {
		return fmt.Sprintf("%d", int64(price))
	}
	return fmt.Sprintf("%.2f", price)
}

func hoursSection(hours tenancy.BusinessHours) string {
	lines := make([]string, 0, 7)
	for _, day := range hours.Days() {
		if day.Hours == nil {
			lines = append(lines, fmt.Sprintf("%s: Closed", day.Name))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s - %s", day.Name, day.Hours.Open, day.Hours.Close))
	}
	return strings.Join(lines, "\n")
}

func locationSection(tenant *tenancy.Tenant) string {
	var lines []string
	if strings.TrimSpace(tenant.Address) != "" {
		lines = append(lines, tenant.Address)
	} else {
		lines = append(lines, "Address not provided.")
	}
	if tenant.MapsLink != "" {
		lines = append(lines, "Google Maps: "+tenant.MapsLink)
	}
	if tenant.ParkingInfo != "" {
		lines = append(lines, "Parking: "+tenant.ParkingInfo)
	}
	return strings.Join(lines, "\n")
}

func faqsSection(faqs []tenancy.FAQ) string {
	if len(faqs) == 0 {
		return "No custom FAQs configured."
	}
	blocks := make([]string, 0, len(faqs))
	for _, faq := range faqs {
		blocks = append(blocks, fmt.Sprintf("Q: %s\nA: %s", faq.Question, faq.Answer))
	}
	return strings.Join(blocks, "\n\n")
}

func channelAddendum(channel string) string {
	switch channel {
	case ChannelVoice:
		return "This is a phone call. Keep every reply to 2-3 short sentences. Speak naturally. Do not use emoji, markdown, lists, or URLs."
	case ChannelInstagramComment, ChannelFacebookComment:
		return "This is a public comment reply. Keep it concise and friendly, and invite the customer to send a direct message or book. Do not share personal details in public."
	case ChannelMessenger, ChannelInstagramDM:
		return "This is a private direct message. Be detailed and personal. Use the customer's name when you know it."
	case ChannelWhatsApp:
		return "This is WhatsApp. Keep messages short and friendly, like texting a helpful friend. Use emoji naturally (1-2 per message)."
	default:
		return ""
	}
}
