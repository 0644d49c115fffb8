// internal/service/segmentation/prompt.go
package segmentation

import (
	"fmt"
	"strings"

	"wa-insights-service/internal/domain/segment"
)

const systemInstruction = `You are a customer analytics assistant for a business that talks to its customers on WhatsApp.
You classify each customer into exactly one segment and answer with a single JSON object and nothing else.`

// buildPrompt renders the digest and the allowed labels into the classifier prompt.
func buildPrompt(d *segment.Digest) string {
	var b strings.Builder

	b.WriteString("Classify the following customer.\n\n")
	b.WriteString("CUSTOMER PROFILE\n")
	fmt.Fprintf(&b, "- Name: %s\n", d.Name)
	fmt.Fprintf(&b, "- Total messages: %d\n", d.TotalMessages)
	fmt.Fprintf(&b, "- First message: %s\n", d.FirstMessageAt.UTC().Format("2006-01-02"))
	fmt.Fprintf(&b, "- Last message: %s\n", d.LastMessageAt.UTC().Format("2006-01-02"))
	fmt.Fprintf(&b, "- Days as customer: %d\n", d.DaysAsCustomer)
	fmt.Fprintf(&b, "- Days since last message: %d\n", d.DaysSinceLastMessage)
	fmt.Fprintf(&b, "- Messages per day: %.2f\n", d.MessagesPerDay)
	fmt.Fprintf(&b, "- Chat sessions: %d (avg %.2f messages per session)\n", d.SessionCount, d.AvgMessagesPerSession)
	fmt.Fprintf(&b, "- Average response time to business messages: %.0f seconds\n", d.AvgResponseSeconds)

	if len(d.PeakHours) > 0 {
		hours := make([]string, 0, len(d.PeakHours))
		for _, h := range d.PeakHours {
			hours = append(hours, fmt.Sprintf("%02d:00 (%d)", h.Hour, h.Count))
		}
		fmt.Fprintf(&b, "- Most active hours (UTC): %s\n", strings.Join(hours, ", "))
	}
	if len(d.TopWords) > 0 {
		words := make([]string, 0, len(d.TopWords))
		for _, w := range d.TopWords {
			words = append(words, fmt.Sprintf("%s (%d)", w.Word, w.Count))
		}
		fmt.Fprintf(&b, "- Frequent words: %s\n", strings.Join(words, ", "))
	}
	if d.CurrentSegment != nil {
		fmt.Fprintf(&b, "- Previous segment: %s\n", *d.CurrentSegment)
	}

	if len(d.RecentMessages) > 0 {
		b.WriteString("\nRECENT MESSAGES (newest first)\n")
		for _, m := range d.RecentMessages {
			fmt.Fprintf(&b, "- %s\n", truncate(m, 280))
		}
	}

	b.WriteString("\nSEGMENTS\n")
	for _, l := range segment.Labels {
		fmt.Fprintf(&b, "- %s: %s\n", l, l.Description())
	}

	b.WriteString(`
Respond with JSON only, in exactly this shape:
{"segment": "<one of the segments above>", "confidence": <number between 0 and 1>, "reasoning": "<one or two sentences>", "characteristics": ["<short trait>", "..."]}`)

	return b.String()
}

func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
