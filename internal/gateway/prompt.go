package gateway

const systemPrompt = "You are a helpful assistant. Be concise and accurate."

// EstimateTokens approximates the token count of text as ceil(len/4).
// Cheap and close enough for budget enforcement.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// TruncateMessages drops the oldest non-system messages until the running
// token estimate fits within 80% of maxTokens. System messages are always
// preserved; the 20% margin reserves room for the model's reply.
func TruncateMessages(messages []Message, maxTokens int) []Message {
	budget := maxTokens * 8 / 10

	total := 0
	var result []Message
	for _, m := range messages {
		if m.Role == "system" {
			total += EstimateTokens(m.Content)
			result = append(result, m)
		}
	}

	// Walk newest-first, prepending while the budget holds.
	var rest []Message
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role == "system" {
			continue
		}
		t := EstimateTokens(m.Content)
		if total+t > budget {
			break
		}
		rest = append([]Message{m}, rest...)
		total += t
	}

	return append(result, rest...)
}
