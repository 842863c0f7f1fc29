package generator

import "fmt"

// SystemPrompt is sent as the system turn of every generation request.
const SystemPrompt = "You are a shopping list generator. Provide only essential items for events " +
	"without any introductions, explanations, or conclusions. Return only a numbered list of necessary items."

// BuildPrompt returns the user turn for an event.
func BuildPrompt(event string) string {
	return fmt.Sprintf("Generate a list of only the essential items needed for a %s. "+
		"Return ONLY a numbered list of items with no introduction or conclusion. "+
		"Keep the list concise with only necessary items.", event)
}
