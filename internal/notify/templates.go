package notify

import "strings"

// Message templates keyed by the transition that triggers them. Template
// text is presentation only; the engine's contract is one dispatch attempt
// per qualifying transition regardless of wording.
const templateCalled = "{store}: it's your turn! Ticket #{id} ({name}), please come to the counter within 5 minutes."

func renderTemplate(template string, vars map[string]string) string {
	result := template
	for key, value := range vars {
		result = strings.ReplaceAll(result, "{"+key+"}", value)
	}
	return result
}
