package translation

import (
	"fmt"
	"strings"
)

// AutoFormat stands in for a blank input format.
const AutoFormat = "auto"

const promptTemplate = "Translate this input of format %s to format %s. Don't explain anything, be concise, write only the translation.\nInput:\n%s"

// ResolveInputFormat trims raw and falls back to AutoFormat when nothing
// is left.
func ResolveInputFormat(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return AutoFormat
	}
	return trimmed
}

// BuildPrompt renders the instruction sent to the model. The output format
// and input are used verbatim.
func BuildPrompt(input, inputFormat, outputFormat string) string {
	return fmt.Sprintf(promptTemplate, ResolveInputFormat(inputFormat), outputFormat, input)
}
