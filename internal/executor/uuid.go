package executor

import "regexp"

// Command UUID extraction patterns, tried in order. The first match
// wins; no match is not an error.
var (
	// JSON format: "command_uuid": "xxx"
	uuidJSONPattern = regexp.MustCompile(`(?i)"command_uuid"\s*:\s*"([a-f0-9-]+)"`)

	// Plain UUID after a command_uuid keyword
	uuidKeyPattern = regexp.MustCompile(`(?i)command_uuid["\s:]+([a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12})`)

	// "Command UUID:" format emitted by shell scripts
	uuidHumanPattern = regexp.MustCompile(`(?i)Command\s+UUID:\s*([a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12})`)
)

// ExtractCommandUUID extracts a command UUID from dispatch output.
// Returns an empty string when no pattern matches.
func ExtractCommandUUID(output string) string {
	for _, pattern := range []*regexp.Regexp{uuidJSONPattern, uuidKeyPattern, uuidHumanPattern} {
		if m := pattern.FindStringSubmatch(output); m != nil {
			return m[1]
		}
	}
	return ""
}
