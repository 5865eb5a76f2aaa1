package webhook

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"nanohub/internal/types"
)

// datetimePattern matches the non-portable datetime constructor form
// some agents embed inside dict values; it is rewritten to a plain
// quoted string before structured decode
var datetimePattern = regexp.MustCompile(`datetime\.datetime\((\d+),\s*(\d+),\s*(\d+),\s*(\d+),\s*(\d+),\s*(\d+)\)`)

// Coerce converts a raw field value into a typed Value. The ladder is a
// totally ordered disambiguation policy, not type inference: boolean
// literals, then brace-delimited structures, then integers, then
// floats, then plain string. The first rule that matches wins.
func Coerce(value string) types.Value {
	switch strings.ToLower(value) {
	case "true", "yes", "1":
		return types.BoolValue(true)
	case "false", "no", "0":
		return types.BoolValue(false)
	}

	if strings.HasPrefix(value, "{") && strings.HasSuffix(value, "}") {
		if m, ok := decodeDict(value); ok {
			return types.MapValue(m)
		}
		return types.StringValue(value)
	}

	if !strings.Contains(value, ".") {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return types.IntValue(i)
		}
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return types.FloatValue(f)
	}

	return types.StringValue(value)
}

// decodeDict attempts a structured decode of a brace-delimited value.
// Agents emit these as Python-style dict reprs, so a JSON-compatible
// rewrite is tried when the literal decode fails. Failure is a "no
// match", never an error.
func decodeDict(value string) (map[string]any, bool) {
	clean := datetimePattern.ReplaceAllString(value, `"${1}-${2}-${3} ${4}:${5}:${6}"`)

	var m map[string]any
	if err := json.Unmarshal([]byte(clean), &m); err == nil {
		return m, true
	}

	jsonish := strings.NewReplacer(
		"'", `"`,
		"True", "true",
		"False", "false",
		"None", "null",
	).Replace(clean)

	if err := json.Unmarshal([]byte(jsonish), &m); err == nil {
		return m, true
	}
	return nil, false
}
