package webhook

import (
	"strings"

	"nanohub/internal/types"
)

// infoTag prefixes informational key/value lines in event blocks
const infoTag = "[INFO]"

// BlockMatches reports whether a block references the given command
// UUID. Matching is case-insensitive.
func BlockMatches(block types.Block, commandUUID string) bool {
	needle := "command_uuid: " + strings.ToLower(commandUUID)
	return strings.Contains(strings.ToLower(block.Text()), needle)
}

// ParseBlock parses one event block into a PollResponse. A deferred
// sentinel short-circuits the scan; an error sentinel marks failure but
// keeps parsing so metadata fields are still collected. Malformed lines
// are skipped, never raised.
func ParseBlock(block types.Block, commandUUID string) *types.PollResponse {
	resp := &types.PollResponse{
		Success:     true,
		CommandUUID: commandUUID,
		Raw:         block.Text(),
		Data:        make(map[string]types.Value),
	}

	for _, line := range block.Lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Device deferred the command; expect a later event instead
		if strings.Contains(line, "Status: "+types.StatusNotNow) {
			resp.Deferred = true
			resp.Success = false
			resp.Status = types.StatusNotNow
			return resp
		}

		if strings.Contains(line, "Status: "+types.StatusError) {
			resp.Success = false
		}

		idx := strings.Index(line, infoTag)
		if idx < 0 {
			continue
		}
		content := strings.TrimSpace(line[idx+len(infoTag):])

		// Skip delimiter lines
		if strings.HasPrefix(content, "===") {
			continue
		}

		key, value, found := strings.Cut(content, ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}

		switch strings.ToLower(key) {
		case "status":
			resp.Status = value
		case "udid":
			resp.UDID = value
		case "topic":
			resp.Topic = value
		case "requesttype":
			resp.RequestType = value
		case "command_uuid":
			// consumed by correlation, not metadata
		default:
			resp.Data[key] = Coerce(value)
		}
	}

	return resp
}
