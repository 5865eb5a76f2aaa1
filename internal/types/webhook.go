package types

// Status sentinels reported by devices in webhook events
const (
	StatusAcknowledged = "Acknowledged"
	StatusError        = "Error"
	StatusNotNow       = "NotNow"
)

// PollResponse represents the parsed outcome of a located webhook event
// block. A fresh instance is constructed per poll attempt that finds a
// matching block; the raw log remains the source of truth.
type PollResponse struct {
	Success     bool             `json:"success"`
	CommandUUID string           `json:"command_uuid,omitempty"`
	Status      string           `json:"status,omitempty"`
	UDID        string           `json:"udid,omitempty"`
	Topic       string           `json:"topic,omitempty"`
	RequestType string           `json:"request_type,omitempty"`
	Data        map[string]Value `json:"data,omitempty"`
	Raw         string           `json:"raw,omitempty"`
	Error       string           `json:"error,omitempty"`
	Deferred    bool             `json:"deferred"`
}

// Block is a contiguous run of webhook log lines between two delimiter
// lines, or between the window start and the first delimiter.
type Block struct {
	Lines []string
}

// Text joins the block lines back into raw text
func (b Block) Text() string {
	out := ""
	for i, line := range b.Lines {
		if i > 0 {
			out += "\n"
		}
		out += line
	}
	return out
}
