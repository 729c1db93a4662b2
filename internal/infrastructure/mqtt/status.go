package mqtt

import (
	"encoding/json"
	"time"
)

const (
	statusOnline  = "online"
	statusOffline = "offline"

	reasonLost     = "unexpected_disconnect"
	reasonShutdown = "graceful_shutdown"
)

// Status is the retained payload on winston/system/status.
type Status struct {
	Status    string    `json:"status"`
	ClientID  string    `json:"client_id"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func statusPayload(clientID, state, reason string) []byte {
	payload, _ := json.Marshal(Status{ //nolint:errchkjson // fixed shape
		Status:    state,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC().Truncate(time.Second),
	})
	return payload
}
