package events

import "fmt"

// CDPClientTopic builds a per-connection topic name for a CDP client's relay
// frames (responses and forwarded events). internal/relay does not use it:
// it publishes on one fixed topic per relay instance.
func CDPClientTopic(clientID string) string {
	return fmt.Sprintf("cdp.client.%s", clientID)
}
