package events

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// SubjectPrefix namespaces every lifecycle subject, e.g. a ticket.split
// event goes out on "pos.ticket.split".
const SubjectPrefix = "pos."

// NatsNotifier publishes lifecycle events as JSON messages on NATS
// subjects derived from the event type.
type NatsNotifier struct {
	conn   *nats.Conn
	logger *logrus.Logger
}

func NewNatsNotifier(conn *nats.Conn, logger *logrus.Logger) *NatsNotifier {
	return &NatsNotifier{conn: conn, logger: logger}
}

func (n *NatsNotifier) Publish(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Errorf("events: marshal %s for ticket %d: %v", event.Type, event.TicketID, err)
		return
	}

	if err := n.conn.Publish(SubjectPrefix+event.Type, payload); err != nil {
		// Best-effort side channel: log and move on, the operation that
		// produced the event has already committed.
		n.logger.Errorf("events: publish %s for ticket %d: %v", event.Type, event.TicketID, err)
	}
}
