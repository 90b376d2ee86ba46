package services

import (
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/VarunKoduru/CyberThreat-Guardian/internal/models"
)

const scanCompletedSubject = "scans.completed"

// EventBus publishes scan lifecycle events over NATS. The connection is
// optional at runtime: a nil *EventBus is safe to pass around and publishes
// nothing.
type EventBus struct {
	nc *nats.Conn
}

// ConnectNATS dials the NATS server with the usual reconnect policy.
func ConnectNATS(url string) (*EventBus, error) {
	nc, err := nats.Connect(url,
		nats.Name("cyberthreat-guardian"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("[NATS] disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[NATS] reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, err
	}

	log.Println("[NATS] connected at", url)
	return &EventBus{nc: nc}, nil
}

// ScanResolved publishes the terminal verdict of a scan. Consumers get the
// scan id and verdict, not the raw report.
func (b *EventBus) ScanResolved(scan *models.Scan) error {
	if b == nil || b.nc == nil || !b.nc.IsConnected() {
		return nil
	}

	event := map[string]interface{}{
		"scan_id":     scan.ID,
		"user_id":     scan.UserID,
		"scan_type":   scan.ScanType,
		"status":      scan.Status,
		"resolved_at": time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.nc.Publish(scanCompletedSubject, data)
}

// Close drains the connection.
func (b *EventBus) Close() {
	if b != nil && b.nc != nil && b.nc.IsConnected() {
		b.nc.Close()
	}
}
