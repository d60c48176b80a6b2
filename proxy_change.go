package rpcontract

import (
	"time"

	"github.com/google/uuid"
)

// ProxyChange is the notification published when a proxy is persisted,
// updated or deleted.
type ProxyChange struct {
	// ID uniquely identifies the notification.
	ID uuid.UUID `json:"id"`

	// Operation is encoded by its tag ("PERSIST", "UPDATE", "DELETE").
	Operation WriteOperationKind `json:"operation"`

	// ProxyType is the qualified name of the proxy interface.
	ProxyType string `json:"proxyType"`

	// ProxyID is the stable identifier of the changed proxy.
	ProxyID string `json:"proxyId"`

	// Version is the server version the change was observed at, if any.
	Version string `json:"version,omitempty"`

	Time time.Time `json:"time"`
}

// NewProxyChange returns a notification with a fresh ID stamped at now.
func NewProxyChange(op WriteOperationKind, proxyType, proxyID string) ProxyChange {
	return ProxyChange{
		ID:        uuid.New(),
		Operation: op,
		ProxyType: proxyType,
		ProxyID:   proxyID,
		Time:      time.Now().UTC(),
	}
}
