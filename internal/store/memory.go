package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory is an in-memory implementation of ShipmentStore and AttachmentStore,
// used in tests and for mock-backed deployments.
type Memory struct {
	mu          sync.RWMutex
	shipments   map[string]*Shipment
	attachments map[string]*Attachment
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		shipments:   make(map[string]*Shipment),
		attachments: make(map[string]*Attachment),
	}
}

// PutShipment adds or replaces a shipment record.
func (m *Memory) PutShipment(s *Shipment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shipments[s.ID] = s
}

// GetShipment returns a copy of the shipment record.
func (m *Memory) GetShipment(ctx context.Context, id string) (*Shipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.shipments[id]
	if !ok {
		return nil, fmt.Errorf("shipment %s: %w", id, ErrNotFound)
	}
	cp := *s
	cp.Packages = append([]Package(nil), s.Packages...)
	return &cp, nil
}

// SetShipmentTracking writes the shipment-level tracking number.
func (m *Memory) SetShipmentTracking(ctx context.Context, id, trackingNumber string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shipments[id]
	if !ok {
		return fmt.Errorf("shipment %s: %w", id, ErrNotFound)
	}
	s.TrackingNumber = trackingNumber
	return nil
}

// SetPackageTracking writes one package-level tracking number.
func (m *Memory) SetPackageTracking(ctx context.Context, shipmentID, packageID, trackingNumber string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shipments[shipmentID]
	if !ok {
		return fmt.Errorf("shipment %s: %w", shipmentID, ErrNotFound)
	}
	for i := range s.Packages {
		if s.Packages[i].ID == packageID {
			s.Packages[i].TrackingNumber = trackingNumber
			return nil
		}
	}
	return fmt.Errorf("package %s: %w", packageID, ErrNotFound)
}

// AddAttachment stores a label document against a shipment.
func (m *Memory) AddAttachment(ctx context.Context, att *Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if att.CreatedAt.IsZero() {
		att.CreatedAt = time.Now()
	}
	m.attachments[att.ShipmentID+"/"+att.Name] = att
	return nil
}

// GetAttachment returns a stored attachment.
func (m *Memory) GetAttachment(ctx context.Context, shipmentID, name string) (*Attachment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	att, ok := m.attachments[shipmentID+"/"+name]
	if !ok {
		return nil, fmt.Errorf("attachment %s: %w", name, ErrNotFound)
	}
	return att, nil
}

// AttachmentCount returns the number of stored attachments.
func (m *Memory) AttachmentCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.attachments)
}

var (
	_ ShipmentStore   = (*Memory)(nil)
	_ AttachmentStore = (*Memory)(nil)
)
