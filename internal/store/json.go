package store

import (
	"encoding/json"

	"github.com/ordaro/shipping/pkg/carrier"
)

// Address and contact snapshots are stored as JSONB columns; they are
// point-in-time copies of the host records, not live references.

func unmarshalAddress(data []byte) (*carrier.Address, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var addr carrier.Address
	if err := json.Unmarshal(data, &addr); err != nil {
		return nil, err
	}
	return &addr, nil
}

func unmarshalContact(data []byte) (carrier.Contact, error) {
	var c carrier.Contact
	if len(data) == 0 {
		return c, nil
	}
	err := json.Unmarshal(data, &c)
	return c, err
}

// MarshalAddress encodes an address snapshot for the JSONB columns. A nil
// address becomes SQL NULL.
func MarshalAddress(addr *carrier.Address) ([]byte, error) {
	if addr == nil {
		return nil, nil
	}
	return json.Marshal(addr)
}

// MarshalContact encodes a contact snapshot for the JSONB columns.
func MarshalContact(c carrier.Contact) ([]byte, error) {
	return json.Marshal(c)
}
