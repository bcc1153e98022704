package provider

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/libdns/libdns"
)

const (
	TypeA    = "A"
	TypeAAAA = "AAAA"
)

// Zone is the subset of a DNS provider API the updater needs. ListRecords
// must return every address record at name without requiring the caller
// to paginate. Implementations need not be safe for concurrent writes to
// the same record.
type Zone interface {
	ListRecords(ctx context.Context, name string) ([]Record, error)
	CreateRecord(ctx context.Context, name string, addr netip.Addr, ttl int) error
	// UpdateRecord rewrites record's content to addr, keeping its ID, TTL
	// and proxy flag.
	UpdateRecord(ctx context.Context, record Record, addr netip.Addr) error
	DeleteRecord(ctx context.Context, record Record) error
}

// Record is an existing A or AAAA record. The embedded address carries the
// name, TTL and IP; ID and Proxied are provider attributes.
type Record struct {
	ID      string
	Proxied bool
	libdns.Address
}

// Type is "A" or "AAAA", derived from the held IP.
func (r Record) Type() string {
	return r.RR().Type
}

// RecordType returns the record type that holds addr.
func RecordType(addr netip.Addr) string {
	if addr.Is4() {
		return TypeA
	}
	return TypeAAAA
}

// IsAddressType reports whether recordType takes part in reconciliation.
func IsAddressType(recordType string) bool {
	return recordType == TypeA || recordType == TypeAAAA
}

// ParseAddress parses the content of an A or AAAA record. The address
// family must agree with the record type.
func ParseAddress(recordType, content string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(content)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("fail parse ip addr %s, err=%w", content, err)
	}
	switch recordType {
	case TypeA:
		if !addr.Is4() {
			return netip.Addr{}, fmt.Errorf("content %s is not an IPv4 address", content)
		}
	case TypeAAAA:
		if !addr.Is6() {
			return netip.Addr{}, fmt.Errorf("content %s is not an IPv6 address", content)
		}
	default:
		return netip.Addr{}, fmt.Errorf("unsupported record type %s", recordType)
	}
	return addr, nil
}
