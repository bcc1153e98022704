package provider

import (
	"errors"
	"fmt"
	"net/netip"
	"testing"
	"time"

	"github.com/libdns/libdns"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name       string
		recordType string
		content    string
		want       string
		wantErr    bool
	}{
		{"ipv4 A", TypeA, "1.2.3.4", "1.2.3.4", false},
		{"ipv6 AAAA", TypeAAAA, "2001:db8::1", "2001:db8::1", false},
		{"ipv6 in A", TypeA, "2001:db8::1", "", true},
		{"ipv4 in AAAA", TypeAAAA, "1.2.3.4", "", true},
		{"mapped ipv4 in AAAA", TypeAAAA, "::ffff:1.2.3.4", "::ffff:1.2.3.4", false},
		{"garbage", TypeA, "not-an-ip", "", true},
		{"cname", "CNAME", "1.2.3.4", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAddress(tt.recordType, tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRecordType(t *testing.T) {
	if got := RecordType(netip.MustParseAddr("10.0.0.1")); got != TypeA {
		t.Errorf("RecordType(v4) = %s, want A", got)
	}
	if got := RecordType(netip.MustParseAddr("fd00::1")); got != TypeAAAA {
		t.Errorf("RecordType(v6) = %s, want AAAA", got)
	}
	if got := RecordType(netip.MustParseAddr("::ffff:10.0.0.1")); got != TypeAAAA {
		t.Errorf("RecordType(mapped) = %s, want AAAA", got)
	}
}

func TestRecordTypeFollowsAddress(t *testing.T) {
	r := Record{
		ID:      "abc",
		Proxied: true,
		Address: libdns.Address{Name: "host.example.com", TTL: 5 * time.Minute, IP: netip.MustParseAddr("2001:db8::1")},
	}
	if r.Type() != TypeAAAA {
		t.Errorf("Type() = %s, want AAAA", r.Type())
	}
	rr := r.RR()
	if rr.Data != "2001:db8::1" || rr.Name != "host.example.com" || rr.TTL != 5*time.Minute {
		t.Errorf("RR() = %+v", rr)
	}
}

func TestIsAddressType(t *testing.T) {
	for _, rt := range []string{"A", "AAAA"} {
		if !IsAddressType(rt) {
			t.Errorf("IsAddressType(%s) = false", rt)
		}
	}
	for _, rt := range []string{"CNAME", "TXT", "MX", "a", ""} {
		if IsAddressType(rt) {
			t.Errorf("IsAddressType(%q) = true", rt)
		}
	}
}

func TestWrapError(t *testing.T) {
	if WrapError("create", "host.example.com", nil) != nil {
		t.Fatal("WrapError(nil) should be nil")
	}

	base := errors.New("rate limited")
	err := WrapError("update", "host.example.com", base)
	if !errors.Is(err, base) {
		t.Error("wrapped error should unwrap to base")
	}
	if !IsProviderError(err) {
		t.Error("IsProviderError = false")
	}
	want := "dns provider update host.example.com: rate limited"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	again := WrapError("delete", "other", fmt.Errorf("outer: %w", err))
	var pe *ProviderError
	if !errors.As(again, &pe) || pe.Operation != "update" {
		t.Errorf("rewrapping should keep the first operation, got %v", again)
	}
	if IsProviderError(errors.New("plain")) {
		t.Error("plain error reported as provider error")
	}
}
