package cloudflare

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/cloudflare/cloudflare-go"
	"github.com/evanofslack/cf-ddns/internal/config"
	"github.com/evanofslack/cf-ddns/internal/metrics"
	"github.com/evanofslack/cf-ddns/internal/provider"
	"github.com/libdns/libdns"
)

type CloudflareProvider struct {
	client  *cloudflare.API
	metrics *metrics.Metrics
	zoneID  string
}

// New builds a client for a single zone. When no zone id is configured it
// is resolved once from the zone name.
func New(cfg config.DNS, metrics *metrics.Metrics, opts ...cloudflare.Option) (*CloudflareProvider, error) {
	token := cfg.Token
	if token == "" {
		return nil, fmt.Errorf("cloudflare API token required")
	}

	client, err := cloudflare.NewWithAPIToken(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Cloudflare client: %w", err)
	}

	zoneID := cfg.ZoneID
	if zoneID == "" {
		if cfg.Zone == "" {
			return nil, fmt.Errorf("cloudflare zone id or zone name required")
		}
		zoneID, err = client.ZoneIDByName(cfg.Zone)
		if err != nil {
			return nil, fmt.Errorf("failed to get zone ID for %s: %w", cfg.Zone, err)
		}
		slog.Info("Resolved zone", "zone", cfg.Zone, "zone_id", zoneID)
	}

	return &CloudflareProvider{
		client:  client,
		metrics: metrics,
		zoneID:  zoneID,
	}, nil
}

func (p *CloudflareProvider) ZoneID() string {
	return p.zoneID
}

// ListRecords returns the A and AAAA records named exactly name. The client
// follows pagination because neither Page nor PerPage is set.
func (p *CloudflareProvider) ListRecords(ctx context.Context, name string) ([]provider.Record, error) {
	slog.Debug("Getting DNS records", "name", name)
	start := time.Now()

	rc := cloudflare.ZoneIdentifier(p.zoneID)
	records, _, err := p.client.ListDNSRecords(ctx, rc, cloudflare.ListDNSRecordsParams{Name: name})
	if err != nil {
		p.metrics.IncDNSRequest("read", false)
		return nil, provider.WrapError("read", name, fmt.Errorf("failed to list DNS records: %w", err))
	}
	p.metrics.IncDNSRequest("read", true)

	var result []provider.Record
	for _, r := range records {
		if !provider.IsAddressType(r.Type) || !strings.EqualFold(r.Name, name) {
			continue
		}
		addr, err := provider.ParseAddress(r.Type, r.Content)
		if err != nil {
			slog.Warn("Skipping record with unparsable content", "id", r.ID, "name", r.Name, "type", r.Type, "error", err)
			continue
		}
		result = append(result, provider.Record{
			ID:      r.ID,
			Proxied: r.Proxied != nil && *r.Proxied,
			Address: libdns.Address{
				Name: r.Name,
				TTL:  time.Duration(r.TTL) * time.Second,
				IP:   addr,
			},
		})
	}

	slog.Debug("Retrieved DNS records", "name", name, "count", len(result), "duration", time.Since(start))
	return result, nil
}

func (p *CloudflareProvider) CreateRecord(ctx context.Context, name string, addr netip.Addr, ttl int) error {
	recordType := provider.RecordType(addr)
	slog.Info("Creating DNS record", "name", name, "type", recordType, "data", addr.String(), "ttl", ttl)
	start := time.Now()

	params := cloudflare.CreateDNSRecordParams{
		Type:    recordType,
		Name:    name,
		Content: addr.String(),
		TTL:     ttl,
	}

	_, err := p.client.CreateDNSRecord(ctx, cloudflare.ZoneIdentifier(p.zoneID), params)
	if err != nil {
		p.metrics.IncDNSRequest("create", false)
		return provider.WrapError("create", name, fmt.Errorf("failed to create DNS record: %w", err))
	}

	p.metrics.IncDNSRequest("create", true)
	slog.Debug("Created DNS record", "name", name, "type", recordType, "duration", time.Since(start))
	return nil
}

// UpdateRecord points an existing record at addr. The record type follows
// the new address, so an A record can become AAAA in place.
func (p *CloudflareProvider) UpdateRecord(ctx context.Context, record provider.Record, addr netip.Addr) error {
	recordType := provider.RecordType(addr)
	slog.Info("Updating DNS record", "id", record.ID, "name", record.Name, "type", recordType, "from", record.IP.String(), "data", addr.String())
	start := time.Now()

	proxied := record.Proxied
	params := cloudflare.UpdateDNSRecordParams{
		ID:      record.ID,
		Type:    recordType,
		Name:    record.Name,
		Content: addr.String(),
		TTL:     int(record.TTL.Seconds()),
		Proxied: &proxied,
	}

	_, err := p.client.UpdateDNSRecord(ctx, cloudflare.ZoneIdentifier(p.zoneID), params)
	if err != nil {
		p.metrics.IncDNSRequest("update", false)
		return provider.WrapError("update", record.Name, fmt.Errorf("failed to update DNS record %s: %w", record.ID, err))
	}

	p.metrics.IncDNSRequest("update", true)
	slog.Debug("Updated DNS record", "id", record.ID, "name", record.Name, "duration", time.Since(start))
	return nil
}

func (p *CloudflareProvider) DeleteRecord(ctx context.Context, record provider.Record) error {
	slog.Info("Deleting DNS record", "id", record.ID, "name", record.Name, "type", record.Type(), "data", record.IP.String())
	start := time.Now()

	err := p.client.DeleteDNSRecord(ctx, cloudflare.ZoneIdentifier(p.zoneID), record.ID)
	if err != nil {
		p.metrics.IncDNSRequest("delete", false)
		return provider.WrapError("delete", record.Name, fmt.Errorf("failed to delete DNS record %s: %w", record.ID, err))
	}

	p.metrics.IncDNSRequest("delete", true)
	slog.Debug("Deleted DNS record", "id", record.ID, "name", record.Name, "duration", time.Since(start))
	return nil
}
