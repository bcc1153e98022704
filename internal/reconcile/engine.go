package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"slices"

	"github.com/evanofslack/cf-ddns/internal/config"
	"github.com/evanofslack/cf-ddns/internal/metrics"
	"github.com/evanofslack/cf-ddns/internal/provider"
)

type Engine struct {
	zone    provider.Zone
	ttl     int
	dryRun  bool
	metrics *metrics.Metrics
}

// NewEngine snapshots the record TTL and dry-run flag from cfg.
func NewEngine(zone provider.Zone, cfg *config.Config, metrics *metrics.Metrics) *Engine {
	return &Engine{
		zone:    zone,
		ttl:     cfg.DNS.RecordTTL(),
		dryRun:  cfg.Reconcile.DryRun,
		metrics: metrics,
	}
}

// Reconcile makes the A and AAAA records at fqdn hold exactly the desired
// addresses. Writes are issued one at a time after the listing completes,
// and the first failure stops the rest. Writes that already succeeded are
// kept.
func (e *Engine) Reconcile(ctx context.Context, fqdn string, desired []netip.Addr) (Results, error) {
	records, err := e.zone.ListRecords(ctx, fqdn)
	if err != nil {
		return Results{}, fmt.Errorf("list records: %w", err)
	}
	slog.Debug("Got records from dns provider", "name", fqdn, "count", len(records))

	plan := GeneratePlan(records, desired)
	if plan.IsEmpty() {
		slog.Info("Records already match", "name", fqdn, "addresses", len(desired))
		return Results{Outcome: NoChange}, nil
	}
	e.countPlan(plan)

	if e.dryRun {
		slog.Info("Dry run mode - would apply plan", "name", fqdn,
			"create", len(plan.Create), "update", len(plan.Update), "delete", len(plan.Delete))
		return Results{
			Outcome: Updated,
			Created: len(plan.Create),
			Updated: len(plan.Update),
			Deleted: len(plan.Delete),
			DryRun:  true,
		}, nil
	}

	results, err := e.executePlan(ctx, fqdn, plan)
	if err != nil {
		return results, fmt.Errorf("execute plan: %w", err)
	}
	slog.Info("Reconciled records", "name", fqdn,
		"created", results.Created, "updated", results.Updated, "deleted", results.Deleted)
	return results, nil
}

// GeneratePlan matches existing records against desired address for
// address. Leftover desired addresses are paired with leftover records by
// position: a pair becomes an update, an unpaired address a create and an
// unpaired record a delete. Pairing ignores the address family. Leftover
// addresses are paired in ascending order, records in listing order.
//
// Stale records are deleted even when every desired address already has a
// matching record. The plan is empty, and the outcome no-change, only when
// nothing is left over on either side.
func GeneratePlan(existing []provider.Record, desired []netip.Addr) Plan {
	want := make(map[netip.Addr]struct{}, len(desired))
	for _, addr := range desired {
		want[addr] = struct{}{}
	}

	var unmatched []provider.Record
	for _, r := range existing {
		if !r.IP.IsValid() {
			continue
		}
		if _, ok := want[r.IP]; ok {
			delete(want, r.IP)
			continue
		}
		unmatched = append(unmatched, r)
	}

	remaining := make([]netip.Addr, 0, len(want))
	for addr := range want {
		remaining = append(remaining, addr)
	}
	slices.SortFunc(remaining, func(a, b netip.Addr) int { return a.Compare(b) })

	var plan Plan
	n := min(len(remaining), len(unmatched))
	for i := 0; i < n; i++ {
		plan.Update = append(plan.Update, Change{Record: unmatched[i], Addr: remaining[i]})
	}
	plan.Create = append(plan.Create, remaining[n:]...)
	plan.Delete = append(plan.Delete, unmatched[n:]...)
	return plan
}

func (e *Engine) countPlan(plan Plan) {
	for _, addr := range plan.Create {
		e.metrics.IncDNSOperation("create", provider.RecordType(addr))
	}
	for _, c := range plan.Update {
		e.metrics.IncDNSOperation("update", provider.RecordType(c.Addr))
	}
	for _, r := range plan.Delete {
		e.metrics.IncDNSOperation("delete", r.Type())
	}
}

func (e *Engine) executePlan(ctx context.Context, fqdn string, plan Plan) (Results, error) {
	results := Results{Outcome: Updated}

	for _, c := range plan.Update {
		slog.Debug("Start execute update from plan", "id", c.Record.ID, "name", fqdn, "from", c.Record.IP.String(), "to", c.Addr.String())
		if err := e.zone.UpdateRecord(ctx, c.Record, c.Addr); err != nil {
			slog.Error("Failed to update record", "id", c.Record.ID, "name", fqdn, "error", err)
			return results, err
		}
		results.Updated++
	}

	for _, addr := range plan.Create {
		slog.Debug("Start execute create from plan", "name", fqdn, "data", addr.String())
		if err := e.zone.CreateRecord(ctx, fqdn, addr, e.ttl); err != nil {
			slog.Error("Failed to create record", "name", fqdn, "error", err)
			return results, err
		}
		results.Created++
	}

	for _, r := range plan.Delete {
		slog.Debug("Start execute delete from plan", "id", r.ID, "name", fqdn, "data", r.IP.String())
		if err := e.zone.DeleteRecord(ctx, r); err != nil {
			slog.Error("Failed to delete record", "id", r.ID, "name", fqdn, "error", err)
			return results, err
		}
		results.Deleted++
	}

	return results, nil
}
