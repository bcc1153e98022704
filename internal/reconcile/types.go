package reconcile

import (
	"net/netip"

	"github.com/evanofslack/cf-ddns/internal/provider"
)

type Outcome int

const (
	NoChange Outcome = iota
	Updated
)

func (o Outcome) String() string {
	if o == Updated {
		return "updated"
	}
	return "no-change"
}

// Change rewrites an existing record to a new address.
type Change struct {
	Record provider.Record
	Addr   netip.Addr
}

// Plan holds the writes needed to make a name's address records match the
// desired set. Matched records appear in none of the lists.
type Plan struct {
	Create []netip.Addr
	Update []Change
	Delete []provider.Record
}

func (p Plan) IsEmpty() bool {
	return len(p.Create) == 0 && len(p.Update) == 0 && len(p.Delete) == 0
}

type Results struct {
	Outcome Outcome
	Created int
	Updated int
	Deleted int
	DryRun  bool
}
