package auth

import (
	"strings"

	"github.com/miekg/dns"
)

// Name is a caller-supplied hostname in both forms used downstream: the
// bare host is the credential key, the FQDN is the record name.
type Name struct {
	Host string
	FQDN string
}

type Normalizer struct {
	suffix string // always starts with "."
}

func NewNormalizer(domainSuffix string) Normalizer {
	if !strings.HasPrefix(domainSuffix, ".") {
		domainSuffix = "." + domainSuffix
	}
	return Normalizer{suffix: domainSuffix}
}

func (n Normalizer) Suffix() string {
	return n.suffix
}

// Normalize strips one trailing dot and then the domain suffix, if present.
// An empty result or a name that is not a valid domain name is reported as
// ErrUnauthorized.
func (n Normalizer) Normalize(raw string) (Name, error) {
	host := strings.TrimSuffix(raw, ".")
	if len(host) >= len(n.suffix) && strings.EqualFold(host[len(host)-len(n.suffix):], n.suffix) {
		host = host[:len(host)-len(n.suffix)]
	}
	if host == "" {
		return Name{}, ErrUnauthorized
	}

	fqdn := host + n.suffix
	if _, ok := dns.IsDomainName(fqdn); !ok {
		return Name{}, ErrUnauthorized
	}
	return Name{Host: host, FQDN: fqdn}, nil
}
