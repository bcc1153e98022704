package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/evanofslack/cf-ddns/internal/auth"
	"github.com/evanofslack/cf-ddns/internal/config"
	"github.com/evanofslack/cf-ddns/internal/credential"
	"github.com/evanofslack/cf-ddns/internal/provider"
	"github.com/evanofslack/cf-ddns/internal/reconcile"
	"github.com/gin-gonic/gin"
)

// ErrCanceled is returned when the update task ends without delivering a
// result.
var ErrCanceled = errors.New("task canceled")

var errInvalidIP = errors.New("invalid ip address")

type updateRequest struct {
	hostname string
	password string
	addrs    []netip.Addr
}

type taskResult struct {
	results reconcile.Results
	err     error
}

func (s *Server) handleUpdate(c *gin.Context) {
	start := time.Now()
	log := loggerFrom(c)
	defer func() {
		s.metrics.ObserveUpdateDuration(time.Since(start))
	}()

	addrs, err := desiredAddresses(c, log, s.cfg.HTTP.ClientIPHeader)
	if err != nil {
		log.Warn("Rejected update", "error", err)
		s.metrics.IncUpdateRequest("bad-request")
		c.String(http.StatusBadRequest, errInvalidIP.Error())
		return
	}

	hostname, password := credentials(c.Request)
	req := updateRequest{hostname: hostname, password: password, addrs: addrs}

	cfg := *s.cfg // per-request snapshot
	results, err := s.dispatch(c.Request.Context(), log, &cfg, req)
	s.respond(c, log, req, results, err)
}

// dispatch runs the update on its own goroutine with a context detached
// from the client connection, so writes already issued are not retracted
// when the client goes away. The result comes back over a channel that is
// closed without a value if the task dies.
func (s *Server) dispatch(reqCtx context.Context, log *slog.Logger, cfg *config.Config, req updateRequest) (reconcile.Results, error) {
	ch := make(chan taskResult, 1)

	go func() {
		defer close(ch)
		defer func() {
			if r := recover(); r != nil {
				log.Error("Update task panicked", "panic", r)
			}
		}()

		ctx := context.WithoutCancel(reqCtx)
		if cfg.HTTP.UpdateTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.HTTP.UpdateTimeout)
			defer cancel()
		}

		results, err := s.update(ctx, log, cfg, req)
		ch <- taskResult{results: results, err: err}
	}()

	select {
	case res, ok := <-ch:
		if !ok {
			return reconcile.Results{}, ErrCanceled
		}
		return res.results, res.err
	case <-reqCtx.Done():
		return reconcile.Results{}, ErrCanceled
	}
}

// update authenticates before touching the zone.
func (s *Server) update(ctx context.Context, log *slog.Logger, cfg *config.Config, req updateRequest) (reconcile.Results, error) {
	name, err := auth.NewNormalizer(cfg.DNS.DomainSuffix).Normalize(req.hostname)
	if err != nil {
		return reconcile.Results{}, err
	}
	if err := auth.NewVerifier(s.store).Verify(ctx, name.Host, req.password); err != nil {
		return reconcile.Results{}, err
	}

	log.Info("Updating addresses", "host", name.Host, "name", name.FQDN, "addresses", addrStrings(req.addrs))
	return reconcile.NewEngine(s.zone, cfg, s.metrics).Reconcile(ctx, name.FQDN, req.addrs)
}

func (s *Server) respond(c *gin.Context, log *slog.Logger, req updateRequest, results reconcile.Results, err error) {
	var (
		se *credential.StorageError
		pe *provider.ProviderError
	)
	switch {
	case err == nil && results.Outcome == reconcile.Updated:
		s.metrics.IncUpdateRequest("updated")
		c.String(http.StatusOK, "success")
	case err == nil:
		s.metrics.IncUpdateRequest("no-change")
		c.String(http.StatusOK, "no-change")
	case errors.Is(err, auth.ErrUnauthorized):
		log.Warn("Rejected credentials", "hostname", req.hostname)
		s.metrics.IncUpdateRequest("unauthorized")
		c.Header("WWW-Authenticate", `Basic realm="ddns"`)
		c.String(http.StatusUnauthorized, auth.ErrUnauthorized.Error())
	case errors.As(err, &se):
		log.Error("Credential lookup failed", "error", err)
		s.metrics.IncUpdateRequest("error")
		c.String(http.StatusInternalServerError, "credential store error")
	case errors.As(err, &pe):
		log.Error("DNS provider call failed", "error", err)
		s.metrics.IncUpdateRequest("error")
		c.String(http.StatusInternalServerError, err.Error())
	case errors.Is(err, ErrCanceled):
		log.Error("Update task canceled")
		s.metrics.IncUpdateRequest("error")
		c.String(http.StatusInternalServerError, ErrCanceled.Error())
	default:
		log.Error("Update failed", "error", err)
		s.metrics.IncUpdateRequest("error")
		c.String(http.StatusInternalServerError, "internal error")
	}
}

// credentials prefers Basic auth and otherwise reads the query. The two
// sources are never combined.
func credentials(r *http.Request) (hostname, password string) {
	if r.Header.Get("Authorization") != "" {
		user, pass, _ := r.BasicAuth()
		return user, pass
	}
	q := r.URL.Query()
	return q.Get("hostname"), q.Get("password")
}

// desiredAddresses unions the ip and myip parameters, each of which may be
// repeated or comma separated. With none given it falls back to the client
// address header and then to the connection's remote address.
func desiredAddresses(c *gin.Context, log *slog.Logger, clientIPHeader string) ([]netip.Addr, error) {
	seen := make(map[netip.Addr]struct{})
	var addrs []netip.Addr
	for _, key := range []string{"ip", "myip"} {
		for _, value := range c.QueryArray(key) {
			for _, part := range strings.Split(value, ",") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				addr, err := parseAddr(part)
				if err != nil {
					return nil, err
				}
				if _, dup := seen[addr]; !dup {
					seen[addr] = struct{}{}
					addrs = append(addrs, addr)
				}
			}
		}
	}
	if len(addrs) > 0 {
		return addrs, nil
	}

	if clientIPHeader != "" {
		raw := strings.TrimSpace(c.GetHeader(clientIPHeader))
		addr, err := parseAddr(raw)
		if err == nil {
			return []netip.Addr{addr}, nil
		}
		// behind a proxy this records the proxy's own address
		log.Warn("Client IP header missing or invalid, using remote address",
			"header", clientIPHeader, "value", raw, "remote", c.RemoteIP())
	}
	addr, err := parseAddr(c.RemoteIP())
	if err != nil {
		return nil, err
	}
	return []netip.Addr{addr}, nil
}

func parseAddr(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil || addr.Zone() != "" {
		return netip.Addr{}, errInvalidIP
	}
	return addr, nil
}

func addrStrings(addrs []netip.Addr) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.String())
	}
	return out
}
