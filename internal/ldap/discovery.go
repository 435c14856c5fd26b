package ldap

import (
	"context"
	"fmt"
	"net"
	"slices"
	"strings"

	"github.com/hashicorp/terraform-plugin-log/tflog"
)

// srvResolver is the part of *net.Resolver used for discovery.
type srvResolver interface {
	LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error)
}

// ServerInfo contains information about a discovered LDAP server.
type ServerInfo struct {
	Host     string
	Port     int
	UseTLS   bool
	Priority int
	Weight   int
}

// URL returns the LDAP URL of the server.
func (s *ServerInfo) URL() string {
	scheme := "ldap"
	if s.UseTLS {
		scheme = "ldaps"
	}
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(s.Host, fmt.Sprint(s.Port)))
}

// SRVDiscovery finds directory servers of a DNS domain. FreeIPA publishes
// _ldap._tcp records for every replica.
type SRVDiscovery struct {
	resolver srvResolver
}

// NewSRVDiscovery creates a discovery using the default resolver.
func NewSRVDiscovery() *SRVDiscovery {
	return &SRVDiscovery{resolver: net.DefaultResolver}
}

// DiscoverServers looks up _ldaps._tcp.<domain> and _ldap._tcp.<domain> and
// returns the servers ordered by RFC 2782 priority, LDAPS records first
// within equal priority.
func (d *SRVDiscovery) DiscoverServers(ctx context.Context, domain string) ([]*ServerInfo, error) {
	domain = strings.TrimSuffix(strings.TrimSpace(domain), ".")
	if domain == "" {
		return nil, fmt.Errorf("domain cannot be empty")
	}

	var servers []*ServerInfo
	var lastErr error

	for _, svc := range []struct {
		service string
		useTLS  bool
	}{
		{"ldaps", true},
		{"ldap", false},
	} {
		_, records, err := d.resolver.LookupSRV(ctx, svc.service, "tcp", domain)
		if err != nil {
			tflog.SubsystemDebug(ctx, Subsystem, "SRV lookup failed", map[string]any{
				"service": svc.service,
				"domain":  domain,
				"error":   err.Error(),
			})
			lastErr = err
			continue
		}

		for _, srv := range records {
			servers = append(servers, &ServerInfo{
				Host:     strings.TrimSuffix(srv.Target, "."),
				Port:     int(srv.Port),
				UseTLS:   svc.useTLS,
				Priority: int(srv.Priority),
				Weight:   int(srv.Weight),
			})
		}
	}

	if len(servers) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("no LDAP SRV records found for %s: %w", domain, lastErr)
		}
		return nil, fmt.Errorf("no LDAP SRV records found for %s", domain)
	}

	slices.SortStableFunc(servers, func(a, b *ServerInfo) int {
		if a.Priority != b.Priority {
			return a.Priority - b.Priority
		}
		if a.UseTLS != b.UseTLS {
			if a.UseTLS {
				return -1
			}
			return 1
		}
		return b.Weight - a.Weight
	})

	tflog.SubsystemDebug(ctx, Subsystem, "Server discovery completed", map[string]any{
		"domain":       domain,
		"server_count": len(servers),
		"selected":     servers[0].URL(),
	})

	return servers, nil
}

// DiscoverURL returns the URL of the preferred server of domain.
func (d *SRVDiscovery) DiscoverURL(ctx context.Context, domain string) (string, error) {
	servers, err := d.DiscoverServers(ctx, domain)
	if err != nil {
		return "", err
	}
	return servers[0].URL(), nil
}
