/*
 * Copyright (c) 2026, Psiphon Inc.
 * All rights reserved.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package proxyserver

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/Psiphon-Labs/proxyserver-client/proxyserver/common/errors"
	lrucache "github.com/cognusion/go-cache-lru"
	"github.com/miekg/dns"
	"golang.org/x/net/idna"
)

const (
	resolverDNSPort            = "53"
	resolverCacheReapFrequency = 1 * time.Minute
	resolverCacheMaxEntries    = 1000
	udpPacketBufferSize        = 1232
)

// Resolver turns a hostname into an ordered list of candidate addresses.
// Failures should be reported as *net.DNSError so that they can be
// classified into a ResolveCode.
type Resolver interface {
	Resolve(hostname string) ([]net.IPAddr, error)
}

// noAddressError indicates that the name exists but has no addresses.
type noAddressError struct {
	hostname string
}

func (e *noAddressError) Error() string {
	return fmt.Sprintf("no address for %s", e.hostname)
}

// SystemResolver resolves using the platform resolver, which follows the
// host configuration (hosts file, resolv.conf, nsswitch).
type SystemResolver struct {
	resolver *net.Resolver
}

func NewSystemResolver() *SystemResolver {
	return &SystemResolver{resolver: net.DefaultResolver}
}

func (r *SystemResolver) Resolve(hostname string) ([]net.IPAddr, error) {
	// Resolution is not cancellable.
	addrs, err := r.resolver.LookupIPAddr(context.Background(), hostname)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(addrs) == 0 {
		return nil, errors.Trace(&noAddressError{hostname: hostname})
	}
	return addrs, nil
}

// DNSResolver is a DNS stub resolver which sends explicit A and AAAA queries
// to the configured servers, in order, moving to the next server only when a
// server cannot be reached or fails to answer.
type DNSResolver struct {
	servers []string
	client  *dns.Client
}

// NewDNSResolver creates a DNSResolver. Each server is an IP address, with
// port 53 assumed, or IP:port.
func NewDNSResolver(servers []string) (*DNSResolver, error) {
	if len(servers) == 0 {
		return nil, errors.TraceNew("no DNS servers")
	}
	normalized := make([]string, 0, len(servers))
	for _, server := range servers {
		address, err := normalizeDNSServer(server)
		if err != nil {
			return nil, errors.Trace(err)
		}
		normalized = append(normalized, address)
	}
	return &DNSResolver{
		servers: normalized,
		client: &dns.Client{
			Net:     "udp",
			UDPSize: udpPacketBufferSize,
		},
	}, nil
}

func normalizeDNSServer(server string) (string, error) {
	if IP := net.ParseIP(server); IP != nil {
		return net.JoinHostPort(IP.String(), resolverDNSPort), nil
	}
	host, port, err := net.SplitHostPort(server)
	if err != nil {
		return "", errors.Tracef("invalid DNS server %q: %v", server, err)
	}
	if net.ParseIP(host) == nil {
		return "", errors.Tracef("DNS server %q is not an IP address", server)
	}
	if _, err := ParsePort(port); err != nil {
		return "", errors.Trace(err)
	}
	return net.JoinHostPort(host, port), nil
}

func (r *DNSResolver) Resolve(hostname string) ([]net.IPAddr, error) {

	// When the input is an IP address, echo it back.
	if addr, ok := parseIPAddr(hostname); ok {
		return []net.IPAddr{addr}, nil
	}

	// Convert to punycode.
	asciiHostname, err := idna.Lookup.ToASCII(hostname)
	if err != nil {
		return nil, errors.Trace(&net.DNSError{
			Err:        err.Error(),
			Name:       hostname,
			IsNotFound: true,
		})
	}
	if _, ok := dns.IsDomainName(asciiHostname); !ok {
		return nil, errors.Trace(&net.DNSError{
			Err:        "invalid domain name",
			Name:       hostname,
			IsNotFound: true,
		})
	}

	var lastErr error
	for _, server := range r.servers {
		addrs, err := r.resolveWithServer(asciiHostname, server)
		if err == nil {
			if len(addrs) == 0 {
				return nil, errors.Trace(&noAddressError{hostname: hostname})
			}
			return addrs, nil
		}
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			// An authoritative negative answer is not retried elsewhere.
			return nil, errors.Trace(err)
		}
		lastErr = err
	}
	return nil, errors.Trace(lastErr)
}

// resolveWithServer queries A, then AAAA. IPv4 candidates are listed first.
// Once the A query has produced addresses, a failed AAAA query is treated as
// an empty answer; some networks drop or refuse AAAA queries.
func (r *DNSResolver) resolveWithServer(hostname, server string) ([]net.IPAddr, error) {

	addrs, err := r.query(hostname, server, dns.TypeA)
	if err != nil {
		return nil, errors.Trace(err)
	}

	IPv6Addrs, err := r.query(hostname, server, dns.TypeAAAA)
	if err != nil {
		if len(addrs) == 0 {
			return nil, errors.Trace(err)
		}
		log.WithTraceFields(LogFields{
			"server": server,
			"error":  err,
		}).Debug("AAAA query failed")
		return addrs, nil
	}

	return append(addrs, IPv6Addrs...), nil
}

func (r *DNSResolver) query(hostname, server string, questionType uint16) ([]net.IPAddr, error) {

	// SetQuestion initializes request.MsgHdr.Id to a random value.
	request := &dns.Msg{MsgHdr: dns.MsgHdr{RecursionDesired: true}}
	request.SetQuestion(dns.Fqdn(hostname), questionType)

	response, _, err := r.client.Exchange(request, server)
	if err != nil {
		return nil, errors.Trace(&net.DNSError{
			Err:         err.Error(),
			Name:        hostname,
			Server:      server,
			IsTimeout:   isTimeout(err),
			IsTemporary: true,
		})
	}

	switch response.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		// Some servers answer NXDOMAIN to AAAA queries for names that do
		// have A records; treat that as an empty AAAA answer.
		if questionType == dns.TypeAAAA {
			return nil, nil
		}
		return nil, errors.Trace(&net.DNSError{
			Err:        "no such host",
			Name:       hostname,
			Server:     server,
			IsNotFound: true,
		})
	default:
		rcode, ok := dns.RcodeToString[response.Rcode]
		if !ok {
			rcode = fmt.Sprintf("Rcode: %d", response.Rcode)
		}
		return nil, errors.Trace(&net.DNSError{
			Err:         "unexpected response: " + rcode,
			Name:        hostname,
			Server:      server,
			IsTemporary: response.Rcode == dns.RcodeServerFailure,
		})
	}

	var addrs []net.IPAddr
	for _, answer := range response.Answer {
		switch rr := answer.(type) {
		case *dns.A:
			if questionType == dns.TypeA {
				addrs = append(addrs, net.IPAddr{IP: rr.A})
			}
		case *dns.AAAA:
			if questionType == dns.TypeAAAA {
				addrs = append(addrs, net.IPAddr{IP: rr.AAAA})
			}
		}
	}
	return addrs, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// parseIPAddr accepts an IP literal, with an optional IPv6 zone.
func parseIPAddr(hostname string) (net.IPAddr, bool) {
	host, zone := hostname, ""
	if i := strings.LastIndexByte(hostname, '%'); i != -1 {
		host, zone = hostname[:i], hostname[i+1:]
	}
	IP := net.ParseIP(host)
	if IP == nil {
		return net.IPAddr{}, false
	}
	if zone != "" && IP.To4() != nil {
		return net.IPAddr{}, false
	}
	return net.IPAddr{IP: IP, Zone: zone}, true
}

// CachingResolver caches successful resolutions of an underlying Resolver.
// Failures are never cached.
type CachingResolver struct {
	resolver Resolver
	cache    *lrucache.Cache
}

// NewCachingResolver wraps resolver with a cache of at most
// resolverCacheMaxEntries entries, each valid for TTL.
func NewCachingResolver(resolver Resolver, TTL time.Duration) *CachingResolver {
	return &CachingResolver{
		resolver: resolver,
		cache: lrucache.NewWithLRU(
			TTL,
			resolverCacheReapFrequency,
			resolverCacheMaxEntries),
	}
}

func (r *CachingResolver) Resolve(hostname string) ([]net.IPAddr, error) {
	if entry, ok := r.cache.Get(hostname); ok {
		return append([]net.IPAddr(nil), entry.([]net.IPAddr)...), nil
	}
	addrs, err := r.resolver.Resolve(hostname)
	if err != nil {
		return nil, errors.Trace(err)
	}
	r.cache.Set(hostname, append([]net.IPAddr(nil), addrs...), lrucache.DefaultExpiration)
	return addrs, nil
}

// Flush discards all cached resolutions.
func (r *CachingResolver) Flush() {
	r.cache.Flush()
}
