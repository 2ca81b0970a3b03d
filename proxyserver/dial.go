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
	"net"
	"strconv"

	"github.com/Psiphon-Labs/proxyserver-client/proxyserver/common/errors"
)

const (
	ADDRESS_FAMILY_ANY  = ""
	ADDRESS_FAMILY_IPV4 = "ipv4"
	ADDRESS_FAMILY_IPV6 = "ipv6"
)

// DeviceBinder binds a socket to a specific network device before it is
// connected; for example, to exclude the socket from VPN routing. The
// returned string is a device description, used for logging.
type DeviceBinder interface {
	BindToDevice(fileDescriptor int) (string, error)
}

// candidate is one resolved endpoint to attempt.
type candidate struct {
	addr net.IPAddr
	port int
}

func (c candidate) isIPv4() bool {
	return c.addr.IP.To4() != nil
}

func (c candidate) String() string {
	return net.JoinHostPort(c.addr.String(), strconv.Itoa(c.port))
}

// makeCandidates keeps resolver order, dropping addresses excluded by
// addressFamily.
func makeCandidates(addrs []net.IPAddr, port int, addressFamily string) []candidate {
	candidates := make([]candidate, 0, len(addrs))
	for _, addr := range addrs {
		c := candidate{addr: addr, port: port}
		switch addressFamily {
		case ADDRESS_FAMILY_IPV4:
			if !c.isIPv4() {
				continue
			}
		case ADDRESS_FAMILY_IPV6:
			if c.isIPv4() {
				continue
			}
		}
		candidates = append(candidates, c)
	}
	return candidates
}

// connector establishes connections: resolve, then attempt each candidate
// in turn, returning the first that connects.
type connector struct {
	resolver      Resolver
	addressFamily string
	deviceBinder  DeviceBinder
}

func (c *connector) connect(hostname string, port int) (net.Conn, error) {

	if hostname == "" {
		return nil, newError(MissingArgument, errors.TraceNew("hostname is required to connect"))
	}
	err := ValidatePort(port)
	if err != nil {
		return nil, err
	}

	addrs, err := c.resolver.Resolve(hostname)
	if err != nil {
		return nil, newResolutionError(errors.Trace(err))
	}

	candidates := makeCandidates(addrs, port, c.addressFamily)
	if len(candidates) == 0 {
		// Addresses exist only in an excluded family, or not at all.
		return nil, newResolutionError(
			errors.Trace(&noAddressError{hostname: hostname}))
	}

	log.WithTraceFields(LogFields{
		"hostname":   hostname,
		"port":       port,
		"candidates": len(candidates),
	}).Debug("resolved")

	for _, candidate := range candidates {

		// dialCandidate closes its socket on failure, so nothing from a
		// failed attempt outlives the iteration.
		conn, err := dialCandidate(candidate, c.deviceBinder)
		if err != nil {
			log.WithTraceFields(LogFields{
				"candidate": candidate.String(),
				"error":     err,
			}).Debug("candidate failed")
			continue
		}

		log.WithTraceFields(LogFields{
			"candidate": candidate.String(),
		}).Debug("connected")

		return conn, nil
	}

	return nil, newError(
		ConnectionFailed,
		errors.Tracef(
			"failed to connect to %s on port %d: %d candidate(s) unreachable",
			hostname, port, len(candidates)))
}
