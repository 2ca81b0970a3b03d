//go:build !unix

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

	"github.com/Psiphon-Labs/proxyserver-client/proxyserver/common/errors"
)

// dialCandidate connects to a single candidate using the standard dialer.
// Device binding requires raw socket access and is not supported here.
func dialCandidate(c candidate, deviceBinder DeviceBinder) (net.Conn, error) {
	if deviceBinder != nil {
		return nil, errors.TraceNew("device binding is not supported on this platform")
	}
	network := "tcp6"
	if c.isIPv4() {
		network = "tcp4"
	}
	conn, err := net.DialTCP(
		network, nil, &net.TCPAddr{IP: c.addr.IP, Port: c.port, Zone: c.addr.Zone})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return conn, nil
}
