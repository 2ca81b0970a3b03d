//go:build unix

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
	"os"
	"strconv"

	"github.com/Psiphon-Labs/proxyserver-client/proxyserver/common/errors"
	"golang.org/x/sys/unix"
)

// dialCandidate creates a stream socket of the candidate's family, applies
// the optional device binding and connects it. The socket is closed on
// every failure path.
//
// The lower level socket calls are used, rather than net.Dial, so that the
// socket file descriptor is available for device binding before connect.
func dialCandidate(c candidate, deviceBinder DeviceBinder) (net.Conn, error) {

	var domain int
	var sockAddr unix.Sockaddr

	if IPv4 := c.addr.IP.To4(); IPv4 != nil {
		domain = unix.AF_INET
		inet4Addr := &unix.SockaddrInet4{Port: c.port}
		copy(inet4Addr.Addr[:], IPv4)
		sockAddr = inet4Addr
	} else if IPv6 := c.addr.IP.To16(); IPv6 != nil {
		domain = unix.AF_INET6
		zoneID, err := zoneIndex(c.addr.Zone)
		if err != nil {
			return nil, errors.Trace(err)
		}
		inet6Addr := &unix.SockaddrInet6{Port: c.port, ZoneId: zoneID}
		copy(inet6Addr.Addr[:], IPv6)
		sockAddr = inet6Addr
	} else {
		return nil, errors.Tracef("invalid IP address: %s", c.addr.String())
	}

	socketFd, err := unix.Socket(domain, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, errors.Trace(os.NewSyscallError("socket", err))
	}
	unix.CloseOnExec(socketFd)

	if deviceBinder != nil {
		_, err = deviceBinder.BindToDevice(socketFd)
		if err != nil {
			unix.Close(socketFd)
			return nil, errors.Tracef("BindToDevice failed: %v", err)
		}
	}

	err = unix.Connect(socketFd, sockAddr)
	if err != nil {
		unix.Close(socketFd)
		return nil, errors.Trace(os.NewSyscallError("connect", err))
	}

	// Convert the socket fd to a net.Conn. net.FileConn dups the fd, and
	// file.Close closes the original.
	file := os.NewFile(uintptr(socketFd), "")
	conn, err := net.FileConn(file)
	file.Close()
	if err != nil {
		return nil, errors.Trace(err)
	}

	return conn, nil
}

// zoneIndex maps an IPv6 zone, an interface name or number, to an index.
func zoneIndex(zone string) (uint32, error) {
	if zone == "" {
		return 0, nil
	}
	if iface, err := net.InterfaceByName(zone); err == nil {
		return uint32(iface.Index), nil
	}
	index, err := strconv.ParseUint(zone, 10, 32)
	if err != nil {
		return 0, errors.Tracef("unknown IPv6 zone: %s", zone)
	}
	return uint32(index), nil
}
