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
	"fmt"
	"net"
	"strconv"
	"sync"
	"testing"

	"github.com/Psiphon-Labs/proxyserver-client/proxyserver/common/errors"
	"golang.org/x/sync/errgroup"
)

func TestProxyClient(t *testing.T) {
	err := runTestProxyClient()
	if err != nil {
		t.Fatal(errors.Trace(err).Error())
	}
}

// testProxyServer runs listeners which answer each request with a
// NUL-terminated response naming the listener port.
type testProxyServer struct {
	listeners []net.Listener
	group     errgroup.Group
	mutex     sync.Mutex
	requests  []string
}

func newTestProxyServer(numListeners int) (*testProxyServer, error) {
	server := &testProxyServer{}
	for i := 0; i < numListeners; i++ {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			server.stop()
			return nil, errors.Trace(err)
		}
		server.listeners = append(server.listeners, listener)
		server.group.Go(func() error {
			return server.serve(listener)
		})
	}
	return server, nil
}

func (server *testProxyServer) serve(listener net.Listener) error {
	port := listener.Addr().(*net.TCPAddr).Port
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return errors.Trace(err)
		}
		err = server.handle(conn, port)
		conn.Close()
		if err != nil {
			return errors.Trace(err)
		}
	}
}

func (server *testProxyServer) handle(conn net.Conn, port int) error {
	request := make([]byte, CHUNK_SIZE)
	n, err := conn.Read(request)
	if err != nil {
		return errors.Trace(err)
	}
	server.mutex.Lock()
	server.requests = append(server.requests, string(request[:n]))
	server.mutex.Unlock()
	_, err = conn.Write([]byte(fmt.Sprintf("port %d\x00", port)))
	return errors.Trace(err)
}

func (server *testProxyServer) ports() []int {
	var ports []int
	for _, listener := range server.listeners {
		ports = append(ports, listener.Addr().(*net.TCPAddr).Port)
	}
	return ports
}

func (server *testProxyServer) stop() error {
	for _, listener := range server.listeners {
		listener.Close()
	}
	return server.group.Wait()
}

func runTestProxyClient() error {

	server, err := newTestProxyServer(3)
	if err != nil {
		return errors.Trace(err)
	}

	ports := server.ports()

	var portsJSON []string
	for _, port := range ports {
		portsJSON = append(portsJSON, strconv.Itoa(port))
	}
	config, err := LoadConfig([]byte(fmt.Sprintf(
		`{"Hostname": "127.0.0.1", "Port": [%s, %s, %s], "NumListeners": 3}`,
		portsJSON[0], portsJSON[1], portsJSON[2])))
	if err != nil {
		return errors.Trace(err)
	}

	proxyClient, err := NewProxyClient(config)
	if err != nil {
		return errors.Trace(err)
	}

	if proxyClient.Hostname() != "127.0.0.1" {
		return errors.Tracef("unexpected hostname: %s", proxyClient.Hostname())
	}
	if fmt.Sprint(proxyClient.Ports()) != fmt.Sprint(ports) {
		return errors.Tracef("unexpected ports: %v", proxyClient.Ports())
	}

	// Test: requests cycle through the listeners, and the trailing NUL is
	// removed from each response.

	for i := 0; i < 2*len(ports); i++ {
		request := fmt.Sprintf("request %d", i)
		response, err := proxyClient.Get([]byte(request))
		if err != nil {
			return errors.Trace(err)
		}
		expected := fmt.Sprintf("port %d", ports[i%len(ports)])
		if string(response) != expected {
			return errors.Tracef("unexpected response %q, expected %q", response, expected)
		}
	}

	if proxyClient.client.OpenHandles() != 0 {
		return errors.TraceNew("unexpected open handles")
	}

	// Test: a failed connection is reported; the next request uses the
	// next listener.

	err = server.listeners[0].Close()
	if err != nil {
		return errors.Trace(err)
	}
	_, err = proxyClient.Get([]byte("request"))
	if ErrorKindOf(err) != ConnectionFailed {
		return errors.Tracef("unexpected error: %v", err)
	}
	response, err := proxyClient.Get([]byte("request"))
	if err != nil {
		return errors.Trace(err)
	}
	if string(response) != fmt.Sprintf("port %d", ports[1]) {
		return errors.Tracef("unexpected response %q", response)
	}

	err = server.stop()
	if err != nil {
		return errors.Trace(err)
	}

	server.mutex.Lock()
	defer server.mutex.Unlock()
	if len(server.requests) != 2*len(ports)+1 || server.requests[0] != "request 0" {
		return errors.Tracef("unexpected requests: %v", server.requests)
	}

	return nil
}

func TestProxyClientConsecutivePorts(t *testing.T) {
	noCache := 0
	proxyClient, err := NewProxyClient(&Config{
		Port:                    SinglePort(45000),
		NumListeners:            3,
		ResolverCacheTTLSeconds: &noCache,
	})
	if err != nil {
		t.Fatalf("NewProxyClient failed: %v", err)
	}
	if proxyClient.Hostname() != DEFAULT_HOSTNAME {
		t.Fatalf("unexpected hostname: %s", proxyClient.Hostname())
	}
	if fmt.Sprint(proxyClient.Ports()) != "[45000 45001 45002]" {
		t.Fatalf("unexpected ports: %v", proxyClient.Ports())
	}

	_, err = NewProxyClient(&Config{Port: SinglePort(65535), NumListeners: 2})
	if ErrorKindOf(err) != InvalidPort {
		t.Fatalf("expected InvalidPort, got %v", err)
	}
}
