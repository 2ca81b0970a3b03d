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
	"sync/atomic"

	"github.com/Psiphon-Labs/proxyserver-client/proxyserver/common/errors"
)

// ProxyClient sends requests to a proxy server which runs one or more
// listeners, each on its own port. Each request uses a new connection, and
// successive requests cycle through the listener ports.
//
// ProxyClient is safe for concurrent use.
type ProxyClient struct {
	client   *Client
	hostname string
	ports    []int
	next     atomic.Uint64
}

// NewProxyClient configures a ProxyClient from config.Hostname,
// config.Port and config.NumListeners. Unset fields take their defaults.
func NewProxyClient(config *Config) (*ProxyClient, error) {

	if config == nil {
		config = NewDefaultConfig()
	}

	client, err := NewClient(config)
	if err != nil {
		return nil, errors.Trace(err)
	}

	ports, err := FindPorts(config.Port, config.NumListeners)
	if err != nil {
		return nil, errors.Trace(err)
	}

	return &ProxyClient{
		client:   client,
		hostname: config.Hostname,
		ports:    ports,
	}, nil
}

func (proxyClient *ProxyClient) Hostname() string {
	return proxyClient.hostname
}

// Ports returns the listener ports, in the order they are used.
func (proxyClient *ProxyClient) Ports() []int {
	return append([]int(nil), proxyClient.ports...)
}

func (proxyClient *ProxyClient) nextPort() int {
	index := proxyClient.next.Add(1) - 1
	return proxyClient.ports[index%uint64(len(proxyClient.ports))]
}

// Get connects to the next listener, sends request, and returns the
// response. A single trailing NUL in the response, which the server may
// append as a terminator, is removed. The connection is closed on return.
func (proxyClient *ProxyClient) Get(request []byte) (response []byte, err error) {

	port := proxyClient.nextPort()

	handle, err := proxyClient.client.Connect(proxyClient.hostname, port)
	if err != nil {
		return nil, err
	}
	defer func() {
		closeErr := proxyClient.client.Close(handle)
		if err == nil && closeErr != nil {
			response, err = nil, closeErr
		}
	}()

	_, err = proxyClient.client.Send(handle, request)
	if err != nil {
		return nil, err
	}

	response, err = proxyClient.client.Receive(handle)
	if err != nil {
		return nil, err
	}

	if n := len(response); n > 0 && response[n-1] == 0 {
		response = response[:n-1]
	}

	log.WithTraceFields(LogFields{
		"port":          port,
		"requestBytes":  len(request),
		"responseBytes": len(response),
	}).Debug("request complete")

	return response, nil
}
