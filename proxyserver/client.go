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

/*

Package proxyserver is a blocking TCP client for communicating with a proxy
server: connect to a host and port, send and receive raw bytes, close.

Connect resolves the hostname and attempts every candidate address, in
resolver order, until one connects. Send writes the whole payload. Receive
reads in CHUNK_SIZE pieces until the peer closes the stream or a read comes
back short, which is taken as the end of the message; there is no framing.

Nothing here is cancellable and there are no timeouts: a stalled peer blocks
the caller indefinitely.

Failures are returned as *Error, whose Kind may be tested with errors.Is.

*/
package proxyserver

import (
	"sync"
	"time"

	"github.com/Psiphon-Labs/proxyserver-client/proxyserver/common/errors"
)

// Client opens connections and tracks them by Handle. All operations are
// synchronous and block until complete; none can be cancelled and none time
// out.
//
// A Client may be used from multiple goroutines, but each Handle must be
// used by only one goroutine at a time.
type Client struct {
	config    *Config
	connector *connector
	handles   *handles
}

// NewClient creates a Client. Unset config fields take their defaults; a
// nil config is equivalent to NewDefaultConfig().
func NewClient(config *Config) (*Client, error) {

	if config == nil {
		config = NewDefaultConfig()
	} else {
		config.setDefaults()
	}

	err := config.Validate()
	if err != nil {
		return nil, errors.Trace(err)
	}

	resolver, err := makeResolver(config)
	if err != nil {
		return nil, errors.Trace(err)
	}

	return &Client{
		config: config,
		connector: &connector{
			resolver:      resolver,
			addressFamily: config.AddressFamily,
			deviceBinder:  config.DeviceBinder,
		},
		handles: newHandles(),
	}, nil
}

func makeResolver(config *Config) (Resolver, error) {

	resolver := config.Resolver

	if resolver == nil {
		if len(config.DNSServers) > 0 {
			dnsResolver, err := NewDNSResolver(config.DNSServers)
			if err != nil {
				return nil, errors.Trace(err)
			}
			resolver = dnsResolver
		} else {
			resolver = NewSystemResolver()
		}
	}

	if config.ResolverCacheTTLSeconds != nil && *config.ResolverCacheTTLSeconds > 0 {
		resolver = NewCachingResolver(
			resolver, time.Duration(*config.ResolverCacheTTLSeconds)*time.Second)
	}

	return resolver, nil
}

// Dial resolves hostname and connects to the first candidate address that
// accepts a connection. The caller owns the returned Conn.
func (client *Client) Dial(hostname string, port int) (*Conn, error) {
	conn, err := client.connector.connect(hostname, port)
	if err != nil {
		return nil, err
	}
	return newConn(conn, client.config.MaxReceiveBytes), nil
}

// Connect is Dial, returning a Handle for use with Send, Receive and Close.
func (client *Client) Connect(hostname string, port int) (Handle, error) {
	conn, err := client.Dial(hostname, port)
	if err != nil {
		return NoHandle, err
	}
	handle := client.handles.add(conn)
	log.WithTraceFields(LogFields{"handle": handle}).Debug("opened")
	return handle, nil
}

// ConnectString is Connect with the port in text form. See ParsePort.
func (client *Client) ConnectString(hostname string, port string) (Handle, error) {
	portNumber, err := ParsePort(port)
	if err != nil {
		return NoHandle, err
	}
	return client.Connect(hostname, portNumber)
}

// Send writes the entire payload to the connection and returns the number
// of bytes sent.
func (client *Client) Send(handle Handle, payload []byte) (int, error) {
	conn, err := client.handles.get(handle)
	if err != nil {
		return 0, err
	}
	return conn.Send(payload)
}

// Receive reads one message from the connection. The end of a message is
// either the peer closing the stream or a read shorter than CHUNK_SIZE.
func (client *Client) Receive(handle Handle) ([]byte, error) {
	conn, err := client.handles.get(handle)
	if err != nil {
		return nil, err
	}
	return conn.Receive()
}

// Close releases the connection. The handle is invalid afterwards, even
// when the underlying close reports an error.
func (client *Client) Close(handle Handle) error {
	conn, err := client.handles.remove(handle)
	if err != nil {
		return err
	}
	log.WithTraceFields(LogFields{"handle": handle}).Debug("closing")
	return conn.Close()
}

// OpenHandles returns the number of handles not yet closed.
func (client *Client) OpenHandles() int {
	return client.handles.count()
}

// Stop closes every open handle. Stop must not be called while another
// goroutine is using one of those handles.
func (client *Client) Stop() {
	client.handles.closeAll()
}

var defaultClient struct {
	once   sync.Once
	client *Client
	err    error
}

// DefaultClient returns the Client used by the package level functions,
// created with NewDefaultConfig on first use.
func DefaultClient() (*Client, error) {
	defaultClient.once.Do(func() {
		defaultClient.client, defaultClient.err = NewClient(nil)
	})
	return defaultClient.client, defaultClient.err
}

// Connect connects using the default client.
func Connect(hostname string, port int) (Handle, error) {
	client, err := DefaultClient()
	if err != nil {
		return NoHandle, errors.Trace(err)
	}
	return client.Connect(hostname, port)
}

// ConnectString connects using the default client.
func ConnectString(hostname string, port string) (Handle, error) {
	client, err := DefaultClient()
	if err != nil {
		return NoHandle, errors.Trace(err)
	}
	return client.ConnectString(hostname, port)
}

// Send sends using the default client.
func Send(handle Handle, payload []byte) (int, error) {
	client, err := DefaultClient()
	if err != nil {
		return 0, errors.Trace(err)
	}
	return client.Send(handle, payload)
}

// Receive receives using the default client.
func Receive(handle Handle) ([]byte, error) {
	client, err := DefaultClient()
	if err != nil {
		return nil, errors.Trace(err)
	}
	return client.Receive(handle)
}

// Close closes using the default client.
func Close(handle Handle) error {
	client, err := DefaultClient()
	if err != nil {
		return errors.Trace(err)
	}
	return client.Close(handle)
}
