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
	"encoding/json"

	"github.com/Psiphon-Labs/proxyserver-client/proxyserver/common/errors"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_HOSTNAME                   = "server"
	DEFAULT_PORT                       = 45000
	DEFAULT_NUM_LISTENERS              = 1
	DEFAULT_RESOLVER_CACHE_TTL_SECONDS = 60
	DEFAULT_LOG_LEVEL                  = "info"
)

// Config is the proxy server client configuration. Config is normally
// loaded from JSON with LoadConfig; NewDefaultConfig returns a Config with
// all defaults applied.
type Config struct {

	// Hostname is the proxy server host. Defaults to DEFAULT_HOSTNAME.
	Hostname string

	// Port is the proxy server port hint: a number, a numeric string, or a
	// list of numbers or numeric strings. A single port is expanded to one
	// consecutive port per listener. Defaults to DEFAULT_PORT.
	Port PortSpec

	// NumListeners is the number of proxy server listeners, each on its own
	// port. ProxyClient distributes requests across them round-robin.
	// Defaults to DEFAULT_NUM_LISTENERS.
	NumListeners int

	// DNSServers, when set, selects a DNS stub resolver which queries these
	// servers in order instead of the system resolver. Each is an IP
	// address, with port 53 assumed, or IP:port.
	DNSServers []string

	// ResolverCacheTTLSeconds is how long successful resolutions are cached.
	// 0 disables caching. Defaults to DEFAULT_RESOLVER_CACHE_TTL_SECONDS.
	ResolverCacheTTLSeconds *int

	// AddressFamily restricts connection candidates to "ipv4" or "ipv6".
	// When empty, all resolved addresses are attempted in resolver order.
	AddressFamily string

	// MaxReceiveBytes bounds the size of a single received message. A
	// receive that would exceed the bound fails with OutOfMemory. 0 is
	// unbounded.
	MaxReceiveBytes int

	// LogLevel is a logrus level name. Defaults to DEFAULT_LOG_LEVEL.
	LogLevel string

	// LogFilename, when set, directs logs to this file instead of stderr.
	// The file is reopened when rotated away by an external log rotator.
	LogFilename string

	// DeviceBinder, when set, is applied to every candidate socket before
	// connecting. DeviceBinder must be set at runtime, not in JSON.
	DeviceBinder DeviceBinder `json:"-"`

	// Resolver, when set, replaces the resolver selected by DNSServers. It
	// is still wrapped by the resolution cache. Resolver must be set at
	// runtime, not in JSON.
	Resolver Resolver `json:"-"`
}

// NewDefaultConfig returns a Config with all defaults applied.
func NewDefaultConfig() *Config {
	config := &Config{}
	config.setDefaults()
	return config
}

// LoadConfig parses and validates a JSON configuration. Fields not present
// in the input take their defaults.
func LoadConfig(configJson []byte) (*Config, error) {
	var config Config
	err := json.Unmarshal(configJson, &config)
	if err != nil {
		return nil, errors.Trace(err)
	}

	config.setDefaults()

	err = config.Validate()
	if err != nil {
		return nil, errors.Trace(err)
	}

	return &config, nil
}

func (config *Config) setDefaults() {

	if config.Hostname == "" {
		config.Hostname = DEFAULT_HOSTNAME
	}

	if config.Port.IsZero() {
		config.Port = SinglePort(DEFAULT_PORT)
	}

	if config.NumListeners == 0 {
		config.NumListeners = DEFAULT_NUM_LISTENERS
	}

	if config.ResolverCacheTTLSeconds == nil {
		defaultResolverCacheTTLSeconds := DEFAULT_RESOLVER_CACHE_TTL_SECONDS
		config.ResolverCacheTTLSeconds = &defaultResolverCacheTTLSeconds
	}

	if config.LogLevel == "" {
		config.LogLevel = DEFAULT_LOG_LEVEL
	}
}

// Validate checks the configuration values.
func (config *Config) Validate() error {

	if config.NumListeners < 1 {
		return errors.Tracef("invalid NumListeners: %d", config.NumListeners)
	}

	_, err := FindPorts(config.Port, config.NumListeners)
	if err != nil {
		return errors.Trace(err)
	}

	for _, server := range config.DNSServers {
		_, err := normalizeDNSServer(server)
		if err != nil {
			return errors.Trace(err)
		}
	}

	if config.ResolverCacheTTLSeconds != nil && *config.ResolverCacheTTLSeconds < 0 {
		return errors.Tracef("invalid ResolverCacheTTLSeconds: %d", *config.ResolverCacheTTLSeconds)
	}

	switch config.AddressFamily {
	case ADDRESS_FAMILY_ANY, ADDRESS_FAMILY_IPV4, ADDRESS_FAMILY_IPV6:
	default:
		return errors.Tracef("invalid AddressFamily: %s", config.AddressFamily)
	}

	if config.LogLevel != "" {
		_, err := logrus.ParseLevel(config.LogLevel)
		if err != nil {
			return errors.Trace(err)
		}
	}

	if config.MaxReceiveBytes < 0 {
		return errors.Tracef("invalid MaxReceiveBytes: %d", config.MaxReceiveBytes)
	}

	return nil
}
