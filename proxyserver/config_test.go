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
	"reflect"
	"testing"

	"github.com/Psiphon-Labs/proxyserver-client/proxyserver/common/errors"
	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

// Tests that an empty config takes all defaults
func (suite *ConfigTestSuite) Test_LoadConfig_Defaults() {
	config, err := LoadConfig([]byte(`{}`))
	suite.Require().NoError(err)

	suite.Equal(DEFAULT_HOSTNAME, config.Hostname)
	suite.Equal(SinglePort(DEFAULT_PORT), config.Port)
	suite.Equal(DEFAULT_NUM_LISTENERS, config.NumListeners)
	suite.Require().NotNil(config.ResolverCacheTTLSeconds)
	suite.Equal(DEFAULT_RESOLVER_CACHE_TTL_SECONDS, *config.ResolverCacheTTLSeconds)
	suite.Equal(DEFAULT_LOG_LEVEL, config.LogLevel)
	suite.Equal(ADDRESS_FAMILY_ANY, config.AddressFamily)
	suite.Equal(0, config.MaxReceiveBytes)

	suite.Equal(config, NewDefaultConfig())
}

// Tests config values which are all set
func (suite *ConfigTestSuite) Test_LoadConfig_Values() {
	config, err := LoadConfig([]byte(`
	{
		"Hostname": "proxy.example.test",
		"Port": "46000",
		"NumListeners": 4,
		"DNSServers": ["192.0.2.53", "[2001:db8::53]:5353"],
		"ResolverCacheTTLSeconds": 0,
		"AddressFamily": "ipv6",
		"MaxReceiveBytes": 65536,
		"LogLevel": "debug",
		"LogFilename": "proxyserver.log"
	}`))
	suite.Require().NoError(err)

	suite.Equal("proxy.example.test", config.Hostname)
	suite.Equal(SinglePort(46000), config.Port)
	suite.Equal(4, config.NumListeners)
	suite.Equal([]string{"192.0.2.53", "[2001:db8::53]:5353"}, config.DNSServers)
	suite.Require().NotNil(config.ResolverCacheTTLSeconds)
	suite.Equal(0, *config.ResolverCacheTTLSeconds)
	suite.Equal(ADDRESS_FAMILY_IPV6, config.AddressFamily)
	suite.Equal(65536, config.MaxReceiveBytes)
	suite.Equal("debug", config.LogLevel)
	suite.Equal("proxyserver.log", config.LogFilename)

	ports, err := FindPorts(config.Port, config.NumListeners)
	suite.NoError(err)
	suite.Equal([]int{46000, 46001, 46002, 46003}, ports)
}

// Tests that null values take defaults, so that a marshalled Config loads
func (suite *ConfigTestSuite) Test_LoadConfig_Null() {
	config, err := LoadConfig([]byte(`{"Port": null, "ResolverCacheTTLSeconds": null}`))
	suite.Require().NoError(err)
	suite.Equal(NewDefaultConfig(), config)

	configJSON, err := json.Marshal(&Config{})
	suite.Require().NoError(err)
	suite.Contains(string(configJSON), `"Port":null`)
	config, err = LoadConfig(configJSON)
	suite.Require().NoError(err)
	suite.Equal(NewDefaultConfig(), config)
}

// Tests port lists
func (suite *ConfigTestSuite) Test_LoadConfig_PortList() {
	config, err := LoadConfig([]byte(`{"Port": [45000, "45100", 45200], "NumListeners": 2}`))
	suite.Require().NoError(err)
	suite.Equal(PortList(45000, 45100, 45200), config.Port)

	ports, err := FindPorts(config.Port, config.NumListeners)
	suite.NoError(err)
	suite.Equal([]int{45000, 45100}, ports)
}

// Tests non-JSON contents
func (suite *ConfigTestSuite) Test_LoadConfig_BadContents() {
	_, err := LoadConfig([]byte("**ohhi**"))
	suite.NotNil(err, "error should be set")
	var syntaxErr *json.SyntaxError
	suite.True(errors.As(err, &syntaxErr))

	_, err = LoadConfig([]byte(`{"NumListeners": "two"}`))
	suite.NotNil(err, "error should be set")
	var typeErr *json.UnmarshalTypeError
	suite.True(errors.As(err, &typeErr))
}

// Tests config values that fail validation
func (suite *ConfigTestSuite) Test_LoadConfig_Invalid() {
	for _, configJSON := range []string{
		`{"Port": 0}`,
		`{"Port": 65536}`,
		`{"Port": "99999"}`,
		`{"Port": "100000"}`,
		`{"Port": "http"}`,
		`{"Port": [45000, 0]}`,
		`{"Port": 65535, "NumListeners": 2}`,
		`{"NumListeners": -1}`,
		`{"DNSServers": ["dns.example.test"]}`,
		`{"DNSServers": ["192.0.2.53:0"]}`,
		`{"ResolverCacheTTLSeconds": -1}`,
		`{"AddressFamily": "ipx"}`,
		`{"MaxReceiveBytes": -1}`,
		`{"LogLevel": "loud"}`,
	} {
		_, err := LoadConfig([]byte(configJSON))
		suite.NotNil(err, "error should be set for %s", configJSON)
	}
}

// Tests that runtime-only fields are not read from JSON
func (suite *ConfigTestSuite) Test_LoadConfig_RuntimeFields() {
	config, err := LoadConfig([]byte(`{"DeviceBinder": {}, "Resolver": {}}`))
	suite.Require().NoError(err)
	suite.Nil(config.DeviceBinder)
	suite.Nil(config.Resolver)

	configJSON, err := json.Marshal(config)
	suite.Require().NoError(err)
	var fields map[string]interface{}
	suite.Require().NoError(json.Unmarshal(configJSON, &fields))
	_, ok := fields["DeviceBinder"]
	suite.False(ok)
	_, ok = fields["Resolver"]
	suite.False(ok)
}

// Tests that NewClient applies defaults and validates
func (suite *ConfigTestSuite) Test_NewClient_Config() {
	config := &Config{}
	_, err := NewClient(config)
	suite.Require().NoError(err)
	suite.True(reflect.DeepEqual(config, NewDefaultConfig()))

	_, err = NewClient(&Config{AddressFamily: "ipx"})
	suite.NotNil(err, "error should be set")
}
