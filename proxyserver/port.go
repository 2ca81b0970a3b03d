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
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/Psiphon-Labs/proxyserver-client/proxyserver/common/errors"
)

const (
	MAX_PORT_LEN = 5
	MIN_PORT     = 1
	MAX_PORT     = 65535
)

// ValidatePort checks that port is in [1, 65535].
func ValidatePort(port int) error {
	if port < MIN_PORT || port > MAX_PORT {
		return newError(InvalidPort, errors.Tracef("%d is not a valid port", port))
	}
	return nil
}

// ParsePort converts the text form of a port. The text must be at most
// MAX_PORT_LEN characters, parse as a base 10 integer, and be a valid port.
func ParsePort(port string) (int, error) {
	if len(port) > MAX_PORT_LEN {
		return 0, newError(InvalidPort, errors.Tracef("%q is not a valid port", port))
	}
	value, err := strconv.Atoi(port)
	if err != nil {
		return 0, newError(InvalidPort, errors.Tracef("%q is not a valid port", port))
	}
	if err := ValidatePort(value); err != nil {
		return 0, err
	}
	return value, nil
}

// PortSpec is a port hint as it appears in configuration: a number, a
// numeric string, or a list of either. A single port is expanded across
// listeners by FindPorts.
type PortSpec struct {
	ports  []int
	isList bool
}

// SinglePort returns a PortSpec holding one port hint.
func SinglePort(port int) PortSpec {
	return PortSpec{ports: []int{port}}
}

// PortList returns a PortSpec holding an explicit list of ports.
func PortList(ports ...int) PortSpec {
	return PortSpec{ports: append([]int(nil), ports...), isList: true}
}

// IsZero reports whether no port was specified.
func (spec PortSpec) IsZero() bool {
	return len(spec.ports) == 0
}

// UnmarshalJSON leaves spec unchanged for a JSON null, following the
// encoding/json convention.
func (spec *PortSpec) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var values []json.RawMessage
		if err := json.Unmarshal(data, &values); err != nil {
			return errors.Trace(err)
		}
		ports := make([]int, 0, len(values))
		for _, value := range values {
			port, err := unmarshalPort(value)
			if err != nil {
				return errors.Trace(err)
			}
			ports = append(ports, port)
		}
		*spec = PortSpec{ports: ports, isList: true}
		return nil
	}
	port, err := unmarshalPort(data)
	if err != nil {
		return errors.Trace(err)
	}
	*spec = SinglePort(port)
	return nil
}

func (spec PortSpec) MarshalJSON() ([]byte, error) {
	if spec.isList {
		return json.Marshal(spec.ports)
	}
	if len(spec.ports) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(spec.ports[0])
}

func unmarshalPort(data []byte) (int, error) {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		return ParsePort(text)
	}
	var port int
	if err := json.Unmarshal(data, &port); err != nil {
		return 0, newError(InvalidPort, errors.Tracef("%s is not a valid port", string(data)))
	}
	if err := ValidatePort(port); err != nil {
		return 0, err
	}
	return port, nil
}

// FindPorts determines the port for each of numListeners proxy server
// listeners. A single port hint p yields p, p+1, ..., p+numListeners-1; a
// list yields at most its first numListeners entries.
func FindPorts(hint PortSpec, numListeners int) ([]int, error) {
	if numListeners < 1 {
		return nil, newError(MissingArgument, errors.Tracef("invalid listener count: %d", numListeners))
	}
	if hint.IsZero() {
		return nil, newError(MissingArgument, errors.TraceNew("port is required"))
	}

	if !hint.isList {
		ports := make([]int, numListeners)
		for i := range ports {
			ports[i] = hint.ports[0] + i
			if err := ValidatePort(ports[i]); err != nil {
				return nil, err
			}
		}
		return ports, nil
	}

	ports := hint.ports
	if len(ports) > numListeners {
		ports = ports[:numListeners]
	}
	for _, port := range ports {
		if err := ValidatePort(port); err != nil {
			return nil, err
		}
	}
	return append([]int(nil), ports...), nil
}
