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
	"sync"

	"github.com/Psiphon-Labs/proxyserver-client/proxyserver/common/errors"
)

// Handle is the opaque, non-negative identifier of one open connection.
// Handles are never reused within a Client, so a stale handle cannot alias
// a newer connection.
type Handle int

// NoHandle is returned alongside errors.
const NoHandle Handle = -1

// handles maps open Handles to their owning Conns. The table is safe for
// concurrent use; the Conns it holds are not.
type handles struct {
	mutex      sync.Mutex
	nextHandle Handle
	conns      map[Handle]*Conn
}

func newHandles() *handles {
	return &handles{
		conns: make(map[Handle]*Conn),
	}
}

func (table *handles) add(conn *Conn) Handle {
	table.mutex.Lock()
	defer table.mutex.Unlock()
	handle := table.nextHandle
	table.nextHandle++
	table.conns[handle] = conn
	return handle
}

func (table *handles) get(handle Handle) (*Conn, error) {
	if handle < 0 {
		return nil, newError(InvalidHandle, errors.Tracef("invalid handle %d", handle))
	}
	table.mutex.Lock()
	defer table.mutex.Unlock()
	conn, ok := table.conns[handle]
	if !ok {
		return nil, newError(InvalidHandle, errors.Tracef("handle %d is not open", handle))
	}
	return conn, nil
}

// remove takes ownership of the Conn for handle away from the table.
func (table *handles) remove(handle Handle) (*Conn, error) {
	if handle < 0 {
		return nil, newError(InvalidHandle, errors.Tracef("invalid handle %d", handle))
	}
	table.mutex.Lock()
	defer table.mutex.Unlock()
	conn, ok := table.conns[handle]
	if !ok {
		return nil, newError(InvalidHandle, errors.Tracef("handle %d is not open", handle))
	}
	delete(table.conns, handle)
	return conn, nil
}

func (table *handles) count() int {
	table.mutex.Lock()
	defer table.mutex.Unlock()
	return len(table.conns)
}

// closeAll closes and forgets every open connection.
func (table *handles) closeAll() {
	table.mutex.Lock()
	conns := table.conns
	table.conns = make(map[Handle]*Conn)
	table.mutex.Unlock()
	for _, conn := range conns {
		conn.Close()
	}
}
