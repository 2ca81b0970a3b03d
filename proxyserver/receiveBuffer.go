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
	"github.com/Psiphon-Labs/proxyserver-client/proxyserver/common/errors"
)

// CHUNK_SIZE is the size of a single read from the transport.
const CHUNK_SIZE = 512

// receiveBuffer accumulates the chunks of one Receive call. Capacity starts
// at zero, the first growth allocates one chunk and every later growth adds
// two chunks. Growth always happens before data is appended, so the logical
// size never exceeds the capacity.
//
// Go cannot observe an allocation failure, so maxSize, when > 0, is the
// bound past which growth is treated as exhausted.
type receiveBuffer struct {
	data    []byte
	maxSize int
}

func newReceiveBuffer(maxSize int) *receiveBuffer {
	return &receiveBuffer{maxSize: maxSize}
}

func (buffer *receiveBuffer) grow(additional int) error {
	if buffer.maxSize > 0 && len(buffer.data)+additional > buffer.maxSize {
		return newError(
			OutOfMemory,
			errors.Tracef(
				"receive of %d bytes exceeds limit of %d bytes",
				len(buffer.data)+additional, buffer.maxSize))
	}
	for len(buffer.data)+additional > cap(buffer.data) {
		newCapacity := CHUNK_SIZE
		if cap(buffer.data) > 0 {
			newCapacity = cap(buffer.data) + 2*CHUNK_SIZE
		}
		grown := make([]byte, len(buffer.data), newCapacity)
		copy(grown, buffer.data)
		buffer.data = grown
	}
	return nil
}

// append grows the buffer as required and then copies chunk into it.
func (buffer *receiveBuffer) append(chunk []byte) error {
	err := buffer.grow(len(chunk))
	if err != nil {
		return err
	}
	buffer.data = append(buffer.data, chunk...)
	return nil
}

// release drops the accumulated data; the buffer is empty afterwards.
func (buffer *receiveBuffer) release() {
	buffer.data = nil
}

// bytes transfers ownership of the accumulated data to the caller. An empty
// buffer yields an empty, non-nil slice.
func (buffer *receiveBuffer) bytes() []byte {
	data := buffer.data
	buffer.data = nil
	if data == nil {
		return []byte{}
	}
	return data
}

func (buffer *receiveBuffer) size() int {
	return len(buffer.data)
}

func (buffer *receiveBuffer) capacity() int {
	return cap(buffer.data)
}
