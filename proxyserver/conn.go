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
	"io"
	"net"

	"github.com/Psiphon-Labs/proxyserver-client/proxyserver/common/errors"
)

// Conn owns one connected stream. Close releases the underlying socket
// exactly once; later calls, and Send or Receive after Close, fail with
// InvalidHandle.
//
// Conn is not safe for concurrent use. The owner of a Conn must serialize
// its calls.
type Conn struct {
	conn            net.Conn
	maxReceiveBytes int
	isClosed        bool
}

func newConn(conn net.Conn, maxReceiveBytes int) *Conn {
	return &Conn{
		conn:            conn,
		maxReceiveBytes: maxReceiveBytes,
	}
}

// Send writes all of payload, retrying after partial writes, and returns
// the number of bytes written, which is len(payload) on success.
func (conn *Conn) Send(payload []byte) (int, error) {
	if conn.isClosed {
		return 0, newError(InvalidHandle, errors.TraceNew("send on closed connection"))
	}
	return writeAll(conn.conn, payload)
}

// Receive reads one message. See readMessage for the end of message rules.
func (conn *Conn) Receive() ([]byte, error) {
	if conn.isClosed {
		return nil, newError(InvalidHandle, errors.TraceNew("receive on closed connection"))
	}
	return readMessage(conn.conn, conn.maxReceiveBytes)
}

func (conn *Conn) Close() error {
	if conn.isClosed {
		return newError(InvalidHandle, errors.TraceNew("connection already closed"))
	}
	conn.isClosed = true
	err := conn.conn.Close()
	if err != nil {
		return newIOError(errors.Trace(err))
	}
	return nil
}

func (conn *Conn) RemoteAddr() net.Addr {
	return conn.conn.RemoteAddr()
}

func (conn *Conn) LocalAddr() net.Addr {
	return conn.conn.LocalAddr()
}

// writeAll loops until payload is fully written. The transport may accept
// fewer bytes than offered in one call. A write that makes no progress and
// reports no error is treated as io.ErrShortWrite.
func writeAll(writer io.Writer, payload []byte) (int, error) {
	totalBytesSent := 0
	for len(payload) > 0 {
		bytesSent, err := writer.Write(payload)
		if err != nil {
			return totalBytesSent, newIOError(errors.Trace(err))
		}
		if bytesSent <= 0 {
			return totalBytesSent, newIOError(errors.Trace(io.ErrShortWrite))
		}
		payload = payload[bytesSent:]
		totalBytesSent += bytesSent
	}
	return totalBytesSent, nil
}

// readMessage reads CHUNK_SIZE bytes at a time until either the peer closes
// the stream or a read returns less than a full chunk. A short read is taken
// as the end of the message. This is not framing: a message whose length is
// a multiple of CHUNK_SIZE, or one that stalls on a chunk boundary, blocks
// until the peer sends more or closes.
//
// On any failure the accumulated data is discarded.
func readMessage(reader io.Reader, maxReceiveBytes int) ([]byte, error) {
	buffer := newReceiveBuffer(maxReceiveBytes)
	var chunk [CHUNK_SIZE]byte

	for {
		bytesRead, err := reader.Read(chunk[:])

		if bytesRead > 0 {
			appendErr := buffer.append(chunk[:bytesRead])
			if appendErr != nil {
				buffer.release()
				return nil, appendErr
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			buffer.release()
			return nil, newIOError(errors.Trace(err))
		}

		// Zero bytes is end of stream; any other short read ends the message.
		if bytesRead < CHUNK_SIZE {
			break
		}
	}

	return buffer.bytes(), nil
}
