// The MIT License (MIT)
//
// # Copyright (c) 2026 The Partyline Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package proto defines the JSON payload records carried inside wire
// frames on both the control link (client <-> directory server) and the
// peer link (client <-> client).
package proto

import "encoding/json"

// User is sent client->server at login: a name/password pair plus the
// server-assigned id (zero until the server replies).
type User struct {
	ID     uint32 `json:"id"`
	Name   string `json:"name"`
	Passwd string `json:"passwd"`
}

// BaseUserInfo is the identity a peer announces during the identity-swap
// handshake, and the identity the directory server assigns at login.
type BaseUserInfo struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
}

// Room is sent client->server to join or create a room, and echoed back
// by the server on success.
type Room struct {
	ID     uint32 `json:"id"`
	Name   string `json:"name"`
	Passwd string `json:"passwd"`
}

// ClientInfo is the serialized form of a room member as shipped to other
// members: either as part of the join-time member snapshot, or as a
// single-element server push announcing a newcomer. Addr is host:port —
// the endpoint the member listens on (and dials from) for peer links.
type ClientInfo struct {
	ID   uint32 `json:"id"`
	Name string `json:"name"`
	Addr string `json:"addr"`
}

// Marshal is a small convenience wrapper: every payload type knows how to
// turn itself into wire bytes.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes wire bytes into a payload value.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
