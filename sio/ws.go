/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package sio

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/NicValentine/LoFi-Cafe/core"
	"github.com/NicValentine/LoFi-Cafe/util"

	"github.com/gorilla/websocket"
)

// WebSocket broadcasts each line as JSON to every connected client.
//
// Serve it as an http.Handler.  Clients only listen; anything they
// send is discarded.
type WebSocket struct {
	Upgrader websocket.Upgrader

	sync.Mutex
	conns map[*websocket.Conn]bool
}

func NewWebSocket() *WebSocket {
	return &WebSocket{
		conns: make(map[*websocket.Conn]bool),
	}
}

// Clients returns the number of connected clients.
func (ws *WebSocket) Clients() int {
	ws.Lock()
	defer ws.Unlock()
	return len(ws.conns)
}

func (ws *WebSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		util.Logger().Warn("websocket upgrade", "error", err)
		return
	}

	ws.Lock()
	ws.conns[conn] = true
	ws.Unlock()
	util.Logf("websocket client %s connected", conn.RemoteAddr())

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	ws.drop(conn)
	util.Logf("websocket client %s gone", conn.RemoteAddr())
}

func (ws *WebSocket) drop(conn *websocket.Conn) {
	ws.Lock()
	delete(ws.conns, conn)
	ws.Unlock()
	conn.Close()
}

// Emit writes the line to every client.  A client that can't be
// written to is dropped.
func (ws *WebSocket) Emit(ctx context.Context, l *core.Line) error {
	js, err := json.Marshal(l)
	if err != nil {
		return err
	}

	ws.Lock()
	var bad []*websocket.Conn
	for conn := range ws.conns {
		if err := conn.WriteMessage(websocket.TextMessage, js); err != nil {
			util.Logger().Warn("websocket write", "error", err)
			bad = append(bad, conn)
		}
	}
	ws.Unlock()

	for _, conn := range bad {
		ws.drop(conn)
	}

	return nil
}

// Close disconnects every client.
func (ws *WebSocket) Close() error {
	ws.Lock()
	conns := ws.conns
	ws.conns = make(map[*websocket.Conn]bool)
	ws.Unlock()
	for conn := range conns {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "closing"))
		conn.Close()
	}
	return nil
}
