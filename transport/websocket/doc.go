// Package websocket pushes simulation updates to browsers and other
// observers over WebSocket.
//
// A central Hub owns every connection. Clients subscribe to one session with
// GET /ws?session=<id> and receive a JSON message each time that session
// changes:
//
//	{"session_id": "a1b2", "event": "session_updated", "session": {...}}
//	{"session_id": "a1b2", "event": "run_completed", "run": {...}}
//	{"session_id": "a1b2", "event": "session_deleted"}
//
// Observers are read-only; anything they send is ignored. Session IDs are
// matched case-insensitively.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
//	hub.BroadcastRun(result)
package websocket
