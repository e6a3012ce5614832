// Package session stores simulation sessions in memory.
//
// Sessions are keyed by short, case-insensitive IDs. A generated ID is four
// hex characters. Sessions that are not accessed for a while can be pruned
// with CleanupExpiredSessions; the serve command runs that periodically.
//
// Usage:
//
//	manager := session.NewManager()
//	sess, err := manager.Create("", engine.Field{Width: 10, Height: 10})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	same, _ := manager.Get(strings.ToUpper(sess.ID))
package session
