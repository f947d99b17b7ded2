// Package realtime pushes workflow events to the live socket connections of
// their target users.
//
// A Registry maps user ids to their open connections behind one mutex. A
// Dispatcher encodes each event once and offers the frame to every connection
// of every target without blocking; a connection that cannot take the frame is
// torn down and unregistered. Conn runs the read and write pumps of a single
// socket, answering client pings and enforcing read and write deadlines. Hub
// owns all of it for the lifetime of the process.
package realtime
