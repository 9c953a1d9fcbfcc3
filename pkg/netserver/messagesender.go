// Package netserver implements the server side of the wire protocol
// (§4.9): Server accepts connections and hands each socket to its own
// Session, which forwards every stream/task callback from the
// real backend down the wire tagged with the client's own ids.
package netserver

// MessageSender is the seam between a session's protocol logic and its
// transport. Splitting it out (rather than writing frames directly in
// Session) is what makes the session's command handling testable
// without a real socket.
type MessageSender interface {
	SendMessage(op string, msg any) error
}
