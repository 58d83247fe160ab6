package core

type FrameKind uint8

const (
	TextFrame FrameKind = iota
	BinaryFrame
)

// Frame is one transport message, either a JSON envelope or raw media bytes.
type Frame struct {
	Kind FrameKind
	Data []byte
}

func Text(data []byte) Frame   { return Frame{Kind: TextFrame, Data: data} }
func Binary(data []byte) Frame { return Frame{Kind: BinaryFrame, Data: data} }

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
//
// TrySend must not block: it either queues the frame or fails.
// Close flushes already queued frames and then closes the link; it is idempotent.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
