package mail

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Common sentinel errors
var (
	ErrUnknownReceiver = errors.New("unknown receiver")
	ErrMailboxFull     = errors.New("mailbox full")
	ErrRouterClosed    = errors.New("router closed")
	ErrRequestTimeout  = errors.New("request timed out")
)

// DefaultSendTimeout bounds a send into a full mailbox.
const DefaultSendTimeout = 100 * time.Millisecond

// DefaultRequestTimeout bounds a request/reply round trip before the
// originator receives FAILURE.
const DefaultRequestTimeout = 10 * time.Second

// Mailbox is a bounded multiple-producer single-consumer FIFO owned by one
// agent.
type Mailbox struct {
	name string
	ch   chan Message
}

// Name returns the owning agent's name.
func (mb *Mailbox) Name() string { return mb.name }

// Len returns the number of queued messages.
func (mb *Mailbox) Len() int { return len(mb.ch) }

// Poll returns the next message without blocking. ok=false when empty.
func (mb *Mailbox) Poll() (Message, bool) {
	select {
	case msg := <-mb.ch:
		return msg, true
	default:
		return Message{}, false
	}
}

// Receive blocks for up to timeout waiting for a message.
func (mb *Mailbox) Receive(timeout time.Duration) (Message, bool) {
	select {
	case msg := <-mb.ch:
		return msg, true
	case <-time.After(timeout):
		return Message{}, false
	}
}

// Drain pops every currently queued message.
func (mb *Mailbox) Drain() []Message {
	var out []Message
	for {
		msg, ok := mb.Poll()
		if !ok {
			return out
		}
		out = append(out, msg)
	}
}

// Router owns all mailboxes and delivers messages between them.
type Router struct {
	mu        sync.RWMutex
	mailboxes map[string]*Mailbox
	capacity  int
	closed    bool
}

// NewRouter creates a router creating mailboxes of the given capacity.
func NewRouter(capacity int) *Router {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Router{
		mailboxes: make(map[string]*Mailbox),
		capacity:  capacity,
	}
}

// Register creates (or returns) the named mailbox.
func (r *Router) Register(name string) *Mailbox {
	r.mu.Lock()
	defer r.mu.Unlock()

	if mb, ok := r.mailboxes[name]; ok {
		return mb
	}
	mb := &Mailbox{name: name, ch: make(chan Message, r.capacity)}
	r.mailboxes[name] = mb
	return mb
}

// Unregister removes the named mailbox. Pending messages are discarded.
func (r *Router) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.mailboxes, name)
}

// Send delivers msg to its receiver's mailbox, blocking up to timeout when the
// mailbox is full. Back-pressure surfaces as ErrMailboxFull, never a silent
// drop.
func (r *Router) Send(msg Message, timeout time.Duration) error {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return ErrRouterClosed
	}
	mb, ok := r.mailboxes[msg.Receiver]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownReceiver, msg.Receiver)
	}

	select {
	case mb.ch <- msg:
		return nil
	default:
	}
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	select {
	case mb.ch <- msg:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("%w: %q", ErrMailboxFull, msg.Receiver)
	}
}

// Request performs a synchronous request/reply round trip: it registers an
// ephemeral reply mailbox, sends a REQUEST, and waits for the reply. A missing
// reply within timeout yields a synthetic FAILURE message and
// ErrRequestTimeout.
func (r *Router) Request(sender, receiver string, content Content, timeout time.Duration) (Message, error) {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	replyBox := "reply-" + uuid.NewString()
	mb := r.Register(replyBox)
	defer r.Unregister(replyBox)

	req := NewMessage(Request, replyBox, receiver, content)
	req.ConversationID = uuid.NewString()
	req.ReplyWith = req.ID
	if err := r.Send(req, DefaultSendTimeout); err != nil {
		return Message{}, err
	}

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		reply, ok := mb.Receive(remaining)
		if !ok {
			break
		}
		// AGREE is an acknowledgement; keep waiting for the substantive reply.
		if reply.Performative == Agree {
			continue
		}
		return reply, nil
	}

	fail := NewMessage(Failure, receiver, sender, Content{Kind: "timeout"})
	fail.InReplyTo = req.ID
	return fail, ErrRequestTimeout
}

// Close shuts the router down. Subsequent sends fail with ErrRouterClosed.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

// MailboxDepths reports the queue depth per registered mailbox.
func (r *Router) MailboxDepths() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	depths := make(map[string]int, len(r.mailboxes))
	for name, mb := range r.mailboxes {
		depths[name] = mb.Len()
	}
	return depths
}
