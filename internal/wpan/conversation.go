package wpan

import (
	"errors"
	"fmt"
)

// DefaultMaxConversations is the slot count of a zero-value EndpointState.
const DefaultMaxConversations = 3

// ConversationStatus is returned by a ResponseHandler.
type ConversationStatus int

const (
	// ConversationEnd frees the slot after the handler returns.
	ConversationEnd ConversationStatus = iota
	// ConversationContinue keeps the slot for further responses.
	ConversationContinue
)

// ResponseHandler receives responses to a registered transaction. env is nil
// when the conversation timed out.
type ResponseHandler func(conv *Conversation, env *Envelope) (ConversationStatus, error)

// Conversation is one outstanding request on an endpoint.
type Conversation struct {
	TransactionID uint8
	Handler       ResponseHandler
	// Timeout is the deadline in clock seconds (low 16 bits). 0 never expires.
	Timeout uint16
}

// Delete frees the slot. Handlers may call it on their own conversation.
func (c *Conversation) Delete() {
	if c != nil {
		*c = Conversation{}
	}
}

func (c *Conversation) active() bool { return c.Handler != nil }

// EndpointState holds the transaction counter and conversation slots of one
// endpoint. It is not safe for concurrent use; the owning device's tick loop
// serialises access.
type EndpointState struct {
	LastTransaction uint8

	conversations []Conversation
	clock         Clock
}

// NewEndpointState creates a state with capacity conversation slots.
func NewEndpointState(capacity int) *EndpointState {
	if capacity <= 0 {
		capacity = DefaultMaxConversations
	}
	return &EndpointState{conversations: make([]Conversation, capacity)}
}

var defaultClock Clock = NewSystemClock()

func (s *EndpointState) slots() []Conversation {
	if s.conversations == nil {
		s.conversations = make([]Conversation, DefaultMaxConversations)
	}
	return s.conversations
}

func (s *EndpointState) now() uint16 {
	if s.clock == nil {
		return uint16(defaultClock.Seconds())
	}
	return uint16(s.clock.Seconds())
}

// SetClock sets the source of the deadline seconds.
func (s *EndpointState) SetClock(c Clock) { s.clock = c }

// Conversations returns the in-use slots, for status output.
func (s *EndpointState) Conversations() []Conversation {
	var out []Conversation
	for _, c := range s.slots() {
		if c.active() {
			out = append(out, c)
		}
	}
	return out
}

// NextTransaction increments and returns the transaction counter. Every
// uint8 value, including 0, is produced before the sequence repeats.
func (s *EndpointState) NextTransaction() uint8 {
	s.LastTransaction++
	return s.LastTransaction
}

// Register allocates a transaction id and, when handler is non-nil, a slot
// that receives responses carrying that id. timeout is in seconds from now;
// 0 disables expiry.
func (s *EndpointState) Register(handler ResponseHandler, timeout uint16) (uint8, error) {
	if s == nil {
		return 0, ErrInvalid
	}
	if handler == nil {
		return s.NextTransaction(), nil
	}

	slots := s.slots()
	for i := range slots {
		conv := &slots[i]
		if conv.active() {
			continue
		}
		if timeout != 0 {
			timeout += s.now()
			// 0 means "never"; a deadline that lands on it moves one second later.
			if timeout == 0 {
				timeout = 1
			}
		}
		*conv = Conversation{
			TransactionID: s.NextTransaction(),
			Handler:       handler,
			Timeout:       timeout,
		}
		return conv.TransactionID, nil
	}
	return 0, ErrExhaustedPool
}

// Respond hands env to the conversation registered for transaction. A
// handler returning ConversationEnd frees the slot; a handler error is
// returned and leaves the slot for expiry.
func (s *EndpointState) Respond(transaction uint8, env *Envelope) error {
	if s == nil || env == nil {
		return ErrInvalid
	}
	slots := s.slots()
	for i := range slots {
		conv := &slots[i]
		if !conv.active() || conv.TransactionID != transaction {
			continue
		}
		status, err := conv.Handler(conv, env)
		if err != nil {
			return err
		}
		if status == ConversationEnd && conv.active() && conv.TransactionID == transaction {
			conv.Delete()
		}
		return nil
	}
	return ErrNotFound
}

// Cancel frees the slot registered for transaction without calling its
// handler. It reports whether a slot was freed.
func (s *EndpointState) Cancel(transaction uint8) bool {
	if s == nil {
		return false
	}
	slots := s.slots()
	for i := range slots {
		if slots[i].active() && slots[i].TransactionID == transaction {
			slots[i].Delete()
			return true
		}
	}
	return false
}

// Expire fires the handler of every conversation whose deadline has passed,
// with a nil envelope, and frees its slot. Handler errors are joined into
// the result; they never keep a slot alive.
func (s *EndpointState) Expire(now uint16) error {
	if s == nil {
		return nil
	}
	var errs []error
	slots := s.slots()
	for i := range slots {
		conv := &slots[i]
		if !conv.active() || conv.Timeout == 0 {
			continue
		}
		// Wrap-safe: deadlines within 32767 s of now compare correctly.
		if int16(now-conv.Timeout) < 0 {
			continue
		}
		handler, id := conv.Handler, conv.TransactionID
		if _, err := handler(conv, nil); err != nil {
			errs = append(errs, fmt.Errorf("transaction %d: %w", id, err))
		}
		if conv.active() && conv.TransactionID == id {
			conv.Delete()
		}
	}
	return errors.Join(errs...)
}
