// bus.go
package bus

import (
	"reflect"
	"sync"
)

// -----------------------------------------------------------------------------
// Topics
// -----------------------------------------------------------------------------

// Wildcard tokens, MQTT style. "+" matches one level, "#" matches the rest
// (including zero levels) and must be the last token.
const (
	WildOne  = "+"
	WildRest = "#"
)

// Topic is a sequence of comparable tokens.
type Topic []any

// T builds a topic and panics on tokens that cannot be used as map keys.
func T(tokens ...any) Topic {
	for _, tok := range tokens {
		if tok == nil || !reflect.TypeOf(tok).Comparable() {
			panic("bus: topic token must be comparable")
		}
	}
	return Topic(tokens)
}

func (t Topic) Len() int { return len(t) }

// At returns the token at i, or nil when out of range.
func (t Topic) At(i int) any {
	if i < 0 || i >= len(t) {
		return nil
	}
	return t[i]
}

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
}

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection // owning connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// deliver never blocks: when the queue is full the oldest message is dropped.
func (s *Subscription) deliver(msg *Message) {
	select {
	case s.ch <- msg:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- msg:
	default:
	}
}

// -----------------------------------------------------------------------------
// Trie node
// -----------------------------------------------------------------------------

type node struct {
	children map[any]*node
	subs     []*Subscription
	retained *Message
}

func (n *node) child(tok any, create bool) *node {
	if c, ok := n.children[tok]; ok || !create {
		return c
	}
	if n.children == nil {
		n.children = make(map[any]*node)
	}
	c := &node{}
	n.children[tok] = c
	return c
}

// match collects subscriptions whose pattern matches the concrete topic.
func (n *node) match(topic Topic, out *[]*Subscription) {
	if c := n.children[WildRest]; c != nil {
		*out = append(*out, c.subs...)
	}
	if len(topic) == 0 {
		*out = append(*out, n.subs...)
		return
	}
	if c := n.children[topic[0]]; c != nil {
		c.match(topic[1:], out)
	}
	if c := n.children[WildOne]; c != nil {
		c.match(topic[1:], out)
	}
}

// retainedFor collects retained messages matching a subscription pattern.
func (n *node) retainedFor(pattern Topic, out *[]*Message) {
	if len(pattern) == 0 {
		if n.retained != nil {
			*out = append(*out, n.retained)
		}
		return
	}
	switch pattern[0] {
	case WildRest:
		n.allRetained(out)
	case WildOne:
		for tok, c := range n.children {
			if tok == WildOne || tok == WildRest {
				continue
			}
			c.retainedFor(pattern[1:], out)
		}
	default:
		if c := n.children[pattern[0]]; c != nil {
			c.retainedFor(pattern[1:], out)
		}
	}
}

func (n *node) allRetained(out *[]*Message) {
	if n.retained != nil {
		*out = append(*out, n.retained)
	}
	for _, c := range n.children {
		c.allRetained(out)
	}
}

func (n *node) empty() bool {
	return len(n.subs) == 0 && len(n.children) == 0 && n.retained == nil
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

type Bus struct {
	mu   sync.Mutex
	root *node
	qLen int
}

// NewBus creates a new bus with the given subscription queue length.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8 // safe default
	}
	return &Bus{
		root: &node{},
		qLen: queueLen,
	}
}

func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

// Publish delivers a message to all matching subscribers. It never blocks.
// A retained message with a nil payload clears the retained slot.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if msg.Retained {
		n := b.root
		for _, tok := range msg.Topic {
			if n = n.child(tok, msg.Payload != nil); n == nil {
				break
			}
		}
		if n != nil {
			if msg.Payload == nil {
				n.retained = nil
			} else {
				n.retained = msg
			}
		}
	}

	var targets []*Subscription
	b.root.match(msg.Topic, &targets)
	for _, sub := range targets {
		sub.deliver(msg)
	}
}

func (b *Bus) addSubscription(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	for _, tok := range sub.topic {
		n = n.child(tok, true)
	}
	n.subs = append(n.subs, sub)

	var retained []*Message
	b.root.retainedFor(sub.topic, &retained)
	for _, m := range retained {
		sub.deliver(m)
	}
}

// removeSubscription detaches sub and prunes empty nodes. It reports whether
// the subscription was still registered.
func (b *Bus) removeSubscription(sub *Subscription) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	stack := make([]*node, 0, len(sub.topic))
	for _, tok := range sub.topic {
		c := n.child(tok, false)
		if c == nil {
			return false
		}
		stack = append(stack, n)
		n = c
	}

	found := false
	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			found = true
			break
		}
	}

	for i := len(sub.topic) - 1; i >= 0; i-- {
		parent := stack[i]
		tok := sub.topic[i]
		if !parent.children[tok].empty() {
			break
		}
		delete(parent.children, tok)
	}
	return found
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

// Connection groups the subscriptions of one service so they can be dropped together.
type Connection struct {
	bus  *Bus
	id   string
	mu   sync.Mutex
	subs []*Subscription
}

// NewConnection creates a new connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

// Publish sends a message via the bus.
func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

// Subscribe registers a subscription owned by this connection. Matching
// retained messages are queued immediately.
func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	c.bus.addSubscription(sub)
	return sub
}

// Unsubscribe removes a subscription owned by this connection and closes its
// channel. Calling it twice is a no-op.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.mu.Lock()
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	if c.bus.removeSubscription(sub) {
		close(sub.ch)
	}
}

// Disconnect closes all subscriptions of this connection.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		if c.bus.removeSubscription(sub) {
			close(sub.ch)
		}
	}
}
