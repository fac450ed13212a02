package session

import (
	"context"
	"errors"
	"sync"

	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p/core/peer"
	"go.uber.org/zap"

	"xdao.co/catchat/credential"
	"xdao.co/catchat/wallet"
)

// ErrClosed is returned when posting to a closed Session.
var ErrClosed = errors.New("session: closed")

// Node reports the identity of the transport node. *ipfs.Client implements it.
type Node interface {
	NodeID(ctx context.Context) (peer.ID, error)
}

type Options struct {
	Logger *zap.Logger
}

// Session owns the state of one user's identity handshake.
//
// Events are applied one at a time on a single goroutine; effects run on
// their own goroutines and post their results back as events. Close cancels
// in-flight effects.
type Session struct {
	credentials *credential.Protocol
	signer      wallet.Signer
	node        Node
	logger      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	events chan Event
	done   chan struct{}
	work   sync.WaitGroup

	attempt uint64 // owned by run

	mu       sync.RWMutex
	state    State
	watchers map[chan State]struct{}
	closed   bool
}

// New starts a session. When the durable store remembers a credential,
// recovery begins immediately.
func New(credentials *credential.Protocol, signer wallet.Signer, node Node, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		credentials: credentials,
		signer:      signer,
		node:        node,
		logger:      logger.With(zap.Namespace("session")),
		ctx:         ctx,
		cancel:      cancel,
		events:      make(chan Event, 16),
		done:        make(chan struct{}),
		watchers:    make(map[chan State]struct{}),
	}

	st, effects := Initial(credentials.Pending())
	s.state = st
	s.logger.Debug("session started", zap.String("site", "New"), zap.Stringer("phase", st.Phase()))
	s.execute(effects)

	go s.run()
	return s
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Credential returns the credential identifier when Ready.
func (s *Session) Credential() (cid.Cid, bool) {
	if r, ok := s.State().(Ready); ok {
		return r.CredentialID, true
	}
	return cid.Undef, false
}

// Dispatch queues ev. It blocks only while the queue is full.
func (s *Session) Dispatch(ctx context.Context, ev Event) error {
	if s.ctx.Err() != nil {
		return ErrClosed
	}
	select {
	case s.events <- ev:
		return nil
	case <-s.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) Connect(ctx context.Context) error { return s.Dispatch(ctx, Connect{}) }

func (s *Session) SetName(ctx context.Context, name string) error {
	return s.Dispatch(ctx, SetName{Name: name})
}

func (s *Session) SubmitName(ctx context.Context) error { return s.Dispatch(ctx, SubmitName{}) }

// Watch returns a channel receiving the current state and then every new
// one. A slow reader only sees the latest state. The channel is closed when
// ctx is done or the session closes.
func (s *Session) Watch(ctx context.Context) <-chan State {
	ch := make(chan State, 1)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch
	}
	ch <- s.state
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.done:
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.watchers[ch]; ok {
			delete(s.watchers, ch)
			close(ch)
		}
	}()
	return ch
}

// WaitFor blocks until cond holds for the current state.
func (s *Session) WaitFor(ctx context.Context, cond func(State) bool) (State, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var last State
	for st := range s.Watch(ctx) {
		last = st
		if cond(st) {
			return st, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return last, err
	}
	return last, ErrClosed
}

// Close stops the session and waits for in-flight effects to return.
func (s *Session) Close() error {
	s.cancel()
	<-s.done
	s.work.Wait()
	return nil
}

func (s *Session) run() {
	defer func() {
		s.mu.Lock()
		s.closed = true
		for ch := range s.watchers {
			delete(s.watchers, ch)
			close(ch)
		}
		s.mu.Unlock()
		close(s.done)
	}()
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev := <-s.events:
			s.apply(ev)
		}
	}
}

func (s *Session) apply(ev Event) {
	if c, ok := ev.(Connect); ok {
		s.attempt++
		c.Attempt = s.attempt
		ev = c
	}

	s.mu.Lock()
	prev := s.state
	next, effects := Transition(prev, ev)
	changed := !rejected(effects)
	s.state = next
	if changed {
		for ch := range s.watchers {
			publish(ch, next)
		}
	}
	s.mu.Unlock()

	if changed {
		logger := s.logger.With(zap.String("site", "apply"))
		if w, ok := next.(AwaitingWallet); ok && w.Err != nil {
			logger.Warn("reverted to awaiting wallet", zap.Stringer("from", prev.Phase()), zap.Error(w.Err))
		} else if prev.Phase() != next.Phase() {
			logger.Info("phase changed", zap.Stringer("from", prev.Phase()), zap.Stringer("to", next.Phase()))
		}
	}
	s.execute(effects)
}

// rejected reports whether Transition refused the event and kept the state.
func rejected(effects []Effect) bool {
	if len(effects) != 1 {
		return false
	}
	_, ok := effects[0].(Reject)
	return ok
}

// publish replaces any unread state in ch with st.
func publish(ch chan State, st State) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- st:
	default:
	}
}

func (s *Session) execute(effects []Effect) {
	for _, e := range effects {
		if r, ok := e.(Reject); ok {
			s.logger.Debug("event rejected", zap.String("site", "execute"), zap.Error(r.Err))
			continue
		}
		s.work.Add(1)
		go func(e Effect) {
			defer s.work.Done()
			if ev := s.perform(e); ev != nil {
				_ = s.Dispatch(s.ctx, ev)
			}
		}(e)
	}
}

// perform runs one effect and returns the event reporting its outcome.
func (s *Session) perform(e Effect) Event {
	ctx := s.ctx
	switch e := e.(type) {
	case RequestAccounts:
		accs, err := s.signer.Accounts(ctx)
		if err == nil && len(accs) == 0 {
			err = wallet.ErrNoAccounts
		}
		if err != nil {
			return AccountResolved{Attempt: e.Attempt, Err: err}
		}
		return AccountResolved{Attempt: e.Attempt, Address: accs[0]}

	case RequestPeerID:
		id, err := s.node.NodeID(ctx)
		return PeerResolved{Attempt: e.Attempt, PeerID: id, Err: err}

	case RequestReverseName:
		name, err := s.signer.ReverseResolve(ctx, e.Address)
		if err != nil {
			s.logger.Debug("reverse name unavailable", zap.String("site", "perform"),
				zap.Stringer("address", e.Address), zap.Error(err))
		}
		return NameResolved{Attempt: e.Attempt, Name: name, Err: err}

	case RequestSignature:
		msg, err := e.Payload.SigningBytes()
		if err != nil {
			return Signed{Attempt: e.Attempt, Err: err}
		}
		sig, err := s.signer.Sign(ctx, e.Address, msg)
		return Signed{Attempt: e.Attempt, Signature: sig, Err: err}

	case MintCredential:
		id, err := s.credentials.Mint(ctx, e.Credential)
		return Minted{Attempt: e.Attempt, ID: id, Err: err}

	case RecoverCredential:
		id, _, err := s.credentials.Recover(ctx)
		if err != nil {
			s.logger.Info("credential not recovered", zap.String("site", "perform"), zap.Error(err))
			return Recovered{Err: err}
		}
		return Recovered{ID: id}
	}
	return nil
}
