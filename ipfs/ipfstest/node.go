// Package ipfstest provides an in-process node speaking the subset of the
// Kubo RPC API used by package ipfs. Blocks live in a storage.CAS.
package ipfstest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multihash"

	"xdao.co/catchat/storage"
)

// Node is a fake store node. Create one with New.
type Node struct {
	// Multibase switches the pub/sub wire encoding to the Kubo >= 0.11 form.
	Multibase bool

	srv *httptest.Server
	cas storage.CAS

	mu     sync.Mutex
	id     peer.ID
	names  map[string]string
	subs   map[string]map[*subscriber]struct{}
	fail   map[string]error
	calls  map[string]int
	closed bool
}

// New starts a node backed by cas (a fresh storage.Memory when nil) and
// registers its shutdown with t.Cleanup.
func New(t testing.TB, cas storage.CAS) *Node {
	t.Helper()
	if cas == nil {
		cas = storage.NewMemory()
	}
	n := &Node{
		cas:   cas,
		id:    PeerID(t, "ipfstest-node"),
		names: make(map[string]string),
		subs:  make(map[string]map[*subscriber]struct{}),
		fail:  make(map[string]error),
		calls: make(map[string]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v0/cat", n.handle("cat", n.cat))
	mux.HandleFunc("/api/v0/dag/put", n.handle("dag/put", n.dagPut))
	mux.HandleFunc("/api/v0/dag/get", n.handle("dag/get", n.dagGet))
	mux.HandleFunc("/api/v0/name/resolve", n.handle("name/resolve", n.nameResolve))
	mux.HandleFunc("/api/v0/id", n.handle("id", n.identity))
	mux.HandleFunc("/api/v0/pubsub/pub", n.handle("pubsub/pub", n.pubsubPub))
	mux.HandleFunc("/api/v0/pubsub/sub", n.handle("pubsub/sub", n.pubsubSub))
	n.srv = httptest.NewServer(mux)
	t.Cleanup(n.Close)
	return n
}

// PeerID derives a deterministic peer identity from seed.
func PeerID(t testing.TB, seed string) peer.ID {
	t.Helper()
	mh, err := multihash.Sum([]byte(seed), multihash.SHA2_256, -1)
	if err != nil {
		t.Fatalf("multihash.Sum: %v", err)
	}
	return peer.ID(mh)
}

// URL returns the RPC base URL, suitable for ipfs.New.
func (n *Node) URL() string { return n.srv.URL + "/api/v0/" }

func (n *Node) CAS() storage.CAS { return n.cas }

func (n *Node) ID() peer.ID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.id
}

func (n *Node) SetID(id peer.ID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.id = id
}

// SetName points the naming record name at target.
func (n *Node) SetName(name string, target cid.Cid) {
	n.SetNamePath(name, "/ipfs/"+target.String())
}

// SetNamePath points the naming record name at an arbitrary path, such as
// one reaching inside a node.
func (n *Node) SetNamePath(name, path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.names[name] = path
}

// Fail makes every request to op fail with err until cleared with a nil err.
// An *APIError-shaped JSON body is sent with status 500.
func (n *Node) Fail(op string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err == nil {
		delete(n.fail, op)
		return
	}
	n.fail[op] = err
}

// Calls returns how many requests op received.
func (n *Node) Calls(op string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[op]
}

// Subscribers returns the number of open subscriptions on topic.
func (n *Node) Subscribers(topic string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs[topic])
}

// WaitSubscribers blocks until topic has at least want subscribers.
func (n *Node) WaitSubscribers(t testing.TB, topic string, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for n.Subscribers(topic) < want {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d subscribers on %q", want, topic)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// Deliver sends data on topic as if published by from.
func (n *Node) Deliver(topic string, from peer.ID, data []byte) {
	rec := map[string]any{"seqno": "AQ==", "topicIDs": []string{topic}}
	if n.Multibase {
		enc, _ := multibase.Encode(multibase.Base64url, data)
		rec["from"] = from.String()
		rec["data"] = enc
	} else {
		rec["from"] = base64.StdEncoding.EncodeToString([]byte(from))
		rec["data"] = base64.StdEncoding.EncodeToString(data)
	}
	line, _ := json.Marshal(rec)
	n.Inject(topic, line)
}

// Inject writes line verbatim (plus a newline) to every subscriber of topic.
func (n *Node) Inject(topic string, line []byte) {
	n.mu.Lock()
	subs := make([]*subscriber, 0, len(n.subs[topic]))
	for sub := range n.subs[topic] {
		subs = append(subs, sub)
	}
	n.mu.Unlock()
	for _, sub := range subs {
		select {
		case sub.lines <- append(append([]byte(nil), line...), '\n'):
		case <-sub.done:
		}
	}
}

// Close stops the server and ends every open subscription.
func (n *Node) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()
	n.srv.CloseClientConnections()
	n.srv.Close()
}

// DropSubscribers abruptly closes the client connections, simulating a
// network failure mid-stream.
func (n *Node) DropSubscribers() {
	n.srv.CloseClientConnections()
}

func (n *Node) handle(op string, h func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "only POST is allowed")
			return
		}
		n.mu.Lock()
		n.calls[op]++
		err := n.fail[op]
		n.mu.Unlock()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		h(w, r)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"Message": msg, "Code": 0, "Type": "error"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (n *Node) cat(w http.ResponseWriter, r *http.Request) {
	id, path, err := splitPath(r.URL.Query().Get("arg"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if path != "" {
		writeError(w, http.StatusBadRequest, "paths are not supported by cat")
		return
	}
	b, err := n.cas.Get(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_, _ = w.Write(b)
}

func (n *Node) dagPut(w http.ResponseWriter, r *http.Request) {
	if codec := r.URL.Query().Get("store-codec"); codec != "" && codec != "dag-json" {
		writeError(w, http.StatusBadRequest, "unsupported store-codec "+codec)
		return
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file: "+err.Error())
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !json.Valid(data) {
		writeError(w, http.StatusBadRequest, "invalid dag-json")
		return
	}
	id, err := n.cas.Put(cid.DagJSON, data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"Cid": map[string]string{"/": id.String()}})
}

func (n *Node) dagGet(w http.ResponseWriter, r *http.Request) {
	id, path, err := splitPath(r.URL.Query().Get("arg"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := n.cas.Get(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if path == "" {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
		return
	}
	var node any
	if err := json.Unmarshal(b, &node); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sub, err := walk(node, strings.Split(strings.Trim(path, "/"), "/"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, sub)
}

func (n *Node) nameResolve(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Query().Get("arg"), "/ipns/")
	n.mu.Lock()
	target, ok := n.names[name]
	n.mu.Unlock()
	if !ok {
		writeError(w, http.StatusInternalServerError, "could not resolve name")
		return
	}
	writeJSON(w, map[string]string{"Path": target})
}

func (n *Node) identity(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"ID": n.ID().String()})
}

func (n *Node) topicArg(r *http.Request) (string, error) {
	t := r.URL.Query().Get("arg")
	if !n.Multibase {
		return t, nil
	}
	_, b, err := multibase.Decode(t)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (n *Node) pubsubPub(w http.ResponseWriter, r *http.Request) {
	topic, err := n.topicArg(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var data []byte
	if n.Multibase {
		f, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing file: "+err.Error())
			return
		}
		data, err = io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		args := r.URL.Query()["arg"]
		if len(args) != 2 {
			writeError(w, http.StatusBadRequest, "expected topic and data arguments")
			return
		}
		data = []byte(args[1])
	}
	n.Deliver(topic, n.ID(), data)
	w.WriteHeader(http.StatusOK)
}

func (n *Node) pubsubSub(w http.ResponseWriter, r *http.Request) {
	topic, err := n.topicArg(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub := &subscriber{lines: make(chan []byte, 64), done: make(chan struct{})}
	n.mu.Lock()
	if n.subs[topic] == nil {
		n.subs[topic] = make(map[*subscriber]struct{})
	}
	n.subs[topic][sub] = struct{}{}
	n.mu.Unlock()
	defer func() {
		n.mu.Lock()
		delete(n.subs[topic], sub)
		n.mu.Unlock()
		close(sub.done)
	}()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Chunked-Output", "1")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case line := <-sub.lines:
			if _, err := w.Write(line); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// subscriber is one open pubsub/sub response. done is closed when its
// handler returns, so senders never block on a reader that is gone.
type subscriber struct {
	lines chan []byte
	done  chan struct{}
}

func splitPath(arg string) (cid.Cid, string, error) {
	arg = strings.TrimPrefix(arg, "/ipfs/")
	head, rest, _ := strings.Cut(arg, "/")
	id, err := cid.Decode(head)
	if err != nil {
		return cid.Undef, "", fmt.Errorf("invalid cid %q: %w", head, err)
	}
	return id, rest, nil
}

func walk(node any, segs []string) (any, error) {
	for _, s := range segs {
		switch v := node.(type) {
		case map[string]any:
			next, ok := v[s]
			if !ok {
				return nil, fmt.Errorf("no link named %q", s)
			}
			node = next
		case []any:
			i, err := strconv.Atoi(s)
			if err != nil || i < 0 || i >= len(v) {
				return nil, fmt.Errorf("invalid index %q", s)
			}
			node = v[i]
		default:
			return nil, fmt.Errorf("cannot traverse %q", s)
		}
	}
	return node, nil
}
