// Package ipfs is an HTTP client for a content-addressed store exposing the
// Kubo RPC API: binary fetch, JSON node put/get, naming resolution, node
// identity and pub/sub.
//
// The client holds no session state and is safe for concurrent use.
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p/core/peer"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"xdao.co/catchat/chaterr"
	"xdao.co/catchat/cidutil"
	"xdao.co/catchat/kv"
)

const (
	// DefaultURL is the RPC endpoint of a local node.
	DefaultURL = "http://127.0.0.1:5001/api/v0/"

	// AddrsKey is the durable storage key holding the RPC endpoint.
	AddrsKey = "ipfs_addrs"

	// maxErrorBody bounds how much of a failed response is read.
	maxErrorBody = 64 << 10
)

type Options struct {
	// HTTPClient overrides the pooled default client. It must not set a
	// global Timeout since pub/sub responses are long-lived.
	HTTPClient *http.Client

	Logger *zap.Logger

	// Multibase selects the wire encoding used by Kubo 0.11 and later:
	// topics are sent multibase encoded, publish data travels as a
	// multipart file and subscription senders arrive as peer id strings.
	// When false the legacy base64 encoding is used.
	Multibase bool
}

type Client struct {
	http      *http.Client
	base      *url.URL
	logger    *zap.Logger
	multibase bool
}

// New constructs a client for the RPC API rooted at baseURL
// (e.g. DefaultURL).
func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("ipfs: invalid api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("ipfs: unsupported api url scheme %q", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = cleanhttp.DefaultPooledClient()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:      hc,
		base:      u,
		logger:    logger.With(zap.Namespace("ipfs")),
		multibase: opts.Multibase,
	}, nil
}

// NewFromStorage constructs a client for the endpoint saved in s under
// AddrsKey. When none is saved, DefaultURL is stored and used.
func NewFromStorage(s kv.Store, opts Options) (*Client, error) {
	addr, err := s.Get(AddrsKey)
	if errors.Is(err, kv.ErrNotFound) {
		addr = DefaultURL
		if err := s.Put(AddrsKey, addr); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return New(addr, opts)
}

// BaseURL returns the RPC endpoint the client talks to.
func (c *Client) BaseURL() string { return c.base.String() }

// Cat downloads the content of the file or block named by id.
func (c *Client) Cat(ctx context.Context, id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, chaterr.New(chaterr.KindPrecondition, "cat", "undefined cid")
	}
	return c.catPath(ctx, id.String())
}

// CatPaths downloads two paths concurrently, e.g. the audio and video
// tracks of one segment. Both must succeed.
func (c *Client) CatPaths(ctx context.Context, first, second string) ([]byte, []byte, error) {
	var a, b []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		a, err = c.catPath(gctx, first)
		return err
	})
	g.Go(func() error {
		var err error
		b, err = c.catPath(gctx, second)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func (c *Client) catPath(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.post(ctx, "cat", nil, []string{path}, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, chaterr.Transport("cat", err)
	}
	return b, nil
}

type dagPutResponse struct {
	Cid struct {
		Target string `json:"/"`
	} `json:"Cid"`
}

// DagPut serializes node as JSON, stores it and returns its identifier.
func (c *Client) DagPut(ctx context.Context, node any) (cid.Cid, error) {
	data, err := json.Marshal(node)
	if err != nil {
		return cid.Undef, chaterr.Encoding("dag/put", err)
	}
	logger := c.logger.With(zap.String("site", "DagPut"))
	logger.Debug("serialized node", zap.ByteString("json", data))

	body, contentType, err := multipartFile("node.json", data)
	if err != nil {
		return cid.Undef, chaterr.Encoding("dag/put", err)
	}
	query := url.Values{
		"store-codec": {"dag-json"},
		"input-codec": {"dag-json"},
	}
	resp, err := c.post(ctx, "dag/put", query, nil, body, contentType)
	if err != nil {
		return cid.Undef, err
	}
	defer resp.Body.Close()

	var out dagPutResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return cid.Undef, chaterr.Decoding("dag/put", err)
	}
	id, err := cid.Decode(out.Cid.Target)
	if err != nil {
		return cid.Undef, chaterr.Decoding("dag/put", err)
	}
	logger.Debug("node stored", zap.Stringer("cid", id))
	return id, nil
}

// DagGet fetches the node at id, optionally navigating to path within it,
// and decodes it into out.
func (c *Client) DagGet(ctx context.Context, id cid.Cid, path string, out any) error {
	if !id.Defined() {
		return chaterr.New(chaterr.KindPrecondition, "dag/get", "undefined cid")
	}
	origin := id.String()
	if path != "" {
		if !strings.HasPrefix(path, "/") {
			origin += "/"
		}
		origin += path
	}
	c.logger.Debug("dag get", zap.String("site", "DagGet"), zap.String("origin", origin))

	resp, err := c.post(ctx, "dag/get", nil, []string{origin}, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return chaterr.Decoding("dag/get", err)
	}
	return nil
}

// GetNode is the typed form of Client.DagGet.
func GetNode[T any](ctx context.Context, c *Client, id cid.Cid, path string) (T, error) {
	var node T
	err := c.DagGet(ctx, id, path, &node)
	return node, err
}

type nameResolveResponse struct {
	Path string `json:"Path"`
}

// ResolveAndDagGet resolves the naming record name to its current target,
// then fetches that node, or the path inside it the record names, into out.
// The returned identifier is the root node's. Nothing is cached: the record may have
// advanced since a previous call.
func (c *Client) ResolveAndDagGet(ctx context.Context, name string, out any) (cid.Cid, error) {
	if name == "" {
		return cid.Undef, chaterr.New(chaterr.KindPrecondition, "name/resolve", "empty name")
	}
	resp, err := c.post(ctx, "name/resolve", nil, []string{name}, nil, "")
	if err != nil {
		return cid.Undef, err
	}
	var res nameResolveResponse
	err = json.NewDecoder(resp.Body).Decode(&res)
	resp.Body.Close()
	if err != nil {
		return cid.Undef, chaterr.Decoding("name/resolve", err)
	}

	// The record may point inside a node: /ipfs/<cid>/<path>.
	target, sub, _ := strings.Cut(strings.TrimPrefix(res.Path, "/ipfs/"), "/")
	id, err := cid.Decode(target)
	if err != nil {
		return cid.Undef, chaterr.Decoding("name/resolve", err)
	}
	c.logger.Debug("name resolved", zap.String("site", "ResolveAndDagGet"),
		zap.String("name", name), zap.Stringer("cid", id), zap.String("path", sub))

	if err := c.DagGet(ctx, id, sub, out); err != nil {
		return cid.Undef, err
	}
	return id, nil
}

// ResolveNode is the typed form of Client.ResolveAndDagGet.
func ResolveNode[T any](ctx context.Context, c *Client, name string) (cid.Cid, T, error) {
	var node T
	id, err := c.ResolveAndDagGet(ctx, name, &node)
	return id, node, err
}

type idResponse struct {
	ID string `json:"ID"`
}

// NodeID returns the peer identity of the node behind the API.
func (c *Client) NodeID(ctx context.Context) (peer.ID, error) {
	resp, err := c.post(ctx, "id", nil, nil, nil, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var res idResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", chaterr.Decoding("id", err)
	}
	id, err := cidutil.ParsePeerID(res.ID)
	if err != nil {
		return "", chaterr.Decoding("id", err)
	}
	return id, nil
}

// PubsubPub publishes payload on topic. Delivery is best effort: success
// means the node accepted the message, not that anyone received it.
func (c *Client) PubsubPub(ctx context.Context, topic string, payload []byte) error {
	var (
		resp *http.Response
		err  error
	)
	if c.multibase {
		t, terr := encodeTopic(topic)
		if terr != nil {
			return chaterr.Encoding("pubsub/pub", terr)
		}
		body, contentType, merr := multipartFile("data", payload)
		if merr != nil {
			return chaterr.Encoding("pubsub/pub", merr)
		}
		resp, err = c.post(ctx, "pubsub/pub", nil, []string{t}, body, contentType)
	} else {
		resp, err = c.post(ctx, "pubsub/pub", nil, []string{topic, string(payload)}, nil, "")
	}
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// post issues a POST to op with the given positional args. On a non-2xx
// status the body is decoded as an APIError and the response is closed.
func (c *Client) post(ctx context.Context, op string, query url.Values, args []string, body io.Reader, contentType string) (*http.Response, error) {
	u := c.base.ResolveReference(&url.URL{Path: op})
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	for _, a := range args {
		q.Add("arg", a)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), body)
	if err != nil {
		return nil, chaterr.Transport(op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, chaterr.Transport(op, err)
	}
	if resp.StatusCode/100 == 2 {
		return resp, nil
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if apiErr, ok := parseAPIError(b); ok {
		return nil, chaterr.Transport(op, apiErr)
	}
	return nil, chaterr.Transport(op, fmt.Errorf("unexpected status %s", resp.Status))
}

func multipartFile(name string, data []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
