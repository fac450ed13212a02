package credential

import (
	"context"
	"encoding/json"

	"github.com/ipfs/go-cid"
	"go.uber.org/zap"

	"xdao.co/catchat/chaterr"
	"xdao.co/catchat/cidutil"
	"xdao.co/catchat/storage"
)

// Blocks is a NodeStore that keeps a local copy of every whole node it
// puts or fetches. Nodes are immutable, so a local copy is served without
// asking the remote store again, including while it is unreachable.
//
// Lookups with a path always go to the remote store.
type Blocks struct {
	remote NodeStore
	local  storage.CAS
	logger *zap.Logger
}

var _ NodeStore = (*Blocks)(nil)

func NewBlocks(remote NodeStore, local storage.CAS, opts Options) *Blocks {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Blocks{remote: remote, local: local, logger: logger.With(zap.Namespace("blocks"))}
}

func (b *Blocks) DagPut(ctx context.Context, node any) (cid.Cid, error) {
	id, err := b.remote.DagPut(ctx, node)
	if err != nil {
		return cid.Undef, err
	}
	if data, err := json.Marshal(node); err == nil {
		b.keep(id, data)
	}
	return id, nil
}

func (b *Blocks) DagGet(ctx context.Context, id cid.Cid, path string, out any) error {
	if path != "" {
		return b.remote.DagGet(ctx, id, path, out)
	}
	data, err := b.local.Get(id)
	if err != nil {
		var raw json.RawMessage
		if err := b.remote.DagGet(ctx, id, "", &raw); err != nil {
			return err
		}
		b.keep(id, raw)
		data = raw
	}
	if err := json.Unmarshal(data, out); err != nil {
		return chaterr.Decoding("dag/get", err)
	}
	return nil
}

// keep stores data locally when it hashes to id. The remote store may
// re-encode a node, in which case the local copy is skipped.
func (b *Blocks) keep(id cid.Cid, data []byte) {
	logger := b.logger.With(zap.String("site", "keep"), zap.Stringer("cid", id))
	sum, err := cidutil.Sum(id.Type(), data)
	if err != nil || !sum.Equals(id) {
		logger.Debug("node not kept: encoding differs from stored form")
		return
	}
	if _, err := b.local.Put(id.Type(), data); err != nil {
		logger.Warn("node not kept", zap.Error(err))
	}
}
