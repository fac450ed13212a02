package credential

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
	"github.com/ipfs/go-cid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"xdao.co/catchat/chaterr"
	"xdao.co/catchat/schema"
)

// DefaultCacheSize bounds the number of credentials a Verifier remembers.
const DefaultCacheSize = 1024

type verdict struct {
	cred schema.Credential
	err  error
}

// Verifier fetches and checks credentials referenced by other participants.
//
// Outcomes that depend only on content (valid, undecodable, bad signature)
// are cached by identifier; transport failures are not.
type Verifier struct {
	store  NodeStore
	cache  *lru.Cache
	group  singleflight.Group
	logger *zap.Logger
}

func NewVerifier(store NodeStore, size int, opts Options) (*Verifier, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{store: store, cache: cache, logger: logger.With(zap.Namespace("verifier"))}, nil
}

// Verify returns the credential at id once its signature checks out.
func (v *Verifier) Verify(ctx context.Context, id cid.Cid) (schema.Credential, error) {
	if !id.Defined() {
		return schema.Credential{}, chaterr.New(chaterr.KindPrecondition, "verify", "undefined cid")
	}
	if cached, ok := v.cache.Get(id); ok {
		r := cached.(verdict)
		return r.cred, r.err
	}
	res, err, _ := v.group.Do(id.KeyString(), func() (any, error) {
		var cred schema.Credential
		if err := v.store.DagGet(ctx, id, "", &cred); err != nil {
			if !chaterr.IsKind(err, chaterr.KindDecoding) {
				return nil, err
			}
			v.cache.Add(id, verdict{err: err})
			return verdict{err: err}, nil
		}
		r := verdict{cred: cred, err: cred.Verify()}
		if r.err != nil {
			v.logger.Debug("credential rejected", zap.String("site", "Verify"),
				zap.Stringer("cid", id), zap.Error(r.err))
			r.cred = schema.Credential{}
		}
		v.cache.Add(id, r)
		return r, nil
	})
	if err != nil {
		return schema.Credential{}, err
	}
	r := res.(verdict)
	return r.cred, r.err
}

// Len returns the number of cached outcomes.
func (v *Verifier) Len() int { return v.cache.Len() }
