package svc

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"bindrop/metrics"
	"bindrop/pkg/domain"
	"bindrop/pkg/sniff"
	"bindrop/svc/db"
	"bindrop/svc/util"
)

// Paste maps one request's worth of work onto the storage backend: size
// precheck, bounded body read, MIME resolution, expiry computation.
type Paste struct {
	store      db.Store
	defaultTTL time.Duration
	now        func() time.Time
}

func NewPaste(store db.Store, defaultTTL time.Duration) *Paste {
	if store == nil {
		panic("paste service: nil store")
	}
	return &Paste{
		store:      store,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

type IngestParams struct {
	Body io.Reader
	// DeclaredLength is the Content-Length, -1 when the client did not
	// declare one.
	DeclaredLength int64
	FileName       string
	// Expires is the raw "expires" query value; ExpiresSet distinguishes
	// an absent parameter from an empty one.
	Expires    string
	ExpiresSet bool
}

// Ingest stores a new paste and returns its encoded identifier. The body
// is read in full before any storage write, so an aborted upload leaves
// no partial entry.
func (p *Paste) Ingest(ctx context.Context, params IngestParams) (string, error) {
	limit := p.store.MaxDataSize()
	var data []byte
	var err error
	if params.DeclaredLength >= 0 {
		data, err = util.ReadExact(params.Body, params.DeclaredLength, limit)
	} else {
		data, err = util.ReadAll(params.Body, limit)
	}
	if err != nil {
		if errors.Is(err, domain.ErrTooBig) {
			metrics.PasteRejectedTooBig.Inc()
		}
		return "", err
	}

	bestBefore, err := p.bestBefore(params.Expires, params.ExpiresSet)
	if err != nil {
		return "", err
	}

	entry := &domain.PasteEntry{
		Data:       data,
		FileName:   params.FileName,
		MimeType:   sniff.Resolve(params.FileName, data),
		BestBefore: bestBefore,
	}
	id, err := p.store.Put(ctx, entry)
	if err != nil {
		return "", err
	}
	metrics.PasteCreated.Inc()
	return id, nil
}

// bestBefore computes the expiry instant: "never" disables it, an integer
// is a Unix timestamp, and an absent parameter defaults to now plus the
// configured TTL.
func (p *Paste) bestBefore(expires string, set bool) (*time.Time, error) {
	if set {
		if expires == "never" {
			return nil, nil
		}
		sec, err := strconv.ParseInt(expires, 10, 64)
		if err != nil {
			return nil, domain.ErrInvalidRequest
		}
		t := time.Unix(sec, 0).UTC()
		return &t, nil
	}
	t := p.now().Add(p.defaultTTL).UTC()
	return &t, nil
}

func (p *Paste) Fetch(ctx context.Context, id string) (*domain.PasteEntry, error) {
	entry, err := p.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	metrics.PasteServed.Inc()
	return entry, nil
}

func (p *Paste) FileName(ctx context.Context, id string) (string, error) {
	return p.store.FileName(ctx, id)
}

func (p *Paste) Delete(ctx context.Context, id string) error {
	if err := p.store.Remove(ctx, id); err != nil {
		return err
	}
	metrics.PasteDeleted.Inc()
	return nil
}

func (p *Paste) MaxDataSize() int64 { return p.store.MaxDataSize() }

// StartCleaner runs a periodic sweep of expired entries for backends
// without native TTL support. Backends that are not Pruners (Mongo, Redis)
// expire entries on their own and get no worker.
func StartCleaner(ctx context.Context, store db.Store, interval time.Duration) bool {
	pruner, ok := store.(db.Pruner)
	if !ok {
		return false
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pruneCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
				pruned, err := pruner.PruneExpired(pruneCtx, time.Now())
				cancel()
				if err != nil {
					util.Warn().Err(err).Msg("expired paste sweep failed")
					continue
				}
				metrics.PruneCycles.Inc()
				if pruned > 0 {
					metrics.PrunedPastes.Add(float64(pruned))
					util.Info().Int64("pruned", pruned).Msg("expired pastes removed")
				}
			}
		}
	}()
	return true
}
