package db

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"bindrop/pkg/domain"
	"bindrop/pkg/ident"
)

const (
	redisSeqKey      = "bindrop:seq"
	redisPastePrefix = "bindrop:paste:"
)

// Redis backend: 64-bit counter identifiers issued by INCR, one hash per
// paste, expiry handled by native key TTL.
type Redis struct {
	client  *redis.Client
	maxSize int64
}

func NewRedis(url string, maxSize int64) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	opt.MaxRetries = 3
	opt.MinRetryBackoff = 8 * time.Millisecond
	opt.MaxRetryBackoff = 512 * time.Millisecond
	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, errors.Wrap(err, "ping redis")
	}
	return &Redis{client: client, maxSize: maxSize}, nil
}

func (r *Redis) key(n uint64) string {
	return redisPastePrefix + strconv.FormatUint(n, 10)
}

func (r *Redis) Put(ctx context.Context, entry *domain.PasteEntry) (string, error) {
	n, err := r.client.Incr(ctx, redisSeqKey).Result()
	if err != nil {
		return "", domain.WrapStorage(errors.Wrap(err, "next id"))
	}
	key := r.key(uint64(n))
	fields := map[string]interface{}{
		"data":      entry.Data,
		"mime_type": entry.MimeType,
	}
	if entry.FileName != "" {
		fields["file_name"] = entry.FileName
	}
	if entry.BestBefore != nil {
		fields["best_before"] = entry.BestBefore.Unix()
	}
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	if entry.BestBefore != nil {
		pipe.ExpireAt(ctx, key, *entry.BestBefore)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return "", domain.WrapStorage(errors.Wrap(err, "store paste"))
	}
	return ident.EncodeUint64(uint64(n)), nil
}

func (r *Redis) Get(ctx context.Context, id string) (*domain.PasteEntry, error) {
	n, err := ident.DecodeUint64(id)
	if err != nil {
		return nil, err
	}
	fields, err := r.client.HGetAll(ctx, r.key(n)).Result()
	if err != nil {
		return nil, domain.WrapStorage(errors.Wrap(err, "load paste"))
	}
	if len(fields) == 0 {
		return nil, domain.ErrIDNotFound
	}
	entry := &domain.PasteEntry{
		Data:     []byte(fields["data"]),
		FileName: fields["file_name"],
		MimeType: fields["mime_type"],
	}
	if raw, ok := fields["best_before"]; ok {
		sec, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, domain.WrapStorage(errors.Wrap(err, "parse best_before"))
		}
		t := time.Unix(sec, 0).UTC()
		entry.BestBefore = &t
	}
	return entry, nil
}

func (r *Redis) FileName(ctx context.Context, id string) (string, error) {
	n, err := ident.DecodeUint64(id)
	if err != nil {
		return "", err
	}
	key := r.key(n)
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return "", domain.WrapStorage(errors.Wrap(err, "check paste"))
	}
	if exists == 0 {
		return "", domain.ErrIDNotFound
	}
	name, err := r.client.HGet(ctx, key, "file_name").Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", domain.WrapStorage(errors.Wrap(err, "load file name"))
	}
	return name, nil
}

func (r *Redis) Remove(ctx context.Context, id string) error {
	n, err := ident.DecodeUint64(id)
	if err != nil {
		return err
	}
	if err := r.client.Del(ctx, r.key(n)).Err(); err != nil {
		return domain.WrapStorage(errors.Wrap(err, "delete paste"))
	}
	return nil
}

func (r *Redis) MaxDataSize() int64 { return r.maxSize }

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error { return r.client.Close() }
