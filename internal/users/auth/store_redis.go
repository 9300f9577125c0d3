// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/toeic/internal/platform/apperr"
	"github.com/taibuivan/toeic/internal/platform/constants"
	"github.com/taibuivan/toeic/internal/platform/sec"
)

// RedisIssuedTokenRepository implements IssuedTokenRepository using Redis.
//
// # Key layout
//   - auth:token:<sha256(token)>    JSON [IssuedToken], TTL = token lifetime
//   - auth:user_tokens:<userID>     SET of token hashes, for revoke-all
type RedisIssuedTokenRepository struct {
	client redis.UniversalClient
}

// NewIssuedTokenRepository creates a new Redis-backed IssuedTokenRepository.
func NewIssuedTokenRepository(client redis.UniversalClient) *RedisIssuedTokenRepository {
	return &RedisIssuedTokenRepository{client: client}
}

func tokenKey(hash string) string {
	return constants.RedisPrefixIssuedToken + hash
}

func userTokensKey(userID string) string {
	return constants.RedisPrefixUserTokens + userID
}

/*
Record stores the issued token and indexes it under its owner.

Parameters:
  - context: context.Context
  - token: string (raw bearer value, only its hash is stored)
  - issued: IssuedToken
  - ttl: time.Duration

Returns:
  - error: Execution errors
*/
func (repository *RedisIssuedTokenRepository) Record(context context.Context, token string, issued IssuedToken, ttl time.Duration) error {
	payload, err := json.Marshal(issued)
	if err != nil {
		return fmt.Errorf("redis_issued_token_encode_failed: %w", err)
	}

	hash := sec.HashToken(token)
	indexKey := userTokensKey(issued.UserID)

	_, err = repository.client.TxPipelined(context, func(pipe redis.Pipeliner) error {
		pipe.Set(context, tokenKey(hash), payload, ttl)
		pipe.SAdd(context, indexKey, hash)

		// The index lives as long as the newest token it points to.
		pipe.Expire(context, indexKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis_issued_token_record_failed: %w", err)
	}
	return nil
}

/*
Find resolves a raw token into its revocation record.

Returns:
  - *IssuedToken: Stored record
  - error: apperr.NotFound when revoked or expired
*/
func (repository *RedisIssuedTokenRepository) Find(context context.Context, token string) (*IssuedToken, error) {
	payload, err := repository.client.Get(context, tokenKey(sec.HashToken(token))).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.NotFound("Token")
		}
		return nil, fmt.Errorf("redis_issued_token_get_failed: %w", err)
	}

	issued := &IssuedToken{}
	if err := json.Unmarshal(payload, issued); err != nil {
		return nil, fmt.Errorf("redis_issued_token_decode_failed: %w", err)
	}
	return issued, nil
}

// Revoke removes the token record and its index entry.
func (repository *RedisIssuedTokenRepository) Revoke(context context.Context, token string) (bool, error) {
	hash := sec.HashToken(token)

	issued, err := repository.Find(context, token)
	if err != nil {
		if apperr.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	_, err = repository.client.TxPipelined(context, func(pipe redis.Pipeliner) error {
		pipe.Del(context, tokenKey(hash))
		pipe.SRem(context, userTokensKey(issued.UserID), hash)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("redis_issued_token_revoke_failed: %w", err)
	}
	return true, nil
}

/*
RevokeAll removes every token indexed under userID.

Description: The token given in except (raw value, may be empty) survives,
so a password change can keep the caller's own session alive.

Returns:
  - int: Number of token records deleted
  - error: Execution failures
*/
func (repository *RedisIssuedTokenRepository) RevokeAll(context context.Context, userID, except string) (int, error) {
	indexKey := userTokensKey(userID)

	hashes, err := repository.client.SMembers(context, indexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis_issued_token_list_failed: %w", err)
	}

	keep := ""
	if except != "" {
		keep = sec.HashToken(except)
	}

	keys := make([]string, 0, len(hashes))
	members := make([]any, 0, len(hashes))
	for _, hash := range hashes {
		if hash == keep {
			continue
		}
		keys = append(keys, tokenKey(hash))
		members = append(members, hash)
	}

	if len(keys) == 0 {
		return 0, nil
	}

	var deleted *redis.IntCmd
	_, err = repository.client.TxPipelined(context, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(context, keys...)
		pipe.SRem(context, indexKey, members...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis_issued_token_revoke_all_failed: %w", err)
	}
	return int(deleted.Val()), nil
}
