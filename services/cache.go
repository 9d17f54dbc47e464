package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"plateshare-server/storage"
	"plateshare-server/utils"
)

// Redis-backed read cache keyed by logical resource name. Handlers read
// through it and declare staleness through the mutation table below, so the
// fan-out for each write is stated exactly once instead of being repeated
// (and eventually forgotten) at every call site.
//
// Last-write-wins per key; nothing is promised about ordering between two
// independent mutations.

const cacheTTL = 5 * time.Minute

var cacheContext = context.Background()

const (
	AvailableFoodsKey = "foods:available"
	FeaturedFoodsKey  = "foods:featured"
)

func FoodKey(foodID uint) string {
	return fmt.Sprintf("food:%d", foodID)
}

func FoodRequestsKey(foodID uint) string {
	return fmt.Sprintf("requests:food:%d", foodID)
}

func MyFoodsKey(email string) string {
	return "foods:my:" + strings.ToLower(email)
}

func MyRequestsKey(email string) string {
	return "requests:my:" + strings.ToLower(email)
}

func DonorRequestsKey(email string) string {
	return "requests:donor:" + strings.ToLower(email)
}

type Mutation string

const (
	MutationFoodCreated       Mutation = "food_created"
	MutationFoodUpdated       Mutation = "food_updated"
	MutationFoodStatusChanged Mutation = "food_status_changed"
	MutationFoodDeleted       Mutation = "food_deleted"
	MutationRequestCreated    Mutation = "request_created"
	MutationRequestResolved   Mutation = "request_resolved"
)

// MutationScope identifies the entities a mutation touched; key builders
// pick the parts they need.
type MutationScope struct {
	FoodID         uint
	DonorEmail     string
	RequesterEmail string
}

type keyFunc func(MutationScope) string

func fixed(key string) keyFunc {
	return func(MutationScope) string { return key }
}

func foodKey(s MutationScope) string          { return FoodKey(s.FoodID) }
func foodRequestsKey(s MutationScope) string  { return FoodRequestsKey(s.FoodID) }
func myFoodsKey(s MutationScope) string       { return MyFoodsKey(s.DonorEmail) }
func myRequestsKey(s MutationScope) string    { return MyRequestsKey(s.RequesterEmail) }
func donorRequestsKey(s MutationScope) string { return DonorRequestsKey(s.DonorEmail) }

// invalidations is the dependency table: every cached view a mutation can
// affect, declared once. New views get a row here, not a call-site edit.
var invalidations = map[Mutation][]keyFunc{
	MutationFoodCreated: {
		fixed(AvailableFoodsKey), fixed(FeaturedFoodsKey), myFoodsKey,
	},
	MutationFoodUpdated: {
		foodKey, fixed(AvailableFoodsKey), fixed(FeaturedFoodsKey), myFoodsKey,
	},
	MutationFoodStatusChanged: {
		foodKey, fixed(AvailableFoodsKey), fixed(FeaturedFoodsKey), myFoodsKey,
	},
	MutationFoodDeleted: {
		foodKey, fixed(AvailableFoodsKey), fixed(FeaturedFoodsKey), myFoodsKey,
		foodRequestsKey,
	},
	MutationRequestCreated: {
		foodRequestsKey, donorRequestsKey, myRequestsKey, foodKey,
	},
	// Accepting a request also flips the parent food to Donated, so every
	// view showing either entity goes stale.
	MutationRequestResolved: {
		foodRequestsKey, donorRequestsKey, myRequestsKey, foodKey,
		fixed(AvailableFoodsKey), fixed(FeaturedFoodsKey), myFoodsKey,
	},
}

// KeysFor returns the cache keys the mutation invalidates, in table order.
func KeysFor(m Mutation, scope MutationScope) []string {
	builders := invalidations[m]
	keys := make([]string, 0, len(builders))
	for _, build := range builders {
		keys = append(keys, build(scope))
	}
	return keys
}

// Invalidate drops every cached view the mutation affects. Called
// synchronously from mutation handlers before the response is written, so
// dependent re-fetches triggered by the client always miss.
func Invalidate(m Mutation, scope MutationScope) {
	if storage.Redis == nil {
		return
	}
	keys := KeysFor(m, scope)
	if len(keys) == 0 {
		return
	}
	if err := storage.Redis.Del(cacheContext, keys...).Err(); err != nil {
		utils.Log.WithError(err).WithField("mutation", string(m)).Warn("cache invalidation failed")
	}
}

// CacheGet loads a cached resource into dest, reporting a hit. Any error is
// treated as a miss.
func CacheGet(key string, dest interface{}) bool {
	if storage.Redis == nil {
		return false
	}
	raw, err := storage.Redis.Get(cacheContext, key).Bytes()
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		utils.Log.WithError(err).WithField("key", key).Warn("cache decode failed, dropping entry")
		storage.Redis.Del(cacheContext, key)
		return false
	}
	return true
}

// CacheSet stores a resource under its logical key. Failures only cost the
// next read a DB round trip, so they are logged and swallowed.
func CacheSet(key string, value interface{}) {
	if storage.Redis == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		utils.Log.WithError(err).WithField("key", key).Warn("cache encode failed")
		return
	}
	if err := storage.Redis.Set(cacheContext, key, raw, cacheTTL).Err(); err != nil {
		utils.Log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}
