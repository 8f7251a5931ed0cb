package sharding

import (
	"fmt"
	"math/rand"

	"github.com/cespare/xxhash/v2"
)

// orderCodeSpace is the number of distinct ORD-nnnnnn display codes.
const orderCodeSpace = 1000000

type ShardRouter struct {
	ShardCount int // Number of order shards
}

func NewShardRouter(shardCount int) *ShardRouter {
	if shardCount < 1 {
		shardCount = 1
	}
	return &ShardRouter{ShardCount: shardCount}
}

// GetShard maps an order id onto a shard index. The same id always lands on
// the same shard for a fixed ShardCount.
func (r *ShardRouter) GetShard(id string) int {
	return int(xxhash.Sum64String(id) % uint64(r.ShardCount))
}

// Group buckets ids by shard, keeping the input order inside each bucket.
func (r *ShardRouter) Group(ids []string) map[int][]string {
	groups := make(map[int][]string)
	for _, id := range ids {
		shard := r.GetShard(id)
		groups[shard] = append(groups[shard], id)
	}
	return groups
}

// OrderCode draws a display code for the order with the given id. The code
// number is congruent to the order's shard modulo ShardCount, so codes never
// collide across shards and the per-shard UNIQUE index covers the rest.
func (r *ShardRouter) OrderCode(id string) string {
	slots := orderCodeSpace / r.ShardCount
	n := rand.Intn(slots)*r.ShardCount + r.GetShard(id)
	return fmt.Sprintf("ORD-%06d", n)
}

// CodeShard is the shard an order code was drawn for.
func (r *ShardRouter) CodeShard(code string) (int, bool) {
	var n int
	if _, err := fmt.Sscanf(code, "ORD-%06d", &n); err != nil {
		return 0, false
	}
	return n % r.ShardCount, true
}
