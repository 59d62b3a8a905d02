package memory

import (
	"math/rand"
	"sync"
	"time"
)

// Push ids are 20 characters: 8 encoding the millisecond timestamp and
// 12 of randomness, over an alphabet chosen so lexicographic order
// matches creation order. Ids minted within the same millisecond
// increment the random tail to stay ordered.
const pushAlphabet = "-0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ_abcdefghijklmnopqrstuvwxyz"

var (
	pushMu       sync.Mutex
	lastPushTime int64
	lastRand     [12]int
)

func nextPushID() string {
	pushMu.Lock()
	defer pushMu.Unlock()

	now := time.Now().UnixMilli()
	dup := now == lastPushTime
	lastPushTime = now

	var id [20]byte
	for i := 7; i >= 0; i-- {
		id[i] = pushAlphabet[now%64]
		now /= 64
	}

	if dup {
		for i := 11; i >= 0; i-- {
			lastRand[i]++
			if lastRand[i] < 64 {
				break
			}
			lastRand[i] = 0
		}
	} else {
		for i := range lastRand {
			lastRand[i] = rand.Intn(64)
		}
	}
	for i, v := range lastRand {
		id[8+i] = pushAlphabet[v]
	}
	return string(id[:])
}
