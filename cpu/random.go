// Copyright 2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import "math/rand"

// A RandomSource supplies the bytes consumed by the RND instruction.
type RandomSource interface {
	RandomByte() byte
}

// Random is a seedable RandomSource. Two instances created with the same
// seed produce the same sequence.
type Random struct {
	rng *rand.Rand
}

// NewRandom creates a random byte source from seed.
func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

// RandomByte returns a byte drawn uniformly from [0,255].
func (r *Random) RandomByte() byte {
	return byte(r.rng.Intn(256))
}
