// Attune - Recommendation Aggregation and Variety Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attune

package recommend

import (
	"encoding/binary"
	"hash/fnv"
	"sort"
	"strings"
	"time"
)

// varietySeedBucket is the time resolution of seed derivation. Repeated
// requests for the same context within one bucket reuse offsets, so the
// response cache stays coherent with retrieval.
const varietySeedBucket = time.Minute

// computeVarietySeed derives a deterministic seed from the request
// context. Identical country, location, and tag sets hashed within the
// same time bucket yield the same seed; any input change yields a
// different one. Tag order does not matter.
func computeVarietySeed(country, location string, tagIDs []string, now time.Time) uint64 {
	ids := append([]string(nil), tagIDs...)
	sort.Strings(ids)

	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(country))))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(strings.TrimSpace(location))))
	h.Write([]byte{0})
	for _, id := range ids {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}

	var bucket [8]byte
	binary.BigEndian.PutUint64(bucket[:], uint64(now.UTC().Truncate(varietySeedBucket).Unix()))
	h.Write(bucket[:])

	return h.Sum64()
}

// responseCacheKey hashes the request coordinates that determine a
// response, for use as the response cache key.
func responseCacheKey(req *Request) uint64 {
	h := fnv.New64a()
	h.Write([]byte(req.Domain.String()))
	h.Write([]byte{0})
	h.Write([]byte(req.UserKey))
	h.Write([]byte{0})

	descs := make([]string, 0, len(req.Descriptors))
	for _, d := range req.Descriptors {
		descs = append(descs, strings.ToLower(strings.TrimSpace(d)))
	}
	sort.Strings(descs)
	for _, d := range descs {
		h.Write([]byte(d))
		h.Write([]byte{0})
	}

	if req.Signal != nil {
		h.Write([]byte(strings.ToLower(req.Signal.Country)))
		h.Write([]byte{0})
		h.Write([]byte(strings.ToLower(req.Signal.Location)))
		h.Write([]byte{0})
	}
	if req.Cultural != nil {
		h.Write([]byte(strings.ToLower(req.Cultural.Region)))
		h.Write([]byte{0})
		h.Write([]byte(strings.ToLower(req.Cultural.LanguagePreference)))
		h.Write([]byte{0})
	}
	if req.Intent != nil {
		h.Write([]byte(strings.ToLower(req.Intent.PrimaryMood)))
		h.Write([]byte{0})
		h.Write([]byte(strings.ToLower(req.Intent.EnergyLevel)))
		h.Write([]byte{0})
	}

	var lim [8]byte
	binary.BigEndian.PutUint64(lim[:], uint64(req.Limit))
	h.Write(lim[:])

	return h.Sum64()
}
