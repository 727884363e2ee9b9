package share

import (
	"encoding/base64"
	"sort"
	"strings"
)

// EncodeSeedBitset packs a set of seed cell indices into a URL-safe,
// unpadded base64 string for a row of the given width.
//
// Packing is MSB-first within each byte: index idx sets bit (7 - idx%8)
// of byte idx/8. The payload length is ceil(width/8) bytes regardless of
// how many seeds are set, which keeps shared URLs short even at the
// maximum width (300 cells -> 38 bytes -> 51 base64 characters).
//
// The width is clamped to its bound; duplicate and out-of-range indices
// are discarded.
func EncodeSeedBitset(width int, seeds []int) string {
	width = clampInt(width, WidthMin, WidthMax)
	buf := make([]byte, (width+7)/8)
	for _, idx := range uniqueSorted(seeds, width) {
		buf[idx/8] |= 1 << (7 - idx%8)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

// DecodeSeedBitset reverses EncodeSeedBitset. It returns (nil, false) if
// encoded is not valid base64url; callers must treat that as "no seed
// information available" and fall back to random seeding.
//
// On success the result is every index in [0,width) whose bit is set, in
// ascending order. An all-zero bitset decodes to a non-nil empty slice:
// an explicit empty seed is distinct from an absent one.
//
// Payloads shorter than ceil(width/8) bytes are tolerated; missing bytes
// read as zero. Trailing padding characters are accepted and ignored.
func DecodeSeedBitset(width int, encoded string) ([]int, bool) {
	width = clampInt(width, WidthMin, WidthMax)

	buf, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		return nil, false
	}

	out := []int{}
	for idx := 0; idx < width; idx++ {
		b := idx / 8
		if b < len(buf) && buf[b]&(1<<(7-idx%8)) != 0 {
			out = append(out, idx)
		}
	}
	return out, true
}

// uniqueSorted returns the indices of seeds that fall in [0,width),
// deduplicated and in ascending order.
func uniqueSorted(seeds []int, width int) []int {
	if seeds == nil {
		return nil
	}
	seen := make(map[int]struct{}, len(seeds))
	out := make([]int, 0, len(seeds))
	for _, idx := range seeds {
		if idx < 0 || idx >= width {
			continue
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}
