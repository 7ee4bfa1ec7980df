package reconcile

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dubkit/dubkit/provider"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*\\n(.*?)```")

// Parse extracts the translation list from a raw model reply.
// It tries, in order: the reply as a JSON array, the reply as an
// {"items": [...]} envelope, each fenced code block, and finally any line
// that is itself a JSON array. Returns ErrMalformedResponse when no shape
// yields translations.
func Parse(raw string) ([]provider.Translation, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty reply", provider.ErrMalformedResponse)
	}

	if items, ok := tryDecode(raw); ok {
		return items, nil
	}

	for _, m := range fencedBlock.FindAllStringSubmatch(raw, -1) {
		if items, ok := tryDecode(strings.TrimSpace(m[1])); ok {
			return items, nil
		}
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			if items, ok := tryDecode(line); ok {
				return items, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: no translation list found", provider.ErrMalformedResponse)
}

// tryDecode attempts both accepted JSON shapes on a candidate string.
func tryDecode(s string) ([]provider.Translation, bool) {
	var arr []provider.Translation
	if err := json.Unmarshal([]byte(s), &arr); err == nil && len(arr) > 0 {
		return arr, true
	}
	var env provider.ReplyEnvelope
	if err := json.Unmarshal([]byte(s), &env); err == nil && len(env.Items) > 0 {
		return env.Items, true
	}
	return nil, false
}

// Result is the outcome of matching translations to a batch of n items.
type Result struct {
	// Resolved maps item id to its translation. Only ids within 1..n
	// appear.
	Resolved map[int]string

	// Missing lists item ids with no translation, ascending.
	Missing []int

	// Extra lists reply ids that name no item of the batch, ascending.
	Extra []int
}

// Complete reports whether every item was resolved.
func (r *Result) Complete() bool { return len(r.Missing) == 0 }

// Match resolves translations against a batch of n items with ids 1..n.
// The first occurrence of an id wins; duplicates and out-of-range ids go
// to Extra.
func Match(n int, items []provider.Translation) *Result {
	r := &Result{Resolved: make(map[int]string, n)}
	for _, it := range items {
		if it.ID < 1 || it.ID > n {
			r.Extra = append(r.Extra, it.ID)
			continue
		}
		if _, seen := r.Resolved[it.ID]; seen {
			r.Extra = append(r.Extra, it.ID)
			continue
		}
		r.Resolved[it.ID] = it.Translation
	}
	for id := 1; id <= n; id++ {
		if _, ok := r.Resolved[id]; !ok {
			r.Missing = append(r.Missing, id)
		}
	}
	sort.Ints(r.Extra)
	return r
}

// Merge folds a follow-up reply into an earlier result. Already-resolved
// ids keep their first translation, so merging the same reply twice is a
// no-op. Missing and Extra are recomputed for the combined state.
func (r *Result) Merge(n int, items []provider.Translation) {
	for _, it := range items {
		if it.ID < 1 || it.ID > n {
			r.Extra = append(r.Extra, it.ID)
			continue
		}
		if _, seen := r.Resolved[it.ID]; seen {
			continue
		}
		r.Resolved[it.ID] = it.Translation
	}
	r.Missing = r.Missing[:0]
	for id := 1; id <= n; id++ {
		if _, ok := r.Resolved[id]; !ok {
			r.Missing = append(r.Missing, id)
		}
	}
	sort.Ints(r.Extra)
}

// FollowUp builds the item list for a retry call covering exactly the
// missing ids, in ascending order. Items keep their original ids so the
// reply merges back without remapping; source indexes the batch payload
// by id.
func (r *Result) FollowUp(source func(id int) string) []provider.Item {
	items := make([]provider.Item, 0, len(r.Missing))
	for _, id := range r.Missing {
		items = append(items, provider.Item{ID: id, Text: source(id)})
	}
	return items
}
