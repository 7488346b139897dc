package state

import (
	"encoding/json"
	"fmt"
)

// DefaultCapacity bounds the seen-id sets; old entries beyond it are evicted.
const DefaultCapacity = 200

// Delivery records the downstream handle for a published official article
// and whether its one allowed supplement has been delivered.
type Delivery struct {
	Handle   string `json:"handle"`
	PairDone bool   `json:"pair_done"`
}

// State is the durable relay state carried across runs.
type State struct {
	SeenOfficials *BoundedSet
	SeenCommunity *BoundedSet
	Handles       map[string]Delivery
	Bootstrapped  bool
}

// New returns an empty state with the given seen-set capacity.
func New(capacity int) *State {
	return &State{
		SeenOfficials: NewBoundedSet(capacity),
		SeenCommunity: NewBoundedSet(capacity),
		Handles:       map[string]Delivery{},
	}
}

// document is the on-disk shape. The schema is versionless and additive:
// any missing field decodes to its zero value and is filled with defaults.
type document struct {
	SeenOfficials []string            `json:"seen_official_ids"`
	SeenCommunity []string            `json:"seen_community_ids"`
	Handles       map[string]Delivery `json:"delivery_handles"`
	Bootstrapped  bool                `json:"bootstrapped"`
}

// Encode serializes the state as an indented JSON document.
func Encode(st *State) ([]byte, error) {
	doc := document{
		SeenOfficials: st.SeenOfficials.Values(),
		SeenCommunity: st.SeenCommunity.Values(),
		Handles:       st.Handles,
		Bootstrapped:  st.Bootstrapped,
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return raw, nil
}

// Decode parses a state document, filling defaults for absent fields so
// older documents keep loading as the schema grows.
func Decode(raw []byte, capacity int) (*State, error) {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}

	st := New(capacity)
	for _, id := range doc.SeenOfficials {
		st.SeenOfficials.Add(id)
	}
	for _, id := range doc.SeenCommunity {
		st.SeenCommunity.Add(id)
	}
	if doc.Handles != nil {
		st.Handles = doc.Handles
	}
	st.Bootstrapped = doc.Bootstrapped
	return st, nil
}
