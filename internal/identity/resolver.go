package identity

import "strings"

// Record is one resolved owner identity with the metadata from its first
// sighting.
type Record struct {
	RawName        string // first raw string seen for this identity
	Name           string // normalized form, the identity key
	MailingAddress string
}

// Resolver merges owner-name sightings from the current-owner field and
// from historical name/address blocks into one identity per normalized
// name. Insertion is first-seen-wins by raw string: once a raw name is a
// key it is never replaced, even if a later raw string normalizes to the
// same identity. That limitation is intentional and documented, not
// silently corrected.
type Resolver struct {
	order []string           // normalized identities, first-seen order
	byID  map[string]*Record // normalized -> record
	byRaw map[string]string  // raw -> normalized
}

// NewResolver returns an empty resolver for one run.
func NewResolver() *Resolver {
	return &Resolver{
		byID:  make(map[string]*Record),
		byRaw: make(map[string]string),
	}
}

// AddCurrent records the current-owner sighting with its mailing address.
func (r *Resolver) AddCurrent(rawName, mailingAddress string) {
	r.add(rawName, mailingAddress)
}

// AddHistorical records a sighting from a combined name/address block; the
// name is the block's first line and the remainder is the address.
func (r *Resolver) AddHistorical(block string) {
	lines := strings.SplitN(strings.TrimSpace(block), "\n", 2)
	name := strings.TrimSpace(lines[0])
	addr := ""
	if len(lines) == 2 {
		addr = strings.TrimSpace(strings.ReplaceAll(lines[1], "\n", " "))
	}
	r.add(name, addr)
}

func (r *Resolver) add(rawName, mailingAddress string) {
	rawName = strings.TrimSpace(rawName)
	if rawName == "" {
		return
	}
	if _, seen := r.byRaw[rawName]; seen {
		return
	}

	id := Normalize(rawName)
	if id == "" {
		return
	}
	r.byRaw[rawName] = id

	if _, exists := r.byID[id]; exists {
		// Same identity under a different raw spelling; the first raw
		// string keeps the slot.
		return
	}
	r.byID[id] = &Record{
		RawName:        rawName,
		Name:           id,
		MailingAddress: mailingAddress,
	}
	r.order = append(r.order, id)
}

// IdentityOf returns the normalized identity a raw name resolved to.
func (r *Resolver) IdentityOf(rawName string) (string, bool) {
	id, ok := r.byRaw[strings.TrimSpace(rawName)]
	return id, ok
}

// Owners returns one record per identity in first-seen order.
func (r *Resolver) Owners() []Record {
	out := make([]Record, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.byID[id])
	}
	return out
}

// Normalize reduces a raw owner name to its identity form: uppercase,
// commas and periods stripped, whitespace collapsed, and a trailing
// "& ET AL" removed. Two raw names are the same identity iff their
// normalized forms match.
func Normalize(raw string) string {
	s := strings.ToUpper(raw)
	s = strings.NewReplacer(",", "", ".", "").Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimSuffix(s, "& ET AL")
	return strings.TrimSpace(s)
}
