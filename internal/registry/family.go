package registry

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/ppiankov/claimharvest/internal/cache"
	"github.com/ppiankov/claimharvest/internal/ident"
)

// FamilyMember is one publication related to a seed via a shared family
// grouping.
type FamilyMember struct {
	ID     ident.Identifier `json:"id"`
	IsSeed bool             `json:"is_seed"`
}

// Family is the parsed result of a family lookup.
type Family struct {
	FamilyID string         `json:"family_id"`
	Members  []FamilyMember `json:"members"`
}

// FetchFamily retrieves and parses the family document for a seed
// identifier. Same retry/refresh policy as claims fetches; the raw JSON
// is cached (success-only) under a hash of the dotted identifier.
func (c *Client) FetchFamily(ctx context.Context, seed ident.Identifier) (Family, FetchResult) {
	key := cache.Key("family:" + seed.Dotted())
	if doc, ok := c.familyStore.Get(key); ok {
		fam, err := ParseFamily(doc, seed)
		if err != nil {
			// Corrupted entry: discard and fall through to a live fetch.
			_ = c.familyStore.Delete(key)
		} else {
			return fam, FetchResult{Doc: doc, Status: StatusOKCached, CacheHit: true}
		}
	}

	url := fmt.Sprintf("%s/family/publication/docdb/%s", c.baseURL, seed.Dotted())
	res := c.getWithPolicy(ctx, url, "application/json", wantJSON, StatusNonJSON)
	if res.Status != StatusOK {
		return Family{}, res
	}

	fam, err := ParseFamily(res.Doc, seed)
	if err != nil {
		res.Status = StatusNonJSON
		return Family{}, res
	}

	if err := c.familyStore.PutIfAbsent(key, res.Doc); err != nil {
		c.logger.Warn("family cache write failed", zap.String("docdb", seed.Dotted()), zap.Error(err))
	}
	return fam, res
}

// ParseFamily extracts docdb publication members from a registry family
// document. The payload nests members under
// ops:world-patent-data -> ops:patent-family -> ops:family-member,
// where every level may be a single object or an array.
func ParseFamily(doc []byte, seed ident.Identifier) (Family, error) {
	if !gjson.ValidBytes(doc) {
		return Family{}, fmt.Errorf("family document is not valid JSON")
	}

	members := gjson.GetBytes(doc, "ops:world-patent-data.ops:patent-family.ops:family-member")
	if !members.Exists() {
		return Family{}, fmt.Errorf("family document has no family members")
	}

	fam := Family{}
	forEachElement(members, func(m gjson.Result) {
		if fam.FamilyID == "" {
			// Leading @ must be escaped or gjson reads it as a modifier.
			fam.FamilyID = m.Get(`\@family-id`).String()
		}
		docIDs := m.Get("publication-reference.document-id")
		forEachElement(docIDs, func(d gjson.Result) {
			if d.Get(`\@document-id-type`).String() != "docdb" {
				return
			}
			cc := valueOf(d.Get("country"))
			num := valueOf(d.Get("doc-number"))
			kind := valueOf(d.Get("kind"))
			if cc == "" || num == "" || kind == "" {
				return
			}
			id, err := ident.Parse(cc + "." + num + "." + kind)
			if err != nil {
				return
			}
			fam.Members = append(fam.Members, FamilyMember{
				ID:     id,
				IsSeed: id == seed,
			})
		})
	})

	if len(fam.Members) == 0 {
		return Family{}, fmt.Errorf("family document has no docdb members")
	}
	return fam, nil
}

// forEachElement visits a gjson node that may be a single object or an
// array of objects.
func forEachElement(r gjson.Result, fn func(gjson.Result)) {
	if !r.Exists() {
		return
	}
	if r.IsArray() {
		r.ForEach(func(_, v gjson.Result) bool {
			fn(v)
			return true
		})
		return
	}
	fn(r)
}

// valueOf unwraps registry scalar fields, which appear either as plain
// strings or as {"$": "value"} objects.
func valueOf(r gjson.Result) string {
	if !r.Exists() {
		return ""
	}
	if r.IsObject() {
		return r.Get("$").String()
	}
	return r.String()
}
