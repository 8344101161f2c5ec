package catalog

import "strings"

// BrandKey returns the grouping key for an API id: the prefix up to the first
// colon. An id with no colon maps to itself.
func BrandKey(id string) string {
	if i := strings.IndexByte(id, ':'); i >= 0 {
		return id[:i]
	}
	return id
}

// GroupBrands folds a flat record list into brand aggregates, preserving
// first-seen order of brand keys.
//
// The primary record of a group is the one whose id equals the brand key
// exactly, else the first member encountered. Description prefers the
// primary's tldr over its description. Logo and doc_url are filled from the
// first group member carrying a value (first truthy wins in input order,
// independent of which member is primary), with doc_url falling back to the
// primary's website when no member documents one.
func GroupBrands(records []*ApiRecord) []*Brand {
	var order []string
	groups := make(map[string][]*ApiRecord)

	for _, r := range records {
		if r == nil {
			continue
		}
		key := BrandKey(r.ID)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}

	brands := make([]*Brand, 0, len(order))
	for _, key := range order {
		members := groups[key]

		primary := members[0]
		for _, m := range members {
			if m.ID == key {
				primary = m
				break
			}
		}

		desc := primary.TLDR
		if desc == "" {
			desc = primary.Description
		}

		var logo, docURL string
		for _, m := range members {
			if logo == "" && m.Logo != "" {
				logo = m.Logo
			}
			if docURL == "" && m.DocURL != "" {
				docURL = m.DocURL
			}
		}
		if docURL == "" {
			docURL = primary.Website
		}

		brands = append(brands, &Brand{
			ID:          key,
			Title:       primary.Title,
			Description: desc,
			Logo:        logo,
			Website:     primary.Website,
			DocURL:      docURL,
			ApiCount:    len(members),
		})
	}
	return brands
}
