package metadata

import "strings"

// MergePolicy controls how candidate records are combined. ProviderOrder is
// the provider priority order; candidates from providers earlier in the
// list win scalar conflicts. The boolean flags switch the matching
// collection field from first-non-empty-wins to a de-duplicated union
// across all providers.
type MergePolicy struct {
	ProviderOrder []string
	Genres        bool
	Tags          bool
	Authors       bool
	Links         bool
}

// Merge combines candidate records into a single origin-agnostic Record.
// Scalar fields take the first non-empty value in provider priority order;
// collection fields either union across providers (preserving first-seen
// order, de-duplicating case-insensitively) or take the first non-empty
// collection outright. Merge is pure: it never mutates its inputs.
func Merge(candidates []Candidate, policy MergePolicy) Record {
	ordered := orderByPriority(candidates, policy.ProviderOrder)

	merged := Record{}
	for _, c := range ordered {
		if merged.Title == "" {
			merged.Title = c.Title
		}
		if merged.Summary == "" {
			merged.Summary = c.Summary
		}
		if merged.Status == "" {
			merged.Status = c.Status
		}
		if merged.ReleaseDate == "" {
			merged.ReleaseDate = c.ReleaseDate
		}
		if merged.Language == "" {
			merged.Language = c.Language
		}
		if merged.AgeRating == nil && c.AgeRating != nil {
			rating := *c.AgeRating
			merged.AgeRating = &rating
		}
		if merged.Score == nil && c.Score != nil {
			score := *c.Score
			merged.Score = &score
		}
		// Cover selection is first-wins, never blended.
		if merged.CoverURL == "" {
			merged.CoverURL = c.CoverURL
		}

		// Alternate titles are always aggregated; they exist to widen
		// matching, so losing any of them only hurts.
		merged.AlternateTitles = unionStrings(merged.AlternateTitles, c.AlternateTitles)
	}

	merged.Genres = mergeStrings(ordered, policy.Genres, func(c Candidate) []string { return c.Genres })
	merged.Tags = mergeStrings(ordered, policy.Tags, func(c Candidate) []string { return c.Tags })
	merged.Authors = mergeAuthors(ordered, policy.Authors)
	merged.Links = mergeLinks(ordered, policy.Links)

	return merged
}

// orderByPriority returns candidates sorted by their provider's position in
// providerOrder, stable within the same provider. Candidates from providers
// not present in the order keep their input order at the end.
func orderByPriority(candidates []Candidate, providerOrder []string) []Candidate {
	rank := make(map[string]int, len(providerOrder))
	for i, name := range providerOrder {
		rank[name] = i
	}

	ordered := make([]Candidate, 0, len(candidates))
	for pos := range providerOrder {
		for _, c := range candidates {
			if r, ok := rank[c.Provider]; ok && r == pos {
				ordered = append(ordered, c)
			}
		}
	}
	for _, c := range candidates {
		if _, ok := rank[c.Provider]; !ok {
			ordered = append(ordered, c)
		}
	}
	return ordered
}

func mergeStrings(ordered []Candidate, aggregate bool, get func(Candidate) []string) []string {
	if aggregate {
		var out []string
		for _, c := range ordered {
			out = unionStrings(out, get(c))
		}
		return out
	}
	for _, c := range ordered {
		if values := get(c); len(values) > 0 {
			return append([]string(nil), values...)
		}
	}
	return nil
}

// unionStrings appends values not already present, comparing
// case-insensitively and preserving first-seen order and casing.
func unionStrings(existing, values []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, v := range existing {
		seen[strings.ToLower(v)] = true
	}
	out := existing
	for _, v := range values {
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

func mergeAuthors(ordered []Candidate, aggregate bool) []Author {
	if !aggregate {
		for _, c := range ordered {
			if len(c.Authors) > 0 {
				return append([]Author(nil), c.Authors...)
			}
		}
		return nil
	}

	var out []Author
	seen := map[string]bool{}
	for _, c := range ordered {
		for _, a := range c.Authors {
			key := authorKey(a)
			if a.Name == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, a)
		}
	}
	return out
}

// authorKey de-duplicates authors by (normalized name, role).
func authorKey(a Author) string {
	name := strings.ToLower(strings.Join(strings.Fields(a.Name), " "))
	return name + "\x00" + strings.ToLower(a.Role)
}

func mergeLinks(ordered []Candidate, aggregate bool) []WebLink {
	if !aggregate {
		for _, c := range ordered {
			if len(c.Links) > 0 {
				return append([]WebLink(nil), c.Links...)
			}
		}
		return nil
	}

	var out []WebLink
	seen := map[string]bool{}
	for _, c := range ordered {
		for _, l := range c.Links {
			key := strings.ToLower(l.URL)
			if l.URL == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, l)
		}
	}
	return out
}
