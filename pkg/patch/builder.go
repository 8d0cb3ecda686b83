package patch

import (
	"strings"

	"github.com/toshobooks/tosho/pkg/metadata"
)

// BuildSeries diffs merged against current and produces the minimal patch:
// locked fields are always Unset; fields whose merged value equals the
// current value (order-insensitive for collections) collapse to Unset;
// fields absent in merged collapse to Clear only when provenance marks the
// current value as provider-sourced, so user-authored values survive a
// provider that stops reporting a field.
func BuildSeries(current metadata.Record, merged metadata.Record, locks FieldFlags, sourced FieldFlags) *SeriesPatch {
	p := &SeriesPatch{}

	p.Title = diffString(current.Title, merged.Title, locks.Title, sourced.Title)
	p.Summary = diffString(current.Summary, merged.Summary, locks.Summary, sourced.Summary)
	p.ReleaseDate = diffString(current.ReleaseDate, merged.ReleaseDate, locks.ReleaseDate, sourced.ReleaseDate)
	p.Language = diffString(current.Language, merged.Language, locks.Language, sourced.Language)
	p.CoverURL = diffString(current.CoverURL, merged.CoverURL, locks.Cover, sourced.Cover)

	p.Status = diffStatus(current.Status, merged.Status, locks.Status, sourced.Status)
	p.AgeRating = diffIntPtr(current.AgeRating, merged.AgeRating, locks.AgeRating, sourced.AgeRating)
	p.Score = diffFloatPtr(current.Score, merged.Score, locks.Score, sourced.Score)

	p.AlternateTitles = diffStrings(current.AlternateTitles, merged.AlternateTitles, locks.AlternateTitles, sourced.AlternateTitles)
	p.Genres = diffStrings(current.Genres, merged.Genres, locks.Genres, sourced.Genres)
	p.Tags = diffStrings(current.Tags, merged.Tags, locks.Tags, sourced.Tags)
	p.Authors = diffAuthors(current.Authors, merged.Authors, locks.Authors, sourced.Authors)
	p.Links = diffLinks(current.Links, merged.Links, locks.Links, sourced.Links)

	return p
}

// BuildBook diffs a merged book record against the server's current book.
func BuildBook(current metadata.Book, merged metadata.Book, locks BookFieldFlags, sourced BookFieldFlags) *BookPatch {
	p := &BookPatch{}
	p.Title = diffString(current.Title, merged.Title, locks.Title, sourced.Title)
	p.Summary = diffString(current.Summary, merged.Summary, locks.Summary, sourced.Summary)
	p.ReleaseDate = diffString(current.ReleaseDate, merged.ReleaseDate, locks.ReleaseDate, sourced.ReleaseDate)
	p.CoverURL = diffString(current.CoverURL, merged.CoverURL, locks.Cover, sourced.Cover)
	return p
}

func diffString(current, merged string, locked, sourced bool) Field[string] {
	if locked || merged == current {
		return Unset[string]()
	}
	if merged == "" {
		if sourced {
			return Clear[string]()
		}
		return Unset[string]()
	}
	return Value(merged)
}

func diffStatus(current, merged metadata.Status, locked, sourced bool) Field[metadata.Status] {
	if locked || merged == current {
		return Unset[metadata.Status]()
	}
	if merged == "" {
		if sourced {
			return Clear[metadata.Status]()
		}
		return Unset[metadata.Status]()
	}
	return Value(merged)
}

func diffIntPtr(current, merged *int, locked, sourced bool) Field[int] {
	if locked {
		return Unset[int]()
	}
	switch {
	case merged == nil && current == nil:
		return Unset[int]()
	case merged == nil:
		if sourced {
			return Clear[int]()
		}
		return Unset[int]()
	case current != nil && *current == *merged:
		return Unset[int]()
	default:
		return Value(*merged)
	}
}

func diffFloatPtr(current, merged *float64, locked, sourced bool) Field[float64] {
	if locked {
		return Unset[float64]()
	}
	switch {
	case merged == nil && current == nil:
		return Unset[float64]()
	case merged == nil:
		if sourced {
			return Clear[float64]()
		}
		return Unset[float64]()
	case current != nil && *current == *merged:
		return Unset[float64]()
	default:
		return Value(*merged)
	}
}

func diffStrings(current, merged []string, locked, sourced bool) Field[[]string] {
	if locked || equalStringSets(current, merged) {
		return Unset[[]string]()
	}
	if len(merged) == 0 {
		if sourced {
			return Clear[[]string]()
		}
		return Unset[[]string]()
	}
	return Value(append([]string(nil), merged...))
}

func diffAuthors(current, merged []metadata.Author, locked, sourced bool) Field[[]metadata.Author] {
	if locked || equalAuthorSets(current, merged) {
		return Unset[[]metadata.Author]()
	}
	if len(merged) == 0 {
		if sourced {
			return Clear[[]metadata.Author]()
		}
		return Unset[[]metadata.Author]()
	}
	return Value(append([]metadata.Author(nil), merged...))
}

func diffLinks(current, merged []metadata.WebLink, locked, sourced bool) Field[[]metadata.WebLink] {
	if locked || equalLinkSets(current, merged) {
		return Unset[[]metadata.WebLink]()
	}
	if len(merged) == 0 {
		if sourced {
			return Clear[[]metadata.WebLink]()
		}
		return Unset[[]metadata.WebLink]()
	}
	return Value(append([]metadata.WebLink(nil), merged...))
}

// equalStringSets compares collections order-insensitively and
// case-insensitively.
func equalStringSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, v := range a {
		counts[strings.ToLower(v)]++
	}
	for _, v := range b {
		key := strings.ToLower(v)
		counts[key]--
		if counts[key] < 0 {
			return false
		}
	}
	return true
}

func equalAuthorSets(a, b []metadata.Author) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[metadata.Author]int, len(a))
	for _, v := range a {
		counts[normalizeAuthor(v)]++
	}
	for _, v := range b {
		key := normalizeAuthor(v)
		counts[key]--
		if counts[key] < 0 {
			return false
		}
	}
	return true
}

func normalizeAuthor(a metadata.Author) metadata.Author {
	return metadata.Author{
		Name: strings.ToLower(strings.Join(strings.Fields(a.Name), " ")),
		Role: strings.ToLower(a.Role),
	}
}

func equalLinkSets(a, b []metadata.WebLink) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, v := range a {
		counts[strings.ToLower(v.URL)]++
	}
	for _, v := range b {
		key := strings.ToLower(v.URL)
		counts[key]--
		if counts[key] < 0 {
			return false
		}
	}
	return true
}
