package patch

import "github.com/toshobooks/tosho/pkg/metadata"

// ApplyTo returns a copy of r with the patch applied. Unset fields are left
// byte-identical, Clear fields are zeroed, Value fields are replaced. Media
// server clients translate patches to their own wire format; this helper
// exists for in-process application (sidecar output, tests).
func (p *SeriesPatch) ApplyTo(r metadata.Record) metadata.Record {
	applyString(&r.Title, p.Title)
	applyString(&r.Summary, p.Summary)
	applyString(&r.ReleaseDate, p.ReleaseDate)
	applyString(&r.Language, p.Language)
	applyString(&r.CoverURL, p.CoverURL)

	switch p.Status.Op() {
	case OpClear:
		r.Status = ""
	case OpValue:
		r.Status, _ = p.Status.Get()
	}

	switch p.AgeRating.Op() {
	case OpClear:
		r.AgeRating = nil
	case OpValue:
		v, _ := p.AgeRating.Get()
		r.AgeRating = &v
	}

	switch p.Score.Op() {
	case OpClear:
		r.Score = nil
	case OpValue:
		v, _ := p.Score.Get()
		r.Score = &v
	}

	applySlice(&r.AlternateTitles, p.AlternateTitles)
	applySlice(&r.Genres, p.Genres)
	applySlice(&r.Tags, p.Tags)
	applySlice(&r.Authors, p.Authors)
	applySlice(&r.Links, p.Links)

	return r
}

// ApplyTo returns a copy of b with the patch applied.
func (p *BookPatch) ApplyTo(b metadata.Book) metadata.Book {
	applyString(&b.Title, p.Title)
	applyString(&b.Summary, p.Summary)
	applyString(&b.ReleaseDate, p.ReleaseDate)
	applyString(&b.CoverURL, p.CoverURL)
	return b
}

func applyString(target *string, f Field[string]) {
	switch f.Op() {
	case OpClear:
		*target = ""
	case OpValue:
		*target, _ = f.Get()
	}
}

func applySlice[T any](target *[]T, f Field[[]T]) {
	switch f.Op() {
	case OpClear:
		*target = nil
	case OpValue:
		v, _ := f.Get()
		*target = append([]T(nil), v...)
	}
}
