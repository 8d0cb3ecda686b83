package patch

import "github.com/toshobooks/tosho/pkg/metadata"

// Op is the tri-state operation carried by a field patch. The zero value is
// OpUnset so an empty patch leaves the target untouched.
type Op int

const (
	// OpUnset means no opinion: leave the target field alone.
	OpUnset Op = iota
	// OpClear means explicit removal of the target field's value.
	OpClear
	// OpValue means set the target field to the carried value.
	OpValue
)

// Field is a tri-state patch value for one metadata field. Representing
// "leave alone" and "erase" as distinct states keeps them distinguishable
// at the type level instead of overloading nil.
type Field[T any] struct {
	op    Op
	value T
}

// Unset returns a Field with no opinion.
func Unset[T any]() Field[T] {
	return Field[T]{}
}

// Clear returns a Field that erases the target value.
func Clear[T any]() Field[T] {
	return Field[T]{op: OpClear}
}

// Value returns a Field that sets the target to v.
func Value[T any](v T) Field[T] {
	return Field[T]{op: OpValue, value: v}
}

func (f Field[T]) Op() Op { return f.op }

func (f Field[T]) IsUnset() bool { return f.op == OpUnset }

// Get returns the carried value and whether the op is OpValue.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.op == OpValue
}

// SeriesPatch is a minimal set of field changes for a series. Fields left
// Unset are not transmitted to the media server.
type SeriesPatch struct {
	Title           Field[string]
	AlternateTitles Field[[]string]
	Summary         Field[string]
	Status          Field[metadata.Status]
	ReleaseDate     Field[string]
	AgeRating       Field[int]
	Language        Field[string]
	Score           Field[float64]
	Genres          Field[[]string]
	Tags            Field[[]string]
	Authors         Field[[]metadata.Author]
	Links           Field[[]metadata.WebLink]
	CoverURL        Field[string]
}

// IsEmpty reports whether every field is Unset, i.e. applying the patch
// would change nothing.
func (p *SeriesPatch) IsEmpty() bool {
	return p.Title.IsUnset() &&
		p.AlternateTitles.IsUnset() &&
		p.Summary.IsUnset() &&
		p.Status.IsUnset() &&
		p.ReleaseDate.IsUnset() &&
		p.AgeRating.IsUnset() &&
		p.Language.IsUnset() &&
		p.Score.IsUnset() &&
		p.Genres.IsUnset() &&
		p.Tags.IsUnset() &&
		p.Authors.IsUnset() &&
		p.Links.IsUnset() &&
		p.CoverURL.IsUnset()
}

// BookPatch is a minimal set of field changes for a single book.
type BookPatch struct {
	Title       Field[string]
	Summary     Field[string]
	ReleaseDate Field[string]
	CoverURL    Field[string]
}

func (p *BookPatch) IsEmpty() bool {
	return p.Title.IsUnset() &&
		p.Summary.IsUnset() &&
		p.ReleaseDate.IsUnset() &&
		p.CoverURL.IsUnset()
}

// FieldFlags marks a subset of series metadata fields. It doubles as the
// lock policy (user locked a field on the server) and as field provenance
// (field value came from a provider run rather than a user).
type FieldFlags struct {
	Title           bool
	AlternateTitles bool
	Summary         bool
	Status          bool
	ReleaseDate     bool
	AgeRating       bool
	Language        bool
	Score           bool
	Genres          bool
	Tags            bool
	Authors         bool
	Links           bool
	Cover           bool
}

// BookFieldFlags marks a subset of book metadata fields.
type BookFieldFlags struct {
	Title       bool
	Summary     bool
	ReleaseDate bool
	Cover       bool
}
