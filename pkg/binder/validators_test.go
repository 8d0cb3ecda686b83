package binder

import (
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validatorParams struct {
	ReleaseDate string `json:"release_date" validate:"date"`
	Link        string `json:"link" validate:"url"`
}

func TestDateValidator(t *testing.T) {
	t.Parallel()
	b, err := New()
	require.NoError(t, err)

	for _, payload := range []string{
		`{"release_date":"2001-07-12"}`,
		`{"release_date":""}`,
	} {
		c := newContext(payload, echo.MIMEApplicationJSON)
		p := validatorParams{}
		assert.NoError(t, b.Bind(&p, c))
	}

	for _, payload := range []string{
		`{"release_date":"2001/07/12"}`,
		`{"release_date":"July 12, 2001"}`,
	} {
		c := newContext(payload, echo.MIMEApplicationJSON)
		p := validatorParams{}
		assert.Error(t, b.Bind(&p, c))
	}
}

func TestURLValidator(t *testing.T) {
	t.Parallel()
	b, err := New()
	require.NoError(t, err)

	for _, payload := range []string{
		`{"link":"https://mangadex.org/title/abc"}`,
		`{"link":""}`,
	} {
		c := newContext(payload, echo.MIMEApplicationJSON)
		p := validatorParams{}
		assert.NoError(t, b.Bind(&p, c))
	}

	for _, payload := range []string{
		`{"link":"not a url"}`,
		`{"link":"ftp://example.com/file"}`,
	} {
		c := newContext(payload, echo.MIMEApplicationJSON)
		p := validatorParams{}
		assert.Error(t, b.Bind(&p, c))
	}
}
