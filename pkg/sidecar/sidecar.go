package sidecar

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/toshobooks/tosho/pkg/metadata"
)

const SidecarFilename = "series.metadata.json"

// SeriesSidecarPath returns the sidecar file path for a series directory.
func SeriesSidecarPath(seriesDir string) string {
	return filepath.Join(seriesDir, SidecarFilename)
}

// SeriesSidecarExists checks if a series sidecar file exists.
func SeriesSidecarExists(seriesDir string) bool {
	_, err := os.Stat(SeriesSidecarPath(seriesDir))
	return err == nil
}

// ReadSeriesSidecar reads and parses a series sidecar file.
// Returns nil, nil if the sidecar doesn't exist.
func ReadSeriesSidecar(seriesDir string) (*SeriesSidecar, error) {
	data, err := os.ReadFile(SeriesSidecarPath(seriesDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WithStack(err)
	}

	var s SeriesSidecar
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.WithStack(err)
	}

	return &s, nil
}

// WriteSeriesSidecar writes a series sidecar file.
func WriteSeriesSidecar(seriesDir string, s *SeriesSidecar) error {
	if s.Version == 0 {
		s.Version = CurrentVersion
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}

	// Sidecar files should be readable by users and other applications
	return errors.WithStack(os.WriteFile(SeriesSidecarPath(seriesDir), data, 0644)) //nolint:gosec
}

// SeriesSidecarFromRecord creates a SeriesSidecar from a metadata record
// and its match provenance.
func SeriesSidecarFromRecord(record metadata.Record, provider, providerSeriesID string) *SeriesSidecar {
	s := &SeriesSidecar{
		Version:         CurrentVersion,
		Title:           record.Title,
		AlternateTitles: record.AlternateTitles,
		Summary:         record.Summary,
		Status:          string(record.Status),
		ReleaseDate:     record.ReleaseDate,
		AgeRating:       record.AgeRating,
		Language:        record.Language,
		Score:           record.Score,
		Genres:          record.Genres,
		Tags:            record.Tags,
		Provider:        provider,
		ProviderSeries:  providerSeriesID,
	}

	for _, author := range record.Authors {
		s.Authors = append(s.Authors, AuthorMetadata{
			Name: author.Name,
			Role: author.Role,
		})
	}

	for _, link := range record.Links {
		s.Links = append(s.Links, LinkMetadata{
			Label: link.Label,
			URL:   link.URL,
		})
	}

	return s
}
