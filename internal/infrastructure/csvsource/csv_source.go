package csvsource

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"ClaimsPlatform/internal/domain"
	"ClaimsPlatform/internal/ports"
	"ClaimsPlatform/internal/sampledata"
)

// Source reads sample claim feeds from CSV files in a directory. Each
// configured claim type maps to <dir>/<type>.csv and is parsed by the
// strategy registered for it.
type Source struct {
	dir        string
	claimTypes []domain.ClaimType
	registry   *sampledata.Registry
	logger     *slog.Logger
}

var _ ports.SampleSource = (*Source)(nil)

// NewSource wires a CSV-backed sample source.
func NewSource(dir string, claimTypes []domain.ClaimType, registry *sampledata.Registry, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{dir: dir, claimTypes: claimTypes, registry: registry, logger: logger}
}

// FetchClaims parses every configured feed file. A missing file is skipped
// with a warning; a malformed one fails the whole fetch.
func (s *Source) FetchClaims(ctx context.Context) ([]domain.SampleClaim, error) {
	var claims []domain.SampleClaim
	for _, claimType := range s.claimTypes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(s.dir, string(claimType)+".csv")
		header, records, err := readCSV(path)
		if os.IsNotExist(err) {
			s.logger.Warn("sample feed missing, skipping", "type", claimType, "path", path)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read feed %s: %w", claimType, err)
		}

		parser, err := s.registry.Resolve(claimType)
		if err != nil {
			return nil, fmt.Errorf("resolve parser: %w", err)
		}

		parsed, err := parser.Parse(sampledata.Request{
			Type:    claimType,
			Header:  header,
			Records: records,
		})
		if err != nil {
			return nil, fmt.Errorf("parse feed %s: %w", claimType, err)
		}

		claims = append(claims, parsed...)
	}

	return claims, nil
}

func readCSV(path string) ([]string, [][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}

	return rows[0], rows[1:], nil
}
