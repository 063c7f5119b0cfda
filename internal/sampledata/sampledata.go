package sampledata

import (
	"fmt"

	"ClaimsPlatform/internal/domain"
)

// Request carries all parameters required to parse one sample feed.
type Request struct {
	Type    domain.ClaimType
	Header  []string
	Records [][]string
}

// Parser captures a single claim-feed format (inpatient, carrier, etc.).
type Parser interface {
	Type() domain.ClaimType
	Parse(req Request) ([]domain.SampleClaim, error)
}

// Registry keeps a mapping from claim types to their parser implementations.
type Registry struct {
	parsers map[domain.ClaimType]Parser
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: map[domain.ClaimType]Parser{}}
}

// Register adds or replaces a parser implementation.
func (r *Registry) Register(parser Parser) {
	if r.parsers == nil {
		r.parsers = map[domain.ClaimType]Parser{}
	}
	r.parsers[parser.Type()] = parser
}

// Resolve returns a parser by claim type or an error if it is absent.
func (r *Registry) Resolve(claimType domain.ClaimType) (Parser, error) {
	if parser, ok := r.parsers[claimType]; ok {
		return parser, nil
	}
	return nil, fmt.Errorf("no parser registered for claim type %s", claimType)
}
