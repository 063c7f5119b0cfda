package csvsource

import (
	"fmt"
	"strconv"
	"time"

	"ClaimsPlatform/internal/domain"
	"ClaimsPlatform/internal/sampledata"
)

// feed dates use the compact yyyyMMdd form
const feedDateLayout = "20060102"

// ClaimParser parses the standard sample feed layout for one claim type:
// subject_id, claim_id, service_date, amount. Rows with an empty subject_id
// get a generated one.
type ClaimParser struct {
	claimType domain.ClaimType
	idgen     *sampledata.SubjectIDGenerator
}

var _ sampledata.Parser = (*ClaimParser)(nil)

// NewClaimParser builds a parser for the given claim type.
func NewClaimParser(claimType domain.ClaimType, idgen *sampledata.SubjectIDGenerator) *ClaimParser {
	return &ClaimParser{claimType: claimType, idgen: idgen}
}

// Type identifies which feed this parser handles.
func (p *ClaimParser) Type() domain.ClaimType {
	return p.claimType
}

// Parse converts raw CSV records into sample claims.
func (p *ClaimParser) Parse(req sampledata.Request) ([]domain.SampleClaim, error) {
	columns := columnIndex(req.Header)
	required := []string{"claim_id", "service_date"}
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("feed %s missing column %s", req.Type, name)
		}
	}

	claims := make([]domain.SampleClaim, 0, len(req.Records))
	for i, record := range req.Records {
		claim, err := p.parseRecord(columns, record)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		claims = append(claims, claim)
	}

	return claims, nil
}

func (p *ClaimParser) parseRecord(columns map[string]int, record []string) (domain.SampleClaim, error) {
	field := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return record[idx]
	}

	serviceDate, err := time.Parse(feedDateLayout, field("service_date"))
	if err != nil {
		return domain.SampleClaim{}, fmt.Errorf("parse service date: %w", err)
	}

	amount := 0.0
	if raw := field("amount"); raw != "" {
		amount, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return domain.SampleClaim{}, fmt.Errorf("parse amount: %w", err)
		}
	}

	subjectID := field("subject_id")
	if subjectID == "" && p.idgen != nil {
		subjectID = p.idgen.NextID()
	}
	if subjectID == "" {
		return domain.SampleClaim{}, fmt.Errorf("record has no subject id")
	}

	claimID := field("claim_id")
	if claimID == "" {
		return domain.SampleClaim{}, fmt.Errorf("record has no claim id")
	}

	return domain.SampleClaim{
		SubjectID:   subjectID,
		ClaimID:     claimID,
		Type:        p.claimType,
		ServiceDate: serviceDate,
		Amount:      amount,
	}, nil
}

func columnIndex(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[name] = i
	}
	return columns
}
