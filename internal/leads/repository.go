// Package leads provides the pipeline-facing slice of the lead store:
// matching an existing lead by contact number and auto-creating new ones.
// The full lead CRUD surface lives in the CRM web app, not here.
package leads

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

// Lead is a sales lead. The pipeline only reads and writes the subset of
// columns below; everything else belongs to the CRM web app.
type Lead struct {
	ID              uuid.UUID
	Name            string
	Contact         string
	Source          string
	LeadType        string
	Status          string
	Classification  string
	RequirementType string
	SiteRegion      string
	SiteLocation    string
	NextAction      string
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewLeadParams carries the fields the pipeline sets when auto-creating a lead.
type NewLeadParams struct {
	Name            string
	Contact         string
	Source          string
	LeadType        string
	Status          string
	Classification  string
	RequirementType string
	SiteRegion      string
	SiteLocation    string
	NextAction      string
	Notes           string
}

// Repository provides data access for leads.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new leads repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new lead and returns the stored row.
func (r *Repository) Create(ctx context.Context, params NewLeadParams) (Lead, error) {
	var lead Lead
	err := r.pool.QueryRow(ctx, `
		INSERT INTO leads (id, name, contact, source, lead_type, status, classification,
			requirement_type, site_region, site_location, next_action, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, name, contact, source, lead_type, status, classification,
			requirement_type, site_region, site_location, next_action, notes,
			created_at, updated_at
	`, uuid.New(), params.Name, params.Contact, params.Source, params.LeadType,
		params.Status, params.Classification, params.RequirementType,
		params.SiteRegion, params.SiteLocation, params.NextAction, params.Notes,
	).Scan(
		&lead.ID, &lead.Name, &lead.Contact, &lead.Source, &lead.LeadType,
		&lead.Status, &lead.Classification, &lead.RequirementType,
		&lead.SiteRegion, &lead.SiteLocation, &lead.NextAction, &lead.Notes,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	return lead, err
}

// FindLatestByContact returns the most recently created lead whose contact
// matches the given number.
func (r *Repository) FindLatestByContact(ctx context.Context, contact string) (Lead, error) {
	var lead Lead
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, contact, source, lead_type, status, classification,
			requirement_type, site_region, site_location, next_action, notes,
			created_at, updated_at
		FROM leads
		WHERE contact = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, contact).Scan(
		&lead.ID, &lead.Name, &lead.Contact, &lead.Source, &lead.LeadType,
		&lead.Status, &lead.Classification, &lead.RequirementType,
		&lead.SiteRegion, &lead.SiteLocation, &lead.NextAction, &lead.Notes,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// GetByID returns a single lead.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	var lead Lead
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, contact, source, lead_type, status, classification,
			requirement_type, site_region, site_location, next_action, notes,
			created_at, updated_at
		FROM leads
		WHERE id = $1
	`, id).Scan(
		&lead.ID, &lead.Name, &lead.Contact, &lead.Source, &lead.LeadType,
		&lead.Status, &lead.Classification, &lead.RequirementType,
		&lead.SiteRegion, &lead.SiteLocation, &lead.NextAction, &lead.Notes,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// UpdateFromAnalysis fills empty classification columns on a lead from a
// completed transcription. Existing non-empty values are preserved.
func (r *Repository) UpdateFromAnalysis(ctx context.Context, id uuid.UUID, params NewLeadParams) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads SET
			name = CASE WHEN name = '' OR name = 'Unknown' THEN COALESCE(NULLIF($2, ''), name) ELSE name END,
			classification = COALESCE(NULLIF(classification, ''), $3),
			requirement_type = COALESCE(NULLIF(requirement_type, ''), $4),
			site_region = COALESCE(NULLIF(site_region, ''), $5),
			site_location = COALESCE(NULLIF(site_location, ''), $6),
			next_action = COALESCE(NULLIF(next_action, ''), $7),
			notes = CASE WHEN $8 = '' THEN notes
				WHEN notes = '' THEN $8
				ELSE notes || E'\n' || $8 END,
			updated_at = now()
		WHERE id = $1
	`, id, params.Name, params.Classification, params.RequirementType,
		params.SiteRegion, params.SiteLocation, params.NextAction, params.Notes)
	return err
}
