package repositories

import (
	"context"
	"fmt"

	"github.com/curalink/curalink/internal/database"
	"github.com/curalink/curalink/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PublicationRepository struct {
	pool *pgxpool.Pool
}

func NewPublicationRepository(db *database.DB) *PublicationRepository {
	return &PublicationRepository{pool: db.Pool}
}

const publicationColumns = `id, external_id, source, title, authors, abstract, journal, year, doi,
	disease_areas, url, summary, created_at`

func scanPublicationRow(scanner rowScanner) (*models.Publication, error) {
	var p models.Publication
	err := scanner.Scan(
		&p.ID, &p.ExternalID, &p.Source, &p.Title, &p.Authors, &p.Abstract, &p.Journal, &p.Year, &p.DOI,
		&p.DiseaseAreas, &p.URL, &p.Summary, &p.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &p, nil
}

// UpsertExternal materializes an article fetched from PubMed keyed by PMID
func (r *PublicationRepository) UpsertExternal(ctx context.Context, p *models.Publication) (*models.Publication, error) {
	if p.ExternalID == nil || *p.ExternalID == "" {
		return nil, fmt.Errorf("external publication requires an external id: %w", models.ErrBadRequest)
	}

	query := `
		INSERT INTO publications (id, external_id, source, title, authors, abstract, journal, year, doi,
			disease_areas, url, summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (external_id) WHERE external_id IS NOT NULL DO UPDATE
		SET title = EXCLUDED.title,
		    authors = EXCLUDED.authors,
		    abstract = EXCLUDED.abstract,
		    journal = EXCLUDED.journal,
		    year = EXCLUDED.year,
		    doi = EXCLUDED.doi,
		    disease_areas = EXCLUDED.disease_areas,
		    url = EXCLUDED.url
		RETURNING ` + publicationColumns

	stored, err := scanPublicationRow(r.pool.QueryRow(ctx, query,
		uuid.New().String(), p.ExternalID, p.Source, p.Title, nonNil(p.Authors), p.Abstract, p.Journal, p.Year, p.DOI,
		nonNil(p.DiseaseAreas), p.URL, p.Summary,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert publication: %w", err)
	}

	return stored, nil
}

func (r *PublicationRepository) GetByID(ctx context.Context, id string) (*models.Publication, error) {
	query := `SELECT ` + publicationColumns + ` FROM publications WHERE id = $1`
	return scanPublicationRow(r.pool.QueryRow(ctx, query, id))
}

func (r *PublicationRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Publication, error) {
	query := `SELECT ` + publicationColumns + ` FROM publications WHERE external_id = $1`
	return scanPublicationRow(r.pool.QueryRow(ctx, query, externalID))
}

// List returns local publications, newest first. Author is a case-insensitive
// substring match against each entry of the author list.
func (r *PublicationRepository) List(ctx context.Context, f models.PublicationFilter) ([]*models.Publication, error) {
	query := `
		SELECT ` + publicationColumns + `
		FROM publications
		WHERE ($1 = '' OR EXISTS (SELECT 1 FROM unnest(disease_areas) d WHERE d ILIKE '%' || $1 || '%'))
		  AND ($2 = '' OR title ILIKE '%' || $2 || '%' OR abstract ILIKE '%' || $2 || '%'
		       OR EXISTS (SELECT 1 FROM unnest(disease_areas) d WHERE d ILIKE '%' || $2 || '%'))
		  AND ($3 = '' OR EXISTS (SELECT 1 FROM unnest(authors) a WHERE a ILIKE '%' || $3 || '%'))
		ORDER BY year DESC NULLS LAST, created_at DESC
		LIMIT $4
	`

	rows, err := r.pool.Query(ctx, query, f.DiseaseArea, f.Text, f.Author, limitOrDefault(f.Limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query publications: %w", err)
	}
	defer rows.Close()

	pubs := make([]*models.Publication, 0)
	for rows.Next() {
		p, err := scanPublicationRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan publication: %w", err)
		}
		pubs = append(pubs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return pubs, nil
}
