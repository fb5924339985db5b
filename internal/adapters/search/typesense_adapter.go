package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/providers"
	tsclient "github.com/zatekoja/hospital-booking/backend/internal/infrastructure/clients/typesense"
)

// DoctorsCollection is the Typesense collection holding catalog doctors
const DoctorsCollection = "doctors"

const defaultSearchLimit = 20

// TypesenseAdapter implements doctor search using Typesense
type TypesenseAdapter struct {
	client *tsclient.Client
}

var _ providers.DoctorSearchProvider = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// InitSchema ensures the collection exists
func (a *TypesenseAdapter) InitSchema(ctx context.Context) error {
	_, err := a.client.Client().Collection(DoctorsCollection).Retrieve(ctx)
	if err == nil {
		return nil
	}

	schema := &api.CollectionSchema{
		Name: DoctorsCollection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "name", Type: "string"},
			{Name: "specialty", Type: "string", Facet: pointer.True()},
			{Name: "hospital_id", Type: "int64", Facet: pointer.True()},
			{Name: "rating", Type: "float"},
		},
		DefaultSortingField: pointer.String("rating"),
	}

	if _, err := a.client.Client().Collections().Create(ctx, schema); err != nil {
		return fmt.Errorf("failed to create typesense collection: %w", err)
	}
	return nil
}

func doctorDocument(d *entities.Doctor) map[string]interface{} {
	return map[string]interface{}{
		"id":          strconv.FormatInt(d.ID, 10),
		"name":        d.Name,
		"specialty":   d.Specialty,
		"hospital_id": d.HospitalID,
		"rating":      d.Rating,
	}
}

// Index upserts doctors into the collection
func (a *TypesenseAdapter) Index(ctx context.Context, doctors []*entities.Doctor) error {
	var errs []error
	for _, d := range doctors {
		if _, err := a.client.Client().Collection(DoctorsCollection).Documents().Upsert(ctx, doctorDocument(d)); err != nil {
			errs = append(errs, fmt.Errorf("doctor %d: %w", d.ID, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to index doctors: %w", errors.Join(errs...))
	}
	return nil
}

// buildFilter renders the specialty and hospital restrictions in Typesense filter syntax
func buildFilter(q providers.DoctorSearchQuery) string {
	var parts []string
	if q.Specialty != "" {
		parts = append(parts, fmt.Sprintf("specialty:=`%s`", strings.ReplaceAll(q.Specialty, "`", "")))
	}
	if q.HospitalID != 0 {
		parts = append(parts, fmt.Sprintf("hospital_id:=%d", q.HospitalID))
	}
	return strings.Join(parts, " && ")
}

func searchParams(q providers.DoctorSearchQuery) *api.SearchCollectionParams {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	params := &api.SearchCollectionParams{
		Q:       pointer.String(strings.TrimSpace(q.Query)),
		QueryBy: pointer.String("name,specialty"),
		PerPage: pointer.Int(limit),
	}
	if filter := buildFilter(q); filter != "" {
		params.FilterBy = pointer.String(filter)
	}
	return params
}

// hitIDs extracts doctor IDs in relevance order, skipping malformed documents
func hitIDs(result *api.SearchResult) []int64 {
	if result == nil || result.Hits == nil {
		return nil
	}
	ids := make([]int64, 0, len(*result.Hits))
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		raw, ok := (*hit.Document)["id"].(string)
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Search returns matching doctor IDs ordered by relevance
func (a *TypesenseAdapter) Search(ctx context.Context, q providers.DoctorSearchQuery) ([]int64, error) {
	result, err := a.client.Client().Collection(DoctorsCollection).Documents().Search(ctx, searchParams(q))
	if err != nil {
		return nil, fmt.Errorf("failed to search doctors: %w", err)
	}
	return hitIDs(result), nil
}
