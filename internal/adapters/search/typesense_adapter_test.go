package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/typesense/typesense-go/v2/typesense/api"

	"github.com/zatekoja/hospital-booking/backend/internal/domain/entities"
	"github.com/zatekoja/hospital-booking/backend/internal/domain/providers"
)

func TestDoctorDocument(t *testing.T) {
	doc := doctorDocument(&entities.Doctor{ID: 12, Name: "Dr. Lan", Specialty: "Cardiology", HospitalID: 3, Rating: 4.8})

	assert.Equal(t, "12", doc["id"])
	assert.Equal(t, "Cardiology", doc["specialty"])
	assert.Equal(t, int64(3), doc["hospital_id"])
}

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name  string
		query providers.DoctorSearchQuery
		want  string
	}{
		{"no restrictions", providers.DoctorSearchQuery{Query: "lan"}, ""},
		{"specialty only", providers.DoctorSearchQuery{Specialty: "Cardiology"}, "specialty:=`Cardiology`"},
		{"both", providers.DoctorSearchQuery{Specialty: "Cardiology", HospitalID: 2}, "specialty:=`Cardiology` && hospital_id:=2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildFilter(tt.query))
		})
	}
}

func TestSearchParams(t *testing.T) {
	params := searchParams(providers.DoctorSearchQuery{Query: " lan ", HospitalID: 1})

	assert.Equal(t, "lan", *params.Q)
	assert.Equal(t, "name,specialty", *params.QueryBy)
	assert.Equal(t, defaultSearchLimit, *params.PerPage)
	assert.Equal(t, "hospital_id:=1", *params.FilterBy)
}

func TestHitIDs(t *testing.T) {
	docs := []map[string]interface{}{
		{"id": "7"},
		{"id": "not-a-number"},
		{"name": "missing id"},
		{"id": "2"},
	}
	hits := make([]api.SearchResultHit, len(docs))
	for i := range docs {
		hits[i] = api.SearchResultHit{Document: &docs[i]}
	}

	assert.Equal(t, []int64{7, 2}, hitIDs(&api.SearchResult{Hits: &hits}))
	assert.Nil(t, hitIDs(nil))
}
