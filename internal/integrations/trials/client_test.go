package trials

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/curalink/curalink/internal/integrations/resilient"
	"github.com/curalink/curalink/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const studiesFixture = `{
  "totalCount": 2,
  "studies": [
    {
      "protocolSection": {
        "identificationModule": {"nctId": "NCT001", "briefTitle": "Lung Cancer Immunotherapy Trial"},
        "statusModule": {"overallStatus": "RECRUITING", "lastUpdatePostDateStruct": {"date": "2025-11-02"}},
        "descriptionModule": {"briefSummary": "Tests <b>checkpoint</b> inhibitors."},
        "designModule": {"phases": ["PHASE2", "PHASE3"], "enrollmentInfo": {"count": 120}},
        "conditionsModule": {"conditions": ["Lung Cancer", "NSCLC"]},
        "contactsLocationsModule": {"locations": [{"city": "Boston", "state": "Massachusetts", "country": "United States"}]},
        "eligibilityModule": {"eligibilityCriteria": "Adults 18+"}
      }
    },
    {
      "protocolSection": {
        "identificationModule": {"nctId": "NCT002", "briefTitle": "Registry"},
        "statusModule": {"overallStatus": "COMPLETED"}
      }
    },
    {
      "protocolSection": {
        "identificationModule": {"briefTitle": "No id"}
      }
    }
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := resilient.DefaultConfig("trials")
	cfg.MaxAttempts = 1
	cfg.Timeout = 2 * time.Second
	return NewClient(resilient.New(cfg, nil, slog.New(slog.NewTextHandler(io.Discard, nil))), server.URL)
}

func TestSearch_BuildsQueryAndNormalizes(t *testing.T) {
	var query url.Values
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		_, _ = w.Write([]byte(studiesFixture))
	})

	trials, total, err := c.Search(context.Background(), SearchParams{
		Condition: "lung cancer",
		Location:  "Boston",
		Status:    "RECRUITING",
		PageSize:  20,
	})
	require.NoError(t, err)

	assert.Equal(t, "20", query.Get("pageSize"))
	assert.Equal(t, "true", query.Get("countTotal"))
	assert.Equal(t, "json", query.Get("format"))
	assert.Equal(t, `AREA[Condition]"lung cancer" AND AREA[LocationCity]"Boston"`, query.Get("query.term"))
	assert.Equal(t, "RECRUITING", query.Get("filter.overallStatus"))

	assert.Equal(t, 2, total)
	require.Len(t, trials, 2)

	first := trials[0]
	assert.Equal(t, "NCT001", first.ID)
	require.NotNil(t, first.ExternalID)
	assert.Equal(t, "NCT001", *first.ExternalID)
	assert.Equal(t, models.SourceClinicalTrials, first.Source)
	assert.Equal(t, "Tests checkpoint inhibitors.", first.Description)
	assert.Equal(t, "PHASE2, PHASE3", first.Phase)
	assert.Equal(t, "Boston, Massachusetts, United States", first.Location)
	assert.Equal(t, []string{"Lung Cancer", "NSCLC"}, first.DiseaseAreas)
	require.NotNil(t, first.Enrollment)
	assert.Equal(t, 120, *first.Enrollment)
	assert.Equal(t, "2025-11-02", first.LastUpdate)

	second := trials[1]
	assert.Equal(t, "N/A", second.Phase)
	assert.Equal(t, "Multiple Locations", second.Location)
	assert.Empty(t, second.DiseaseAreas)
	assert.Nil(t, second.Enrollment)
}

func TestSearch_OmitsEmptyFilters(t *testing.T) {
	var query url.Values
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		_, _ = w.Write([]byte(`{"studies":[],"totalCount":0}`))
	})

	trials, _, err := c.Search(context.Background(), SearchParams{PageSize: 5000})
	require.NoError(t, err)

	assert.Empty(t, trials)
	assert.Equal(t, "1000", query.Get("pageSize"))
	assert.False(t, query.Has("query.term"))
	assert.False(t, query.Has("filter.overallStatus"))
}

func TestSearch_UpstreamErrors(t *testing.T) {
	t.Run("bad request", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		})
		_, _, err := c.Search(context.Background(), SearchParams{Condition: "x"})
		assert.Error(t, err)
	})

	t.Run("malformed body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"studies": [`))
		})
		_, _, err := c.Search(context.Background(), SearchParams{Condition: "x"})
		assert.Error(t, err)
	})
}
