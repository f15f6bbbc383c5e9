// Package trials fetches studies from the ClinicalTrials.gov v2 API and
// normalizes them into models.ClinicalTrial.
package trials

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/curalink/curalink/internal/models"
	"github.com/curalink/curalink/internal/textclean"
)

const maxPageSize = 1000

// Doer is the resilient transport used for every request
type Doer interface {
	Get(ctx context.Context, url string, header http.Header) (*http.Response, error)
}

type SearchParams struct {
	Condition string
	Location  string
	// Status is a ClinicalTrials.gov overall status such as RECRUITING
	Status   string
	PageSize int
}

type Client struct {
	doer    Doer
	baseURL string
}

func NewClient(doer Doer, baseURL string) *Client {
	return &Client{doer: doer, baseURL: baseURL}
}

// Search returns normalized trials and the upstream total count.
// Studies without an NCT id are skipped.
func (c *Client) Search(ctx context.Context, params SearchParams) ([]*models.ClinicalTrial, int, error) {
	resp, err := c.doer.Get(ctx, c.searchURL(params), http.Header{"Accept": {"application/json"}})
	if err != nil {
		return nil, 0, fmt.Errorf("clinical trials search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, 0, fmt.Errorf("clinical trials search: status %d", resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, 0, fmt.Errorf("decode clinical trials response: %w", err)
	}

	trials := make([]*models.ClinicalTrial, 0, len(body.Studies))
	for _, s := range body.Studies {
		if t := normalize(s); t != nil {
			trials = append(trials, t)
		}
	}

	return trials, body.TotalCount, nil
}

func (c *Client) searchURL(params SearchParams) string {
	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	q := url.Values{}
	q.Set("pageSize", strconv.Itoa(pageSize))
	q.Set("countTotal", "true")
	q.Set("format", "json")

	var terms []string
	if params.Condition != "" {
		terms = append(terms, fmt.Sprintf("AREA[Condition]%q", params.Condition))
	}
	if params.Location != "" {
		terms = append(terms, fmt.Sprintf("AREA[LocationCity]%q", params.Location))
	}
	if len(terms) > 0 {
		q.Set("query.term", strings.Join(terms, " AND "))
	}
	if params.Status != "" {
		q.Set("filter.overallStatus", params.Status)
	}

	return c.baseURL + "?" + q.Encode()
}

type searchResponse struct {
	Studies    []study `json:"studies"`
	TotalCount int     `json:"totalCount"`
}

type study struct {
	ProtocolSection struct {
		IdentificationModule struct {
			NCTID      string `json:"nctId"`
			BriefTitle string `json:"briefTitle"`
		} `json:"identificationModule"`
		StatusModule struct {
			OverallStatus            string `json:"overallStatus"`
			LastUpdatePostDateStruct struct {
				Date string `json:"date"`
			} `json:"lastUpdatePostDateStruct"`
		} `json:"statusModule"`
		DescriptionModule struct {
			BriefSummary string `json:"briefSummary"`
		} `json:"descriptionModule"`
		DesignModule struct {
			Phases         []string `json:"phases"`
			EnrollmentInfo struct {
				Count *int `json:"count"`
			} `json:"enrollmentInfo"`
		} `json:"designModule"`
		ConditionsModule struct {
			Conditions []string `json:"conditions"`
		} `json:"conditionsModule"`
		ContactsLocationsModule struct {
			Locations []struct {
				City    string `json:"city"`
				State   string `json:"state"`
				Country string `json:"country"`
			} `json:"locations"`
		} `json:"contactsLocationsModule"`
		EligibilityModule struct {
			EligibilityCriteria string `json:"eligibilityCriteria"`
		} `json:"eligibilityModule"`
	} `json:"protocolSection"`
}

func normalize(s study) *models.ClinicalTrial {
	p := s.ProtocolSection
	nctID := strings.TrimSpace(p.IdentificationModule.NCTID)
	if nctID == "" {
		return nil
	}

	phase := strings.Join(p.DesignModule.Phases, ", ")
	if phase == "" {
		phase = "N/A"
	}

	location := "Multiple Locations"
	if locs := p.ContactsLocationsModule.Locations; len(locs) > 0 {
		var parts []string
		for _, part := range []string{locs[0].City, locs[0].State, locs[0].Country} {
			if part != "" {
				parts = append(parts, part)
			}
		}
		if len(parts) > 0 {
			location = strings.Join(parts, ", ")
		}
	}

	conditions := p.ConditionsModule.Conditions
	if conditions == nil {
		conditions = []string{}
	}

	return &models.ClinicalTrial{
		ID:           nctID,
		ExternalID:   &nctID,
		Source:       models.SourceClinicalTrials,
		Title:        textclean.StripMarkup(p.IdentificationModule.BriefTitle),
		Description:  textclean.StripMarkup(p.DescriptionModule.BriefSummary),
		Phase:        phase,
		Status:       p.StatusModule.OverallStatus,
		Location:     location,
		Eligibility:  p.EligibilityModule.EligibilityCriteria,
		DiseaseAreas: conditions,
		Enrollment:   p.DesignModule.EnrollmentInfo.Count,
		LastUpdate:   p.StatusModule.LastUpdatePostDateStruct.Date,
	}
}
