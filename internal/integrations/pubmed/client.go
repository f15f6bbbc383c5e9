// Package pubmed searches PubMed through the NCBI E-utilities: esearch for
// ids, then efetch for article XML.
package pubmed

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/curalink/curalink/internal/models"
	"github.com/curalink/curalink/internal/textclean"
	"golang.org/x/time/rate"
)

const (
	fetchChunkSize = 100
	maxAuthors     = 10
	maxMeshTerms   = 5
	abstractLimit  = 500
)

// RateLimit is the E-utilities allowance: 10 requests/s with an API key, 3 without
func RateLimit(apiKey string) rate.Limit {
	if apiKey != "" {
		return rate.Limit(10)
	}
	return rate.Limit(3)
}

type Doer interface {
	Get(ctx context.Context, url string, header http.Header) (*http.Response, error)
}

type SearchParams struct {
	Query       string
	DiseaseArea string
	MaxResults  int
	// MinDate and MaxDate use YYYY/MM/DD or YYYY; either may be empty
	MinDate string
	MaxDate string
}

type Client struct {
	doer    Doer
	baseURL string
	apiKey  string
}

func NewClient(doer Doer, baseURL, apiKey string) *Client {
	return &Client{doer: doer, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

// Search runs esearch and fetches the matching articles in relevance order
func (c *Client) Search(ctx context.Context, params SearchParams) ([]*models.Publication, error) {
	ids, err := c.searchIDs(ctx, params)
	if err != nil {
		return nil, err
	}

	pubs := make([]*models.Publication, 0, len(ids))
	for start := 0; start < len(ids); start += fetchChunkSize {
		end := min(start+fetchChunkSize, len(ids))
		chunk, err := c.Fetch(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, chunk...)
	}

	return pubs, nil
}

// BuildTerm assembles the esearch term including the disease area and date clauses
func BuildTerm(params SearchParams) string {
	term := params.Query
	if params.DiseaseArea != "" {
		term = fmt.Sprintf(`(%s) AND ("%s"[MeSH Terms] OR "%s"[Title/Abstract])`,
			params.Query, params.DiseaseArea, params.DiseaseArea)
	}
	if params.MinDate != "" || params.MaxDate != "" {
		minDate, maxDate := params.MinDate, params.MaxDate
		if minDate == "" {
			minDate = "1970"
		}
		if maxDate == "" {
			maxDate = "2099"
		}
		term = fmt.Sprintf("%s AND %s:%s[DP]", term, minDate, maxDate)
	}
	return term
}

func (c *Client) searchIDs(ctx context.Context, params SearchParams) ([]string, error) {
	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	q := url.Values{}
	q.Set("db", "pubmed")
	q.Set("term", BuildTerm(params))
	q.Set("retmax", strconv.Itoa(maxResults))
	q.Set("sort", "relevance")
	q.Set("retmode", "json")
	c.addKey(q)

	resp, err := c.doer.Get(ctx, c.baseURL+"/esearch.fcgi?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("pubmed esearch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, fmt.Errorf("pubmed esearch: status %d", resp.StatusCode)
	}

	var body struct {
		Result struct {
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode esearch response: %w", err)
	}

	return body.Result.IDList, nil
}

// Fetch retrieves and normalizes the given PMIDs
func (c *Client) Fetch(ctx context.Context, pmids []string) ([]*models.Publication, error) {
	if len(pmids) == 0 {
		return []*models.Publication{}, nil
	}

	q := url.Values{}
	q.Set("db", "pubmed")
	q.Set("id", strings.Join(pmids, ","))
	q.Set("rettype", "medline")
	q.Set("retmode", "xml")
	c.addKey(q)

	resp, err := c.doer.Get(ctx, c.baseURL+"/efetch.fcgi?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("pubmed efetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, fmt.Errorf("pubmed efetch: status %d", resp.StatusCode)
	}

	var set articleSet
	if err := xml.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("decode efetch response: %w", err)
	}

	pubs := make([]*models.Publication, 0, len(set.Articles))
	for _, a := range set.Articles {
		if p := a.normalize(); p != nil {
			pubs = append(pubs, p)
		}
	}
	return pubs, nil
}

func (c *Client) addKey(q url.Values) {
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}
}

// markup keeps inline elements such as <i> so they can be stripped afterwards
type markup struct {
	Inner string `xml:",innerxml"`
}

type articleSet struct {
	XMLName  xml.Name  `xml:"PubmedArticleSet"`
	Articles []article `xml:"PubmedArticle"`
}

type article struct {
	Citation struct {
		PMID    string `xml:"PMID"`
		Article struct {
			Title    markup   `xml:"ArticleTitle"`
			Abstract []markup `xml:"Abstract>AbstractText"`
			Authors  []struct {
				LastName string `xml:"LastName"`
				ForeName string `xml:"ForeName"`
				Initials string `xml:"Initials"`
			} `xml:"AuthorList>Author"`
			Journal struct {
				Title string `xml:"Title"`
				Year  string `xml:"JournalIssue>PubDate>Year"`
			} `xml:"Journal"`
		} `xml:"Article"`
		Mesh []string `xml:"MeshHeadingList>MeshHeading>DescriptorName"`
	} `xml:"MedlineCitation"`
	ArticleIDs []struct {
		Type  string `xml:"IdType,attr"`
		Value string `xml:",chardata"`
	} `xml:"PubmedData>ArticleIdList>ArticleId"`
}

func (a article) normalize() *models.Publication {
	pmid := strings.TrimSpace(a.Citation.PMID)
	if pmid == "" {
		return nil
	}
	art := a.Citation.Article

	parts := make([]string, 0, len(art.Abstract))
	for _, t := range art.Abstract {
		if text := textclean.StripMarkup(t.Inner); text != "" {
			parts = append(parts, text)
		}
	}
	abstract := textclean.Excerpt(strings.Join(parts, " "), abstractLimit)

	authors := make([]string, 0, maxAuthors)
	for _, au := range art.Authors {
		if au.LastName == "" {
			continue
		}
		given := au.ForeName
		if given == "" {
			given = au.Initials
		}
		authors = append(authors, strings.TrimSpace(au.LastName+", "+given))
		if len(authors) == maxAuthors {
			break
		}
	}

	mesh := make([]string, 0, maxMeshTerms)
	for _, term := range a.Citation.Mesh {
		if term = strings.TrimSpace(term); term != "" {
			mesh = append(mesh, term)
		}
		if len(mesh) == maxMeshTerms {
			break
		}
	}

	pub := &models.Publication{
		ID:           pmid,
		ExternalID:   &pmid,
		Source:       models.SourcePubMed,
		Title:        textclean.StripMarkup(art.Title.Inner),
		Authors:      authors,
		Abstract:     abstract,
		Journal:      strings.TrimSpace(art.Journal.Title),
		DiseaseAreas: mesh,
	}

	if year, err := strconv.Atoi(strings.TrimSpace(art.Journal.Year)); err == nil && year > 0 {
		pub.Year = &year
	}

	for _, id := range a.ArticleIDs {
		if id.Type == "doi" && strings.TrimSpace(id.Value) != "" {
			doi := strings.TrimSpace(id.Value)
			pub.DOI = &doi
			break
		}
	}

	link := "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/"
	pub.URL = &link

	return pub
}
