package pubmed

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/curalink/curalink/internal/integrations/resilient"
	"github.com/curalink/curalink/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const efetchFixture = `<?xml version="1.0"?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <PMID Version="1">111</PMID>
      <Article>
        <Journal>
          <Title>The Lancet Oncology</Title>
          <JournalIssue><PubDate><Year>2024</Year><Month>Mar</Month></PubDate></JournalIssue>
        </Journal>
        <ArticleTitle>Outcomes of <i>EGFR</i> therapy in lung cancer</ArticleTitle>
        <Abstract>
          <AbstractText Label="BACKGROUND">First part.</AbstractText>
          <AbstractText Label="RESULTS">Second &amp; final part.</AbstractText>
        </Abstract>
        <AuthorList>
          <Author><LastName>Smith</LastName><ForeName>Jane</ForeName><Initials>J</Initials></Author>
          <Author><LastName>Doe</LastName><Initials>JD</Initials></Author>
          <Author><CollectiveName>Lung Study Group</CollectiveName></Author>
        </AuthorList>
      </Article>
      <MeshHeadingList>
        <MeshHeading><DescriptorName UI="D1">Lung Neoplasms</DescriptorName></MeshHeading>
        <MeshHeading><DescriptorName UI="D2">Humans</DescriptorName></MeshHeading>
      </MeshHeadingList>
    </MedlineCitation>
    <PubmedData>
      <ArticleIdList>
        <ArticleId IdType="pubmed">111</ArticleId>
        <ArticleId IdType="doi">10.1000/xyz</ArticleId>
      </ArticleIdList>
    </PubmedData>
  </PubmedArticle>
  <PubmedArticle>
    <MedlineCitation>
      <PMID>222</PMID>
      <Article>
        <Journal><Title>J</Title><JournalIssue><PubDate><MedlineDate>2019 Spring</MedlineDate></PubDate></JournalIssue></Journal>
        <ArticleTitle>No abstract</ArticleTitle>
      </Article>
    </MedlineCitation>
  </PubmedArticle>
</PubmedArticleSet>`

func newTestClient(t *testing.T, apiKey string, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := resilient.DefaultConfig("pubmed")
	cfg.MaxAttempts = 1
	cfg.Timeout = 2 * time.Second
	return NewClient(resilient.New(cfg, nil, slog.New(slog.NewTextHandler(io.Discard, nil))), server.URL, apiKey)
}

func TestSearch_SearchesThenFetches(t *testing.T) {
	var searchTerm, fetchIDs, key string
	c := newTestClient(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		key = r.URL.Query().Get("api_key")
		switch {
		case strings.HasSuffix(r.URL.Path, "/esearch.fcgi"):
			searchTerm = r.URL.Query().Get("term")
			assert.Equal(t, "relevance", r.URL.Query().Get("sort"))
			assert.Equal(t, "5", r.URL.Query().Get("retmax"))
			_, _ = w.Write([]byte(`{"esearchresult":{"count":"2","idlist":["111","222"]}}`))
		case strings.HasSuffix(r.URL.Path, "/efetch.fcgi"):
			fetchIDs = r.URL.Query().Get("id")
			_, _ = w.Write([]byte(efetchFixture))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	pubs, err := c.Search(context.Background(), SearchParams{Query: "lung cancer", MaxResults: 5})
	require.NoError(t, err)

	assert.Equal(t, "lung cancer", searchTerm)
	assert.Equal(t, "111,222", fetchIDs)
	assert.Equal(t, "secret", key)
	require.Len(t, pubs, 2)

	p := pubs[0]
	assert.Equal(t, "111", p.ID)
	assert.Equal(t, models.SourcePubMed, p.Source)
	assert.Equal(t, "Outcomes of EGFR therapy in lung cancer", p.Title)
	assert.Equal(t, "First part. Second & final part.", p.Abstract)
	assert.Equal(t, []string{"Smith, Jane", "Doe, JD"}, p.Authors)
	assert.Equal(t, "The Lancet Oncology", p.Journal)
	require.NotNil(t, p.Year)
	assert.Equal(t, 2024, *p.Year)
	require.NotNil(t, p.DOI)
	assert.Equal(t, "10.1000/xyz", *p.DOI)
	assert.Equal(t, []string{"Lung Neoplasms", "Humans"}, p.DiseaseAreas)
	require.NotNil(t, p.URL)
	assert.Equal(t, "https://pubmed.ncbi.nlm.nih.gov/111/", *p.URL)

	assert.Nil(t, pubs[1].Year)
	assert.Nil(t, pubs[1].DOI)
	assert.Empty(t, pubs[1].Abstract)
}

func TestSearch_NoIDsSkipsFetch(t *testing.T) {
	fetched := false
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/efetch.fcgi") {
			fetched = true
		}
		assert.Empty(t, r.URL.Query().Get("api_key"))
		_, _ = w.Write([]byte(`{"esearchresult":{"idlist":[]}}`))
	})

	pubs, err := c.Search(context.Background(), SearchParams{Query: "nothing"})

	require.NoError(t, err)
	assert.Empty(t, pubs)
	assert.False(t, fetched)
}

func TestSearch_UpstreamFailure(t *testing.T) {
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := c.Search(context.Background(), SearchParams{Query: "x"})
	assert.Error(t, err)
}

func TestBuildTerm(t *testing.T) {
	assert.Equal(t, "asthma", BuildTerm(SearchParams{Query: "asthma"}))
	assert.Equal(t,
		`(therapy) AND ("Asthma"[MeSH Terms] OR "Asthma"[Title/Abstract])`,
		BuildTerm(SearchParams{Query: "therapy", DiseaseArea: "Asthma"}))
	assert.Equal(t, "asthma AND 2020:2099[DP]", BuildTerm(SearchParams{Query: "asthma", MinDate: "2020"}))
}

func TestAbstractIsTruncated(t *testing.T) {
	long := strings.Repeat("a", 600)
	a := article{}
	a.Citation.PMID = "1"
	a.Citation.Article.Abstract = []markup{{Inner: long}}

	p := a.normalize()

	assert.Equal(t, strings.Repeat("a", 500)+"...", p.Abstract)
}

func TestRateLimit(t *testing.T) {
	assert.Equal(t, rate.Limit(3), RateLimit(""))
	assert.Equal(t, rate.Limit(10), RateLimit("key"))
}
