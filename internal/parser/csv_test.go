package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperetl/internal/domain/entity"
)

func TestCSVParse(t *testing.T) {
	input := strings.Join([]string{
		"id,title,abstract,source,published,entry,tags",
		"doc1,First Title,First abstract text.,custom-source,2021-03-01,2021-04-01,COVID-19",
		",Second Title,Second abstract text.,,,,",
	}, "\n")

	var articles []*entity.Article
	err := NewCSV().Parse(strings.NewReader(input), "export.csv", collect(&articles))
	require.NoError(t, err)
	require.Len(t, articles, 2)

	first := articles[0]
	assert.Equal(t, "doc1", first.UID)
	assert.Equal(t, "custom-source", first.Source, "row source column wins over stream label")
	assert.Equal(t, "First Title", first.Title)
	assert.Equal(t, "COVID-19", first.Tags)
	require.NotNil(t, first.Published)
	assert.Equal(t, "2021-03-01", first.Published.Format("2006-01-02"))
	assert.Equal(t, "2021-04-01", first.Entry.Format("2006-01-02"))
	require.Len(t, first.Sections, 1)
	assert.Equal(t, "First Title First abstract text.", first.Sections[0].Text)
	assert.Empty(t, first.Sections[0].Name)

	second := articles[1]
	assert.Equal(t, ContentHash("Second Title"), second.UID, "missing id derives uid from title")
	assert.Equal(t, "export.csv", second.Source, "stream label is the fallback source")
	assert.False(t, second.Entry.IsZero(), "entry defaults to observation time")
}

func TestCSVKeywordTags(t *testing.T) {
	input := strings.Join([]string{
		"id,title,abstract,published,tags",
		"doc1,Viral Study,We sequenced SARS-CoV-2 samples.,2020-05-01,",
		"doc2,Old Outbreak,Early sars-cov-2 naming in retrospect.,2015-01-01,",
		"doc3,Unrelated Work,Protein folding dynamics.,2020-05-01,",
		"doc4,Labeled Row,Covid-19 progression modeling.,2020-05-01,custom-tag",
		"doc5,Undated Report,Transmission of covid in households.,,",
	}, "\n")

	var articles []*entity.Article
	err := NewCSV().Parse(strings.NewReader(input), "export.csv", collect(&articles))
	require.NoError(t, err)
	require.Len(t, articles, 5)

	assert.Equal(t, "COVID-19", articles[0].Tags, "keyword match sets the tag")
	assert.Empty(t, articles[1].Tags, "documents published before the outbreak stay untagged")
	assert.Empty(t, articles[2].Tags, "no keyword match leaves tags empty")
	assert.Equal(t, "custom-tag", articles[3].Tags, "explicit tags column wins over the scan")
	assert.Equal(t, "COVID-19", articles[4].Tags, "missing published date still scans")
}

func TestCSVParseSkipsMalformedRows(t *testing.T) {
	input := strings.Join([]string{
		"id,title,abstract",
		"doc1,Valid Title,Valid abstract.",
		"doc2,too short",
		"doc3,Another Title,Another abstract.",
	}, "\n")

	var articles []*entity.Article
	err := NewCSV().Parse(strings.NewReader(input), "export.csv", collect(&articles))
	require.NoError(t, err)

	require.Len(t, articles, 2)
	assert.Equal(t, "doc1", articles[0].UID)
	assert.Equal(t, "doc3", articles[1].UID)
}

func TestCSVParseSkipsEmptyRows(t *testing.T) {
	input := strings.Join([]string{
		"id,title,abstract",
		",,",
	}, "\n")

	var articles []*entity.Article
	err := NewCSV().Parse(strings.NewReader(input), "export.csv", collect(&articles))
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestCSVParseEmptyStream(t *testing.T) {
	var articles []*entity.Article
	err := NewCSV().Parse(strings.NewReader(""), "export.csv", collect(&articles))
	require.NoError(t, err)
	assert.Empty(t, articles)
}
