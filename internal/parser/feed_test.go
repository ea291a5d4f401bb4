package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperetl/internal/domain/entity"
)

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
 <channel>
  <title>Preprint Updates</title>
  <item>
   <title>Deep Learning for Proteins</title>
   <link>https://example.org/papers/1234</link>
   <pubDate>Mon, 15 Mar 2021 09:00:00 GMT</pubDate>
   <category>biology</category>
   <category>machine-learning</category>
   <description>&lt;p&gt;We predict protein structure. Accuracy improves markedly.&lt;/p&gt;</description>
  </item>
  <item>
   <title></title>
   <description>No identity here.</description>
  </item>
 </channel>
</rss>`

func TestFeedParse(t *testing.T) {
	var articles []*entity.Article
	err := NewFeed().Parse(strings.NewReader(rssFeed), "feed-preprints.xml", collect(&articles))
	require.NoError(t, err)

	// The item without link or title is dropped
	require.Len(t, articles, 1)
	article := articles[0]

	assert.Equal(t, ContentHash("https://example.org/papers/1234"), article.UID)
	assert.Equal(t, "https://example.org/papers/1234", article.Reference)
	assert.Equal(t, "feed-preprints.xml", article.Source)
	assert.Equal(t, "Deep Learning for Proteins", article.Title)
	assert.Equal(t, "FEED; biology; machine-learning", article.Tags)
	assert.Equal(t, "2021-03-15", article.Entry.Format("2006-01-02"), "entry falls back to the publish date")

	require.Len(t, article.Sections, 3)
	assert.Equal(t, entity.Section{Name: "TITLE", Text: "Deep Learning for Proteins"}, article.Sections[0])
	assert.Equal(t, entity.Section{Name: "ABSTRACT", Text: "We predict protein structure."}, article.Sections[1])
	assert.Equal(t, entity.Section{Name: "ABSTRACT", Text: "Accuracy improves markedly."}, article.Sections[2])
}

func TestFeedParseInvalid(t *testing.T) {
	var articles []*entity.Article
	err := NewFeed().Parse(strings.NewReader("not a feed"), "feed.xml", collect(&articles))
	assert.Error(t, err)
	assert.Empty(t, articles)
}
