// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"encoding/xml"
	"strings"
)

// esearchResult is the esearch.fcgi reply: matching PMIDs for one page.
type esearchResult struct {
	XMLName   xml.Name      `xml:"eSearchResult"`
	Count     int           `xml:"Count"`
	RetMax    int           `xml:"RetMax"`
	RetStart  int           `xml:"RetStart"`
	IDs       []string      `xml:"IdList>Id"`
	ErrorList *esearchError `xml:"ErrorList"`
	Error     string        `xml:"ERROR"`
}

type esearchError struct {
	PhraseNotFound []string `xml:"PhraseNotFound"`
	FieldNotFound  []string `xml:"FieldNotFound"`
}

// articleSet is the efetch.fcgi reply.
type articleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	PMID    string  `xml:"MedlineCitation>PMID"`
	Article article `xml:"MedlineCitation>Article"`
}

type article struct {
	Journal      journal       `xml:"Journal"`
	ArticleTitle markup        `xml:"ArticleTitle"`
	Abstract     []markupText  `xml:"Abstract>AbstractText"`
	Authors      []author      `xml:"AuthorList>Author"`
	ArticleDates []articleDate `xml:"ArticleDate"`
}

type journal struct {
	Title           string  `xml:"Title"`
	ISOAbbreviation string  `xml:"ISOAbbreviation"`
	PubDate         pubDate `xml:"JournalIssue>PubDate"`
}

type pubDate struct {
	Year        string `xml:"Year"`
	MedlineDate string `xml:"MedlineDate"`
}

type articleDate struct {
	Year string `xml:"Year"`
}

type author struct {
	LastName       string `xml:"LastName"`
	ForeName       string `xml:"ForeName"`
	Initials       string `xml:"Initials"`
	CollectiveName string `xml:"CollectiveName"`
}

// markup captures an element whose text may contain inline formatting
// tags such as <i> or <sup>.
type markup struct {
	Inner string `xml:",innerxml"`
}

// markupText is an abstract section with its optional label.
type markupText struct {
	Label string `xml:"Label,attr"`
	Inner string `xml:",innerxml"`
}

// Text returns the character data with inline tags removed and
// whitespace collapsed.
func (m markup) Text() string { return plainText(m.Inner) }

// plainText concatenates the character data of an XML fragment.
func plainText(fragment string) string {
	d := xml.NewDecoder(strings.NewReader(fragment))
	d.Strict = false
	d.Entity = xml.HTMLEntity

	var b strings.Builder
	for {
		tok, err := d.Token()
		if err != nil {
			break
		}
		if cd, ok := tok.(xml.CharData); ok {
			b.Write(cd)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
