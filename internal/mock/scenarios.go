package scenarios

import (
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
)

// Pages and ArticlesPerPage describe the paginated article listing.
const (
	Pages           = 3
	ArticlesPerPage = 2
)

// NewMux serves every scenario. Tests mount it on an httptest server.
func NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		GenerateHomePage(w)
	})
	mux.HandleFunc("/articles", func(w http.ResponseWriter, r *http.Request) {
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page < 1 {
			page = 1
		}
		GenerateListingPage(w, page)
	})
	mux.HandleFunc("/article/", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(r.URL.Path[len("/article/"):])
		if err != nil || id < 1 || id > Pages*ArticlesPerPage {
			http.NotFound(w, r)
			return
		}
		GenerateArticlePage(w, id)
	})
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, r *http.Request) {
		GenerateFeed(w, "http://"+r.Host)
	})
	mux.HandleFunc("/flaky", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "try again", http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/largehtml", func(w http.ResponseWriter, r *http.Request) {
		GenerateLargeHTML(w)
	})
	return mux
}

func GenerateHomePage(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, `<html><body>Welcome to the Mock Server <a class="start" href="/articles?page=1">Articles</a></body></html>`)
}

// GenerateListingPage lists the articles of one page. Every article is linked twice and all
// pages but the last link to the next one.
func GenerateListingPage(w http.ResponseWriter, page int) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, "<html><head><title>Articles %d</title></head><body><ul>\n", page)
	for i := 1; i <= ArticlesPerPage; i++ {
		id := (page-1)*ArticlesPerPage + i
		fmt.Fprintf(w, `<li class="article"><a class="article-link" href="/article/%d">Article %d</a> <a class="article-link" href="/article/%d">read</a></li>`+"\n", id, id, id)
	}
	fmt.Fprintf(w, "</ul>\n")
	if page < Pages {
		fmt.Fprintf(w, `<a class="next" href="/articles?page=%d">Next</a>`+"\n", page+1)
	}
	fmt.Fprintf(w, "</body></html>\n")
}

func GenerateArticlePage(w http.ResponseWriter, id int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<html><head><title>Article %d</title></head><body>
<h1>Article %d</h1>
<span class="author">Author %d</span>
<span class="tag">go</span><span class="tag">crawl</span>
<p class="body">Body of article %d</p>
</body></html>`, id, id, id%2+1, id)
}

// GenerateFeed writes an RSS feed linking every article below base.
func GenerateFeed(w http.ResponseWriter, base string) {
	w.Header().Set("Content-Type", "application/rss+xml")
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Mock feed</title><link>%s/</link>`, base)
	for id := 1; id <= Pages*ArticlesPerPage; id++ {
		fmt.Fprintf(w, "<item><title>Article %d</title><link>%s/article/%d</link></item>", id, base, id)
	}
	fmt.Fprintf(w, "</channel></rss>")
}

func GenerateLargeHTML(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, "<html><head><title>Large HTML</title></head><body>\n")

	for i := 1; i <= 40000; i++ {
		switch rand.Intn(5) {
		case 0:
			fmt.Fprintf(w, "<h1>Header %d</h1>\n", i)
		case 1:
			fmt.Fprintf(w, "<p>Paragraph %d</p>\n", i)
		case 2:
			fmt.Fprintf(w, "<a href='/article/%d'>Link %d</a>\n", i%(Pages*ArticlesPerPage)+1, i)
		case 3:
			fmt.Fprintf(w, "<ul><li>List Item %d</li></ul>\n", i)
		case 4:
			fmt.Fprintf(w, "<div>Div %d</div>\n", i)
		}
	}

	fmt.Fprintf(w, "</body></html>\n")
}
