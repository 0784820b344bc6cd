// Package pagevec is a Go client for the pagevec HTTP API.
//
//	c, _ := pagevec.New("http://localhost:8080", pagevec.WithToken("secret"))
//	rec, err := c.Scrape(ctx, "https://go.dev/blog/")
//	if errors.Is(err, pagevec.ErrAlreadyScraped) {
//	    // stored earlier
//	}
//	res, _ := c.Search(ctx, "how do goroutines work", 5)
package pagevec
