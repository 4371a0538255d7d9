package monitor

import (
	"net/url"
	"strings"

	"github.com/endou0310-byte/rindo/internal/registry"
)

// task is one URL waiting to be fetched at a known BFS depth.
type task struct {
	url   string
	depth int
}

// frontier is the per-target BFS queue. Each URL is admitted at most once per
// run; conditional revisits happen across runs via the fingerprint store.
type frontier struct {
	queue   []task
	visited map[string]struct{}
}

func newFrontier(seed string) *frontier {
	f := &frontier{visited: make(map[string]struct{})}
	f.enqueue(seed, 0)
	return f
}

// enqueue admits the URL unless it was already seen this run.
func (f *frontier) enqueue(rawURL string, depth int) bool {
	if rawURL == "" {
		return false
	}
	if _, seen := f.visited[rawURL]; seen {
		return false
	}
	f.visited[rawURL] = struct{}{}
	f.queue = append(f.queue, task{url: rawURL, depth: depth})
	return true
}

// next pops the oldest task.
func (f *frontier) next() (task, bool) {
	if len(f.queue) == 0 {
		return task{}, false
	}
	t := f.queue[0]
	f.queue = f.queue[1:]
	return t, true
}

// inScope applies the domain filter: with same-domain crawling the host must
// be the seed's host or one of the agency's registered domains (subdomains
// included).
func inScope(rawURL, seedHost string, agency registry.Agency) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	if !agency.Crawl.SameDomainOnly() {
		return true
	}
	if hostWithin(host, seedHost) {
		return true
	}
	for _, d := range agency.Domains {
		if hostWithin(host, strings.ToLower(d)) {
			return true
		}
	}
	return false
}

func hostWithin(host, domain string) bool {
	if domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}
