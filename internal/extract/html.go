package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/endou0310-byte/rindo/internal/classify"
	"github.com/endou0310-byte/rindo/internal/event"
	"github.com/endou0310-byte/rindo/internal/normalize"
)

var nameHeaderPattern = regexp.MustCompile(`路線名|林道名|森林管理道名|名称|路線番号|路線`)

const domainWord = "林道"

// FromHTML runs the tiered HTML pipeline: structured tables first, then list
// items and paragraphs, then the document text line by line, finally the
// generic free-text pattern. The first tier that yields any events wins.
func FromHTML(page Page) []event.Raw {
	doc, err := page.Document()
	if err != nil {
		return nil
	}
	if events := fromTables(doc); len(events) > 0 {
		return events
	}
	if events := fromListItems(doc); len(events) > 0 {
		return events
	}
	if events := fromBodyLines(doc); len(events) > 0 {
		return events
	}
	return FromText(doc.Text(), "")
}

// fromTables scans every table. The name column is located by header keyword,
// or by counting which column most often carries the domain word in the first
// few data rows. Rows without a classifiable cell are skipped.
func fromTables(doc *goquery.Document) []event.Raw {
	var out []event.Raw
	doc.Find("table").Each(func(_ int, tbl *goquery.Selection) {
		rows := tbl.Find("tr")
		if rows.Length() < 2 {
			return
		}

		var headers []string
		rows.First().Find("th,td").Each(func(_ int, c *goquery.Selection) {
			headers = append(headers, strings.TrimSpace(c.Text()))
		})

		nameIdx := -1
		for i, h := range headers {
			if nameHeaderPattern.MatchString(h) {
				nameIdx = i
				break
			}
		}
		if nameIdx < 0 {
			nameIdx = guessNameColumn(rows)
		}

		rows.Slice(1, rows.Length()).Each(func(_ int, tr *goquery.Selection) {
			var cells []string
			tr.Find("th,td").Each(func(_ int, c *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(c.Text()))
			})
			if len(cells) < 2 {
				return
			}
			rowText := strings.Join(cells, " ")
			if !classify.HasSignal(rowText) {
				return
			}

			var rawName string
			if nameIdx >= 0 && nameIdx < len(cells) {
				rawName = cells[nameIdx]
			}
			names := []string{}
			if rawName != "" {
				if norm := normalize.Name(rawName); norm != "" && usableName(norm) {
					names = append(names, norm)
				}
			}
			if len(names) == 0 {
				names = PickNames(rowText)
			}
			out = append(out, eventsForNames(names, rowText)...)
		})
	})
	return out
}

// guessNameColumn counts domain-word hits per column over the leading data
// rows and returns the densest column, or -1.
func guessNameColumn(rows *goquery.Selection) int {
	const maxCols, maxRows = 6, 8
	counts := make([]int, maxCols)
	rows.Slice(1, rows.Length()).EachWithBreak(func(i int, tr *goquery.Selection) bool {
		if i >= maxRows {
			return false
		}
		tr.Find("th,td").EachWithBreak(func(j int, c *goquery.Selection) bool {
			if j >= maxCols {
				return false
			}
			text := c.Text()
			if strings.Contains(text, domainWord) || strings.Contains(text, "管理道") {
				counts[j]++
			}
			return true
		})
		return true
	})
	best, bestCount := -1, 0
	for i, n := range counts {
		if n > bestCount {
			best, bestCount = i, n
		}
	}
	return best
}

// fromListItems scans li and p elements mentioning the domain word together
// with a classifiable fragment.
func fromListItems(doc *goquery.Document) []event.Raw {
	var out []event.Raw
	doc.Find("li,p").Each(func(_ int, node *goquery.Selection) {
		line := strings.TrimSpace(node.Text())
		if line == "" {
			return
		}
		if !strings.Contains(line, domainWord) && !strings.Contains(line, "管理道") {
			return
		}
		if !classify.HasSignal(line) {
			return
		}
		out = append(out, eventsForNames(PickNames(line), line)...)
	})
	return out
}

// fromBodyLines applies the same rule to the whole document text, one line at
// a time.
func fromBodyLines(doc *goquery.Document) []event.Raw {
	var out []event.Raw
	for _, line := range strings.Split(doc.Text(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.Contains(line, domainWord) && !strings.Contains(line, "管理道") {
			continue
		}
		if !classify.HasSignal(line) {
			continue
		}
		out = append(out, eventsForNames(PickNames(line), line)...)
	}
	return out
}

func eventsForNames(norms []string, text string) []event.Raw {
	if len(norms) == 0 {
		return nil
	}
	status, label := classify.Classify(text)
	from, to := PickRange(text)
	reason := PickReason(text)

	out := make([]event.Raw, 0, len(norms))
	for _, norm := range norms {
		out = append(out, event.Raw{
			Name:       norm + "林道",
			NormName:   norm,
			Status:     status,
			StatusText: label,
			Reason:     reason,
			From:       from,
			To:         to,
			Snippet:    snippet(text),
		})
	}
	return out
}
