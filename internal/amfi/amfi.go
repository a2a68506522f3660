// Package amfi is the fund-master directory built from AMFI's daily NAVAll.txt.
package amfi

import (
	"bufio"
	"bytes"
	"io"
	"sort"
	"strings"
	"time"

	"mf_tracker/internal/market"
	"mf_tracker/internal/models"

	"github.com/shopspring/decimal"
)

// DefaultURL is where AMFI publishes every scheme's latest NAV.
const DefaultURL = "https://www.amfiindia.com/spages/NAVAll.txt"

// MaxResults caps Search.
const MaxResults = 5

// Directory maps scheme codes to funds.
type Directory struct {
	funds  []models.Fund
	byCode map[string]models.Fund
}

// Fetch downloads and parses the directory at addr (DefaultURL when empty).
func Fetch(addr string, timeout time.Duration) (*Directory, error) {
	if addr == "" {
		addr = DefaultURL
	}
	body, err := market.Get(market.NewHTTPClient(timeout), addr)
	if err != nil {
		return nil, err
	}
	return Parse(bytes.NewReader(body))
}

// Parse reads the NAVAll.txt format:
//
//	Scheme Code;ISIN Div Payout/ ISIN Growth;ISIN Div Reinvestment;Scheme Name;Net Asset Value;Date
//	119551;INF209KA12Z1;INF209KA13Z9;Aditya Birla Sun Life Banking & PSU Debt Fund - DIRECT - IDCW;105.4532;17-Oct-2026
//
// Only lines starting with a digit are schemes; headers and fund-house
// section titles are skipped.
func Parse(r io.Reader) (*Directory, error) {
	d := &Directory{byCode: make(map[string]models.Fund)}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] < '0' || line[0] > '9' || !strings.Contains(line, ";") {
			continue
		}
		parts := strings.Split(line, ";")
		if len(parts) < 4 {
			continue
		}
		code, name := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[3])
		if code == "" || name == "" {
			continue
		}
		f := models.Fund{Code: code, Name: name}
		if len(parts) > 4 {
			// NAV is "N.A." for suspended schemes; keep the entry anyway.
			if nav, err := decimal.NewFromString(strings.TrimSpace(parts[4])); err == nil {
				f.NAV = nav
			}
		}
		if len(parts) > 5 {
			f.Date = strings.TrimSpace(parts[5])
		}
		if _, dup := d.byCode[code]; dup {
			continue
		}
		d.byCode[code] = f
		d.funds = append(d.funds, f)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	sort.Slice(d.funds, func(i, j int) bool { return d.funds[i].Name < d.funds[j].Name })
	return d, nil
}

// Len returns the number of schemes.
func (d *Directory) Len() int { return len(d.funds) }

// Lookup returns the fund with the given scheme code.
func (d *Directory) Lookup(code string) (models.Fund, bool) {
	f, ok := d.byCode[strings.TrimSpace(code)]
	return f, ok
}

// Search returns up to MaxResults funds whose name or code contains query,
// ignoring case. All words of the query must match.
func (d *Directory) Search(query string) []models.Fund {
	words := strings.Fields(strings.ToLower(query))
	if len(words) == 0 {
		return nil
	}

	var results []models.Fund
	for _, f := range d.funds {
		hay := strings.ToLower(f.Name + " " + f.Code)
		match := true
		for _, w := range words {
			if !strings.Contains(hay, w) {
				match = false
				break
			}
		}
		if match {
			results = append(results, f)
			if len(results) >= MaxResults {
				break
			}
		}
	}
	return results
}
