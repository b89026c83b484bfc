package search

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tbourn/go-order-assistant/internal/domain"
	"github.com/tbourn/go-order-assistant/internal/textnorm"
)

// ErrNoMenuTable is returned when the input has no table with a name column.
var ErrNoMenuTable = errors.New("no menu table found")

// LoadMenuMarkdown reads the menu table in the markdown file at path.
func LoadMenuMarkdown(path string) ([]domain.MenuItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseMenuMarkdown(f)
}

// ParseMenuMarkdown reads the first markdown table whose header has a name
// column. Recognized headers (Portuguese or English, accents ignored):
//
//	| id | nome | categoria | preco | disponivel |
//
// Rows without a name are skipped. A missing id is derived from the name;
// a missing availability column means available. Prices accept "R$ 45,90".
func ParseMenuMarkdown(r io.Reader) ([]domain.MenuItem, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		cols  map[string]int
		items []domain.MenuItem
		line  int
	)
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(text, "|") || !strings.HasSuffix(text, "|") {
			if cols != nil && len(items) > 0 {
				// first table ended
				break
			}
			continue
		}
		cells := splitRow(text)
		if isSeparator(cells) {
			continue
		}
		if cols == nil {
			cols = headerColumns(cells)
			if _, ok := cols["name"]; !ok {
				cols = nil
			}
			continue
		}
		it, err := rowItem(cells, cols)
		if err != nil {
			return nil, fmt.Errorf("menu line %d: %w", line, err)
		}
		if it.Name != "" {
			items = append(items, it)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if cols == nil {
		return nil, ErrNoMenuTable
	}
	return items, nil
}

var headerAliases = map[string]string{
	"id": "id", "codigo": "id", "sku": "id",
	"nome": "name", "name": "name", "item": "name", "produto": "name",
	"categoria": "category", "category": "category",
	"preco": "price", "price": "price", "valor": "price",
	"disponivel": "available", "available": "available",
}

func headerColumns(cells []string) map[string]int {
	out := map[string]int{}
	for i, c := range cells {
		if key, ok := headerAliases[textnorm.Fold(c)]; ok {
			if _, dup := out[key]; !dup {
				out[key] = i
			}
		}
	}
	return out
}

func rowItem(cells []string, cols map[string]int) (domain.MenuItem, error) {
	get := func(key string) string {
		i, ok := cols[key]
		if !ok || i >= len(cells) {
			return ""
		}
		return cells[i]
	}

	it := domain.MenuItem{
		ID:        get("id"),
		Name:      get("name"),
		Category:  textnorm.Fold(get("category")),
		Available: true,
	}
	if it.ID == "" && it.Name != "" {
		it.ID = strings.Join(textnorm.Tokens(it.Name), "-")
	}
	if p := get("price"); p != "" {
		v, err := parsePrice(p)
		if err != nil {
			return it, err
		}
		it.Price = v
	}
	if a := get("available"); a != "" {
		switch textnorm.Fold(a) {
		case "nao", "no", "false", "0", "esgotado":
			it.Available = false
		}
	}
	return it, nil
}

func parsePrice(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "R$"))
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("price %q: %w", s, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("price %q is negative", s)
	}
	return v, nil
}

func splitRow(line string) []string {
	raw := strings.Split(strings.Trim(line, "|"), "|")
	out := make([]string, len(raw))
	for i, c := range raw {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func isSeparator(cells []string) bool {
	for _, c := range cells {
		if strings.Trim(c, ":- ") != "" {
			return false
		}
	}
	return true
}
