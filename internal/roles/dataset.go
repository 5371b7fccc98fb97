package roles

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spigell/job-assistant/internal/utils"
)

//go:embed titles.json
var embeddedTitles []byte

const minPrefixLength = 3

type datasetFile struct {
	Categories map[string][]string `json:"categories"`
}

// Dataset is the read-only list of canonical job titles. It is loaded once, on first use.
type Dataset struct {
	path   string
	logger *zap.Logger

	once   sync.Once
	titles []string
	err    error
}

// NewDataset returns a dataset backed by path, or by the embedded titles when path is empty.
func NewDataset(path string, logger *zap.Logger) *Dataset {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dataset{path: strings.TrimSpace(path), logger: logger}
}

// Titles returns canonical titles in sorted order.
func (d *Dataset) Titles() []string {
	d.once.Do(d.load)
	return d.titles
}

// Err reports a load failure. A failed dataset behaves as an empty one.
func (d *Dataset) Err() error {
	d.once.Do(d.load)
	return d.err
}

func (d *Dataset) load() {
	data := embeddedTitles
	source := "embedded"

	if d.path != "" {
		raw, err := os.ReadFile(d.path)
		if err != nil {
			d.err = fmt.Errorf("reading job titles dataset: %w", err)
			d.logger.Warn("job titles dataset not loaded", zap.String("path", d.path), zap.Error(err))
			return
		}
		data = raw
		source = d.path
	}

	titles, err := parseTitles(data)
	if err != nil {
		d.err = fmt.Errorf("parsing job titles dataset %s: %w", source, err)
		d.logger.Warn("job titles dataset not loaded", zap.String("source", source), zap.Error(err))
		return
	}

	d.titles = titles
	d.logger.Debug("job titles dataset loaded", zap.String("source", source), zap.Int("titles", len(titles)))
}

func parseTitles(data []byte) ([]string, error) {
	var file datasetFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	unique := make(map[string]struct{})
	for _, titles := range file.Categories {
		for _, title := range titles {
			if canon := Canonicalize(title); canon != "" {
				unique[canon] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(unique))
	for title := range unique {
		out = append(out, title)
	}
	sort.Strings(out)

	return out, nil
}

// Has reports whether the canonical form of text is exactly a dataset title.
func (d *Dataset) Has(text string) bool {
	canon := Canonicalize(text)
	if canon == "" {
		return false
	}
	_, found := slices.BinarySearch(d.Titles(), canon)
	return found
}

// Resolve maps role text to a dataset title. Matching goes exact, then a title containing the
// query (shortest first), then a title contained in the query (longest first), then the largest
// token overlap (shorter title on ties), then a token-prefix match for query tokens of 3+ chars.
func (d *Dataset) Resolve(role string) (string, bool) {
	titles := d.Titles()
	if len(titles) == 0 {
		return "", false
	}

	query := Canonicalize(role)
	if query == "" {
		return "", false
	}

	for _, t := range titles {
		if t == query {
			return t, true
		}
	}

	if t, ok := pick(titles, func(t string) bool { return utils.ContainsPhrase(t, query) }, shorter); ok {
		return t, true
	}

	if t, ok := pick(titles, func(t string) bool { return utils.ContainsPhrase(query, t) }, longer); ok {
		return t, true
	}

	queryTokens := strings.Fields(query)
	best, bestScore := "", 0
	for _, t := range titles {
		score := overlap(queryTokens, strings.Fields(t))
		if score > bestScore || (score == bestScore && score > 0 && len(t) < len(best)) {
			best, bestScore = t, score
		}
	}
	if bestScore > 0 {
		return best, true
	}

	for _, t := range titles {
		for _, tok := range strings.Fields(t) {
			for _, q := range queryTokens {
				if len(q) >= minPrefixLength && strings.HasPrefix(tok, q) {
					return t, true
				}
			}
		}
	}

	return "", false
}

func shorter(a, b string) bool { return len(a) < len(b) }
func longer(a, b string) bool  { return len(a) > len(b) }

// pick returns the first title satisfying match that is best by better. Titles are sorted, so ties are stable.
func pick(titles []string, match func(string) bool, better func(a, b string) bool) (string, bool) {
	found, ok := "", false
	for _, t := range titles {
		if !match(t) {
			continue
		}
		if !ok || better(t, found) {
			found, ok = t, true
		}
	}
	return found, ok
}

func overlap(a, b []string) int {
	seen := make(map[string]struct{}, len(a))
	for _, tok := range a {
		seen[tok] = struct{}{}
	}
	n := 0
	counted := make(map[string]struct{}, len(b))
	for _, tok := range b {
		if _, ok := seen[tok]; !ok {
			continue
		}
		if _, dup := counted[tok]; dup {
			continue
		}
		counted[tok] = struct{}{}
		n++
	}
	return n
}
