package backup

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"slices"
	"strconv"

	"github.com/sadopc/tally/internal/model"
	"github.com/sadopc/tally/internal/store"
)

// SeriesOf collects every series in doc by name: the fixed series keys plus
// one "counter:<title>" series per counter history.
func SeriesOf(doc *Document) map[string]store.Series {
	out := make(map[string]store.Series)
	add := func(name string, s *store.Series) {
		if s != nil {
			out[name] = *s
		}
	}
	add(model.KeyDailyCounts, doc.DailyCounts)
	add(model.KeyMonthlySalaries, doc.MonthlySalaries)
	add(model.KeyMonthlySavings, doc.MonthlySavings)
	add(model.KeyStudyProgress, doc.StudyProgress)

	if doc.Counters != nil {
		for _, c := range *doc.Counters {
			name := "counter:" + c.Title
			if _, taken := out[name]; taken {
				name = fmt.Sprintf("%s (%s)", name, shortID(c.ID))
			}
			out[name] = store.Series(c.History)
		}
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// ToCSV writes series as flat Series,Key,Value rows ordered by series name
// and key.
func ToCSV(series map[string]store.Series, path string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	// Header
	if err := w.Write([]string{"Series", "Key", "Value"}); err != nil {
		return err
	}

	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		s := series[name]
		for _, key := range s.Keys() {
			row := []string{name, key, strconv.FormatFloat(s[key], 'f', -1, 64)}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}
	return writeAtomic(path, buf.Bytes())
}
