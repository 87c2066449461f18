package filter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MaxDocTypes is the maximum number of document types in one filter.
const MaxDocTypes = 16

// Filters narrows a search to document types and/or an update-time range.
// The zero value matches everything.
type Filters struct {
	docTypes []string
	dateFrom time.Time
	dateTo   time.Time
}

// New validates and creates Filters. An empty docTypes slice means all types;
// zero times mean an open-ended range. dateFrom must not be after dateTo.
func New(docTypes []string, dateFrom, dateTo time.Time) (Filters, error) {
	if len(docTypes) > MaxDocTypes {
		return Filters{}, fmt.Errorf("too many document types (max %d)", MaxDocTypes)
	}
	for _, dt := range docTypes {
		if dt == "" {
			return Filters{}, fmt.Errorf("document type must not be empty")
		}
	}
	if !dateFrom.IsZero() && !dateTo.IsZero() && dateFrom.After(dateTo) {
		return Filters{}, fmt.Errorf("date_from is after date_to")
	}
	sorted := append([]string(nil), docTypes...)
	sort.Strings(sorted)
	return Filters{docTypes: sorted, dateFrom: dateFrom, dateTo: dateTo}, nil
}

// DocTypes returns the document type predicates, sorted.
func (f Filters) DocTypes() []string { return f.docTypes }

// DateFrom returns the lower bound of the update-time range (zero = open).
func (f Filters) DateFrom() time.Time { return f.dateFrom }

// DateTo returns the upper bound of the update-time range (zero = open).
func (f Filters) DateTo() time.Time { return f.dateTo }

// IsEmpty reports whether the filter matches everything.
func (f Filters) IsEmpty() bool {
	return len(f.docTypes) == 0 && f.dateFrom.IsZero() && f.dateTo.IsZero()
}

// Canonical returns a deterministic string form, used in cache keys.
// Equal filters always produce equal strings.
func (f Filters) Canonical() string {
	if f.IsEmpty() {
		return ""
	}
	var b strings.Builder
	b.WriteString("types=")
	b.WriteString(strings.Join(f.docTypes, ","))
	b.WriteString(";from=")
	if !f.dateFrom.IsZero() {
		b.WriteString(strconv.FormatInt(f.dateFrom.Unix(), 10))
	}
	b.WriteString(";to=")
	if !f.dateTo.IsZero() {
		b.WriteString(strconv.FormatInt(f.dateTo.Unix(), 10))
	}
	return b.String()
}
