package settings

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/BruceGoodGuy/moodle/core"
)

// MarkerMatchFiltersKey is the admin configuration key holding the content
// filters enabled for the marker-matching question type.
const MarkerMatchFiltersKey = "qtype_markermatch/enabledfilters"

// KnownFilters lists the content filters that may be enabled for
// marker-matching question text.
var KnownFilters = []string{
	"activitynames",
	"emoticon",
	"glossary",
	"mathjax",
	"multilang",
	"urltolink",
}

var (
	ErrNotFound = errors.New("setting not found")

	errUnknownFilter = "unknown content filter"
)

type (
	Repository interface {
		GetSetting(key string) (string, error)
		SetSetting(key, value string) error
	}

	ServiceInterface interface {
		MarkerMatchFilters() ([]string, error)
		SetMarkerMatchFilters(filters []string) error
	}

	service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository) *service {
	return &service{repo: repo}
}

// MarkerMatchFilters returns the enabled filters; an unset key means none.
func (svc *service) MarkerMatchFilters() ([]string, error) {
	val, err := svc.repo.GetSetting(MarkerMatchFiltersKey)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return []string{}, nil
		}
		return nil, err
	}
	if val == "" {
		return []string{}, nil
	}
	filters := strings.Split(val, ",")
	sort.Strings(filters)
	return filters, nil
}

func (svc *service) SetMarkerMatchFilters(filters []string) error {
	known := make(map[string]bool, len(KnownFilters))
	for _, f := range KnownFilters {
		known[f] = true
	}

	cleaned := make([]string, 0, len(filters))
	var fldErrs []core.FieldError
	for i, f := range filters {
		f = core.CleanString(f, true /* lower */)
		if !known[f] {
			fldErrs = append(fldErrs, core.FieldError{
				Field: fmt.Sprintf("filters[%d]", i),
				Error: errUnknownFilter,
			})
			continue
		}
		cleaned = append(cleaned, f)
	}
	if len(fldErrs) > 0 {
		return core.NewValidationError(nil, fldErrs...)
	}

	sort.Strings(cleaned)
	return svc.repo.SetSetting(MarkerMatchFiltersKey, strings.Join(cleaned, ","))
}
