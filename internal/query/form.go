package query

import (
	"net/url"
	"strings"

	"tablero/helper"
	"tablero/internal/model"
)

// FiltersFromQuery keeps the first value of every query parameter, dropping
// blank ones.
func FiltersFromQuery(values url.Values) model.FilterSpec {
	filters := model.FilterSpec{}
	for col, vals := range values {
		if v := helper.FirstValue(vals); strings.TrimSpace(v) != "" {
			filters[col] = v
		}
	}
	return filters
}

// PayloadFromForm keeps the first value of every submitted form field.
func PayloadFromForm(values url.Values) model.MutationPayload {
	payload := model.MutationPayload{}
	for col, vals := range values {
		if len(vals) > 0 {
			payload[col] = helper.FirstValue(vals)
		}
	}
	return payload
}
