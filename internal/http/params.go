package http

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/stock-cart/internal/http/apierr"
	"github.com/tuanvumaihuynh/stock-cart/internal/service"
)

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	var id uuid.UUID
	if err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		}); err != nil {
		return uuid.Nil, &apierr.InvalidParamError{ParamName: name, Err: err}
	}
	return id, nil
}

func queryString(q url.Values, name string) (*string, error) {
	var v *string
	if err := runtime.BindQueryParameter("form", true, false, name, q, &v); err != nil {
		return nil, &apierr.InvalidParamError{ParamName: name, Err: err}
	}
	return v, nil
}

func queryDecimal(q url.Values, name string) (*decimal.Decimal, error) {
	raw, err := queryString(q, name)
	if err != nil || raw == nil {
		return nil, err
	}

	d, err := decimal.NewFromString(*raw)
	if err != nil {
		return nil, &apierr.InvalidParamError{ParamName: name, Err: err}
	}
	return &d, nil
}

func queryUUID(q url.Values, name string) (*uuid.UUID, error) {
	raw, err := queryString(q, name)
	if err != nil || raw == nil {
		return nil, err
	}

	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, &apierr.InvalidParamError{ParamName: name, Err: err}
	}
	return &id, nil
}

func bindListProductsParams(r *http.Request) (service.ListProductsParams, error) {
	q := r.URL.Query()
	var (
		params service.ListProductsParams
		err    error
	)

	if params.NameContains, err = queryString(q, "name"); err != nil {
		return params, err
	}

	if err := runtime.BindQueryParameter("form", true, false, "unit", q, &params.Unit); err != nil {
		return params, &apierr.InvalidParamError{ParamName: "unit", Err: err}
	}
	if params.Unit != nil {
		if err := params.Unit.Validate(); err != nil {
			return params, &apierr.InvalidParamError{ParamName: "unit", Err: err}
		}
	}

	if params.OwnerID, err = queryUUID(q, "owner_id"); err != nil {
		return params, err
	}

	decimals := []struct {
		name string
		dest **decimal.Decimal
	}{
		{"min_price", &params.MinPrice},
		{"max_price", &params.MaxPrice},
		{"min_quantity", &params.MinQuantity},
		{"max_quantity", &params.MaxQuantity},
	}
	for _, d := range decimals {
		if *d.dest, err = queryDecimal(q, d.name); err != nil {
			return params, err
		}
	}

	return params, nil
}
