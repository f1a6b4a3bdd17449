package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ItemInput — набор записываемых полей объявления. nil означает "поле не передано".
type ItemInput struct {
	Name        *string    `json:"name" validate:"omitempty,max=200"`
	Category    *string    `json:"category" validate:"omitempty,max=100"`
	Condition   *string    `json:"condition" validate:"omitempty,oneof='New' 'Like New' 'Older'"`
	PostedBy    *string    `json:"posted_by" validate:"omitempty,max=100"`
	Zipcode     *string    `json:"zipcode" validate:"omitempty,number,max=10"`
	DateAdded   *int64     `json:"date_added" validate:"omitempty,gte=0"`
	AgeDays     *float64   `json:"age_days" validate:"omitempty,gte=0"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	Comments    *[]Comment `json:"comments" validate:"omitempty,dive"`
}

// readOnlyKeys are fields a client may echo back from a read; they are accepted and ignored.
var readOnlyKeys = map[string]struct{}{
	"_id":        {},
	"id":         {},
	"createdAt":  {},
	"updatedAt":  {},
	"age_years":  {},
	"image":      {},
	"image_name": {},
}

// jsonBody adds the read-only keys so DisallowUnknownFields does not reject them.
type jsonBody struct {
	ItemInput
	InternalID json.RawMessage `json:"_id"`
	ID         json.RawMessage `json:"id"`
	CreatedAt  json.RawMessage `json:"createdAt"`
	UpdatedAt  json.RawMessage `json:"updatedAt"`
	AgeYears   json.RawMessage `json:"age_years"`
	Image      json.RawMessage `json:"image"`
	ImageName  json.RawMessage `json:"image_name"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DecodeJSON reads a single JSON object from r. An empty body yields an empty input.
func DecodeJSON(r io.Reader) (ItemInput, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return ItemInput{}, fmt.Errorf("%w: read body: %v", ErrValidation, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return ItemInput{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var body jsonBody
	if err := dec.Decode(&body); err != nil {
		return ItemInput{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if dec.More() {
		return ItemInput{}, fmt.Errorf("%w: body must contain a single JSON object", ErrValidation)
	}
	if err := body.ItemInput.Validate(); err != nil {
		return ItemInput{}, err
	}
	return body.ItemInput, nil
}

// DecodeForm builds an input from form values; only the first value of each key is used.
// comments may be sent as a JSON array string.
func DecodeForm(values url.Values) (ItemInput, error) {
	var in ItemInput

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if len(values[key]) == 0 {
			continue
		}
		v := values[key][0]
		if _, ok := readOnlyKeys[key]; ok {
			continue
		}
		switch key {
		case "name":
			in.Name = &v
		case "category":
			in.Category = &v
		case "condition":
			in.Condition = &v
		case "posted_by":
			in.PostedBy = &v
		case "zipcode":
			in.Zipcode = &v
		case "description":
			in.Description = &v
		case "date_added":
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return ItemInput{}, fmt.Errorf("%w: date_added must be an integer", ErrValidation)
			}
			in.DateAdded = &n
		case "age_days":
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return ItemInput{}, fmt.Errorf("%w: age_days must be a number", ErrValidation)
			}
			in.AgeDays = &f
		case "comments":
			var cs []Comment
			if err := json.Unmarshal([]byte(v), &cs); err != nil {
				return ItemInput{}, fmt.Errorf("%w: comments must be a JSON array", ErrValidation)
			}
			in.Comments = &cs
		default:
			return ItemInput{}, fmt.Errorf("%w: unknown field %q", ErrValidation, key)
		}
	}

	if err := in.Validate(); err != nil {
		return ItemInput{}, err
	}
	return in, nil
}

// Validate checks the present fields.
func (in ItemInput) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, fmt.Sprintf("%s failed %s", fieldPath(fe.Namespace()), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(parts, "; "))
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

// fieldPath drops the root struct name: "ItemInput.comments[0].comment" -> "comments[0].comment".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// Apply overlays the present fields onto it.
func (in ItemInput) Apply(it *Item) {
	if in.Name != nil {
		it.Name = *in.Name
	}
	if in.Category != nil {
		it.Category = *in.Category
	}
	if in.Condition != nil {
		it.Condition = *in.Condition
	}
	if in.PostedBy != nil {
		it.PostedBy = *in.PostedBy
	}
	if in.Zipcode != nil {
		it.Zipcode = *in.Zipcode
	}
	if in.DateAdded != nil {
		it.DateAdded = *in.DateAdded
	}
	if in.AgeDays != nil {
		d := *in.AgeDays
		it.AgeDays = &d
	}
	if in.Description != nil {
		it.Description = *in.Description
	}
	if in.Comments != nil {
		it.Comments = append([]Comment(nil), (*in.Comments)...)
	}
}
