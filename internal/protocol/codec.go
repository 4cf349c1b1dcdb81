package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"page-reader/internal/domain"
)

// ErrUnknownType is returned by Decode for a tag outside the message set.
var ErrUnknownType = errors.New("unknown message type")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type envelope struct {
	Type Type `json:"type"`
}

// Decode parses a flat JSON message, picking the request type from its
// "type" field, and validates it.
func Decode(data []byte) (Request, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &domain.ValidationError{Field: "body", Message: "invalid JSON: " + err.Error()}
	}

	switch env.Type {
	case TypeSaveArticle:
		return decodeAs[SaveArticleRequest](data)
	case TypeGetArticles:
		return GetArticlesRequest{}, nil
	case TypeDeleteArticle:
		return decodeAs[DeleteArticleRequest](data)
	case TypeToggleRead:
		return decodeAs[ToggleReadRequest](data)
	case TypeToggleFavorite:
		return decodeAs[ToggleFavoriteRequest](data)
	case TypeSaveHighlight:
		return decodeAs[SaveHighlightRequest](data)
	case TypeGetHighlights:
		return decodeAs[GetHighlightsRequest](data)
	case TypeDeleteHighlight:
		return decodeAs[DeleteHighlightRequest](data)
	case TypeGetHighlightCounts:
		return GetHighlightCountsRequest{}, nil
	case TypeGetAllHighlights:
		return GetAllHighlightsRequest{}, nil
	case TypeIsPageSaved:
		return decodeAs[IsPageSavedRequest](data)
	case "":
		return nil, &domain.ValidationError{Field: "type", Message: "message type is required"}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

func decodeAs[T Request](data []byte) (Request, error) {
	var req T
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, &domain.ValidationError{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	if err := Validate(req); err != nil {
		return nil, err
	}
	return req, nil
}

// Validate checks the struct tags of v and reports the first failure as a
// *domain.ValidationError.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &domain.ValidationError{Field: fe.Field(), Message: describe(fe)}
	}
	return &domain.ValidationError{Message: err.Error()}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "url":
		return fe.Field() + " must be an absolute URL"
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// Encode renders req as a flat JSON message with its "type" tag.
func Encode(req Request) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", req.Type(), err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("failed to flatten %s: %w", req.Type(), err)
	}
	tag, _ := json.Marshal(req.Type())
	fields["type"] = tag
	return json.Marshal(fields)
}
