package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// maxJSONBody caps JSON request bodies that carry no file.
const maxJSONBody = 1 << 20

// validate reports field names by their json tag, so error keys match
// what the client sent.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors maps a request field to its messages, e.g.
// {"title": ["The title field is required."]}.
type fieldErrors map[string][]string

func (fe fieldErrors) add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

// message is the summary line: the first error, plus a count of the rest.
func (fe fieldErrors) message() string {
	keys := make([]string, 0, len(fe))
	total := 0
	for k, msgs := range fe {
		keys = append(keys, k)
		total += len(msgs)
	}
	if total == 0 {
		return "The given data was invalid."
	}
	sort.Strings(keys)
	first := fe[keys[0]][0]
	switch rest := total - 1; rest {
	case 0:
		return first
	case 1:
		return first + " (and 1 more error)"
	default:
		return fmt.Sprintf("%s (and %d more errors)", first, rest)
	}
}

// writeValidation answers 422 with the field errors.
func writeValidation(w http.ResponseWriter, fe fieldErrors) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"message": fe.message(),
		"errors":  fe,
	})
}

// validateStruct runs the struct's validate tags and returns nil when
// everything passes.
func validateStruct(v any) fieldErrors {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fieldErrors{"": {err.Error()}}
	}
	fe := fieldErrors{}
	for _, e := range verrs {
		key := fieldKey(e.Namespace())
		fe.add(key, ruleMessage(key, e))
	}
	return fe
}

// fieldKey turns "PostInput.categories_new[0].name" into
// "categories_new.0.name".
func fieldKey(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		namespace = rest
	}
	namespace = strings.ReplaceAll(namespace, "[", ".")
	return strings.ReplaceAll(namespace, "]", "")
}

func ruleMessage(key string, e validator.FieldError) string {
	label := strings.ReplaceAll(key, "_", " ")
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", label)
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("The %s field must not be greater than %s characters.", label, e.Param())
		}
		return fmt.Sprintf("The %s field must not be greater than %s.", label, e.Param())
	case "min":
		return fmt.Sprintf("The %s field must be at least %s.", label, e.Param())
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", label)
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", label)
	}
	return fmt.Sprintf("The %s field is invalid.", label)
}

// writeDecodeError answers a body that failed to decode. A value of the
// wrong type is reported against its field; anything else gets fallback.
func writeDecodeError(w http.ResponseWriter, err error, fallback string) {
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) && te.Field != "" {
		writeValidation(w, fieldErrors{te.Field: {typeMessage(te)}})
		return
	}
	writeMessage(w, http.StatusUnprocessableEntity, fallback)
}

func typeMessage(te *json.UnmarshalTypeError) string {
	label := strings.ReplaceAll(strings.ReplaceAll(te.Field, ".", " "), "_", " ")
	if te.Type == reflect.TypeOf(time.Time{}) {
		return fmt.Sprintf("The %s field must be a valid date.", label)
	}
	switch te.Type.Kind() {
	case reflect.String:
		return fmt.Sprintf("The %s field must be a string.", label)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fmt.Sprintf("The %s field must be an integer.", label)
	case reflect.Bool:
		return fmt.Sprintf("The %s field must be true or false.", label)
	case reflect.Slice:
		return fmt.Sprintf("The %s field must be an array.", label)
	case reflect.Map, reflect.Struct:
		return fmt.Sprintf("The %s field must be an object.", label)
	}
	return fmt.Sprintf("The %s field is invalid.", label)
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
