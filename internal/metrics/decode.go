package metrics

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrNoSchema 表示该类别未定义结构化指标。
var ErrNoSchema = errors.New("no metric schema defined for category")

// FieldError 指出一个不合法的字段。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError 汇总一次校验中所有失败的字段。
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid metrics: %s", strings.Join(e.FieldNames(), ", "))
}

// FieldNames 返回失败字段名列表。
func (e *ValidationError) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return names
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode 按类别把原始 JSON 解码为对应变体并校验；空载荷视为 {}，缺失的必填字段会逐个报告。
func Decode(category string, raw []byte) (Payload, error) {
	schema, ok := SchemaFor(category)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSchema, category)
	}

	payload := schema.newPayload()

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(payload); err != nil {
		return nil, decodeError(err)
	}
	// 只接受一个 JSON 对象
	var trailing json.RawMessage
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		return nil, malformedJSON()
	}

	if err := Validate(payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Validate 校验已构造的载荷。
func Validate(p Payload) error {
	if p == nil {
		return &ValidationError{Fields: []FieldError{{Field: "metrics", Message: "is required"}}}
	}

	err := validate.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fieldPath(fe), Message: describe(fe)})
	}
	return &ValidationError{Fields: fields}
}

// Encode 序列化载荷，用于持久化。
func Encode(p Payload) ([]byte, error) {
	if p == nil {
		return nil, errors.New("nil metrics payload")
	}
	return json.Marshal(p)
}

// fieldPath 去掉根结构体名，例如 "LinkedInOutreach.meetings[0].date" -> "meetings[0].date"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "datetime":
		return "must be a date (YYYY-MM-DD)"
	default:
		return "is invalid"
	}
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "metrics"
		}
		return &ValidationError{Fields: []FieldError{{Field: field, Message: "must be " + typeErr.Type.String()}}}
	}

	msg := err.Error()
	if strings.HasPrefix(msg, "json: unknown field ") {
		field := strings.Trim(strings.TrimPrefix(msg, "json: unknown field "), `"`)
		return &ValidationError{Fields: []FieldError{{Field: field, Message: "is not part of this schema"}}}
	}

	return malformedJSON()
}

func malformedJSON() error {
	return &ValidationError{Fields: []FieldError{{Field: "metrics", Message: "malformed JSON"}}}
}
