package book

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Mode selects how a payload is checked: as a new record or as the full
// replacement of an existing one. Both require every field.
type Mode int

const (
	ModeCreate Mode = iota
	ModeUpdate
)

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeUpdate:
		return "update"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Payload is a decoded request body. Numbers are expected as json.Number.
type Payload map[string]any

// Result holds every violated constraint in field order. Book is only
// populated when Valid is true.
type Result struct {
	Valid  bool
	Errors []string
	Book   Book
}

const MinYear = 0

var isbnPattern = regexp.MustCompile(`^[0-9]{13}$`)

// now is replaced in tests to pin the upper year bound.
var now = time.Now

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("isbn13", func(fl validator.FieldLevel) bool {
		return isbnPattern.MatchString(fl.Field().String())
	})
	return v
}

// MaxYear is the latest publication year accepted today.
func MaxYear() int {
	return now().Year() + 1
}

type checkOptions struct {
	mode Mode
	key  string
}

type fieldRule struct {
	name  string
	check func(name string, value any, opts checkOptions) string
}

var bookSchema = []fieldRule{
	{"isbn", checkISBN},
	{"title", checkText},
	{"author", checkText},
	{"year", checkYear},
	{"publisher", checkText},
}

// Validate checks payload against the book schema without touching storage.
func Validate(payload Payload, mode Mode) Result {
	return validatePayload(payload, checkOptions{mode: mode})
}

// ValidateReplacement checks a PUT body for the book stored under isbn. The
// body must carry the same isbn as the path.
func ValidateReplacement(isbn string, payload Payload) Result {
	return validatePayload(payload, checkOptions{mode: ModeUpdate, key: isbn})
}

func validatePayload(payload Payload, opts checkOptions) Result {
	errs := []string{}
	for _, rule := range bookSchema {
		value, ok := payload[rule.name]
		if !ok || value == nil {
			errs = append(errs, rule.name+" is required")
			continue
		}
		if msg := rule.check(rule.name, value, opts); msg != "" {
			errs = append(errs, msg)
		}
	}

	unknown := []string{}
	for key := range payload {
		if !knownField(key) {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		errs = append(errs, fmt.Sprintf("unknown field %q", key))
	}

	if len(errs) > 0 {
		return Result{Valid: false, Errors: errs}
	}

	year, _ := integerValue(payload["year"])
	return Result{
		Valid:  true,
		Errors: errs,
		Book: Book{
			ISBN:      payload["isbn"].(string),
			Title:     strings.TrimSpace(payload["title"].(string)),
			Author:    strings.TrimSpace(payload["author"].(string)),
			Year:      int(year),
			Publisher: strings.TrimSpace(payload["publisher"].(string)),
		},
	}
}

func knownField(key string) bool {
	for _, rule := range bookSchema {
		if rule.name == key {
			return true
		}
	}
	return false
}

func checkISBN(name string, value any, opts checkOptions) string {
	s, ok := value.(string)
	if !ok {
		return name + " must be a string"
	}
	if err := validate.Var(s, "isbn13"); err != nil {
		return name + " must be exactly 13 digits"
	}
	if opts.mode == ModeUpdate && opts.key != "" && s != opts.key {
		return name + " must match the isbn in the request path"
	}
	return ""
}

func checkText(name string, value any, _ checkOptions) string {
	s, ok := value.(string)
	if !ok {
		return name + " must be a string"
	}
	if err := validate.Var(strings.TrimSpace(s), "required"); err != nil {
		return name + " must not be empty"
	}
	return ""
}

func checkYear(name string, value any, _ checkOptions) string {
	year, ok := integerValue(value)
	if !ok {
		return name + " must be an integer"
	}
	maxYear := MaxYear()
	if err := validate.Var(year, fmt.Sprintf("gte=%d,lte=%d", MinYear, maxYear)); err != nil {
		return fmt.Sprintf("%s must be between %d and %d", name, MinYear, maxYear)
	}
	return ""
}

// integerValue accepts JSON numbers with an integral value. Numeric strings
// are rejected.
func integerValue(value any) (int64, bool) {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, true
		}
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return integralFloat(f)
	case float64:
		return integralFloat(v)
	case int:
		return int64(v), true
	case int64:
		return v, true
	case int32:
		return int64(v), true
	}
	return 0, false
}

func integralFloat(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 {
		return math.MaxInt32, true
	}
	if f < math.MinInt32 {
		return math.MinInt32, true
	}
	return int64(f), true
}
