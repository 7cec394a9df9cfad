package tools

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/microsoftgraph/msgraph-sdk-go/models"
)

// defaultTop is the page size used when a list tool is called without top.
const defaultTop = 10

// maxTop is the largest page size Graph accepts for most collections.
const maxTop = 1000

// stringArg returns the trimmed string argument name, or "" when absent.
func stringArg(args map[string]interface{}, name string) string {
	v, ok := args[name]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// requireString returns the string argument name or an error naming it.
func requireString(args map[string]interface{}, name string) (string, error) {
	s := stringArg(args, name)
	if s == "" {
		return "", fmt.Errorf("%s argument is required", name)
	}
	return s, nil
}

// rawStringArg returns a string argument without trimming, for bodies.
func rawStringArg(args map[string]interface{}, name string) string {
	if s, ok := args[name].(string); ok {
		return s
	}
	return ""
}

// optionalInt returns the integer argument name, or nil when absent.
// JSON numbers arrive as float64; numeric strings are accepted too.
func optionalInt(args map[string]interface{}, name string) (*int32, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}

	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case int:
		n = float64(t)
	case int32:
		n = float64(t)
	case int64:
		n = float64(t)
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return nil, fmt.Errorf("%s must be an integer", name)
		}
		n = float64(parsed)
	default:
		return nil, fmt.Errorf("%s must be an integer", name)
	}

	if n != math.Trunc(n) || n < 0 || n > math.MaxInt32 {
		return nil, fmt.Errorf("%s must be a non-negative integer", name)
	}
	i := int32(n)
	return &i, nil
}

// topArg returns the page size, defaulting to def and capped at maxTop.
func topArg(args map[string]interface{}, def int32) (*int32, error) {
	top, err := optionalInt(args, "top")
	if err != nil {
		return nil, err
	}
	if top == nil || *top == 0 {
		return &def, nil
	}
	if *top > maxTop {
		capped := int32(maxTop)
		return &capped, nil
	}
	return top, nil
}

// optionalBool returns the boolean argument name, or nil when absent.
func optionalBool(args map[string]interface{}, name string) (*bool, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case bool:
		return &t, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", name)
		}
		return &b, nil
	default:
		return nil, fmt.Errorf("%s must be true or false", name)
	}
}

// isTruthy accepts booleans and the usual string spellings of true.
func isTruthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes":
			return true
		}
	case float64:
		return t != 0
	}
	return false
}

// splitList splits a comma-separated list, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// selectArg returns the select list, or def when the caller gave none.
func selectArg(args map[string]interface{}, def []string) []string {
	if sel := splitList(stringArg(args, "select")); len(sel) > 0 {
		return sel
	}
	return def
}

// optionalString returns a pointer to the argument, or nil when empty.
func optionalString(args map[string]interface{}, name string) *string {
	if s := stringArg(args, name); s != "" {
		return &s
	}
	return nil
}

// ParseRecipients converts a comma-separated address list to Graph recipients.
func ParseRecipients(list string) []models.Recipientable {
	addresses := splitList(list)
	recipients := make([]models.Recipientable, 0, len(addresses))
	for _, address := range addresses {
		addr := address
		email := models.NewEmailAddress()
		email.SetAddress(&addr)
		recipient := models.NewRecipient()
		recipient.SetEmailAddress(email)
		recipients = append(recipients, recipient)
	}
	return recipients
}

// ParseImportance maps low, normal or high to a Graph importance. Unknown
// values fall back to normal; empty input yields nil.
func ParseImportance(value string) *models.Importance {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var importance models.Importance
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "LOW":
		importance = models.LOW_IMPORTANCE
	case "HIGH":
		importance = models.HIGH_IMPORTANCE
	default:
		importance = models.NORMAL_IMPORTANCE
	}
	return &importance
}

// ParseBodyContentType maps html to an HTML body; everything else is text.
func ParseBodyContentType(value string) models.BodyType {
	if strings.EqualFold(strings.TrimSpace(value), "html") {
		return models.HTML_BODYTYPE
	}
	return models.TEXT_BODYTYPE
}

// newItemBody builds a message or event body.
func newItemBody(content, contentType string) models.ItemBodyable {
	body := models.NewItemBody()
	ct := ParseBodyContentType(contentType)
	body.SetContentType(&ct)
	body.SetContent(&content)
	return body
}
