package graph

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/microsoft/kiota-abstractions-go/serialization"
	jsonserialization "github.com/microsoft/kiota-serialization-json-go"
	"github.com/microsoftgraph/msgraph-sdk-go/models/odataerrors"

	"helix/internal/auth"
)

// strippedKeys are SDK bookkeeping fields that carry no information for a reader.
var strippedKeys = map[string]bool{
	"backingStore":   true,
	"odataType":      true,
	"additionalData": true,
}

// FormatResponse renders a Graph model as indented JSON without OData
// annotations. A nil model means the call had no body and succeeded.
func FormatResponse(v serialization.Parsable) (string, error) {
	if isNil(v) {
		return FormatValue(map[string]interface{}{"success": true})
	}

	w := jsonserialization.NewJsonSerializationWriter()
	defer w.Close()

	if err := w.WriteObjectValue("", v); err != nil {
		return "", fmt.Errorf("failed to serialize Graph response: %w", err)
	}
	content, err := w.GetSerializedContent()
	if err != nil {
		return "", fmt.Errorf("failed to serialize Graph response: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return "", fmt.Errorf("failed to decode serialized Graph response: %w", err)
	}
	return FormatValue(StripODataKeys(doc))
}

// FormatValue renders any JSON-serializable value as indented JSON.
func FormatValue(v interface{}) (string, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format response: %w", err)
	}
	return string(out), nil
}

// StripODataKeys removes OData annotations and SDK bookkeeping keys from a
// decoded JSON document, recursively.
func StripODataKeys(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if strings.HasPrefix(k, "@odata.") || strings.HasPrefix(k, "odata.") || strippedKeys[k] {
				continue
			}
			out[k] = StripODataKeys(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = StripODataKeys(val)
		}
		return out
	default:
		return v
	}
}

// FormatError renders err for a tool result. Errors the user can fix are
// returned as their plain message so the remedy reads naturally; Graph
// service errors keep their code.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	if auth.IsUserActionable(err) {
		return userMessage(err)
	}

	body := map[string]interface{}{"message": err.Error()}

	var odataErr *odataerrors.ODataError
	if errors.As(err, &odataErr) {
		if main := odataErr.GetErrorEscaped(); main != nil {
			if code := main.GetCode(); code != nil {
				body["code"] = *code
			}
			if msg := main.GetMessage(); msg != nil {
				body["message"] = *msg
			}
		}
		if status := odataErr.ResponseStatusCode; status != 0 {
			body["status"] = status
		}
	}

	out, mErr := FormatValue(map[string]interface{}{"error": body})
	if mErr != nil {
		return err.Error()
	}
	return out
}

// userMessage returns the message of the outermost auth error in the chain,
// dropping any wrapping added by the SDK.
func userMessage(err error) string {
	var cfgErr *auth.AuthConfigurationError
	if errors.As(err, &cfgErr) {
		return cfgErr.Error()
	}
	var noAccount *auth.NoCachedAccountError
	if errors.As(err, &noAccount) {
		return noAccount.Error()
	}
	var reauth *auth.ReauthenticationRequiredError
	if errors.As(err, &reauth) {
		return reauth.Error()
	}
	return err.Error()
}

// HTMLToMarkdown converts an HTML mail or event body to markdown.
func HTMLToMarkdown(html string) (string, error) {
	converter := md.NewConverter("", true, nil)
	out, err := converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML body: %w", err)
	}
	return out, nil
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}
