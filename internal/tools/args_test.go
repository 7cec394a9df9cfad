package tools

import (
	"path/filepath"
	"testing"

	"github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopArg(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]interface{}
		want    int32
		wantErr bool
	}{
		{name: "absent uses default", args: map[string]interface{}{}, want: 10},
		{name: "zero uses default", args: map[string]interface{}{"top": float64(0)}, want: 10},
		{name: "json number", args: map[string]interface{}{"top": float64(25)}, want: 25},
		{name: "numeric string", args: map[string]interface{}{"top": "7"}, want: 7},
		{name: "capped", args: map[string]interface{}{"top": float64(5000)}, want: 1000},
		{name: "fraction", args: map[string]interface{}{"top": 2.5}, wantErr: true},
		{name: "negative", args: map[string]interface{}{"top": float64(-1)}, wantErr: true},
		{name: "garbage", args: map[string]interface{}{"top": "many"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := topArg(tt.args, defaultTop)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestOptionalBool(t *testing.T) {
	v, err := optionalBool(map[string]interface{}{"isRead": "true"}, "isRead")
	require.NoError(t, err)
	assert.True(t, *v)

	v, err = optionalBool(map[string]interface{}{"isRead": false}, "isRead")
	require.NoError(t, err)
	assert.False(t, *v)

	v, err = optionalBool(map[string]interface{}{}, "isRead")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = optionalBool(map[string]interface{}{"isRead": "maybe"}, "isRead")
	assert.Error(t, err)
}

func TestIsTruthy(t *testing.T) {
	assert.True(t, isTruthy(true))
	assert.True(t, isTruthy("True"))
	assert.True(t, isTruthy("1"))
	assert.True(t, isTruthy("yes"))
	assert.False(t, isTruthy("no"))
	assert.False(t, isTruthy(nil))
	assert.False(t, isTruthy(float64(0)))
}

func TestSplitListAndSelect(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b ,"))
	assert.Nil(t, splitList(""))

	def := []string{"id"}
	assert.Equal(t, def, selectArg(map[string]interface{}{}, def))
	assert.Equal(t, []string{"subject", "from"}, selectArg(map[string]interface{}{"select": "subject,from"}, def))
}

func TestRequireString(t *testing.T) {
	_, err := requireString(map[string]interface{}{"messageId": "  "}, "messageId")
	require.EqualError(t, err, "messageId argument is required")

	v, err := requireString(map[string]interface{}{"messageId": " AAMk "}, "messageId")
	require.NoError(t, err)
	assert.Equal(t, "AAMk", v)
}

func TestParseRecipients(t *testing.T) {
	recipients := ParseRecipients("adele@contoso.com, alex@contoso.com,")
	require.Len(t, recipients, 2)
	assert.Equal(t, "adele@contoso.com", *recipients[0].GetEmailAddress().GetAddress())
	assert.Equal(t, "alex@contoso.com", *recipients[1].GetEmailAddress().GetAddress())

	assert.Empty(t, ParseRecipients(""))
}

func TestParseImportance(t *testing.T) {
	assert.Nil(t, ParseImportance(""))
	assert.Equal(t, models.HIGH_IMPORTANCE, *ParseImportance("High"))
	assert.Equal(t, models.LOW_IMPORTANCE, *ParseImportance("low"))
	assert.Equal(t, models.NORMAL_IMPORTANCE, *ParseImportance("urgent"))
}

func TestParseBodyContentType(t *testing.T) {
	assert.Equal(t, models.HTML_BODYTYPE, ParseBodyContentType("HTML"))
	assert.Equal(t, models.TEXT_BODYTYPE, ParseBodyContentType("text"))
	assert.Equal(t, models.TEXT_BODYTYPE, ParseBodyContentType(""))
}

func TestParseFields(t *testing.T) {
	fields, err := ParseFields(`{"Title": "My Item", "Count": 3, "Done": true, "Owner": null, "Tags": ["a", "b"], "Meta": {"k": 1}}`)
	require.NoError(t, err)

	assert.Equal(t, "My Item", fields["Title"])
	assert.Equal(t, float64(3), fields["Count"])
	assert.Equal(t, true, fields["Done"])
	assert.Nil(t, fields["Owner"])
	assert.Contains(t, fields, "Owner")
	assert.Equal(t, `["a", "b"]`, fields["Tags"])
	assert.Equal(t, `{"k": 1}`, fields["Meta"])

	for _, bad := range []string{"", "not json", `["a"]`, "null", `"text"`} {
		_, err := ParseFields(bad)
		assert.EqualError(t, err, invalidFieldsError, bad)
	}
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0 bytes", formatSize(0))
	assert.Equal(t, "1023 bytes", formatSize(1023))
	assert.Equal(t, "1 KB", formatSize(1024))
	assert.Equal(t, "2 KB", formatSize(2600))
}

func TestSaveTempFile(t *testing.T) {
	root := t.TempDir()

	path, err := saveTempFile(root, "downloads", "../../etc/passwd", "fallback", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "passwd", filepath.Base(path))
	assert.Contains(t, path, root)

	path, err = saveTempFile(root, "downloads", "", "att-1", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "att-1", filepath.Base(path))
}
