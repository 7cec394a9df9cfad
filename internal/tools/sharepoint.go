package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"github.com/microsoftgraph/msgraph-sdk-go/drives"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/sites"

	"helix/pkg/logging"
)

// SharePoint tool names.
const (
	ToolSearchSites       = "search-sites"
	ToolGetSite           = "get-site"
	ToolListSiteLists     = "list-site-lists"
	ToolGetSiteList       = "get-site-list"
	ToolListListItems     = "list-list-items"
	ToolGetListItem       = "get-list-item"
	ToolCreateListItem    = "create-list-item"
	ToolUpdateListItem    = "update-list-item"
	ToolDeleteListItem    = "delete-list-item"
	ToolListSiteDrives    = "list-site-drives"
	ToolListDriveChildren = "list-drive-children"
	ToolGetDriveItem      = "get-drive-item"
	ToolDownloadDriveItem = "download-drive-item"
)

const (
	defaultListTop     = 20
	driveDownloadDir   = "helix-sharepoint"
	invalidFieldsError = "Invalid JSON in 'fields' parameter. Expected a JSON object, e.g. '{\"Title\": \"My Item\"}'."
)

var (
	defaultSiteSelect      = []string{"id", "displayName", "name", "webUrl", "description"}
	defaultSiteListSelect  = []string{"id", "displayName", "description", "webUrl", "list"}
	defaultDriveSelect     = []string{"id", "name", "webUrl", "driveType", "quota"}
	defaultDriveItemSelect = []string{"id", "name", "size", "webUrl", "folder", "file", "lastModifiedDateTime", "createdDateTime"}
)

// SharePointProvider serves SharePoint sites, lists and document libraries.
type SharePointProvider struct {
	clients ClientSource
	tempDir string
	// download fetches pre-authenticated URLs; it must not carry the Graph token.
	download *http.Client
}

// NewSharePointProvider creates the SharePoint tool provider.
func NewSharePointProvider(clients ClientSource) *SharePointProvider {
	return &SharePointProvider{
		clients:  clients,
		tempDir:  os.TempDir(),
		download: http.DefaultClient,
	}
}

var (
	siteIDArg  = ArgMetadata{Name: "siteId", Type: "string", Required: true, Description: "Site ID, e.g. contoso.sharepoint.com,{site-guid},{web-guid}"}
	listIDArg  = ArgMetadata{Name: "listId", Type: "string", Required: true, Description: "List ID or display name"}
	itemIDArg  = ArgMetadata{Name: "itemId", Type: "string", Required: true, Description: "ID of the list item"}
	driveIDArg = ArgMetadata{Name: "driveId", Type: "string", Required: true, Description: "ID of the drive (document library)"}
	fieldsArg  = ArgMetadata{Name: "fields", Type: "string", Required: true, Description: "JSON object of column values, e.g. {\"Title\": \"My Item\"}"}
)

// GetTools implements ToolProvider.
func (p *SharePointProvider) GetTools() []ToolMetadata {
	return []ToolMetadata{
		{
			Name:        ToolSearchSites,
			Description: "Search SharePoint sites by keyword.",
			Args: []ArgMetadata{
				{Name: "query", Type: "string", Required: true, Description: "Search keywords"},
				{Name: "top", Type: "integer", Description: "Number of sites to return (default 10)"},
				{Name: "select", Type: "string", Description: "Comma-separated properties to return"},
			},
			Annotations: ReadOnly(),
		},
		{
			Name:        ToolGetSite,
			Description: "Get a SharePoint site by ID.",
			Args:        []ArgMetadata{siteIDArg},
			Annotations: ReadOnly(),
		},
		{
			Name:        ToolListSiteLists,
			Description: "List the lists in a SharePoint site.",
			Args: []ArgMetadata{
				siteIDArg,
				{Name: "top", Type: "integer", Description: "Number of lists to return (default 20)"},
				{Name: "select", Type: "string", Description: "Comma-separated properties to return"},
			},
			Annotations: ReadOnly(),
		},
		{
			Name:        ToolGetSiteList,
			Description: "Get a SharePoint list with its column definitions.",
			Args:        []ArgMetadata{siteIDArg, listIDArg},
			Annotations: ReadOnly(),
		},
		{
			Name:        ToolListListItems,
			Description: "List the items of a SharePoint list, including field values.",
			Args: []ArgMetadata{
				siteIDArg,
				listIDArg,
				{Name: "top", Type: "integer", Description: "Number of items to return (default 10)"},
				{Name: "filter", Type: "string", Description: "OData $filter, e.g. fields/Status eq 'Active'"},
				{Name: "select", Type: "string", Description: "Comma-separated properties to return"},
				{Name: "skip", Type: "integer", Description: "Number of items to skip"},
			},
			Annotations: ReadOnly(),
		},
		{
			Name:        ToolGetListItem,
			Description: "Get a SharePoint list item with its field values.",
			Args:        []ArgMetadata{siteIDArg, listIDArg, itemIDArg},
			Annotations: ReadOnly(),
		},
		{
			Name:        ToolCreateListItem,
			Description: "Create a SharePoint list item.",
			Args:        []ArgMetadata{siteIDArg, listIDArg, fieldsArg},
			Annotations: Create(),
		},
		{
			Name:        ToolUpdateListItem,
			Description: "Update field values of a SharePoint list item. Only the given columns change.",
			Args:        []ArgMetadata{siteIDArg, listIDArg, itemIDArg, fieldsArg},
			Annotations: Idempotent(),
		},
		{
			Name:        ToolDeleteListItem,
			Description: "Delete a SharePoint list item.",
			Args:        []ArgMetadata{siteIDArg, listIDArg, itemIDArg},
			Annotations: Destructive(),
		},
		{
			Name:        ToolListSiteDrives,
			Description: "List the document libraries of a SharePoint site.",
			Args:        []ArgMetadata{siteIDArg},
			Annotations: ReadOnly(),
		},
		{
			Name:        ToolListDriveChildren,
			Description: "List files and folders in a document library folder.",
			Args: []ArgMetadata{
				driveIDArg,
				{Name: "itemId", Type: "string", Description: "Folder ID (default: the library root)"},
				{Name: "top", Type: "integer", Description: "Number of entries to return (default 20)"},
				{Name: "select", Type: "string", Description: "Comma-separated properties to return"},
			},
			Annotations: ReadOnly(),
		},
		{
			Name:        ToolGetDriveItem,
			Description: "Get metadata of a file or folder in a document library.",
			Args: []ArgMetadata{
				driveIDArg,
				{Name: "itemId", Type: "string", Required: true, Description: "ID of the file or folder"},
			},
			Annotations: ReadOnly(),
		},
		{
			Name:        ToolDownloadDriveItem,
			Description: "Download a file from a document library to a temporary file.",
			Args: []ArgMetadata{
				driveIDArg,
				{Name: "itemId", Type: "string", Required: true, Description: "ID of the file"},
			},
			Annotations: ReadOnly(),
		},
	}
}

// ExecuteTool implements ToolProvider.
func (p *SharePointProvider) ExecuteTool(ctx context.Context, toolName string, args map[string]interface{}) (*CallToolResult, error) {
	var handler func(context.Context, *msgraphsdk.GraphServiceClient, map[string]interface{}) (*CallToolResult, error)

	switch toolName {
	case ToolSearchSites:
		handler = p.handleSearchSites
	case ToolGetSite:
		handler = p.handleGetSite
	case ToolListSiteLists:
		handler = p.handleListSiteLists
	case ToolGetSiteList:
		handler = p.handleGetSiteList
	case ToolListListItems:
		handler = p.handleListItems
	case ToolGetListItem:
		handler = p.handleGetListItem
	case ToolCreateListItem:
		handler = p.handleCreateListItem
	case ToolUpdateListItem:
		handler = p.handleUpdateListItem
	case ToolDeleteListItem:
		handler = p.handleDeleteListItem
	case ToolListSiteDrives:
		handler = p.handleListDrives
	case ToolListDriveChildren:
		handler = p.handleListChildren
	case ToolGetDriveItem:
		handler = p.handleGetDriveItem
	case ToolDownloadDriveItem:
		handler = p.handleDownload
	default:
		return nil, fmt.Errorf("unknown sharepoint tool: %s", toolName)
	}

	client, err := p.clients.Create()
	if err != nil {
		return graphError(err), nil
	}
	return handler(ctx, client, args)
}

// requireStrings returns the named arguments in order, failing on the first
// missing one.
func requireStrings(args map[string]interface{}, names ...string) ([]string, error) {
	values := make([]string, len(names))
	for i, name := range names {
		v, err := requireString(args, name)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// ParseFields decodes a JSON object of list column values. Strings, numbers,
// booleans and nulls are kept as scalars; nested objects and arrays are
// passed through as their raw JSON text.
func ParseFields(raw string) (map[string]interface{}, error) {
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil || decoded == nil {
		return nil, errors.New(invalidFieldsError)
	}

	fields := make(map[string]interface{}, len(decoded))
	for key, value := range decoded {
		trimmed := bytes.TrimSpace(value)
		if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
			fields[key] = string(trimmed)
			continue
		}
		var scalar interface{}
		if err := json.Unmarshal(trimmed, &scalar); err != nil {
			return nil, errors.New(invalidFieldsError)
		}
		fields[key] = scalar
	}
	return fields, nil
}

func newFieldValueSet(fields map[string]interface{}) models.FieldValueSetable {
	set := models.NewFieldValueSet()
	set.SetAdditionalData(fields)
	return set
}

func (p *SharePointProvider) handleSearchSites(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	query, err := requireString(args, "query")
	if err != nil {
		return argError(err), nil
	}
	top, err := topArg(args, defaultTop)
	if err != nil {
		return argError(err), nil
	}

	result, err := client.Sites().Get(ctx, &sites.SitesRequestBuilderGetRequestConfiguration{
		QueryParameters: &sites.SitesRequestBuilderGetQueryParameters{
			Search: &query,
			Top:    top,
			Select: selectArg(args, defaultSiteSelect),
		},
	})
	if err != nil {
		return graphError(err), nil
	}
	return graphResult(result), nil
}

func (p *SharePointProvider) handleGetSite(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	siteID, err := requireString(args, "siteId")
	if err != nil {
		return argError(err), nil
	}
	site, err := client.Sites().BySiteId(siteID).Get(ctx, nil)
	if err != nil {
		return graphError(err), nil
	}
	return graphResult(site), nil
}

func (p *SharePointProvider) handleListSiteLists(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	siteID, err := requireString(args, "siteId")
	if err != nil {
		return argError(err), nil
	}
	top, err := topArg(args, defaultListTop)
	if err != nil {
		return argError(err), nil
	}

	result, err := client.Sites().BySiteId(siteID).Lists().Get(ctx, &sites.ItemListsRequestBuilderGetRequestConfiguration{
		QueryParameters: &sites.ItemListsRequestBuilderGetQueryParameters{
			Top:    top,
			Select: selectArg(args, defaultSiteListSelect),
		},
	})
	if err != nil {
		return graphError(err), nil
	}
	return graphResult(result), nil
}

func (p *SharePointProvider) handleGetSiteList(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	ids, err := requireStrings(args, "siteId", "listId")
	if err != nil {
		return argError(err), nil
	}

	list, err := client.Sites().BySiteId(ids[0]).Lists().ByListId(ids[1]).Get(ctx, &sites.ItemListsListItemRequestBuilderGetRequestConfiguration{
		QueryParameters: &sites.ItemListsListItemRequestBuilderGetQueryParameters{
			Expand: []string{"columns"},
		},
	})
	if err != nil {
		return graphError(err), nil
	}
	return graphResult(list), nil
}

func (p *SharePointProvider) handleListItems(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	ids, err := requireStrings(args, "siteId", "listId")
	if err != nil {
		return argError(err), nil
	}
	top, err := topArg(args, defaultTop)
	if err != nil {
		return argError(err), nil
	}
	skip, err := optionalInt(args, "skip")
	if err != nil {
		return argError(err), nil
	}

	result, err := client.Sites().BySiteId(ids[0]).Lists().ByListId(ids[1]).Items().Get(ctx, &sites.ItemListsItemItemsRequestBuilderGetRequestConfiguration{
		QueryParameters: &sites.ItemListsItemItemsRequestBuilderGetQueryParameters{
			Top:    top,
			Skip:   skip,
			Expand: []string{"fields"},
			Filter: optionalString(args, "filter"),
			Select: splitList(stringArg(args, "select")),
		},
	})
	if err != nil {
		return graphError(err), nil
	}
	return graphResult(result), nil
}

func (p *SharePointProvider) handleGetListItem(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	ids, err := requireStrings(args, "siteId", "listId", "itemId")
	if err != nil {
		return argError(err), nil
	}

	item, err := client.Sites().BySiteId(ids[0]).Lists().ByListId(ids[1]).Items().ByListItemId(ids[2]).Get(ctx, &sites.ItemListsItemItemsListItemItemRequestBuilderGetRequestConfiguration{
		QueryParameters: &sites.ItemListsItemItemsListItemItemRequestBuilderGetQueryParameters{
			Expand: []string{"fields"},
		},
	})
	if err != nil {
		return graphError(err), nil
	}
	return graphResult(item), nil
}

func (p *SharePointProvider) handleCreateListItem(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	ids, err := requireStrings(args, "siteId", "listId", "fields")
	if err != nil {
		return argError(err), nil
	}
	fields, err := ParseFields(ids[2])
	if err != nil {
		return errorResult(err.Error()), nil
	}

	item := models.NewListItem()
	item.SetFields(newFieldValueSet(fields))
	created, err := client.Sites().BySiteId(ids[0]).Lists().ByListId(ids[1]).Items().Post(ctx, item, nil)
	if err != nil {
		return graphError(err), nil
	}
	return graphResult(created), nil
}

func (p *SharePointProvider) handleUpdateListItem(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	ids, err := requireStrings(args, "siteId", "listId", "itemId", "fields")
	if err != nil {
		return argError(err), nil
	}
	fields, err := ParseFields(ids[3])
	if err != nil {
		return errorResult(err.Error()), nil
	}

	updated, err := client.Sites().BySiteId(ids[0]).Lists().ByListId(ids[1]).Items().ByListItemId(ids[2]).Fields().Patch(ctx, newFieldValueSet(fields), nil)
	if err != nil {
		return graphError(err), nil
	}
	return graphResult(updated), nil
}

func (p *SharePointProvider) handleDeleteListItem(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	ids, err := requireStrings(args, "siteId", "listId", "itemId")
	if err != nil {
		return argError(err), nil
	}
	if err := client.Sites().BySiteId(ids[0]).Lists().ByListId(ids[1]).Items().ByListItemId(ids[2]).Delete(ctx, nil); err != nil {
		return graphError(err), nil
	}
	return graphResult(nil), nil
}

func (p *SharePointProvider) handleListDrives(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	siteID, err := requireString(args, "siteId")
	if err != nil {
		return argError(err), nil
	}

	result, err := client.Sites().BySiteId(siteID).Drives().Get(ctx, &sites.ItemDrivesRequestBuilderGetRequestConfiguration{
		QueryParameters: &sites.ItemDrivesRequestBuilderGetQueryParameters{
			Select: defaultDriveSelect,
		},
	})
	if err != nil {
		return graphError(err), nil
	}
	return graphResult(result), nil
}

func (p *SharePointProvider) handleListChildren(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	driveID, err := requireString(args, "driveId")
	if err != nil {
		return argError(err), nil
	}
	itemID := stringArg(args, "itemId")
	if itemID == "" {
		itemID = "root"
	}
	top, err := topArg(args, defaultListTop)
	if err != nil {
		return argError(err), nil
	}

	result, err := client.Drives().ByDriveId(driveID).Items().ByDriveItemId(itemID).Children().Get(ctx, &drives.ItemItemsItemChildrenRequestBuilderGetRequestConfiguration{
		QueryParameters: &drives.ItemItemsItemChildrenRequestBuilderGetQueryParameters{
			Top:    top,
			Select: selectArg(args, defaultDriveItemSelect),
		},
	})
	if err != nil {
		return graphError(err), nil
	}
	return graphResult(result), nil
}

func (p *SharePointProvider) handleGetDriveItem(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	ids, err := requireStrings(args, "driveId", "itemId")
	if err != nil {
		return argError(err), nil
	}
	item, err := client.Drives().ByDriveId(ids[0]).Items().ByDriveItemId(ids[1]).Get(ctx, nil)
	if err != nil {
		return graphError(err), nil
	}
	return graphResult(item), nil
}

func (p *SharePointProvider) handleDownload(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	ids, err := requireStrings(args, "driveId", "itemId")
	if err != nil {
		return argError(err), nil
	}
	driveID, itemID := ids[0], ids[1]

	meta, err := client.Drives().ByDriveId(driveID).Items().ByDriveItemId(itemID).Get(ctx, nil)
	if err != nil {
		return graphError(err), nil
	}
	if meta.GetFolder() != nil {
		return errorResult("The item is a folder; only files can be downloaded."), nil
	}
	name := itemID
	if meta.GetName() != nil {
		name = *meta.GetName()
	}

	data, err := p.fetchContent(ctx, driveID, itemID)
	if err != nil {
		return graphError(err), nil
	}

	path, err := saveTempFile(p.tempDir, driveDownloadDir, name, itemID, data)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(fmt.Sprintf("File saved to: %s\nSize: %s\nName: %s", path, formatSize(int64(len(data))), name)), nil
}

// fetchContent downloads the item's bytes. Graph answers /content with a
// redirect to a pre-authenticated URL, which is fetched without the token.
func (p *SharePointProvider) fetchContent(ctx context.Context, driveID, itemID string) ([]byte, error) {
	contentURL := fmt.Sprintf("%s/drives/%s/items/%s/content",
		p.clients.BaseURL(), url.PathEscape(driveID), url.PathEscape(itemID))

	resp, err := httpGet(ctx, p.clients.HTTPClient(ctx), contentURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		location := resp.Header.Get("Location")
		if location == "" {
			return nil, fmt.Errorf("download redirect without a location (status %d)", resp.StatusCode)
		}
		logging.Debug("SharePointTools", "Following download redirect for item %s", itemID)
		redirected, err := httpGet(ctx, p.download, location)
		if err != nil {
			return nil, err
		}
		defer redirected.Body.Close()
		return readBody(redirected)
	default:
		return readBody(resp)
	}
}

func httpGet(ctx context.Context, client *http.Client, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	return resp, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("download failed with status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read download: %w", err)
	}
	return data, nil
}
