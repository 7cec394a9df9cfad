package tools

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/users"

	"helix/internal/graph"
	"helix/pkg/logging"
)

// Mail tool names.
const (
	ToolListMailMessages  = "list-mail-messages"
	ToolGetMailMessage    = "get-mail-message"
	ToolSendMail          = "send-mail"
	ToolDeleteMailMessage = "delete-mail-message"
	ToolMoveMailMessage   = "move-mail-message"
	ToolUpdateMailMessage = "update-mail-message"

	ToolCreateDraftMessage  = "create-draft-message"
	ToolCreateReplyDraft    = "create-reply-draft"
	ToolCreateReplyAllDraft = "create-reply-all-draft"
	ToolCreateForwardDraft  = "create-forward-draft"
	ToolUpdateDraftMessage  = "update-draft-message"
	ToolSendDraftMessage    = "send-draft-message"

	ToolListMailAttachments  = "list-mail-attachments"
	ToolGetMailAttachment    = "get-mail-attachment"
	ToolAddMailAttachment    = "add-mail-attachment"
	ToolDeleteMailAttachment = "delete-mail-attachment"

	ToolListMailFolders        = "list-mail-folders"
	ToolListMailFolderMessages = "list-mail-folder-messages"
)

var (
	defaultMessageSelect    = []string{"id", "subject", "from", "receivedDateTime", "isRead", "bodyPreview"}
	defaultAttachmentSelect = []string{"id", "name", "contentType", "size"}
	defaultFolderSelect     = []string{"id", "displayName", "parentFolderId", "unreadItemCount", "totalItemCount"}
)

const (
	fileAttachmentODataType = "#microsoft.graph.fileAttachment"
	attachmentDirName       = "helix-attachments"
)

// MailProvider serves the signed-in user's mailbox: messages, drafts,
// attachments and folders.
type MailProvider struct {
	clients ClientSource
	tempDir string
}

// NewMailProvider creates the mail tool provider.
func NewMailProvider(clients ClientSource) *MailProvider {
	return &MailProvider{clients: clients, tempDir: os.TempDir()}
}

var messageIDArg = ArgMetadata{Name: "messageId", Type: "string", Required: true, Description: "ID of the message"}

func listArgs(defaultSelect []string, top int) []ArgMetadata {
	return []ArgMetadata{
		{Name: "top", Type: "integer", Description: fmt.Sprintf("Number of items to return (default %d)", top)},
		{Name: "filter", Type: "string", Description: "OData $filter expression"},
		{Name: "select", Type: "string", Description: "Comma-separated properties to return (default " + strings.Join(defaultSelect, ",") + ")"},
		{Name: "orderby", Type: "string", Description: "Comma-separated $orderby clauses, e.g. 'receivedDateTime desc'"},
		{Name: "skip", Type: "integer", Description: "Number of items to skip"},
	}
}

// GetTools implements ToolProvider.
func (p *MailProvider) GetTools() []ToolMetadata {
	messageList := append(listArgs(defaultMessageSelect, defaultTop),
		ArgMetadata{Name: "search", Type: "string", Description: "Free-text $search query; cannot be combined with orderby"})

	return []ToolMetadata{
		{
			Name:        ToolListMailMessages,
			Description: "List messages in the signed-in user's mailbox.",
			Args:        messageList,
			Annotations: ReadOnly(),
		},
		{
			Name:        ToolGetMailMessage,
			Description: "Get a message by ID. HTML bodies are returned as markdown unless rawBody is true.",
			Args: []ArgMetadata{
				messageIDArg,
				{Name: "rawBody", Type: "boolean", Description: "Return the body exactly as stored"},
			},
			Annotations: ReadOnly(),
		},
		{
			Name:        ToolSendMail,
			Description: "Send an email from the signed-in user's mailbox.",
			Args: []ArgMetadata{
				{Name: "subject", Type: "string", Required: true, Description: "Message subject"},
				{Name: "body", Type: "string", Required: true, Description: "Message body"},
				{Name: "toRecipients", Type: "string", Required: true, Description: "Comma-separated recipient addresses"},
				{Name: "ccRecipients", Type: "string", Description: "Comma-separated CC addresses"},
				{Name: "bccRecipients", Type: "string", Description: "Comma-separated BCC addresses"},
				{Name: "importance", Type: "string", Description: "low, normal or high"},
				{Name: "bodyContentType", Type: "string", Description: "text or html (default text)"},
				{Name: "attachmentFilePaths", Type: "string", Description: "Comma-separated local file paths to attach"},
				{Name: "attachmentContentTypes", Type: "string", Description: "Comma-separated MIME types, one per attachment"},
			},
			Annotations: Create(),
		},
		{
			Name:        ToolDeleteMailMessage,
			Description: "Delete a message.",
			Args:        []ArgMetadata{messageIDArg},
			Annotations: Destructive(),
		},
		{
			Name:        ToolMoveMailMessage,
			Description: "Move a message to another folder.",
			Args: []ArgMetadata{
				messageIDArg,
				{Name: "destinationFolderId", Type: "string", Required: true, Description: "Folder ID or well-known name such as 'archive' or 'deleteditems'"},
			},
			Annotations: Create(),
		},
		{
			Name:        ToolUpdateMailMessage,
			Description: "Update message properties: read state, categories, importance or subject.",
			Args: []ArgMetadata{
				messageIDArg,
				{Name: "isRead", Type: "boolean", Description: "Mark as read or unread"},
				{Name: "categories", Type: "string", Description: "Comma-separated categories; replaces existing ones"},
				{Name: "importance", Type: "string", Description: "low, normal or high"},
				{Name: "subject", Type: "string", Description: "New subject"},
			},
			Annotations: Idempotent(),
		},
		{
			Name:        ToolCreateDraftMessage,
			Description: "Create a draft message in the Drafts folder.",
			Args:        draftArgs(false),
			Annotations: Create(),
		},
		{
			Name:        ToolCreateReplyDraft,
			Description: "Create a draft reply to the sender of a message.",
			Args:        []ArgMetadata{messageIDArg, {Name: "comment", Type: "string", Description: "Text placed above the quoted message"}},
			Annotations: Create(),
		},
		{
			Name:        ToolCreateReplyAllDraft,
			Description: "Create a draft reply to all recipients of a message.",
			Args:        []ArgMetadata{messageIDArg, {Name: "comment", Type: "string", Description: "Text placed above the quoted message"}},
			Annotations: Create(),
		},
		{
			Name:        ToolCreateForwardDraft,
			Description: "Create a draft forward of a message.",
			Args: []ArgMetadata{
				messageIDArg,
				{Name: "toRecipients", Type: "string", Required: true, Description: "Comma-separated recipient addresses"},
				{Name: "comment", Type: "string", Description: "Text placed above the forwarded message"},
			},
			Annotations: Create(),
		},
		{
			Name:        ToolUpdateDraftMessage,
			Description: "Update a draft message. Only the given fields change.",
			Args:        draftArgs(true),
			Annotations: Idempotent(),
		},
		{
			Name:        ToolSendDraftMessage,
			Description: "Send an existing draft message.",
			Args:        []ArgMetadata{messageIDArg},
			Annotations: Create(),
		},
		{
			Name:        ToolListMailAttachments,
			Description: "List the attachments of a message.",
			Args:        []ArgMetadata{messageIDArg},
			Annotations: ReadOnly(),
		},
		{
			Name:        ToolGetMailAttachment,
			Description: "Download a file attachment to a temporary file, or return it as base64.",
			Args: []ArgMetadata{
				messageIDArg,
				{Name: "attachmentId", Type: "string", Required: true, Description: "ID of the attachment"},
				{Name: "returnBase64", Type: "boolean", Description: "Return the content inline as base64 instead of saving it"},
			},
			Annotations: ReadOnly(),
		},
		{
			Name:        ToolAddMailAttachment,
			Description: "Attach a file to a draft message, from a local path or base64 content.",
			Args: []ArgMetadata{
				messageIDArg,
				{Name: "filePath", Type: "string", Description: "Local path of the file to attach"},
				{Name: "contentBase64", Type: "string", Description: "Base64 file content, used when filePath is not given"},
				{Name: "fileName", Type: "string", Description: "Attachment name; required with contentBase64"},
				{Name: "contentType", Type: "string", Description: "MIME type (guessed from the file name when omitted)"},
			},
			Annotations: Create(),
		},
		{
			Name:        ToolDeleteMailAttachment,
			Description: "Remove an attachment from a message.",
			Args: []ArgMetadata{
				messageIDArg,
				{Name: "attachmentId", Type: "string", Required: true, Description: "ID of the attachment"},
			},
			Annotations: Destructive(),
		},
		{
			Name:        ToolListMailFolders,
			Description: "List the top-level mail folders.",
			Args:        []ArgMetadata{{Name: "select", Type: "string", Description: "Comma-separated properties to return"}},
			Annotations: ReadOnly(),
		},
		{
			Name:        ToolListMailFolderMessages,
			Description: "List messages in a mail folder.",
			Args: append([]ArgMetadata{
				{Name: "folderId", Type: "string", Required: true, Description: "Folder ID or well-known name such as 'inbox'"},
			}, listArgs(defaultMessageSelect, defaultTop)...),
			Annotations: ReadOnly(),
		},
	}
}

func draftArgs(update bool) []ArgMetadata {
	var args []ArgMetadata
	if update {
		args = append(args, messageIDArg)
	}
	return append(args,
		ArgMetadata{Name: "subject", Type: "string", Description: "Message subject"},
		ArgMetadata{Name: "body", Type: "string", Description: "Message body"},
		ArgMetadata{Name: "bodyContentType", Type: "string", Description: "text or html (default text)"},
		ArgMetadata{Name: "toRecipients", Type: "string", Description: "Comma-separated recipient addresses"},
		ArgMetadata{Name: "ccRecipients", Type: "string", Description: "Comma-separated CC addresses"},
		ArgMetadata{Name: "bccRecipients", Type: "string", Description: "Comma-separated BCC addresses"},
		ArgMetadata{Name: "importance", Type: "string", Description: "low, normal or high"},
	)
}

// ExecuteTool implements ToolProvider.
func (p *MailProvider) ExecuteTool(ctx context.Context, toolName string, args map[string]interface{}) (*CallToolResult, error) {
	var handler func(context.Context, *msgraphsdk.GraphServiceClient, map[string]interface{}) (*CallToolResult, error)

	switch toolName {
	case ToolListMailMessages:
		handler = p.handleListMessages
	case ToolGetMailMessage:
		handler = p.handleGetMessage
	case ToolSendMail:
		handler = p.handleSendMail
	case ToolDeleteMailMessage:
		handler = p.handleDeleteMessage
	case ToolMoveMailMessage:
		handler = p.handleMoveMessage
	case ToolUpdateMailMessage:
		handler = p.handleUpdateMessage
	case ToolCreateDraftMessage:
		handler = p.handleCreateDraft
	case ToolCreateReplyDraft:
		handler = p.handleCreateReply
	case ToolCreateReplyAllDraft:
		handler = p.handleCreateReplyAll
	case ToolCreateForwardDraft:
		handler = p.handleCreateForward
	case ToolUpdateDraftMessage:
		handler = p.handleUpdateDraft
	case ToolSendDraftMessage:
		handler = p.handleSendDraft
	case ToolListMailAttachments:
		handler = p.handleListAttachments
	case ToolGetMailAttachment:
		handler = p.handleGetAttachment
	case ToolAddMailAttachment:
		handler = p.handleAddAttachment
	case ToolDeleteMailAttachment:
		handler = p.handleDeleteAttachment
	case ToolListMailFolders:
		handler = p.handleListFolders
	case ToolListMailFolderMessages:
		handler = p.handleListFolderMessages
	default:
		return nil, fmt.Errorf("unknown mail tool: %s", toolName)
	}

	client, err := p.clients.Create()
	if err != nil {
		return graphError(err), nil
	}
	return handler(ctx, client, args)
}

// searchQuery wraps a free-text query in the quotes $search requires.
func searchQuery(q string) *string {
	if q == "" {
		return nil
	}
	if !strings.HasPrefix(q, "\"") {
		q = "\"" + q + "\""
	}
	return &q
}

func (p *MailProvider) handleListMessages(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	top, err := topArg(args, defaultTop)
	if err != nil {
		return argError(err), nil
	}
	skip, err := optionalInt(args, "skip")
	if err != nil {
		return argError(err), nil
	}

	result, err := client.Me().Messages().Get(ctx, &users.ItemMessagesRequestBuilderGetRequestConfiguration{
		QueryParameters: &users.ItemMessagesRequestBuilderGetQueryParameters{
			Top:     top,
			Skip:    skip,
			Select:  selectArg(args, defaultMessageSelect),
			Filter:  optionalString(args, "filter"),
			Search:  searchQuery(stringArg(args, "search")),
			Orderby: splitList(stringArg(args, "orderby")),
		},
	})
	if err != nil {
		return graphError(err), nil
	}
	return graphResult(result), nil
}

func (p *MailProvider) handleGetMessage(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	id, err := requireString(args, "messageId")
	if err != nil {
		return argError(err), nil
	}

	msg, err := client.Me().Messages().ByMessageId(id).Get(ctx, nil)
	if err != nil {
		return graphError(err), nil
	}

	if !isTruthy(args["rawBody"]) {
		convertBodyToMarkdown(msg)
	}
	return graphResult(msg), nil
}

// convertBodyToMarkdown rewrites an HTML body as markdown. The original HTML
// is kept when conversion fails.
func convertBodyToMarkdown(msg models.Messageable) {
	if msg == nil || msg.GetBody() == nil {
		return
	}
	body := msg.GetBody()
	if body.GetContentType() == nil || *body.GetContentType() != models.HTML_BODYTYPE || body.GetContent() == nil {
		return
	}

	converted, err := graph.HTMLToMarkdown(*body.GetContent())
	if err != nil {
		logging.Debug("MailTools", "Keeping HTML body: %v", err)
		return
	}
	text := models.TEXT_BODYTYPE
	body.SetContent(&converted)
	body.SetContentType(&text)
}

// attachmentSpec is a local file to be attached to an outgoing message.
type attachmentSpec struct {
	path        string
	contentType string
}

// parseAttachmentSpecs pairs attachment paths with their content types.
func parseAttachmentSpecs(args map[string]interface{}) ([]attachmentSpec, error) {
	paths := splitList(stringArg(args, "attachmentFilePaths"))
	if len(paths) == 0 {
		return nil, nil
	}
	types := splitList(stringArg(args, "attachmentContentTypes"))
	if len(types) > 0 && len(types) != len(paths) {
		return nil, errors.New("attachmentContentTypes count must match attachmentFilePaths count.")
	}

	specs := make([]attachmentSpec, len(paths))
	for i, path := range paths {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("File not found: %s", path)
		}
		specs[i] = attachmentSpec{path: path}
		if len(types) > 0 {
			specs[i].contentType = types[i]
		}
	}
	return specs, nil
}

// newFileAttachment builds a Graph file attachment.
func newFileAttachment(name, contentType string, content []byte) models.Attachmentable {
	if contentType == "" {
		contentType = guessContentType(name)
	}
	odataType := fileAttachmentODataType
	attachment := models.NewFileAttachment()
	attachment.SetOdataType(&odataType)
	attachment.SetName(&name)
	attachment.SetContentType(&contentType)
	attachment.SetContentBytes(content)
	return attachment
}

func guessContentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func readAttachments(specs []attachmentSpec) ([]models.Attachmentable, error) {
	attachments := make([]models.Attachmentable, 0, len(specs))
	for _, spec := range specs {
		data, err := os.ReadFile(spec.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read attachment %s: %w", spec.path, err)
		}
		attachments = append(attachments, newFileAttachment(filepath.Base(spec.path), spec.contentType, data))
	}
	return attachments, nil
}

// applyMessageFields copies the draft-style arguments onto msg. Only fields
// present in args are set.
func applyMessageFields(msg models.Messageable, args map[string]interface{}) {
	if subject := optionalString(args, "subject"); subject != nil {
		msg.SetSubject(subject)
	}
	if _, ok := args["body"]; ok {
		msg.SetBody(newItemBody(rawStringArg(args, "body"), stringArg(args, "bodyContentType")))
	}
	if to := stringArg(args, "toRecipients"); to != "" {
		msg.SetToRecipients(ParseRecipients(to))
	}
	if cc := stringArg(args, "ccRecipients"); cc != "" {
		msg.SetCcRecipients(ParseRecipients(cc))
	}
	if bcc := stringArg(args, "bccRecipients"); bcc != "" {
		msg.SetBccRecipients(ParseRecipients(bcc))
	}
	if importance := ParseImportance(stringArg(args, "importance")); importance != nil {
		msg.SetImportance(importance)
	}
}

func (p *MailProvider) handleSendMail(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	for _, name := range []string{"subject", "body", "toRecipients"} {
		if _, err := requireString(args, name); err != nil {
			return argError(err), nil
		}
	}
	specs, err := parseAttachmentSpecs(args)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	msg := models.NewMessage()
	applyMessageFields(msg, args)

	if len(specs) > 0 {
		return p.sendWithAttachments(ctx, client, msg, specs)
	}

	body := users.NewItemSendMailPostRequestBody()
	body.SetMessage(msg)
	if err := client.Me().SendMail().Post(ctx, body, nil); err != nil {
		return graphError(err), nil
	}
	return textResult("Email sent successfully."), nil
}

// sendWithAttachments saves msg as a draft, attaches every file and sends it.
// A draft left behind by a failed upload is deleted.
func (p *MailProvider) sendWithAttachments(ctx context.Context, client *msgraphsdk.GraphServiceClient, msg models.Messageable, specs []attachmentSpec) (*CallToolResult, error) {
	attachments, err := readAttachments(specs)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	draft, err := client.Me().Messages().Post(ctx, msg, nil)
	if err != nil {
		return graphError(err), nil
	}
	if draft.GetId() == nil {
		return errorResult("Draft was created without an id."), nil
	}
	draftID := *draft.GetId()
	item := client.Me().Messages().ByMessageId(draftID)

	for _, attachment := range attachments {
		if _, err := item.Attachments().Post(ctx, attachment, nil); err != nil {
			if delErr := item.Delete(ctx, nil); delErr != nil {
				logging.Warn("MailTools", "Failed to delete draft %s after attachment error: %v", draftID, delErr)
			}
			return graphError(err), nil
		}
	}

	if err := item.Send().Post(ctx, nil); err != nil {
		return graphError(err), nil
	}
	return textResult(fmt.Sprintf("Email sent successfully with %d attachment(s).", len(attachments))), nil
}

func (p *MailProvider) handleDeleteMessage(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	id, err := requireString(args, "messageId")
	if err != nil {
		return argError(err), nil
	}
	if err := client.Me().Messages().ByMessageId(id).Delete(ctx, nil); err != nil {
		return graphError(err), nil
	}
	return graphResult(nil), nil
}

func (p *MailProvider) handleMoveMessage(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	id, err := requireString(args, "messageId")
	if err != nil {
		return argError(err), nil
	}
	dest, err := requireString(args, "destinationFolderId")
	if err != nil {
		return argError(err), nil
	}

	body := users.NewItemMessagesItemMovePostRequestBody()
	body.SetDestinationId(&dest)
	moved, err := client.Me().Messages().ByMessageId(id).Move().Post(ctx, body, nil)
	if err != nil {
		return graphError(err), nil
	}
	return graphResult(moved), nil
}

func (p *MailProvider) handleUpdateMessage(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	id, err := requireString(args, "messageId")
	if err != nil {
		return argError(err), nil
	}
	isRead, err := optionalBool(args, "isRead")
	if err != nil {
		return argError(err), nil
	}

	patch := models.NewMessage()
	changed := false
	if isRead != nil {
		patch.SetIsRead(isRead)
		changed = true
	}
	if _, ok := args["categories"]; ok {
		patch.SetCategories(splitList(stringArg(args, "categories")))
		changed = true
	}
	if importance := ParseImportance(stringArg(args, "importance")); importance != nil {
		patch.SetImportance(importance)
		changed = true
	}
	if subject := optionalString(args, "subject"); subject != nil {
		patch.SetSubject(subject)
		changed = true
	}
	if !changed {
		return errorResult("Nothing to update. Provide at least one of isRead, categories, importance or subject."), nil
	}

	updated, err := client.Me().Messages().ByMessageId(id).Patch(ctx, patch, nil)
	if err != nil {
		return graphError(err), nil
	}
	return graphResult(updated), nil
}

func (p *MailProvider) handleCreateDraft(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	msg := models.NewMessage()
	applyMessageFields(msg, args)

	draft, err := client.Me().Messages().Post(ctx, msg, nil)
	if err != nil {
		return graphError(err), nil
	}
	return graphResult(draft), nil
}

func (p *MailProvider) handleCreateReply(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	id, err := requireString(args, "messageId")
	if err != nil {
		return argError(err), nil
	}

	body := users.NewItemMessagesItemCreateReplyPostRequestBody()
	if comment := optionalString(args, "comment"); comment != nil {
		body.SetComment(comment)
	}
	draft, err := client.Me().Messages().ByMessageId(id).CreateReply().Post(ctx, body, nil)
	if err != nil {
		return graphError(err), nil
	}
	return graphResult(draft), nil
}

func (p *MailProvider) handleCreateReplyAll(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	id, err := requireString(args, "messageId")
	if err != nil {
		return argError(err), nil
	}

	body := users.NewItemMessagesItemCreateReplyAllPostRequestBody()
	if comment := optionalString(args, "comment"); comment != nil {
		body.SetComment(comment)
	}
	draft, err := client.Me().Messages().ByMessageId(id).CreateReplyAll().Post(ctx, body, nil)
	if err != nil {
		return graphError(err), nil
	}
	return graphResult(draft), nil
}

func (p *MailProvider) handleCreateForward(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	id, err := requireString(args, "messageId")
	if err != nil {
		return argError(err), nil
	}
	to, err := requireString(args, "toRecipients")
	if err != nil {
		return argError(err), nil
	}

	body := users.NewItemMessagesItemCreateForwardPostRequestBody()
	body.SetToRecipients(ParseRecipients(to))
	if comment := optionalString(args, "comment"); comment != nil {
		body.SetComment(comment)
	}
	draft, err := client.Me().Messages().ByMessageId(id).CreateForward().Post(ctx, body, nil)
	if err != nil {
		return graphError(err), nil
	}
	return graphResult(draft), nil
}

func (p *MailProvider) handleUpdateDraft(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	id, err := requireString(args, "messageId")
	if err != nil {
		return argError(err), nil
	}

	patch := models.NewMessage()
	applyMessageFields(patch, args)
	updated, err := client.Me().Messages().ByMessageId(id).Patch(ctx, patch, nil)
	if err != nil {
		return graphError(err), nil
	}
	return graphResult(updated), nil
}

func (p *MailProvider) handleSendDraft(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	id, err := requireString(args, "messageId")
	if err != nil {
		return argError(err), nil
	}
	if err := client.Me().Messages().ByMessageId(id).Send().Post(ctx, nil); err != nil {
		return graphError(err), nil
	}
	return textResult("Draft sent successfully."), nil
}

func (p *MailProvider) handleListAttachments(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	id, err := requireString(args, "messageId")
	if err != nil {
		return argError(err), nil
	}

	result, err := client.Me().Messages().ByMessageId(id).Attachments().Get(ctx, &users.ItemMessagesItemAttachmentsRequestBuilderGetRequestConfiguration{
		QueryParameters: &users.ItemMessagesItemAttachmentsRequestBuilderGetQueryParameters{
			Select: defaultAttachmentSelect,
		},
	})
	if err != nil {
		return graphError(err), nil
	}
	return graphResult(result), nil
}

// formatSize renders a byte count as bytes below 1 KB and whole KB above.
func formatSize(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d bytes", n)
	}
	return fmt.Sprintf("%d KB", n/1024)
}

// saveTempFile writes data to tempRoot/dir/name and returns the path. name is
// reduced to its base so it cannot escape dir; fallback replaces an empty name.
func saveTempFile(tempRoot, dir, name, fallback string, data []byte) (string, error) {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = fallback
	}
	target := filepath.Join(tempRoot, dir)
	if err := os.MkdirAll(target, 0o700); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}
	path := filepath.Join(target, base)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", base, err)
	}
	return path, nil
}

func (p *MailProvider) handleGetAttachment(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	id, err := requireString(args, "messageId")
	if err != nil {
		return argError(err), nil
	}
	attachmentID, err := requireString(args, "attachmentId")
	if err != nil {
		return argError(err), nil
	}

	attachment, err := client.Me().Messages().ByMessageId(id).Attachments().ByAttachmentId(attachmentID).Get(ctx, nil)
	if err != nil {
		return graphError(err), nil
	}
	file, ok := attachment.(models.FileAttachmentable)
	if !ok || file.GetContentBytes() == nil {
		return errorResult("Attachment is not a file attachment; only file attachments can be downloaded."), nil
	}

	content := file.GetContentBytes()
	name := ""
	if file.GetName() != nil {
		name = *file.GetName()
	}
	contentType := ""
	if file.GetContentType() != nil {
		contentType = *file.GetContentType()
	}
	size := formatSize(int64(len(content)))

	if isTruthy(args["returnBase64"]) {
		return textResult(fmt.Sprintf("Name: %s\nSize: %s\nContentBase64: %s\nMetadata: {\"contentType\": %q}",
			name, size, base64.StdEncoding.EncodeToString(content), contentType)), nil
	}

	path, err := saveTempFile(p.tempDir, attachmentDirName, name, attachmentID, content)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(fmt.Sprintf("Attachment saved to: %s\nSize: %s\nName: %s\nContentType: %s", path, size, name, contentType)), nil
}

func (p *MailProvider) handleAddAttachment(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	id, err := requireString(args, "messageId")
	if err != nil {
		return argError(err), nil
	}

	var (
		name    string
		content []byte
	)
	if path := stringArg(args, "filePath"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return errorResult(fmt.Sprintf("File not found: %s", path)), nil
		}
		name, content = filepath.Base(path), data
	} else if encoded := stringArg(args, "contentBase64"); encoded != "" {
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return errorResult("Invalid base64 content in 'contentBase64' parameter."), nil
		}
		name, err = requireString(args, "fileName")
		if err != nil {
			return argError(err), nil
		}
		content = data
	} else {
		return errorResult("Either 'filePath' or 'contentBase64' must be provided."), nil
	}

	attachment := newFileAttachment(name, stringArg(args, "contentType"), content)
	created, err := client.Me().Messages().ByMessageId(id).Attachments().Post(ctx, attachment, nil)
	if err != nil {
		return graphError(err), nil
	}
	// The echoed attachment carries the content again; drop it from the result.
	if file, ok := created.(models.FileAttachmentable); ok {
		file.SetContentBytes(nil)
	}
	return graphResult(created), nil
}

func (p *MailProvider) handleDeleteAttachment(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	id, err := requireString(args, "messageId")
	if err != nil {
		return argError(err), nil
	}
	attachmentID, err := requireString(args, "attachmentId")
	if err != nil {
		return argError(err), nil
	}
	if err := client.Me().Messages().ByMessageId(id).Attachments().ByAttachmentId(attachmentID).Delete(ctx, nil); err != nil {
		return graphError(err), nil
	}
	return graphResult(nil), nil
}

func (p *MailProvider) handleListFolders(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	result, err := client.Me().MailFolders().Get(ctx, &users.ItemMailFoldersRequestBuilderGetRequestConfiguration{
		QueryParameters: &users.ItemMailFoldersRequestBuilderGetQueryParameters{
			Select: selectArg(args, defaultFolderSelect),
		},
	})
	if err != nil {
		return graphError(err), nil
	}
	return graphResult(result), nil
}

func (p *MailProvider) handleListFolderMessages(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	folderID, err := requireString(args, "folderId")
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

	result, err := client.Me().MailFolders().ByMailFolderId(folderID).Messages().Get(ctx, &users.ItemMailFoldersItemMessagesRequestBuilderGetRequestConfiguration{
		QueryParameters: &users.ItemMailFoldersItemMessagesRequestBuilderGetQueryParameters{
			Top:     top,
			Skip:    skip,
			Select:  selectArg(args, defaultMessageSelect),
			Filter:  optionalString(args, "filter"),
			Orderby: splitList(stringArg(args, "orderby")),
		},
	})
	if err != nil {
		return graphError(err), nil
	}
	return graphResult(result), nil
}
