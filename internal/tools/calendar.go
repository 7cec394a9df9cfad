package tools

import (
	"context"
	"fmt"
	"strings"

	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/users"
)

// Calendar tool names.
const (
	ToolListCalendars       = "list-calendars"
	ToolListCalendarEvents  = "list-calendar-events"
	ToolGetCalendarEvent    = "get-calendar-event"
	ToolListCalendarView    = "list-calendar-view"
	ToolCreateCalendarEvent = "create-calendar-event"
	ToolUpdateCalendarEvent = "update-calendar-event"
	ToolDeleteCalendarEvent = "delete-calendar-event"
	ToolRespondToEvent      = "respond-calendar-event"
)

var (
	defaultCalendarSelect = []string{"id", "name", "color", "isDefaultCalendar", "canEdit"}
	defaultEventSelect    = []string{"id", "subject", "start", "end", "location", "organizer", "isAllDay", "isCancelled", "responseStatus"}
)

// CalendarProvider serves the signed-in user's calendars and events.
type CalendarProvider struct {
	clients ClientSource
}

// NewCalendarProvider creates the calendar tool provider.
func NewCalendarProvider(clients ClientSource) *CalendarProvider {
	return &CalendarProvider{clients: clients}
}

var eventIDArg = ArgMetadata{Name: "eventId", Type: "string", Required: true, Description: "ID of the event"}

func eventArgs(update bool) []ArgMetadata {
	var args []ArgMetadata
	if update {
		args = append(args, eventIDArg)
	}
	required := !update
	return append(args,
		ArgMetadata{Name: "subject", Type: "string", Required: required, Description: "Event subject"},
		ArgMetadata{Name: "startDateTime", Type: "string", Required: required, Description: "Start, e.g. 2025-03-01T09:00:00"},
		ArgMetadata{Name: "startTimeZone", Type: "string", Required: required, Description: "IANA or Windows time zone of the start, e.g. UTC"},
		ArgMetadata{Name: "endDateTime", Type: "string", Required: required, Description: "End, e.g. 2025-03-01T10:00:00"},
		ArgMetadata{Name: "endTimeZone", Type: "string", Required: required, Description: "Time zone of the end"},
		ArgMetadata{Name: "body", Type: "string", Description: "Event description"},
		ArgMetadata{Name: "bodyContentType", Type: "string", Description: "text or html (default text)"},
		ArgMetadata{Name: "location", Type: "string", Description: "Location display name"},
		ArgMetadata{Name: "attendees", Type: "string", Description: "Comma-separated required attendee addresses"},
		ArgMetadata{Name: "isOnlineMeeting", Type: "boolean", Description: "Create a Teams meeting link"},
		ArgMetadata{Name: "isAllDay", Type: "boolean", Description: "All-day event"},
	)
}

// GetTools implements ToolProvider.
func (p *CalendarProvider) GetTools() []ToolMetadata {
	return []ToolMetadata{
		{
			Name:        ToolListCalendars,
			Description: "List the signed-in user's calendars.",
			Args:        []ArgMetadata{{Name: "select", Type: "string", Description: "Comma-separated properties to return"}},
			Annotations: ReadOnly(),
		},
		{
			Name:        ToolListCalendarEvents,
			Description: "List events in the default calendar. Recurring events are returned as series masters; use list-calendar-view for occurrences.",
			Args:        listArgs(defaultEventSelect, defaultTop),
			Annotations: ReadOnly(),
		},
		{
			Name:        ToolGetCalendarEvent,
			Description: "Get an event by ID.",
			Args:        []ArgMetadata{eventIDArg},
			Annotations: ReadOnly(),
		},
		{
			Name:        ToolListCalendarView,
			Description: "List event occurrences between two date-times, expanding recurring events.",
			Args: append([]ArgMetadata{
				{Name: "startDateTime", Type: "string", Required: true, Description: "Window start in ISO 8601, e.g. 2025-03-01T00:00:00Z"},
				{Name: "endDateTime", Type: "string", Required: true, Description: "Window end in ISO 8601"},
			}, listArgs(defaultEventSelect, defaultTop)...),
			Annotations: ReadOnly(),
		},
		{
			Name:        ToolCreateCalendarEvent,
			Description: "Create an event in the default calendar. Attendees receive invitations.",
			Args:        eventArgs(false),
			Annotations: Create(),
		},
		{
			Name:        ToolUpdateCalendarEvent,
			Description: "Update an event. Only the given fields change; a start or end needs both date-time and time zone.",
			Args:        eventArgs(true),
			Annotations: Idempotent(),
		},
		{
			Name:        ToolDeleteCalendarEvent,
			Description: "Delete an event.",
			Args:        []ArgMetadata{eventIDArg},
			Annotations: Destructive(),
		},
		{
			Name:        ToolRespondToEvent,
			Description: "Accept, decline or tentatively accept a meeting invitation.",
			Args: []ArgMetadata{
				eventIDArg,
				{
					Name:        "response",
					Required:    true,
					Description: "accept, decline or tentative",
					Schema:      map[string]interface{}{"type": "string", "enum": []string{"accept", "decline", "tentative"}},
				},
				{Name: "comment", Type: "string", Description: "Message to the organizer"},
				{Name: "sendResponse", Type: "boolean", Description: "Notify the organizer", Default: true},
			},
			Annotations: Create(),
		},
	}
}

// ExecuteTool implements ToolProvider.
func (p *CalendarProvider) ExecuteTool(ctx context.Context, toolName string, args map[string]interface{}) (*CallToolResult, error) {
	var handler func(context.Context, *msgraphsdk.GraphServiceClient, map[string]interface{}) (*CallToolResult, error)

	switch toolName {
	case ToolListCalendars:
		handler = p.handleListCalendars
	case ToolListCalendarEvents:
		handler = p.handleListEvents
	case ToolGetCalendarEvent:
		handler = p.handleGetEvent
	case ToolListCalendarView:
		handler = p.handleCalendarView
	case ToolCreateCalendarEvent:
		handler = p.handleCreateEvent
	case ToolUpdateCalendarEvent:
		handler = p.handleUpdateEvent
	case ToolDeleteCalendarEvent:
		handler = p.handleDeleteEvent
	case ToolRespondToEvent:
		handler = p.handleRespond
	default:
		return nil, fmt.Errorf("unknown calendar tool: %s", toolName)
	}

	client, err := p.clients.Create()
	if err != nil {
		return graphError(err), nil
	}
	return handler(ctx, client, args)
}

func (p *CalendarProvider) handleListCalendars(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	result, err := client.Me().Calendars().Get(ctx, &users.ItemCalendarsRequestBuilderGetRequestConfiguration{
		QueryParameters: &users.ItemCalendarsRequestBuilderGetQueryParameters{
			Select: selectArg(args, defaultCalendarSelect),
		},
	})
	if err != nil {
		return graphError(err), nil
	}
	return graphResult(result), nil
}

func (p *CalendarProvider) handleListEvents(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	top, err := topArg(args, defaultTop)
	if err != nil {
		return argError(err), nil
	}
	skip, err := optionalInt(args, "skip")
	if err != nil {
		return argError(err), nil
	}

	result, err := client.Me().Events().Get(ctx, &users.ItemEventsRequestBuilderGetRequestConfiguration{
		QueryParameters: &users.ItemEventsRequestBuilderGetQueryParameters{
			Top:     top,
			Skip:    skip,
			Select:  selectArg(args, defaultEventSelect),
			Filter:  optionalString(args, "filter"),
			Orderby: splitList(stringArg(args, "orderby")),
		},
	})
	if err != nil {
		return graphError(err), nil
	}
	return graphResult(result), nil
}

func (p *CalendarProvider) handleGetEvent(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	id, err := requireString(args, "eventId")
	if err != nil {
		return argError(err), nil
	}
	event, err := client.Me().Events().ByEventId(id).Get(ctx, nil)
	if err != nil {
		return graphError(err), nil
	}
	return graphResult(event), nil
}

func (p *CalendarProvider) handleCalendarView(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	start, err := requireString(args, "startDateTime")
	if err != nil {
		return argError(err), nil
	}
	end, err := requireString(args, "endDateTime")
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

	result, err := client.Me().CalendarView().Get(ctx, &users.ItemCalendarViewRequestBuilderGetRequestConfiguration{
		QueryParameters: &users.ItemCalendarViewRequestBuilderGetQueryParameters{
			StartDateTime: &start,
			EndDateTime:   &end,
			Top:           top,
			Skip:          skip,
			Select:        selectArg(args, defaultEventSelect),
			Filter:        optionalString(args, "filter"),
			Orderby:       splitList(stringArg(args, "orderby")),
		},
	})
	if err != nil {
		return graphError(err), nil
	}
	return graphResult(result), nil
}

// dateTimeArg builds a Graph date-time from the <prefix>DateTime and
// <prefix>TimeZone arguments. It returns nil when neither is set.
func dateTimeArg(args map[string]interface{}, prefix string) (models.DateTimeTimeZoneable, error) {
	dt := stringArg(args, prefix+"DateTime")
	tz := stringArg(args, prefix+"TimeZone")
	if dt == "" && tz == "" {
		return nil, nil
	}
	if dt == "" || tz == "" {
		return nil, fmt.Errorf("%sDateTime and %sTimeZone must be given together", prefix, prefix)
	}
	v := models.NewDateTimeTimeZone()
	v.SetDateTime(&dt)
	v.SetTimeZone(&tz)
	return v, nil
}

// parseAttendees converts a comma-separated address list to required attendees.
func parseAttendees(list string) []models.Attendeeable {
	addresses := splitList(list)
	attendees := make([]models.Attendeeable, 0, len(addresses))
	for _, address := range addresses {
		addr := address
		email := models.NewEmailAddress()
		email.SetAddress(&addr)
		attendeeType := models.REQUIRED_ATTENDEETYPE
		attendee := models.NewAttendee()
		attendee.SetEmailAddress(email)
		attendee.SetTypeEscaped(&attendeeType)
		attendees = append(attendees, attendee)
	}
	return attendees
}

// applyEventFields copies the event arguments present in args onto event and
// reports whether anything was set.
func applyEventFields(event models.Eventable, args map[string]interface{}) (bool, error) {
	changed := false

	if subject := optionalString(args, "subject"); subject != nil {
		event.SetSubject(subject)
		changed = true
	}
	start, err := dateTimeArg(args, "start")
	if err != nil {
		return false, err
	}
	if start != nil {
		event.SetStart(start)
		changed = true
	}
	end, err := dateTimeArg(args, "end")
	if err != nil {
		return false, err
	}
	if end != nil {
		event.SetEnd(end)
		changed = true
	}
	if _, ok := args["body"]; ok {
		event.SetBody(newItemBody(rawStringArg(args, "body"), stringArg(args, "bodyContentType")))
		changed = true
	}
	if loc := optionalString(args, "location"); loc != nil {
		location := models.NewLocation()
		location.SetDisplayName(loc)
		event.SetLocation(location)
		changed = true
	}
	if attendees := stringArg(args, "attendees"); attendees != "" {
		event.SetAttendees(parseAttendees(attendees))
		changed = true
	}
	online, err := optionalBool(args, "isOnlineMeeting")
	if err != nil {
		return false, err
	}
	if online != nil {
		event.SetIsOnlineMeeting(online)
		changed = true
	}
	allDay, err := optionalBool(args, "isAllDay")
	if err != nil {
		return false, err
	}
	if allDay != nil {
		event.SetIsAllDay(allDay)
		changed = true
	}
	return changed, nil
}

func (p *CalendarProvider) handleCreateEvent(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	for _, name := range []string{"subject", "startDateTime", "startTimeZone", "endDateTime", "endTimeZone"} {
		if _, err := requireString(args, name); err != nil {
			return argError(err), nil
		}
	}

	event := models.NewEvent()
	if _, err := applyEventFields(event, args); err != nil {
		return argError(err), nil
	}

	created, err := client.Me().Events().Post(ctx, event, nil)
	if err != nil {
		return graphError(err), nil
	}
	return graphResult(created), nil
}

func (p *CalendarProvider) handleUpdateEvent(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	id, err := requireString(args, "eventId")
	if err != nil {
		return argError(err), nil
	}

	patch := models.NewEvent()
	changed, err := applyEventFields(patch, args)
	if err != nil {
		return argError(err), nil
	}
	if !changed {
		return errorResult("Nothing to update. Provide at least one event field."), nil
	}

	updated, err := client.Me().Events().ByEventId(id).Patch(ctx, patch, nil)
	if err != nil {
		return graphError(err), nil
	}
	return graphResult(updated), nil
}

func (p *CalendarProvider) handleDeleteEvent(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	id, err := requireString(args, "eventId")
	if err != nil {
		return argError(err), nil
	}
	if err := client.Me().Events().ByEventId(id).Delete(ctx, nil); err != nil {
		return graphError(err), nil
	}
	return graphResult(nil), nil
}

func (p *CalendarProvider) handleRespond(ctx context.Context, client *msgraphsdk.GraphServiceClient, args map[string]interface{}) (*CallToolResult, error) {
	id, err := requireString(args, "eventId")
	if err != nil {
		return argError(err), nil
	}
	response := strings.ToLower(stringArg(args, "response"))
	comment := optionalString(args, "comment")
	notify, err := optionalBool(args, "sendResponse")
	if err != nil {
		return argError(err), nil
	}
	sendResponse := notify == nil || *notify

	item := client.Me().Events().ByEventId(id)
	switch response {
	case "accept":
		body := users.NewItemEventsItemAcceptPostRequestBody()
		body.SetComment(comment)
		body.SetSendResponse(&sendResponse)
		err = item.Accept().Post(ctx, body, nil)
	case "decline":
		body := users.NewItemEventsItemDeclinePostRequestBody()
		body.SetComment(comment)
		body.SetSendResponse(&sendResponse)
		err = item.Decline().Post(ctx, body, nil)
	case "tentative":
		body := users.NewItemEventsItemTentativelyAcceptPostRequestBody()
		body.SetComment(comment)
		body.SetSendResponse(&sendResponse)
		err = item.TentativelyAccept().Post(ctx, body, nil)
	default:
		return errorResult(fmt.Sprintf("Invalid response type '%s'. Must be: accept, decline, or tentative.", stringArg(args, "response"))), nil
	}
	if err != nil {
		return graphError(err), nil
	}
	return textResult(fmt.Sprintf("Event %s: %s.", id, responseVerb(response))), nil
}

func responseVerb(response string) string {
	switch response {
	case "accept":
		return "accepted"
	case "decline":
		return "declined"
	default:
		return "tentatively accepted"
	}
}
