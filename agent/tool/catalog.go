// Package tool exposes the booking operations as the fixed RPC-like
// surface the conversational layer invokes with already-extracted
// arguments.
package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/frontdeskai/frontdesk/agent/booking"
	contractx "github.com/frontdeskai/frontdesk/agent/contract"
)

const (
	ToolGetUserData          = "get_user_data"
	ToolIdentifyUser         = "identify_user"
	ToolFetchSlots           = "fetch_slots"
	ToolBookAppointment      = "book_appointment"
	ToolRetrieveAppointments = "retrieve_appointments"
	ToolCancelAppointment    = "cancel_appointment"
	ToolModifyAppointment    = "modify_appointment"
	ToolEndConversation      = "end_conversation"
)

type Executor func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error)

// Param describes one tool argument for the conversational layer.
type Param struct {
	Type     string
	Desc     string
	Required bool
}

type Info struct {
	Name   string
	Desc   string
	Params map[string]Param
}

// Build returns the tool descriptors and an executor bound to one
// conversation's orchestrator.
func Build(o *booking.Orchestrator) ([]Info, Executor) {
	return Catalog(), NewExecutor(o)
}

func NewExecutor(o *booking.Orchestrator) Executor {
	return func(ctx context.Context, tool string, args map[string]any) (contractx.ToolResult, error) {
		result, err := dispatch(ctx, o, tool, args)
		if err == nil {
			return contractx.ToolResult{Tool: tool, Result: result}, nil
		}
		if prompt, ok := recoverablePrompt(err); ok {
			return contractx.ToolResult{Tool: tool, Error: prompt}, nil
		}
		return contractx.ToolResult{Tool: tool}, err
	}
}

func dispatch(ctx context.Context, o *booking.Orchestrator, tool string, args map[string]any) (any, error) {
	switch tool {
	case ToolGetUserData:
		data, err := o.GetUserData(ctx, str(args, "contact_number"))
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("User data found. Phone: %s, Name: %s.", data.ContactNumber, orUnknown(data.Name)), nil

	case ToolIdentifyUser:
		data, err := o.Identify(ctx, str(args, "contact_number"), str(args, "name"))
		if err != nil {
			return nil, err
		}
		if data.Name != "" {
			return fmt.Sprintf("Thanks %s. I have your phone number as %s.", data.Name, data.ContactNumber), nil
		}
		return fmt.Sprintf("Thanks. I have your phone number as %s.", data.ContactNumber), nil

	case ToolFetchSlots:
		return o.FetchSlots(ctx, str(args, "preferred_date"))

	case ToolBookAppointment:
		result, err := o.Book(ctx,
			str(args, "date"),
			str(args, "time"),
			str(args, "contact_number"),
			str(args, "name"),
			str(args, "notes"),
		)
		if err != nil {
			return nil, err
		}
		return result.Message, nil

	case ToolRetrieveAppointments:
		return o.Retrieve(ctx, str(args, "contact_number"))

	case ToolCancelAppointment:
		result, err := o.Cancel(ctx,
			str(args, "date"),
			str(args, "time"),
			str(args, "contact_number"),
			str(args, "reason"),
		)
		if err != nil {
			return nil, err
		}
		return result.Message, nil

	case ToolModifyAppointment:
		result, err := o.Modify(ctx,
			str(args, "original_date"),
			str(args, "original_time"),
			str(args, "new_date"),
			str(args, "new_time"),
			str(args, "contact_number"),
		)
		if err != nil {
			return nil, err
		}
		return result.Message, nil

	case ToolEndConversation:
		result, err := o.EndConversation(ctx,
			str(args, "summary"),
			strList(args, "preferences"),
			strList(args, "booked_slots"),
			str(args, "contact_number"),
		)
		if err != nil {
			return nil, err
		}
		return result.Message, nil

	default:
		return nil, fmt.Errorf("unknown tool %q", tool)
	}
}

// recoverablePrompt maps user-recoverable errors to the utterance the
// conversational layer should relay. System faults pass through as errors.
func recoverablePrompt(err error) (string, bool) {
	var vErr *contractx.ValidationError
	if errors.As(err, &vErr) {
		switch vErr.Field {
		case "phone":
			return "Ask the user for a valid phone number with country code.", true
		case "date":
			return "Ask the user for a date in YYYY-MM-DD format.", true
		case "time":
			return "Ask the user for a time like 14:00 or 2:00 PM.", true
		}
		return "Ask the user to restate the " + vErr.Field + ".", true
	}
	if errors.Is(err, contractx.ErrIdentityRequired) {
		return "Ask the user for their phone number to continue.", true
	}
	return "", false
}

func str(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func strList(args map[string]any, key string) []string {
	switch v := args[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func orUnknown(name string) string {
	if name == "" {
		return "unknown"
	}
	return name
}
