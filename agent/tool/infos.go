package tool

// Catalog lists every tool the conversational layer may invoke, with the
// argument shapes it must extract before calling.
func Catalog() []Info {
	return []Info{
		{
			Name: ToolGetUserData,
			Desc: "Get user data from session, participant attributes/metadata, or database.",
			Params: map[string]Param{
				"contact_number": {Type: "string", Desc: "Optional phone number to look up if context is missing."},
			},
		},
		{
			Name: ToolIdentifyUser,
			Desc: "Identify the user by phone number before booking or retrieving appointments.",
			Params: map[string]Param{
				"contact_number": {Type: "string", Desc: "The user's phone number with country code.", Required: true},
				"name":           {Type: "string", Desc: "The user's name, if provided."},
			},
		},
		{
			Name: ToolFetchSlots,
			Desc: "List available appointment slots.",
			Params: map[string]Param{
				"preferred_date": {Type: "string", Desc: "Optional date filter, YYYY-MM-DD."},
			},
		},
		{
			Name: ToolBookAppointment,
			Desc: "Book an appointment for the user.",
			Params: map[string]Param{
				"date":           {Type: "string", Desc: "Appointment date, YYYY-MM-DD.", Required: true},
				"time":           {Type: "string", Desc: "Appointment time, HH:MM (24h) or HH:MM AM/PM.", Required: true},
				"contact_number": {Type: "string", Desc: "User phone number, required if not already identified."},
				"name":           {Type: "string", Desc: "User name, if provided."},
				"notes":          {Type: "string", Desc: "Optional notes or preferences mentioned by the user."},
			},
		},
		{
			Name: ToolRetrieveAppointments,
			Desc: "Retrieve the user's appointment history.",
			Params: map[string]Param{
				"contact_number": {Type: "string", Desc: "User phone number, required if not already identified."},
			},
		},
		{
			Name: ToolCancelAppointment,
			Desc: "Cancel an existing appointment.",
			Params: map[string]Param{
				"date":           {Type: "string", Desc: "Appointment date, YYYY-MM-DD.", Required: true},
				"time":           {Type: "string", Desc: "Appointment time, HH:MM or HH:MM AM/PM.", Required: true},
				"contact_number": {Type: "string", Desc: "User phone number, required if not already identified."},
				"reason":         {Type: "string", Desc: "Optional cancellation reason."},
			},
		},
		{
			Name: ToolModifyAppointment,
			Desc: "Move an existing appointment to a new date and time.",
			Params: map[string]Param{
				"original_date":  {Type: "string", Desc: "Original appointment date, YYYY-MM-DD.", Required: true},
				"original_time":  {Type: "string", Desc: "Original appointment time.", Required: true},
				"new_date":       {Type: "string", Desc: "New appointment date, YYYY-MM-DD.", Required: true},
				"new_time":       {Type: "string", Desc: "New appointment time.", Required: true},
				"contact_number": {Type: "string", Desc: "User phone number, required if not already identified."},
			},
		},
		{
			Name: ToolEndConversation,
			Desc: "Finalize the conversation with a summary and close the session.",
			Params: map[string]Param{
				"summary":        {Type: "string", Desc: "Summary of the conversation.", Required: true},
				"preferences":    {Type: "string[]", Desc: "User preferences mentioned."},
				"booked_slots":   {Type: "string[]", Desc: "Booked slots as 'YYYY-MM-DD at HH:MM'."},
				"contact_number": {Type: "string", Desc: "User phone number; session state is used when absent."},
			},
		},
	}
}
