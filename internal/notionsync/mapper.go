package notionsync

import (
	"time"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/vehicle-tracker/internal/domain"
)

// Property names shared by both databases.
const (
	PropTitle   = "Description"
	PropID      = "ID"
	PropVehicle = "Vehicle"
	// PropUser scopes pages to their owner; several users may share a database.
	PropUser = "User"
)

// Transactions database properties.
const (
	PropAmount   = "Amount"
	PropDate     = "Date"
	PropCategory = "Category"
	PropType     = "Type"
)

// Reminders database properties.
const (
	PropReminderType = "Type"
	PropDueDate      = "Due Date"
	PropCompleted    = "Completed"
)

// TransactionToProperties maps a transaction to a Transactions database row.
// vehicle is the label shown for the vehicle, usually its plate.
func TransactionToProperties(tx domain.Transaction, userID, vehicle string) notionapi.Properties {
	props := notionapi.Properties{
		PropTitle:    titleProperty(fallback(tx.Description, string(tx.Category))),
		PropID:       richTextProperty(tx.ID),
		PropUser:     richTextProperty(userID),
		PropAmount:   notionapi.NumberProperty{Number: tx.Amount},
		PropCategory: notionapi.SelectProperty{Select: notionapi.Option{Name: string(tx.Category)}},
		PropType:     notionapi.SelectProperty{Select: notionapi.Option{Name: string(tx.TransactionType)}},
	}
	if d, ok := dateProperty(tx.Date); ok {
		props[PropDate] = d
	}
	if vehicle != "" {
		props[PropVehicle] = richTextProperty(vehicle)
	}
	return props
}

// ReminderToProperties maps a reminder to a Reminders database row.
func ReminderToProperties(r domain.Reminder, userID, vehicle string) notionapi.Properties {
	props := notionapi.Properties{
		PropTitle:        titleProperty(fallback(r.Description, string(r.Type))),
		PropID:           richTextProperty(r.ID),
		PropUser:         richTextProperty(userID),
		PropReminderType: notionapi.SelectProperty{Select: notionapi.Option{Name: string(r.Type)}},
		PropCompleted:    notionapi.CheckboxProperty{Checkbox: r.IsCompleted},
	}
	if d, ok := dateProperty(r.DueDate); ok {
		props[PropDueDate] = d
	}
	if vehicle != "" {
		props[PropVehicle] = richTextProperty(vehicle)
	}
	return props
}

// ExtractEntityID reads the ID property of a page, or "" when absent.
func ExtractEntityID(page notionapi.Page) string {
	return plainText(page, PropID)
}

// ExtractUserID reads the User property of a page, or "" when absent.
func ExtractUserID(page notionapi.Page) string {
	return plainText(page, PropUser)
}

func plainText(page notionapi.Page, name string) string {
	var texts []notionapi.RichText
	switch p := page.Properties[name].(type) {
	case *notionapi.RichTextProperty:
		texts = p.RichText
	case notionapi.RichTextProperty:
		texts = p.RichText
	}
	if len(texts) == 0 {
		return ""
	}
	if texts[0].PlainText != "" {
		return texts[0].PlainText
	}
	if texts[0].Text != nil {
		return texts[0].Text.Content
	}
	return ""
}

func titleProperty(s string) notionapi.TitleProperty {
	return notionapi.TitleProperty{Title: []notionapi.RichText{textOf(s)}}
}

func richTextProperty(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{RichText: []notionapi.RichText{textOf(s)}}
}

func textOf(s string) notionapi.RichText {
	return notionapi.RichText{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: s},
	}
}

func dateProperty(iso string) (notionapi.DateProperty, bool) {
	t, err := time.Parse(domain.DateLayout, iso)
	if err != nil {
		return notionapi.DateProperty{}, false
	}
	d := notionapi.Date(t)
	return notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}, true
}

func fallback(s, alt string) string {
	if s != "" {
		return s
	}
	return alt
}
