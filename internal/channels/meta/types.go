// Package meta adapts Meta Graph API webhooks (Messenger, Instagram DMs,
// and public comments) to the conversation engine.
package meta

import "time"

// WebhookPayload is the envelope Meta posts to the webhook.
type WebhookPayload struct {
	Object string         `json:"object"` // "page" or "instagram"
	Entry  []WebhookEntry `json:"entry"`
}

// WebhookEntry is one page/account's batch of events.
type WebhookEntry struct {
	ID        string           `json:"id"` // Page ID or Instagram account ID
	Time      int64            `json:"time"`
	Messaging []MessagingEvent `json:"messaging,omitempty"`
	Changes   []ChangeEvent    `json:"changes,omitempty"`
}

// MessagingEvent is a DM event (Messenger or Instagram).
type MessagingEvent struct {
	Sender    struct{ ID string } `json:"sender"`
	Recipient struct{ ID string } `json:"recipient"`
	Timestamp int64               `json:"timestamp"`
	Message   *struct {
		MID         string `json:"mid"`
		Text        string `json:"text"`
		Attachments []struct {
			Type    string `json:"type"`
			Payload struct {
				URL string `json:"url"`
			} `json:"payload"`
		} `json:"attachments,omitempty"`
	} `json:"message,omitempty"`
}

// ChangeEvent is a feed/comment event.
type ChangeEvent struct {
	Field string `json:"field"` // "feed", "comments", "mentions"
	Value struct {
		From struct {
			ID   string `json:"id"`
			Name string `json:"name,omitempty"`
		} `json:"from"`
		Item        string `json:"item"` // "comment", "post", "status"
		CommentID   string `json:"comment_id,omitempty"`
		PostID      string `json:"post_id,omitempty"`
		ParentID    string `json:"parent_id,omitempty"`
		Message     string `json:"message,omitempty"`
		Verb        string `json:"verb"` // "add", "edited", "remove"
		CreatedTime int64  `json:"created_time"`
	} `json:"value"`
}

// ParsedMessage is the normalized form of one inbound Meta event.
type ParsedMessage struct {
	Platform        string // messenger | instagram_dm | instagram_comment | facebook_comment
	SenderID        string
	SenderName      string
	MessageID       string
	Text            string
	PostID          string
	CommentID       string
	ParentCommentID string
	IsPublic        bool
	Timestamp       time.Time
}

// ParsePayload normalizes a webhook payload into messages the adapter can
// process. Only text DMs and newly added comments survive; edits, deletes,
// and attachment-only events are dropped.
func ParsePayload(payload WebhookPayload) []ParsedMessage {
	var messages []ParsedMessage

	for _, entry := range payload.Entry {
		for _, event := range entry.Messaging {
			if event.Message == nil || event.Message.Text == "" {
				continue
			}
			platform := "messenger"
			if payload.Object == "instagram" {
				platform = "instagram_dm"
			}
			messages = append(messages, ParsedMessage{
				Platform:  platform,
				SenderID:  event.Sender.ID,
				MessageID: event.Message.MID,
				Text:      event.Message.Text,
				IsPublic:  false,
				Timestamp: time.UnixMilli(event.Timestamp),
			})
		}

		for _, change := range entry.Changes {
			if change.Field != "comments" && change.Field != "feed" {
				continue
			}
			v := change.Value
			if v.Verb != "add" || v.Item != "comment" || v.Message == "" {
				continue
			}
			platform := "facebook_comment"
			if payload.Object == "instagram" {
				platform = "instagram_comment"
			}
			messages = append(messages, ParsedMessage{
				Platform:        platform,
				SenderID:        v.From.ID,
				SenderName:      v.From.Name,
				Text:            v.Message,
				PostID:          v.PostID,
				CommentID:       v.CommentID,
				ParentCommentID: v.ParentID,
				IsPublic:        true,
				Timestamp:       time.Unix(v.CreatedTime, 0),
			})
		}
	}

	return messages
}
