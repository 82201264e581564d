package conversation

import "time"

// Channel identifies the surface a conversation happens on.
const (
	ChannelWhatsApp         = "whatsapp"
	ChannelVoice            = "voice"
	ChannelMessenger        = "messenger"
	ChannelInstagramDM      = "instagram_dm"
	ChannelInstagramComment = "instagram_comment"
	ChannelFacebookComment  = "facebook_comment"
)

const (
	StatusActive    = "active"
	StatusResolved  = "resolved"
	StatusEscalated = "escalated"
)

const (
	HandledByAI    = "ai"
	HandledByHuman = "human"
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// historyLimit bounds the stored message window. Older entries are dropped
// on append so prompts stay a fixed size.
const historyLimit = 20

// Message is one turn entry in a conversation.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is the durable exchange history between one customer identity
// and one tenant on one channel.
type Conversation struct {
	ID            string
	TenantID      string
	CustomerID    string
	CustomerName  string
	Channel       string
	Status        string
	HandledBy     string
	Messages      []Message
	LastIntent    string
	StartedAt     time.Time
	LastMessageAt time.Time
}

// IsCommentChannel reports whether the channel is a public comment surface.
func IsCommentChannel(channel string) bool {
	return channel == ChannelInstagramComment || channel == ChannelFacebookComment
}
