package model

import "time"

// -----------------------------------------------------------------------------
// Enumerations
// -----------------------------------------------------------------------------

// Visibility is the audience of a status.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
	VisibilityDirect   Visibility = "direct"
	VisibilityLocal    Visibility = "local" // Pleroma extension
)

// NotificationType identifies what triggered a notification.
type NotificationType string

const (
	NotificationMention       NotificationType = "mention"
	NotificationReblog        NotificationType = "reblog"
	NotificationFavourite     NotificationType = "favourite"
	NotificationFollow        NotificationType = "follow"
	NotificationFollowRequest NotificationType = "follow_request"
	NotificationPoll          NotificationType = "poll"
	NotificationStatus        NotificationType = "status"
	NotificationUpdate        NotificationType = "update"
	NotificationMove          NotificationType = "move"
	NotificationEmojiReaction NotificationType = "pleroma:emoji_reaction"
	NotificationChatMention   NotificationType = "pleroma:chat_mention"
	NotificationReport        NotificationType = "pleroma:report"
)

// -----------------------------------------------------------------------------
// Accounts
// -----------------------------------------------------------------------------

// Account is a user profile.
type Account struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Acct           string    `json:"acct"` // username@domain for remote accounts
	DisplayName    string    `json:"display_name"`
	Locked         bool      `json:"locked"`
	Bot            bool      `json:"bot"`
	CreatedAt      time.Time `json:"created_at"`
	FollowersCount int64     `json:"followers_count"`
	FollowingCount int64     `json:"following_count"`
	StatusesCount  int64     `json:"statuses_count"`
	Note           string    `json:"note"`
	URL            string    `json:"url"`
	Avatar         string    `json:"avatar"`
	AvatarStatic   string    `json:"avatar_static"`
	Header         string    `json:"header"`
	HeaderStatic   string    `json:"header_static"`
	Emojis         []Emoji   `json:"emojis"`
	Moved          *Account  `json:"moved,omitempty"`
	Fields         []Field   `json:"fields"`
}

// Field is a profile metadata key/value pair.
type Field struct {
	Name       string     `json:"name"`
	Value      string     `json:"value"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}

// -----------------------------------------------------------------------------
// Statuses
// -----------------------------------------------------------------------------

// Status is a post.
type Status struct {
	ID                 string         `json:"id"`
	URI                string         `json:"uri"`
	URL                *string        `json:"url,omitempty"`
	Account            Account        `json:"account"`
	InReplyToID        *string        `json:"in_reply_to_id,omitempty"`
	InReplyToAccountID *string        `json:"in_reply_to_account_id,omitempty"`
	Reblog             *Status        `json:"reblog,omitempty"`
	Content            string         `json:"content"`
	PlainContent       *string        `json:"plain_content,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	EditedAt           *time.Time     `json:"edited_at,omitempty"`
	Emojis             []Emoji        `json:"emojis"`
	RepliesCount       int64          `json:"replies_count"`
	ReblogsCount       int64          `json:"reblogs_count"`
	FavouritesCount    int64          `json:"favourites_count"`
	Reblogged          *bool          `json:"reblogged,omitempty"`
	Favourited         *bool          `json:"favourited,omitempty"`
	Muted              *bool          `json:"muted,omitempty"`
	Sensitive          bool           `json:"sensitive"`
	SpoilerText        string         `json:"spoiler_text"`
	Visibility         Visibility     `json:"visibility"`
	MediaAttachments   []Attachment   `json:"media_attachments"`
	Mentions           []Mention      `json:"mentions"`
	Tags               []Tag          `json:"tags"`
	Card               *Card          `json:"card,omitempty"`
	Poll               *Poll          `json:"poll,omitempty"`
	Application        *Application   `json:"application,omitempty"`
	Language           *string        `json:"language,omitempty"`
	Pinned             *bool          `json:"pinned,omitempty"`
	Bookmarked         *bool          `json:"bookmarked,omitempty"`
	Pleroma            *StatusPleroma `json:"pleroma,omitempty"`
}

// StatusPleroma holds the Pleroma-specific status extension.
type StatusPleroma struct {
	Local                bool       `json:"local"`
	ConversationID       int64      `json:"conversation_id"`
	DirectConversationID *int64     `json:"direct_conversation_id,omitempty"`
	InReplyToAccountAcct *string    `json:"in_reply_to_account_acct,omitempty"`
	ThreadMuted          *bool      `json:"thread_muted,omitempty"`
	Reactions            []Reaction `json:"emoji_reactions,omitempty"`
}

// Reaction is an emoji reaction count on a status.
type Reaction struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
	Me    bool   `json:"me"`
}

// Attachment is a media file attached to a status.
type Attachment struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"` // image, video, gifv, audio, unknown
	URL         string  `json:"url"`
	RemoteURL   *string `json:"remote_url,omitempty"`
	PreviewURL  *string `json:"preview_url,omitempty"`
	Description *string `json:"description,omitempty"`
	Blurhash    *string `json:"blurhash,omitempty"`
}

// Mention is an account mentioned in a status.
type Mention struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	URL      string `json:"url"`
	Acct     string `json:"acct"`
}

// Tag is a hashtag used in a status.
type Tag struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Emoji is a custom emoji.
type Emoji struct {
	Shortcode       string `json:"shortcode"`
	StaticURL       string `json:"static_url"`
	URL             string `json:"url"`
	VisibleInPicker bool   `json:"visible_in_picker"`
	Category        string `json:"category,omitempty"`
}

// Application is the client that posted a status.
type Application struct {
	Name    string  `json:"name"`
	Website *string `json:"website,omitempty"`
}

// Card is a link preview.
type Card struct {
	URL          string `json:"url"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Type         string `json:"type"`
	Image        string `json:"image,omitempty"`
	ProviderName string `json:"provider_name,omitempty"`
}

// Poll is a poll attached to a status.
type Poll struct {
	ID          string       `json:"id"`
	ExpiresAt   *time.Time   `json:"expires_at,omitempty"`
	Expired     bool         `json:"expired"`
	Multiple    bool         `json:"multiple"`
	VotesCount  int64        `json:"votes_count"`
	VotersCount *int64       `json:"voters_count,omitempty"`
	Options     []PollOption `json:"options"`
	Voted       *bool        `json:"voted,omitempty"`
}

// PollOption is one choice in a poll.
type PollOption struct {
	Title      string `json:"title"`
	VotesCount *int64 `json:"votes_count,omitempty"`
}

// -----------------------------------------------------------------------------
// Notifications and conversations
// -----------------------------------------------------------------------------

// Notification is an event concerning the authenticated account.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	CreatedAt time.Time        `json:"created_at"`
	Account   *Account         `json:"account,omitempty"`
	Status    *Status          `json:"status,omitempty"`
	Emoji     *string          `json:"emoji,omitempty"`  // pleroma:emoji_reaction
	Target    *Account         `json:"target,omitempty"` // move
}

// Conversation is a direct-message thread.
type Conversation struct {
	ID         string    `json:"id"`
	Accounts   []Account `json:"accounts"`
	LastStatus *Status   `json:"last_status,omitempty"`
	Unread     bool      `json:"unread"`
}
