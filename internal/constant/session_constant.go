package constant

const (
	// Credential keys in durable storage. Both are always cleared together.
	AccessTokenKey  = "accessToken"
	RefreshTokenKey = "refreshToken"

	BearerTokenType = "Bearer"
	AuthHeaderName  = "Authorization"

	// Required on every state-changing bridge request.
	ClientHeaderName = "X-Ragchat-Client"

	// Identity label used when the token decodes but carries no usable claim.
	FallbackUsername = "User"

	GraphFetchErrorMessage = "Could not fetch knowledge graph."

	ChatListErrorMessage   = "Could not load your chats."
	ChatCreateErrorMessage = "Could not create the chat."
)

// Claims tried, in order, when deriving the identity label.
var IdentityClaimKeys = []string{"username", "user_name", "email"}

const (
	MimeTypePDF   = "application/pdf"
	ExtensionDOCX = ".docx"
)

const (
	SnapshotTopic = "session.snapshot"

	SessionEventSnapshot = "snapshot"
	SessionEventReset    = "reset"
)
