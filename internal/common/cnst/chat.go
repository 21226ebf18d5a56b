package cnst

// ContextType distinguishes the four addressing scopes a chat message
// can belong to.
type ContextType string

const (
	// ContextGroup scopes messages to a discussion group
	ContextGroup ContextType = "group"
	// ContextThread scopes messages to a thread
	ContextThread ContextType = "thread"
	// ContextPost scopes messages to a single post
	ContextPost ContextType = "post"
	// ContextForum is the single forum-wide scope; it carries no id
	ContextForum ContextType = "forum"
)

// FrameType identifies a websocket frame on the chat endpoint.
type FrameType string

const (
	FrameConnect     FrameType = "CONNECT"
	FrameSubscribe   FrameType = "SUBSCRIBE"
	FrameUnsubscribe FrameType = "UNSUBSCRIBE"
	FrameSend        FrameType = "SEND"
	FrameMessage     FrameType = "MESSAGE"
	FrameError       FrameType = "ERROR"
)

// ErrorChannelType classifies an error pushed to a connection's private
// error destination.
type ErrorChannelType string

const (
	ErrorTypeAuth      ErrorChannelType = "AUTH_ERROR"
	ErrorTypeForbidden ErrorChannelType = "FORBIDDEN"
	ErrorTypeServer    ErrorChannelType = "SERVER_ERROR"
)

// MessageTypeChat is the messageType carried by every outbound chat payload.
const MessageTypeChat = "CHAT"

// TopicForum is the topic shared by all forum-wide messages.
const TopicForum = "forum"

// TokenCookieName is the cookie checked for a credential during the
// websocket handshake. The cookie wins over a CONNECT frame bearer.
const TokenCookieName = "agora_token"

const (
	// DefaultCacheCapacity bounds the per-context recency list
	DefaultCacheCapacity = 100
	// DefaultHistoryLimit is used when a history query omits limit
	DefaultHistoryLimit = 50
	// DefaultFrameWorkers sizes the frame dispatch worker pool
	DefaultFrameWorkers = 8
)
